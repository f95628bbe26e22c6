package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	_ "image/gif" // register decoders for uploads
	_ "image/jpeg"
	_ "image/png"
	"mime"
	"net/http"
	"strings"
	"time"

	"isintu/internal/config"
	"isintu/internal/middleware"
	"isintu/internal/models"
	"isintu/internal/observability"
	"isintu/internal/storage"

	"github.com/chai2010/webp"
	"go.opentelemetry.io/otel/attribute"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	MediaKindImage = "image"
	MediaKindVideo = "video"

	MasterMaxSize               = 2048
	WebPQuality                 = 75
	DefaultMediaMaxUploadSizeMB = 25
	DefaultSignedURLTTL         = 15 * time.Minute
)

type UploadMediaInput struct {
	UserID      uint
	Filename    string
	ContentType string
	Content     []byte
	// RejectVideo refuses content that sniffs as video, whatever
	// ContentType claims.
	RejectVideo bool
}

// MediaObject is what an upload returns. Path goes into a post's image or
// video list.
type MediaObject struct {
	Path        string `json:"path"`
	Kind        string `json:"kind"`
	ContentType string `json:"content_type"`
	SizeBytes   int    `json:"size_bytes"`
	Width       int    `json:"width,omitempty"`
	Height      int    `json:"height,omitempty"`
}

// SignedURL is a time-limited read link for an object path.
type SignedURL struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

type MediaService struct {
	store              storage.ObjectStore
	maxUploadSizeBytes int
	urlTTL             time.Duration
}

func NewMediaService(store storage.ObjectStore, cfg *config.Config) *MediaService {
	maxMB := DefaultMediaMaxUploadSizeMB
	ttl := DefaultSignedURLTTL
	if cfg != nil {
		if cfg.MediaMaxUploadMB > 0 {
			maxMB = cfg.MediaMaxUploadMB
		}
		if cfg.S3URLTTLMinutes > 0 {
			ttl = time.Duration(cfg.S3URLTTLMinutes) * time.Minute
		}
	}
	return &MediaService{
		store:              store,
		maxUploadSizeBytes: maxMB * 1024 * 1024,
		urlTTL:             ttl,
	}
}

// Upload stores an image as WebP, scaled to fit MasterMaxSize, or a video
// as-is. Identical content from the same user lands on the same key.
func (s *MediaService) Upload(ctx context.Context, in UploadMediaInput) (_ *MediaObject, err error) {
	ctx, end := observability.StartSpan(ctx, "media.upload",
		attribute.Int("media.bytes", len(in.Content)),
		attribute.String("media.filename", in.Filename))
	defer end(&err)

	if in.UserID == 0 {
		return nil, models.NewValidationError("Invalid user")
	}
	if len(in.Content) == 0 {
		return nil, models.NewValidationError("No file uploaded")
	}
	if len(in.Content) > s.maxUploadSizeBytes {
		return nil, models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", s.maxUploadSizeBytes/(1024*1024)))
	}

	detected := normalizeContentType(http.DetectContentType(in.Content))
	var (
		obj  *MediaObject
		body []byte
	)
	switch {
	case isAllowedImageMIME(detected):
		obj, body, err = s.prepareImage(in)
	case isVideo(detected, in):
		if in.RejectVideo {
			return nil, models.NewForbiddenError("Video uploads are disabled")
		}
		obj, body = s.prepareVideo(in, detected)
	default:
		return nil, models.NewValidationError("Unsupported media type")
	}
	if err != nil {
		return nil, err
	}

	if err := s.store.Put(ctx, obj.Path, obj.ContentType, body); err != nil {
		return nil, models.NewInternalError(err)
	}
	logUpload(ctx, obj)
	return obj, nil
}

func (s *MediaService) prepareImage(in UploadMediaInput) (*MediaObject, []byte, error) {
	decoded, format, err := image.Decode(bytes.NewReader(in.Content))
	if err != nil {
		return nil, nil, models.NewValidationError("Invalid image file")
	}
	if provided := normalizeContentType(in.ContentType); strings.HasPrefix(provided, "image/") &&
		!isMatchingContentType(provided, decodedFormatToMime(format)) {
		return nil, nil, models.NewValidationError("Image content type mismatch")
	}

	master := resizeToFit(decoded, MasterMaxSize, MasterMaxSize)
	var buf bytes.Buffer
	if err := webp.Encode(&buf, master, &webp.Options{Quality: WebPQuality}); err != nil {
		return nil, nil, models.NewInternalError(err)
	}

	b := master.Bounds()
	return &MediaObject{
		Path:        objectKey(MediaKindImage, in.UserID, buf.Bytes(), "webp"),
		Kind:        MediaKindImage,
		ContentType: "image/webp",
		SizeBytes:   buf.Len(),
		Width:       b.Dx(),
		Height:      b.Dy(),
	}, buf.Bytes(), nil
}

func (s *MediaService) prepareVideo(in UploadMediaInput, detected string) (*MediaObject, []byte) {
	contentType := detected
	if contentType == "application/octet-stream" {
		contentType = normalizeContentType(in.ContentType)
	}
	return &MediaObject{
		Path:        objectKey(MediaKindVideo, in.UserID, in.Content, videoExtension(contentType)),
		Kind:        MediaKindVideo,
		ContentType: contentType,
		SizeBytes:   len(in.Content),
	}, in.Content
}

// SignedURL returns a read link for path valid for the configured TTL.
func (s *MediaService) SignedURL(ctx context.Context, path string) (*SignedURL, error) {
	if err := validateObjectPath(path); err != nil {
		return nil, err
	}
	url, err := s.store.PresignGet(ctx, path, s.urlTTL)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &SignedURL{URL: url, ExpiresAt: time.Now().Add(s.urlTTL).UTC()}, nil
}

func validateObjectPath(path string) error {
	if path == "" {
		return models.NewValidationError("path is required")
	}
	if strings.Contains(path, "..") || strings.HasPrefix(path, "/") {
		return models.NewValidationError("invalid path")
	}
	if !strings.HasPrefix(path, MediaKindImage+"/") && !strings.HasPrefix(path, MediaKindVideo+"/") {
		return models.NewValidationError("invalid path")
	}
	return nil
}

func objectKey(kind string, userID uint, content []byte, ext string) string {
	sum := sha256.Sum256(content)
	return fmt.Sprintf("%s/%d/%s.%s", kind, userID, hex.EncodeToString(sum[:]), ext)
}

func resizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	if w <= 0 || h <= 0 || (w <= maxWidth && h <= maxHeight) {
		return src
	}

	scale := float64(maxWidth) / float64(w)
	if scaleH := float64(maxHeight) / float64(h); scaleH < scale {
		scale = scaleH
	}
	newW := max(int(float64(w)*scale), 1)
	newH := max(int(float64(h)*scale), 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

func isAllowedImageMIME(contentType string) bool {
	switch contentType {
	case "image/jpeg", "image/png", "image/gif", "image/webp":
		return true
	default:
		return false
	}
}

// isVideo accepts sniffed mp4/webm, and QuickTime files, which sniff as
// octet-stream, when the client declared them and the ftyp box is present.
func isVideo(detected string, in UploadMediaInput) bool {
	switch detected {
	case "video/mp4", "video/webm":
		return true
	case "application/octet-stream":
		return normalizeContentType(in.ContentType) == "video/quicktime" &&
			len(in.Content) >= 8 && string(in.Content[4:8]) == "ftyp"
	default:
		return false
	}
}

func videoExtension(contentType string) string {
	switch contentType {
	case "video/webm":
		return "webm"
	case "video/quicktime":
		return "mov"
	default:
		return "mp4"
	}
}

func normalizeContentType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}

func isMatchingContentType(provided, detected string) bool {
	if provided == "image/jpg" {
		provided = "image/jpeg"
	}
	return provided == detected
}

func decodedFormatToMime(format string) string {
	switch format {
	case "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}

// logUpload relies on the context handler for user_id.
func logUpload(ctx context.Context, obj *MediaObject) {
	middleware.Logger.InfoContext(ctx, "media uploaded",
		"path", obj.Path, "kind", obj.Kind, "bytes", obj.SizeBytes)
	observability.MediaUploadBytes.WithLabelValues(obj.Kind).Observe(float64(obj.SizeBytes))
}
