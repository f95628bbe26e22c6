package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"log/slog"
	"regexp"
	"strings"
	"testing"

	"isintu/internal/config"
	"isintu/internal/middleware"
	"isintu/internal/models"
	"isintu/internal/testutil"

	"github.com/chai2010/webp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var imageKeyPattern = regexp.MustCompile(`^image/7/[0-9a-f]{64}\.webp$`)

func mp4Header() []byte {
	b := []byte{0, 0, 0, 0x18, 'f', 't', 'y', 'p', 'm', 'p', '4', '2', 0, 0, 0, 0, 'm', 'p', '4', '1', 'i', 's', 'o', 'm'}
	return append(b, bytes.Repeat([]byte{0}, 64)...)
}

func TestMediaUpload_ImageBecomesWebP(t *testing.T) {
	store := testutil.NewObjectStoreStub()
	s := NewMediaService(store, nil)

	obj, err := s.Upload(context.Background(), UploadMediaInput{
		UserID:      7,
		Filename:    "cat.png",
		ContentType: "image/png",
		Content:     testutil.TinyPNG(16, 8),
	})
	require.NoError(t, err)
	assert.Regexp(t, imageKeyPattern, obj.Path)
	assert.Equal(t, MediaKindImage, obj.Kind)
	assert.Equal(t, "image/webp", obj.ContentType)
	assert.Equal(t, 16, obj.Width)
	assert.Equal(t, 8, obj.Height)

	stored := store.Objects[obj.Path]
	assert.Equal(t, "image/webp", stored.ContentType)
	decoded, err := webp.Decode(bytes.NewReader(stored.Body))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 16, 8), decoded.Bounds())

	again, err := s.Upload(context.Background(), UploadMediaInput{UserID: 7, Content: testutil.TinyPNG(16, 8)})
	require.NoError(t, err)
	assert.Equal(t, obj.Path, again.Path)
}

func TestMediaUpload_DownscalesLargeImages(t *testing.T) {
	s := NewMediaService(testutil.NewObjectStoreStub(), nil)

	obj, err := s.Upload(context.Background(), UploadMediaInput{UserID: 7, Content: testutil.TinyPNG(4096, 8)})
	require.NoError(t, err)
	assert.Equal(t, MasterMaxSize, obj.Width)
	assert.Equal(t, 4, obj.Height)
}

func TestMediaUpload_Video(t *testing.T) {
	store := testutil.NewObjectStoreStub()
	s := NewMediaService(store, nil)

	obj, err := s.Upload(context.Background(), UploadMediaInput{UserID: 3, ContentType: "video/mp4", Content: mp4Header()})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(obj.Path, "video/3/"))
	assert.True(t, strings.HasSuffix(obj.Path, ".mp4"))
	assert.Equal(t, "video/mp4", obj.ContentType)
	assert.True(t, store.Has(obj.Path))

	mov := append([]byte{0, 0, 0, 0x14, 'f', 't', 'y', 'p', 'q', 't', ' ', ' '}, bytes.Repeat([]byte{1}, 32)...)
	obj, err = s.Upload(context.Background(), UploadMediaInput{UserID: 3, ContentType: "video/quicktime", Content: mov})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(obj.Path, ".mov"))
}

func TestMediaUpload_RejectVideoUsesSniffedType(t *testing.T) {
	store := testutil.NewObjectStoreStub()
	s := NewMediaService(store, nil)

	for _, declared := range []string{"video/mp4", "application/octet-stream", "image/png", ""} {
		_, err := s.Upload(context.Background(), UploadMediaInput{
			UserID: 3, ContentType: declared, Content: mp4Header(), RejectVideo: true,
		})
		assert.True(t, models.IsCode(err, models.CodeForbidden), declared)
	}
	assert.Empty(t, store.Objects)

	obj, err := s.Upload(context.Background(), UploadMediaInput{
		UserID: 3, ContentType: "image/png", Content: testutil.TinyPNG(4, 4), RejectVideo: true,
	})
	require.NoError(t, err)
	assert.Equal(t, MediaKindImage, obj.Kind)
}

func TestMediaUpload_LogsUserOnce(t *testing.T) {
	var buf bytes.Buffer
	prev := middleware.Logger
	middleware.Logger = middleware.NewContextLogger(slog.NewJSONHandler(&buf, nil))
	t.Cleanup(func() { middleware.Logger = prev })

	s := NewMediaService(testutil.NewObjectStoreStub(), nil)
	ctx := middleware.WithUserID(context.Background(), 7)
	_, err := s.Upload(ctx, UploadMediaInput{UserID: 7, ContentType: "image/png", Content: testutil.TinyPNG(4, 4)})
	require.NoError(t, err)

	var line string
	for _, l := range strings.Split(buf.String(), "\n") {
		if strings.Contains(l, `"msg":"media uploaded"`) {
			line = l
		}
	}
	require.NotEmpty(t, line)
	assert.Equal(t, 1, strings.Count(line, `"user_id"`))
}

func TestMediaUpload_Rejections(t *testing.T) {
	cfg := &config.Config{MediaMaxUploadMB: 1}
	s := NewMediaService(testutil.NewObjectStoreStub(), cfg)
	ctx := context.Background()

	cases := map[string]UploadMediaInput{
		"no user":      {Content: testutil.TinyPNG(2, 2)},
		"empty":        {UserID: 1},
		"too large":    {UserID: 1, Content: bytes.Repeat([]byte{'a'}, 1024*1024+1)},
		"text file":    {UserID: 1, Content: []byte("just some text")},
		"type differs": {UserID: 1, ContentType: "image/jpeg", Content: testutil.TinyPNG(2, 2)},
	}
	for name, in := range cases {
		_, err := s.Upload(ctx, in)
		assert.True(t, models.IsCode(err, models.CodeValidation), name)
	}
}

func TestMediaUpload_StoreFailure(t *testing.T) {
	store := testutil.NewObjectStoreStub()
	store.PutErr = errors.New("bucket down")
	s := NewMediaService(store, nil)

	_, err := s.Upload(context.Background(), UploadMediaInput{UserID: 1, Content: testutil.TinyPNG(2, 2)})
	assert.True(t, models.IsCode(err, models.CodeInternal))
}

func TestSignedURL(t *testing.T) {
	store := testutil.NewObjectStoreStub()
	s := NewMediaService(store, &config.Config{S3URLTTLMinutes: 5})
	ctx := context.Background()

	obj, err := s.Upload(ctx, UploadMediaInput{UserID: 7, Content: testutil.TinyPNG(2, 2)})
	require.NoError(t, err)

	signed, err := s.SignedURL(ctx, obj.Path)
	require.NoError(t, err)
	assert.Equal(t, "https://objects.test/"+obj.Path+"?ttl=5m0s", signed.URL)

	for _, bad := range []string{"", "/etc/passwd", "image/../secret", "docs/readme"} {
		_, err := s.SignedURL(ctx, bad)
		assert.True(t, models.IsCode(err, models.CodeValidation), bad)
	}
}
