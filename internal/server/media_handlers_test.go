package server

import (
	"bytes"
	"net/http"
	"net/url"
	"testing"

	"isintu/internal/config"
	"isintu/internal/models"
	"isintu/internal/service"
	"isintu/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mp4Bytes() []byte {
	b := []byte{0, 0, 0, 0x18, 'f', 't', 'y', 'p', 'm', 'p', '4', '2', 0, 0, 0, 0, 'm', 'p', '4', '1', 'i', 's', 'o', 'm'}
	return append(b, bytes.Repeat([]byte{0}, 64)...)
}

func TestUploadMedia_ImageThenSignedURL(t *testing.T) {
	ts := newTestServer(t)
	_, token := ts.user("Reader", models.RoleUser)

	resp := ts.upload(token, "cat.png", "image/png", testutil.TinyPNG(8, 8))
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	obj := decode[service.MediaObject](t, resp)
	assert.Equal(t, service.MediaKindImage, obj.Kind)
	assert.Equal(t, "image/webp", obj.ContentType)
	assert.True(t, ts.store.Has(obj.Path))

	resp = ts.do(http.MethodGet, "/api/media/url?path="+url.QueryEscape(obj.Path), token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	signed := decode[service.SignedURL](t, resp)
	assert.Contains(t, signed.URL, obj.Path)

	resp = ts.do(http.MethodGet, "/api/media/url?path="+url.QueryEscape("../etc/passwd"), token, nil)
	assertError(t, resp, fiber.StatusBadRequest, models.CodeValidation)
}

func TestUploadMedia_Video(t *testing.T) {
	ts := newTestServer(t)
	_, token := ts.user("Reader", models.RoleUser)

	resp := ts.upload(token, "clip.mp4", "video/mp4", mp4Bytes())
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	obj := decode[service.MediaObject](t, resp)
	assert.Equal(t, service.MediaKindVideo, obj.Kind)
	assert.True(t, ts.store.Has(obj.Path))
}

func TestUploadMedia_Rejects(t *testing.T) {
	ts := newTestServer(t)
	_, token := ts.user("Reader", models.RoleUser)

	resp := ts.upload(token, "notes.txt", "text/plain", []byte("just some words"))
	assertError(t, resp, fiber.StatusBadRequest, models.CodeValidation)

	resp = ts.do(http.MethodPost, "/api/media", token, fiber.Map{"file": "nope"})
	assertError(t, resp, fiber.StatusBadRequest, models.CodeValidation)
	assert.Empty(t, ts.store.Objects)
}

func TestUploadMedia_FeatureFlags(t *testing.T) {
	ts := newTestServer(t, func(c *config.Config) { c.FeatureFlags = "video_uploads=off" })
	_, token := ts.user("Reader", models.RoleUser)

	resp := ts.upload(token, "clip.mp4", "video/mp4", mp4Bytes())
	assertError(t, resp, fiber.StatusForbidden, models.CodeForbidden)

	// The declared type does not matter; the content sniffs as MP4.
	resp = ts.upload(token, "clip.bin", "application/octet-stream", mp4Bytes())
	assertError(t, resp, fiber.StatusForbidden, models.CodeForbidden)
	assert.Empty(t, ts.store.Objects)

	resp = ts.upload(token, "cat.png", "image/png", testutil.TinyPNG(4, 4))
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	off := newTestServer(t, func(c *config.Config) { c.FeatureFlags = "media_uploads=off" })
	_, token = off.user("Reader", models.RoleUser)
	resp = off.upload(token, "cat.png", "image/png", testutil.TinyPNG(4, 4))
	assertError(t, resp, fiber.StatusForbidden, models.CodeForbidden)
}

func TestUploadMedia_NoStore(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	srv, err := NewServerWithDeps(&config.Config{JWTSecret: testJWTSecret}, db, nil, nil)
	require.NoError(t, err)
	ts := &testServer{t: t, srv: srv, app: srv.NewApp(), db: db}
	_, token := ts.user("Reader", models.RoleUser)

	resp := ts.upload(token, "cat.png", "image/png", testutil.TinyPNG(4, 4))
	assertError(t, resp, fiber.StatusServiceUnavailable, models.CodeInternal)
}
