package testutil

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"sync"
	"time"
)

// TinyPNG returns a valid w×h PNG.
func TinyPNG(w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}

// StoredObject is one object held by ObjectStoreStub.
type StoredObject struct {
	ContentType string
	Body        []byte
}

// ObjectStoreStub is an in-memory object store.
type ObjectStoreStub struct {
	mu      sync.Mutex
	Objects map[string]StoredObject
	PutErr  error
}

// NewObjectStoreStub returns an empty store.
func NewObjectStoreStub() *ObjectStoreStub {
	return &ObjectStoreStub{Objects: make(map[string]StoredObject)}
}

func (s *ObjectStoreStub) Put(_ context.Context, key, contentType string, body []byte) error {
	if s.PutErr != nil {
		return s.PutErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Objects[key] = StoredObject{ContentType: contentType, Body: append([]byte(nil), body...)}
	return nil
}

func (s *ObjectStoreStub) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.Objects, key)
	return nil
}

func (s *ObjectStoreStub) PresignGet(_ context.Context, key string, ttl time.Duration) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.Objects[key]; !ok {
		return "", errors.New("no such key")
	}
	return "https://objects.test/" + key + "?ttl=" + ttl.String(), nil
}

// Has reports whether key was stored.
func (s *ObjectStoreStub) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.Objects[key]
	return ok
}
