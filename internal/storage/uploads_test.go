package storage

import (
	"context"
	"errors"
	"strings"
	"testing"

	apperrors "globalgigs/pkg/errors"
)

type fakePresigner struct {
	keys []string
}

func (f *fakePresigner) PresignPut(_ context.Context, key, contentType string, size int64) (string, map[string]string, error) {
	f.keys = append(f.keys, key)
	return "https://upload.example/" + key, map[string]string{"Content-Type": contentType}, nil
}

func (f *fakePresigner) PublicURL(key string) string {
	return "https://cdn.example/" + key
}

func TestPresignUpload(t *testing.T) {
	p := &fakePresigner{}
	u := NewUploads(p)

	up, err := u.PresignUpload(context.Background(), "user-1", KindPortfolio, "image/PNG; charset=binary", 2048)
	if err != nil {
		t.Fatalf("presign: %v", err)
	}
	if !strings.HasPrefix(up.Key, "portfolio/user-1/") || !strings.HasSuffix(up.Key, ".png") {
		t.Fatalf("unexpected key %q", up.Key)
	}
	if up.PublicURL != "https://cdn.example/"+up.Key || up.Headers["Content-Type"] != "image/png" {
		t.Fatalf("unexpected upload %+v", up)
	}
}

func TestPresignUploadRejects(t *testing.T) {
	u := NewUploads(&fakePresigner{})
	ctx := context.Background()

	if _, err := u.PresignUpload(ctx, "user-1", KindAvatar, "application/pdf", 10); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("expected validation error for a pdf, got %v", err)
	}
	if _, err := u.PresignUpload(ctx, "user-1", Kind("banner"), "image/png", 10); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("expected validation error for an unknown kind, got %v", err)
	}
	if _, err := u.PresignUpload(ctx, "user-1", KindAvatar, "image/png", MaxUploadSize+1); !errors.Is(err, apperrors.ErrTooLarge) {
		t.Errorf("expected too large, got %v", err)
	}
	if _, err := NewUploads(nil).PresignUpload(ctx, "user-1", KindAvatar, "image/png", 10); !errors.Is(err, apperrors.ErrServiceUnavailable) {
		t.Errorf("expected unavailable without storage, got %v", err)
	}
}
