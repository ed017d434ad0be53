package storage

import (
	"context"
	"fmt"
	"mime"
	"strings"

	apperrors "globalgigs/pkg/errors"

	"github.com/google/uuid"
)

// MaxUploadSize caps avatar and portfolio images.
const MaxUploadSize = 10 << 20

type Kind string

const (
	KindAvatar    Kind = "avatar"
	KindPortfolio Kind = "portfolio"
)

func (k Kind) Valid() bool {
	return k == KindAvatar || k == KindPortfolio
}

var imageExtensions = map[string]string{
	"image/jpeg":    ".jpg",
	"image/png":     ".png",
	"image/gif":     ".gif",
	"image/webp":    ".webp",
	"image/svg+xml": ".svg",
	"image/avif":    ".avif",
}

// Presigner signs a PUT for one object key.
type Presigner interface {
	PresignPut(ctx context.Context, key, contentType string, sizeBytes int64) (string, map[string]string, error)
	PublicURL(key string) string
}

type Upload struct {
	Key       string            `json:"key"`
	UploadURL string            `json:"uploadUrl"`
	Headers   map[string]string `json:"headers"`
	PublicURL string            `json:"publicUrl"`
}

// Uploads hands out presigned URLs so images go straight to object storage.
type Uploads struct {
	presigner Presigner
}

func NewUploads(p Presigner) *Uploads {
	return &Uploads{presigner: p}
}

func (u *Uploads) PresignUpload(ctx context.Context, ownerID string, kind Kind, contentType string, size int64) (Upload, error) {
	if u == nil || u.presigner == nil {
		return Upload{}, apperrors.ErrServiceUnavailable
	}

	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		contentType = mediaType
	}

	verr := &apperrors.ValidationError{}
	if ownerID == "" {
		verr.Add("ownerId", "is required")
	}
	if !kind.Valid() {
		verr.Add("kind", "must be avatar or portfolio")
	}
	if !strings.HasPrefix(contentType, "image/") {
		verr.Add("contentType", "only images can be uploaded")
	}
	if size <= 0 {
		verr.Add("size", "must be greater than zero")
	}
	if err := verr.OrNil(); err != nil {
		return Upload{}, err
	}
	if size > MaxUploadSize {
		return Upload{}, fmt.Errorf("%w: limit is %d bytes", apperrors.ErrTooLarge, MaxUploadSize)
	}

	key := fmt.Sprintf("%s/%s/%s%s", kind, ownerID, uuid.NewString(), extensionFor(contentType))
	url, headers, err := u.presigner.PresignPut(ctx, key, contentType, size)
	if err != nil {
		return Upload{}, apperrors.Unavailable("presign upload", err)
	}
	return Upload{Key: key, UploadURL: url, Headers: headers, PublicURL: u.presigner.PublicURL(key)}, nil
}

func extensionFor(contentType string) string {
	if ext, ok := imageExtensions[contentType]; ok {
		return ext
	}
	if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ""
}
