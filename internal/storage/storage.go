// Package storage validates uploaded images and persists them to the
// configured backend.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"net/http"
	"path"
	"strings"

	"feedhub/internal/models"

	"github.com/google/uuid"
	_ "golang.org/x/image/webp" // register WebP decoder
)

// ImageStore persists image bytes and hands back a client-facing reference.
type ImageStore interface {
	Save(ctx context.Context, name, contentType string, data []byte) (string, error)
	// Delete removes the object behind ref. Deleting a missing object is not an error.
	Delete(ctx context.Context, ref string) error
	Backend() string
}

// ErrForeignReference is returned when a reference was not issued by the store.
var ErrForeignReference = errors.New("image reference does not belong to this store")

var formats = map[string]struct {
	contentType string
	ext         string
}{
	"png":  {"image/png", ".png"},
	"jpeg": {"image/jpeg", ".jpg"},
	"gif":  {"image/gif", ".gif"},
	"webp": {"image/webp", ".webp"},
}

// Upload is an image received from a client.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Inspected is an upload that passed Inspect.
type Inspected struct {
	Upload
	Format string
	Width  int
	Height int
	Ext    string
}

// Inspect checks that data is a decodable PNG, JPEG, GIF or WebP image no
// larger than maxBytes. The format comes from the bytes, never from the
// client-declared content type.
func Inspect(up Upload, maxBytes int) (*Inspected, error) {
	if len(up.Data) == 0 {
		return nil, imageError("Please upload an image.").WithCode(models.CodeImageRequired)
	}
	if maxBytes > 0 && len(up.Data) > maxBytes {
		return nil, imageError(fmt.Sprintf("Image must be at most %d bytes", maxBytes))
	}
	if sniffed := http.DetectContentType(up.Data); !strings.HasPrefix(sniffed, "image/") {
		return nil, imageError("File is not an image")
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(up.Data))
	if err != nil {
		return nil, imageError("Invalid image file")
	}
	f, ok := formats[format]
	if !ok {
		return nil, imageError("Unsupported image format")
	}

	up.ContentType = f.contentType
	return &Inspected{Upload: up, Format: format, Width: cfg.Width, Height: cfg.Height, Ext: f.ext}, nil
}

func imageError(msg string) *models.AppError {
	return models.NewValidationError("Validation failed, entered data is incorrect!", models.FieldError{
		Field:   "image",
		Message: msg,
	})
}

// ObjectName returns a fresh collision-free object name with the given extension.
func ObjectName(ext string) string {
	return uuid.NewString() + ext
}

// Store saves an inspected image under a generated name and returns its reference.
func Store(ctx context.Context, store ImageStore, in *Inspected) (string, error) {
	return store.Save(ctx, ObjectName(in.Ext), in.ContentType, in.Data)
}

// objectKey extracts the object name from a reference and rejects anything
// that could address a path outside the store.
func objectKey(ref, prefix string) (string, error) {
	if !strings.HasPrefix(ref, prefix) {
		return "", ErrForeignReference
	}
	key := strings.TrimPrefix(ref, prefix)
	if key == "" || key != path.Base(key) || key == "." || key == ".." || strings.ContainsAny(key, `/\`) {
		return "", ErrForeignReference
	}
	return key, nil
}
