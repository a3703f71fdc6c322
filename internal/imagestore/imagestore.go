// Package imagestore decodes the base64 data-URI images clients upload with
// recipes and persists them behind a Store.
//
// Two stores exist: LocalStore writes under a directory the HTTP server
// exposes at /media/, and MinIOStore puts objects into an S3-compatible
// bucket. Both return the public URL that ends up in Recipe.Image.
package imagestore

import (
	"context"
	"encoding/base64"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/xid"

	"github.com/sakif/foodgram/internal/apperror"
)

// MaxImageBytes caps a decoded upload.
const MaxImageBytes = 5 << 20

// recipeDir is the key prefix for recipe images, in both stores.
const recipeDir = "recipes"

// allowedTypes are the MIME types accepted after content sniffing. The type
// the client declares in the data URI is not trusted.
var allowedTypes = []string{"image/png", "image/jpeg", "image/gif", "image/webp"}

// Image is a decoded upload ready to be stored.
type Image struct {
	Data        []byte
	ContentType string
	Extension   string // with leading dot, e.g. ".png"
}

// Store persists images and hands back their public URLs.
type Store interface {
	Put(ctx context.Context, img *Image) (url string, err error)
	// Delete removes the object behind url. URLs the store did not issue
	// and already-missing objects are ignored.
	Delete(ctx context.Context, url string) error
}

// DecodeDataURI parses "data:image/<type>;base64,<payload>".
//
// Failures are validation errors on the "image" field.
func DecodeDataURI(s string) (*Image, error) {
	header, payload, ok := strings.Cut(s, ",")
	if !ok || !strings.HasPrefix(header, "data:image/") || !strings.HasSuffix(header, ";base64") {
		return nil, apperror.ValidationFailed("image", "image must be a base64 data URI (data:image/...;base64,...)")
	}

	if base64.StdEncoding.DecodedLen(len(payload)) > MaxImageBytes+3 {
		return nil, apperror.ValidationFailed("image", "image is too large")
	}

	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
	if err != nil {
		return nil, apperror.ValidationFailed("image", "image is not valid base64")
	}
	if len(data) == 0 {
		return nil, apperror.ValidationFailed("image", "image is empty")
	}
	if len(data) > MaxImageBytes {
		return nil, apperror.ValidationFailed("image", "image is too large")
	}

	mt := mimetype.Detect(data)
	if !mimetype.EqualsAny(mt.String(), allowedTypes...) {
		return nil, apperror.ValidationFailed("image", "unsupported image type "+mt.String())
	}

	return &Image{
		Data:        data,
		ContentType: mt.String(),
		Extension:   mt.Extension(),
	}, nil
}

// objectKey returns a fresh, collision-free key such as
// "recipes/cv37rs3pp9olc6atsptg.png".
func objectKey(img *Image) string {
	return recipeDir + "/" + xid.New().String() + img.Extension
}
