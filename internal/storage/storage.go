package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// MaxImageSize bounds a single uploaded pet image.
const MaxImageSize = 5 << 20

var (
	ErrUnsupportedImage = errors.New("unsupported image type")
	ErrImageTooLarge    = errors.New("image is too large")
)

// allowed image content types and the extension their keys get.
var imageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

type ObjectInfo struct {
	Key          string
	URL          string
	Size         int64
	LastModified *time.Time
}

// Image is an upload waiting to be stored.
type Image struct {
	ContentType string
	Size        int64
	Body        io.Reader
}

// ImageStore keeps pet photos in remote object storage under a per-owner prefix.
type ImageStore interface {
	PutImage(ctx context.Context, ownerID string, img Image) (string, error)
	ListImages(ctx context.Context, ownerID string) ([]ObjectInfo, error)
}

// ImageExtension returns the key extension for contentType or ErrUnsupportedImage.
func ImageExtension(contentType string) (string, error) {
	ext, ok := imageTypes[contentType]
	if !ok {
		return "", ErrUnsupportedImage
	}
	return ext, nil
}
