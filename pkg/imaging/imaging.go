// Package imaging holds the image rules shared by frame previews and chunk
// writers: EXIF orientation, bit-depth normalization, thumbnails and
// re-encoding.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrUnknownFormat is returned when image data cannot be decoded.
var ErrUnknownFormat = errors.New("imaging: unknown image format")

// Loaded is a decoded image together with the facts needed to re-encode it.
type Loaded struct {
	Image image.Image

	// Format is the registered decoder name: "jpeg", "png", "gif", "bmp", "tiff" or "webp".
	Format string

	// Orientation is the EXIF orientation tag, 1 when absent.
	Orientation int
}

// HasRotation reports whether the EXIF orientation changes how the image is displayed.
func (l Loaded) HasRotation() bool {
	return l.Orientation > 1 && l.Orientation <= 8
}

// Load decodes data and reads its EXIF orientation.
func Load(data []byte) (Loaded, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return Loaded{}, ErrUnknownFormat
		}
		return Loaded{}, fmt.Errorf("decode image: %w", err)
	}
	return Loaded{
		Image:       img,
		Format:      format,
		Orientation: Orientation(data),
	}, nil
}

// DecodeSize returns the stored pixel dimensions without decoding pixel data.
func DecodeSize(data []byte) (width, height int, err error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return 0, 0, ErrUnknownFormat
		}
		return 0, 0, fmt.Errorf("decode image config: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}

// DisplaySize returns the dimensions of data after EXIF orientation is applied.
func DisplaySize(data []byte) (width, height int, err error) {
	w, h, err := DecodeSize(data)
	if err != nil {
		return 0, 0, err
	}
	w, h = OrientedSize(w, h, Orientation(data))
	return w, h, nil
}

// IsImage reports whether data decodes as a supported raster image.
func IsImage(data []byte) bool {
	_, _, err := image.DecodeConfig(bytes.NewReader(data))
	return err == nil
}

// Format returns the registered decoder name for data, or "" when unknown.
func Format(data []byte) string {
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return ""
	}
	return format
}
