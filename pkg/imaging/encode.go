package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// CompressJPEG normalizes img and encodes it as JPEG at quality 1 to 100.
// Out-of-range qualities are clamped.
func CompressJPEG(img image.Image, quality int) (width, height int, data []byte, err error) {
	img = Normalize(img)
	quality = min(max(quality, 1), 100)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return 0, 0, nil, fmt.Errorf("encode jpeg: %w", err)
	}
	b := img.Bounds()
	return b.Dx(), b.Dy(), buf.Bytes(), nil
}

// EncodeAs re-encodes img in the named format. JPEG uses quality 100, TIFF
// uses lossless deflate compression. Unknown formats fall back to JPEG.
func EncodeAs(img image.Image, format string) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	switch format {
	case "png":
		err = png.Encode(&buf, img)
	case "gif":
		err = gif.Encode(&buf, img, nil)
	case "bmp":
		err = bmp.Encode(&buf, img)
	case "tiff":
		err = tiff.Encode(&buf, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
	default:
		err = jpeg.Encode(&buf, Normalize(img), &jpeg.Options{Quality: 100})
	}
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", format, err)
	}
	return buf.Bytes(), nil
}
