// Package imagingtest builds encoded image fixtures for tests.
package imagingtest

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"golang.org/x/image/tiff"
)

// Gradient returns a w x h image whose pixels vary along both axes.
func Gradient(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 255 / w), G: uint8(y * 255 / h), B: 128, A: 255})
		}
	}
	return img
}

// PNG encodes a w x h gradient as PNG.
func PNG(t testing.TB, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, Gradient(w, h)); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// TIFF encodes a w x h gradient as uncompressed TIFF.
func TIFF(t testing.TB, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := tiff.Encode(&buf, Gradient(w, h), nil); err != nil {
		t.Fatalf("encode tiff: %v", err)
	}
	return buf.Bytes()
}

// JPEG encodes a w x h gradient as JPEG. A non-zero orientation is written
// into an EXIF APP1 segment.
func JPEG(t testing.TB, w, h, orientation int) []byte {
	t.Helper()
	var raw bytes.Buffer
	if err := jpeg.Encode(&raw, Gradient(w, h), nil); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	data := raw.Bytes()
	if orientation == 0 {
		return data
	}

	// Little-endian TIFF header with one IFD entry: tag 0x0112, SHORT, count 1.
	tiffBlock := []byte{
		'I', 'I', 0x2a, 0x00, 0x08, 0x00, 0x00, 0x00,
		0x01, 0x00,
		0x12, 0x01, 0x03, 0x00, 0x01, 0x00, 0x00, 0x00,
		byte(orientation), 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00,
	}
	payload := append([]byte("Exif\x00\x00"), tiffBlock...)
	segLen := len(payload) + 2
	app1 := append([]byte{0xff, 0xe1, byte(segLen >> 8), byte(segLen)}, payload...)

	out := append([]byte{}, data[:2]...)
	out = append(out, app1...)
	return append(out, data[2:]...)
}
