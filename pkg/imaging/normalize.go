package imaging

import (
	"image"
	"image/color"
	"image/draw"
)

// RescaleGray16 maps 16-bit grayscale into 8 bits: the minimum value is
// subtracted, the result scaled so the maximum becomes 255, and fractions
// are floored. A flat image maps to all zeros.
func RescaleGray16(src *image.Gray16) *image.Gray {
	b := src.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))

	lo, hi := uint16(0xffff), uint16(0)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			v := src.Gray16At(x, y).Y
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
	}
	span := uint32(hi) - uint32(lo)
	if span == 0 {
		return dst
	}

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			v := uint32(src.Gray16At(x, y).Y) - uint32(lo)
			dst.SetGray(x-b.Min.X, y-b.Min.Y, color.Gray{Y: uint8(v * 255 / span)})
		}
	}
	return dst
}

// Equalize applies histogram equalization to an 8-bit grayscale image.
// The lookup table matches the common imaging-library formulation: the
// step is the pixel count without the last populated bin divided by 255.
func Equalize(src *image.Gray) *image.Gray {
	var hist [256]int
	b := src.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			hist[src.GrayAt(x, y).Y]++
		}
	}

	lut := equalizeLUT(hist)
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			dst.SetGray(x-b.Min.X, y-b.Min.Y, color.Gray{Y: lut[src.GrayAt(x, y).Y]})
		}
	}
	return dst
}

func equalizeLUT(hist [256]int) [256]uint8 {
	var lut [256]uint8
	for i := range lut {
		lut[i] = uint8(i)
	}

	last := -1
	total := 0
	for i, n := range hist {
		total += n
		if n > 0 {
			last = i
		}
	}
	if last < 0 {
		return lut
	}
	step := (total - hist[last]) / 255
	if step == 0 {
		return lut
	}

	n := step / 2
	for i := 0; i < 256; i++ {
		v := n / step
		if v > 255 {
			v = 255
		}
		lut[i] = uint8(v)
		n += hist[i]
	}
	return lut
}

// RescaleWide maps a 16-bit-per-channel colour image into 8 bits by scaling
// with 256 divided by the largest channel value, clamping at 255.
func RescaleWide(src image.Image) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))

	var hi uint32
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := src.At(x, y).RGBA()
			hi = max(hi, r, g, bl)
		}
	}

	scale := func(v uint32) uint8 {
		if hi == 0 {
			return 0
		}
		s := uint64(v) * 256 / uint64(hi)
		if s > 255 {
			s = 255
		}
		return uint8(s)
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := src.At(x, y).RGBA()
			dst.SetRGBA(x-b.Min.X, y-b.Min.Y, color.RGBA{R: scale(r), G: scale(g), B: scale(bl), A: 255})
		}
	}
	return dst
}

// Normalize prepares a decoded image for 8-bit encoding: 16-bit grayscale
// is rescaled and equalized, 16-bit colour is rescaled, 8-bit gray and RGB
// pass through, and everything else is converted to RGB.
func Normalize(img image.Image) image.Image {
	switch m := img.(type) {
	case *image.Gray16:
		return Equalize(RescaleGray16(m))
	case *image.RGBA64, *image.NRGBA64:
		return RescaleWide(m)
	case *image.Gray, *image.RGBA, *image.YCbCr:
		return img
	}
	return toRGBA(img)
}

func toRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}
