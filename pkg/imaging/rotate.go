package imaging

import (
	"image"
	"math"

	"github.com/fogleman/gg"
)

// Rotate turns img counter-clockwise by degrees. Multiples of 90 are exact
// pixel permutations; other angles are resampled onto a canvas large enough
// to hold the whole rotated frame.
func Rotate(img image.Image, degrees int) image.Image {
	degrees = ((degrees % 360) + 360) % 360
	switch degrees {
	case 0:
		return img
	case 90:
		return ApplyOrientation(img, 8)
	case 180:
		return ApplyOrientation(img, 3)
	case 270:
		return ApplyOrientation(img, 6)
	}

	b := img.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())
	rad := gg.Radians(float64(degrees))
	cos, sin := math.Abs(math.Cos(rad)), math.Abs(math.Sin(rad))
	nw := int(math.Ceil(w*cos + h*sin))
	nh := int(math.Ceil(w*sin + h*cos))

	dc := gg.NewContext(nw, nh)
	dc.RotateAbout(-rad, float64(nw)/2, float64(nh)/2)
	dc.DrawImageAnchored(img, nw/2, nh/2, 0.5, 0.5)
	return dc.Image()
}
