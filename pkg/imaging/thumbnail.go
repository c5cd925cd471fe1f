package imaging

import (
	"image"
	"image/color"
	"math"

	"github.com/fogleman/gg"
	xdraw "golang.org/x/image/draw"
)

// PreviewSize is the bounding box of generated previews.
const PreviewSize = 256

// Thumbnail scales img down to fit within maxW x maxH, preserving the aspect
// ratio. Images that already fit are returned unchanged.
func Thumbnail(img image.Image, maxW, maxH int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxW && h <= maxH {
		return img
	}

	scale := math.Min(float64(maxW)/float64(w), float64(maxH)/float64(h))
	nw := max(1, int(math.Round(float64(w)*scale)))
	nh := max(1, int(math.Round(float64(h)*scale)))

	var dst xdraw.Image
	if _, ok := img.(*image.Gray); ok {
		dst = image.NewGray(image.Rect(0, 0, nw, nh))
	} else {
		dst = image.NewRGBA(image.Rect(0, 0, nw, nh))
	}
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst
}

// Downscale halves img repeatedly until its height is below maxHeight.
func Downscale(img image.Image, maxHeight int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	for h >= maxHeight && h > 1 {
		w, h = max(1, w/2), h/2
	}
	if w == b.Dx() && h == b.Dy() {
		return img
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst
}

// PreviewImage builds a preview from an already decoded image: orientation
// is applied, 16-bit grayscale is rescaled and equalized, and the result is
// thumbnailed into the preview box.
func PreviewImage(img image.Image, orientation int) image.Image {
	img = ApplyOrientation(img, orientation)
	if g16, ok := img.(*image.Gray16); ok {
		img = Equalize(RescaleGray16(g16))
	}
	return Thumbnail(img, PreviewSize, PreviewSize)
}

// Preview decodes data and builds its preview.
func Preview(data []byte) (image.Image, error) {
	l, err := Load(data)
	if err != nil {
		return nil, err
	}
	return PreviewImage(l.Image, l.Orientation), nil
}

// Placeholder3D draws the fixed preview used for point-cloud frames.
func Placeholder3D() image.Image {
	const s = PreviewSize
	dc := gg.NewContext(s, s)
	dc.SetColor(color.RGBA{R: 0x2b, G: 0x2f, B: 0x36, A: 0xff})
	dc.Clear()

	// Isometric cube outline.
	cx, cy, r := float64(s)/2, float64(s)/2-10, 70.0
	top := []gg.Point{
		{X: cx, Y: cy - r},
		{X: cx + r*0.87, Y: cy - r/2},
		{X: cx, Y: cy},
		{X: cx - r*0.87, Y: cy - r/2},
	}
	dc.SetColor(color.RGBA{R: 0x6c, G: 0xb4, B: 0xee, A: 0xff})
	dc.SetLineWidth(3)
	for i := range top {
		p, q := top[i], top[(i+1)%len(top)]
		dc.DrawLine(p.X, p.Y, q.X, q.Y)
	}
	for _, p := range []gg.Point{top[1], top[2], top[3]} {
		dc.DrawLine(p.X, p.Y, p.X, p.Y+r)
	}
	dc.DrawLine(top[3].X, top[3].Y+r, top[2].X, top[2].Y+r)
	dc.DrawLine(top[2].X, top[2].Y+r, top[1].X, top[1].Y+r)
	dc.Stroke()

	dc.SetColor(color.White)
	dc.DrawStringAnchored("3D", cx, float64(s)-30, 0.5, 0.5)
	return dc.Image()
}
