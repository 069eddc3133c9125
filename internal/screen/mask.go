package screen

import (
	"image"

	"golang.org/x/image/draw"
)

// Mask returns an RGBA copy of img with every rect painted black.
func Mask(img image.Image, rects ...image.Rectangle) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(b)
	draw.Draw(out, b, img, b.Min, draw.Src)
	for _, r := range rects {
		r = r.Intersect(b)
		if r.Empty() {
			continue
		}
		draw.Draw(out, r, image.Black, image.Point{}, draw.Src)
	}
	return out
}

// TopStrip is the band of height px along the top of bounds.
func TopStrip(bounds image.Rectangle, px int) image.Rectangle {
	if px <= 0 {
		return image.Rectangle{}
	}
	return image.Rect(bounds.Min.X, bounds.Min.Y, bounds.Max.X, bounds.Min.Y+px)
}

// CenterRegion is the middle third of bounds, shifted down by offset so the
// window title bar of a centered window stays out of it.
func CenterRegion(bounds image.Rectangle, offset int) image.Rectangle {
	w, h := bounds.Dx(), bounds.Dy()
	r := image.Rect(w/3, h/3+offset, 2*w/3, 2*h/3).Add(bounds.Min)
	return r.Intersect(bounds)
}
