package screen

import (
	"context"
	"image"
)

// Element is a located region of the screen in full-screen pixels.
type Element struct {
	X, Y, Width, Height int
	Text                string
	Score               int
}

func FromRect(r image.Rectangle, text string) Element {
	return Element{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy(), Text: text}
}

func (e Element) Rect() image.Rectangle {
	return image.Rect(e.X, e.Y, e.X+e.Width, e.Y+e.Height)
}

func (e Element) Center() image.Point {
	return image.Pt(e.X+e.Width/2, e.Y+e.Height/2)
}

// Word is one OCR word with its box and recognition confidence (0..100).
type Word struct {
	Box        image.Rectangle
	Text       string
	Confidence float64
}

// Variant is a preprocessing of the grayscale screen for word search.
type Variant int

const (
	Plain Variant = iota
	Inverted
	Contrast
)

var Variants = []Variant{Plain, Inverted, Contrast}

func (v Variant) String() string {
	switch v {
	case Inverted:
		return "inverted"
	case Contrast:
		return "contrast"
	}
	return "plain"
}

// Layout is the OCR page segmentation used when reading free text.
type Layout int

const (
	LayoutAuto   Layout = 3
	LayoutBlock  Layout = 6
	LayoutLine   Layout = 7
	LayoutSparse Layout = 11
)

// Screen captures the whole desktop.
type Screen interface {
	Capture() (image.Image, error)
}

// Vision is the computer vision and OCR backend.
type Vision interface {
	// Buttons finds button-shaped regions and returns their recognized
	// labels in img coordinates.
	Buttons(img image.Image) ([]Element, error)
	// Words runs word-level OCR over the v preprocessing of img after
	// upscaling it by WordUpscale. Boxes are in upscaled coordinates.
	Words(img image.Image, v Variant) ([]Word, error)
	// Text reads img as free text.
	Text(img image.Image, layout Layout) (string, error)
}

// Finder is the part of the locator the executor depends on.
type Finder interface {
	Locate(ctx context.Context, query string) (Element, bool)
	Buttons(ctx context.Context) []Element
	ScreenText(ctx context.Context) string
}
