// Package cv implements screen.Vision with OpenCV and Tesseract.
package cv

import (
	"fmt"
	"image"
	"sync"

	"github.com/otiai10/gosseract/v2"
	"gocv.io/x/gocv"

	"mist/internal/screen"
)

const (
	labelUpscale = 3
	contrastGain = 1.5
)

// Vision owns one Tesseract client. Calls are serialized.
type Vision struct {
	mu     sync.Mutex
	client *gosseract.Client
}

func New(language string) (*Vision, error) {
	c := gosseract.NewClient()
	if language != "" {
		if err := c.SetLanguage(language); err != nil {
			c.Close()
			return nil, fmt.Errorf("tesseract language %s: %w", language, err)
		}
	}
	return &Vision{client: c}, nil
}

func (v *Vision) Close() error {
	return v.client.Close()
}

func (v *Vision) Buttons(img image.Image) ([]screen.Element, error) {
	gray, err := grayscale(img)
	if err != nil {
		return nil, err
	}
	defer gray.Close()

	edges := gocv.NewMat()
	defer edges.Close()
	soft, hard := gocv.NewMat(), gocv.NewMat()
	defer soft.Close()
	defer hard.Close()
	gocv.Canny(gray, &soft, 30, 100)
	gocv.Canny(gray, &hard, 100, 200)
	gocv.BitwiseOr(soft, hard, &edges)

	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(3, 3))
	defer kernel.Close()
	gocv.Dilate(edges, &edges, kernel)
	gocv.Dilate(edges, &edges, kernel)

	contours := gocv.FindContours(edges, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	v.mu.Lock()
	defer v.mu.Unlock()

	var found []screen.Element
	for i := 0; i < contours.Size(); i++ {
		r := gocv.BoundingRect(contours.At(i))
		if !screen.ButtonShaped(r) {
			continue
		}
		text, err := v.readLabel(gray, r)
		if err != nil || text == "" {
			continue
		}
		found = append(found, screen.FromRect(r, text))
	}
	return found, nil
}

// readLabel OCRs a single button region as one line of text.
func (v *Vision) readLabel(gray gocv.Mat, r image.Rectangle) (string, error) {
	crop := gray.Region(r)
	defer crop.Close()

	roi := crop.Clone()
	defer roi.Close()
	if roi.Mean().Val1 < 128 {
		gocv.BitwiseNot(roi, &roi)
	}
	gocv.Resize(roi, &roi, image.Point{}, labelUpscale, labelUpscale, gocv.InterpolationCubic)
	gocv.Normalize(roi, &roi, 0, 255, gocv.NormMinMax)
	gocv.AdaptiveThreshold(roi, &roi, 255, gocv.AdaptiveThresholdGaussian, gocv.ThresholdBinary, 11, 2)

	if err := v.client.SetWhitelist(screen.LabelAlphabet); err != nil {
		return "", err
	}
	defer v.client.SetWhitelist("")
	return v.ocr(roi, screen.LayoutLine)
}

func (v *Vision) Words(img image.Image, variant screen.Variant) ([]screen.Word, error) {
	gray, err := grayscale(img)
	if err != nil {
		return nil, err
	}
	defer gray.Close()

	big := gocv.NewMat()
	defer big.Close()
	gocv.Resize(gray, &big, image.Point{}, screen.WordUpscale, screen.WordUpscale, gocv.InterpolationCubic)

	switch variant {
	case screen.Inverted:
		gocv.BitwiseNot(big, &big)
	case screen.Contrast:
		gocv.Normalize(big, &big, 0, 255, gocv.NormMinMax)
		gocv.ConvertScaleAbs(big, &big, contrastGain, 0)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.load(big, screen.LayoutSparse); err != nil {
		return nil, err
	}
	boxes, err := v.client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("word boxes: %w", err)
	}
	words := make([]screen.Word, 0, len(boxes))
	for _, b := range boxes {
		words = append(words, screen.Word{Box: b.Box, Text: b.Word, Confidence: b.Confidence})
	}
	return words, nil
}

func (v *Vision) Text(img image.Image, layout screen.Layout) (string, error) {
	gray, err := grayscale(img)
	if err != nil {
		return "", err
	}
	defer gray.Close()

	v.mu.Lock()
	defer v.mu.Unlock()
	return v.ocr(gray, layout)
}

func (v *Vision) ocr(m gocv.Mat, layout screen.Layout) (string, error) {
	if err := v.load(m, layout); err != nil {
		return "", err
	}
	text, err := v.client.Text()
	if err != nil {
		return "", fmt.Errorf("ocr: %w", err)
	}
	return text, nil
}

func (v *Vision) load(m gocv.Mat, layout screen.Layout) error {
	buf, err := gocv.IMEncode(gocv.PNGFileExt, m)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	defer buf.Close()
	if err := v.client.SetImageFromBytes(buf.GetBytes()); err != nil {
		return fmt.Errorf("set image: %w", err)
	}
	return v.client.SetPageSegMode(gosseract.PageSegMode(layout))
}

func grayscale(img image.Image) (gocv.Mat, error) {
	src, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("convert image: %w", err)
	}
	defer src.Close()
	gray := gocv.NewMat()
	gocv.CvtColor(src, &gray, gocv.ColorBGRToGray)
	return gray, nil
}
