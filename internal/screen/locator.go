package screen

import (
	"context"
	"image"
	log "log/slog"
	"strings"
)

// WordUpscale is the factor Vision.Words scales the screen by before OCR.
const WordUpscale = 2

type Config struct {
	MinWordConfidence float64 // raw OCR words below this are dropped
	TopStrip          int     // px blanked along the top edge
	ReadOffset        int     // px the screen reading region is shifted down
}

func DefaultConfig() Config {
	return Config{
		MinWordConfidence: 45,
		TopStrip:          80,
		ReadOffset:        50,
	}
}

// DebugSink receives every locate attempt when debugging is enabled.
type DebugSink interface {
	Save(shot image.Image, buttons []Element, match *Element, query, mode string)
}

// Locator turns text queries into screen elements. It tries structured
// button detection first and falls back to raw word OCR.
type Locator struct {
	screen Screen
	vision Vision
	cfg    Config
	self   func() (image.Rectangle, bool)
	debug  DebugSink
}

func NewLocator(s Screen, v Vision, cfg Config) *Locator {
	return &Locator{screen: s, vision: v, cfg: cfg}
}

// ExcludeWindow sets the lookup for the assistant's own window, which is
// blanked before analysis.
func (l *Locator) ExcludeWindow(f func() (image.Rectangle, bool)) { l.self = f }

func (l *Locator) SetDebug(d DebugSink) { l.debug = d }

// Locate finds query on screen. Not finding it is a normal outcome.
func (l *Locator) Locate(ctx context.Context, query string) (Element, bool) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Element{}, false
	}

	shot, ok := l.capture()
	if !ok {
		return Element{}, false
	}

	log.Debug("Locating", "query", query)

	buttons := l.detect(shot)
	if best, ok := BestButton(buttons, query); ok && best.Score >= MinButtonScore {
		log.Info("Button match", "query", query, "text", best.Text, "score", best.Score)
		l.save(shot, buttons, &best, query, "button")
		return best, true
	}

	if ctx.Err() != nil {
		return Element{}, false
	}

	best, ok := l.searchWords(shot, query)
	floor := MinWordScore(query)
	if ok && best.Score >= floor {
		log.Info("OCR match", "query", query, "text", best.Text, "score", best.Score)
		l.save(shot, nil, &best, query, "ocr")
		return best, true
	}

	log.Info("Text not found", "query", query, "best", best.Score, "needed", floor)
	l.save(shot, buttons, nil, query, "failed")
	return Element{}, false
}

// Buttons lists the labeled buttons currently on screen.
func (l *Locator) Buttons(_ context.Context) []Element {
	shot, ok := l.capture()
	if !ok {
		return nil
	}
	return l.detect(shot)
}

// ScreenText reads the central region of the screen.
func (l *Locator) ScreenText(_ context.Context) string {
	shot, err := l.screen.Capture()
	if err != nil {
		log.Warn("Screen capture failed", "err", err)
		return ""
	}
	full := Mask(shot)
	region := full.SubImage(CenterRegion(full.Bounds(), l.cfg.ReadOffset))

	text, err := l.vision.Text(region, LayoutBlock)
	if err != nil {
		log.Warn("Screen read failed", "err", err)
		return ""
	}
	if text = strings.TrimSpace(text); text == "" {
		return "No readable text"
	}
	return text
}

func (l *Locator) capture() (*image.RGBA, bool) {
	shot, err := l.screen.Capture()
	if err != nil {
		log.Warn("Screen capture failed", "err", err)
		return nil, false
	}
	return Mask(shot, l.exclusions(shot.Bounds())...), true
}

func (l *Locator) exclusions(bounds image.Rectangle) []image.Rectangle {
	rects := []image.Rectangle{TopStrip(bounds, l.cfg.TopStrip)}
	if l.self != nil {
		if r, ok := l.self(); ok {
			rects = append(rects, r)
		}
	}
	return rects
}

func (l *Locator) detect(shot image.Image) []Element {
	found, err := l.vision.Buttons(shot)
	if err != nil {
		log.Warn("Button detection failed", "err", err)
		return nil
	}
	buttons := make([]Element, 0, len(found))
	for _, b := range found {
		b.Text = strings.TrimSpace(b.Text)
		if len([]rune(b.Text)) >= MinLabelLen {
			buttons = append(buttons, b)
		}
	}
	log.Debug("Detected buttons", "count", len(buttons))
	return buttons
}

// searchWords returns the best word across all variants, with coordinates
// scaled back to the screen.
func (l *Locator) searchWords(shot image.Image, query string) (Element, bool) {
	var (
		best  Element
		found bool
	)
	for _, v := range Variants {
		words, err := l.vision.Words(shot, v)
		if err != nil {
			log.Warn("OCR variant failed", "variant", v, "err", err)
			continue
		}
		for _, w := range words {
			text := strings.TrimSpace(w.Text)
			if len([]rune(text)) < MinLabelLen || w.Confidence < l.cfg.MinWordConfidence {
				continue
			}
			s := WordScore(query, text)
			if !found || s > best.Score {
				best = Element{
					X:      w.Box.Min.X / WordUpscale,
					Y:      w.Box.Min.Y / WordUpscale,
					Width:  w.Box.Dx() / WordUpscale,
					Height: w.Box.Dy() / WordUpscale,
					Text:   text,
					Score:  s,
				}
				found = true
			}
		}
	}
	return best, found
}

func (l *Locator) save(shot image.Image, buttons []Element, match *Element, query, mode string) {
	if l.debug != nil {
		l.debug.Save(shot, buttons, match, query, mode)
	}
}
