package screen

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	log "log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var (
	buttonColor = color.RGBA{R: 0, G: 100, B: 255, A: 255}
	matchColor  = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	footerColor = color.RGBA{R: 255, G: 255, B: 0, A: 255}
)

// DebugDir writes annotated captures of locate attempts as PNG files and
// keeps only the newest Keep of them.
type DebugDir struct {
	Dir  string
	Keep int
}

func NewDebugDir(dir string) *DebugDir {
	return &DebugDir{Dir: dir, Keep: 50}
}

func (d *DebugDir) Save(shot image.Image, buttons []Element, match *Element, query, mode string) {
	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		log.Warn("Debug dir unavailable", "dir", d.Dir, "err", err)
		return
	}
	d.prune()

	img := Mask(shot)
	for _, b := range buttons {
		outline(img, b.Rect(), 2, buttonColor)
		label(img, b.X, b.Y-5, truncate(b.Text, 20), buttonColor)
	}
	if match != nil {
		outline(img, match.Rect(), 4, matchColor)
		label(img, match.X, match.Y-10, "MATCH: "+match.Text, matchColor)
	}
	b := img.Bounds()
	footer := image.Rect(b.Min.X, b.Max.Y-55, b.Max.X, b.Max.Y)
	draw.Draw(img, footer, image.Black, image.Point{}, draw.Src)
	label(img, b.Min.X+10, b.Max.Y-30, fmt.Sprintf("Searched: '%s' | Mode: %s", query, mode), footerColor)

	name := filepath.Join(d.Dir, fmt.Sprintf("%s_%s_%s.png", mode, time.Now().Format("150405"), safeName(query)))
	f, err := os.Create(name)
	if err != nil {
		log.Warn("Debug screenshot failed", "err", err)
		return
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		log.Warn("Debug screenshot failed", "err", err)
		return
	}
	log.Debug("Debug screenshot saved", "file", name)
}

// prune leaves room for one more file under Keep.
func (d *DebugDir) prune() {
	if d.Keep <= 0 {
		return
	}
	keep := d.Keep - 1
	matches, err := filepath.Glob(filepath.Join(d.Dir, "*.png"))
	if err != nil || len(matches) <= keep {
		return
	}
	type file struct {
		path string
		mod  time.Time
	}
	files := make([]file, 0, len(matches))
	for _, m := range matches {
		if st, err := os.Stat(m); err == nil {
			files = append(files, file{m, st.ModTime()})
		}
	}
	sort.Slice(files, func(i, j int) bool { return files[i].mod.Before(files[j].mod) })
	for _, f := range files[:max(0, len(files)-keep)] {
		_ = os.Remove(f.path)
	}
}

func outline(img draw.Image, r image.Rectangle, width int, c color.Color) {
	src := image.NewUniform(c)
	for i := 0; i < width; i++ {
		in := r.Inset(i)
		if in.Empty() {
			return
		}
		draw.Draw(img, image.Rect(in.Min.X, in.Min.Y, in.Max.X, in.Min.Y+1), src, image.Point{}, draw.Src)
		draw.Draw(img, image.Rect(in.Min.X, in.Max.Y-1, in.Max.X, in.Max.Y), src, image.Point{}, draw.Src)
		draw.Draw(img, image.Rect(in.Min.X, in.Min.Y, in.Min.X+1, in.Max.Y), src, image.Point{}, draw.Src)
		draw.Draw(img, image.Rect(in.Max.X-1, in.Min.Y, in.Max.X, in.Max.Y), src, image.Point{}, draw.Src)
	}
}

func label(img draw.Image, x, y int, text string, c color.Color) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func safeName(query string) string {
	var b strings.Builder
	for _, r := range query {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
	}
	return truncate(b.String(), 30)
}
