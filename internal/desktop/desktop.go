// Package desktop drives the local session through robotgo: keyboard and
// mouse input, window queries and screen capture.
package desktop

import (
	"fmt"
	"image"
	log "log/slog"
	"slices"
	"strings"

	"github.com/go-vgo/robotgo"
)

// KnownApps are the process names reported as running apps.
var KnownApps = []string{
	"firefox", "chrome", "discord", "spotify", "vscode", "code",
	"excel", "word", "notepad", "explorer", "steam", "edge",
}

const (
	maxRunning  = 10
	scrollTicks = 10
)

type Desktop struct {
	known []string
}

func New() *Desktop {
	return &Desktop{known: KnownApps}
}

func (d *Desktop) ClickAt(x, y int) error {
	robotgo.Move(x, y)
	robotgo.MilliSleep(100)
	robotgo.Click("left")
	return nil
}

func (d *Desktop) Click() error {
	robotgo.Click("left")
	return nil
}

func (d *Desktop) Press(key string, modifiers ...string) error {
	args := make([]any, len(modifiers))
	for i, m := range modifiers {
		args[i] = m
	}
	if err := robotgo.KeyTap(key, args...); err != nil {
		return fmt.Errorf("key %s%v: %w", key, modifiers, err)
	}
	return nil
}

func (d *Desktop) Type(text string) error {
	robotgo.TypeStr(text)
	return nil
}

func (d *Desktop) Scroll(up bool) error {
	dir := "down"
	if up {
		dir = "up"
	}
	robotgo.ScrollDir(scrollTicks, dir)
	return nil
}

func (d *Desktop) ActiveTitle() string {
	return robotgo.GetTitle()
}

// Running lists known apps with a live process, at most ten.
func (d *Desktop) Running() []string {
	procs, err := robotgo.Process()
	if err != nil {
		log.Debug("Process list failed", "err", err)
		return nil
	}
	var apps []string
	for _, p := range procs {
		name := strings.TrimSuffix(strings.ToLower(p.Name), ".exe")
		if slices.Contains(apps, name) || !d.isKnown(name) {
			continue
		}
		apps = append(apps, name)
		if len(apps) == maxRunning {
			break
		}
	}
	return apps
}

func (d *Desktop) isKnown(name string) bool {
	for _, k := range d.known {
		if strings.Contains(name, k) {
			return true
		}
	}
	return false
}

// Focus raises the first process whose name matches app.
func (d *Desktop) Focus(app string) bool {
	pids, err := robotgo.FindIds(strings.ToLower(app))
	if err != nil || len(pids) == 0 {
		return false
	}
	if err := robotgo.ActivePid(pids[0]); err != nil {
		log.Debug("Focus failed", "app", app, "err", err)
		return false
	}
	return true
}

func (d *Desktop) Capture() (image.Image, error) {
	img, err := robotgo.CaptureImg()
	if err != nil {
		return nil, fmt.Errorf("capture screen: %w", err)
	}
	return img, nil
}

// WindowRect returns a finder for the bounds of the process named name.
// The locator uses it to keep the assistant's own window out of captures.
func (d *Desktop) WindowRect(name string) func() (image.Rectangle, bool) {
	return func() (image.Rectangle, bool) {
		pids, err := robotgo.FindIds(strings.ToLower(name))
		if err != nil || len(pids) == 0 {
			return image.Rectangle{}, false
		}
		x, y, w, h := robotgo.GetBounds(pids[0])
		if w <= 0 || h <= 0 {
			return image.Rectangle{}, false
		}
		return image.Rect(x, y, x+w, y+h), true
	}
}
