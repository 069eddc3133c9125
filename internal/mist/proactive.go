package mist

import (
	"context"
	log "log/slog"
	"time"

	"mist/internal/action"
	"mist/internal/screen"
)

type Suggester interface {
	Suggest(ctx context.Context, screenText, window string) (string, error)
}

type ProactiveConfig struct {
	Interval time.Duration
	Cooldown time.Duration
}

func DefaultProactiveConfig() ProactiveConfig {
	return ProactiveConfig{Interval: 5 * time.Second, Cooldown: 45 * time.Second}
}

// Proactive watches the screen and offers at most one suggestion per
// cooldown. Repeats of the previous suggestion are dropped.
type Proactive struct {
	suggester Suggester
	finder    screen.Finder
	windows   action.Windows
	cfg       ProactiveConfig
	deliver   func(string)
	now       func() time.Time

	lastAt   time.Time
	lastText string
}

func NewProactive(s Suggester, f screen.Finder, w action.Windows, cfg ProactiveConfig, deliver func(string)) *Proactive {
	def := DefaultProactiveConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = def.Cooldown
	}
	return &Proactive{
		suggester: s,
		finder:    f,
		windows:   w,
		cfg:       cfg,
		deliver:   deliver,
		now:       time.Now,
	}
}

func (p *Proactive) Run(ctx context.Context) error {
	log.Info("Proactive monitoring started", "interval", p.cfg.Interval)
	defer log.Info("Proactive monitoring stopped")

	t := time.NewTicker(p.cfg.Interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			p.Check(ctx)
		}
	}
}

// Check runs one observation and reports whether a suggestion was delivered.
func (p *Proactive) Check(ctx context.Context) bool {
	now := p.now()
	if !p.lastAt.IsZero() && now.Sub(p.lastAt) < p.cfg.Cooldown {
		return false
	}

	text := p.finder.ScreenText(ctx)
	window := p.windows.ActiveTitle()

	s, err := p.suggester.Suggest(ctx, text, window)
	if err != nil {
		log.Debug("Suggestion failed", "err", err)
		return false
	}
	if s == "" || s == p.lastText {
		return false
	}

	p.lastAt = now
	p.lastText = s
	log.Info("Suggestion", "text", s)
	p.deliver(s)
	return true
}
