package wake

import (
	"context"
	"errors"
	"io"
	log "log/slog"
	"strings"
	"sync/atomic"
	"time"
)

var (
	// ErrNoSpeech means nothing was said before the listen timeout.
	ErrNoSpeech = errors.New("no speech before timeout")
	// ErrUnintelligible means audio was captured but produced no text.
	ErrUnintelligible = errors.New("speech not understood")
)

type ListenOptions struct {
	Timeout     time.Duration // wait for speech to start
	PhraseLimit time.Duration // cap on one utterance
	Calibration time.Duration // ambient noise sampling before listening
}

// Recognizer captures one utterance and returns its text. Misses are reported
// as ErrNoSpeech or ErrUnintelligible, io.EOF ends the input.
type Recognizer interface {
	Listen(ctx context.Context, opt ListenOptions) (string, error)
}

// Handler receives the listener's decisions. Dispatch must not block.
type Handler interface {
	Woke(phrase string)
	Acknowledge()
	Dispatch(command string)
}

type Config struct {
	Timeout  time.Duration
	Passive  ListenOptions
	FollowUp ListenOptions
	Backoff  time.Duration
}

func DefaultConfig() Config {
	return Config{
		Timeout: DefaultTimeout,
		Passive: ListenOptions{
			Timeout:     time.Second,
			PhraseLimit: 5 * time.Second,
			Calibration: 200 * time.Millisecond,
		},
		FollowUp: ListenOptions{
			Timeout:     5 * time.Second,
			PhraseLimit: 10 * time.Second,
			Calibration: 300 * time.Millisecond,
		},
		Backoff: 200 * time.Millisecond,
	}
}

type Listener struct {
	rec     Recognizer
	handler Handler
	cfg     Config
	conv    *Conversation
	now     func() time.Time
	mode    atomic.Int32 // mirror of conv.Mode for other goroutines
}

func NewListener(rec Recognizer, h Handler, cfg Config) *Listener {
	return &Listener{
		rec:     rec,
		handler: h,
		cfg:     cfg,
		conv:    NewConversation(cfg.Timeout),
		now:     time.Now,
	}
}

// SetClock replaces the time source used for the conversation window.
func (l *Listener) SetClock(now func() time.Time) { l.now = now }

func (l *Listener) Mode() Mode { return Mode(l.mode.Load()) }

// Run listens until ctx is cancelled or the recognizer runs out of input.
func (l *Listener) Run(ctx context.Context) error {
	log.Info("Listening for wake phrases", "phrases", Canonicals())
	defer log.Info("Wake listener stopped")

	for ctx.Err() == nil {
		text, err := l.rec.Listen(ctx, l.cfg.Passive)
		switch {
		case err == nil:
			l.Hear(ctx, text)
		case errors.Is(err, ErrNoSpeech), errors.Is(err, ErrUnintelligible):
		case errors.Is(err, io.EOF):
			return nil
		case ctx.Err() != nil:
			return nil
		default:
			log.Warn("Recognition failed", "err", err)
			select {
			case <-ctx.Done():
			case <-time.After(l.cfg.Backoff):
			}
		}
	}
	return nil
}

// Hear classifies one recognized utterance.
func (l *Listener) Hear(ctx context.Context, text string) {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return
	}
	log.Debug("Heard", "text", text, "mode", l.conv.Mode())
	defer func() { l.mode.Store(int32(l.conv.Mode())) }()

	phrase, command := Match(text)
	if phrase != "" {
		l.conv.Wake(l.now())
		log.Info("Wake phrase detected", "phrase", phrase, "command", command)
		l.handler.Woke(phrase)

		if command != "" {
			l.handler.Dispatch(command)
			return
		}

		l.handler.Acknowledge()
		follow, err := l.rec.Listen(ctx, l.cfg.FollowUp)
		if err != nil {
			log.Debug("No follow-up command", "err", err)
			return
		}
		if follow = strings.TrimSpace(follow); follow != "" {
			l.handler.Dispatch(follow)
		}
		return
	}

	if l.conv.Mode() != Active {
		return
	}
	if l.conv.Continue(l.now()) {
		log.Info("Continuing conversation", "text", text)
		l.handler.Dispatch(text)
		return
	}
	log.Info("Conversation timed out, wake phrase required")
}
