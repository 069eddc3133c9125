package mist

import (
	"context"
	"errors"
	log "log/slog"
	"strings"

	"mist/internal/inference"
	"mist/internal/memory"
	"mist/internal/wake"
)

type loop struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func (a *Agent) spawn(name string, run func(context.Context) error) *loop {
	ctx, cancel := context.WithCancel(a.ctx)
	l := &loop{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(l.done)
		if err := run(ctx); err != nil {
			log.Error("Loop exited", "loop", name, "err", err)
		}
	}()
	return l
}

func (l *loop) halt() {
	l.cancel()
	<-l.done
}

func (l *loop) running() bool {
	select {
	case <-l.done:
		return false
	default:
		return true
	}
}

var (
	errNoRecognizer = errors.New("no speech recognizer configured")
	errNoSuggester  = errors.New("proactive mode not configured")
)

// StartWake starts the wake phrase loop. Starting twice is a no-op.
func (a *Agent) StartWake() error {
	if a.listener == nil {
		return errNoRecognizer
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.wakeLoop != nil && a.wakeLoop.running() {
		return nil
	}
	a.wakeLoop = a.spawn("wake", a.listener.Run)
	log.Info("Wake word detection started")
	return nil
}

func (a *Agent) StopWake() {
	a.mu.Lock()
	l := a.wakeLoop
	a.wakeLoop = nil
	a.mu.Unlock()

	if l != nil {
		l.halt()
		log.Info("Wake word detection stopped")
	}
}

func (a *Agent) StartProactive() error {
	if a.proactive == nil {
		return errNoSuggester
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.proLoop != nil && a.proLoop.running() {
		return nil
	}
	a.proLoop = a.spawn("proactive", a.proactive.Run)
	log.Info("Proactive mode enabled")
	return nil
}

func (a *Agent) StopProactive() {
	a.mu.Lock()
	l := a.proLoop
	a.proLoop = nil
	a.mu.Unlock()

	if l != nil {
		l.halt()
		log.Info("Proactive mode disabled")
	}
}

func (a *Agent) SetCaptions(enabled bool) {
	a.captions.Store(enabled)
	log.Info("Captions toggled", "enabled", enabled)
}

// Listen captures one utterance without a wake phrase and dispatches it.
// Only one direct capture runs at a time.
func (a *Agent) Listen(ctx context.Context) (string, error) {
	if a.rec == nil {
		return "", errNoRecognizer
	}
	if !a.listening.CompareAndSwap(false, true) {
		return "", ErrBusy
	}
	defer a.listening.Store(false)

	a.caption("Listening...", "system")
	text, err := a.rec.Listen(ctx, a.opt.Direct)
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", wake.ErrUnintelligible
	}
	a.Dispatch(text)
	return text, nil
}

type Status struct {
	Wake         bool             `json:"wake_word_active"`
	Mode         string           `json:"mode"`
	Proactive    bool             `json:"proactive_mode"`
	Captions     bool             `json:"captions_enabled"`
	Listening    bool             `json:"listening"`
	ActiveWindow string           `json:"active_window"`
	Memory       memory.Stats     `json:"memory"`
	API          inference.Status `json:"api"`
}

func (a *Agent) Status() Status {
	a.mu.Lock()
	wakeOn := a.wakeLoop != nil && a.wakeLoop.running()
	proOn := a.proLoop != nil && a.proLoop.running()
	a.mu.Unlock()

	s := Status{
		Wake:         wakeOn,
		Mode:         wake.Idle.String(),
		Proactive:    proOn,
		Captions:     a.captions.Load(),
		Listening:    a.listening.Load(),
		ActiveWindow: a.windows.ActiveTitle(),
		Memory:       a.memory.Stats(),
		API:          inference.Status{Online: true},
	}
	if s.ActiveWindow == "" {
		s.ActiveWindow = "Unknown"
	}
	if a.listener != nil {
		s.Mode = a.listener.Mode().String()
	}
	if a.health != nil {
		s.API = a.health.Last()
	}
	return s
}
