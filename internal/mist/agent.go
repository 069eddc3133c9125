// Package mist ties the assistant together: wake phrases in, inference,
// action execution and speech out.
package mist

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"mist/internal/action"
	"mist/internal/inference"
	"mist/internal/memory"
	"mist/internal/screen"
	"mist/internal/wake"
)

const (
	sorryTimeout   = "Sorry, that took too long."
	sorryOffline   = "Sorry, I can't connect to my brain."
	sorryGeneric   = "Sorry, I couldn't process that."
	sorryPlanAbort = "Sorry, I couldn't complete that task."
)

var ErrBusy = errors.New("already listening")

// Assistant converts a request into a command.
type Assistant interface {
	Ask(ctx context.Context, message string, s inference.Situation) (action.Command, error)
}

// Voice is the speech output.
type Voice interface {
	Say(text string) bool
	Interrupt() int
}

type Chime interface {
	Play() error
}

type Deps struct {
	Assistant  Assistant
	Executor   *action.Executor
	Windows    action.Windows
	Finder     screen.Finder
	Memory     *memory.Memory
	Voice      Voice
	Chime      Chime
	Events     Publisher
	Recognizer wake.Recognizer
	Suggester  Suggester
	Health     *StatusMonitor
}

type Options struct {
	// Honorific is "sir", "ma'am" or empty.
	Honorific string
	Captions  bool
	Listener  wake.Config
	Direct    wake.ListenOptions
	Proactive ProactiveConfig
}

type Agent struct {
	assistant Assistant
	exec      *action.Executor
	windows   action.Windows
	finder    screen.Finder
	memory    *memory.Memory
	voice     Voice
	chime     Chime
	events    Publisher
	rec       wake.Recognizer
	suggester Suggester
	health    *StatusMonitor
	opt       Options

	ctx  context.Context
	stop context.CancelFunc
	wg   sync.WaitGroup

	captions  atomic.Bool
	listening atomic.Bool

	mu        sync.Mutex
	wakeLoop  *loop
	proLoop   *loop
	listener  *wake.Listener
	proactive *Proactive
}

func NewAgent(d Deps, opt Options) *Agent {
	if d.Memory == nil {
		d.Memory = memory.New()
	}
	if d.Events == nil {
		d.Events = Discard
	}

	a := &Agent{
		assistant: d.Assistant,
		exec:      d.Executor,
		windows:   d.Windows,
		finder:    d.Finder,
		memory:    d.Memory,
		voice:     d.Voice,
		chime:     d.Chime,
		events:    d.Events,
		rec:       d.Recognizer,
		suggester: d.Suggester,
		health:    d.Health,
		opt:       opt,
	}
	a.ctx, a.stop = context.WithCancel(context.Background())
	a.captions.Store(opt.Captions)

	a.exec.OnCaption(func(text string) { a.caption(text, "assistant") })
	if a.rec != nil {
		a.listener = wake.NewListener(a.rec, a, opt.Listener)
	}
	if a.suggester != nil {
		a.proactive = NewProactive(a.suggester, a.finder, a.windows, opt.Proactive, func(s string) {
			a.caption(s, "suggestion")
			a.events.Publish(Message{Kind: KindSuggestion, Content: s})
		})
	}
	return a
}

// Handle runs one request to completion: inference, execution, then speech.
// It blocks until the action finishes; Dispatch is the non-blocking form.
func (a *Agent) Handle(ctx context.Context, text string) (action.Result, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return action.Result{}, errors.New("empty request")
	}
	log.Info("Handling request", "text", text)

	cmd, err := a.assistant.Ask(ctx, text, a.situation(ctx))
	if err != nil {
		log.Error("Inference failed", "text", text, "err", err)
		a.voice.Say(apology(err))
		return action.Result{}, fmt.Errorf("ask: %w", err)
	}
	log.Info("Command", "command", cmd.String(), "speech", cmd.Speech)

	a.memory.AddTurn("user", text)
	a.memory.AddTurn("assistant", cmd.Speech)

	res := a.exec.Run(context.WithoutCancel(ctx), cmd)
	log.Info("Command finished", "command", cmd.String(), "state", res.State)

	// Speech follows the action. A failed plan only apologizes.
	switch {
	case cmd.Speech == "":
	case cmd.Action == action.MultiStep && !res.Succeeded():
		a.voice.Say(sorryPlanAbort)
	default:
		a.voice.Say(cmd.Speech)
	}

	a.events.Publish(Message{Kind: KindCommand, Content: text, Detail: cmd.Speech})
	return res, nil
}

// Dispatch hands text to Handle in the background.
func (a *Agent) Dispatch(text string) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				log.Error("Request panicked", "text", text, "panic", r)
				a.voice.Say("Sorry, something went wrong.")
			}
		}()
		_, _ = a.Handle(a.ctx, text)
	}()
	log.Debug("Request queued", "text", text)
}

// Woke implements wake.Handler.
func (a *Agent) Woke(phrase string) {
	a.events.Publish(Message{Kind: KindWake, Content: phrase})
}

// Acknowledge implements wake.Handler: cut any speech short, chime, greet.
func (a *Agent) Acknowledge() {
	a.voice.Interrupt()
	if a.chime != nil {
		if err := a.chime.Play(); err != nil {
			log.Warn("Failed to play chime", "err", err)
		}
	}
	a.voice.Say(greeting(a.opt.Honorific))
}

// Close stops every loop and waits for in-flight requests.
func (a *Agent) Close() {
	a.StopWake()
	a.StopProactive()
	a.stop()
	a.wg.Wait()
}

func (a *Agent) situation(ctx context.Context) inference.Situation {
	running := a.windows.Running()
	a.memory.SyncApps(running)

	s := inference.Situation{
		ActiveWindow: a.windows.ActiveTitle(),
		Running:      running,
		ScreenText:   a.finder.ScreenText(ctx),
	}
	for _, b := range a.finder.Buttons(ctx) {
		s.Buttons = append(s.Buttons, b.Text)
	}
	s.Memory = a.memory.Snapshot()
	return s
}

func (a *Agent) caption(text, role string) {
	if !a.captions.Load() {
		return
	}
	a.events.Publish(Message{Kind: KindCaption, Content: text, Detail: role})
}

func greeting(honorific string) string {
	switch strings.ToLower(strings.TrimSpace(honorific)) {
	case "sir", "male":
		return "Yes, sir?"
	case "ma'am", "maam", "female":
		return "Yes, ma'am?"
	}
	return "Yes?"
}

func apology(err error) string {
	switch {
	case errors.Is(err, inference.ErrTimeout):
		return sorryTimeout
	case errors.Is(err, inference.ErrUnavailable):
		return sorryOffline
	}
	return sorryGeneric
}
