package action

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"mist/internal/memory"
	"mist/internal/screen"
)

// Input simulates the keyboard and mouse.
type Input interface {
	ClickAt(x, y int) error
	Click() error
	Press(key string, modifiers ...string) error
	Type(text string) error
	Scroll(up bool) error
}

// Windows inspects and focuses desktop windows.
type Windows interface {
	ActiveTitle() string
	Running() []string
	Focus(app string) bool
}

// Failure describes a click_on_text that found nothing.
type Failure struct {
	Action     Kind
	Parameter  string
	ScreenText string
	Buttons    []string
}

// Advisor suggests one recovery step for a failed action.
type Advisor interface {
	Recover(ctx context.Context, f Failure) (Command, error)
}

var errEmptyParameter = errors.New("empty parameter")

type Deps struct {
	Input   Input
	Windows Windows
	Finder  screen.Finder
	Advisor Advisor
	Memory  *memory.Memory
}

type Executor struct {
	input   Input
	windows Windows
	finder  screen.Finder
	advisor Advisor
	memory  *memory.Memory
	policy  Policy
	caption func(string)
	sleep   func(time.Duration)
}

func NewExecutor(d Deps, p Policy) *Executor {
	mem := d.Memory
	if mem == nil {
		mem = memory.New()
	}
	return &Executor{
		input:   d.Input,
		windows: d.Windows,
		finder:  d.Finder,
		advisor: d.Advisor,
		memory:  mem,
		policy:  p,
		caption: func(string) {},
		sleep:   time.Sleep,
	}
}

// OnCaption sets the sink for progress captions.
func (e *Executor) OnCaption(f func(string)) {
	if f == nil {
		f = func(string) {}
	}
	e.caption = f
}

// Go runs cmd on its own goroutine and returns immediately. The plan is not
// cancelled with ctx once started; the channel receives the result.
func (e *Executor) Go(ctx context.Context, cmd Command) <-chan Result {
	ch := make(chan Result, 1)
	ctx = context.WithoutCancel(ctx)
	go func() {
		defer close(ch)
		ch <- e.Run(ctx, cmd)
	}()
	return ch
}

// Run executes cmd and blocks until it reaches a terminal state.
func (e *Executor) Run(ctx context.Context, cmd Command) Result {
	if cmd.Action == MultiStep {
		return e.runPlan(ctx, cmd)
	}
	if cmd.Action != None {
		e.caption(Caption(cmd))
	}
	return e.runStep(ctx, cmd)
}

func (e *Executor) runPlan(ctx context.Context, cmd Command) Result {
	res := Result{ID: uuid.NewString(), Action: MultiStep, State: Pending}
	e.transition(&res, Running)
	e.caption(Caption(cmd))

	verified := len(cmd.Steps) > 0
	for i, step := range cmd.Steps {
		log.Info("Plan step", "id", res.ID, "step", i+1, "of", len(cmd.Steps), "action", step.String())
		e.caption(fmt.Sprintf("Step %d/%d: %s", i+1, len(cmd.Steps), Caption(step)))

		var r Result
		if step.Action == MultiStep {
			r = e.runPlan(ctx, step)
		} else {
			r = e.runStep(ctx, step)
		}
		res.Steps = append(res.Steps, r)

		if !r.Succeeded() && e.policy.gates(step.Action) {
			e.caption(fmt.Sprintf("Step %d failed, stopping", i+1))
			res.Err = fmt.Errorf("step %d %s: %w", i+1, step.Action, stepError(r))
			e.transition(&res, Failed)
			return res
		}
		verified = verified && r.Verified()

		e.sleep(e.policy.Timing.settle(step.Action))
		if step.Action == OpenApp || step.Action == ClickOnText {
			e.memory.SetScreenText(e.finder.ScreenText(ctx))
		}
	}

	e.caption("Task completed!")
	if verified {
		e.transition(&res, VerifiedSuccess)
	} else {
		e.transition(&res, UnverifiedSuccess)
	}
	return res
}

func (e *Executor) runStep(ctx context.Context, cmd Command) (res Result) {
	res = Result{ID: uuid.NewString(), Action: cmd.Action, Parameter: cmd.Parameter, State: Pending}
	e.transition(&res, Running)

	defer func() {
		if r := recover(); r != nil {
			res.Err = fmt.Errorf("panic: %v", r)
			e.transition(&res, Failed)
		}
		if res.Err != nil {
			log.Error("Action failed", "id", res.ID, "action", res.Action, "err", res.Err)
			e.caption(fmt.Sprintf("Error: %s", truncate(res.Err.Error(), 50)))
		}
	}()

	var (
		state State
		err   error
	)
	switch cmd.Action {
	case None:
		state = VerifiedSuccess
	case OpenApp:
		state, err = e.openApp(cmd.Parameter)
	case ClickOnText:
		e.clickOnText(ctx, &res)
		return res
	case TypeSearch:
		state, err = e.typeSearch(cmd.Parameter)
	case PressKey:
		state, err = e.pressKey(cmd.Parameter)
	case Click:
		state, err = dispatched(e.input.Click())
		e.track(err, "clicked")
	case Scroll:
		up := strings.EqualFold(strings.TrimSpace(cmd.Parameter), "up")
		state, err = dispatched(e.input.Scroll(up))
		e.track(err, "scrolled "+direction(up))
	case Volume:
		state, err = e.volume(cmd.Parameter)
	case Maximize:
		state, err = dispatched(e.input.Press(KeyUp, KeySuper))
		e.track(err, "maximized window")
	case Fullscreen:
		state, err = dispatched(e.input.Press(KeyF11))
		e.track(err, "toggled fullscreen")
	default:
		state, err = Failed, fmt.Errorf("unknown action %q", cmd.Action)
	}

	res.Err = err
	e.transition(&res, state)
	return res
}

func (e *Executor) openApp(name string) (State, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Failed, errEmptyParameter
	}
	lower := strings.ToLower(name)
	t := e.policy.Timing

	if e.isRunning(lower) {
		e.caption(fmt.Sprintf("Focusing %s...", name))
		if e.windows.Focus(name) {
			e.memory.TrackAction("focused " + name)
			e.memory.AppOpened(name)

			e.sleep(t.FocusSettle)
			if !e.titleHas(lower) {
				log.Warn("Focused app is not the active window", "app", name)
				return UnverifiedSuccess, nil
			}
			e.caption(fmt.Sprintf("%s is ready", name))
			e.sleep(t.MaximizeDelay)
			if err := e.input.Press(KeyUp, KeySuper); err != nil {
				log.Warn("Maximize failed", "app", name, "err", err)
			}
			return VerifiedSuccess, nil
		}
		log.Debug("Focus failed, launching instead", "app", name)
	}

	if err := e.input.Press(KeySuper); err != nil {
		return Failed, fmt.Errorf("open search: %w", err)
	}
	e.sleep(t.SearchOpen)
	if err := e.input.Type(name); err != nil {
		return Failed, fmt.Errorf("type app name: %w", err)
	}
	e.sleep(t.SearchTyped)
	if err := e.input.Press(KeyEnter); err != nil {
		return Failed, fmt.Errorf("launch: %w", err)
	}
	e.sleep(t.Launch)

	e.memory.AppOpened(name)
	e.memory.TrackAction("opened " + name)

	if e.titleHas(lower) {
		e.caption(fmt.Sprintf("%s opened", name))
		return VerifiedSuccess, nil
	}
	log.Warn("App might not have opened", "app", name, "active", e.windows.ActiveTitle())
	e.caption(fmt.Sprintf("%s might not have opened", name))
	return UnverifiedSuccess, nil
}

func (e *Executor) typeSearch(text string) (State, error) {
	if text == "" {
		return Failed, errEmptyParameter
	}
	t := e.policy.Timing

	e.sleep(t.TypeLead)
	if err := e.input.Type(text); err != nil {
		return Failed, fmt.Errorf("type: %w", err)
	}
	if e.policy.pressesEnter(e.windows.ActiveTitle()) {
		e.sleep(t.EnterLead)
		if err := e.input.Press(KeyEnter); err != nil {
			return Failed, fmt.Errorf("press enter: %w", err)
		}
		e.sleep(t.EnterSettle)
	}
	e.memory.TrackAction(fmt.Sprintf("typed '%s'", text))
	return UnverifiedSuccess, nil
}

func (e *Executor) pressKey(chord string) (State, error) {
	key, mods, err := ParseKeys(chord)
	if err != nil {
		return Failed, err
	}
	state, err := dispatched(e.input.Press(key, mods...))
	e.track(err, "pressed "+chord)
	return state, err
}

func (e *Executor) volume(dir string) (State, error) {
	key, err := volumeKey(dir)
	if err != nil {
		return Failed, err
	}
	state, err := dispatched(e.input.Press(key))
	e.track(err, "volume "+strings.ToLower(dir))
	return state, err
}

func (e *Executor) isRunning(lower string) bool {
	for _, app := range e.windows.Running() {
		if strings.ToLower(app) == lower {
			return true
		}
	}
	return false
}

func (e *Executor) titleHas(lower string) bool {
	return strings.Contains(strings.ToLower(e.windows.ActiveTitle()), lower)
}

func (e *Executor) track(err error, label string) {
	if err == nil {
		e.memory.TrackAction(label)
	}
}

func (e *Executor) transition(r *Result, to State) {
	log.Debug("Action state", "id", r.ID, "action", r.Action, "from", r.State, "to", to)
	r.State = to
}

// dispatched maps an input call without independent verification to its
// state.
func dispatched(err error) (State, error) {
	if err != nil {
		return Failed, err
	}
	return UnverifiedSuccess, nil
}

func stepError(r Result) error {
	if r.Err != nil {
		return r.Err
	}
	return errors.New(r.State.String())
}

func direction(up bool) string {
	if up {
		return "up"
	}
	return "down"
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
