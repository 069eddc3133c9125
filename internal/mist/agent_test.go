package mist

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mist/internal/action"
	"mist/internal/inference"
	"mist/internal/memory"
	"mist/internal/screen"
	"mist/internal/wake"
)

type fakeAssistant struct {
	mu      sync.Mutex
	reply   action.Command
	err     error
	asked   []string
	seenCtx []inference.Situation
}

func (f *fakeAssistant) Ask(_ context.Context, msg string, s inference.Situation) (action.Command, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.asked = append(f.asked, msg)
	f.seenCtx = append(f.seenCtx, s)
	return f.reply, f.err
}

type fakeVoice struct {
	mu         sync.Mutex
	said       []string
	interrupts int
	log        *[]string
}

func (v *fakeVoice) Say(text string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.said = append(v.said, text)
	if v.log != nil {
		*v.log = append(*v.log, "say "+text)
	}
	return true
}

func (v *fakeVoice) Interrupt() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.interrupts++
	if v.log != nil {
		*v.log = append(*v.log, "interrupt")
	}
	return 0
}

func (v *fakeVoice) Said() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]string(nil), v.said...)
}

type fakeChime struct{ log *[]string }

func (c fakeChime) Play() error {
	*c.log = append(*c.log, "chime")
	return errors.New("no audio device")
}

type fakeWindows struct {
	mu      sync.Mutex
	title   string
	running []string
}

func (w *fakeWindows) ActiveTitle() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.title
}

func (w *fakeWindows) setTitle(t string) {
	w.mu.Lock()
	w.title = t
	w.mu.Unlock()
}

func (w *fakeWindows) Running() []string { return w.running }
func (w *fakeWindows) Focus(string) bool { return false }

// launcher brings the typed app to the front when enter is pressed.
type launcher struct {
	w     *fakeWindows
	mu    sync.Mutex
	typed string
	calls []string
}

func (l *launcher) record(c string) {
	l.mu.Lock()
	l.calls = append(l.calls, c)
	l.mu.Unlock()
}

func (l *launcher) ClickAt(x, y int) error { l.record(fmt.Sprintf("clickat %d,%d", x, y)); return nil }
func (l *launcher) Click() error           { l.record("click"); return nil }
func (l *launcher) Scroll(bool) error      { l.record("scroll"); return nil }

func (l *launcher) Type(text string) error {
	l.mu.Lock()
	l.typed = text
	l.mu.Unlock()
	l.record("type " + text)
	return nil
}

func (l *launcher) Press(key string, mods ...string) error {
	l.record("press " + key)
	if key == action.KeyEnter {
		l.mu.Lock()
		typed := l.typed
		l.mu.Unlock()
		l.w.setTitle(typed + " - Home")
	}
	return nil
}

type fakeFinder struct {
	text    string
	buttons []screen.Element
}

func (f *fakeFinder) Locate(context.Context, string) (screen.Element, bool) {
	return screen.Element{}, false
}
func (f *fakeFinder) Buttons(context.Context) []screen.Element { return f.buttons }
func (f *fakeFinder) ScreenText(context.Context) string        { return f.text }

type recordingBus struct {
	mu   sync.Mutex
	msgs []Message
}

func (b *recordingBus) Publish(m Message) {
	b.mu.Lock()
	b.msgs = append(b.msgs, m)
	b.mu.Unlock()
}

func (b *recordingBus) kinds(kind string) []Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []Message
	for _, m := range b.msgs {
		if m.Kind == kind {
			out = append(out, m)
		}
	}
	return out
}

type scriptRecognizer struct {
	mu     sync.Mutex
	script []string
	errs   []error
}

func (s *scriptRecognizer) Listen(ctx context.Context, _ wake.ListenOptions) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.script) == 0 {
		return "", io.EOF
	}
	text := s.script[0]
	s.script = s.script[1:]
	var err error
	if len(s.errs) > 0 {
		err, s.errs = s.errs[0], s.errs[1:]
	}
	return text, err
}

type fixture struct {
	agent     *Agent
	assistant *fakeAssistant
	voice     *fakeVoice
	windows   *fakeWindows
	input     *launcher
	bus       *recordingBus
	mem       *memory.Memory
}

func newFixture(t *testing.T, rec wake.Recognizer, opt Options) *fixture {
	t.Helper()
	f := &fixture{
		assistant: &fakeAssistant{},
		voice:     &fakeVoice{},
		windows:   &fakeWindows{title: "Desktop"},
		bus:       &recordingBus{},
		mem:       memory.New(),
	}
	f.input = &launcher{w: f.windows}

	finder := &fakeFinder{text: "Recent files", buttons: []screen.Element{{Text: "Open"}}}
	policy := action.DefaultPolicy()
	policy.Timing = action.Timing{}
	exec := action.NewExecutor(action.Deps{
		Input:   f.input,
		Windows: f.windows,
		Finder:  finder,
		Memory:  f.mem,
	}, policy)

	if opt.Listener == (wake.Config{}) {
		opt.Listener = wake.DefaultConfig()
		opt.Listener.Backoff = time.Millisecond
	}
	f.agent = NewAgent(Deps{
		Assistant:  f.assistant,
		Executor:   exec,
		Windows:    f.windows,
		Finder:     finder,
		Memory:     f.mem,
		Voice:      f.voice,
		Events:     f.bus,
		Recognizer: rec,
	}, opt)
	t.Cleanup(f.agent.Close)
	return f
}

func TestWakeToVerifiedOpen(t *testing.T) {
	rec := &scriptRecognizer{script: []string{"Hey missed, open Discord"}}
	f := newFixture(t, rec, Options{Captions: true})
	f.assistant.reply = action.Command{Action: action.OpenApp, Parameter: "discord", Speech: "Opening Discord"}

	require.NoError(t, f.agent.StartWake())
	require.Eventually(t, func() bool { return !f.agent.Status().Wake }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return len(f.bus.kinds(KindCommand)) == 1 }, time.Second, 5*time.Millisecond)

	assert.Equal(t, []string{"open discord"}, f.assistant.asked)
	assert.Equal(t, []string{"Opening Discord"}, f.voice.Said())
	assert.Contains(t, f.windows.ActiveTitle(), "discord")

	snap := f.mem.Snapshot()
	assert.Equal(t, "opened discord", snap.LastAction)
	require.Len(t, snap.History, 2)
	assert.Equal(t, memory.Entry{Role: "user", Message: "open discord", Timestamp: snap.History[0].Timestamp}, snap.History[0])
	assert.Equal(t, "Opening Discord", snap.History[1].Message)

	wakes := f.bus.kinds(KindWake)
	require.Len(t, wakes, 1)
	assert.Equal(t, "hey mist", wakes[0].Content)

	var captions []string
	for _, m := range f.bus.kinds(KindCaption) {
		captions = append(captions, m.Content)
	}
	assert.Contains(t, captions, "Opening discord...")
	assert.Contains(t, captions, "discord opened")
}

func TestHandleSituation(t *testing.T) {
	f := newFixture(t, nil, Options{})
	f.windows.running = []string{"Firefox", "Slack"}
	f.assistant.reply = action.Say("Hi there")

	res, err := f.agent.Handle(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, action.VerifiedSuccess, res.State)

	require.Len(t, f.assistant.seenCtx, 1)
	s := f.assistant.seenCtx[0]
	assert.Equal(t, "Desktop", s.ActiveWindow)
	assert.Equal(t, "Recent files", s.ScreenText)
	assert.Equal(t, []string{"Open"}, s.Buttons)
	assert.Equal(t, []string{"firefox", "slack"}, s.Memory.Apps)
}

func TestHandleApologies(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("assistant request: %w", inference.ErrTimeout), sorryTimeout},
		{fmt.Errorf("assistant request: %w", inference.ErrUnavailable), sorryOffline},
		{inference.ErrBadResponse, sorryGeneric},
	}
	for _, tc := range cases {
		f := newFixture(t, nil, Options{})
		f.assistant.err = tc.err

		_, err := f.agent.Handle(context.Background(), "open discord")
		assert.ErrorIs(t, err, tc.err)
		assert.Equal(t, []string{tc.want}, f.voice.Said())
		assert.Empty(t, f.mem.Snapshot().History)
	}
}

func TestHandleFailedPlanApologizes(t *testing.T) {
	f := newFixture(t, nil, Options{})
	f.assistant.reply = action.Plan("Sending it now",
		action.Command{Action: action.ClickOnText, Parameter: "Send"},
		action.Command{Action: action.TypeSearch, Parameter: "hi"},
	)

	res, err := f.agent.Handle(context.Background(), "send hi")
	require.NoError(t, err)
	assert.Equal(t, action.Failed, res.State)
	assert.Equal(t, []string{sorryPlanAbort}, f.voice.Said())
	assert.NotContains(t, f.voice.Said(), "Sending it now")
}

func TestHandleSpeaksAfterAction(t *testing.T) {
	var events []string
	f := newFixture(t, nil, Options{})
	f.voice.log = &events
	f.agent.exec.OnCaption(func(text string) { events = append(events, "caption "+text) })
	f.assistant.reply = action.Command{Action: action.Maximize, Speech: "Maximized"}

	res, err := f.agent.Handle(context.Background(), "maximize this")
	require.NoError(t, err)
	assert.True(t, res.Succeeded())
	assert.Equal(t, []string{"caption Maximizing window...", "say Maximized"}, events)
}

func TestAcknowledge(t *testing.T) {
	cases := map[string]string{"sir": "Yes, sir?", "ma'am": "Yes, ma'am?", "": "Yes?"}
	for honorific, want := range cases {
		var events []string
		f := newFixture(t, nil, Options{Honorific: honorific})
		f.voice.log = &events
		f.agent.chime = fakeChime{log: &events}

		f.agent.Acknowledge()
		assert.Equal(t, []string{"interrupt", "chime", "say " + want}, events)
	}
}

func TestListenOnce(t *testing.T) {
	rec := &scriptRecognizer{script: []string{"  open notes  "}}
	f := newFixture(t, rec, Options{})
	f.assistant.reply = action.Say("Sure")

	text, err := f.agent.Listen(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "open notes", text)
	require.Eventually(t, func() bool { return len(f.voice.Said()) == 1 }, time.Second, 5*time.Millisecond)

	_, err = f.agent.Listen(context.Background())
	assert.ErrorIs(t, err, io.EOF)

	f.agent.listening.Store(true)
	_, err = f.agent.Listen(context.Background())
	assert.ErrorIs(t, err, ErrBusy)
}

func TestToggles(t *testing.T) {
	f := newFixture(t, nil, Options{})
	assert.Error(t, f.agent.StartWake())
	assert.Error(t, f.agent.StartProactive())

	f.agent.SetCaptions(false)
	f.agent.caption("hidden", "system")
	assert.Empty(t, f.bus.kinds(KindCaption))

	f.agent.SetCaptions(true)
	f.agent.caption("shown", "system")
	assert.Len(t, f.bus.kinds(KindCaption), 1)

	st := f.agent.Status()
	assert.False(t, st.Wake)
	assert.True(t, st.Captions)
	assert.Equal(t, "idle", st.Mode)
	assert.Equal(t, "Desktop", st.ActiveWindow)
	assert.True(t, st.API.Online)
}
