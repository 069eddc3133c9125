package mist

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mist/internal/inference"
)

type scriptSuggester struct {
	replies []string
	err     error
	calls   int
	seen    []string
}

func (s *scriptSuggester) Suggest(_ context.Context, text, window string) (string, error) {
	s.calls++
	s.seen = append(s.seen, window+"|"+text)
	if s.err != nil {
		return "", s.err
	}
	if len(s.replies) == 0 {
		return "", nil
	}
	r := s.replies[0]
	s.replies = s.replies[1:]
	return r, nil
}

func TestProactiveCooldownAndDuplicates(t *testing.T) {
	sug := &scriptSuggester{replies: []string{"Save your work?", "Save your work?", "Close the tab?"}}
	var delivered []string
	p := NewProactive(sug, &fakeFinder{text: "draft"}, &fakeWindows{title: "Editor"}, ProactiveConfig{}, func(s string) {
		delivered = append(delivered, s)
	})
	t0 := time.Unix(5000, 0)
	now := t0
	p.now = func() time.Time { return now }

	assert.True(t, p.Check(context.Background()))
	assert.Equal(t, []string{"Editor|draft"}, sug.seen)

	now = t0.Add(30 * time.Second)
	assert.False(t, p.Check(context.Background()))
	assert.Equal(t, 1, sug.calls, "cooldown skips the request")

	now = t0.Add(45 * time.Second)
	assert.False(t, p.Check(context.Background()), "repeat is dropped")

	now = t0.Add(46 * time.Second)
	assert.True(t, p.Check(context.Background()))
	assert.Equal(t, []string{"Save your work?", "Close the tab?"}, delivered)

	now = t0.Add(200 * time.Second)
	assert.False(t, p.Check(context.Background()), "empty suggestion")

	sug.err = errors.New("offline")
	now = t0.Add(300 * time.Second)
	assert.False(t, p.Check(context.Background()))
}

func TestAgentProactiveLoop(t *testing.T) {
	f := newFixture(t, nil, Options{Captions: true})
	sug := &lockedSuggester{reply: "Open your calendar?"}
	f.agent.suggester = sug
	f.agent.proactive = NewProactive(sug, &fakeFinder{}, f.windows, ProactiveConfig{Interval: time.Millisecond}, func(s string) {
		f.agent.events.Publish(Message{Kind: KindSuggestion, Content: s})
	})

	require.NoError(t, f.agent.StartProactive())
	require.NoError(t, f.agent.StartProactive())
	assert.True(t, f.agent.Status().Proactive)

	require.Eventually(t, func() bool { return len(f.bus.kinds(KindSuggestion)) == 1 }, time.Second, time.Millisecond)
	f.agent.StopProactive()
	assert.False(t, f.agent.Status().Proactive)
	assert.Len(t, f.bus.kinds(KindSuggestion), 1)
}

type lockedSuggester struct {
	mu    sync.Mutex
	reply string
}

func (l *lockedSuggester) Suggest(context.Context, string, string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.reply, nil
}

type flakyChecker struct {
	mu      sync.Mutex
	answers []inference.Status
}

func (c *flakyChecker) Status(context.Context) inference.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.answers[0]
	if len(c.answers) > 1 {
		c.answers = c.answers[1:]
	}
	return s
}

func TestStatusMonitorPublishesChanges(t *testing.T) {
	bus := &recordingBus{}
	checker := &flakyChecker{answers: []inference.Status{
		{Online: true},
		{Online: true},
		{Reason: "Connection error"},
		{Online: true},
	}}
	m, err := NewStatusMonitor(checker, "@every 1h", bus)
	require.NoError(t, err)
	assert.True(t, m.Last().Online)

	for range 4 {
		m.Poll(context.Background())
	}

	events := bus.kinds(KindStatus)
	require.Len(t, events, 3)
	assert.Equal(t, "online", events[0].Content)
	assert.Equal(t, Message{Kind: KindStatus, Content: "offline", Detail: "Connection error"}, events[1])
	assert.Equal(t, "online", events[2].Content)
	assert.True(t, m.Last().Online)
}

func TestStatusMonitorSchedule(t *testing.T) {
	_, err := NewStatusMonitor(&flakyChecker{}, "every so often", nil)
	assert.Error(t, err)

	checker := &flakyChecker{answers: []inference.Status{{Online: false, Reason: "maintenance"}}}
	m, err := NewStatusMonitor(checker, "@every 1h", nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		assert.NoError(t, m.Run(ctx))
	}()
	require.Eventually(t, func() bool { return m.Last().Reason == "maintenance" }, time.Second, time.Millisecond)
	cancel()
	<-done
}
