package speech

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSpeaker struct {
	mu     sync.Mutex
	spoken []string
	// block holds each utterance until released or cancelled
	block   chan struct{}
	started chan string
}

func (r *recordingSpeaker) Speak(ctx context.Context, text string) error {
	if r.started != nil {
		r.started <- text
	}
	if r.block != nil {
		select {
		case <-r.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	r.mu.Lock()
	r.spoken = append(r.spoken, text)
	r.mu.Unlock()
	return nil
}

func (r *recordingSpeaker) Spoken() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.spoken...)
}

type countingDucker struct {
	mu             sync.Mutex
	ducks, restore int
}

func (d *countingDucker) Duck(context.Context) error {
	d.mu.Lock()
	d.ducks++
	d.mu.Unlock()
	return nil
}

func (d *countingDucker) Restore(context.Context) error {
	d.mu.Lock()
	d.restore++
	d.mu.Unlock()
	return nil
}

func runQueue(t *testing.T, q *Queue) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		assert.NoError(t, q.Run(ctx))
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func TestQueueOrder(t *testing.T) {
	sp := &recordingSpeaker{}
	q := NewQueue(sp, 0)
	d := &countingDucker{}
	q.SetDucker(d)

	var mu sync.Mutex
	var captions []string
	q.OnSpeak(func(s string) {
		mu.Lock()
		captions = append(captions, s)
		mu.Unlock()
	})

	assert.True(t, q.Say("one"))
	assert.True(t, q.Say("two"))
	assert.False(t, q.Say("   "))
	runQueue(t, q)
	assert.True(t, q.Say("three"))

	require.Eventually(t, func() bool { return len(sp.Spoken()) == 3 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"one", "two", "three"}, sp.Spoken())

	mu.Lock()
	assert.Equal(t, []string{"one", "two", "three"}, captions)
	mu.Unlock()

	d.mu.Lock()
	assert.Equal(t, 3, d.ducks)
	assert.Equal(t, 3, d.restore)
	d.mu.Unlock()
}

func TestQueueLimit(t *testing.T) {
	q := NewQueue(&recordingSpeaker{}, 2)
	assert.True(t, q.Say("a"))
	assert.True(t, q.Say("b"))
	assert.False(t, q.Say("c"))
	assert.Equal(t, 2, q.Pending())
}

func TestQueueInterrupt(t *testing.T) {
	sp := &recordingSpeaker{block: make(chan struct{}), started: make(chan string, 4)}
	q := NewQueue(sp, 0)
	runQueue(t, q)

	q.Say("long answer")
	q.Say("queued one")
	q.Say("queued two")

	require.Equal(t, "long answer", <-sp.started)
	assert.Equal(t, 2, q.Interrupt())

	q.Say("Yes?")
	require.Equal(t, "Yes?", <-sp.started)
	close(sp.block)

	require.Eventually(t, func() bool { return len(sp.Spoken()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"Yes?"}, sp.Spoken())
	assert.Zero(t, q.Pending())
}
