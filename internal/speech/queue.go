// Package speech serializes utterances: one speaker, one utterance at a time,
// in the order they were queued.
package speech

import (
	"context"
	"errors"
	log "log/slog"
	"strings"
	"sync"
)

const DefaultLimit = 16

// Speaker plays text synchronously. Cancelling ctx should cut the current
// utterance short.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// Ducker lowers other audio while speech plays.
type Ducker interface {
	Duck(ctx context.Context) error
	Restore(ctx context.Context) error
}

type Queue struct {
	speaker Speaker
	ducker  Ducker
	limit   int
	onSpeak func(string)

	mu      sync.Mutex
	pending []string
	cancel  context.CancelFunc
	wake    chan struct{}
}

func NewQueue(s Speaker, limit int) *Queue {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Queue{
		speaker: s,
		limit:   limit,
		onSpeak: func(string) {},
		wake:    make(chan struct{}, 1),
	}
}

func (q *Queue) SetDucker(d Ducker) { q.ducker = d }

// OnSpeak is called with each utterance right before it plays.
func (q *Queue) OnSpeak(f func(string)) {
	if f == nil {
		f = func(string) {}
	}
	q.onSpeak = f
}

// Say queues text. It reports false when text is blank or the queue is full.
func (q *Queue) Say(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}

	q.mu.Lock()
	if len(q.pending) >= q.limit {
		q.mu.Unlock()
		log.Warn("Speech queue full, dropping", "text", text)
		return false
	}
	q.pending = append(q.pending, text)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return true
}

// Interrupt drops everything queued and cuts the current utterance. It
// returns the number of dropped utterances.
func (q *Queue) Interrupt() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := len(q.pending)
	q.pending = nil
	if q.cancel != nil {
		q.cancel()
	}
	return n
}

func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Run drains the queue until ctx is done.
func (q *Queue) Run(ctx context.Context) error {
	for {
		text, uctx, ok := q.next(ctx)
		if !ok {
			select {
			case <-ctx.Done():
				return nil
			case <-q.wake:
				continue
			}
		}
		q.play(uctx, text)
	}
}

func (q *Queue) next(ctx context.Context) (string, context.Context, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.pending) == 0 || ctx.Err() != nil {
		return "", nil, false
	}
	text := q.pending[0]
	q.pending = q.pending[1:]

	uctx, cancel := context.WithCancel(ctx)
	q.cancel = cancel
	return text, uctx, true
}

func (q *Queue) play(ctx context.Context, text string) {
	defer func() {
		q.mu.Lock()
		if q.cancel != nil {
			q.cancel()
			q.cancel = nil
		}
		q.mu.Unlock()
	}()

	q.onSpeak(text)

	if q.ducker != nil {
		if err := q.ducker.Duck(ctx); err != nil {
			log.Warn("Failed to duck audio", "err", err)
		}
		defer func() {
			if err := q.ducker.Restore(context.WithoutCancel(ctx)); err != nil {
				log.Warn("Failed to restore audio", "err", err)
			}
		}()
	}

	log.Debug("Speaking", "text", text)
	err := q.speaker.Speak(ctx, text)
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		log.Debug("Speech interrupted", "text", text)
	default:
		log.Error("Failed to voice out", "err", err)
	}
}
