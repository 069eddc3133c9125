package mist

import (
	"context"
	"fmt"
	log "log/slog"
	"sync"

	"github.com/robfig/cron/v3"

	"mist/internal/inference"
)

type HealthChecker interface {
	Status(ctx context.Context) inference.Status
}

// StatusMonitor polls the inference service on a cron schedule and
// publishes a status event whenever the answer changes.
type StatusMonitor struct {
	checker HealthChecker
	events  Publisher
	cron    *cron.Cron

	mu   sync.Mutex
	last inference.Status
	seen bool
}

func NewStatusMonitor(c HealthChecker, schedule string, events Publisher) (*StatusMonitor, error) {
	if events == nil {
		events = Discard
	}
	m := &StatusMonitor{
		checker: c,
		events:  events,
		cron:    cron.New(),
	}
	if _, err := m.cron.AddFunc(schedule, func() { m.Poll(context.Background()) }); err != nil {
		return nil, fmt.Errorf("status schedule %q: %w", schedule, err)
	}
	return m, nil
}

// Run polls once, then on schedule until ctx is done.
func (m *StatusMonitor) Run(ctx context.Context) error {
	m.Poll(ctx)
	m.cron.Start()
	<-ctx.Done()
	<-m.cron.Stop().Done()
	return nil
}

func (m *StatusMonitor) Poll(ctx context.Context) inference.Status {
	s := m.checker.Status(ctx)

	m.mu.Lock()
	changed := !m.seen || s != m.last
	m.last = s
	m.seen = true
	m.mu.Unlock()

	if changed {
		log.Info("Inference service status", "online", s.Online, "reason", s.Reason)
		content := "offline"
		if s.Online {
			content = "online"
		}
		m.events.Publish(Message{Kind: KindStatus, Content: content, Detail: s.Reason})
	}
	return s
}

// Last returns the most recent poll. Before the first poll the service is
// assumed online.
func (m *StatusMonitor) Last() inference.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.seen {
		return inference.Status{Online: true}
	}
	return m.last
}
