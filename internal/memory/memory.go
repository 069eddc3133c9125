package memory

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	MaxHistory = 20
	MaxActions = 10
)

type Entry struct {
	Role      string    `json:"role"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Memory is the rolling context of one assistant session. Writers are the
// agent and the executor; readers take a Snapshot.
type Memory struct {
	mu         sync.Mutex
	history    []Entry
	actions    []string
	apps       map[string]struct{}
	lastApp    string
	screenText string
	started    time.Time
	now        func() time.Time
}

func New() *Memory {
	return &Memory{
		apps:    make(map[string]struct{}),
		started: time.Now(),
		now:     time.Now,
	}
}

func (m *Memory) AddTurn(role, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.history = append(m.history, Entry{Role: role, Message: message, Timestamp: m.now()})
	if n := len(m.history); n > MaxHistory {
		m.history = append([]Entry(nil), m.history[n-MaxHistory:]...)
	}
}

func (m *Memory) TrackAction(label string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.actions = append(m.actions, label)
	if n := len(m.actions); n > MaxActions {
		m.actions = append([]string(nil), m.actions[n-MaxActions:]...)
	}
}

// AppOpened records name in the opened set and as the last app.
func (m *Memory) AppOpened(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.apps[strings.ToLower(name)] = struct{}{}
	m.lastApp = name
}

// SyncApps adds every running app to the opened set.
func (m *Memory) SyncApps(running []string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, app := range running {
		m.apps[strings.ToLower(app)] = struct{}{}
	}
}

func (m *Memory) SetScreenText(text string) {
	m.mu.Lock()
	m.screenText = text
	m.mu.Unlock()
}

type Snapshot struct {
	History    []Entry
	Actions    []string
	Apps       []string
	LastAction string
	LastApp    string
	ScreenText string
	Started    time.Time
}

func (m *Memory) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Snapshot{
		History:    append([]Entry(nil), m.history...),
		Actions:    append([]string(nil), m.actions...),
		LastApp:    m.lastApp,
		ScreenText: m.screenText,
		Started:    m.started,
	}
	for app := range m.apps {
		s.Apps = append(s.Apps, app)
	}
	sort.Strings(s.Apps)
	if n := len(m.actions); n > 0 {
		s.LastAction = m.actions[n-1]
	}
	return s
}

// Conversation renders the last n history entries as "role: message" lines.
func (s Snapshot) Conversation(n int) string {
	h := s.History
	if len(h) == 0 {
		return "No previous conversation"
	}
	if n > 0 && len(h) > n {
		h = h[len(h)-n:]
	}
	lines := make([]string, 0, len(h))
	for _, e := range h {
		lines = append(lines, fmt.Sprintf("%s: %s", e.Role, e.Message))
	}
	return strings.Join(lines, "\n")
}

// RecentActions returns at most the last n action labels.
func (s Snapshot) RecentActions(n int) []string {
	if len(s.Actions) <= n {
		return s.Actions
	}
	return s.Actions[len(s.Actions)-n:]
}

type Stats struct {
	ConversationLength int `json:"conversation_length"`
	ActionsPerformed   int `json:"actions_performed"`
	AppsOpened         int `json:"apps_opened"`
}

func (m *Memory) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Stats{
		ConversationLength: len(m.history),
		ActionsPerformed:   len(m.actions),
		AppsOpened:         len(m.apps),
	}
}
