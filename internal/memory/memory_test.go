package memory

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_HistoryEviction(t *testing.T) {
	m := New()
	for i := 0; i < MaxHistory+5; i++ {
		m.AddTurn("user", fmt.Sprintf("msg %d", i))
	}

	s := m.Snapshot()
	require.Len(t, s.History, MaxHistory)
	assert.Equal(t, "msg 5", s.History[0].Message)
	assert.Equal(t, fmt.Sprintf("msg %d", MaxHistory+4), s.History[MaxHistory-1].Message)
}

func TestMemory_ActionsCapped(t *testing.T) {
	m := New()
	for i := 0; i < 15; i++ {
		m.TrackAction(fmt.Sprintf("pressed %d", i))
	}

	s := m.Snapshot()
	assert.Len(t, s.Actions, MaxActions)
	assert.Equal(t, "pressed 14", s.LastAction)
	assert.Equal(t, []string{"pressed 12", "pressed 13", "pressed 14"}, s.RecentActions(3))
}

func TestMemory_AppsMonotonic(t *testing.T) {
	m := New()
	m.AppOpened("Discord")
	m.SyncApps([]string{"firefox", "discord"})
	m.AppOpened("notepad")

	s := m.Snapshot()
	assert.Equal(t, []string{"discord", "firefox", "notepad"}, s.Apps)
	assert.Equal(t, "notepad", s.LastApp)
	assert.Equal(t, 3, m.Stats().AppsOpened)
}

func TestSnapshot_Conversation(t *testing.T) {
	m := New()
	assert.Equal(t, "No previous conversation", m.Snapshot().Conversation(5))

	m.AddTurn("user", "open discord")
	m.AddTurn("assistant", "Opening Discord")
	m.AddTurn("user", "click general")

	assert.Equal(t, "assistant: Opening Discord\nuser: click general", m.Snapshot().Conversation(2))
}

func TestSnapshot_IsACopy(t *testing.T) {
	m := New()
	m.TrackAction("a")
	s := m.Snapshot()
	m.TrackAction("b")
	assert.Equal(t, []string{"a"}, s.Actions)
}
