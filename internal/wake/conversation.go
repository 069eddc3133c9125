package wake

import "time"

// DefaultTimeout is how long a conversation stays open after the last
// interaction.
const DefaultTimeout = 45 * time.Second

type Mode int

const (
	Idle Mode = iota
	Active
)

func (m Mode) String() string {
	if m == Active {
		return "conversation_active"
	}
	return "idle"
}

// Conversation tracks whether utterances need the wake phrase. It is owned by
// a single listener loop and is not safe for concurrent use.
type Conversation struct {
	mode    Mode
	last    time.Time
	timeout time.Duration
}

func NewConversation(timeout time.Duration) *Conversation {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Conversation{timeout: timeout}
}

func (c *Conversation) Mode() Mode { return c.mode }

func (c *Conversation) LastInteraction() time.Time { return c.last }

// Wake opens (or re-opens) the conversation at now.
func (c *Conversation) Wake(now time.Time) {
	c.mode = Active
	c.last = now
}

// Continue reports whether an utterance heard at now belongs to the open
// conversation. A hit refreshes the window; an utterance past the window
// closes it.
func (c *Conversation) Continue(now time.Time) bool {
	if c.mode != Active {
		return false
	}
	if now.Sub(c.last) > c.timeout {
		c.mode = Idle
		return false
	}
	c.last = now
	return true
}
