package mist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	log "log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Message kinds on the UI bus.
const (
	KindCaption    = "caption"
	KindWake       = "wake"
	KindCommand    = "command"
	KindSuggestion = "suggestion"
	KindStatus     = "status"
	KindAsk        = "ask"
)

const busName = "mist"

type Message struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Kind    string `json:"kind"`
	Content string `json:"content"`
	// Detail carries the second half of a pair, e.g. the reply to a command
	// or the role of a caption.
	Detail string `json:"detail,omitempty"`
}

// Publisher delivers events to whatever UI is attached.
type Publisher interface {
	Publish(m Message)
}

type discard struct{}

func (discard) Publish(Message) {}

// Discard drops every event.
var Discard Publisher = discard{}

// Bus is a websocket connection to the UI hub. It redials when the hub
// goes away.
type Bus struct {
	url    string
	redial time.Duration

	mu   sync.Mutex // guards conn, shut and writes
	conn *websocket.Conn
	shut bool
}

var (
	errBadMessage = errors.New("bad bus message")
	errBusClosed  = errors.New("bus closed")
)

func NewBus(wsURL string) (*Bus, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, fmt.Errorf("parse bus url: %w", err)
	}

	b := &Bus{url: u.String(), redial: time.Second}
	conn, err := b.dial()
	if err != nil {
		return nil, err
	}
	b.conn = conn

	log.Info("Connected to bus", "url", wsURL)
	return b, nil
}

func (b *Bus) dial() (*websocket.Conn, error) {
	conn, _, err := websocket.DefaultDialer.Dial(b.url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial bus: %w", err)
	}
	return conn, nil
}

func (b *Bus) current() *websocket.Conn {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conn
}

func (b *Bus) Read() (*Message, error) {
	_, data, err := b.current().ReadMessage()
	if err != nil {
		return nil, err
	}

	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %w", errBadMessage, err)
	}
	return &m, nil
}

func (b *Bus) Write(m *Message) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conn.WriteMessage(websocket.TextMessage, data)
}

// Publish writes m addressed from mist to the UI. Failures are logged.
func (b *Bus) Publish(m Message) {
	if m.From == "" {
		m.From = busName
	}
	if m.To == "" {
		m.To = "ui"
	}
	if err := b.Write(&m); err != nil {
		log.Warn("Failed to publish", "kind", m.Kind, "err", err)
	}
}

// Serve reads the bus until ctx is done, passing ask requests addressed to
// mist to ask. A closed connection is redialed.
func (b *Bus) Serve(ctx context.Context, ask func(text string)) error {
	go func() {
		<-ctx.Done()
		b.Close()
	}()

	for {
		m, err := b.Read()
		switch {
		case ctx.Err() != nil:
			return nil
		case errors.Is(err, errBadMessage):
			log.Warn("Failed to read bus", "err", err)
		case err != nil:
			log.Warn("Bus connection lost, reconnecting", "url", b.url, "err", err)
			if err := b.reconnect(ctx); err != nil {
				return nil
			}
			log.Info("Reconnected to bus")
		case m.To != "" && m.To != busName:
		case m.Kind == KindAsk:
			ask(m.Content)
		default:
			log.Debug("Ignoring bus message", "kind", m.Kind)
		}
	}
}

func (b *Bus) reconnect(ctx context.Context) error {
	for {
		conn, err := b.dial()
		if err == nil {
			b.mu.Lock()
			defer b.mu.Unlock()
			if b.shut {
				conn.Close()
				return errBusClosed
			}
			b.conn.Close()
			b.conn = conn
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(b.redial):
		}
	}
}

// Close shuts the connection for good; Serve stops redialing.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.shut = true
	return b.conn.Close()
}
