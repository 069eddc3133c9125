// Package ipc is the daemon's unix control socket: one JSON request and one
// JSON reply per connection.
package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	log "log/slog"
	"net"
	"os"
	"sync"
	"time"
)

const DefaultSocketPath = "/tmp/mist.sock"

// Commands understood by the daemon.
const (
	CmdStatus       = "status"
	CmdListen       = "listen"
	CmdAsk          = "ask"
	CmdWakeOn       = "wake_on"
	CmdWakeOff      = "wake_off"
	CmdProactiveOn  = "proactive_on"
	CmdProactiveOff = "proactive_off"
	CmdCaptionsOn   = "captions_on"
	CmdCaptionsOff  = "captions_off"
)

type ControlMessage struct {
	Cmd string `json:"cmd"`
	Arg string `json:"arg,omitempty"`
}

type Reply struct {
	OK      bool            `json:"ok"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Handler serves one control message. It may block; each connection has its
// own goroutine.
type Handler func(ctx context.Context, msg ControlMessage) Reply

func Fail(err error) Reply { return Reply{Message: err.Error()} }

func OK(message string) Reply { return Reply{OK: true, Message: message} }

// WithData marshals v into the reply.
func WithData(message string, v any) Reply {
	data, err := json.Marshal(v)
	if err != nil {
		return Fail(fmt.Errorf("marshal reply: %w", err))
	}
	return Reply{OK: true, Message: message, Data: data}
}

type Server struct {
	path    string
	ln      net.Listener
	handler Handler
	wg      sync.WaitGroup
}

func Listen(path string, h Handler) (*Server, error) {
	if path == "" {
		path = DefaultSocketPath
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("remove stale socket: %w", err)
	}

	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen: %w", err)
	}
	return &Server{path: path, ln: ln, handler: h}, nil
}

// Serve accepts connections until ctx is done.
func (s *Server) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.ln.Close()
	}()

	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				s.wg.Wait()
				os.Remove(s.path)
				return nil
			}
			log.Warn("Accept failed", "err", err)
			continue
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(ctx, conn)
		}()
	}
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	var msg ControlMessage
	if err := json.NewDecoder(conn).Decode(&msg); err != nil {
		log.Debug("Bad control message", "err", err)
		return
	}
	log.Debug("Control message", "cmd", msg.Cmd, "arg", msg.Arg)

	reply := s.handler(ctx, msg)
	if err := json.NewEncoder(conn).Encode(reply); err != nil {
		log.Debug("Failed to reply", "cmd", msg.Cmd, "err", err)
	}
}

// SendCommand sends one message to the daemon and waits for the reply.
func SendCommand(path string, msg ControlMessage, timeout time.Duration) (Reply, error) {
	if path == "" {
		path = DefaultSocketPath
	}
	conn, err := net.DialTimeout("unix", path, timeout)
	if err != nil {
		return Reply{}, err
	}
	defer conn.Close()

	if timeout > 0 {
		if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
			return Reply{}, err
		}
	}

	if err := json.NewEncoder(conn).Encode(msg); err != nil {
		return Reply{}, fmt.Errorf("send: %w", err)
	}

	var reply Reply
	if err := json.NewDecoder(conn).Decode(&reply); err != nil {
		return Reply{}, fmt.Errorf("read reply: %w", err)
	}
	return reply, nil
}
