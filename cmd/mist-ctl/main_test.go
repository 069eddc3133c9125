package main

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mist/internal/ipc"
)

type daemon struct {
	mu   sync.Mutex
	seen []ipc.ControlMessage
}

func (d *daemon) handle(_ context.Context, msg ipc.ControlMessage) ipc.Reply {
	d.mu.Lock()
	d.seen = append(d.seen, msg)
	d.mu.Unlock()

	switch msg.Cmd {
	case ipc.CmdStatus:
		return ipc.WithData("ok", map[string]any{"wake_word_active": true})
	case ipc.CmdListen:
		return ipc.Fail(errors.New("already listening"))
	}
	return ipc.OK("done " + msg.Cmd)
}

func (d *daemon) messages() []ipc.ControlMessage {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]ipc.ControlMessage(nil), d.seen...)
}

func startDaemon(t *testing.T) (*daemon, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mist.sock")
	d := &daemon{}
	srv, err := ipc.Listen(path, d.handle)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		srv.Serve(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return d, path
}

func execute(path string, args ...string) (string, error) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--socket", path}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestCommands(t *testing.T) {
	d, path := startDaemon(t)

	tests := []struct {
		args []string
		want ipc.ControlMessage
	}{
		{[]string{"ask", "open", "discord"}, ipc.ControlMessage{Cmd: ipc.CmdAsk, Arg: "open discord"}},
		{[]string{"wake", "on"}, ipc.ControlMessage{Cmd: ipc.CmdWakeOn}},
		{[]string{"wake", "off"}, ipc.ControlMessage{Cmd: ipc.CmdWakeOff}},
		{[]string{"proactive", "on"}, ipc.ControlMessage{Cmd: ipc.CmdProactiveOn}},
		{[]string{"captions", "off"}, ipc.ControlMessage{Cmd: ipc.CmdCaptionsOff}},
	}
	for _, tt := range tests {
		out, err := execute(path, tt.args...)
		require.NoError(t, err, tt.args)
		assert.Equal(t, "done "+tt.want.Cmd+"\n", out)
	}

	want := make([]ipc.ControlMessage, 0, len(tests))
	for _, tt := range tests {
		want = append(want, tt.want)
	}
	assert.Equal(t, want, d.messages())
}

func TestStatusPrintsData(t *testing.T) {
	_, path := startDaemon(t)

	out, err := execute(path, "status")
	require.NoError(t, err)
	assert.JSONEq(t, `{"wake_word_active": true}`, out)
}

func TestFailedReply(t *testing.T) {
	_, path := startDaemon(t)

	_, err := execute(path, "listen")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already listening")
}

func TestBadToggleArg(t *testing.T) {
	d, path := startDaemon(t)

	_, err := execute(path, "wake", "maybe")
	require.Error(t, err)
	assert.Empty(t, d.messages())
}

func TestDaemonDown(t *testing.T) {
	_, err := execute(filepath.Join(t.TempDir(), "none.sock"), "status")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mist-daemon not running")
}
