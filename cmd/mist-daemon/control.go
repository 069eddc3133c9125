package main

import (
	"context"
	"errors"
	"fmt"

	log "log/slog"

	"mist/internal/ipc"
	"mist/internal/mist"
)

var errNoText = errors.New("ask needs text")

// control serves the socket commands. ask waits for the action to finish so
// the reply carries its final state; listen dispatches what it heard.
func control(agent *mist.Agent) ipc.Handler {
	return func(ctx context.Context, msg ipc.ControlMessage) ipc.Reply {
		log.Debug("Control", "cmd", msg.Cmd, "arg", msg.Arg)

		switch msg.Cmd {
		case ipc.CmdStatus:
			return ipc.WithData("ok", agent.Status())
		case ipc.CmdListen:
			text, err := agent.Listen(ctx)
			if err != nil {
				return ipc.Fail(err)
			}
			return ipc.OK(text)
		case ipc.CmdAsk:
			if msg.Arg == "" {
				return ipc.Fail(errNoText)
			}
			res, err := agent.Handle(ctx, msg.Arg)
			if err != nil {
				return ipc.Fail(err)
			}
			if res.Err != nil {
				return ipc.Reply{Message: fmt.Sprintf("%s: %v", res.State, res.Err)}
			}
			return ipc.OK(res.State.String())
		case ipc.CmdWakeOn:
			if err := agent.StartWake(); err != nil {
				return ipc.Fail(err)
			}
			return ipc.OK("wake word on")
		case ipc.CmdWakeOff:
			agent.StopWake()
			return ipc.OK("wake word off")
		case ipc.CmdProactiveOn:
			if err := agent.StartProactive(); err != nil {
				return ipc.Fail(err)
			}
			return ipc.OK("proactive on")
		case ipc.CmdProactiveOff:
			agent.StopProactive()
			return ipc.OK("proactive off")
		case ipc.CmdCaptionsOn:
			agent.SetCaptions(true)
			return ipc.OK("captions on")
		case ipc.CmdCaptionsOff:
			agent.SetCaptions(false)
			return ipc.OK("captions off")
		}

		log.Warn("Unknown command", "cmd", msg.Cmd)
		return ipc.Fail(fmt.Errorf("unknown command %q", msg.Cmd))
	}
}
