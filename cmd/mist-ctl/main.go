package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mist/internal/ipc"
)

var (
	socketPath string
	timeout    time.Duration
)

var rootCmd = &cobra.Command{
	Use:          "mist-ctl",
	Short:        "Control a running mist-daemon",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&socketPath, "socket", "s", ipc.DefaultSocketPath, "Daemon control socket")
	rootCmd.PersistentFlags().DurationVarP(&timeout, "timeout", "t", 60*time.Second, "Reply timeout")

	rootCmd.AddCommand(
		simple("status", "Show daemon status", ipc.CmdStatus),
		simple("listen", "Capture one command without the wake word", ipc.CmdListen),
		&cobra.Command{
			Use:   "ask <text>",
			Short: "Run a typed request and wait for its result",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return send(cmd.OutOrStdout(), ipc.ControlMessage{Cmd: ipc.CmdAsk, Arg: strings.Join(args, " ")})
			},
		},
		toggle("wake", "Wake word listening", ipc.CmdWakeOn, ipc.CmdWakeOff),
		toggle("proactive", "Proactive suggestions", ipc.CmdProactiveOn, ipc.CmdProactiveOff),
		toggle("captions", "Action captions", ipc.CmdCaptionsOn, ipc.CmdCaptionsOff),
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func simple(use, short, command string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return send(cmd.OutOrStdout(), ipc.ControlMessage{Cmd: command})
		},
	}
}

func toggle(use, short, on, off string) *cobra.Command {
	return &cobra.Command{
		Use:       use + " on|off",
		Short:     short,
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"on", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			command := on
			if args[0] == "off" {
				command = off
			}
			return send(cmd.OutOrStdout(), ipc.ControlMessage{Cmd: command})
		},
	}
}

func send(out io.Writer, msg ipc.ControlMessage) error {
	reply, err := ipc.SendCommand(socketPath, msg, timeout)
	if err != nil {
		return fmt.Errorf("mist-daemon not running: %w", err)
	}
	if !reply.OK {
		return fmt.Errorf("%s failed: %s", msg.Cmd, reply.Message)
	}

	if len(reply.Data) > 0 {
		var buf bytes.Buffer
		if err := json.Indent(&buf, reply.Data, "", "  "); err != nil {
			return fmt.Errorf("decode reply: %w", err)
		}
		fmt.Fprintln(out, buf.String())
		return nil
	}
	fmt.Fprintln(out, reply.Message)
	return nil
}
