package cmd

import (
	"context"
	"strconv"
	"time"

	"github.com/BioHazard786/SpaceLink/cli/internal/audit"
	"github.com/BioHazard786/SpaceLink/cli/internal/link"
	"github.com/BioHazard786/SpaceLink/cli/internal/ui"
	"github.com/spf13/cobra"
)

var (
	flagMaxDelay  time.Duration
	flagReplayLAN bool
)

var replayCmd = &cobra.Command{
	Use:   "replay <server> <macro>",
	Short: "Replay a recorded macro against a host",
	Long: `Send every command of a macro recorded with "connect --record", keeping the
original spacing between commands up to --max-delay.

Examples:
  spacelink replay 192.168.1.20:8000 session.slm
  spacelink replay --lan --max-delay 500ms 192.168.1.20:8000 session.slm`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return replay(cmd.Context(), args[0], args[1])
	},
}

func replay(ctx context.Context, server, path string) error {
	macro, err := audit.LoadMacro(path)
	if err != nil {
		return link.NewError("load macro", err)
	}
	steps, err := macro.Steps(flagMaxDelay)
	if err != nil {
		return link.NewError("load macro", err)
	}
	if len(steps) == 0 {
		ui.PrintWarningf("%s contains no commands", path)
		return nil
	}

	rt, err := NewRuntime(ctx)
	if err != nil {
		return err
	}

	c, err := rt.OpenCommander(ctx, server, flagReplayLAN)
	if err != nil {
		return err
	}
	defer c.Close()

	ui.PrintInfof("%s Replaying %d commands from %s", ui.IconReplay, len(steps), path)
	start := time.Now()
	sp := ui.NewWaitingSpinner("Replaying...").Start()
	for i, step := range steps {
		if step.Delay > 0 {
			select {
			case <-time.After(step.Delay):
			case <-ctx.Done():
				sp.Stop()
				return ctx.Err()
			}
		}
		sp.UpdateMessage(ui.MutedStyle.Render("Replaying ") + string(step.Command.Kind()))
		if err := c.Send(step.Command); err != nil {
			sp.Stop()
			return link.NewError("replay step "+strconv.Itoa(i+1), err)
		}
	}

	flushCtx, cancel := context.WithTimeout(ctx, flushTimeout)
	defer cancel()
	if err := c.Flush(flushCtx); err != nil {
		sp.Stop()
		return link.NewError("flush replay", err)
	}
	sp.Success("Replay complete")

	ui.RenderSessionSummary(ui.SessionSummary{
		Server:    server,
		Transport: transportName(flagReplayLAN),
		Duration:  time.Since(start),
		Sent:      rt.History.Len(),
	})
	return nil
}

func transportName(useLAN bool) string {
	if useLAN {
		return "websocket"
	}
	return "webrtc"
}

func init() {
	rootCmd.AddCommand(replayCmd)

	replayCmd.Flags().DurationVar(&flagMaxDelay, "max-delay", 2*time.Second, "Longest pause between replayed commands")
	replayCmd.Flags().BoolVarP(&flagReplayLAN, "lan", "l", false, "Use the host's local network WebSocket endpoint")
}
