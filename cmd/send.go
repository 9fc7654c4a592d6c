package cmd

import (
	"context"
	"time"

	"github.com/BioHazard786/SpaceLink/cli/internal/control"
	"github.com/BioHazard786/SpaceLink/cli/internal/link"
	"github.com/BioHazard786/SpaceLink/cli/internal/ui"
	"github.com/spf13/cobra"
)

const flushTimeout = 5 * time.Second

var flagLAN bool

var sendCmd = &cobra.Command{
	Use:     "send <server> <kind> [args...]",
	Aliases: []string{"s"},
	Short:   "Send a single command to a host",
	Long: `Connect to a host, send one command and disconnect.

Kinds and arguments:
  mouse_move <x> <y>             normalized coordinates in [0,1]
  mouse_move_relative <dx> <dy>
  mouse_click [button] [count]   button is left, right or middle
  double_click [button]
  mouse_down [button]
  mouse_up [button]
  scroll <amount>                positive scrolls up
  scroll_horizontal <amount>
  key_press <key>
  key_type <text...>
  hotkey <key> <key>...          modifiers first, e.g. ctrl shift esc
  open_app <name>
  ai_prompt <prompt...>          handed to the host agent
  config <fps> [max_width]       peer link only

Examples:
  spacelink send 192.168.1.20:8000 hotkey ctrl alt t
  spacelink send --lan 192.168.1.20:8000 key_type "hello world"
  spacelink send desk.example.com ai_prompt open the weather app`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendOne(cmd.Context(), args[0], args[1], args[2:])
	},
}

func sendOne(ctx context.Context, server, kind string, args []string) error {
	command, err := control.Parse(kind, args)
	if err != nil {
		return link.NewError("parse "+kind, err)
	}

	rt, err := NewRuntime(ctx)
	if err != nil {
		return err
	}

	c, err := rt.OpenCommander(ctx, server, flagLAN)
	if err != nil {
		return err
	}
	defer c.Close()

	if err := c.Send(command); err != nil {
		return err
	}

	flushCtx, cancel := context.WithTimeout(ctx, flushTimeout)
	defer cancel()
	if err := c.Flush(flushCtx); err != nil {
		return link.NewError("flush "+kind, err)
	}

	ui.PrintSuccessf("Sent %s", kind)
	return nil
}

func init() {
	rootCmd.AddCommand(sendCmd)

	sendCmd.Flags().BoolVarP(&flagLAN, "lan", "l", false, "Use the host's local network WebSocket endpoint")
}
