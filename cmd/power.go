package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/BioHazard786/SpaceLink/cli/internal/power"
	"github.com/BioHazard786/SpaceLink/cli/internal/signaling"
	"github.com/BioHazard786/SpaceLink/cli/internal/ui"
	"github.com/spf13/cobra"
)

var (
	flagPowerDelay time.Duration
	flagPowerForce bool
)

var powerCmd = &cobra.Command{
	Use:   "power <server> <action>",
	Short: "Shut down, restart, lock or suspend a host",
	Long: fmt.Sprintf(`Ask a host to perform a system action over its HTTP API. No peer session
is needed.

Actions: %s, or info to show the host platform.
--delay and --force only apply to shutdown and restart; cancel aborts a
scheduled one.

Examples:
  spacelink power 192.168.1.20:8000 lock
  spacelink power 192.168.1.20:8000 shutdown --delay 5m
  spacelink power 192.168.1.20:8000 cancel`, actionList()),
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPower(cmd.Context(), args[0], args[1])
	},
}

func actionList() string {
	names := make([]string, len(power.Actions))
	for i, a := range power.Actions {
		names[i] = string(a)
	}
	return strings.Join(names, ", ")
}

func runPower(ctx context.Context, server, name string) error {
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}
	client := power.NewClient(signaling.NewClient(cfg.SignalingTimeout, nil), nil)

	if name == "info" {
		info, err := client.Info(ctx, server)
		if err != nil {
			return err
		}
		ui.RenderDetails("Host", [][]string{
			{"Platform", info.Platform},
			{"Release", info.Release},
			{"Machine", info.Machine},
			{"Processor", info.Processor},
		})
		return nil
	}

	action, err := power.ParseAction(name)
	if err != nil {
		return err
	}
	res, err := client.Do(ctx, server, action, flagPowerDelay, flagPowerForce)
	if err != nil {
		return err
	}
	ui.PrintSuccess(res.Message)
	return nil
}

func init() {
	rootCmd.AddCommand(powerCmd)

	powerCmd.Flags().DurationVar(&flagPowerDelay, "delay", 0, "Wait this long before shutting down or restarting")
	powerCmd.Flags().BoolVar(&flagPowerForce, "force", false, "Close applications without asking")
}
