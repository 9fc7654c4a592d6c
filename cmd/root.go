package cmd

import (
	"context"
	"os"
	"os/signal"

	"github.com/BioHazard786/SpaceLink/cli/internal/logging"
	"github.com/BioHazard786/SpaceLink/cli/internal/ui"
	"github.com/BioHazard786/SpaceLink/cli/internal/version"
	"github.com/spf13/cobra"
)

var (
	flagConfig      string
	flagSTUN        string
	flagTURN        string
	flagTURNUser    string
	flagTURNPass    string
	flagRelay       bool
	flagMetricsAddr string
	flagLogFile     string
)

// logFile is the open --log-file handle, if any.
var logFile *os.File

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "spacelink",
	Short: "Drive a remote desktop's mouse and keyboard over a peer-to-peer link",
	Long: `SpaceLink connects to a SpaceLink host, negotiates a WebRTC session through the
host's HTTP signaling endpoint and sends mouse, keyboard and AI prompt commands over
a peer-to-peer data channel. On a local network the host's WebSocket endpoint can be
used instead.`,
	Version: version.Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if flagLogFile == "" {
			logging.Init(nil)
			return nil
		}
		f, err := os.OpenFile(flagLogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return err
		}
		logFile = f
		logging.Init(f)
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return closeLogFile()
	},
}

// closeLogFile puts logging back on stderr and closes the log file. Cobra
// skips the post-run hook when a command fails, so Execute calls it too.
func closeLogFile() error {
	if logFile == nil {
		return nil
	}
	f := logFile
	logFile = nil
	logging.Init(nil)
	return f.Close()
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	err := rootCmd.ExecuteContext(ctx)
	closeLogFile()
	if err != nil {
		ui.PrintError(err.Error())
		stop()
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flagConfig, "config", "c", "", "Config file (default $XDG_CONFIG_HOME/spacelink/config.yaml)")
	pf.StringVarP(&flagSTUN, "stun", "s", "", "Custom STUN server")
	pf.StringVarP(&flagTURN, "turn", "t", "", "Custom TURN server")
	pf.StringVarP(&flagTURNUser, "turn-user", "u", "", "TURN username")
	pf.StringVarP(&flagTURNPass, "turn-pass", "p", "", "TURN password")
	pf.BoolVarP(&flagRelay, "relay", "r", false, "Force relay mode")
	pf.StringVar(&flagMetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9464")
	pf.StringVar(&flagLogFile, "log-file", "", "Write logs to this file instead of stderr")
}
