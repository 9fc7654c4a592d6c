package cmd

import (
	"context"
	"errors"
	"time"

	"github.com/BioHazard786/SpaceLink/cli/internal/audit"
	"github.com/BioHazard786/SpaceLink/cli/internal/ui"
	"github.com/BioHazard786/SpaceLink/cli/internal/utils"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

const historyRows = 20

var flagRecord string

var connectCmd = &cobra.Command{
	Use:     "connect <server>",
	Aliases: []string{"c"},
	Short:   "Open an interactive control console for a host",
	Long: `Negotiate a peer session with a SpaceLink host and drive it from the terminal.

Keys are forwarded to the host. F1-F4 latch ctrl, alt, shift and win for the next
key. The mouse drives the host pointer: click to tap, hold to right click, drag to
drag, and the wheel scrolls. F10 opens an AI prompt.

Examples:
  spacelink connect 192.168.1.20:8000
  spacelink connect https://desk.example.com --record session.slm`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runConsole(cmd.Context(), args[0])
	},
}

func runConsole(ctx context.Context, server string) error {
	rt, err := NewRuntime(ctx)
	if err != nil {
		return err
	}

	s, err := rt.Connect(ctx, server)
	if err != nil {
		return err
	}
	defer s.Close()

	console := ui.NewConsole(s, ui.ConsoleOptions{
		Server:    server,
		Gesture:   rt.GestureOptions(),
		LongPress: rt.Config.LongPress,
	})

	start := time.Now()
	p := tea.NewProgram(console, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	_, runErr := p.Run()
	sessionID := s.SessionID()
	s.Disconnect()

	sent, dropped := console.Stats()
	ui.RenderSessionSummary(ui.SessionSummary{
		Server:    server,
		SessionID: sessionID,
		Transport: "webrtc",
		Duration:  time.Since(start),
		Sent:      sent,
		Rejected:  dropped,
		LastError: s.LastError(),
	})
	entries := rt.History.Entries()
	ui.RenderHistory(entries[max(0, len(entries)-historyRows):])

	if flagRecord != "" {
		if err := saveRecording(flagRecord, rt.History); err != nil {
			return err
		}
	}

	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
		return runErr
	}
	return nil
}

func saveRecording(path string, history *audit.Buffer) error {
	path = utils.UniquePath(path)
	if err := audit.SaveMacro(path, history); err != nil {
		return err
	}
	ui.PrintSuccessf("%s Recorded %d commands to %s", ui.IconRecord, history.Len(), path)
	return nil
}

func init() {
	rootCmd.AddCommand(connectCmd)

	connectCmd.Flags().StringVar(&flagRecord, "record", "", "Save the sent commands as a macro file")
}
