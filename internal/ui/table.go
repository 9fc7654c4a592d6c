package ui

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/BioHazard786/SpaceLink/cli/internal/audit"
	"github.com/BioHazard786/SpaceLink/cli/internal/utils"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	prettytable "github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// SessionSummary describes a finished console or replay session.
type SessionSummary struct {
	Server    string
	SessionID string
	Transport string
	Duration  time.Duration
	Sent      int
	Rejected  int
	LastError error
}

func SessionSummaryView(s SessionSummary) string {
	status := "Clean exit"
	if s.LastError != nil {
		status = utils.TruncateString(s.LastError.Error(), 60)
	}
	id := s.SessionID
	if id == "" {
		id = "-"
	}

	rows := [][]string{
		{"Server", s.Server},
		{"Session", id},
		{"Transport", s.Transport},
		{"Duration", utils.FormatTimeDuration(s.Duration)},
		{"Commands sent", fmt.Sprintf("%d (%s)", s.Sent, utils.FormatRate(s.Sent, s.Duration))},
		{"Commands dropped", fmt.Sprintf("%d", s.Rejected)},
		{"Status", status},
	}
	return DetailsView("Metric", rows)
}

// DetailsView renders two-column rows under a header for the first column.
func DetailsView(key string, rows [][]string) string {
	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(Primary)).
		Headers(key, "Value").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return TableHeaderStyle
			case row%2 == 0:
				return TableRowStyle
			default:
				return TableRowAltStyle
			}
		})

	return tbl.Render()
}

func RenderSessionSummary(s SessionSummary) {
	fmt.Fprintln(Output, SessionSummaryView(s))
}

func RenderDetails(key string, rows [][]string) {
	fmt.Fprintln(Output, DetailsView(key, rows))
}

// HistoryView renders recorded commands, oldest first, with the offset of
// each from the first one.
func HistoryView(entries []audit.Entry) string {
	if len(entries) == 0 {
		return MutedStyle.Render("No commands sent")
	}

	tw := prettytable.NewWriter()
	tw.SetStyle(prettytable.StyleRounded)
	tw.Style().Color.Header = text.Colors{text.Bold, text.FgHiMagenta}
	tw.Style().Color.Footer = text.Colors{text.FgHiBlack}
	tw.AppendHeader(prettytable.Row{"#", "At", "Kind", "Data"})

	counts := make(map[string]int)
	start := entries[0].At
	for i, e := range entries {
		counts[string(e.Kind)]++
		tw.AppendRow(prettytable.Row{
			i + 1,
			"+" + utils.FormatTimeDuration(e.At.Sub(start)),
			string(e.Kind),
			utils.TruncateString(payloadData(e.Payload), 48),
		})
	}

	tw.AppendFooter(prettytable.Row{"", "", "Total", fmt.Sprintf("%d commands, %d kinds", len(entries), len(counts))})
	return tw.Render()
}

func RenderHistory(entries []audit.Entry) {
	fmt.Fprintln(Output, HistoryView(entries))
}

// payloadData extracts the data object of an encoded command for display.
func payloadData(payload []byte) string {
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(payload, &env); err != nil || len(env.Data) == 0 {
		return string(payload)
	}
	return string(env.Data)
}
