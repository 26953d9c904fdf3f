package commands

import (
	"fmt"
	"io"
	"path/filepath"

	"esimcatalog/internal/updater"

	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

var (
	successBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.AdaptiveColor{Light: "#859900", Dark: "#50fa7b"}).
			Padding(0, 1)

	idleBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.AdaptiveColor{Light: "#b58900", Dark: "#f1fa8c"}).
			Padding(0, 1)
)

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	// file names are case sensitive, the rounded style upper-cases footers
	t.Style().Format.Footer = text.FormatDefault
	t.SetOutputMirror(w)
	return t
}

func summaryMessage(s updater.Summary) string {
	if !s.Updated() {
		return "No new devices found or updated."
	}
	return fmt.Sprintf("The incremental update process is complete! File saved in: %s", filepath.Dir(s.OutputPath))
}

func printSummary(w io.Writer, s updater.Summary) {
	style := idleBoxStyle
	if s.Updated() {
		style = successBoxStyle
	}
	fmt.Fprintln(w, style.Render(summaryMessage(s)))

	t := newTable(w)
	t.AppendHeader(table.Row{"Run", "Year", "Listed", "Known", "Fetched", "Qualified", "Discarded", "New Columns"})
	t.AppendRow(table.Row{s.RunID, s.Year, s.Listed, s.AlreadyKnown, s.Fetched, s.Qualified, s.Discarded, s.NewColumns})
	if s.Updated() {
		t.AppendFooter(table.Row{"Output", filepath.Base(s.OutputPath)})
	}
	t.Render()
}
