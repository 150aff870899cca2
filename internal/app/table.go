package app

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// SummaryRow is one line of a stage summary table
type SummaryRow struct {
	Label string
	Value any
}

// RenderSummary renders a two column stage summary.
func RenderSummary(title string, rows []SummaryRow) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.SetTitle(title)
	tw.AppendHeader(table.Row{"Item", "Value"})
	for _, r := range rows {
		tw.AppendRow(table.Row{r.Label, r.Value})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft, AlignHeader: text.AlignLeft},
		{Number: 2, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	return tw.Render()
}

// PrintSummary writes the rendered summary followed by a newline.
func PrintSummary(w io.Writer, title string, rows []SummaryRow) {
	_, _ = fmt.Fprintln(w, RenderSummary(title, rows))
}
