package batch

import (
	"io"
	"os"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
)

// renderSiteSummary formats the per-site tallies as a table. Styling is
// dropped when the destination is not a terminal so piped output stays
// machine-friendly.
func renderSiteSummary(order []string, tallies map[string]*Tally, dest io.Writer) string {
	tw := table.NewWriter()
	if writerIsTerminal(dest) {
		tw.SetStyle(table.StyleRounded)
	} else {
		tw.SetStyle(table.StyleDefault)
	}

	tw.AppendHeader(table.Row{"SITE", "OK", "SKIP", "ERR", "TOTAL"})
	for _, site := range order {
		t := tallies[site]
		tw.AppendRow(table.Row{site,
			strconv.Itoa(t.OK), strconv.Itoa(t.Skip), strconv.Itoa(t.Err), strconv.Itoa(t.Total)})
	}

	configs := make([]table.ColumnConfig, 0, 5)
	for i := 0; i < 5; i++ {
		align := text.AlignRight
		if i == 0 {
			align = text.AlignLeft
		}
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

func writerIsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
