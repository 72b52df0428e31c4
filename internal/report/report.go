// Package report renders estimation results for people and programs.
// Nothing is persisted; callers pass the writer (stdout, an HTTP response).
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/shopspring/decimal"

	"github.com/contactkeval/option-mc/internal/engine"
)

// Places is the number of decimals shown for prices in tables.
const Places = 6

// WriteJSON writes results as an indented JSON array.
func WriteJSON(w io.Writer, results []engine.Result) error {
	if results == nil {
		results = []engine.Result{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}

// WriteTable writes results as a table, one row per trial.
func WriteTable(w io.Writer, results []engine.Result) error {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{
		"#", "type", "steps", "paths", "price", "std dev", "std err",
		"95% interval", "benchmark", "difference", "degenerate", "elapsed",
	})

	for _, r := range results {
		benchmark, diff := "-", "-"
		if r.Benchmark > 0 {
			benchmark = round(r.Benchmark)
			diff = round(r.Difference)
		}
		t.AppendRow(table.Row{
			r.Trial,
			r.OptionType,
			r.Steps,
			r.Paths,
			round(r.Price),
			round(r.StdDev),
			round(r.StdErr),
			fmt.Sprintf("[%s, %s]", round(r.Lower), round(r.Upper)),
			benchmark,
			diff,
			fmt.Sprintf("%d/%d", r.DegeneratePaths, r.DegenerateCount),
			r.Elapsed.Round(100 * time.Microsecond).String(),
		})
	}

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
		{Number: 7, Align: text.AlignRight},
		{Number: 9, Align: text.AlignRight},
		{Number: 10, Align: text.AlignRight},
	})

	_, err := io.WriteString(w, t.Render()+"\n")
	return err
}

func round(x float64) string {
	return decimal.NewFromFloat(x).StringFixed(Places)
}
