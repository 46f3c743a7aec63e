// Package report renders analysis results and import summaries for the
// terminal and as yaml.
package report

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"wp-pump/internal/engine"
	"wp-pump/internal/sample"
	"wp-pump/internal/schema"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Layout prints the detected prefix, the prefix candidates and one line
// per table.
func Layout(w io.Writer, layout *schema.Layout, tables []schema.TableReport) {
	if layout == nil {
		return
	}
	if layout.Prefix != "" {
		fmt.Fprintf(w, "Prefix: %s\n", layout.Prefix)
	}
	if len(layout.Candidates) > 0 {
		fmt.Fprintln(w, "\nPREFIX CANDIDATES:")
		ct := tablewriter.NewWriter(w)
		ct.SetHeader([]string{"PREFIX", "CORE TABLES", "SUFFIXES"})
		for _, c := range layout.Candidates {
			ct.Append([]string{c.Prefix, strconv.Itoa(len(c.Suffixes)), strings.Join(c.Suffixes, ", ")})
		}
		ct.Render()
	}
	if len(tables) == 0 {
		return
	}

	fmt.Fprintln(w, "\nTABLES:")
	tt := tablewriter.NewWriter(w)
	tt.SetHeader([]string{"TABLE", "ROLE", "PLUGIN", "INSERTS", "ROWS"})
	tt.SetAlignment(tablewriter.ALIGN_LEFT)
	var rows int
	for _, t := range tables {
		tt.Append([]string{
			t.Table.RawName,
			t.Table.Role.String(),
			t.Table.Plugin,
			strconv.Itoa(t.Statements),
			strconv.Itoa(t.Rows),
		})
		rows += t.Rows
	}
	tt.SetFooter([]string{"", "", "", "TOTAL", strconv.Itoa(rows)})
	tt.Render()

	for _, msg := range layout.Warnings {
		fmt.Fprintf(w, "! %s\n", msg)
	}
}

// Summary prints the per-kind counters, stripped directives and the
// warning log. At most maxWarnings entries are listed; 0 lists none.
func Summary(w io.Writer, sum *engine.Summary, maxWarnings int) {
	mode := "import"
	if sum.DryRun {
		mode = "dry run"
	}
	fmt.Fprintf(w, "\nRun %s (%s of %s, %s)\n", sum.RunID, mode, sum.Source, sum.Duration)

	kt := tablewriter.NewWriter(w)
	kt.SetHeader([]string{"KIND", "CREATED", "SKIPPED", "ERRORED", "WARNINGS"})
	var total engine.KindStats
	for _, k := range sum.KindNames() {
		ks := sum.Kinds[k]
		kt.Append([]string{string(k), strconv.Itoa(ks.Created), strconv.Itoa(ks.Skipped), strconv.Itoa(ks.Errored), strconv.Itoa(ks.Warnings)})
		total.Created += ks.Created
		total.Skipped += ks.Skipped
		total.Errored += ks.Errored
		total.Warnings += ks.Warnings
	}
	kt.SetFooter([]string{"TOTAL", strconv.Itoa(total.Created), strconv.Itoa(total.Skipped), strconv.Itoa(total.Errored), strconv.Itoa(total.Warnings)})
	kt.Render()

	if len(sum.Stripped) > 0 {
		fmt.Fprintln(w, "\nSTRIPPED DIRECTIVES:")
		st := tablewriter.NewWriter(w)
		st.SetHeader([]string{"DIRECTIVE", "COUNT"})
		names := make([]string, 0, len(sum.Stripped))
		for n := range sum.Stripped {
			names = append(names, n)
		}
		sort.Strings(names)
		for _, n := range names {
			st.Append([]string{n, strconv.Itoa(sum.Stripped[n])})
		}
		st.Render()
	}
	if sum.Rewritten > 0 {
		fmt.Fprintf(w, "Content references rewritten: %d\n", sum.Rewritten)
	}

	if len(sum.Warnings) > 0 {
		fmt.Fprintln(w, "\nWARNINGS:")
		wt := tablewriter.NewWriter(w)
		wt.SetHeader([]string{"CODE", "COUNT"})
		for _, c := range sum.WarningsByCode() {
			wt.Append([]string{string(c.Code), strconv.Itoa(c.Count)})
		}
		wt.Render()
		for i, warn := range sum.Warnings {
			if i == maxWarnings {
				fmt.Fprintf(w, "... %d more (see --report)\n", len(sum.Warnings)-maxWarnings)
				break
			}
			fmt.Fprintln(w, warn.String())
		}
	}

	if sum.Fatal != "" {
		fmt.Fprintf(w, "\nFATAL: %s\n", sum.Fatal)
	}
}

// WriteYAML encodes the summary with two-space indentation.
func WriteYAML(w io.Writer, sum *engine.Summary) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(sum); err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}
	return enc.Close()
}

// SaveYAML writes the summary to path on fs.
func SaveYAML(fs afero.Fs, path string, sum *engine.Summary) error {
	f, err := fs.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	if err := WriteYAML(f, sum); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Sample prints the rows written per table by the sample generator.
func Sample(w io.Writer, results []sample.TableResult) {
	t := tablewriter.NewWriter(w)
	t.SetHeader([]string{"TABLE", "ROWS"})
	var total int
	for _, r := range results {
		t.Append([]string{r.Table, strconv.Itoa(r.Rows)})
		total += r.Rows
	}
	t.SetFooter([]string{"TOTAL", strconv.Itoa(total)})
	t.Render()
}
