package schema

import (
	"fmt"
	"sort"
)

// Options control table classification.
type Options struct {
	Prefix        string // explicit override, skips inference
	MinCoreTables int    // candidates covering fewer core suffixes are rejected
}

// Layout is the classification of every distinct table name in a dump.
type Layout struct {
	Prefix     string
	Tables     []TableRole // sorted by name
	Candidates []Candidate
	Warnings   []string

	byName map[string]TableRole
}

// Analyze infers the prefix (unless overridden) and classifies every table.
func Analyze(names []string, opts Options) (*Layout, error) {
	uniq := make(map[string]bool, len(names))
	var distinct []string
	for _, n := range names {
		if !uniq[n] {
			uniq[n] = true
			distinct = append(distinct, n)
		}
	}
	sort.Strings(distinct)

	layout := &Layout{
		Candidates: Candidates(distinct),
		byName:     make(map[string]TableRole, len(distinct)),
	}

	if opts.Prefix != "" {
		layout.Prefix = opts.Prefix
	} else {
		prefix, tie, err := InferPrefix(distinct, opts.MinCoreTables)
		if err != nil {
			return layout, err
		}
		layout.Prefix = prefix
		if tie {
			layout.Warnings = append(layout.Warnings, fmt.Sprintf(
				"prefixes %q and %q cover the same number of core tables; using %q",
				layout.Candidates[0].Prefix, layout.Candidates[1].Prefix, prefix))
		}
	}

	for _, n := range distinct {
		tr := Classify(layout.Prefix, n)
		layout.Tables = append(layout.Tables, tr)
		layout.byName[n] = tr
	}
	return layout, nil
}

// Role returns the classification of a table name seen during analysis.
// Names never seen are classified on the fly.
func (l *Layout) Role(name string) TableRole {
	if tr, ok := l.byName[name]; ok {
		return tr
	}
	return Classify(l.Prefix, name)
}

// TablesFor returns the names of every table with the given role, sorted.
func (l *Layout) TablesFor(role Role) []string {
	var out []string
	for _, t := range l.Tables {
		if t.Role == role {
			out = append(out, t.RawName)
		}
	}
	return out
}

// CoreFound returns the core suffixes present under the chosen prefix.
func (l *Layout) CoreFound() []string {
	var out []string
	for _, t := range l.Tables {
		if _, ok := CoreSuffixes[t.Suffix]; ok && t.Role != RolePluginUnknown {
			out = append(out, t.Suffix)
		}
	}
	return out
}

// PluginTables groups PluginUnknown tables by identified plugin.
func (l *Layout) PluginTables() map[string][]string {
	out := make(map[string][]string)
	for _, t := range l.Tables {
		if t.Role == RolePluginUnknown {
			out[t.Plugin] = append(out[t.Plugin], t.RawName)
		}
	}
	return out
}

// Report pairs every table with its statement and row counts.
func (l *Layout) Report(statements, rows map[string]int) []TableReport {
	out := make([]TableReport, 0, len(l.Tables))
	for _, t := range l.Tables {
		out = append(out, TableReport{Table: t, Statements: statements[t.RawName], Rows: rows[t.RawName]})
	}
	return out
}
