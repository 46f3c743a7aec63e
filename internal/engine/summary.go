package engine

import (
	"fmt"
	"sort"
	"time"

	"wp-pump/internal/schema"
	"wp-pump/internal/store"
)

// WarningCode classifies a recovered problem.
type WarningCode string

const (
	RowImportFailed     WarningCode = "RowImportFailed"
	UnresolvedReference WarningCode = "UnresolvedReference"
	DuplicateSkipped    WarningCode = "DuplicateSkipped"
	MediaMissing        WarningCode = "MediaMissing"
	UnresolvedLink      WarningCode = "UnresolvedLink"
	MalformedSkipped    WarningCode = "MalformedStatement"
	LayoutWarning       WarningCode = "Layout"
)

// Warning is one entry of the run's warning log.
type Warning struct {
	Code    WarningCode `yaml:"code"`
	Stage   string      `yaml:"stage"`
	Kind    store.Kind  `yaml:"kind,omitempty"`
	Ref     string      `yaml:"ref,omitempty"` // source table/row, e.g. wp_posts#12
	Message string      `yaml:"message"`
}

func (w Warning) String() string {
	if w.Ref != "" {
		return fmt.Sprintf("[%s] %s %s: %s", w.Code, w.Stage, w.Ref, w.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", w.Code, w.Stage, w.Message)
}

// KindStats counts row outcomes for one entity kind.
type KindStats struct {
	Created  int `yaml:"created"`
	Skipped  int `yaml:"skipped"`
	Errored  int `yaml:"errored"`
	Warnings int `yaml:"warnings"`
}

// Summary is the ImportRun result. It is returned even when the run aborts.
type Summary struct {
	RunID     string                    `yaml:"run_id"`
	Source    string                    `yaml:"source"`
	DryRun    bool                      `yaml:"dry_run"`
	StartedAt time.Time                 `yaml:"started_at"`
	Duration  string                    `yaml:"duration"`
	Prefix    string                    `yaml:"prefix"`
	Tables    []schema.TableReport      `yaml:"-"`
	Rows      map[string]int            `yaml:"rows"`
	Stages    []string                  `yaml:"stages"`
	Kinds     map[store.Kind]*KindStats `yaml:"kinds"`
	Stripped  map[string]int            `yaml:"stripped_directives,omitempty"`
	Rewritten int                       `yaml:"content_rewritten"`
	Warnings  []Warning                 `yaml:"warnings"`
	Fatal     string                    `yaml:"fatal,omitempty"`
	Layout    *schema.Layout            `yaml:"-"`
}

func newSummary(id, source string, dryRun bool) *Summary {
	return &Summary{
		RunID:     id,
		Source:    source,
		DryRun:    dryRun,
		StartedAt: time.Now().UTC(),
		Rows:      map[string]int{},
		Kinds:     map[store.Kind]*KindStats{},
		Stripped:  map[string]int{},
	}
}

// Stats returns the counters of kind, creating them on first use.
func (s *Summary) Stats(kind store.Kind) *KindStats {
	ks, ok := s.Kinds[kind]
	if !ok {
		ks = &KindStats{}
		s.Kinds[kind] = ks
	}
	return ks
}

// KindNames returns the kinds with counters in import order.
func (s *Summary) KindNames() []store.Kind {
	var out []store.Kind
	for _, k := range store.Kinds() {
		if _, ok := s.Kinds[k]; ok {
			out = append(out, k)
		}
	}
	return out
}

// WarningsByCode counts warnings per code, codes sorted.
func (s *Summary) WarningsByCode() []CodeCount {
	counts := map[WarningCode]int{}
	for _, w := range s.Warnings {
		counts[w.Code]++
	}
	out := make([]CodeCount, 0, len(counts))
	for c, n := range counts {
		out = append(out, CodeCount{Code: c, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

type CodeCount struct {
	Code  WarningCode
	Count int
}

func (s *Summary) addWarning(w Warning) {
	s.Warnings = append(s.Warnings, w)
	if w.Kind != "" {
		s.Stats(w.Kind).Warnings++
	}
}

// StoreTimeoutError aborts a run when a store call exceeds its deadline.
type StoreTimeoutError struct {
	Op         string
	Kind       store.Kind
	NaturalKey string
	Timeout    time.Duration
}

func (e *StoreTimeoutError) Error() string {
	return fmt.Sprintf("store %s %s %s timed out after %s", e.Op, e.Kind, e.NaturalKey, e.Timeout)
}
