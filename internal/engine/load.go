package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"wp-pump/internal/dump"
	"wp-pump/internal/record"
	"wp-pump/internal/schema"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// Source is a dump that can be read more than once.
type Source interface {
	Name() string
	Open() (io.ReadCloser, error)
}

type fileSource struct {
	fs   afero.Fs
	path string
}

// NewFileSource reads path from fs on every Open.
func NewFileSource(fs afero.Fs, path string) Source {
	return fileSource{fs: fs, path: path}
}

func (s fileSource) Name() string { return s.path }

func (s fileSource) Open() (io.ReadCloser, error) {
	f, err := s.fs.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dump: %w", err)
	}
	return f, nil
}

type stringSource struct {
	name string
	text string
}

// NewStringSource serves an in-memory dump.
func NewStringSource(name, text string) Source {
	return stringSource{name: name, text: text}
}

func (s stringSource) Name() string { return s.name }

func (s stringSource) Open() (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(s.text)), nil
}

// Dataset is a fully loaded dump.
type Dataset struct {
	Layout     *schema.Layout
	Records    *record.Set
	Statements map[string]int // INSERT statements per table
	Rows       map[string]int // rows per table, auxiliary tables included
	Warnings   []Warning
}

// Report returns per-table statement and row counts.
func (d *Dataset) Report() []schema.TableReport {
	return d.Layout.Report(d.Statements, d.Rows)
}

// LoadOptions control Load.
type LoadOptions struct {
	Prefix              string
	MinCoreTables       int
	ContinueOnMalformed bool
}

// Load reads src twice: a headers-only pass collects table names for
// schema inference, then a full pass materializes every row.
// The layout is returned with ErrPrefixNotDetected so callers can show the
// candidates.
func Load(ctx context.Context, src Source, opts LoadOptions) (*Dataset, error) {
	ds := &Dataset{Statements: map[string]int{}, Rows: map[string]int{}}

	names, err := scanNames(ctx, src, opts.ContinueOnMalformed)
	if err != nil {
		return ds, err
	}
	layout, err := schema.Analyze(names, schema.Options{Prefix: opts.Prefix, MinCoreTables: opts.MinCoreTables})
	ds.Layout = layout
	if err != nil {
		return ds, err
	}
	for _, w := range layout.Warnings {
		ds.Warnings = append(ds.Warnings, Warning{Code: LayoutWarning, Stage: "load", Message: w})
	}
	logrus.WithFields(logrus.Fields{"prefix": layout.Prefix, "tables": len(layout.Tables)}).Info("dump layout detected")

	ds.Records = record.NewSet(layout)
	err = eachStatement(ctx, src, false, func(st *dump.Statement) {
		if st.Kind != dump.Insert {
			return
		}
		ds.Statements[st.Table]++
		ds.Rows[st.Table] += len(st.Rows)
		tr := layout.Role(st.Table)
		if tr.Role == schema.RoleCoreAuxiliary {
			return
		}
		ds.Records.Add(record.Materialize(st, tr, ds.Records.Count(st.Table))...)
	}, func(me *dump.MalformedStatementError) error {
		if !opts.ContinueOnMalformed {
			return me
		}
		ds.Warnings = append(ds.Warnings, Warning{
			Code:    MalformedSkipped,
			Stage:   "load",
			Ref:     fmt.Sprintf("%s@%d", me.Table, me.Offset),
			Message: me.Reason,
		})
		return nil
	})
	return ds, err
}

func scanNames(ctx context.Context, src Source, continueOnMalformed bool) ([]string, error) {
	var names []string
	err := eachStatement(ctx, src, true, func(st *dump.Statement) {
		names = append(names, st.Table)
	}, func(me *dump.MalformedStatementError) error {
		if continueOnMalformed {
			return nil
		}
		return me
	})
	return names, err
}

// eachStatement runs fn over every statement of src. onMalformed decides
// whether a malformed statement aborts the scan.
func eachStatement(ctx context.Context, src Source, headersOnly bool, fn func(*dump.Statement), onMalformed func(*dump.MalformedStatementError) error) error {
	rc, err := src.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	var opts []dump.Option
	if headersOnly {
		opts = append(opts, dump.HeadersOnly())
	}
	lx := dump.NewLexer(rc, opts...)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		st, err := lx.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		var me *dump.MalformedStatementError
		if errors.As(err, &me) {
			if err := onMalformed(me); err != nil {
				return err
			}
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to read dump at byte %d: %w", lx.Offset(), err)
		}
		fn(st)
	}
}
