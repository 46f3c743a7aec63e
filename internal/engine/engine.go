// Package engine runs the staged import of a WordPress dump into an entity
// store. Stages run one after another; rows within a stage may run on a
// bounded worker pool.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"wp-pump/internal/blob"
	"wp-pump/internal/record"
	"wp-pump/internal/store"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
)

// Run imports src into st. The summary is always returned; a non-nil error
// means the run aborted and the summary holds what was imported so far.
func Run(ctx context.Context, src Source, st store.Store, opts Options) (*Summary, error) {
	opts.withDefaults()
	sum := newSummary(ulid.Make().String(), src.Name(), opts.DryRun)
	started := time.Now()
	defer func() { sum.Duration = time.Since(started).Round(time.Millisecond).String() }()

	fail := func(err error) (*Summary, error) {
		sum.Fatal = err.Error()
		logrus.WithError(err).Error("import aborted")
		return sum, err
	}

	ds, err := Load(ctx, src, LoadOptions{
		Prefix:              opts.Prefix,
		MinCoreTables:       opts.MinCoreTables,
		ContinueOnMalformed: opts.ContinueOnMalformed,
	})
	sum.Layout = ds.Layout
	for _, w := range ds.Warnings {
		sum.addWarning(w)
	}
	if err != nil {
		return fail(err)
	}
	sum.Prefix = ds.Layout.Prefix
	sum.Tables = ds.Report()
	sum.Rows = ds.Rows
	if opts.OnLoad != nil {
		opts.OnLoad(ds)
	}

	stages, err := orderStages(defaultStages())
	if err != nil {
		return fail(err)
	}

	if opts.DryRun {
		st = store.NewOverlay(st, opts.Unique)
	}
	im := newImporter(ds, st, sum, opts)
	for _, s := range stages {
		sum.Stages = append(sum.Stages, s.Name())
		log := logrus.WithField("stage", s.Name())
		log.Info("stage started")
		if err := s.Run(ctx, im); err != nil {
			return fail(fmt.Errorf("stage %s: %w", s.Name(), err))
		}
		log.WithField("warnings", len(sum.Warnings)).Info("stage finished")
	}
	return sum, nil
}

// importer is the state shared by the stages of one run.
type importer struct {
	opts    Options
	set     *record.Set
	store   store.Store
	blobs   blob.Store
	remaps  *Remaps
	summary *Summary

	options  map[string]string
	postMeta map[int64]record.MetaBag
	posts    map[int64]record.Post
	siteURL  string

	// Target slugs per kind and legacy ID. Written by serial code only.
	slugs map[store.Kind]map[int64]string
	// term_id -> term_taxonomy_id for categories and tags.
	termTaxonomy map[store.Kind]map[int64]int64
	// Legacy site path -> target URL, filled by the redirects stage.
	links map[string]string

	relOnce sync.Once
	rels    map[int64][]int64

	mu         sync.Mutex
	mediaPaths map[string]int64 // uploads-relative path -> attachment ID
	mediaURLs  map[int64]string // attachment ID -> public URL
}

func newImporter(ds *Dataset, st store.Store, sum *Summary, opts Options) *importer {
	im := &importer{
		opts:         opts,
		set:          ds.Records,
		store:        st,
		blobs:        opts.Blobs,
		remaps:       newRemaps(),
		summary:      sum,
		options:      ds.Records.Options(),
		postMeta:     ds.Records.PostMeta(),
		posts:        make(map[int64]record.Post),
		slugs:        make(map[store.Kind]map[int64]string),
		termTaxonomy: make(map[store.Kind]map[int64]int64),
		links:        make(map[string]string),
		mediaPaths:   make(map[string]int64),
		mediaURLs:    make(map[int64]string),
	}
	if im.blobs == nil && opts.MediaDir != "" {
		dest := opts.MediaDest
		if dest == "" {
			dest = "media"
		}
		im.blobs = blob.NewFileStore(afero.NewOsFs(), opts.MediaDir, dest)
	}
	for _, p := range ds.Records.Posts() {
		im.posts[p.ID()] = p
	}
	im.siteURL = opts.SiteURL
	if im.siteURL == "" {
		im.siteURL = firstNonEmpty(im.options["home"], im.options["siteurl"])
	}
	return im
}

func (im *importer) setSlug(kind store.Kind, legacyID int64, slug string) {
	if im.slugs[kind] == nil {
		im.slugs[kind] = make(map[int64]string)
	}
	im.slugs[kind][legacyID] = slug
}

func (im *importer) slug(kind store.Kind, legacyID int64) string {
	return im.slugs[kind][legacyID]
}

// rowLog collects what one row produced. Rows of a parallel batch write to
// their own slot; slots are merged in row order after the batch.
type rowLog struct {
	stage    string
	kind     store.Kind
	ref      string
	warnings []Warning
	stats    map[store.Kind]*KindStats
}

func (l *rowLog) at(ref string) { l.ref = ref }

func (l *rowLog) stat(kind store.Kind) *KindStats {
	if l.stats == nil {
		l.stats = make(map[store.Kind]*KindStats)
	}
	ks, ok := l.stats[kind]
	if !ok {
		ks = &KindStats{}
		l.stats[kind] = ks
	}
	return ks
}

func (l *rowLog) outcome(kind store.Kind, created bool) {
	if created {
		l.stat(kind).Created++
	} else {
		l.stat(kind).Skipped++
	}
}

func (l *rowLog) warn(code WarningCode, kind store.Kind, format string, args ...any) {
	l.warnings = append(l.warnings, Warning{
		Code:    code,
		Stage:   l.stage,
		Kind:    kind,
		Ref:     l.ref,
		Message: fmt.Sprintf(format, args...),
	})
}

func (l *rowLog) fail(err error) {
	l.stat(l.kind).Errored++
	l.warn(RowImportFailed, l.kind, "%v", err)
}

type rowFunc func(ctx context.Context, i int, lg *rowLog) error

// each runs fn for rows 0..n-1 of a batch. Row errors become RowImportFailed
// warnings; store timeouts and cancellation abort the batch.
func (im *importer) each(ctx context.Context, stage string, kind store.Kind, n int, parallel bool, fn rowFunc) error {
	if n == 0 {
		return nil
	}
	if im.opts.OnStage != nil {
		im.opts.OnStage(stage, n)
	}
	logs := make([]rowLog, n)
	run := func(ctx context.Context, i int) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		lg := &logs[i]
		lg.stage, lg.kind = stage, kind
		err := fn(ctx, i, lg)
		if im.opts.OnProgress != nil {
			im.opts.OnProgress(stage)
		}
		if err == nil {
			return nil
		}
		if isFatal(ctx, err) {
			return err
		}
		lg.fail(err)
		logrus.WithFields(logrus.Fields{"stage": stage, "kind": kind, "ref": lg.ref}).WithError(err).Warn("row skipped")
		return nil
	}

	var err error
	if parallel && im.opts.Workers > 1 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(im.opts.Workers)
		for i := 0; i < n && gctx.Err() == nil; i++ {
			i := i
			g.Go(func() error { return run(gctx, i) })
		}
		err = g.Wait()
	} else {
		for i := 0; i < n && err == nil; i++ {
			err = run(ctx, i)
		}
	}
	im.merge(logs)
	if err == nil {
		err = ctx.Err()
	}
	return err
}

func (im *importer) merge(logs []rowLog) {
	for i := range logs {
		for k, ks := range logs[i].stats {
			sum := im.summary.Stats(k)
			sum.Created += ks.Created
			sum.Skipped += ks.Skipped
			sum.Errored += ks.Errored
		}
		for _, w := range logs[i].warnings {
			im.summary.addWarning(w)
		}
	}
}

func isFatal(ctx context.Context, err error) bool {
	var te *StoreTimeoutError
	if errors.As(err, &te) {
		return true
	}
	return ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded))
}

// create calls CreateOrFind under the store timeout.
func (im *importer) create(ctx context.Context, kind store.Kind, key string, attrs store.Attributes) (store.Result, error) {
	cctx, cancel := context.WithTimeout(ctx, im.opts.StoreTimeout)
	defer cancel()
	res, err := im.store.CreateOrFind(cctx, kind, key, attrs)
	return res, im.storeErr(ctx, cctx, "create", kind, key, err)
}

func (im *importer) find(ctx context.Context, kind store.Kind, key string) (string, bool, error) {
	cctx, cancel := context.WithTimeout(ctx, im.opts.StoreTimeout)
	defer cancel()
	id, ok, err := im.store.Find(cctx, kind, key)
	return id, ok, im.storeErr(ctx, cctx, "find", kind, key, err)
}

func (im *importer) patch(ctx context.Context, p store.Patcher, kind store.Kind, key string, attrs store.Attributes) error {
	cctx, cancel := context.WithTimeout(ctx, im.opts.StoreTimeout)
	defer cancel()
	return im.storeErr(ctx, cctx, "patch", kind, key, p.Patch(cctx, kind, key, attrs))
}

func (im *importer) storeErr(parent, call context.Context, op string, kind store.Kind, key string, err error) error {
	if err == nil {
		return nil
	}
	if parent.Err() == nil && errors.Is(call.Err(), context.DeadlineExceeded) {
		return &StoreTimeoutError{Op: op, Kind: kind, NaturalKey: key, Timeout: im.opts.StoreTimeout}
	}
	return err
}

// put stores one entity keyed by its legacy ID and records it in the remap
// table of kind.
func (im *importer) put(ctx context.Context, lg *rowLog, kind store.Kind, legacyID int64, attrs store.Attributes) (string, error) {
	attrs["legacy_id"] = legacyID
	res, err := im.create(ctx, kind, legacyKey(legacyID), attrs)
	if err != nil {
		return "", err
	}
	im.remaps.Table(kind).Set(legacyID, res.ID)
	lg.outcome(kind, res.Created)
	return res.ID, nil
}
