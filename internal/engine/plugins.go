package engine

import (
	"context"

	"wp-pump/internal/record"
	"wp-pump/internal/schema"
	"wp-pump/internal/store"
)

// relatedPostColumns link a plugin row to the post it decorates.
var relatedPostColumns = []string{"post_id", "post_ID", "object_id"}

type pluginsStage struct{}

func (pluginsStage) Name() string { return "plugins" }
func (pluginsStage) Reads() []store.Kind {
	return []store.Kind{store.KindPost, store.KindPage}
}
func (pluginsStage) Writes() []store.Kind { return []store.Kind{store.KindPluginData} }

// Run stores every row of unrecognised tables without interpreting it.
func (pluginsStage) Run(ctx context.Context, im *importer) error {
	rows := im.set.ByRole(schema.RolePluginUnknown)
	if im.opts.SkipPluginTables {
		if len(rows) > 0 {
			im.summary.Stats(store.KindPluginData).Skipped += len(rows)
		}
		return nil
	}
	return im.each(ctx, "plugins", store.KindPluginData, len(rows), true, func(ctx context.Context, i int, lg *rowLog) error {
		r := rows[i]
		lg.at(r.Ref())
		attrs := store.Attributes{
			"source_table": r.Table.RawName,
			"plugin":       r.Table.Plugin,
			"payload":      r.Payload(),
		}
		if kind, id, ok := im.relatedPost(r); ok {
			attrs["related_kind"] = string(kind)
			attrs["related_id"] = id
		}
		res, err := im.create(ctx, store.KindPluginData, r.Ref(), attrs)
		if err != nil {
			return err
		}
		lg.outcome(store.KindPluginData, res.Created)
		return nil
	})
}

func (im *importer) relatedPost(r *record.Record) (store.Kind, string, bool) {
	for _, col := range relatedPostColumns {
		if !r.Has(col) {
			continue
		}
		if id := r.Int(col); id != 0 {
			return im.remaps.Lookup(id, store.KindPost, store.KindPage)
		}
	}
	return "", "", false
}
