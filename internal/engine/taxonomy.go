package engine

import (
	"context"
	"strconv"

	"wp-pump/internal/record"
	"wp-pump/internal/schema"
	"wp-pump/internal/store"
)

// taxonomyKinds maps the taxonomy column onto target kinds. Other
// taxonomies (nav_menu, post_format, product_cat...) are not imported here.
var taxonomyKinds = map[string]store.Kind{
	"category": store.KindCategory,
	"post_tag": store.KindTag,
}

type taxonomyStage struct{}

func (taxonomyStage) Name() string        { return "taxonomy" }
func (taxonomyStage) Reads() []store.Kind { return nil }
func (taxonomyStage) Writes() []store.Kind {
	return []store.Kind{store.KindCategory, store.KindTag}
}

type termRow struct {
	tt   record.TermTaxonomy
	term record.Term
	kind store.Kind
	slug string
}

func (taxonomyStage) Run(ctx context.Context, im *importer) error {
	terms := make(map[int64]record.Term)
	for _, t := range im.set.Terms() {
		terms[t.ID()] = t
	}

	for _, kind := range []store.Kind{store.KindCategory, store.KindTag} {
		rows := termRows(im.set.TermTaxonomies(), terms, kind)
		byTerm := make(map[int64]int64, len(rows))
		slugs := newSlugger()
		for i := range rows {
			byTerm[rows[i].term.ID()] = rows[i].tt.ID()
			rows[i].slug = slugs.next(rows[i].term.Slug(), rows[i].term.Name())
			im.setSlug(kind, rows[i].tt.ID(), rows[i].slug)
		}
		im.termTaxonomy[kind] = byTerm

		remap := im.remaps.Table(kind)
		err := im.each(ctx, "taxonomy", kind, len(rows), false, func(ctx context.Context, i int, lg *rowLog) error {
			r := rows[i]
			lg.at(r.tt.Ref())
			attrs := store.Attributes{
				"name":        firstNonEmpty(r.term.Name(), r.slug),
				"slug":        r.slug,
				"description": r.tt.Description(),
				"term_id":     r.term.ID(),
			}
			if parent := r.tt.Parent(); parent != 0 {
				if id, ok := lookupTerm(remap, byTerm, parent); ok {
					attrs["parent"] = id
				} else {
					lg.warn(UnresolvedReference, kind, "parent term %d not found", parent)
				}
			}
			_, err := im.put(ctx, lg, kind, r.tt.ID(), attrs)
			return err
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// termRows selects the taxonomy rows of kind, parents before children.
func termRows(all []record.TermTaxonomy, terms map[int64]record.Term, kind store.Kind) []termRow {
	byName := make(map[string]termRow)
	var nodes []*schema.Node
	for _, tt := range all {
		if taxonomyKinds[tt.Taxonomy()] != kind {
			continue
		}
		term, ok := terms[tt.TermID()]
		if !ok {
			term = record.Term{Record: tt.Record}
		}
		name := strconv.FormatInt(tt.TermID(), 10)
		byName[name] = termRow{tt: tt, term: term, kind: kind}
		n := &schema.Node{Name: name}
		if tt.Parent() != 0 {
			n.Dependencies = []string{strconv.FormatInt(tt.Parent(), 10)}
		}
		nodes = append(nodes, n)
	}
	sorted, _ := schema.SortByDependencies(nodes)
	out := make([]termRow, 0, len(sorted))
	for _, n := range sorted {
		out = append(out, byName[n.Name])
	}
	return out
}

// lookupTerm resolves a legacy term_id through the term_taxonomy remap.
func lookupTerm(remap *RemapTable, byTerm map[int64]int64, termID int64) (string, bool) {
	ttID, ok := byTerm[termID]
	if !ok {
		return "", false
	}
	return remap.Get(ttID)
}
