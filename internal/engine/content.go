package engine

import (
	"context"

	"wp-pump/internal/content"
	"wp-pump/internal/record"
	"wp-pump/internal/store"

	"github.com/sirupsen/logrus"
)

type contentStage struct{}

func (contentStage) Name() string { return "content" }
func (contentStage) Reads() []store.Kind {
	return []store.Kind{store.KindMedia, store.KindPost, store.KindPage, store.KindComment, store.KindRedirect}
}
func (contentStage) Writes() []store.Kind { return nil }

// contentField is one rich-text field to rewrite.
type contentField struct {
	kind     store.Kind
	legacyID int64
	ref      string
	fields   map[string]string
}

// Run rewrites post, page and comment bodies against the finished remap
// tables. It only patches entities; it never creates any.
func (contentStage) Run(ctx context.Context, im *importer) error {
	patcher, ok := im.store.(store.Patcher)
	if !ok {
		logrus.Warn("store cannot patch entities; content rewriting skipped")
		return nil
	}
	proc := content.New(content.Options{SiteURL: im.siteURL, MediaURL: im.opts.MediaURL}, resolver{im})

	var items []contentField
	for _, kind := range []store.Kind{store.KindPost, store.KindPage} {
		for _, id := range im.remaps.Table(kind).LegacyIDs() {
			p := im.posts[id]
			items = append(items, contentField{kind: kind, legacyID: id, ref: p.Ref(), fields: map[string]string{
				"content": p.Content(),
				"excerpt": p.Excerpt(),
			}})
		}
	}
	comments := make(map[int64]record.Comment)
	for _, c := range im.set.Comments() {
		comments[c.ID()] = c
	}
	for _, id := range im.remaps.Table(store.KindComment).LegacyIDs() {
		c := comments[id]
		items = append(items, contentField{kind: store.KindComment, legacyID: id, ref: c.Ref(), fields: map[string]string{
			"content": c.Content(),
		}})
	}

	stripped := make([]map[string]int, len(items))
	rewritten := make([]int, len(items))
	err := im.each(ctx, "content", "", len(items), true, func(ctx context.Context, i int, lg *rowLog) error {
		it := items[i]
		lg.at(it.ref)
		lg.kind = it.kind
		patch := store.Attributes{}
		stripped[i] = map[string]int{}
		for _, name := range []string{"content", "excerpt"} {
			in, ok := it.fields[name]
			if !ok || in == "" {
				continue
			}
			res := proc.Process(in)
			for k, n := range res.Stripped {
				stripped[i][k] += n
			}
			for _, u := range res.Unresolved {
				lg.warn(UnresolvedLink, it.kind, "internal link %s has no imported target", u)
			}
			if res.Changed(in) {
				patch[name] = res.Content
				rewritten[i] += res.Rewritten
			}
		}
		if len(patch) == 0 {
			return nil
		}
		return im.patch(ctx, patcher, it.kind, legacyKey(it.legacyID), patch)
	})

	for i := range items {
		for k, n := range stripped[i] {
			im.summary.Stripped[k] += n
		}
		im.summary.Rewritten += rewritten[i]
	}
	return err
}

// resolver answers content lookups from the remap tables and the link
// index built by the redirects stage.
type resolver struct{ im *importer }

func (r resolver) ResolvePath(path string) (string, bool) {
	to, ok := r.im.links[path]
	return to, ok
}

func (r resolver) MediaByID(legacyID int64) (content.MediaRef, bool) {
	id, ok := r.im.remaps.Table(store.KindMedia).Get(legacyID)
	if !ok {
		return content.MediaRef{}, false
	}
	r.im.mu.Lock()
	url := r.im.mediaURLs[legacyID]
	r.im.mu.Unlock()
	return content.MediaRef{ID: id, URL: url}, true
}

func (r resolver) MediaByPath(rel string) (content.MediaRef, bool) {
	legacyID, ok := r.im.mediaPaths[rel]
	if !ok {
		return content.MediaRef{}, false
	}
	return r.MediaByID(legacyID)
}
