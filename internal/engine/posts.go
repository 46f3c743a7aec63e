package engine

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"strings"

	"wp-pump/internal/blob"
	"wp-pump/internal/record"
	"wp-pump/internal/schema"
	"wp-pump/internal/store"
)

var guidUploadRe = regexp.MustCompile(`/wp-content/uploads/([^?#]+)`)

// postKinds maps post_type onto target kinds. Menu items are handled by
// the menus stage; revisions and custom types are not imported.
var postKinds = map[string]store.Kind{
	"attachment": store.KindMedia,
	"post":       store.KindPost,
	"page":       store.KindPage,
}

type postsStage struct{}

func (postsStage) Name() string { return "posts" }
func (postsStage) Reads() []store.Kind {
	return []store.Kind{store.KindUser, store.KindCategory, store.KindTag}
}
func (postsStage) Writes() []store.Kind {
	return []store.Kind{store.KindMedia, store.KindPost, store.KindPage}
}

// postItem is a post row with its precomputed target slug.
type postItem struct {
	post record.Post
	slug string
	file string // media only: path relative to uploads
}

func (postsStage) Run(ctx context.Context, im *importer) error {
	byKind := map[store.Kind][]postItem{}
	for _, p := range im.set.Posts() {
		if kind, ok := postKinds[p.TypeOr("post")]; ok {
			byKind[kind] = append(byKind[kind], postItem{post: p})
		}
	}
	byKind[store.KindPage] = parentsFirst(byKind[store.KindPage])

	// Slugs are assigned before any worker starts so they do not depend on
	// scheduling.
	for kind, items := range byKind {
		slugs := newSlugger()
		for i := range items {
			p := items[i].post
			items[i].slug = slugs.next(p.Name(), p.Title())
			im.setSlug(kind, p.ID(), items[i].slug)
		}
	}
	for i, it := range byKind[store.KindMedia] {
		file := attachedFile(it.post, im.postMeta[it.post.ID()])
		byKind[store.KindMedia][i].file = file
		if file != "" {
			im.mediaPaths[file] = it.post.ID()
		}
	}

	media := byKind[store.KindMedia]
	if err := im.each(ctx, "media", store.KindMedia, len(media), true, func(ctx context.Context, i int, lg *rowLog) error {
		return im.importMedia(ctx, lg, media[i])
	}); err != nil {
		return err
	}

	posts := byKind[store.KindPost]
	if err := im.each(ctx, "posts", store.KindPost, len(posts), true, func(ctx context.Context, i int, lg *rowLog) error {
		lg.at(posts[i].post.Ref())
		_, err := im.put(ctx, lg, store.KindPost, posts[i].post.ID(), im.postAttrs(lg, store.KindPost, posts[i]))
		return err
	}); err != nil {
		return err
	}

	pages := byKind[store.KindPage]
	return im.each(ctx, "pages", store.KindPage, len(pages), false, func(ctx context.Context, i int, lg *rowLog) error {
		it := pages[i]
		lg.at(it.post.Ref())
		attrs := im.postAttrs(lg, store.KindPage, it)
		attrs["menu_order"] = it.post.MenuOrder()
		if parent := it.post.Parent(); parent != 0 {
			if id, ok := im.remaps.Table(store.KindPage).Get(parent); ok {
				attrs["parent"] = id
			} else {
				lg.warn(UnresolvedReference, store.KindPage, "parent page %d not found", parent)
			}
		}
		_, err := im.put(ctx, lg, store.KindPage, it.post.ID(), attrs)
		return err
	})
}

func (im *importer) importMedia(ctx context.Context, lg *rowLog, it postItem) error {
	p := it.post
	lg.at(p.Ref())
	meta := im.postMeta[p.ID()]
	attrs := store.Attributes{
		"title":       p.Title(),
		"slug":        it.slug,
		"mime_type":   p.MimeType(),
		"alt":         meta.Get("_wp_attachment_image_alt"),
		"caption":     p.Excerpt(),
		"description": p.Content(),
		"source_url":  p.GUID(),
	}
	setDate(attrs, "uploaded_at", p.Date())
	if parent := p.Parent(); parent != 0 {
		attrs["attached_to"] = parent
	}

	url := p.GUID()
	if it.file != "" {
		attrs["path"] = it.file
		url = strings.TrimSuffix(im.opts.MediaURL, "/") + "/uploads/" + it.file
		if im.blobs != nil {
			ref, err := im.storeBlob(ctx, it.file)
			switch {
			case err == nil:
				attrs["file"] = ref
				url = strings.TrimSuffix(im.opts.MediaURL, "/") + "/" + ref
			case errors.Is(err, blob.ErrNotFound):
				lg.warn(MediaMissing, store.KindMedia, "file %s not found; stored metadata only", it.file)
			default:
				if isFatal(ctx, err) {
					return err
				}
				lg.warn(MediaMissing, store.KindMedia, "file %s not copied: %v", it.file, err)
			}
		}
	}
	attrs["url"] = url

	if _, err := im.put(ctx, lg, store.KindMedia, p.ID(), attrs); err != nil {
		return err
	}
	im.mu.Lock()
	im.mediaURLs[p.ID()] = url
	im.mu.Unlock()
	return nil
}

// storeBlob copies a media file, or only checks it exists on a dry run.
func (im *importer) storeBlob(ctx context.Context, rel string) (string, error) {
	if im.opts.DryRun {
		return im.blobs.Stat(ctx, rel)
	}
	return im.blobs.StoreFile(ctx, rel)
}

// postAttrs builds the attributes shared by posts and pages. SEO meta is
// buffered per legacy post ID and merged here, when the entity is created.
func (im *importer) postAttrs(lg *rowLog, kind store.Kind, it postItem) store.Attributes {
	p := it.post
	meta := im.postMeta[p.ID()]
	attrs := store.Attributes{
		"title":   p.Title(),
		"slug":    it.slug,
		"content": p.Content(),
		"excerpt": p.Excerpt(),
		"status":  postStatus(p.Status()),
	}
	setDate(attrs, "published_at", p.Date())
	setDate(attrs, "modified_at", p.Modified())

	if title := meta.First(im.opts.SEO.Title...); title != "" {
		attrs["seo_title"] = title
	}
	if desc := meta.First(im.opts.SEO.Description...); desc != "" {
		attrs["seo_description"] = desc
	}

	if author := p.Author(); author != 0 {
		if id, ok := im.remaps.Table(store.KindUser).Get(author); ok {
			attrs["author"] = id
		} else {
			lg.warn(UnresolvedReference, kind, "author %d not found", author)
		}
	}

	if thumb := meta.Get("_thumbnail_id"); thumb != "" {
		legacy, _ := strconv.ParseInt(thumb, 10, 64)
		if id, ok := im.remaps.Table(store.KindMedia).Get(legacy); ok {
			attrs["featured_media"] = id
		} else {
			lg.warn(UnresolvedReference, kind, "featured media %s not found", thumb)
		}
	}

	var cats, tags []string
	for _, tt := range im.relationships()[p.ID()] {
		if id, ok := im.remaps.Table(store.KindCategory).Get(tt); ok {
			cats = append(cats, id)
		} else if id, ok := im.remaps.Table(store.KindTag).Get(tt); ok {
			tags = append(tags, id)
		}
	}
	if len(cats) > 0 {
		attrs["categories"] = cats
	}
	if len(tags) > 0 {
		attrs["tags"] = tags
	}
	return attrs
}

// relationships returns object_id -> term_taxonomy_ids in dump order.
// Computed by the first serial caller and read-only afterwards.
func (im *importer) relationships() map[int64][]int64 {
	im.relOnce.Do(func() {
		im.rels = make(map[int64][]int64)
		for _, r := range im.set.TermRelationships() {
			im.rels[r.ObjectID()] = append(im.rels[r.ObjectID()], r.TermTaxonomyID())
		}
	})
	return im.rels
}

// attachedFile finds an attachment's path relative to the uploads directory.
func attachedFile(p record.Post, meta record.MetaBag) string {
	if f := strings.TrimLeft(meta.Get("_wp_attached_file"), "/"); f != "" {
		return f
	}
	if m := guidUploadRe.FindStringSubmatch(p.GUID()); m != nil {
		return m[1]
	}
	return ""
}

// parentsFirst orders hierarchical posts so parents precede children,
// keeping dump order otherwise.
func parentsFirst(items []postItem) []postItem {
	if len(items) < 2 {
		return items
	}
	byName := make(map[string]postItem, len(items))
	nodes := make([]*schema.Node, 0, len(items))
	for _, it := range items {
		name := strconv.FormatInt(it.post.ID(), 10)
		byName[name] = it
		n := &schema.Node{Name: name}
		if parent := it.post.Parent(); parent != 0 {
			n.Dependencies = []string{strconv.FormatInt(parent, 10)}
		}
		nodes = append(nodes, n)
	}
	sorted, _ := schema.SortByDependencies(nodes)
	out := make([]postItem, 0, len(sorted))
	for _, n := range sorted {
		out = append(out, byName[n.Name])
	}
	return out
}
