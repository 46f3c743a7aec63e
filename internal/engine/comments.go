package engine

import (
	"context"
	"sort"

	"wp-pump/internal/record"
	"wp-pump/internal/store"
)

type commentsStage struct{}

func (commentsStage) Name() string { return "comments" }
func (commentsStage) Reads() []store.Kind {
	return []store.Kind{store.KindUser, store.KindPost, store.KindPage}
}
func (commentsStage) Writes() []store.Kind { return []store.Kind{store.KindComment} }

// Run imports comments in ascending legacy ID order, so a reply can only
// point at a comment that was imported before it.
func (commentsStage) Run(ctx context.Context, im *importer) error {
	comments := im.set.Comments()
	sort.SliceStable(comments, func(i, j int) bool { return comments[i].ID() < comments[j].ID() })
	remap := im.remaps.Table(store.KindComment)

	return im.each(ctx, "comments", store.KindComment, len(comments), false, func(ctx context.Context, i int, lg *rowLog) error {
		c := comments[i]
		lg.at(c.Ref())

		kind, postID, ok := im.remaps.Lookup(c.PostID(), store.KindPost, store.KindPage)
		if !ok {
			lg.stat(store.KindComment).Skipped++
			lg.warn(UnresolvedReference, store.KindComment, "post %d not imported; comment skipped", c.PostID())
			return nil
		}

		attrs := commentAttrs(c)
		attrs["post"] = postID
		attrs["post_kind"] = string(kind)
		if parent := c.Parent(); parent != 0 {
			if id, ok := remap.Get(parent); ok {
				attrs["parent"] = id
			} else {
				lg.warn(UnresolvedReference, store.KindComment, "parent comment %d not found", parent)
			}
		}
		if uid := c.UserID(); uid != 0 {
			if id, ok := im.remaps.Table(store.KindUser).Get(uid); ok {
				attrs["user"] = id
			} else {
				lg.warn(UnresolvedReference, store.KindComment, "user %d not found", uid)
			}
		}
		_, err := im.put(ctx, lg, store.KindComment, c.ID(), attrs)
		return err
	})
}

func commentAttrs(c record.Comment) store.Attributes {
	attrs := store.Attributes{
		"author_name":  c.Author(),
		"author_email": c.AuthorEmail(),
		"author_url":   c.AuthorURL(),
		"content":      c.Content(),
		"status":       commentStatus(c.Approved()),
		"type":         firstNonEmpty(c.Str("comment_type"), "comment"),
	}
	setDate(attrs, "created_at", c.Date())
	return attrs
}
