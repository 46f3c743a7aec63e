package engine

import (
	"context"
	"sort"
	"strconv"

	"wp-pump/internal/record"
	"wp-pump/internal/schema"
	"wp-pump/internal/store"
)

type menusStage struct{}

func (menusStage) Name() string { return "menus" }
func (menusStage) Reads() []store.Kind {
	return []store.Kind{store.KindPost, store.KindPage, store.KindCategory, store.KindTag}
}
func (menusStage) Writes() []store.Kind {
	return []store.Kind{store.KindMenu, store.KindMenuItem}
}

type menuItem struct {
	post   record.Post
	menu   int64 // term_taxonomy_id of the menu, 0 when unknown
	parent int64 // legacy ID of the parent item
}

func (menusStage) Run(ctx context.Context, im *importer) error {
	terms := make(map[int64]record.Term)
	for _, t := range im.set.Terms() {
		terms[t.ID()] = t
	}
	var menus []record.TermTaxonomy
	isMenu := make(map[int64]bool)
	for _, tt := range im.set.TermTaxonomies() {
		if tt.Taxonomy() == "nav_menu" {
			menus = append(menus, tt)
			isMenu[tt.ID()] = true
		}
	}

	slugs := newSlugger()
	err := im.each(ctx, "menus", store.KindMenu, len(menus), false, func(ctx context.Context, i int, lg *rowLog) error {
		tt := menus[i]
		lg.at(tt.Ref())
		var name, slug string
		if term, ok := terms[tt.TermID()]; ok {
			name, slug = term.Name(), term.Slug()
		}
		attrs := store.Attributes{
			"name": firstNonEmpty(name, "menu-"+strconv.FormatInt(tt.ID(), 10)),
			"slug": slugs.next(slug, name, "menu"),
		}
		_, err := im.put(ctx, lg, store.KindMenu, tt.ID(), attrs)
		return err
	})
	if err != nil {
		return err
	}

	items := menuItems(im, isMenu)
	return im.each(ctx, "menu items", store.KindMenuItem, len(items), false, func(ctx context.Context, i int, lg *rowLog) error {
		return im.importMenuItem(ctx, lg, items[i], terms)
	})
}

// menuItems collects nav_menu_item posts ordered by menu, then position,
// with parents before children.
func menuItems(im *importer, isMenu map[int64]bool) []menuItem {
	var items []menuItem
	for _, p := range im.set.Posts() {
		if p.Type() != "nav_menu_item" {
			continue
		}
		it := menuItem{post: p}
		for _, tt := range im.relationships()[p.ID()] {
			if isMenu[tt] {
				it.menu = tt
				break
			}
		}
		it.parent, _ = strconv.ParseInt(im.postMeta[p.ID()].Get("_menu_item_menu_item_parent"), 10, 64)
		items = append(items, it)
	}
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.menu != b.menu {
			return a.menu < b.menu
		}
		if a.post.MenuOrder() != b.post.MenuOrder() {
			return a.post.MenuOrder() < b.post.MenuOrder()
		}
		return a.post.ID() < b.post.ID()
	})

	byName := make(map[string]menuItem, len(items))
	nodes := make([]*schema.Node, 0, len(items))
	for _, it := range items {
		name := strconv.FormatInt(it.post.ID(), 10)
		byName[name] = it
		n := &schema.Node{Name: name}
		if it.parent != 0 {
			n.Dependencies = []string{strconv.FormatInt(it.parent, 10)}
		}
		nodes = append(nodes, n)
	}
	sorted, _ := schema.SortByDependencies(nodes)
	out := make([]menuItem, 0, len(sorted))
	for _, n := range sorted {
		out = append(out, byName[n.Name])
	}
	return out
}

func (im *importer) importMenuItem(ctx context.Context, lg *rowLog, it menuItem, terms map[int64]record.Term) error {
	p := it.post
	lg.at(p.Ref())
	meta := im.postMeta[p.ID()]

	menuID, ok := im.remaps.Table(store.KindMenu).Get(it.menu)
	if !ok {
		lg.stat(store.KindMenuItem).Skipped++
		lg.warn(UnresolvedReference, store.KindMenuItem, "menu item %d belongs to no imported menu", p.ID())
		return nil
	}

	attrs := store.Attributes{
		"menu":     menuID,
		"position": p.MenuOrder(),
		"target":   meta.Get("_menu_item_target"),
	}
	title := p.Title()
	objectID, _ := strconv.ParseInt(meta.Get("_menu_item_object_id"), 10, 64)
	object := meta.Get("_menu_item_object")

	switch meta.Get("_menu_item_type") {
	case "post_type":
		if kind, id, ok := im.remaps.Lookup(objectID, store.KindPost, store.KindPage); ok {
			attrs["link_kind"] = string(kind)
			attrs["link_id"] = id
			if title == "" {
				title = im.posts[objectID].Title()
			}
		} else {
			lg.warn(UnresolvedReference, store.KindMenuItem, "%s %d not found", firstNonEmpty(object, "post"), objectID)
		}
	case "taxonomy":
		kind := taxonomyKinds[object]
		if id, ok := lookupTerm(im.remaps.Table(kind), im.termTaxonomy[kind], objectID); ok && kind != "" {
			attrs["link_kind"] = string(kind)
			attrs["link_id"] = id
			if t, ok := terms[objectID]; ok && title == "" {
				title = t.Name()
			}
		} else {
			lg.warn(UnresolvedReference, store.KindMenuItem, "%s %d not found", firstNonEmpty(object, "term"), objectID)
		}
	default:
		attrs["link_kind"] = "custom"
		attrs["url"] = meta.Get("_menu_item_url")
	}
	attrs["title"] = title

	if it.parent != 0 {
		if id, ok := im.remaps.Table(store.KindMenuItem).Get(it.parent); ok {
			attrs["parent"] = id
		} else {
			lg.warn(UnresolvedReference, store.KindMenuItem, "parent item %d not found", it.parent)
		}
	}
	_, err := im.put(ctx, lg, store.KindMenuItem, p.ID(), attrs)
	return err
}
