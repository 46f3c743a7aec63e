package engine

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"wp-pump/internal/record"
	"wp-pump/internal/store"
)

type redirectsStage struct{}

func (redirectsStage) Name() string { return "redirects" }
func (redirectsStage) Reads() []store.Kind {
	return []store.Kind{store.KindUser, store.KindPost, store.KindPage, store.KindCategory, store.KindTag}
}
func (redirectsStage) Writes() []store.Kind { return []store.Kind{store.KindRedirect} }

// legacyLink pairs a legacy site path with the URL of the imported entity.
type legacyLink struct {
	from, to string
	kind     store.Kind
	legacyID int64
}

// Run reconstructs legacy URLs of every imported post, page and term,
// whatever its status, and emits a redirect wherever the target route
// differs. Every pair also feeds the link index used by the content stage.
func (redirectsStage) Run(ctx context.Context, im *importer) error {
	links := im.legacyLinks()
	im.links["/"] = "/"
	for _, l := range links {
		if _, ok := im.links[l.from]; !ok {
			im.links[l.from] = l.to
		}
	}

	var redirects []legacyLink
	seen := make(map[string]bool)
	for _, l := range links {
		if l.from == l.to || seen[l.from] {
			continue
		}
		seen[l.from] = true
		redirects = append(redirects, l)
	}

	return im.each(ctx, "redirects", store.KindRedirect, len(redirects), false, func(ctx context.Context, i int, lg *rowLog) error {
		l := redirects[i]
		lg.at(fmt.Sprintf("%s#%d", l.kind, l.legacyID))
		target, _ := im.remaps.Table(l.kind).Get(l.legacyID)
		res, err := im.create(ctx, store.KindRedirect, "redirect:"+l.from, store.Attributes{
			"from":        l.from,
			"to":          l.to,
			"status":      301,
			"target_kind": string(l.kind),
			"target_id":   target,
		})
		if err != nil {
			return err
		}
		lg.outcome(store.KindRedirect, res.Created)
		return nil
	})
}

func (im *importer) legacyLinks() []legacyLink {
	var out []legacyLink
	structure := im.options["permalink_structure"]
	cats := newCategoryPaths(im)
	users := make(map[int64]record.User)
	for _, u := range im.set.Users() {
		users[u.ID()] = u
	}

	for _, id := range im.remaps.Table(store.KindPost).LegacyIDs() {
		p, ok := im.posts[id]
		if !ok {
			continue
		}
		to := route(im.opts.Routes.Post, im.slug(store.KindPost, id), "")
		if structure != "" {
			if from := permalink(structure, p, cats.first(im.relationships()[id]), users[p.Author()]); from != "" {
				out = append(out, legacyLink{from: from, to: to, kind: store.KindPost, legacyID: id})
			}
		}
		out = append(out, legacyLink{from: "/?p=" + strconv.FormatInt(id, 10), to: to, kind: store.KindPost, legacyID: id})
	}

	for _, id := range im.remaps.Table(store.KindPage).LegacyIDs() {
		_, ok := im.posts[id]
		if !ok {
			continue
		}
		to := route(im.opts.Routes.Page, im.slug(store.KindPage, id), im.pagePath(id, true))
		if legacy := im.pagePath(id, false); legacy != "" {
			out = append(out, legacyLink{from: "/" + legacy + "/", to: to, kind: store.KindPage, legacyID: id})
		}
		out = append(out, legacyLink{from: "/?page_id=" + strconv.FormatInt(id, 10), to: to, kind: store.KindPage, legacyID: id})
	}

	bases := map[store.Kind]string{
		store.KindCategory: firstNonEmpty(strings.Trim(im.options["category_base"], "/"), "category"),
		store.KindTag:      firstNonEmpty(strings.Trim(im.options["tag_base"], "/"), "tag"),
	}
	patterns := map[store.Kind]string{store.KindCategory: im.opts.Routes.Category, store.KindTag: im.opts.Routes.Tag}
	for _, kind := range []store.Kind{store.KindCategory, store.KindTag} {
		for _, ttID := range im.remaps.Table(kind).LegacyIDs() {
			legacy := cats.slugOf(kind, ttID)
			if legacy == "" {
				continue
			}
			to := route(patterns[kind], im.slug(kind, ttID), "")
			out = append(out, legacyLink{from: "/" + bases[kind] + "/" + legacy + "/", to: to, kind: kind, legacyID: ttID})
		}
	}
	return out
}

// pagePath joins the slugs of a page and its ancestors. target selects
// imported slugs, otherwise the legacy post_name values are used.
func (im *importer) pagePath(id int64, target bool) string {
	var parts []string
	seen := make(map[int64]bool)
	for id != 0 && !seen[id] {
		seen[id] = true
		p, ok := im.posts[id]
		if !ok {
			break
		}
		slug := p.Name()
		if target {
			slug = im.slug(store.KindPage, id)
		}
		if slug == "" {
			return ""
		}
		parts = append([]string{slug}, parts...)
		id = p.Parent()
	}
	return strings.Join(parts, "/")
}

// permalink expands a permalink_structure for one post.
func permalink(structure string, p record.Post, category string, author record.User) string {
	name := p.Name()
	if name == "" && strings.Contains(structure, "%postname%") {
		return ""
	}
	t, _ := parseDate(p.Date())
	authorSlug := ""
	if author.Record != nil {
		authorSlug = firstNonEmpty(author.Nicename(), author.Login())
	}
	r := strings.NewReplacer(
		"%year%", fmt.Sprintf("%04d", t.Year()),
		"%monthnum%", fmt.Sprintf("%02d", int(t.Month())),
		"%day%", fmt.Sprintf("%02d", t.Day()),
		"%hour%", fmt.Sprintf("%02d", t.Hour()),
		"%minute%", fmt.Sprintf("%02d", t.Minute()),
		"%second%", fmt.Sprintf("%02d", t.Second()),
		"%postname%", name,
		"%post_id%", strconv.FormatInt(p.ID(), 10),
		"%category%", firstNonEmpty(category, "uncategorized"),
		"%author%", authorSlug,
	)
	path := r.Replace(structure)
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path
}

// categoryPaths resolves legacy term slugs, with parent paths for
// categories as WordPress builds them for %category%.
type categoryPaths struct {
	im     *importer
	terms  map[int64]record.Term
	parent map[int64]int64 // category term_id -> parent term_id
	ttTerm map[int64]int64 // term_taxonomy_id -> term_id
}

func newCategoryPaths(im *importer) *categoryPaths {
	c := &categoryPaths{
		im:     im,
		terms:  make(map[int64]record.Term),
		parent: make(map[int64]int64),
		ttTerm: make(map[int64]int64),
	}
	for _, t := range im.set.Terms() {
		c.terms[t.ID()] = t
	}
	for _, tt := range im.set.TermTaxonomies() {
		c.ttTerm[tt.ID()] = tt.TermID()
		if tt.Taxonomy() == "category" {
			c.parent[tt.TermID()] = tt.Parent()
		}
	}
	return c
}

func (c *categoryPaths) slugOf(kind store.Kind, ttID int64) string {
	termID := c.ttTerm[ttID]
	if kind != store.KindCategory {
		if t, ok := c.terms[termID]; ok {
			return t.Slug()
		}
		return ""
	}
	var parts []string
	seen := make(map[int64]bool)
	for termID != 0 && !seen[termID] {
		seen[termID] = true
		t, ok := c.terms[termID]
		if !ok || t.Slug() == "" {
			break
		}
		parts = append([]string{t.Slug()}, parts...)
		termID = c.parent[termID]
	}
	return strings.Join(parts, "/")
}

// first returns the path of the first category among ttIDs.
func (c *categoryPaths) first(ttIDs []int64) string {
	for _, tt := range ttIDs {
		if _, ok := c.im.remaps.Table(store.KindCategory).Get(tt); ok {
			return c.slugOf(store.KindCategory, tt)
		}
	}
	return ""
}
