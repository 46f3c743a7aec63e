// Package content rewrites imported rich text so that it works in the target
// system: internal links, media references and bracket shortcodes.
// It performs lookups only; it never creates entities.
package content

import (
	"net/url"
	"sort"
	"strings"
)

// MediaRef is an imported media entity as seen by the content pass.
type MediaRef struct {
	ID  string // target entity ID
	URL string // public URL of the stored file
}

// Resolver answers lookups against the finished remap tables.
type Resolver interface {
	// ResolvePath maps a legacy site path ("/2021/03/hello/", "/?p=12")
	// to its target-system URL.
	ResolvePath(path string) (string, bool)
	// MediaByID resolves a legacy attachment ID.
	MediaByID(legacyID int64) (MediaRef, bool)
	// MediaByPath resolves a path relative to the uploads directory.
	MediaByPath(rel string) (MediaRef, bool)
}

// Options configure a Processor.
type Options struct {
	SiteURL  string // legacy site base URL, e.g. https://old.example.org
	MediaURL string // public prefix of stored media, e.g. /media/
}

// Result is the outcome of processing one field.
type Result struct {
	Content    string
	Stripped   map[string]int // shortcode name -> times removed without equivalent
	Unresolved []string       // absolute internal links left untouched
	Rewritten  int            // links and media references rewritten
}

// Changed reports whether the content differs from the input.
func (r Result) Changed(in string) bool { return r.Content != in }

// Processor is safe for concurrent use once built.
type Processor struct {
	resolver Resolver
	mediaURL string
	siteHost string
	sitePath string
}

func New(opts Options, r Resolver) *Processor {
	p := &Processor{resolver: r, mediaURL: opts.MediaURL}
	if p.mediaURL == "" {
		p.mediaURL = "/media/"
	}
	if !strings.HasSuffix(p.mediaURL, "/") {
		p.mediaURL += "/"
	}
	if u, err := url.Parse(strings.TrimSpace(opts.SiteURL)); err == nil && u.Host != "" {
		p.siteHost = normalizeHost(u.Host)
		p.sitePath = strings.TrimRight(u.Path, "/")
	}
	return p
}

// Process applies every transformation to one content field.
func (p *Processor) Process(html string) Result {
	res := Result{Stripped: map[string]int{}}
	if html == "" {
		return res
	}
	out := p.expandShortcodes(html, &res)
	out = p.rewriteTags(out, &res)
	out = cleanup(out)
	res.Content = out
	return res
}

// StrippedKinds returns the names in stripped sorted, for reports.
func StrippedKinds(stripped map[string]int) []string {
	names := make([]string, 0, len(stripped))
	for n := range stripped {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func normalizeHost(h string) string {
	h = strings.ToLower(h)
	return strings.TrimPrefix(h, "www.")
}
