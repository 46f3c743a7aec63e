package content

import (
	"io"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

var (
	uploadsRe = regexp.MustCompile(`^(?:(?:https?:)?//[^/]+)?(?:/[^?#]*)?/wp-content/uploads/([^?#]+)`)
	sizedRe   = regexp.MustCompile(`-\d+x\d+(\.[A-Za-z0-9]+)$`)
	wpImageRe = regexp.MustCompile(`\bwp-image-(\d+)\b`)
)

// urlAttrs lists the attributes holding a single URL per tag.
var urlAttrs = map[string][]string{
	"a":      {"href"},
	"link":   {"href"},
	"img":    {"src"},
	"iframe": {"src"},
	"audio":  {"src"},
	"video":  {"src", "poster"},
	"source": {"src"},
	"embed":  {"src"},
}

// rewriteTags walks the markup with an HTML tokenizer and rewrites URL
// attributes of start tags. Tokens that need no change are copied verbatim.
func (p *Processor) rewriteTags(s string, res *Result) string {
	z := html.NewTokenizer(strings.NewReader(s))
	var sb strings.Builder
	sb.Grow(len(s))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if z.Err() != io.EOF {
				// unparseable tail is kept as-is
				sb.Write(z.Raw())
			}
			break
		}
		raw := string(z.Raw())
		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			sb.WriteString(raw)
			continue
		}
		tok := z.Token()
		if p.rewriteToken(&tok, res) {
			sb.WriteString(tok.String())
		} else {
			sb.WriteString(raw)
		}
	}
	return sb.String()
}

func (p *Processor) rewriteToken(tok *html.Token, res *Result) bool {
	changed := false
	var mediaID string
	for i, a := range tok.Attr {
		switch {
		case a.Key == "srcset" && (tok.Data == "img" || tok.Data == "source"):
			if v, ok := p.rewriteSrcset(a.Val, res); ok {
				tok.Attr[i].Val = v
				changed = true
			}
		case containsKey(urlAttrs[tok.Data], a.Key):
			v, ref, ok := p.rewriteURL(a.Val, res)
			if ok {
				tok.Attr[i].Val = v
				changed = true
			}
			if ref != nil && tok.Data == "img" && a.Key == "src" {
				mediaID = ref.ID
			}
		case a.Key == "class" && tok.Data == "img":
			if m := wpImageRe.FindStringSubmatch(a.Val); m != nil {
				id, _ := strconv.ParseInt(m[1], 10, 64)
				if ref, ok := p.resolver.MediaByID(id); ok {
					tok.Attr[i].Val = strings.Join(strings.Fields(wpImageRe.ReplaceAllString(a.Val, "")), " ")
					mediaID = ref.ID
					res.Rewritten++
					changed = true
				}
			}
		}
	}

	if tok.Data != "img" {
		return changed
	}
	if mediaID != "" && !hasAttr(tok, "data-media-id") {
		tok.Attr = append(tok.Attr, html.Attribute{Key: "data-media-id", Val: mediaID})
		changed = true
	}
	if !hasAttr(tok, "loading") {
		tok.Attr = append(tok.Attr, html.Attribute{Key: "loading", Val: "lazy"})
		changed = true
	}
	return changed
}

// rewriteURL maps one URL. ref is set when the URL points at a known media
// entity.
func (p *Processor) rewriteURL(raw string, res *Result) (string, *MediaRef, bool) {
	u := strings.TrimSpace(raw)
	if u == "" {
		return raw, nil, false
	}

	if m := uploadsRe.FindStringSubmatch(u); m != nil {
		rel := m[1]
		if dec, err := url.PathUnescape(rel); err == nil {
			rel = dec
		}
		res.Rewritten++
		if ref, ok := p.resolver.MediaByPath(rel); ok {
			return ref.URL, &ref, true
		}
		if orig := sizedRe.ReplaceAllString(rel, "$1"); orig != rel {
			if ref, ok := p.resolver.MediaByPath(orig); ok {
				return ref.URL, &ref, true
			}
		}
		return p.mediaURL + "uploads/" + rel, nil, true
	}

	parsed, err := url.Parse(u)
	if err != nil {
		return raw, nil, false
	}
	absolute := parsed.Host != ""
	if absolute {
		if !p.isSiteURL(u) {
			return raw, nil, false
		}
	} else if !strings.HasPrefix(parsed.Path, "/") {
		return raw, nil, false
	}

	path := parsed.Path
	if absolute && p.sitePath != "" {
		path = strings.TrimPrefix(path, p.sitePath)
	}
	if path == "" {
		path = "/"
	}
	if parsed.RawQuery != "" {
		path += "?" + parsed.RawQuery
	}
	target, ok := p.resolvePath(path)
	if !ok {
		if absolute {
			res.Unresolved = append(res.Unresolved, u)
		}
		return raw, nil, false
	}
	if parsed.Fragment != "" {
		target += "#" + parsed.Fragment
	}
	res.Rewritten++
	return target, nil, true
}

func (p *Processor) resolvePath(path string) (string, bool) {
	if t, ok := p.resolver.ResolvePath(path); ok {
		return t, true
	}
	if strings.Contains(path, "?") {
		return "", false
	}
	if strings.HasSuffix(path, "/") {
		return p.resolver.ResolvePath(strings.TrimSuffix(path, "/"))
	}
	return p.resolver.ResolvePath(path + "/")
}

func (p *Processor) rewriteSrcset(val string, res *Result) (string, bool) {
	parts := strings.Split(val, ",")
	changed := false
	for i, part := range parts {
		fields := strings.Fields(part)
		if len(fields) == 0 {
			continue
		}
		if v, _, ok := p.rewriteURL(fields[0], res); ok {
			fields[0] = v
			changed = true
		}
		parts[i] = strings.Join(fields, " ")
	}
	if !changed {
		return val, false
	}
	return strings.Join(parts, ", "), true
}

// isSiteURL reports whether u is relative or points at the legacy site.
func (p *Processor) isSiteURL(u string) bool {
	if strings.HasPrefix(u, "/") && !strings.HasPrefix(u, "//") {
		return true
	}
	if p.siteHost == "" {
		return false
	}
	if strings.HasPrefix(u, "//") {
		u = "http:" + u
	}
	parsed, err := url.Parse(u)
	if err != nil {
		return false
	}
	return normalizeHost(parsed.Host) == p.siteHost
}

func containsKey(keys []string, k string) bool {
	for _, v := range keys {
		if v == k {
			return true
		}
	}
	return false
}

func hasAttr(tok *html.Token, key string) bool {
	for _, a := range tok.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}
