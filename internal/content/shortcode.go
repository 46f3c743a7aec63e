package content

import (
	"fmt"
	"html"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

var (
	attrRe      = regexp.MustCompile(`([\w-]+)\s*=\s*(?:"([^"]*)"|'([^']*)'|([^\s"']+))|"([^"]*)"|'([^']*)'|(\S+)`)
	youtubeIDRe = regexp.MustCompile(`(?:youtube\.com/(?:watch\?(?:.*&)?v=|embed/|shorts/)|youtu\.be/)([\w-]{6,})`)
	vimeoIDRe   = regexp.MustCompile(`vimeo\.com/(?:video/)?(\d+)`)
	attachRe    = regexp.MustCompile(`^attachment_(\d+)$`)
)

type shortcode struct {
	name       string
	attrs      map[string]string
	positional []string
	inner      string
}

func (s shortcode) attr(keys ...string) string {
	for _, k := range keys {
		if v := s.attrs[k]; v != "" {
			return v
		}
	}
	return ""
}

// expandShortcodes scans for [name attrs]...[/name] and [name attrs /]
// directives. [[name]] is an escaped literal and becomes [name].
func (p *Processor) expandShortcodes(s string, res *Result) string {
	var sb strings.Builder
	i := 0
	for i < len(s) {
		open := strings.IndexByte(s[i:], '[')
		if open < 0 {
			sb.WriteString(s[i:])
			break
		}
		open += i
		sb.WriteString(s[i:open])

		if strings.HasPrefix(s[open:], "[[") {
			if end := strings.Index(s[open:], "]]"); end > 0 {
				sb.WriteString(s[open+1 : open+end+1])
				i = open + end + 2
				continue
			}
		}

		sc, next, ok := parseShortcode(s, open)
		if !ok {
			sb.WriteByte('[')
			i = open + 1
			continue
		}
		sb.WriteString(p.render(sc, res))
		i = next
	}
	return sb.String()
}

// parseShortcode reads the directive starting at s[start] == '['.
func parseShortcode(s string, start int) (shortcode, int, bool) {
	pos := start + 1
	nameEnd := pos
	for nameEnd < len(s) && isNameByte(s[nameEnd]) {
		nameEnd++
	}
	if nameEnd == pos || !isLetter(s[pos]) {
		return shortcode{}, 0, false
	}
	name := strings.ToLower(s[pos:nameEnd])

	// attributes run to the first ']' outside quotes
	var quote byte
	end := -1
	for j := nameEnd; j < len(s); j++ {
		c := s[j]
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			continue
		}
		if c == '"' || c == '\'' {
			quote = c
			continue
		}
		if c == '[' {
			return shortcode{}, 0, false
		}
		if c == ']' {
			end = j
			break
		}
	}
	if end < 0 {
		return shortcode{}, 0, false
	}
	if nameEnd < end && !isSpace(s[nameEnd]) && s[nameEnd] != '/' {
		return shortcode{}, 0, false
	}

	rawAttrs := strings.TrimSpace(s[nameEnd:end])
	sc := shortcode{name: name, attrs: map[string]string{}}
	selfClosing := strings.HasSuffix(rawAttrs, "/")
	if selfClosing {
		rawAttrs = strings.TrimSpace(strings.TrimSuffix(rawAttrs, "/"))
	}
	parseAttrs(rawAttrs, &sc)

	next := end + 1
	if selfClosing {
		return sc, next, true
	}
	closer := "[/" + name + "]"
	if c := indexFold(s[next:], closer); c >= 0 {
		sc.inner = s[next : next+c]
		next += c + len(closer)
	}
	return sc, next, true
}

func parseAttrs(raw string, sc *shortcode) {
	for _, m := range attrRe.FindAllStringSubmatch(raw, -1) {
		if m[1] != "" {
			sc.attrs[strings.ToLower(m[1])] = html.UnescapeString(m[2] + m[3] + m[4])
			continue
		}
		sc.positional = append(sc.positional, html.UnescapeString(m[5]+m[6]+m[7]))
	}
}

func (p *Processor) render(sc shortcode, res *Result) string {
	switch sc.name {
	case "caption", "wp_caption":
		return p.renderCaption(sc, res)
	case "gallery":
		return p.renderGallery(sc, res)
	case "youtube", "vimeo", "video":
		if src := p.videoSource(sc); src != "" {
			return fmt.Sprintf(`<div class="video-embed"><iframe src="%s" frameborder="0" allowfullscreen></iframe></div>`,
				html.EscapeString(src))
		}
	case "audio":
		if src := firstNonEmpty(sc.attr("src", "mp3", "m4a", "ogg", "wav"), first(sc.positional)); src != "" {
			return fmt.Sprintf(`<audio controls src="%s"></audio>`, html.EscapeString(src))
		}
	case "embed":
		if u := strings.TrimSpace(sc.inner); u != "" {
			return u
		}
	case "code", "sourcecode":
		lang := sc.attr("language", "lang")
		if lang == "" && len(sc.positional) > 0 {
			lang = sc.positional[0]
		}
		cls := ""
		if lang != "" {
			cls = fmt.Sprintf(` class="language-%s"`, html.EscapeString(strings.ToLower(lang)))
		}
		return fmt.Sprintf(`<pre><code%s>%s</code></pre>`, cls, sc.inner)
	}

	res.Stripped[sc.name]++
	if sc.inner == "" {
		return ""
	}
	return p.expandShortcodes(sc.inner, res)
}

func (p *Processor) renderCaption(sc shortcode, res *Result) string {
	inner := p.expandShortcodes(sc.inner, res)
	media, text := inner, sc.attr("caption")
	if text == "" {
		if i := strings.LastIndex(inner, ">"); i >= 0 {
			media, text = inner[:i+1], strings.TrimSpace(inner[i+1:])
		}
	}

	var attrs []string
	cls := strings.TrimSpace("wp-caption " + sc.attr("align"))
	attrs = append(attrs, fmt.Sprintf(`class="%s"`, html.EscapeString(cls)))
	if w := sc.attr("width"); w != "" {
		if _, err := strconv.Atoi(w); err == nil {
			attrs = append(attrs, fmt.Sprintf(`style="width: %spx;"`, w))
		}
	}
	if m := attachRe.FindStringSubmatch(sc.attr("id")); m != nil {
		id, _ := strconv.ParseInt(m[1], 10, 64)
		if ref, ok := p.resolver.MediaByID(id); ok {
			attrs = append(attrs, fmt.Sprintf(`data-media-id="%s"`, ref.ID))
			res.Rewritten++
		}
	}

	var sb strings.Builder
	sb.WriteString("<figure " + strings.Join(attrs, " ") + ">")
	sb.WriteString(strings.TrimSpace(media))
	if text != "" {
		sb.WriteString("<figcaption>" + text + "</figcaption>")
	}
	sb.WriteString("</figure>")
	return sb.String()
}

func (p *Processor) renderGallery(sc shortcode, res *Result) string {
	var ids []string
	for _, raw := range strings.Split(sc.attr("ids", "include"), ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		if ref, ok := p.resolver.MediaByID(id); ok {
			ids = append(ids, ref.ID)
			res.Rewritten++
		}
	}
	out := fmt.Sprintf(`<div class="gallery" data-ids="%s"`, strings.Join(ids, ","))
	if cols := sc.attr("columns"); cols != "" {
		out += fmt.Sprintf(` data-columns="%s"`, html.EscapeString(cols))
	}
	return out + "></div>"
}

func (p *Processor) videoSource(sc shortcode) string {
	src := firstNonEmpty(sc.attr("src", "url", "mp4", "webm", "id"), first(sc.positional), strings.TrimSpace(sc.inner))
	if src == "" {
		return ""
	}
	switch sc.name {
	case "youtube":
		if m := youtubeIDRe.FindStringSubmatch(src); m != nil {
			return "https://www.youtube.com/embed/" + m[1]
		}
		if !strings.Contains(src, "/") {
			return "https://www.youtube.com/embed/" + url.PathEscape(src)
		}
	case "vimeo":
		if m := vimeoIDRe.FindStringSubmatch(src); m != nil {
			return "https://player.vimeo.com/video/" + m[1]
		}
		if _, err := strconv.ParseInt(src, 10, 64); err == nil {
			return "https://player.vimeo.com/video/" + src
		}
	}
	return src
}

func isNameByte(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_' || c == '-'
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// indexFold finds sub in s ignoring ASCII case. Offsets are bytes of s.
func indexFold(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if equalASCIIFold(s[i:i+len(sub)], sub) {
			return i
		}
	}
	return -1
}

func equalASCIIFold(a, b string) bool {
	for i := 0; i < len(a); i++ {
		if lowerASCII(a[i]) != lowerASCII(b[i]) {
			return false
		}
	}
	return true
}

func lowerASCII(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + 'a' - 'A'
	}
	return c
}

func first(s []string) string {
	if len(s) == 0 {
		return ""
	}
	return s[0]
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
