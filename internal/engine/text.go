package engine

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var foldReplacer = strings.NewReplacer(
	"ß", "ss", "æ", "ae", "Æ", "ae", "œ", "oe", "Œ", "oe",
	"ø", "o", "Ø", "o", "đ", "d", "Đ", "d", "ł", "l", "Ł", "l", "þ", "th",
)

// Slugify turns a legacy slug or title into [a-z0-9-]. Percent-encoded
// input is decoded first and accents are transliterated.
func Slugify(s string) string {
	if dec, err := url.PathUnescape(s); err == nil {
		s = dec
	}
	s = foldReplacer.Replace(s)
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if out, _, err := transform.String(t, s); err == nil {
		s = out
	}

	var sb strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			sb.WriteRune(r)
			dash = false
		case !dash && sb.Len() > 0:
			sb.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimRight(sb.String(), "-")
}

// slugger hands out slugs unique within one kind, in call order.
type slugger struct {
	used map[string]bool
}

func newSlugger() *slugger { return &slugger{used: make(map[string]bool)} }

// next returns the first free slug among base, base-1, base-2...
func (s *slugger) next(candidates ...string) string {
	base := ""
	for _, c := range candidates {
		if base = Slugify(c); base != "" {
			break
		}
	}
	if base == "" {
		base = "untitled"
	}
	slug := base
	for i := 1; s.used[slug]; i++ {
		slug = base + "-" + strconv.Itoa(i)
	}
	s.used[slug] = true
	return slug
}

var postStatuses = map[string]string{
	"publish":    "published",
	"draft":      "draft",
	"pending":    "pending",
	"private":    "private",
	"trash":      "trash",
	"auto-draft": "draft",
	"inherit":    "published",
	"future":     "draft",
}

func postStatus(s string) string {
	if v, ok := postStatuses[s]; ok {
		return v
	}
	return "draft"
}

func commentStatus(s string) string {
	switch s {
	case "1", "approve", "approved":
		return "approved"
	case "spam":
		return "spam"
	case "trash", "post-trashed":
		return "trash"
	default:
		return "pending"
	}
}

const legacyDateLayout = "2006-01-02 15:04:05"

// parseDate reads a MySQL DATETIME. Zero and invalid dates give false.
func parseDate(s string) (time.Time, bool) {
	if s == "" || strings.HasPrefix(s, "0000-00-00") {
		return time.Time{}, false
	}
	t, err := time.Parse(legacyDateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// setDate stores s as RFC 3339 under key when it is a real date.
func setDate(attrs map[string]any, key, s string) {
	if t, ok := parseDate(s); ok {
		attrs[key] = t.Format(time.RFC3339)
	}
}

var capabilityRe = regexp.MustCompile(`s:\d+:"([a-z0-9_]+)";b:1`)

// userRole extracts the first granted role from a serialized capabilities
// array such as a:1:{s:13:"administrator";b:1;}.
func userRole(caps string) string {
	if m := capabilityRe.FindStringSubmatch(caps); m != nil {
		return m[1]
	}
	return ""
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// route fills a target URL pattern.
func route(pattern, slug, path string) string {
	if path == "" {
		path = slug
	}
	return strings.NewReplacer("{slug}", slug, "{path}", path).Replace(pattern)
}
