package content

import (
	"regexp"
	"strings"
)

var (
	emptyParaRe = regexp.MustCompile(`(?i)<p(?:\s[^>]*)?>(?:\s|&nbsp;|&#160;|<br\s*/?>)*</p>`)
	moreRe      = regexp.MustCompile(`<!--more(?:\s[^>]*)?-->`)
	nextPageRe  = regexp.MustCompile(`<!--nextpage-->\s*`)
	blankRunRe  = regexp.MustCompile(`\n{3,}`)
)

// cleanup removes markup artifacts that only make sense to the legacy
// renderer.
func cleanup(s string) string {
	s = moreRe.ReplaceAllString(s, `<span id="more"></span>`)
	s = nextPageRe.ReplaceAllString(s, "")
	s = emptyParaRe.ReplaceAllString(s, "")
	s = blankRunRe.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
