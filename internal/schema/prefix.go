package schema

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrPrefixNotDetected is returned when no candidate prefix covers enough core
// tables. An explicit prefix override is then required.
var ErrPrefixNotDetected = errors.New("table prefix not detected")

// CoreSuffixes are the table suffixes that count towards prefix detection.
var CoreSuffixes = map[string]Role{
	"users":              RoleUser,
	"usermeta":           RoleUserMeta,
	"posts":              RolePost,
	"postmeta":           RolePostMeta,
	"terms":              RoleTerm,
	"term_taxonomy":      RoleTermTaxonomy,
	"term_relationships": RoleTermRelationship,
	"comments":           RoleComment,
	"options":            RoleOption,
}

var auxiliarySuffixes = map[string]bool{
	"commentmeta": true,
	"termmeta":    true,
	"links":       true,
}

// Candidate is one prefix that, when stripped, leaves at least one core suffix.
type Candidate struct {
	Prefix     string
	Suffixes   []string // distinct core suffixes covered, sorted
	FirstTable string   // lexically smallest table producing this candidate
}

// Candidates lists every prefix ending at '_' that leaves a core suffix,
// ordered best first: most core suffixes, then by FirstTable.
func Candidates(names []string) []Candidate {
	type acc struct {
		suffixes map[string]bool
		first    string
	}
	seen := make(map[string]*acc)
	for _, name := range names {
		for suffix := range CoreSuffixes {
			if !strings.HasSuffix(name, suffix) {
				continue
			}
			prefix := name[:len(name)-len(suffix)]
			if prefix == "" || !strings.HasSuffix(prefix, "_") {
				continue
			}
			a, ok := seen[prefix]
			if !ok {
				a = &acc{suffixes: make(map[string]bool), first: name}
				seen[prefix] = a
			}
			a.suffixes[suffix] = true
			if name < a.first {
				a.first = name
			}
		}
	}

	out := make([]Candidate, 0, len(seen))
	for prefix, a := range seen {
		c := Candidate{Prefix: prefix, FirstTable: a.first}
		for s := range a.suffixes {
			c.Suffixes = append(c.Suffixes, s)
		}
		sort.Strings(c.Suffixes)
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i].Suffixes) != len(out[j].Suffixes) {
			return len(out[i].Suffixes) > len(out[j].Suffixes)
		}
		return out[i].FirstTable < out[j].FirstTable
	})
	return out
}

// InferPrefix picks the best candidate. tie is set when the runner-up covers
// as many core suffixes as the winner.
func InferPrefix(names []string, minCore int) (prefix string, tie bool, err error) {
	if minCore < 1 {
		minCore = 1
	}
	cands := Candidates(names)
	if len(cands) == 0 {
		return "", false, fmt.Errorf("%w: no table ends with a core suffix", ErrPrefixNotDetected)
	}
	best := cands[0]
	if len(best.Suffixes) < minCore {
		return "", false, fmt.Errorf("%w: best candidate %q covers %d core tables, need %d",
			ErrPrefixNotDetected, best.Prefix, len(best.Suffixes), minCore)
	}
	tie = len(cands) > 1 && len(cands[1].Suffixes) == len(best.Suffixes)
	return best.Prefix, tie, nil
}

// Classify assigns a role to name under prefix. The result depends only on
// the suffix left after stripping the prefix.
func Classify(prefix, name string) TableRole {
	tr := TableRole{Prefix: prefix, RawName: name, Role: RolePluginUnknown, Suffix: name}
	if !strings.HasPrefix(name, prefix) {
		tr.Prefix = ""
		tr.Plugin = IdentifyPlugin(name)
		return tr
	}
	suffix := name[len(prefix):]
	tr.Suffix = suffix
	if role, ok := CoreSuffixes[suffix]; ok {
		tr.Role = role
		return tr
	}
	if auxiliarySuffixes[suffix] {
		tr.Role = RoleCoreAuxiliary
		return tr
	}
	tr.Plugin = IdentifyPlugin(suffix)
	return tr
}
