package record

import (
	"sort"

	"wp-pump/internal/schema"
)

// Set holds every materialized row of a dump grouped by table.
type Set struct {
	Layout *schema.Layout

	tables map[string][]*Record
}

func NewSet(layout *schema.Layout) *Set {
	return &Set{Layout: layout, tables: make(map[string][]*Record)}
}

// Add appends rows to their table. Rows must arrive in dump order.
func (s *Set) Add(recs ...*Record) {
	for _, r := range recs {
		s.tables[r.Table.RawName] = append(s.tables[r.Table.RawName], r)
	}
}

// Count returns how many rows of table have been added so far.
func (s *Set) Count(table string) int { return len(s.tables[table]) }

// Table returns the rows of one table in dump order.
func (s *Set) Table(name string) []*Record { return s.tables[name] }

// ByRole returns the rows of every table with the given role, tables in
// name order and rows in dump order.
func (s *Set) ByRole(role schema.Role) []*Record {
	var out []*Record
	for _, name := range s.namesFor(role) {
		out = append(out, s.tables[name]...)
	}
	return out
}

func (s *Set) namesFor(role schema.Role) []string {
	var names []string
	for name, recs := range s.tables {
		if len(recs) > 0 && recs[0].Table.Role == role {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Tables returns the names of all tables with rows, sorted.
func (s *Set) Tables() []string {
	names := make([]string, 0, len(s.tables))
	for n := range s.tables {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// RowCounts returns the number of rows per table.
func (s *Set) RowCounts() map[string]int {
	out := make(map[string]int, len(s.tables))
	for n, recs := range s.tables {
		out[n] = len(recs)
	}
	return out
}

// Posts returns every posts row as a typed view.
func (s *Set) Posts() []Post {
	recs := s.ByRole(schema.RolePost)
	out := make([]Post, len(recs))
	for i, r := range recs {
		out[i] = Post{r}
	}
	return out
}

// PostMeta groups postmeta rows by post ID, keeping every value of a
// repeated key in dump order.
func (s *Set) PostMeta() map[int64]MetaBag {
	return groupMeta(s.ByRole(schema.RolePostMeta), "post_id")
}

// UserMeta groups usermeta rows by user ID.
func (s *Set) UserMeta() map[int64]MetaBag {
	return groupMeta(s.ByRole(schema.RoleUserMeta), "user_id")
}

// Options returns wp_options as name -> value.
func (s *Set) Options() map[string]string {
	out := make(map[string]string)
	for _, r := range s.ByRole(schema.RoleOption) {
		out[r.Str("option_name")] = r.Str("option_value")
	}
	return out
}

func groupMeta(recs []*Record, owner string) map[int64]MetaBag {
	out := make(map[int64]MetaBag)
	for _, r := range recs {
		id := r.Int(owner)
		bag, ok := out[id]
		if !ok {
			bag = make(MetaBag)
			out[id] = bag
		}
		key := r.Str("meta_key")
		bag[key] = append(bag[key], r.Str("meta_value"))
	}
	return out
}

func (s *Set) Users() []User {
	recs := s.ByRole(schema.RoleUser)
	out := make([]User, len(recs))
	for i, r := range recs {
		out[i] = User{r}
	}
	return out
}

func (s *Set) Terms() []Term {
	recs := s.ByRole(schema.RoleTerm)
	out := make([]Term, len(recs))
	for i, r := range recs {
		out[i] = Term{r}
	}
	return out
}

func (s *Set) TermTaxonomies() []TermTaxonomy {
	recs := s.ByRole(schema.RoleTermTaxonomy)
	out := make([]TermTaxonomy, len(recs))
	for i, r := range recs {
		out[i] = TermTaxonomy{r}
	}
	return out
}

func (s *Set) TermRelationships() []TermRelationship {
	recs := s.ByRole(schema.RoleTermRelationship)
	out := make([]TermRelationship, len(recs))
	for i, r := range recs {
		out[i] = TermRelationship{r}
	}
	return out
}

func (s *Set) Comments() []Comment {
	recs := s.ByRole(schema.RoleComment)
	out := make([]Comment, len(recs))
	for i, r := range recs {
		out[i] = Comment{r}
	}
	return out
}
