package record

// Typed views over the rows of known tables. Each wraps a *Record and only
// names columns; no conversion beyond Str/Int happens here.

type User struct{ *Record }

func (u User) ID() int64 { return u.Int("ID") }
func (u User) Login() string { return u.Str("user_login") }
func (u User) Email() string { return u.Str("user_email") }
func (u User) DisplayName() string { return u.Str("display_name") }
func (u User) Nicename() string { return u.Str("user_nicename") }
func (u User) URL() string { return u.Str("user_url") }
func (u User) Registered() string { return u.Str("user_registered") }

type Post struct{ *Record }

func (p Post) ID() int64 { return p.Int("ID") }
func (p Post) Type() string { return p.Str("post_type") }
func (p Post) Status() string { return p.Str("post_status") }
func (p Post) Title() string { return p.Str("post_title") }
func (p Post) Name() string { return p.Str("post_name") }
func (p Post) Content() string { return p.Str("post_content") }
func (p Post) Excerpt() string { return p.Str("post_excerpt") }
func (p Post) Author() int64 { return p.Int("post_author") }
func (p Post) Parent() int64 { return p.Int("post_parent") }
func (p Post) Date() string { return p.Str("post_date") }
func (p Post) Modified() string { return p.Str("post_modified") }
func (p Post) GUID() string { return p.Str("guid") }
func (p Post) MimeType() string { return p.Str("post_mime_type") }
func (p Post) MenuOrder() int64 { return p.Int("menu_order") }

// TypeOr returns the post type, or def when the column is absent or empty.
func (p Post) TypeOr(def string) string {
	if t := p.Type(); t != "" {
		return t
	}
	return def
}

type Term struct{ *Record }

func (t Term) ID() int64 { return t.Int("term_id") }
func (t Term) Name() string { return t.Str("name") }
func (t Term) Slug() string { return t.Str("slug") }

type TermTaxonomy struct{ *Record }

func (t TermTaxonomy) ID() int64 { return t.Int("term_taxonomy_id") }
func (t TermTaxonomy) TermID() int64 { return t.Int("term_id") }
func (t TermTaxonomy) Taxonomy() string { return t.Str("taxonomy") }
func (t TermTaxonomy) Description() string { return t.Str("description") }
func (t TermTaxonomy) Parent() int64 { return t.Int("parent") }

type TermRelationship struct{ *Record }

func (t TermRelationship) ObjectID() int64 { return t.Int("object_id") }
func (t TermRelationship) TermTaxonomyID() int64 { return t.Int("term_taxonomy_id") }

type Comment struct{ *Record }

func (c Comment) ID() int64 { return c.Int("comment_ID") }
func (c Comment) PostID() int64 { return c.Int("comment_post_ID") }
func (c Comment) Parent() int64 { return c.Int("comment_parent") }
func (c Comment) Author() string { return c.Str("comment_author") }
func (c Comment) AuthorEmail() string { return c.Str("comment_author_email") }
func (c Comment) AuthorURL() string { return c.Str("comment_author_url") }
func (c Comment) Content() string { return c.Str("comment_content") }
func (c Comment) Approved() string { return c.Str("comment_approved") }
func (c Comment) Date() string { return c.Str("comment_date") }
func (c Comment) UserID() int64 { return c.Int("user_id") }

// MetaBag holds meta values by key. Repeated keys keep every value.
type MetaBag map[string][]string

// Get returns the first value stored for key, as WordPress does for single
// meta reads.
func (m MetaBag) Get(key string) string {
	if vals := m[key]; len(vals) > 0 {
		return vals[0]
	}
	return ""
}

// First returns the first non-empty value among keys.
func (m MetaBag) First(keys ...string) string {
	for _, k := range keys {
		if v := m.Get(k); v != "" {
			return v
		}
	}
	return ""
}
