package record_test

import (
	"strings"
	"testing"

	"wp-pump/internal/dump"
	"wp-pump/internal/record"
	"wp-pump/internal/schema"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseOne(t *testing.T, src string) *dump.Statement {
	t.Helper()
	st, err := dump.NewLexer(strings.NewReader(src)).Next()
	require.NoError(t, err)
	return st
}

func TestMaterialize_OneRecordPerTuple(t *testing.T) {
	st := parseOne(t, "INSERT INTO wp_posts (ID,post_title,post_type) VALUES (1,'Hello','post'),(2,'A \\'Page\\'','page'),(3,NULL,'attachment');")
	tr := schema.Classify("wp_", st.Table)

	recs := record.Materialize(st, tr, 10)
	require.Len(t, recs, len(st.Rows))

	assert.Equal(t, 10, recs[0].Ordinal)
	assert.Equal(t, 12, recs[2].Ordinal)
	assert.Equal(t, schema.RolePost, recs[0].Table.Role)
	assert.Equal(t, []string{"ID", "post_title", "post_type"}, recs[0].Columns())

	v, ok := recs[0].Get("ID")
	require.True(t, ok)
	assert.Equal(t, dump.Int, v.Kind, "numbers keep their scalar type")

	p := record.Post{Record: recs[1]}
	assert.EqualValues(t, 2, p.ID())
	assert.Equal(t, "A 'Page'", p.Title())
	assert.Equal(t, "page", p.Type())

	assert.Equal(t, "", recs[2].Str("post_title"))
	assert.False(t, recs[2].Has("post_content"))
	assert.Equal(t, "wp_posts#3", recs[2].Ref())
}

func TestRecord_PayloadAndRef(t *testing.T) {
	st := parseOne(t, "INSERT INTO wp_wc_orders (status,total,note) VALUES ('paid',12.5,NULL);")
	recs := record.Materialize(st, schema.Classify("wp_", st.Table), 0)
	require.Len(t, recs, 1)

	assert.Equal(t, map[string]any{"status": "paid", "total": 12.5, "note": nil}, recs[0].Payload())
	assert.Equal(t, "wp_wc_orders@0", recs[0].Ref())
}

func TestSet_GroupsByRoleAndMeta(t *testing.T) {
	layout, err := schema.Analyze([]string{"wp_posts", "wp_postmeta", "wp_options"}, schema.Options{})
	require.NoError(t, err)
	set := record.NewSet(layout)

	for _, src := range []string{
		"INSERT INTO wp_posts (ID,post_type) VALUES (1,'post');",
		"INSERT INTO wp_postmeta (post_id,meta_key,meta_value) VALUES (1,'k','a'),(1,'k','b'),(2,'x','y');",
		"INSERT INTO wp_options (option_name,option_value) VALUES ('siteurl','http://old.example');",
	} {
		st := parseOne(t, src)
		set.Add(record.Materialize(st, layout.Role(st.Table), set.Count(st.Table))...)
	}

	assert.Len(t, set.Posts(), 1)
	meta := set.PostMeta()
	assert.Equal(t, "a", meta[1].Get("k"))
	assert.Equal(t, []string{"a", "b"}, meta[1]["k"])
	assert.Equal(t, "y", meta[2].First("missing", "x"))
	assert.Equal(t, "http://old.example", set.Options()["siteurl"])
	assert.Equal(t, map[string]int{"wp_options": 1, "wp_postmeta": 3, "wp_posts": 1}, set.RowCounts())
}
