package engine

import (
	"context"
	"testing"

	"wp-pump/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStage struct {
	name          string
	reads, writes []store.Kind
}

func (s fakeStage) Name() string                               { return s.name }
func (s fakeStage) Reads() []store.Kind                        { return s.reads }
func (s fakeStage) Writes() []store.Kind                       { return s.writes }
func (s fakeStage) Run(ctx context.Context, _ *importer) error { return nil }

func names(stages []Stage) []string {
	out := make([]string, len(stages))
	for i, s := range stages {
		out[i] = s.Name()
	}
	return out
}

func TestOrderStages_Default(t *testing.T) {
	stages, err := orderStages(defaultStages())
	require.NoError(t, err)
	got := names(stages)

	pos := map[string]int{}
	for i, n := range got {
		pos[n] = i
	}
	assert.Less(t, pos["users"], pos["posts"])
	assert.Less(t, pos["taxonomy"], pos["posts"])
	assert.Less(t, pos["posts"], pos["comments"])
	assert.Less(t, pos["posts"], pos["menus"])
	assert.Less(t, pos["redirects"], pos["content"])
	assert.Equal(t, "content", got[len(got)-1])
}

func TestOrderStages_ReordersByReads(t *testing.T) {
	stages, err := orderStages([]Stage{
		fakeStage{name: "comments", reads: []store.Kind{store.KindPost}, writes: []store.Kind{store.KindComment}},
		fakeStage{name: "posts", reads: []store.Kind{store.KindUser}, writes: []store.Kind{store.KindPost}},
		fakeStage{name: "users", writes: []store.Kind{store.KindUser}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"users", "posts", "comments"}, names(stages))
}

func TestOrderStages_Cycle(t *testing.T) {
	_, err := orderStages([]Stage{
		fakeStage{name: "a", reads: []store.Kind{store.KindTag}, writes: []store.Kind{store.KindPost}},
		fakeStage{name: "b", reads: []store.Kind{store.KindPost}, writes: []store.Kind{store.KindTag}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle")
}

func TestOrderStages_DuplicateWriter(t *testing.T) {
	_, err := orderStages([]Stage{
		fakeStage{name: "a", writes: []store.Kind{store.KindPost}},
		fakeStage{name: "b", writes: []store.Kind{store.KindPost}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "both write")
}

func TestRemaps_Lookup(t *testing.T) {
	r := newRemaps()
	r.Table(store.KindPage).Set(2, "page-2")
	r.Table(store.KindPost).Set(1, "post-1")

	kind, id, ok := r.Lookup(2, store.KindPost, store.KindPage)
	require.True(t, ok)
	assert.Equal(t, store.KindPage, kind)
	assert.Equal(t, "page-2", id)

	_, _, ok = r.Lookup(3, store.KindPost, store.KindPage)
	assert.False(t, ok)
	assert.Equal(t, []int64{1}, r.Table(store.KindPost).LegacyIDs())
}

func TestSlugger(t *testing.T) {
	s := newSlugger()
	assert.Equal(t, "hello", s.next("Hello"))
	assert.Equal(t, "hello-1", s.next("hello"))
	assert.Equal(t, "untitled", s.next("", "!!"))
	assert.Equal(t, "cafe-creme", s.next("Café Crème"))
}

func TestRoute(t *testing.T) {
	assert.Equal(t, "/articles/x/", route("/articles/{slug}/", "x", ""))
	assert.Equal(t, "/a/b/", route("/{path}/", "b", "a/b"))
}
