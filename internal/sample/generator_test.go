package sample_test

import (
	"bytes"
	"context"
	"testing"

	"wp-pump/internal/engine"
	"wp-pump/internal/sample"
	"wp-pump/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var smallSite = sample.Options{
	Users:      4,
	Categories: 4,
	Tags:       6,
	Media:      5,
	Posts:      12,
	Pages:      4,
	Comments:   20,
	PluginRows: 3,
	BatchSize:  5,
	Seed:       42,
}

func generate(t *testing.T, opts sample.Options) (string, []sample.TableResult) {
	t.Helper()
	var buf bytes.Buffer
	rows := 0
	res, err := sample.Generate(&buf, opts, func() { rows++ })
	require.NoError(t, err)

	total := 0
	for _, r := range res {
		total += r.Rows
	}
	assert.Equal(t, total, rows)
	return buf.String(), res
}

func TestGenerate_Deterministic(t *testing.T) {
	a, _ := generate(t, smallSite)
	b, _ := generate(t, smallSite)
	assert.Equal(t, a, b)
}

func TestGenerate_TableCounts(t *testing.T) {
	_, res := generate(t, smallSite)
	rows := map[string]int{}
	for _, r := range res {
		rows[r.Table] = r.Rows
	}
	assert.Equal(t, 4, rows["wp_users"])
	assert.Equal(t, 20, rows["wp_usermeta"])
	assert.Equal(t, 4+6+1, rows["wp_terms"])
	assert.Equal(t, 20, rows["wp_comments"])
	assert.Equal(t, 3, rows["wp_yoast_indexable"])
	assert.Equal(t, 3, rows["wp_wc_orders"])
	assert.GreaterOrEqual(t, rows["wp_posts"], 5+12+4)
}

func TestGenerate_CustomPrefix(t *testing.T) {
	opts := smallSite
	opts.Prefix = "blog7_"
	text, _ := generate(t, opts)

	ds, err := engine.Load(context.Background(), engine.NewStringSource("sample.sql", text), engine.LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, "blog7_", ds.Layout.Prefix)
	assert.Equal(t, 4, ds.Rows["blog7_users"])
}

func TestGenerate_Imports(t *testing.T) {
	text, _ := generate(t, smallSite)
	st := store.NewMemory(nil)

	sum, err := engine.Run(context.Background(), engine.NewStringSource("sample.sql", text), st, engine.Options{})
	require.NoError(t, err)
	assert.Empty(t, sum.Fatal)

	assert.Equal(t, 4, sum.Kinds[store.KindUser].Created)
	assert.Equal(t, 4, sum.Kinds[store.KindCategory].Created)
	assert.Equal(t, 6, sum.Kinds[store.KindTag].Created)
	assert.Equal(t, 5, sum.Kinds[store.KindMedia].Created)
	assert.Equal(t, 12, sum.Kinds[store.KindPost].Created)
	assert.Equal(t, 4, sum.Kinds[store.KindPage].Created)
	assert.Equal(t, 6, sum.Kinds[store.KindPluginData].Created)
	assert.Equal(t, 1, sum.Kinds[store.KindMenu].Created)
	assert.Equal(t, 20, sum.Kinds[store.KindComment].Created)

	for _, w := range sum.Warnings {
		assert.NotEqual(t, engine.RowImportFailed, w.Code, w.String())
		assert.NotEqual(t, engine.MalformedSkipped, w.Code, w.String())
	}
}
