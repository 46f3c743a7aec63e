package engine

import (
	"sort"
	"strconv"
	"sync"

	"wp-pump/internal/store"
)

// RemapTable maps legacy numeric IDs of one kind to target IDs.
// Writes are serialized; reads may run concurrently with them.
type RemapTable struct {
	Kind store.Kind

	mu sync.RWMutex
	m  map[int64]string
}

func newRemapTable(kind store.Kind) *RemapTable {
	return &RemapTable{Kind: kind, m: make(map[int64]string)}
}

func (t *RemapTable) Set(legacyID int64, targetID string) {
	t.mu.Lock()
	t.m[legacyID] = targetID
	t.mu.Unlock()
}

func (t *RemapTable) Get(legacyID int64) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	id, ok := t.m[legacyID]
	return id, ok
}

func (t *RemapTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.m)
}

// LegacyIDs returns every mapped legacy ID in ascending order.
func (t *RemapTable) LegacyIDs() []int64 {
	t.mu.RLock()
	ids := make([]int64, 0, len(t.m))
	for id := range t.m {
		ids = append(ids, id)
	}
	t.mu.RUnlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Remaps holds one table per target kind. The set of tables is fixed at
// construction so lookups never race with map growth.
type Remaps struct {
	tables map[store.Kind]*RemapTable
}

func newRemaps() *Remaps {
	r := &Remaps{tables: make(map[store.Kind]*RemapTable)}
	for _, k := range store.Kinds() {
		r.tables[k] = newRemapTable(k)
	}
	return r
}

// Table returns the table of kind.
func (r *Remaps) Table(kind store.Kind) *RemapTable { return r.tables[kind] }

// Lookup resolves legacyID in the first listed kind that maps it.
func (r *Remaps) Lookup(legacyID int64, kinds ...store.Kind) (store.Kind, string, bool) {
	for _, k := range kinds {
		if id, ok := r.tables[k].Get(legacyID); ok {
			return k, id, true
		}
	}
	return "", "", false
}

// legacyKey is the natural key of an entity imported from a numeric row ID.
func legacyKey(id int64) string { return "wp:" + strconv.FormatInt(id, 10) }
