package store

import (
	"context"
	"strings"
	"sync"
)

// Memory is a Store held in process memory. All methods are safe for
// concurrent use.
type Memory struct {
	mu       sync.RWMutex
	entities map[Kind]map[string]*Entity
	unique   map[Kind][]string
	index    map[Kind]map[string]map[string]string // kind -> attr -> lowered value -> natural key
}

// NewMemory returns an empty store enforcing unique, or DefaultUnique when nil.
func NewMemory(unique map[Kind][]string) *Memory {
	if unique == nil {
		unique = DefaultUnique
	}
	return &Memory{
		entities: make(map[Kind]map[string]*Entity),
		unique:   unique,
		index:    make(map[Kind]map[string]map[string]string),
	}
}

func (m *Memory) CreateOrFind(ctx context.Context, kind Kind, naturalKey string, attrs Attributes) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.entities[kind][naturalKey]; ok {
		return Result{ID: e.ID}, nil
	}
	if err := m.checkUnique(kind, naturalKey, attrs); err != nil {
		return Result{}, err
	}

	e := &Entity{ID: NewID(), Kind: kind, NaturalKey: naturalKey, Attrs: cloneAttrs(attrs)}
	if m.entities[kind] == nil {
		m.entities[kind] = make(map[string]*Entity)
	}
	m.entities[kind][naturalKey] = e
	m.indexUnique(kind, naturalKey, attrs)
	return Result{ID: e.ID, Created: true}, nil
}

func (m *Memory) Find(ctx context.Context, kind Kind, naturalKey string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if e, ok := m.entities[kind][naturalKey]; ok {
		return e.ID, true, nil
	}
	return "", false, nil
}

func (m *Memory) Patch(ctx context.Context, kind Kind, naturalKey string, attrs Attributes) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entities[kind][naturalKey]
	if !ok {
		return ErrNotFound
	}
	for k, v := range attrs {
		e.Attrs[k] = v
	}
	return nil
}

func (m *Memory) Get(ctx context.Context, kind Kind, naturalKey string) (Entity, error) {
	if err := ctx.Err(); err != nil {
		return Entity{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entities[kind][naturalKey]
	if !ok {
		return Entity{}, ErrNotFound
	}
	out := *e
	out.Attrs = cloneAttrs(e.Attrs)
	return out, nil
}

func (m *Memory) Count(ctx context.Context, kind Kind) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entities[kind]), nil
}

// All returns every entity of kind, in no particular order.
func (m *Memory) All(kind Kind) []Entity {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Entity, 0, len(m.entities[kind]))
	for _, e := range m.entities[kind] {
		c := *e
		c.Attrs = cloneAttrs(e.Attrs)
		out = append(out, c)
	}
	return out
}

func (m *Memory) checkUnique(kind Kind, naturalKey string, attrs Attributes) error {
	for _, attr := range m.unique[kind] {
		val, ok := UniqueValue(attrs[attr])
		if !ok {
			continue
		}
		if owner, taken := m.index[kind][attr][strings.ToLower(val)]; taken && owner != naturalKey {
			return &ConflictError{Kind: kind, Attr: attr, Value: val, OwnerKey: owner}
		}
	}
	return nil
}

func (m *Memory) indexUnique(kind Kind, naturalKey string, attrs Attributes) {
	for _, attr := range m.unique[kind] {
		val, ok := UniqueValue(attrs[attr])
		if !ok {
			continue
		}
		if m.index[kind] == nil {
			m.index[kind] = make(map[string]map[string]string)
		}
		if m.index[kind][attr] == nil {
			m.index[kind][attr] = make(map[string]string)
		}
		m.index[kind][attr][strings.ToLower(val)] = naturalKey
	}
}

func cloneAttrs(a Attributes) Attributes {
	out := make(Attributes, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

var (
	_ Store   = (*Memory)(nil)
	_ Patcher = (*Memory)(nil)
	_ Reader  = (*Memory)(nil)
)
