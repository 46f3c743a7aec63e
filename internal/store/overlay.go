package store

import (
	"context"
	"errors"
)

// Overlay answers reads from base but keeps every write in memory, so a dry
// run takes the same decisions as a real one without touching base.
type Overlay struct {
	base  Store
	local *Memory
}

// NewOverlay wraps base. unique should match what base enforces.
func NewOverlay(base Store, unique map[Kind][]string) *Overlay {
	return &Overlay{base: base, local: NewMemory(unique)}
}

func (o *Overlay) CreateOrFind(ctx context.Context, kind Kind, naturalKey string, attrs Attributes) (Result, error) {
	if id, ok, err := o.local.Find(ctx, kind, naturalKey); err != nil || ok {
		return Result{ID: id}, err
	}
	if o.base != nil {
		id, ok, err := o.base.Find(ctx, kind, naturalKey)
		if err != nil {
			return Result{}, err
		}
		if ok {
			return Result{ID: id}, nil
		}
	}
	return o.local.CreateOrFind(ctx, kind, naturalKey, attrs)
}

func (o *Overlay) Find(ctx context.Context, kind Kind, naturalKey string) (string, bool, error) {
	if id, ok, err := o.local.Find(ctx, kind, naturalKey); err != nil || ok {
		return id, ok, err
	}
	if o.base == nil {
		return "", false, nil
	}
	return o.base.Find(ctx, kind, naturalKey)
}

// Patch records the change locally. Entities that only exist in base are
// accepted as long as base knows them.
func (o *Overlay) Patch(ctx context.Context, kind Kind, naturalKey string, attrs Attributes) error {
	err := o.local.Patch(ctx, kind, naturalKey, attrs)
	if !errors.Is(err, ErrNotFound) || o.base == nil {
		return err
	}
	if _, ok, ferr := o.base.Find(ctx, kind, naturalKey); ferr != nil {
		return ferr
	} else if !ok {
		return ErrNotFound
	}
	return nil
}

// Local exposes the in-memory layer, for reporting what a dry run would write.
func (o *Overlay) Local() *Memory { return o.local }

var (
	_ Store   = (*Overlay)(nil)
	_ Patcher = (*Overlay)(nil)
)
