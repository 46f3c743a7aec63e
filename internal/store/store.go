// Package store defines the target entity store the importer writes to and
// ships an in-memory implementation plus the overlay used for dry runs.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Kind names a target entity type.
type Kind string

const (
	KindUser       Kind = "user"
	KindCategory   Kind = "category"
	KindTag        Kind = "tag"
	KindMedia      Kind = "media"
	KindPost       Kind = "post"
	KindPage       Kind = "page"
	KindComment    Kind = "comment"
	KindMenu       Kind = "menu"
	KindMenuItem   Kind = "menu_item"
	KindPluginData Kind = "plugin_data"
	KindRedirect   Kind = "redirect"
)

// Kinds lists every kind in import order.
func Kinds() []Kind {
	return []Kind{
		KindUser, KindCategory, KindTag, KindMedia, KindPost, KindPage,
		KindComment, KindMenu, KindMenuItem, KindPluginData, KindRedirect,
	}
}

// Attributes are the stored fields of an entity. Values are JSON-friendly.
type Attributes map[string]any

// Entity is one stored target entity.
type Entity struct {
	ID         string
	Kind       Kind
	NaturalKey string
	Attrs      Attributes
}

// Result is the outcome of CreateOrFind.
type Result struct {
	ID      string
	Created bool
}

var (
	// ErrNotFound is returned by Get and Patch for unknown natural keys.
	ErrNotFound = errors.New("entity not found")
	// ErrConflict matches every *ConflictError.
	ErrConflict = errors.New("unique attribute conflict")
)

// ConflictError reports a unique attribute already owned by another entity.
type ConflictError struct {
	Kind     Kind
	Attr     string
	Value    string
	OwnerKey string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %s %q already used by %s", e.Kind, e.Attr, e.Value, e.OwnerKey)
}

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// Store is the contract the import pipeline needs.
type Store interface {
	// CreateOrFind returns the entity stored under naturalKey, creating it
	// with attrs when absent. Existing entities are never modified.
	CreateOrFind(ctx context.Context, kind Kind, naturalKey string, attrs Attributes) (Result, error)
	// Find returns the target ID stored under naturalKey.
	Find(ctx context.Context, kind Kind, naturalKey string) (id string, found bool, err error)
}

// Patcher is implemented by stores that can update attributes in place.
// The content pass needs it; the core import does not.
type Patcher interface {
	Patch(ctx context.Context, kind Kind, naturalKey string, attrs Attributes) error
}

// Reader is implemented by stores that can return whole entities.
type Reader interface {
	Get(ctx context.Context, kind Kind, naturalKey string) (Entity, error)
	Count(ctx context.Context, kind Kind) (int, error)
}

// DefaultUnique lists the attributes that must be unique per kind.
var DefaultUnique = map[Kind][]string{
	KindUser: {"username", "email"},
}

// NewID returns a time-ordered UUID for a new entity.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

// UniqueValue renders an attribute for uniqueness checks; empty values are
// never unique keys.
func UniqueValue(v any) (string, bool) {
	switch s := v.(type) {
	case nil:
		return "", false
	case string:
		return s, s != ""
	default:
		return fmt.Sprint(s), true
	}
}
