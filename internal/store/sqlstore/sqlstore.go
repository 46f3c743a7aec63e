// Package sqlstore persists target entities in two tables of any database
// reachable through database/sql and one of the supported dialects.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"wp-pump/internal/dialect"
	"wp-pump/internal/store"

	"github.com/sirupsen/logrus"
)

// Store implements store.Store, store.Patcher and store.Reader over SQL.
type Store struct {
	db     *sql.DB
	d      dialect.Dialect
	unique map[store.Kind][]string
}

// New wraps an open database. unique falls back to store.DefaultUnique.
func New(db *sql.DB, d dialect.Dialect, unique map[store.Kind][]string) *Store {
	if unique == nil {
		unique = store.DefaultUnique
	}
	return &Store{db: db, d: d, unique: unique}
}

// Migrate creates the store tables when missing.
func (s *Store) Migrate(ctx context.Context) error {
	for _, q := range s.d.CreateTableQueries() {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			if s.d.IsAlreadyExists(err) {
				continue
			}
			return fmt.Errorf("failed to create store tables: %w", err)
		}
	}
	return nil
}

// Migrated reports whether the store tables exist.
func (s *Store) Migrated(ctx context.Context) bool {
	_, err := s.Count(ctx, store.KindUser)
	return err == nil
}

// Truncate empties both store tables.
func (s *Store) Truncate(ctx context.Context) error {
	for _, t := range []string{dialect.UniqueKeysTable, dialect.EntitiesTable} {
		if _, err := s.db.ExecContext(ctx, s.d.TruncateQuery(t)); err != nil {
			return fmt.Errorf("failed to clean %s: %w", t, err)
		}
	}
	return nil
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) find(ctx context.Context, q querier, kind store.Kind, naturalKey string) (string, bool, error) {
	query := dialect.SelectQuery(s.d, dialect.EntitiesTable, []string{"target_id"}, []string{"entity_kind", "natural_key"})
	var id string
	err := q.QueryRowContext(ctx, query, string(kind), naturalKey).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to find %s %s: %w", kind, naturalKey, err)
	}
	return id, true, nil
}

func (s *Store) Find(ctx context.Context, kind store.Kind, naturalKey string) (string, bool, error) {
	return s.find(ctx, s.db, kind, naturalKey)
}

// conflict returns the owner of a unique attribute value already taken by
// a different natural key.
func (s *Store) conflict(ctx context.Context, q querier, kind store.Kind, naturalKey string, attrs store.Attributes) error {
	query := dialect.SelectQuery(s.d, dialect.UniqueKeysTable, []string{"natural_key"}, []string{"entity_kind", "attr_name", "attr_value"})
	for _, attr := range s.unique[kind] {
		val, ok := store.UniqueValue(attrs[attr])
		if !ok {
			continue
		}
		var owner string
		err := q.QueryRowContext(ctx, query, string(kind), attr, strings.ToLower(val)).Scan(&owner)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to check unique %s.%s: %w", kind, attr, err)
		}
		if owner != naturalKey {
			return &store.ConflictError{Kind: kind, Attr: attr, Value: val, OwnerKey: owner}
		}
	}
	return nil
}

func (s *Store) CreateOrFind(ctx context.Context, kind store.Kind, naturalKey string, attrs store.Attributes) (store.Result, error) {
	res, err := s.createOrFind(ctx, kind, naturalKey, attrs)
	if err == nil || errors.Is(err, store.ErrConflict) || ctx.Err() != nil {
		return res, err
	}
	// A concurrent writer may have inserted the same key or unique value
	// between our check and our insert. Re-read before reporting.
	if id, ok, ferr := s.Find(ctx, kind, naturalKey); ferr == nil && ok {
		return store.Result{ID: id}, nil
	}
	if cerr := s.conflict(ctx, s.db, kind, naturalKey, attrs); cerr != nil {
		return store.Result{}, cerr
	}
	return store.Result{}, err
}

func (s *Store) createOrFind(ctx context.Context, kind store.Kind, naturalKey string, attrs store.Attributes) (store.Result, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return store.Result{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if tx != nil {
			tx.Rollback()
		}
	}()

	if id, ok, err := s.find(ctx, tx, kind, naturalKey); err != nil || ok {
		return store.Result{ID: id}, err
	}
	if err := s.conflict(ctx, tx, kind, naturalKey, attrs); err != nil {
		return store.Result{}, err
	}

	payload, err := json.Marshal(attrs)
	if err != nil {
		return store.Result{}, fmt.Errorf("failed to encode %s %s: %w", kind, naturalKey, err)
	}
	id := store.NewID()
	insert := s.d.InsertQuery(dialect.EntitiesTable, []string{"entity_kind", "natural_key", "target_id", "attrs", "created_at"})
	if _, err := tx.ExecContext(ctx, insert, string(kind), naturalKey, id, string(payload), time.Now().UTC().Format(time.RFC3339)); err != nil {
		return store.Result{}, fmt.Errorf("failed to insert %s %s: %w", kind, naturalKey, err)
	}

	uniq := s.d.InsertQuery(dialect.UniqueKeysTable, []string{"entity_kind", "attr_name", "attr_value", "natural_key"})
	for _, attr := range s.unique[kind] {
		val, ok := store.UniqueValue(attrs[attr])
		if !ok {
			continue
		}
		if _, err := tx.ExecContext(ctx, uniq, string(kind), attr, strings.ToLower(val), naturalKey); err != nil {
			return store.Result{}, fmt.Errorf("failed to index %s.%s: %w", kind, attr, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return store.Result{}, fmt.Errorf("failed to commit %s %s: %w", kind, naturalKey, err)
	}
	tx = nil

	logrus.WithFields(logrus.Fields{"kind": kind, "natural_key": naturalKey, "id": id}).Debug("entity created")
	return store.Result{ID: id, Created: true}, nil
}

// Patch merges attrs into the stored attributes.
func (s *Store) Patch(ctx context.Context, kind store.Kind, naturalKey string, attrs store.Attributes) error {
	e, err := s.Get(ctx, kind, naturalKey)
	if err != nil {
		return err
	}
	for k, v := range attrs {
		e.Attrs[k] = v
	}
	payload, err := json.Marshal(e.Attrs)
	if err != nil {
		return fmt.Errorf("failed to encode %s %s: %w", kind, naturalKey, err)
	}
	query := dialect.UpdateQuery(s.d, dialect.EntitiesTable, []string{"attrs"}, []string{"entity_kind", "natural_key"})
	if _, err := s.db.ExecContext(ctx, query, string(payload), string(kind), naturalKey); err != nil {
		return fmt.Errorf("failed to update %s %s: %w", kind, naturalKey, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, kind store.Kind, naturalKey string) (store.Entity, error) {
	query := dialect.SelectQuery(s.d, dialect.EntitiesTable, []string{"target_id", "attrs"}, []string{"entity_kind", "natural_key"})
	var id string
	var raw sql.NullString
	err := s.db.QueryRowContext(ctx, query, string(kind), naturalKey).Scan(&id, &raw)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Entity{}, store.ErrNotFound
	}
	if err != nil {
		return store.Entity{}, fmt.Errorf("failed to load %s %s: %w", kind, naturalKey, err)
	}
	attrs := store.Attributes{}
	if raw.Valid && raw.String != "" {
		if err := json.Unmarshal([]byte(raw.String), &attrs); err != nil {
			return store.Entity{}, fmt.Errorf("failed to decode %s %s: %w", kind, naturalKey, err)
		}
	}
	return store.Entity{ID: id, Kind: kind, NaturalKey: naturalKey, Attrs: attrs}, nil
}

func (s *Store) Count(ctx context.Context, kind store.Kind) (int, error) {
	query := dialect.SelectQuery(s.d, dialect.EntitiesTable, []string{"COUNT(*)"}, []string{"entity_kind"})
	var n int
	if err := s.db.QueryRowContext(ctx, query, string(kind)).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", kind, err)
	}
	return n, nil
}

var (
	_ store.Store   = (*Store)(nil)
	_ store.Patcher = (*Store)(nil)
	_ store.Reader  = (*Store)(nil)
)
