// Package kv persists whole JSON collections keyed by name. Every collection
// carries a monotonic version and writes are rejected when made against a
// stale version, so two racing read-modify-write cycles cannot silently
// clobber each other.
package kv

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/thespaceapp/marketplace/database"
)

// ErrStaleWrite reports that the collection changed since it was read.
var ErrStaleWrite = errors.New("collection was modified by another writer")

type Store struct {
	db  *sqlx.DB
	log logrus.FieldLogger
}

func NewStore(db *sqlx.DB, log logrus.FieldLogger) *Store {
	return &Store{db: db, log: log}
}

type record struct {
	Key     string `db:"key"`
	Value   string `db:"value"`
	Version int64  `db:"version"`
}

// Get returns the raw JSON for key along with its version. A missing key is
// not an error: it yields nil bytes and version zero.
func (s *Store) Get(ctx context.Context, key string) ([]byte, int64, error) {
	return get(ctx, s.db, key)
}

// Put overwrites the collection at key. The write only lands if the stored
// version still equals expect; pass zero when the key is not expected to
// exist yet.
func (s *Store) Put(ctx context.Context, key string, value []byte, expect int64) error {
	return put(ctx, s.db, key, value, expect)
}

func get(ctx context.Context, ext sqlx.ExtContext, key string) ([]byte, int64, error) {
	const q = `SELECT key, value, version FROM collections WHERE key = ?`

	var rec record
	if err := sqlx.GetContext(ctx, ext, &rec, ext.Rebind(q), key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("reading collection[%s]: %w", key, err)
	}

	return []byte(rec.Value), rec.Version, nil
}

func put(ctx context.Context, ext sqlx.ExtContext, key string, value []byte, expect int64) error {
	const q = `
		INSERT INTO collections (key, value, version, updated_at)
		VALUES (?, ?, 1, ?)
		ON CONFLICT (key) DO UPDATE SET
			value = excluded.value,
			version = collections.version + 1,
			updated_at = excluded.updated_at
		WHERE collections.version = ?`

	res, err := ext.ExecContext(ctx, ext.Rebind(q), key, string(value), time.Now().UTC(), expect)
	if err != nil {
		return fmt.Errorf("writing collection[%s]: %w", key, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking write of collection[%s]: %w", key, err)
	}
	if n == 0 {
		return fmt.Errorf("collection[%s]: %w", key, ErrStaleWrite)
	}
	return nil
}

// decode turns a raw blob into T. Absent keys and undecodable payloads both
// degrade to the zero value; decode failures are logged, not surfaced, so a
// corrupt blob behaves like an empty collection.
func decode[T any](log logrus.FieldLogger, key string, raw []byte) T {
	var out T
	if raw == nil {
		return out
	}

	if err := json.Unmarshal(raw, &out); err != nil {
		log.WithFields(logrus.Fields{
			"key":     key,
			"message": err,
		}).Warn("undecodable collection, falling back to empty")

		var zero T
		return zero
	}

	return out
}

// Load decodes the collection at key into T.
func Load[T any](ctx context.Context, s *Store, key string) (T, int64, error) {
	raw, version, err := s.Get(ctx, key)
	if err != nil {
		var zero T
		return zero, 0, err
	}
	return decode[T](s.log, key, raw), version, nil
}

// Save encodes v and writes it at key, guarded by the version returned from
// the matching Load.
func Save[T any](ctx context.Context, s *Store, key string, v T, expect int64) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding collection[%s]: %w", key, err)
	}
	return s.Put(ctx, key, raw, expect)
}

// Update runs a single load-mutate-save cycle on one transaction. There is
// deliberately no retry: a writer that slipped in before the transaction
// began surfaces as ErrStaleWrite for the caller to report.
func Update[T any](ctx context.Context, s *Store, key string, fn func(T) (T, error)) error {
	return database.Transaction(s.db, func(tx sqlx.ExtContext) error {
		raw, version, err := get(ctx, tx, key)
		if err != nil {
			return err
		}

		next, err := fn(decode[T](s.log, key, raw))
		if err != nil {
			return err
		}

		out, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("encoding collection[%s]: %w", key, err)
		}

		return put(ctx, tx, key, out, version)
	})
}
