// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package sqlitedb is a SQLite-backed state.Database.
package sqlitedb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/luxfi/intents/state"
	"github.com/luxfi/intents/state/sqlitedb/migrations"
)

var (
	_ state.Database = (*DB)(nil)
	_ state.Batch    = (*batch)(nil)

	errPathRequired = errors.New("storage path is required")
)

const upsertSQL = "INSERT INTO kv (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value"

// DB stores key-value pairs in a single SQLite table. Batches are SQLite
// transactions.
type DB struct {
	sqlDB *sql.DB
}

// Open opens or creates the database at path and applies the embedded
// migrations. Use ":memory:" for a private in-memory database.
func Open(ctx context.Context, path string) (*DB, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errPathRequired
	}
	dsn := path
	if path != ":memory:" {
		dsn = filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	}
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// a single connection keeps ":memory:" databases shared and serializes
	// writers
	sqlDB.SetMaxOpenConns(1)
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(ctx, sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &DB{sqlDB: sqlDB}, nil
}

func (d *DB) Get(key []byte) ([]byte, error) {
	var value []byte
	err := d.sqlDB.QueryRow("SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, state.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get: %w", err)
	}
	if value == nil {
		value = []byte{}
	}
	return value, nil
}

func (d *DB) Has(key []byte) (bool, error) {
	var found int
	err := d.sqlDB.QueryRow("SELECT 1 FROM kv WHERE key = ?", key).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("has: %w", err)
	}
	return true, nil
}

func (d *DB) Put(key []byte, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	if _, err := d.sqlDB.Exec(upsertSQL, key, value); err != nil {
		return fmt.Errorf("put: %w", err)
	}
	return nil
}

func (d *DB) Delete(key []byte) error {
	if _, err := d.sqlDB.Exec("DELETE FROM kv WHERE key = ?", key); err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	return nil
}

func (d *DB) NewBatch() state.Batch {
	return &batch{db: d}
}

// Close closes the SQLite handle.
func (d *DB) Close() error {
	if d == nil || d.sqlDB == nil {
		return nil
	}
	return d.sqlDB.Close()
}

type op struct {
	key   []byte
	value []byte
}

type batch struct {
	db  *DB
	ops []op
}

func (b *batch) Put(key []byte, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	b.ops = append(b.ops, op{key: key, value: value})
	return nil
}

func (b *batch) Delete(key []byte) error {
	b.ops = append(b.ops, op{key: key})
	return nil
}

func (b *batch) Size() int {
	return len(b.ops)
}

func (b *batch) Write() error {
	tx, err := b.db.sqlDB.Begin()
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	for _, o := range b.ops {
		if o.value == nil {
			_, err = tx.Exec("DELETE FROM kv WHERE key = ?", o.key)
		} else {
			_, err = tx.Exec(upsertSQL, o.key, o.value)
		}
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("write batch: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	b.ops = nil
	return nil
}
