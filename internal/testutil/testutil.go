// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package testutil provides shared test helpers.
package testutil

import (
	"database/sql"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/jaalnock/dairy-project-sub000/internal/store"

	_ "github.com/mattn/go-sqlite3"
)

// TestLoggerSilent returns a logger that discards its output.
func TestLoggerSilent() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

// TestDB opens a migrated database file under t.TempDir through the
// production driver. The returned cleanup closes it; the directory is
// removed by the testing package.
func TestDB(t *testing.T) (*sql.DB, func()) {
	t.Helper()

	db, err := store.NewDB(filepath.Join(t.TempDir(), "dairy-test.db"))
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	if err := store.Migrate(db); err != nil {
		_ = db.Close()
		t.Fatalf("Migrate: %v", err)
	}
	return db, func() { _ = db.Close() }
}

// TestMemoryDB opens a migrated in-memory database through the cgo sqlite3
// driver, so the schema is exercised on both drivers. It is limited to one
// connection because every :memory: connection is a separate database.
func TestMemoryDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("opening memory db: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	if err := store.Migrate(db); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return db
}
