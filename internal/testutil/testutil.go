// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package testutil provides shared test helpers for the oChat project.
package testutil

import (
	"database/sql"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/olegiv/ochat-go/internal/cache"
	"github.com/olegiv/ochat-go/internal/store"
)

// TestLogger creates a test logger that only outputs warnings and errors.
func TestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
}

// TestLoggerSilent creates a logger that discards everything.
func TestLoggerSilent() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestDBPath creates a migrated SQLite file in a temporary directory and
// returns its path. The file is closed again, so callers open it themselves.
func TestDBPath(t *testing.T) string {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "ochat-test.db")
	db, err := store.NewDB(dbPath)
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	if err := store.Migrate(db); err != nil {
		_ = db.Close()
		t.Fatalf("Migrate: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("closing database: %v", err)
	}
	return dbPath
}

// TestDB opens a migrated temporary database that is closed when the test
// ends.
func TestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := store.NewDB(TestDBPath(t))
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// TestSheetGateway returns a gateway over a temporary database.
func TestSheetGateway(t *testing.T) *store.SheetGateway {
	t.Helper()
	return store.NewSheetGateway(TestDB(t))
}

// TestCacheManager returns a memory-backed cache manager with one-minute
// TTLs that is closed when the test ends.
func TestCacheManager(t *testing.T) *cache.Manager {
	t.Helper()
	cm := cache.NewMemoryManager(time.Minute, time.Minute)
	t.Cleanup(func() { _ = cm.Close() })
	return cm
}
