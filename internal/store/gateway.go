// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package store is the record store gateway: a thin adapter exposing each
// logical table as an ordered list of rows (header row first) with
// read-all, append and positional range-delete operations.
//
// Row positions are 1-indexed and the header is row 1, so the first data
// row is row 2. There are no transactions across calls.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Table names a logical table.
type Table string

// Logical tables.
const (
	TableUsers    Table = "users"
	TableBans     Table = "bans"
	TableMessages Table = "messages"
	TableEvents   Table = "events"
)

// Headers holds the header row of every table.
var Headers = map[Table]Row{
	TableUsers:    {"username", "password_digest", "role"},
	TableBans:     {"username"},
	TableMessages: {"username", "role", "content", "timestamp"},
	TableEvents:   {"id", "level", "category", "message", "username", "metadata", "created_at"},
}

// Gateway errors.
var (
	// ErrUnavailable wraps every failure of the backing store itself.
	ErrUnavailable = errors.New("record store unavailable")
	// ErrRowOutOfRange is returned for delete ranges outside the table.
	ErrRowOutOfRange = errors.New("row index out of range")
	// ErrUnknownTable is returned for tables not listed in Headers.
	ErrUnknownTable = errors.New("unknown table")
)

// Row is an ordered list of cells.
type Row []string

// Record is a data row keyed by its (lower-cased) header names.
type Record map[string]string

// Get returns the first non-empty value among keys.
func (r Record) Get(keys ...string) string {
	for _, k := range keys {
		if v := r[k]; v != "" {
			return v
		}
	}
	return ""
}

// Gateway is the contract every record store backend implements.
type Gateway interface {
	// ReadAllRows returns every row of table, header first.
	ReadAllRows(ctx context.Context, table Table) ([]Row, error)

	// ReadAllRecords returns the data rows zipped with the header row.
	ReadAllRecords(ctx context.Context, table Table) ([]Record, error)

	// AppendRow adds row after the last row of table.
	AppendRow(ctx context.Context, table Table, row Row) error

	// DeleteRows removes rows start..end (1-indexed, inclusive).
	DeleteRows(ctx context.Context, table Table, start, end int) error

	// Ping checks that the backing store is reachable.
	Ping(ctx context.Context) error
}

// Records zips data rows with the header row. Header names are trimmed and
// lower-cased; short rows yield empty values for the missing cells.
func Records(rows []Row) []Record {
	if len(rows) == 0 {
		return nil
	}

	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.ToLower(strings.TrimSpace(h))
	}

	records := make([]Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec := make(Record, len(header))
		for i, h := range header {
			if h == "" {
				continue
			}
			if i < len(row) {
				rec[h] = row[i]
			} else {
				rec[h] = ""
			}
		}
		records = append(records, rec)
	}
	return records
}

// checkTable returns ErrUnknownTable for tables without a header definition.
func checkTable(table Table) error {
	if _, ok := Headers[table]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownTable, table)
	}
	return nil
}

// checkRange validates a delete range against the current row count.
func checkRange(start, end, rowCount int) error {
	if start < 1 || end < start || end > rowCount {
		return fmt.Errorf("%w: rows %d..%d of %d", ErrRowOutOfRange, start, end, rowCount)
	}
	return nil
}

// unavailable wraps a backend error as ErrUnavailable.
func unavailable(op string, table Table, err error) error {
	return fmt.Errorf("%w: %s %s: %w", ErrUnavailable, op, table, err)
}

func cloneRow(r Row) Row {
	out := make(Row, len(r))
	copy(out, r)
	return out
}
