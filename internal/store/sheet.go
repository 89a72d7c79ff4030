// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// SheetGateway stores every logical table as an ordered set of rows in the
// sheet_rows table. Row order is insertion order (the row id).
type SheetGateway struct {
	db *sql.DB
}

// NewSheetGateway creates a gateway over a migrated database.
func NewSheetGateway(db *sql.DB) *SheetGateway {
	return &SheetGateway{db: db}
}

// ReadAllRows returns every row of table, header first.
func (g *SheetGateway) ReadAllRows(ctx context.Context, table Table) ([]Row, error) {
	if err := checkTable(table); err != nil {
		return nil, err
	}

	rows, err := g.db.QueryContext(ctx,
		`SELECT cells FROM sheet_rows WHERE sheet = ? ORDER BY id`, string(table))
	if err != nil {
		return nil, unavailable("reading", table, err)
	}
	defer func() { _ = rows.Close() }()

	var out []Row
	for rows.Next() {
		var cells string
		if err := rows.Scan(&cells); err != nil {
			return nil, unavailable("scanning", table, err)
		}
		var row Row
		if err := json.Unmarshal([]byte(cells), &row); err != nil {
			return nil, fmt.Errorf("decoding %s row: %w", table, err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("reading", table, err)
	}

	return out, nil
}

// ReadAllRecords returns the data rows of table zipped with its header.
func (g *SheetGateway) ReadAllRecords(ctx context.Context, table Table) ([]Record, error) {
	rows, err := g.ReadAllRows(ctx, table)
	if err != nil {
		return nil, err
	}
	return Records(rows), nil
}

// AppendRow adds row at the end of table.
func (g *SheetGateway) AppendRow(ctx context.Context, table Table, row Row) error {
	if err := checkTable(table); err != nil {
		return err
	}

	if row == nil {
		row = Row{}
	}
	cells, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("encoding %s row: %w", table, err)
	}

	if _, err := g.db.ExecContext(ctx,
		`INSERT INTO sheet_rows (sheet, cells) VALUES (?, ?)`, string(table), string(cells)); err != nil {
		return unavailable("appending to", table, err)
	}
	return nil
}

// DeleteRows removes rows start..end (1-indexed, inclusive) of table.
// Positions are resolved and deleted inside one transaction.
func (g *SheetGateway) DeleteRows(ctx context.Context, table Table, start, end int) error {
	if err := checkTable(table); err != nil {
		return err
	}
	if start < 1 || end < start {
		return checkRange(start, end, 0)
	}

	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return unavailable("deleting from", table, err)
	}
	defer func() { _ = tx.Rollback() }()

	var rowCount int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sheet_rows WHERE sheet = ?`, string(table)).Scan(&rowCount); err != nil {
		return unavailable("counting", table, err)
	}
	if err := checkRange(start, end, rowCount); err != nil {
		return err
	}

	var firstID, lastID int64
	if err := tx.QueryRowContext(ctx,
		`SELECT id FROM sheet_rows WHERE sheet = ? ORDER BY id LIMIT 1 OFFSET ?`,
		string(table), start-1).Scan(&firstID); err != nil {
		return unavailable("locating", table, err)
	}
	if err := tx.QueryRowContext(ctx,
		`SELECT id FROM sheet_rows WHERE sheet = ? ORDER BY id LIMIT 1 OFFSET ?`,
		string(table), end-1).Scan(&lastID); err != nil {
		return unavailable("locating", table, err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM sheet_rows WHERE sheet = ? AND id BETWEEN ? AND ?`,
		string(table), firstID, lastID); err != nil {
		return unavailable("deleting from", table, err)
	}

	if err := tx.Commit(); err != nil {
		return unavailable("committing delete on", table, err)
	}
	return nil
}

// Ping checks that the backing database answers.
func (g *SheetGateway) Ping(ctx context.Context) error {
	if err := g.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return nil
}

var _ Gateway = (*SheetGateway)(nil)
