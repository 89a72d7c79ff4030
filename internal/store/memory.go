// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"sync"
)

// MemoryGateway keeps all tables in process memory. It has the same
// positional semantics as SheetGateway and serves tests and throwaway
// development servers.
type MemoryGateway struct {
	mu     sync.RWMutex
	sheets map[Table][]Row
}

// NewMemoryGateway returns a gateway whose tables hold only their header rows.
func NewMemoryGateway() *MemoryGateway {
	g := &MemoryGateway{sheets: make(map[Table][]Row, len(Headers))}
	for table, header := range Headers {
		g.sheets[table] = []Row{cloneRow(header)}
	}
	return g
}

// ReadAllRows returns a copy of every row of table, header first.
func (g *MemoryGateway) ReadAllRows(_ context.Context, table Table) ([]Row, error) {
	if err := checkTable(table); err != nil {
		return nil, err
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	rows := g.sheets[table]
	out := make([]Row, len(rows))
	for i, r := range rows {
		out[i] = cloneRow(r)
	}
	return out, nil
}

// ReadAllRecords returns the data rows of table zipped with its header.
func (g *MemoryGateway) ReadAllRecords(ctx context.Context, table Table) ([]Record, error) {
	rows, err := g.ReadAllRows(ctx, table)
	if err != nil {
		return nil, err
	}
	return Records(rows), nil
}

// AppendRow adds a copy of row at the end of table.
func (g *MemoryGateway) AppendRow(_ context.Context, table Table, row Row) error {
	if err := checkTable(table); err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.sheets[table] = append(g.sheets[table], cloneRow(row))
	return nil
}

// DeleteRows removes rows start..end (1-indexed, inclusive) of table.
func (g *MemoryGateway) DeleteRows(_ context.Context, table Table, start, end int) error {
	if err := checkTable(table); err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	rows := g.sheets[table]
	if err := checkRange(start, end, len(rows)); err != nil {
		return err
	}

	kept := make([]Row, 0, len(rows)-(end-start+1))
	kept = append(kept, rows[:start-1]...)
	kept = append(kept, rows[end:]...)
	g.sheets[table] = kept
	return nil
}

// Ping always succeeds.
func (g *MemoryGateway) Ping(context.Context) error {
	return nil
}

var _ Gateway = (*MemoryGateway)(nil)
