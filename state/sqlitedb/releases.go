// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package sqlitedb

import (
	"context"
	"fmt"
	"time"
)

// Release is a withdrawal handed to the custody path for external transfer.
type Release struct {
	ID          int64
	Account     string
	Token       string
	Amount      string
	Destination string
	CreatedAt   time.Time
}

// RecordRelease appends r to the release journal and returns its id.
func (d *DB) RecordRelease(ctx context.Context, r Release) (int64, error) {
	res, err := d.sqlDB.ExecContext(ctx,
		"INSERT INTO releases (account, token, amount, destination, created_at) VALUES (?, ?, ?, ?, ?)",
		r.Account,
		r.Token,
		r.Amount,
		r.Destination,
		r.CreatedAt.UTC().UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("record release: %w", err)
	}
	return res.LastInsertId()
}

// Releases returns journaled releases of account, oldest first.
func (d *DB) Releases(ctx context.Context, account string) ([]Release, error) {
	rows, err := d.sqlDB.QueryContext(ctx,
		"SELECT id, account, token, amount, destination, created_at FROM releases WHERE account = ? ORDER BY id",
		account,
	)
	if err != nil {
		return nil, fmt.Errorf("query releases: %w", err)
	}
	defer rows.Close()

	var releases []Release
	for rows.Next() {
		var (
			r         Release
			createdAt int64
		)
		if err := rows.Scan(&r.ID, &r.Account, &r.Token, &r.Amount, &r.Destination, &createdAt); err != nil {
			return nil, fmt.Errorf("scan release: %w", err)
		}
		r.CreatedAt = time.UnixMilli(createdAt).UTC()
		releases = append(releases, r)
	}
	return releases, rows.Err()
}
