// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package migrations

import "embed"

// FS contains the embedded SQLite schema migrations.
//
//go:embed *.sql
var FS embed.FS
