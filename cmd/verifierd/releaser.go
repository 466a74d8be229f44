// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"errors"

	"github.com/luxfi/log"
	"github.com/luxfi/vm/utils/timer/mockable"

	"github.com/luxfi/intents/state/sqlitedb"
	"github.com/luxfi/intents/verifier"
)

var (
	_ verifier.Releaser = (*journalReleaser)(nil)

	errMissingDestination = errors.New("missing destination")
)

// journalReleaser hands withdrawals to the custody service through the
// release journal, which the custody service drains.
type journalReleaser struct {
	log   log.Logger
	db    *sqlitedb.DB
	clock *mockable.Clock
}

func newJournalReleaser(log log.Logger, db *sqlitedb.DB, clock *mockable.Clock) *journalReleaser {
	return &journalReleaser{
		log:   log,
		db:    db,
		clock: clock,
	}
}

func (j *journalReleaser) Release(ctx context.Context, w verifier.Withdrawal) error {
	if w.Destination == "" {
		return errMissingDestination
	}
	id, err := j.db.RecordRelease(ctx, sqlitedb.Release{
		Account:     w.Owner.String(),
		Token:       w.Token.String(),
		Amount:      w.Amount.Dec(),
		Destination: w.Destination,
		CreatedAt:   j.clock.Time(),
	})
	if err != nil {
		return err
	}
	j.log.Info("release journaled",
		log.Uint64("id", uint64(id)),
		log.Stringer("account", w.Owner),
		log.Stringer("token", w.Token),
	)
	return nil
}
