// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package verifier

import (
	"context"

	"github.com/holiman/uint256"

	"github.com/luxfi/intents"
	"github.com/luxfi/intents/tokenid"
)

//go:generate go run go.uber.org/mock/mockgen -package=verifiermock -destination=verifiermock/releaser.go -mock_names=Releaser=Releaser . Releaser

var (
	_ Releaser = NoOpReleaser{}
	_ Releaser = (*TestReleaser)(nil)
)

// Withdrawal is an amount of an asset leaving custody.
type Withdrawal struct {
	Owner       intents.AccountID
	Token       tokenid.TokenID
	Amount      *uint256.Int
	Destination string
}

// Releaser transfers withdrawn assets out of custody through the
// mechanism of the asset's standard.
type Releaser interface {
	// Release is called after the ledger has been debited. A returned error
	// refunds the debit.
	Release(ctx context.Context, w Withdrawal) error
}

// NoOpReleaser accepts every withdrawal without acting on it.
type NoOpReleaser struct{}

func (NoOpReleaser) Release(context.Context, Withdrawal) error {
	return nil
}

// TestReleaser is a test implementation of Releaser. Unset hooks accept
// every withdrawal.
type TestReleaser struct {
	ReleaseF func(context.Context, Withdrawal) error
}

func (t *TestReleaser) Release(ctx context.Context, w Withdrawal) error {
	if t.ReleaseF == nil {
		return nil
	}
	return t.ReleaseF(ctx, w)
}
