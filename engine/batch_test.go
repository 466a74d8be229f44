// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package engine

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/intents"
	"github.com/luxfi/intents/amount"
	"github.com/luxfi/intents/ledger"
)

var maxAmount = new(uint256.Int).SetAllOne()

func aggregate(deltas ...amount.Delta) (*aggregator, error) {
	agg := newAggregator()
	for i, d := range deltas {
		agg.index = i
		if err := agg.AddDelta("alice.near", tokenA, d); err != nil {
			return agg, err
		}
	}
	return agg, nil
}

func TestAggregatorOverflowIsOrderIndependent(t *testing.T) {
	one := uint256.NewInt(1)
	tests := []struct {
		name   string
		deltas []amount.Delta
	}{
		{
			name:   "credit last",
			deltas: []amount.Delta{amount.Credit(maxAmount), amount.Credit(one), amount.Debit(one)},
		},
		{
			name:   "debit first",
			deltas: []amount.Delta{amount.Credit(maxAmount), amount.Debit(one), amount.Credit(one)},
		},
		{
			name:   "debit before credits",
			deltas: []amount.Delta{amount.Debit(one), amount.Credit(maxAmount), amount.Credit(one)},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := aggregate(tt.deltas...)
			require.ErrorIs(t, err, intents.ErrArithmeticOverflow)
		})
	}
}

func TestAggregatorNetsOnce(t *testing.T) {
	require := require.New(t)
	one := uint256.NewInt(1)
	key := ledger.Key{Account: "alice.near", Token: tokenA}

	want := amount.Credit(new(uint256.Int).Sub(maxAmount, one))
	for _, order := range [][]amount.Delta{
		{amount.Credit(maxAmount), amount.Debit(one)},
		{amount.Debit(one), amount.Credit(maxAmount)},
	} {
		agg, err := aggregate(order...)
		require.NoError(err)
		require.Equal(map[ledger.Key]amount.Delta{key: want}, agg.deltas())
	}

	agg, err := aggregate(amount.Debit(one), amount.Credit(one))
	require.NoError(err)
	require.Empty(agg.deltas())
}
