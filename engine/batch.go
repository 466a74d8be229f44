// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package engine

import (
	"maps"
	"slices"

	"github.com/holiman/uint256"

	"github.com/luxfi/intents"
	"github.com/luxfi/intents/amount"
	"github.com/luxfi/intents/intent"
	"github.com/luxfi/intents/keys"
	"github.com/luxfi/intents/ledger"
	"github.com/luxfi/intents/tokenid"
)

var _ intent.Executor = (*aggregator)(nil)

type nonceUse struct {
	index   int
	account intents.AccountID
	nonce   intents.Nonce
}

type keyOp struct {
	index   int
	add     bool
	account intents.AccountID
	pk      keys.PublicKey
}

// flow is the total credited to and debited from one balance.
type flow struct {
	credit uint256.Int
	debit  uint256.Int
}

func (f *flow) net() amount.Delta {
	if f.credit.Cmp(&f.debit) >= 0 {
		return amount.Credit(new(uint256.Int).Sub(&f.credit, &f.debit))
	}
	return amount.Debit(new(uint256.Int).Sub(&f.debit, &f.credit))
}

// aggregator buffers the effects of every action in a batch. Credits and
// debits of a balance are totalled separately and only netted once the
// batch is complete, so the order actions are executed in never changes
// the result.
type aggregator struct {
	index       int
	flows       map[ledger.Key]*flow
	invalidated []nonceUse
	keyOps      []keyOp
}

func newAggregator() *aggregator {
	return &aggregator{
		flows: make(map[ledger.Key]*flow),
	}
}

func (a *aggregator) AddDelta(account intents.AccountID, token tokenid.TokenID, delta amount.Delta) error {
	k := ledger.Key{Account: account, Token: token}
	f, ok := a.flows[k]
	if !ok {
		f = &flow{}
		a.flows[k] = f
	}
	total := &f.credit
	if delta.IsNegative() {
		total = &f.debit
	}
	if _, overflow := total.AddOverflow(total, delta.Magnitude()); overflow {
		return intents.ErrArithmeticOverflow.WithIndex(a.index).WithAccount(account).WithAsset(token)
	}
	return nil
}

// deltas nets every balance touched by the batch. Balances whose credits and
// debits cancel out are left out.
func (a *aggregator) deltas() map[ledger.Key]amount.Delta {
	deltas := make(map[ledger.Key]amount.Delta, len(a.flows))
	for k, f := range a.flows {
		if d := f.net(); !d.IsZero() {
			deltas[k] = d
		}
	}
	return deltas
}

func (a *aggregator) InvalidateNonce(account intents.AccountID, nonce intents.Nonce) error {
	a.invalidated = append(a.invalidated, nonceUse{index: a.index, account: account, nonce: nonce})
	return nil
}

func (a *aggregator) AddPublicKey(account intents.AccountID, pk keys.PublicKey) error {
	a.keyOps = append(a.keyOps, keyOp{index: a.index, add: true, account: account, pk: pk})
	return nil
}

func (a *aggregator) RemovePublicKey(account intents.AccountID, pk keys.PublicKey) error {
	a.keyOps = append(a.keyOps, keyOp{index: a.index, account: account, pk: pk})
	return nil
}

// checkConservation fails with Unbalanced for the first asset, in sorted
// order, whose credits and debits differ. Credits and debits are summed
// separately so that no intermediate sum depends on account order.
func checkConservation(deltas map[ledger.Key]amount.Delta) error {
	credits := make(map[tokenid.TokenID]*uint256.Int)
	debits := make(map[tokenid.TokenID]*uint256.Int)
	for k, d := range deltas {
		side := credits
		if d.IsNegative() {
			side = debits
		}
		total, ok := side[k.Token]
		if !ok {
			total = new(uint256.Int)
			side[k.Token] = total
		}
		if _, overflow := total.AddOverflow(total, d.Magnitude()); overflow {
			return intents.ErrArithmeticOverflow.WithAsset(k.Token)
		}
	}

	tokens := make(map[tokenid.TokenID]struct{}, len(credits)+len(debits))
	for token := range credits {
		tokens[token] = struct{}{}
	}
	for token := range debits {
		tokens[token] = struct{}{}
	}
	zero := new(uint256.Int)
	for _, token := range slices.SortedFunc(maps.Keys(tokens), tokenid.Compare) {
		credit, debit := credits[token], debits[token]
		if credit == nil {
			credit = zero
		}
		if debit == nil {
			debit = zero
		}
		if !credit.Eq(debit) {
			return intents.ErrUnbalanced.WithAsset(token).Withf("credits %s, debits %s", credit.Dec(), debit.Dec())
		}
	}
	return nil
}

// sortDeltas returns deltas in (account, asset) order.
func sortDeltas(deltas map[ledger.Key]amount.Delta) []Delta {
	ks := slices.SortedFunc(maps.Keys(deltas), ledger.CompareKeys)
	sorted := make([]Delta, 0, len(ks))
	for _, k := range ks {
		sorted = append(sorted, Delta{Account: k.Account, Token: k.Token, Delta: deltas[k]})
	}
	return sorted
}
