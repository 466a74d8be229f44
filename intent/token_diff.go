// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package intent

import (
	"maps"
	"slices"

	"github.com/holiman/uint256"

	"github.com/luxfi/intents"
	"github.com/luxfi/intents/amount"
	"github.com/luxfi/intents/tokenid"
)

const (
	tokenDiffName = "token_diff"
	transferName  = "transfer"
)

var (
	_ Action = (*TokenDiff)(nil)
	_ Action = (*Transfer)(nil)
)

// TokenDiff declares the signer's willingness to change its own balances by
// Diff. Negative deltas are given up, positive deltas are received. A diff
// only commits if the whole batch conserves every asset.
type TokenDiff struct {
	Diff map[tokenid.TokenID]amount.Delta `json:"diff"`
	Memo string                           `json:"memo,omitempty"`
}

type tokenDiffJSON TokenDiff

func (*TokenDiff) Name() string {
	return tokenDiffName
}

func (d *TokenDiff) Validate(intents.AccountID) error {
	if len(d.Diff) == 0 {
		return intents.ErrInvalidIntent.Withf("empty diff")
	}
	for token, delta := range d.Diff {
		if err := token.Verify(); err != nil {
			return err
		}
		if delta.IsZero() {
			return intents.ErrInvalidIntent.Withf("zero delta").WithAsset(token)
		}
	}
	return nil
}

func (d *TokenDiff) Execute(signer intents.AccountID, ex Executor) error {
	for _, token := range slices.SortedFunc(maps.Keys(d.Diff), tokenid.Compare) {
		if err := ex.AddDelta(signer, token, d.Diff[token]); err != nil {
			return err
		}
	}
	return nil
}

func (d TokenDiff) MarshalJSON() ([]byte, error) {
	return tagged(tokenDiffName, tokenDiffJSON(d))
}

// Transfer moves Tokens from the signer to ReceiverID unconditionally.
type Transfer struct {
	ReceiverID intents.AccountID                `json:"receiver_id"`
	Tokens     map[tokenid.TokenID]*uint256.Int `json:"tokens"`
	Memo       string                           `json:"memo,omitempty"`
}

type transferJSON Transfer

func (*Transfer) Name() string {
	return transferName
}

func (t *Transfer) Validate(signer intents.AccountID) error {
	switch {
	case t.ReceiverID == "":
		return intents.ErrInvalidIntent.Withf("missing receiver")
	case t.ReceiverID == signer:
		return intents.ErrInvalidIntent.Withf("transfer to self")
	case len(t.Tokens) == 0:
		return intents.ErrInvalidIntent.Withf("no tokens")
	}
	for token, v := range t.Tokens {
		if err := token.Verify(); err != nil {
			return err
		}
		if v == nil || v.IsZero() {
			return intents.ErrInvalidIntent.Withf("zero amount").WithAsset(token)
		}
	}
	return nil
}

func (t *Transfer) Execute(signer intents.AccountID, ex Executor) error {
	for _, token := range slices.SortedFunc(maps.Keys(t.Tokens), tokenid.Compare) {
		v := t.Tokens[token]
		if err := ex.AddDelta(signer, token, amount.Debit(v)); err != nil {
			return err
		}
		if err := ex.AddDelta(t.ReceiverID, token, amount.Credit(v)); err != nil {
			return err
		}
	}
	return nil
}

func (t Transfer) MarshalJSON() ([]byte, error) {
	return tagged(transferName, transferJSON(t))
}
