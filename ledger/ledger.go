// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package ledger owns every (account, asset) balance and the per-asset total
// supply held by the engine.
package ledger

import (
	"cmp"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/holiman/uint256"

	"github.com/luxfi/intents"
	"github.com/luxfi/intents/amount"
	"github.com/luxfi/intents/state"
	"github.com/luxfi/intents/tokenid"
)

const (
	balancePrefix = "b/"
	supplyPrefix  = "s/"
	keySeparator  = 0x00
)

// Store is the key-value view the ledger reads and writes. Callers that need
// all-or-nothing semantics across several ledger calls pass a state.Overlay.
type Store interface {
	state.Reader
	state.Writer
}

// Key addresses one balance entry.
type Key struct {
	Account intents.AccountID
	Token   tokenid.TokenID
}

// CompareKeys orders keys by account, then by asset.
func CompareKeys(a, b Key) int {
	if c := cmp.Compare(a.Account, b.Account); c != 0 {
		return c
	}
	return tokenid.Compare(a.Token, b.Token)
}

// Ledger is a view of balances over a Store.
type Ledger struct {
	store Store
}

func New(store Store) *Ledger {
	return &Ledger{store: store}
}

func balanceKey(account intents.AccountID, token tokenid.TokenID) []byte {
	k := make([]byte, 0, len(balancePrefix)+len(account)+1+64)
	k = append(k, balancePrefix...)
	k = append(k, string(account)...)
	k = append(k, keySeparator)
	return append(k, token.String()...)
}

func supplyKey(token tokenid.TokenID) []byte {
	return append([]byte(supplyPrefix), token.String()...)
}

func (l *Ledger) read(key []byte) (*uint256.Int, error) {
	b, err := l.store.Get(key)
	if errors.Is(err, state.ErrNotFound) {
		return new(uint256.Int), nil
	}
	if err != nil {
		return nil, err
	}
	return new(uint256.Int).SetBytes(b), nil
}

// write stores v, deleting zero entries so an emptied balance leaves no
// trace.
func (l *Ledger) write(key []byte, v *uint256.Int) error {
	if v.IsZero() {
		return l.store.Delete(key)
	}
	return l.store.Put(key, v.Bytes())
}

// BalanceOf returns the balance of account in token, zero if absent.
func (l *Ledger) BalanceOf(account intents.AccountID, token tokenid.TokenID) (*uint256.Int, error) {
	return l.read(balanceKey(account, token))
}

// TotalSupply returns the amount of token held by the engine across all
// accounts.
func (l *Ledger) TotalSupply(token tokenid.TokenID) (*uint256.Int, error) {
	return l.read(supplyKey(token))
}

// HasAnyBalance reports whether account holds a non-zero balance of any of
// tokens.
func (l *Ledger) HasAnyBalance(account intents.AccountID, tokens []tokenid.TokenID) (bool, error) {
	for _, token := range tokens {
		has, err := l.store.Has(balanceKey(account, token))
		if err != nil || has {
			return has, err
		}
	}
	return false, nil
}

type pendingWrite struct {
	key   []byte
	value *uint256.Int
}

func (l *Ledger) flush(writes []pendingWrite) error {
	for _, w := range writes {
		if err := l.write(w.key, w.value); err != nil {
			return fmt.Errorf("write ledger: %w", err)
		}
	}
	return nil
}

func sortedTokens(m map[tokenid.TokenID]*uint256.Int) []tokenid.TokenID {
	return slices.SortedFunc(maps.Keys(m), tokenid.Compare)
}

// Deposit credits owner with every amount and raises the total supplies.
// Amounts must be positive. Nothing is written unless every credit succeeds.
func (l *Ledger) Deposit(owner intents.AccountID, amounts map[tokenid.TokenID]*uint256.Int) error {
	writes := make([]pendingWrite, 0, 2*len(amounts))
	for _, token := range sortedTokens(amounts) {
		v := amounts[token]
		if v == nil || v.IsZero() {
			return intents.ErrInvalidAmount.Withf("zero deposit").WithAsset(token)
		}

		supply, err := l.TotalSupply(token)
		if err != nil {
			return err
		}
		newSupply, err := amount.Add(supply, v)
		if err != nil {
			return intents.ErrArithmeticOverflow.Withf("total supply").WithAsset(token)
		}
		if token.Standard.IsNonFungible() && newSupply.CmpUint64(1) > 0 {
			return intents.ErrNftAlreadyDeposited.WithAsset(token)
		}

		bal, err := l.BalanceOf(owner, token)
		if err != nil {
			return err
		}
		newBal, err := amount.Add(bal, v)
		if err != nil {
			return intents.ErrArithmeticOverflow.WithAccount(owner).WithAsset(token)
		}
		writes = append(writes,
			pendingWrite{key: supplyKey(token), value: newSupply},
			pendingWrite{key: balanceKey(owner, token), value: newBal},
		)
	}
	return l.flush(writes)
}

// Withdraw debits owner by every amount and lowers the total supplies. The
// first insufficient balance aborts the withdrawal with nothing written.
func (l *Ledger) Withdraw(owner intents.AccountID, amounts map[tokenid.TokenID]*uint256.Int) error {
	writes := make([]pendingWrite, 0, 2*len(amounts))
	for _, token := range sortedTokens(amounts) {
		v := amounts[token]
		if v == nil || v.IsZero() {
			return intents.ErrInvalidAmount.Withf("zero withdrawal").WithAsset(token)
		}

		bal, err := l.BalanceOf(owner, token)
		if err != nil {
			return err
		}
		newBal, err := amount.Sub(bal, v)
		if err != nil {
			return intents.ErrInsufficientBalance.WithAccount(owner).WithAsset(token)
		}

		supply, err := l.TotalSupply(token)
		if err != nil {
			return err
		}
		newSupply, err := amount.Sub(supply, v)
		if err != nil {
			// a balance can never exceed the supply it is part of
			return fmt.Errorf("total supply of %s below balance of %s", token, owner)
		}
		writes = append(writes,
			pendingWrite{key: supplyKey(token), value: newSupply},
			pendingWrite{key: balanceKey(owner, token), value: newBal},
		)
	}
	return l.flush(writes)
}

// ApplyDeltas applies every delta or none. Entries are checked in
// CompareKeys order and the first balance that would go negative is reported
// as InsufficientBalance. Total supplies are unchanged: deltas only move
// assets between accounts.
func (l *Ledger) ApplyDeltas(deltas map[Key]amount.Delta) error {
	keys := slices.SortedFunc(maps.Keys(deltas), CompareKeys)
	writes := make([]pendingWrite, 0, len(keys))
	for _, k := range keys {
		d := deltas[k]
		if d.IsZero() {
			continue
		}
		bal, err := l.BalanceOf(k.Account, k.Token)
		if err != nil {
			return err
		}
		newBal, err := d.ApplyTo(bal)
		switch {
		case errors.Is(err, amount.ErrUnderflow):
			return intents.ErrInsufficientBalance.WithAccount(k.Account).WithAsset(k.Token)
		case err != nil:
			return intents.ErrArithmeticOverflow.WithAccount(k.Account).WithAsset(k.Token)
		}
		writes = append(writes, pendingWrite{key: balanceKey(k.Account, k.Token), value: newBal})
	}
	return l.flush(writes)
}
