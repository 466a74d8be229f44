// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package accounts keeps the per-account bookkeeping that sits beside the
// ledger: the public keys allowed to sign for an account and the storage
// deposit it has paid.
package accounts

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/holiman/uint256"

	"github.com/luxfi/intents"
	"github.com/luxfi/intents/amount"
	"github.com/luxfi/intents/keys"
	"github.com/luxfi/intents/state"
)

const (
	keysPrefix    = "k/"
	storagePrefix = "t/"
)

// Store is the key-value view the registry reads and writes.
type Store interface {
	state.Reader
	state.Writer
}

type Registry struct {
	store Store
}

func New(store Store) *Registry {
	return &Registry{store: store}
}

func keysKey(account intents.AccountID) []byte {
	return append([]byte(keysPrefix), string(account)...)
}

func storageKey(account intents.AccountID) []byte {
	return append([]byte(storagePrefix), string(account)...)
}

// PublicKeys returns the explicitly registered keys of account in their
// string order. Implicit keys are not listed.
func (r *Registry) PublicKeys(account intents.AccountID) ([]keys.PublicKey, error) {
	b, err := r.store.Get(keysKey(account))
	if errors.Is(err, state.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var pks []keys.PublicKey
	if err := json.Unmarshal(b, &pks); err != nil {
		return nil, fmt.Errorf("decode public keys of %s: %w", account, err)
	}
	return pks, nil
}

func (r *Registry) putPublicKeys(account intents.AccountID, pks []keys.PublicKey) error {
	if len(pks) == 0 {
		return r.store.Delete(keysKey(account))
	}
	slices.SortFunc(pks, func(a, b keys.PublicKey) int {
		return strings.Compare(a.String(), b.String())
	})
	b, err := json.Marshal(pks)
	if err != nil {
		return err
	}
	return r.store.Put(keysKey(account), b)
}

// IsImplicit reports whether pk controls account without registration.
func IsImplicit(account intents.AccountID, pk keys.PublicKey) bool {
	implicit, ok := pk.ImplicitAccountID()
	return ok && implicit == account
}

// HasPublicKey reports whether pk may sign for account.
func (r *Registry) HasPublicKey(account intents.AccountID, pk keys.PublicKey) (bool, error) {
	if IsImplicit(account, pk) {
		return true, nil
	}
	pks, err := r.PublicKeys(account)
	if err != nil {
		return false, err
	}
	return slices.Contains(pks, pk), nil
}

// AddPublicKey registers pk for account.
func (r *Registry) AddPublicKey(account intents.AccountID, pk keys.PublicKey) error {
	if IsImplicit(account, pk) {
		return intents.ErrPublicKeyExists.WithAccount(account).Withf("%s is implicit", pk)
	}
	pks, err := r.PublicKeys(account)
	if err != nil {
		return err
	}
	if slices.Contains(pks, pk) {
		return intents.ErrPublicKeyExists.WithAccount(account).Withf("%s", pk)
	}
	return r.putPublicKeys(account, append(pks, pk))
}

// RemovePublicKey revokes a registered key. Implicit keys cannot be
// removed.
func (r *Registry) RemovePublicKey(account intents.AccountID, pk keys.PublicKey) error {
	pks, err := r.PublicKeys(account)
	if err != nil {
		return err
	}
	i := slices.Index(pks, pk)
	if i < 0 {
		return intents.ErrPublicKeyNotRegistered.WithAccount(account).Withf("%s", pk)
	}
	return r.putPublicKeys(account, slices.Delete(pks, i, i+1))
}

// StorageBalance returns the storage deposit paid by account.
func (r *Registry) StorageBalance(account intents.AccountID) (*uint256.Int, error) {
	b, err := r.store.Get(storageKey(account))
	if errors.Is(err, state.ErrNotFound) {
		return new(uint256.Int), nil
	}
	if err != nil {
		return nil, err
	}
	return new(uint256.Int).SetBytes(b), nil
}

// StorageDeposit adds v to the storage deposit of account and returns the
// new storage balance.
func (r *Registry) StorageDeposit(account intents.AccountID, v *uint256.Int) (*uint256.Int, error) {
	if v == nil || v.IsZero() {
		return nil, intents.ErrInvalidAmount.Withf("zero storage deposit").WithAccount(account)
	}
	bal, err := r.StorageBalance(account)
	if err != nil {
		return nil, err
	}
	newBal, err := amount.Add(bal, v)
	if err != nil {
		return nil, intents.ErrArithmeticOverflow.WithAccount(account)
	}
	if err := r.store.Put(storageKey(account), newBal.Bytes()); err != nil {
		return nil, err
	}
	return newBal, nil
}

// RequireStorage fails with StorageNotRegistered unless account has paid at
// least minimum for storage.
func (r *Registry) RequireStorage(account intents.AccountID, minimum *uint256.Int) error {
	bal, err := r.StorageBalance(account)
	if err != nil {
		return err
	}
	if bal.IsZero() || bal.Lt(minimum) {
		return intents.ErrStorageNotRegistered.WithAccount(account)
	}
	return nil
}
