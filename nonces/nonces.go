// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package nonces records consumed (account, nonce) pairs. A consumed nonce is
// never released.
package nonces

import (
	"errors"
	"fmt"
	"time"

	"github.com/luxfi/intents"
	"github.com/luxfi/intents/state"
)

const (
	prefix       = "n/"
	keySeparator = 0x00
	bitmapLen    = 32
)

// Store is the key-value view the guard reads and writes.
type Store interface {
	state.Reader
	state.Writer
}

// Guard stores nonces as 256-bit bitmaps: the first 31 bytes of a nonce select
// a bitmap and the last byte selects a bit. Signers that pick sequential
// nonces therefore share storage.
type Guard struct {
	store Store
}

func New(store Store) *Guard {
	return &Guard{store: store}
}

func bitmapKey(account intents.AccountID, n intents.Nonce) []byte {
	word := n.Word()
	k := make([]byte, 0, len(prefix)+len(account)+1+len(word))
	k = append(k, prefix...)
	k = append(k, string(account)...)
	k = append(k, keySeparator)
	return append(k, word[:]...)
}

func (g *Guard) bitmap(key []byte) ([bitmapLen]byte, error) {
	var bm [bitmapLen]byte
	b, err := g.store.Get(key)
	if errors.Is(err, state.ErrNotFound) {
		return bm, nil
	}
	if err != nil {
		return bm, err
	}
	if len(b) != bitmapLen {
		return bm, fmt.Errorf("corrupt nonce bitmap of %d bytes", len(b))
	}
	copy(bm[:], b)
	return bm, nil
}

func isSet(bm *[bitmapLen]byte, bit byte) bool {
	return bm[bit/8]&(1<<(bit%8)) != 0
}

// IsUsed reports whether account has consumed n.
func (g *Guard) IsUsed(account intents.AccountID, n intents.Nonce) (bool, error) {
	bm, err := g.bitmap(bitmapKey(account, n))
	if err != nil {
		return false, err
	}
	return isSet(&bm, n.Bit()), nil
}

// Commit consumes n for account. Consuming a nonce twice is
// ErrNonceAlreadyUsed.
func (g *Guard) Commit(account intents.AccountID, n intents.Nonce) error {
	key := bitmapKey(account, n)
	bm, err := g.bitmap(key)
	if err != nil {
		return err
	}
	bit := n.Bit()
	if isSet(&bm, bit) {
		return intents.ErrNonceAlreadyUsed.WithAccount(account)
	}
	bm[bit/8] |= 1 << (bit % 8)
	return g.store.Put(key, bm[:])
}

// CheckExpiry validates an expirable nonce against the execution time and the
// deadline of the intent that carries it. Nonces without an embedded
// deadline always pass.
func CheckExpiry(n intents.Nonce, deadline intents.Deadline, now time.Time) error {
	expiry, ok := n.Expiry()
	if !ok {
		return nil
	}
	if !now.Before(expiry) {
		return intents.ErrNonceExpired
	}
	if deadline.After(expiry) {
		return intents.ErrInvalidIntent.Withf("deadline after nonce expiry")
	}
	return nil
}
