// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package intents

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const (
	NonceLen = 32

	expirablePrefixLen = 4
	expirableTimeLen   = 8
)

// expirablePrefix marks a nonce that carries its own deadline.
var expirablePrefix = [expirablePrefixLen]byte{0xdd, 0x50, 0xbc, 0x7c}

var errNonceLength = errors.New("invalid nonce length")

// Nonce is a 256-bit replay token chosen by the signer. A (signer, nonce)
// pair can be consumed at most once.
type Nonce [NonceLen]byte

// NewExpirableNonce returns a random nonce that is only accepted until
// deadline.
func NewExpirableNonce(deadline time.Time) (Nonce, error) {
	var n Nonce
	copy(n[:], expirablePrefix[:])
	binary.LittleEndian.PutUint64(n[expirablePrefixLen:], uint64(deadline.UnixNano()))
	_, err := rand.Read(n[expirablePrefixLen+expirableTimeLen:])
	return n, err
}

// NonceFromString decodes the standard base64 form of a nonce.
func NonceFromString(s string) (Nonce, error) {
	var n Nonce
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return n, err
	}
	if len(b) != NonceLen {
		return n, fmt.Errorf("%w: %d", errNonceLength, len(b))
	}
	copy(n[:], b)
	return n, nil
}

// Expiry returns the deadline embedded in an expirable nonce.
func (n Nonce) Expiry() (time.Time, bool) {
	if !bytes.Equal(n[:expirablePrefixLen], expirablePrefix[:]) {
		return time.Time{}, false
	}
	ns := binary.LittleEndian.Uint64(n[expirablePrefixLen : expirablePrefixLen+expirableTimeLen])
	return time.Unix(0, int64(ns)).UTC(), true
}

// Word is the bitmap word that records n.
func (n Nonce) Word() [NonceLen - 1]byte {
	var w [NonceLen - 1]byte
	copy(w[:], n[:NonceLen-1])
	return w
}

// Bit is the position of n inside its bitmap word.
func (n Nonce) Bit() byte {
	return n[NonceLen-1]
}

func (n Nonce) String() string {
	return base64.StdEncoding.EncodeToString(n[:])
}

func (n Nonce) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.String())
}

func (n *Nonce) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := NonceFromString(s)
	if err != nil {
		return err
	}
	*n = v
	return nil
}
