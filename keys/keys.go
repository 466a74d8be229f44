// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package keys defines the curve-tagged public keys that sign intents and the
// implicit accounts derived from them.
package keys

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/luxfi/crypto/bls"
	"github.com/mr-tron/base58"
	"golang.org/x/crypto/sha3"

	"github.com/luxfi/intents"
)

// Curve is the signature scheme of a PublicKey.
type Curve byte

const (
	Ed25519 Curve = iota + 1
	Secp256k1
	BLS
)

const (
	// Secp256k1Len is the length of an uncompressed secp256k1 key without
	// its 0x04 prefix.
	Secp256k1Len = 64
	// BLSLen is the length of an uncompressed BLS12-381 public key.
	BLSLen = 96

	secp256k1Uncompressed = 0x04
	addressLen            = 20
)

var (
	errUnknownCurve = errors.New("unknown curve")
	errKeyLength    = errors.New("invalid public key length")
	errMissingCurve = errors.New("missing curve prefix")
	errInvalidKey   = errors.New("invalid public key")
)

var curveNames = map[Curve]string{
	Ed25519:   "ed25519",
	Secp256k1: "secp256k1",
	BLS:       "bls12381",
}

func (c Curve) String() string {
	if name, ok := curveNames[c]; ok {
		return name
	}
	return fmt.Sprintf("curve(%d)", byte(c))
}

func (c Curve) keyLen() int {
	switch c {
	case Ed25519:
		return ed25519.PublicKeySize
	case Secp256k1:
		return Secp256k1Len
	case BLS:
		return BLSLen
	default:
		return 0
	}
}

// PublicKey is comparable and may be used as a map key.
type PublicKey struct {
	curve Curve
	key   string
}

// New returns the key of curve c with raw bytes b.
func New(c Curve, b []byte) (PublicKey, error) {
	n := c.keyLen()
	if n == 0 {
		return PublicKey{}, fmt.Errorf("%w: %d", errUnknownCurve, byte(c))
	}
	if len(b) != n {
		return PublicKey{}, fmt.Errorf("%w: %s key of %d bytes", errKeyLength, c, len(b))
	}
	return PublicKey{curve: c, key: string(b)}, nil
}

func FromEd25519(pk ed25519.PublicKey) PublicKey {
	return PublicKey{curve: Ed25519, key: string(pk)}
}

func FromSecp256k1(pk *secp256k1.PublicKey) PublicKey {
	return PublicKey{curve: Secp256k1, key: string(pk.SerializeUncompressed()[1:])}
}

func FromBLS(pk *bls.PublicKey) PublicKey {
	return PublicKey{curve: BLS, key: string(bls.PublicKeyToUncompressedBytes(pk))}
}

// ParseCurve returns the curve named name.
func ParseCurve(name string) (Curve, error) {
	for c, n := range curveNames {
		if n == name {
			return c, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", errUnknownCurve, name)
}

// Parse decodes the curve:base58 form, e.g. "ed25519:<base58>".
func Parse(s string) (PublicKey, error) {
	name, encoded, ok := strings.Cut(s, ":")
	if !ok {
		return PublicKey{}, errMissingCurve
	}
	c, err := ParseCurve(name)
	if err != nil {
		return PublicKey{}, err
	}
	b, err := base58.Decode(encoded)
	if err != nil {
		return PublicKey{}, fmt.Errorf("%w: %w", errInvalidKey, err)
	}
	return New(c, b)
}

func (k PublicKey) Curve() Curve {
	return k.curve
}

// Bytes returns a copy of the raw key.
func (k PublicKey) Bytes() []byte {
	return []byte(k.key)
}

func (k PublicKey) IsZero() bool {
	return k.curve == 0
}

// Ed25519 returns the key as an ed25519 verification key.
func (k PublicKey) Ed25519() (ed25519.PublicKey, bool) {
	if k.curve != Ed25519 {
		return nil, false
	}
	return ed25519.PublicKey(k.key), true
}

// Secp256k1 returns the key as a secp256k1 point.
func (k PublicKey) Secp256k1() (*secp256k1.PublicKey, error) {
	if k.curve != Secp256k1 {
		return nil, errUnknownCurve
	}
	return secp256k1.ParsePubKey(append([]byte{secp256k1Uncompressed}, k.key...))
}

// BLS returns the key as a BLS12-381 public key.
func (k PublicKey) BLS() (*bls.PublicKey, error) {
	if k.curve != BLS {
		return nil, errUnknownCurve
	}
	pk := bls.PublicKeyFromValidUncompressedBytes([]byte(k.key))
	if pk == nil {
		return nil, errInvalidKey
	}
	return pk, nil
}

// ImplicitAccountID returns the account that is controlled by this key
// without registration. ed25519 keys map to their lowercase hex encoding and
// secp256k1 keys to their 0x-prefixed 20-byte keccak address. BLS keys have
// no implicit account.
func (k PublicKey) ImplicitAccountID() (intents.AccountID, bool) {
	switch k.curve {
	case Ed25519:
		return intents.AccountID(hex.EncodeToString([]byte(k.key))), true
	case Secp256k1:
		return intents.AccountID("0x" + hex.EncodeToString(Address(k))), true
	default:
		return "", false
	}
}

// Address returns the last 20 bytes of the keccak256 hash of a secp256k1
// key.
func Address(k PublicKey) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(k.key))
	return h.Sum(nil)[32-addressLen:]
}

func (k PublicKey) String() string {
	return k.curve.String() + ":" + base58.Encode([]byte(k.key))
}

func (k PublicKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *PublicKey) UnmarshalText(text []byte) error {
	v, err := Parse(string(text))
	if err != nil {
		return err
	}
	*k = v
	return nil
}
