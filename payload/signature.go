// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package payload

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"

	"github.com/luxfi/intents/keys"
)

const (
	// Secp256k1SignatureLen is the length of an r‖s‖v signature.
	Secp256k1SignatureLen = 65
	// BLSSignatureLen is the length of a compressed BLS12-381 signature.
	BLSSignatureLen = 96
)

var (
	errMissingCurve      = errors.New("missing curve prefix")
	errSignatureLength   = errors.New("invalid signature length")
	errSignatureEncoding = errors.New("invalid signature encoding")
)

var signatureLens = map[keys.Curve]int{
	keys.Ed25519:   ed25519.SignatureSize,
	keys.Secp256k1: Secp256k1SignatureLen,
	keys.BLS:       BLSSignatureLen,
}

// Signature is a curve-tagged signature with the text form curve:base58.
type Signature struct {
	Curve keys.Curve
	Bytes []byte
}

// NewSignature returns a signature of curve c, checking its length.
func NewSignature(c keys.Curve, b []byte) (Signature, error) {
	n, ok := signatureLens[c]
	if !ok {
		return Signature{}, fmt.Errorf("%w: %s", errSignatureLength, c)
	}
	if len(b) != n {
		return Signature{}, fmt.Errorf("%w: %s signature of %d bytes", errSignatureLength, c, len(b))
	}
	return Signature{Curve: c, Bytes: b}, nil
}

func ParseSignature(s string) (Signature, error) {
	name, encoded, ok := strings.Cut(s, ":")
	if !ok {
		return Signature{}, errMissingCurve
	}
	c, err := keys.ParseCurve(name)
	if err != nil {
		return Signature{}, err
	}
	b, err := base58.Decode(encoded)
	if err != nil {
		return Signature{}, fmt.Errorf("%w: %w", errSignatureEncoding, err)
	}
	return NewSignature(c, b)
}

func (s Signature) String() string {
	return s.Curve.String() + ":" + base58.Encode(s.Bytes)
}

func (s Signature) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Signature) UnmarshalText(text []byte) error {
	v, err := ParseSignature(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}
