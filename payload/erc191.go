// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package payload

import (
	"strconv"

	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/luxfi/ids"

	"github.com/luxfi/intents"
	"github.com/luxfi/intents/keys"
)

const (
	Erc191Standard = "erc191"
	Tip191Standard = "tip191"

	erc191Prefix = "\x19Ethereum Signed Message:\n"
	tip191Prefix = "\x19TRON Signed Message:\n"

	// compactRecoveryBase is the header byte of a compact signature of an
	// uncompressed key with recovery id 0.
	compactRecoveryBase = 27
)

var (
	_ Signed = (*Erc191)(nil)
	_ Signed = (*Tip191)(nil)
)

func init() {
	mustRegister(Erc191Standard, decodeAs[Erc191])
	mustRegister(Tip191Standard, decodeAs[Tip191])
}

// personalHash is keccak256(prefix ‖ decimal length of msg ‖ msg).
func personalHash(prefix, msg string) ids.ID {
	return keccakID([]byte(prefix), []byte(strconv.Itoa(len(msg))), []byte(msg))
}

// recoverSecp256k1 recovers the key that produced the r‖s‖v signature sig of
// digest. v may be given as 0/1 or 27/28.
func recoverSecp256k1(sig Signature, digest ids.ID) (keys.PublicKey, error) {
	if sig.Curve != keys.Secp256k1 {
		return keys.PublicKey{}, intents.ErrMalformedPayload.Withf("expected a secp256k1 signature, got %s", sig.Curve)
	}
	if len(sig.Bytes) != Secp256k1SignatureLen {
		return keys.PublicKey{}, intents.ErrMalformedPayload.Withf("%s: %d bytes", errSignatureLength, len(sig.Bytes))
	}
	v := sig.Bytes[Secp256k1SignatureLen-1]
	if v >= compactRecoveryBase {
		v -= compactRecoveryBase
	}
	if v > 1 {
		return keys.PublicKey{}, intents.ErrInvalidSignature.Withf("recovery id %d", v)
	}

	compact := make([]byte, 0, Secp256k1SignatureLen)
	compact = append(compact, compactRecoveryBase+v)
	compact = append(compact, sig.Bytes[:Secp256k1SignatureLen-1]...)
	pk, _, err := ecdsa.RecoverCompact(compact, digest[:])
	if err != nil {
		return keys.PublicKey{}, intents.ErrInvalidSignature.Withf("%s", err)
	}
	return keys.FromSecp256k1(pk), nil
}

// Erc191 is an Ethereum personal_sign message. The signer key is recovered
// from the signature.
type Erc191 struct {
	Payload   string    `json:"payload"`
	Signature Signature `json:"signature"`
}

func (*Erc191) Standard() string {
	return Erc191Standard
}

func (e *Erc191) Hash() ids.ID {
	return personalHash(erc191Prefix, e.Payload)
}

func (e *Erc191) Message() []byte {
	return []byte(e.Payload)
}

func (e *Erc191) Verify() (keys.PublicKey, error) {
	return recoverSecp256k1(e.Signature, e.Hash())
}

// Tip191 is a TRON signed message. It differs from Erc191 only in the
// prefix.
type Tip191 struct {
	Payload   string    `json:"payload"`
	Signature Signature `json:"signature"`
}

func (*Tip191) Standard() string {
	return Tip191Standard
}

func (t *Tip191) Hash() ids.ID {
	return personalHash(tip191Prefix, t.Payload)
}

func (t *Tip191) Message() []byte {
	return []byte(t.Payload)
}

func (t *Tip191) Verify() (keys.PublicKey, error) {
	return recoverSecp256k1(t.Signature, t.Hash())
}
