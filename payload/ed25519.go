// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package payload

import (
	"crypto/ed25519"
	"encoding/json"

	"github.com/luxfi/ids"

	"github.com/luxfi/intents"
	"github.com/luxfi/intents/keys"
)

const (
	RawEd25519Standard = "raw_ed25519"
	Sep53Standard      = "sep53"

	sep53Prefix = "Stellar Signed Message:\n"
)

var (
	_ Signed = (*RawEd25519)(nil)
	_ Signed = (*Sep53)(nil)
)

func init() {
	mustRegister(RawEd25519Standard, decodeAs[RawEd25519])
	mustRegister(Sep53Standard, decodeAs[Sep53])
}

// decodeAs is the Decoder of standards whose JSON form maps directly onto T.
func decodeAs[T any, P interface {
	*T
	Signed
}](raw []byte) (Signed, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return P(&v), nil
}

// verifyEd25519 checks that sig is pk's signature of msg.
func verifyEd25519(pk keys.PublicKey, sig Signature, msg []byte) (keys.PublicKey, error) {
	key, ok := pk.Ed25519()
	if !ok {
		return keys.PublicKey{}, intents.ErrMalformedPayload.Withf("expected an ed25519 key, got %s", pk.Curve())
	}
	if sig.Curve != keys.Ed25519 {
		return keys.PublicKey{}, intents.ErrMalformedPayload.Withf("expected an ed25519 signature, got %s", sig.Curve)
	}
	if !ed25519.Verify(key, msg, sig.Bytes) {
		return keys.PublicKey{}, intents.ErrInvalidSignature
	}
	return pk, nil
}

// RawEd25519 is a message signed as-is with ed25519, as Solana wallets sign
// off-chain messages.
type RawEd25519 struct {
	Payload   string         `json:"payload"`
	PublicKey keys.PublicKey `json:"public_key"`
	Signature Signature      `json:"signature"`
}

func (*RawEd25519) Standard() string {
	return RawEd25519Standard
}

func (r *RawEd25519) Hash() ids.ID {
	return sha256ID([]byte(r.Payload))
}

func (r *RawEd25519) Message() []byte {
	return []byte(r.Payload)
}

func (r *RawEd25519) Verify() (keys.PublicKey, error) {
	return verifyEd25519(r.PublicKey, r.Signature, []byte(r.Payload))
}

// Sep53 is a Stellar signed message: the ed25519 signature of
// sha256("Stellar Signed Message:\n" ‖ payload).
type Sep53 struct {
	Payload   string         `json:"payload"`
	PublicKey keys.PublicKey `json:"public_key"`
	Signature Signature      `json:"signature"`
}

func (*Sep53) Standard() string {
	return Sep53Standard
}

func (s *Sep53) Hash() ids.ID {
	return sha256ID([]byte(sep53Prefix), []byte(s.Payload))
}

func (s *Sep53) Message() []byte {
	return []byte(s.Payload)
}

func (s *Sep53) Verify() (keys.PublicKey, error) {
	h := s.Hash()
	return verifyEd25519(s.PublicKey, s.Signature, h[:])
}
