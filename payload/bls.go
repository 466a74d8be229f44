// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package payload

import (
	"github.com/luxfi/crypto/bls"
	"github.com/luxfi/ids"

	"github.com/luxfi/intents"
	"github.com/luxfi/intents/keys"
)

const BLSStandard = "bls"

var _ Signed = (*BLS)(nil)

func init() {
	mustRegister(BLSStandard, decodeAs[BLS])
}

// BLS is a message signed by a BLS12-381 key over sha256(payload), using
// the proof of possession domain.
type BLS struct {
	Payload   string         `json:"payload"`
	PublicKey keys.PublicKey `json:"public_key"`
	Signature Signature      `json:"signature"`
}

func (*BLS) Standard() string {
	return BLSStandard
}

func (b *BLS) Hash() ids.ID {
	return sha256ID([]byte(b.Payload))
}

func (b *BLS) Message() []byte {
	return []byte(b.Payload)
}

func (b *BLS) Verify() (keys.PublicKey, error) {
	pk, err := b.PublicKey.BLS()
	if err != nil {
		return keys.PublicKey{}, intents.ErrMalformedPayload.Withf("public key: %s", err)
	}
	if b.Signature.Curve != keys.BLS {
		return keys.PublicKey{}, intents.ErrMalformedPayload.Withf("expected a %s signature, got %s", keys.BLS, b.Signature.Curve)
	}
	sig, err := bls.SignatureFromBytes(b.Signature.Bytes)
	if err != nil {
		return keys.PublicKey{}, intents.ErrMalformedPayload.Withf("signature: %s", err)
	}
	h := b.Hash()
	if !bls.VerifyProofOfPossession(pk, sig, h[:]) {
		return keys.PublicKey{}, intents.ErrInvalidSignature
	}
	return b.PublicKey, nil
}
