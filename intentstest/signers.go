// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package intentstest signs intents under every supported standard for use in
// tests.
package intentstest

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"
	"time"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/luxfi/crypto/bls"
	"github.com/luxfi/crypto/bls/signer/localsigner"
	"github.com/luxfi/ids"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/intents"
	"github.com/luxfi/intents/intent"
	"github.com/luxfi/intents/keys"
	"github.com/luxfi/intents/payload"
)

// Signer signs intent payloads under one standard.
type Signer interface {
	Standard() string
	PublicKey() keys.PublicKey
	// Account is the implicit account of the key, or "" if the curve has
	// none.
	Account() intents.AccountID
	// Sign encodes p and signs it.
	Sign(t *testing.T, p *intent.Payload) payload.MultiPayload
}

var (
	_ Signer = (*ed25519Signer)(nil)
	_ Signer = (*secp256k1Signer)(nil)
	_ Signer = (*blsSigner)(nil)
)

// NewSigner returns a signer with a fresh key for standard.
func NewSigner(t *testing.T, standard string) Signer {
	switch standard {
	case payload.Nep413Standard, payload.RawEd25519Standard, payload.Sep53Standard, payload.TonConnectStandard:
		_, priv, err := ed25519.GenerateKey(rand.Reader)
		require.NoError(t, err)
		return &ed25519Signer{standard: standard, key: priv}
	case payload.Erc191Standard, payload.Tip191Standard:
		priv, err := secp256k1.GeneratePrivateKey()
		require.NoError(t, err)
		return &secp256k1Signer{standard: standard, key: priv}
	case payload.BLSStandard:
		s, err := localsigner.New()
		require.NoError(t, err)
		return &blsSigner{key: s}
	default:
		require.FailNow(t, "unknown standard", standard)
		return nil
	}
}

// Signers returns one signer per registered standard.
func Signers(t *testing.T) []Signer {
	standards := payload.Standards()
	signers := make([]Signer, 0, len(standards))
	for _, standard := range standards {
		signers = append(signers, NewSigner(t, standard))
	}
	return signers
}

func encode(t *testing.T, p *intent.Payload) []byte {
	msg, err := p.Encode()
	require.NoError(t, err)
	return msg
}

func implicit(pk keys.PublicKey) intents.AccountID {
	account, _ := pk.ImplicitAccountID()
	return account
}

type ed25519Signer struct {
	standard string
	key      ed25519.PrivateKey
}

func (s *ed25519Signer) Standard() string {
	return s.standard
}

func (s *ed25519Signer) PublicKey() keys.PublicKey {
	return keys.FromEd25519(s.key.Public().(ed25519.PublicKey))
}

func (s *ed25519Signer) Account() intents.AccountID {
	return implicit(s.PublicKey())
}

func (s *ed25519Signer) sign(t *testing.T, msg []byte) payload.Signature {
	sig, err := payload.NewSignature(keys.Ed25519, ed25519.Sign(s.key, msg))
	require.NoError(t, err)
	return sig
}

func (s *ed25519Signer) Sign(t *testing.T, p *intent.Payload) payload.MultiPayload {
	msg := string(encode(t, p))
	switch s.standard {
	case payload.Nep413Standard:
		signed := &payload.Nep413{
			Payload: payload.Nep413Message{
				Message:   msg,
				Nonce:     p.Nonce,
				Recipient: string(p.VerifyingContract),
			},
			PublicKey: s.PublicKey(),
		}
		h := signed.Hash()
		signed.Signature = s.sign(t, h[:])
		return payload.MultiPayload{Signed: signed}
	case payload.RawEd25519Standard:
		return payload.MultiPayload{Signed: &payload.RawEd25519{
			Payload:   msg,
			PublicKey: s.PublicKey(),
			Signature: s.sign(t, []byte(msg)),
		}}
	case payload.Sep53Standard:
		signed := &payload.Sep53{
			Payload:   msg,
			PublicKey: s.PublicKey(),
		}
		h := signed.Hash()
		signed.Signature = s.sign(t, h[:])
		return payload.MultiPayload{Signed: signed}
	default:
		signed := &payload.TonConnect{
			Address: payload.TonAddress{
				Account: [32]byte(s.key.Public().(ed25519.PublicKey)),
			},
			Domain:    "intents.test",
			Timestamp: payload.TonTimestamp{Time: time.Now().Truncate(time.Second).UTC()},
			Payload: payload.TonConnectPayload{
				Type: "text",
				Text: msg,
			},
			PublicKey: s.PublicKey(),
		}
		h := signed.Hash()
		signed.Signature = s.sign(t, h[:])
		return payload.MultiPayload{Signed: signed}
	}
}

type secp256k1Signer struct {
	standard string
	key      *secp256k1.PrivateKey
}

func (s *secp256k1Signer) Standard() string {
	return s.standard
}

func (s *secp256k1Signer) PublicKey() keys.PublicKey {
	return keys.FromSecp256k1(s.key.PubKey())
}

func (s *secp256k1Signer) Account() intents.AccountID {
	return implicit(s.PublicKey())
}

func (s *secp256k1Signer) Sign(t *testing.T, p *intent.Payload) payload.MultiPayload {
	msg := string(encode(t, p))
	if s.standard == payload.Erc191Standard {
		signed := &payload.Erc191{Payload: msg}
		signed.Signature = s.sign(t, signed.Hash())
		return payload.MultiPayload{Signed: signed}
	}
	signed := &payload.Tip191{Payload: msg}
	signed.Signature = s.sign(t, signed.Hash())
	return payload.MultiPayload{Signed: signed}
}

func (s *secp256k1Signer) sign(t *testing.T, digest ids.ID) payload.Signature {
	// compact is [27+v]‖r‖s, the wire form is r‖s‖v.
	compact := ecdsa.SignCompact(s.key, digest[:], false)
	rsv := append(compact[1:], compact[0]-27)
	sig, err := payload.NewSignature(keys.Secp256k1, rsv)
	require.NoError(t, err)
	return sig
}

type blsSigner struct {
	key bls.Signer
}

func (*blsSigner) Standard() string {
	return payload.BLSStandard
}

func (s *blsSigner) PublicKey() keys.PublicKey {
	return keys.FromBLS(s.key.PublicKey())
}

func (*blsSigner) Account() intents.AccountID {
	return ""
}

func (s *blsSigner) Sign(t *testing.T, p *intent.Payload) payload.MultiPayload {
	signed := &payload.BLS{
		Payload:   string(encode(t, p)),
		PublicKey: s.PublicKey(),
	}
	h := signed.Hash()
	blsSig, err := s.key.SignProofOfPossession(h[:])
	require.NoError(t, err)
	sig, err := payload.NewSignature(keys.BLS, bls.SignatureToBytes(blsSig))
	require.NoError(t, err)
	signed.Signature = sig
	return payload.MultiPayload{Signed: signed}
}
