// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package payload

import (
	"github.com/luxfi/ids"
	"github.com/near/borsh-go"

	"github.com/luxfi/intents"
	"github.com/luxfi/intents/keys"
)

const (
	Nep413Standard = "nep413"

	// nep413Tag is 2^31 + 413, prepended to every NEP-413 message so that it
	// can never be a valid transaction.
	nep413Tag uint32 = 1<<31 + 413
)

var (
	_ Signed   = (*Nep413)(nil)
	_ Envelope = (*Nep413)(nil)
)

func init() {
	mustRegister(Nep413Standard, decodeAs[Nep413])
}

// Nep413Message is the NEP-413 envelope around the intent message.
type Nep413Message struct {
	Message     string        `json:"message"`
	Nonce       intents.Nonce `json:"nonce"`
	Recipient   string        `json:"recipient"`
	CallbackURL *string       `json:"callback_url,omitempty"`
}

// nep413Borsh is the borsh layout of Nep413Message.
type nep413Borsh struct {
	Message     string
	Nonce       [intents.NonceLen]byte
	Recipient   string
	CallbackURL *string
}

// Bytes returns the borsh encoding that is hashed and signed.
func (m *Nep413Message) Bytes() ([]byte, error) {
	tag, err := borsh.Serialize(nep413Tag)
	if err != nil {
		return nil, err
	}
	body, err := borsh.Serialize(nep413Borsh{
		Message:     m.Message,
		Nonce:       m.Nonce,
		Recipient:   m.Recipient,
		CallbackURL: m.CallbackURL,
	})
	if err != nil {
		return nil, err
	}
	return append(tag, body...), nil
}

// Nep413 is a NEAR signed message: the ed25519 signature of the sha256 hash
// of the borsh encoded envelope.
type Nep413 struct {
	Payload   Nep413Message  `json:"payload"`
	PublicKey keys.PublicKey `json:"public_key"`
	Signature Signature      `json:"signature"`
}

func (*Nep413) Standard() string {
	return Nep413Standard
}

// Hash returns the zero ID if the envelope can not be encoded. Verify
// reports that case as MalformedPayload.
func (n *Nep413) Hash() ids.ID {
	b, err := n.Payload.Bytes()
	if err != nil {
		return ids.Empty
	}
	return sha256ID(b)
}

func (n *Nep413) Message() []byte {
	return []byte(n.Payload.Message)
}

func (n *Nep413) Verify() (keys.PublicKey, error) {
	b, err := n.Payload.Bytes()
	if err != nil {
		return keys.PublicKey{}, intents.ErrMalformedPayload.Withf("%s", err)
	}
	h := sha256ID(b)
	return verifyEd25519(n.PublicKey, n.Signature, h[:])
}

func (n *Nep413) EnvelopeNonce() intents.Nonce {
	return n.Payload.Nonce
}

func (n *Nep413) EnvelopeRecipient() intents.AccountID {
	return intents.AccountID(n.Payload.Recipient)
}
