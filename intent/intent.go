// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package intent defines the signable intent body: who signs, until when,
// under which nonce, and the ordered actions it authorizes.
package intent

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/luxfi/intents"
)

var errNoSigner = errors.New("missing signer_id")

// Payload is the message covered by a signature, encoded as JSON.
type Payload struct {
	SignerID          intents.AccountID `json:"signer_id"`
	VerifyingContract intents.AccountID `json:"verifying_contract"`
	Deadline          intents.Deadline  `json:"deadline"`
	Nonce             intents.Nonce     `json:"nonce"`
	Intents           Actions           `json:"intents"`
}

// Decode parses a signed message into a Payload and validates its actions.
// Every failure is MalformedPayload or InvalidIntent.
func Decode(msg []byte) (*Payload, error) {
	var p Payload
	if err := json.Unmarshal(msg, &p); err != nil {
		return nil, intents.ErrMalformedPayload.Withf("%s", err)
	}
	if p.SignerID == "" {
		return nil, intents.ErrMalformedPayload.Withf("%s", errNoSigner)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks every action in isolation.
func (p *Payload) Validate() error {
	for i, a := range p.Intents {
		if err := a.Validate(p.SignerID); err != nil {
			return fmt.Errorf("action %d (%s): %w", i, a.Name(), err)
		}
	}
	return nil
}

// Encode returns the canonical JSON form of p, which is the message signers
// sign.
func (p *Payload) Encode() ([]byte, error) {
	return json.Marshal(p)
}
