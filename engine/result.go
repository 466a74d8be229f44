// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package engine

import (
	"github.com/luxfi/ids"

	"github.com/luxfi/intents"
	"github.com/luxfi/intents/amount"
	"github.com/luxfi/intents/intent"
	"github.com/luxfi/intents/keys"
	"github.com/luxfi/intents/tokenid"
)

// Outcome describes one executed intent.
type Outcome struct {
	Index      int               `json:"index"`
	Standard   string            `json:"standard"`
	Signer     intents.AccountID `json:"signer_id"`
	PublicKey  keys.PublicKey    `json:"public_key"`
	IntentHash ids.ID            `json:"intent_hash"`
	Nonce      intents.Nonce     `json:"nonce"`
}

// Event is emitted for every action of an executed intent.
type Event struct {
	Index      int               `json:"index"`
	Signer     intents.AccountID `json:"signer_id"`
	IntentHash ids.ID            `json:"intent_hash"`
	Action     intent.Action     `json:"action"`
}

// Kind is the name of the action that produced e.
func (e Event) Kind() string {
	return e.Action.Name()
}

// Result is the effect of a batch. A simulated Result describes what would
// have been committed.
type Result struct {
	Outcomes []Outcome `json:"outcomes"`
	Events   []Event   `json:"events"`
	// Deltas is the net change of every touched balance, in
	// (account, asset) order.
	Deltas []Delta `json:"deltas"`
}

// Delta is the net change of one balance.
type Delta struct {
	Account intents.AccountID `json:"account_id"`
	Token   tokenid.TokenID   `json:"token"`
	Delta   amount.Delta      `json:"delta"`
}
