// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package intent

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/luxfi/intents"
	"github.com/luxfi/intents/amount"
	"github.com/luxfi/intents/keys"
	"github.com/luxfi/intents/tokenid"
)

const tagField = "intent"

var errUnknownAction = errors.New("unknown intent")

// Executor receives the effects of actions. Effects are buffered by the
// executor and only take hold if the whole batch commits.
type Executor interface {
	// AddDelta accumulates a signed change of account's balance of token.
	AddDelta(account intents.AccountID, token tokenid.TokenID, delta amount.Delta) error
	// InvalidateNonce consumes nonce for account.
	InvalidateNonce(account intents.AccountID, nonce intents.Nonce) error
	AddPublicKey(account intents.AccountID, pk keys.PublicKey) error
	RemovePublicKey(account intents.AccountID, pk keys.PublicKey) error
}

// Action is one step of an intent.
type Action interface {
	// Name is the value of the "intent" tag of the action.
	Name() string
	// Validate checks the action without reading state.
	Validate(signer intents.AccountID) error
	// Execute reports the effects of the action, signed by signer, to ex.
	Execute(signer intents.AccountID, ex Executor) error
}

var actionTypes = map[string]func() Action{
	tokenDiffName:        func() Action { return &TokenDiff{} },
	transferName:         func() Action { return &Transfer{} },
	invalidateNoncesName: func() Action { return &InvalidateNonces{} },
	addPublicKeyName:     func() Action { return &AddPublicKey{} },
	removePublicKeyName:  func() Action { return &RemovePublicKey{} },
}

// Actions is a JSON list of actions, each tagged by its "intent" field.
type Actions []Action

func (a *Actions) UnmarshalJSON(b []byte) error {
	var raws []json.RawMessage
	if err := json.Unmarshal(b, &raws); err != nil {
		return err
	}
	actions := make(Actions, 0, len(raws))
	for i, raw := range raws {
		var tag struct {
			Intent string `json:"intent"`
		}
		if err := json.Unmarshal(raw, &tag); err != nil {
			return fmt.Errorf("intent %d: %w", i, err)
		}
		newAction, ok := actionTypes[tag.Intent]
		if !ok {
			return fmt.Errorf("intent %d: %w %q", i, errUnknownAction, tag.Intent)
		}
		action := newAction()
		if err := json.Unmarshal(raw, action); err != nil {
			return fmt.Errorf("intent %d (%s): %w", i, tag.Intent, err)
		}
		actions = append(actions, action)
	}
	*a = actions
	return nil
}

// tagged marshals v with the "intent" tag set to name. v must encode as a
// JSON object.
func tagged(name string, v any) ([]byte, error) {
	fields := map[string]json.RawMessage{}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(b, &fields); err != nil {
		return nil, err
	}
	fields[tagField], err = json.Marshal(name)
	if err != nil {
		return nil, err
	}
	return json.Marshal(fields)
}
