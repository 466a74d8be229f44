// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package intent

import (
	"github.com/luxfi/intents"
	"github.com/luxfi/intents/keys"
)

const (
	invalidateNoncesName = "invalidate_nonces"
	addPublicKeyName     = "add_public_key"
	removePublicKeyName  = "remove_public_key"
)

var (
	_ Action = (*InvalidateNonces)(nil)
	_ Action = (*AddPublicKey)(nil)
	_ Action = (*RemovePublicKey)(nil)
)

// InvalidateNonces burns nonces of the signer so that intents already signed
// under them can never execute.
type InvalidateNonces struct {
	Nonces []intents.Nonce `json:"nonces"`
}

type invalidateNoncesJSON InvalidateNonces

func (*InvalidateNonces) Name() string {
	return invalidateNoncesName
}

func (i *InvalidateNonces) Validate(intents.AccountID) error {
	if len(i.Nonces) == 0 {
		return intents.ErrInvalidIntent.Withf("no nonces")
	}
	return nil
}

func (i *InvalidateNonces) Execute(signer intents.AccountID, ex Executor) error {
	for _, n := range i.Nonces {
		if err := ex.InvalidateNonce(signer, n); err != nil {
			return err
		}
	}
	return nil
}

func (i InvalidateNonces) MarshalJSON() ([]byte, error) {
	return tagged(invalidateNoncesName, invalidateNoncesJSON(i))
}

// AddPublicKey authorizes another key to sign for the signer.
type AddPublicKey struct {
	PublicKey keys.PublicKey `json:"public_key"`
}

type addPublicKeyJSON AddPublicKey

func (*AddPublicKey) Name() string {
	return addPublicKeyName
}

func (a *AddPublicKey) Validate(intents.AccountID) error {
	if a.PublicKey.IsZero() {
		return intents.ErrInvalidIntent.Withf("missing public key")
	}
	return nil
}

func (a *AddPublicKey) Execute(signer intents.AccountID, ex Executor) error {
	return ex.AddPublicKey(signer, a.PublicKey)
}

func (a AddPublicKey) MarshalJSON() ([]byte, error) {
	return tagged(addPublicKeyName, addPublicKeyJSON(a))
}

// RemovePublicKey revokes a key of the signer.
type RemovePublicKey struct {
	PublicKey keys.PublicKey `json:"public_key"`
}

type removePublicKeyJSON RemovePublicKey

func (*RemovePublicKey) Name() string {
	return removePublicKeyName
}

func (r *RemovePublicKey) Validate(intents.AccountID) error {
	if r.PublicKey.IsZero() {
		return intents.ErrInvalidIntent.Withf("missing public key")
	}
	return nil
}

func (r *RemovePublicKey) Execute(signer intents.AccountID, ex Executor) error {
	return ex.RemovePublicKey(signer, r.PublicKey)
}

func (r RemovePublicKey) MarshalJSON() ([]byte, error) {
	return tagged(removePublicKeyName, removePublicKeyJSON(r))
}
