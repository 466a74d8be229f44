// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package payload verifies signed intents under the supported off-chain
// message signing standards.
//
// Every standard wraps the same intent message in its own envelope and
// signature scheme. A standard registers a Decoder under its name and the
// rest of the system only sees the Signed interface, so adding a standard
// never changes the executor.
package payload

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/luxfi/crypto/hash"
	"github.com/luxfi/ids"
	"golang.org/x/crypto/sha3"

	"github.com/luxfi/intents"
	"github.com/luxfi/intents/keys"
)

const tagField = "standard"

var (
	errDuplicateStandard = errors.New("standard already registered")
	errMissingStandard   = errors.New("missing standard")

	registryLock sync.RWMutex
	registry     = map[string]Decoder{}
)

// Signed is a message together with the signature of its signer.
type Signed interface {
	// Standard is the name the payload is tagged with.
	Standard() string
	// Hash is the digest of exactly what the signer signed.
	Hash() ids.ID
	// Message is the embedded intent message.
	Message() []byte
	// Verify checks the signature and returns the key that produced it.
	// A signature that does not verify is InvalidSignature.
	Verify() (keys.PublicKey, error)
}

// Envelope is implemented by standards whose envelope binds the nonce and
// the recipient of the message outside of the message itself.
type Envelope interface {
	EnvelopeNonce() intents.Nonce
	EnvelopeRecipient() intents.AccountID
}

// EnvelopeOf returns the envelope of s, if its standard has one.
func EnvelopeOf(s Signed) (Envelope, bool) {
	switch m := s.(type) {
	case MultiPayload:
		s = m.Signed
	case *MultiPayload:
		s = m.Signed
	}
	env, ok := s.(Envelope)
	return env, ok
}

// Decoder parses the JSON form of a payload of one standard. raw still
// contains the "standard" tag.
type Decoder func(raw []byte) (Signed, error)

// Register makes a standard available to Decode.
func Register(standard string, d Decoder) error {
	registryLock.Lock()
	defer registryLock.Unlock()

	if _, ok := registry[standard]; ok {
		return fmt.Errorf("%w: %s", errDuplicateStandard, standard)
	}
	registry[standard] = d
	return nil
}

// Standards returns the registered standards in sorted order.
func Standards() []string {
	registryLock.RLock()
	defer registryLock.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Decode parses a JSON payload tagged by its "standard" field.
func Decode(raw []byte) (Signed, error) {
	var tag struct {
		Standard string `json:"standard"`
	}
	if err := json.Unmarshal(raw, &tag); err != nil {
		return nil, intents.ErrMalformedPayload.Withf("%s", err)
	}
	if tag.Standard == "" {
		return nil, intents.ErrMalformedPayload.Withf("%s", errMissingStandard)
	}

	registryLock.RLock()
	d, ok := registry[tag.Standard]
	registryLock.RUnlock()
	if !ok {
		return nil, intents.ErrUnsupportedStandard.Withf("%q", tag.Standard)
	}

	s, err := d(raw)
	if err != nil {
		var typed *intents.Error
		if errors.As(err, &typed) {
			return nil, err
		}
		return nil, intents.ErrMalformedPayload.Withf("%s: %s", tag.Standard, err)
	}
	return s, nil
}

func mustRegister(standard string, d Decoder) {
	if err := Register(standard, d); err != nil {
		panic(err)
	}
}

// MultiPayload is the JSON form of any registered standard.
type MultiPayload struct {
	Signed
}

func (m *MultiPayload) UnmarshalJSON(b []byte) error {
	s, err := Decode(b)
	if err != nil {
		return err
	}
	m.Signed = s
	return nil
}

func (m MultiPayload) MarshalJSON() ([]byte, error) {
	if m.Signed == nil {
		return []byte("null"), nil
	}
	return tagged(m.Standard(), m.Signed)
}

// tagged marshals v with the "standard" tag set to name. v must encode as a
// JSON object.
func tagged(name string, v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(b, &fields); err != nil {
		return nil, err
	}
	fields[tagField], err = json.Marshal(name)
	if err != nil {
		return nil, err
	}
	return json.Marshal(fields)
}

func sha256ID(parts ...[]byte) ids.ID {
	var id ids.ID
	copy(id[:], hash.ComputeHash256(slices.Concat(parts...)))
	return id
}

func keccakID(parts ...[]byte) ids.ID {
	h := sha3.NewLegacyKeccak256()
	for _, p := range parts {
		h.Write(p)
	}
	var id ids.ID
	h.Sum(id[:0])
	return id
}
