// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package tokenid normalizes asset identifiers across the supported asset
// standards.
package tokenid

import (
	"cmp"
	"strings"

	"github.com/luxfi/intents"
)

// MaxTokenIDLen bounds the per-contract token id of nep171 and nep245
// assets.
const MaxTokenIDLen = 127

// Standard is an asset standard.
type Standard string

const (
	// Nep141 is a fungible token.
	Nep141 Standard = "nep141"
	// Nep171 is a non-fungible token. At most one unit of a nep171 asset can
	// be held by the engine.
	Nep171 Standard = "nep171"
	// Nep245 is a multi-token.
	Nep245 Standard = "nep245"
)

func (s Standard) hasTokenID() bool {
	return s == Nep171 || s == Nep245
}

// IsNonFungible reports whether the standard describes unique assets.
func (s Standard) IsNonFungible() bool {
	return s == Nep171
}

// TokenID identifies an asset. It is comparable and used directly as a map
// key; two TokenIDs are the same asset iff they are equal.
type TokenID struct {
	Standard Standard
	Contract string
	// Token is empty for nep141.
	Token string
}

func NewNep141(contract string) TokenID {
	return TokenID{Standard: Nep141, Contract: contract}
}

func NewNep171(contract, token string) TokenID {
	return TokenID{Standard: Nep171, Contract: contract, Token: token}
}

func NewNep245(contract, token string) TokenID {
	return TokenID{Standard: Nep245, Contract: contract, Token: token}
}

// Parse decodes the external form standard:contract[:token_id]. The token id
// is everything after the second colon and may itself contain colons.
func Parse(s string) (TokenID, error) {
	std, rest, ok := strings.Cut(s, ":")
	if !ok {
		return TokenID{}, intents.ErrUnknownAsset.Withf("missing standard in %q", s)
	}
	var id TokenID
	id.Standard = Standard(std)
	switch id.Standard {
	case Nep141:
		id.Contract = rest
	case Nep171, Nep245:
		id.Contract, id.Token, ok = strings.Cut(rest, ":")
		if !ok {
			return TokenID{}, intents.ErrUnknownAsset.Withf("missing token id in %q", s)
		}
	default:
		return TokenID{}, intents.ErrUnknownAsset.Withf("standard %q", std)
	}
	return id, id.Verify()
}

// Verify checks the identifier is well formed.
func (t TokenID) Verify() error {
	switch {
	case t.Standard != Nep141 && !t.Standard.hasTokenID():
		return intents.ErrUnknownAsset.Withf("standard %q", string(t.Standard))
	case t.Contract == "":
		return intents.ErrUnknownAsset.Withf("empty contract")
	case t.Standard == Nep141 && t.Token != "":
		return intents.ErrUnknownAsset.Withf("nep141 asset with token id")
	case t.Standard.hasTokenID() && t.Token == "":
		return intents.ErrUnknownAsset.Withf("empty token id")
	case len(t.Token) > MaxTokenIDLen:
		return intents.ErrUnknownAsset.Withf("token id length %d", len(t.Token))
	}
	if _, err := intents.ParseAccountID(t.Contract); err != nil {
		return intents.ErrUnknownAsset.Withf("contract: %s", err)
	}
	return nil
}

func (t TokenID) String() string {
	if t.Standard.hasTokenID() {
		return string(t.Standard) + ":" + t.Contract + ":" + t.Token
	}
	return string(t.Standard) + ":" + t.Contract
}

func (t TokenID) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *TokenID) UnmarshalText(text []byte) error {
	id, err := Parse(string(text))
	if err != nil {
		return err
	}
	*t = id
	return nil
}

// Compare orders identifiers by their external string form.
func Compare(a, b TokenID) int {
	return cmp.Compare(a.String(), b.String())
}
