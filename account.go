// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package intents

import (
	"errors"
	"fmt"
)

const (
	MinAccountIDLen = 2
	MaxAccountIDLen = 64
)

var (
	errAccountIDLength    = errors.New("invalid account id length")
	errAccountIDCharacter = errors.New("invalid account id character")
	errAccountIDSeparator = errors.New("misplaced account id separator")
)

// AccountID identifies an owner of balances. Accounts have no lifecycle of
// their own: an account exists once it holds state.
type AccountID string

// ParseAccountID validates s as an account id. Valid ids are 2 to 64 bytes of
// lowercase letters, digits and the separators '-', '_' and '.', where
// separators never lead, trail or repeat.
func ParseAccountID(s string) (AccountID, error) {
	if len(s) < MinAccountIDLen || len(s) > MaxAccountIDLen {
		return "", fmt.Errorf("%w: %d", errAccountIDLength, len(s))
	}
	prevSeparator := true
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			prevSeparator = false
		case c == '-' || c == '_' || c == '.':
			if prevSeparator {
				return "", fmt.Errorf("%w at %d in %q", errAccountIDSeparator, i, s)
			}
			prevSeparator = true
		default:
			return "", fmt.Errorf("%w %q in %q", errAccountIDCharacter, c, s)
		}
	}
	if prevSeparator {
		return "", fmt.Errorf("%w at end of %q", errAccountIDSeparator, s)
	}
	return AccountID(s), nil
}

func (a AccountID) String() string {
	return string(a)
}

// UnmarshalText validates the account id.
func (a *AccountID) UnmarshalText(text []byte) error {
	id, err := ParseAccountID(string(text))
	if err != nil {
		return err
	}
	*a = id
	return nil
}
