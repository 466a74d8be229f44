// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package amount implements overflow-checked 256-bit token amounts and signed
// balance deltas.
package amount

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/holiman/uint256"
)

var (
	ErrOverflow  = errors.New("amount overflow")
	ErrUnderflow = errors.New("amount underflow")
	ErrInvalid   = errors.New("invalid amount")
)

// Parse decodes a base-10 amount. Signs, hex and surrounding whitespace are
// rejected.
func Parse(s string) (*uint256.Int, error) {
	if s == "" || s[0] < '0' || s[0] > '9' || strings.TrimSpace(s) != s {
		return nil, fmt.Errorf("%w: %q", ErrInvalid, s)
	}
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrInvalid, s, err)
	}
	return v, nil
}

// Add returns a+b, or ErrOverflow.
func Add(a, b *uint256.Int) (*uint256.Int, error) {
	sum, overflow := new(uint256.Int).AddOverflow(a, b)
	if overflow {
		return nil, ErrOverflow
	}
	return sum, nil
}

// Sub returns a-b, or ErrUnderflow when b > a.
func Sub(a, b *uint256.Int) (*uint256.Int, error) {
	diff, underflow := new(uint256.Int).SubOverflow(a, b)
	if underflow {
		return nil, ErrUnderflow
	}
	return diff, nil
}

// Delta is a signed change to a balance, held as sign and magnitude so that
// the full unsigned 256-bit range is representable in both directions.
type Delta struct {
	neg bool
	mag uint256.Int
}

// NewDelta returns a delta of magnitude mag, negative if neg is set. A zero
// magnitude is never negative.
func NewDelta(neg bool, mag *uint256.Int) Delta {
	d := Delta{mag: *mag}
	d.neg = neg && !mag.IsZero()
	return d
}

// Credit returns a positive delta of v.
func Credit(v *uint256.Int) Delta {
	return NewDelta(false, v)
}

// Debit returns a negative delta of v.
func Debit(v *uint256.Int) Delta {
	return NewDelta(true, v)
}

// ParseDelta decodes an optionally '-' prefixed base-10 delta.
func ParseDelta(s string) (Delta, error) {
	neg := strings.HasPrefix(s, "-")
	mag, err := Parse(strings.TrimPrefix(s, "-"))
	if err != nil {
		return Delta{}, err
	}
	return NewDelta(neg, mag), nil
}

func (d Delta) IsZero() bool {
	return d.mag.IsZero()
}

func (d Delta) IsNegative() bool {
	return d.neg
}

// Magnitude returns a copy of |d|.
func (d Delta) Magnitude() *uint256.Int {
	return d.mag.Clone()
}

// Neg returns -d.
func (d Delta) Neg() Delta {
	return NewDelta(!d.neg, &d.mag)
}

// Add returns d+o. The sum is exact or ErrOverflow; it never wraps.
func (d Delta) Add(o Delta) (Delta, error) {
	if d.neg == o.neg {
		mag, overflow := new(uint256.Int).AddOverflow(&d.mag, &o.mag)
		if overflow {
			return Delta{}, ErrOverflow
		}
		return NewDelta(d.neg, mag), nil
	}
	if d.mag.Cmp(&o.mag) >= 0 {
		return NewDelta(d.neg, new(uint256.Int).Sub(&d.mag, &o.mag)), nil
	}
	return NewDelta(o.neg, new(uint256.Int).Sub(&o.mag, &d.mag)), nil
}

// ApplyTo returns balance+d. A debit larger than balance is ErrUnderflow and a
// credit past the 256-bit range is ErrOverflow.
func (d Delta) ApplyTo(balance *uint256.Int) (*uint256.Int, error) {
	if d.neg {
		return Sub(balance, &d.mag)
	}
	return Add(balance, &d.mag)
}

func (d Delta) String() string {
	if d.neg {
		return "-" + d.mag.Dec()
	}
	return d.mag.Dec()
}

func (d Delta) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Delta) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParseDelta(s)
	if err != nil {
		return err
	}
	*d = v
	return nil
}
