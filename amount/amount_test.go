// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package amount

import (
	"encoding/json"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

var maxUint256 = new(uint256.Int).SetAllOne()

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    uint64
		wantErr bool
	}{
		{in: "0", want: 0},
		{in: "1000", want: 1000},
		{in: "", wantErr: true},
		{in: "-1", wantErr: true},
		{in: "+1", wantErr: true},
		{in: " 1", wantErr: true},
		{in: "0x10", wantErr: true},
		{in: "1e3", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			require := require.New(t)

			got, err := Parse(tt.in)
			if tt.wantErr {
				require.ErrorIs(err, ErrInvalid)
				return
			}
			require.NoError(err)
			require.Equal(tt.want, got.Uint64())
		})
	}
}

func TestParseMax(t *testing.T) {
	require := require.New(t)

	got, err := Parse(maxUint256.Dec())
	require.NoError(err)
	require.True(got.Eq(maxUint256))

	_, err = Parse("115792089237316195423570985008687907853269984665640564039457584007913129639936")
	require.ErrorIs(err, ErrInvalid)
}

func TestDeltaAdd(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want string
	}{
		{name: "both positive", a: "5", b: "7", want: "12"},
		{name: "both negative", a: "-5", b: "-7", want: "-12"},
		{name: "cancel", a: "-5", b: "5", want: "0"},
		{name: "mixed positive result", a: "10", b: "-3", want: "7"},
		{name: "mixed negative result", a: "3", b: "-10", want: "-7"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)

			a, err := ParseDelta(tt.a)
			require.NoError(err)
			b, err := ParseDelta(tt.b)
			require.NoError(err)

			got, err := a.Add(b)
			require.NoError(err)
			require.Equal(tt.want, got.String())

			// addition is commutative
			rev, err := b.Add(a)
			require.NoError(err)
			require.Equal(got, rev)
		})
	}
}

func TestDeltaZeroIsNotNegative(t *testing.T) {
	require := require.New(t)

	d, err := ParseDelta("-0")
	require.NoError(err)
	require.False(d.IsNegative())
	require.True(d.IsZero())
	require.Equal(Delta{}, d)
}

func TestDeltaAddOverflow(t *testing.T) {
	require := require.New(t)

	_, err := Credit(maxUint256).Add(Credit(uint256.NewInt(1)))
	require.ErrorIs(err, ErrOverflow)

	_, err = Debit(maxUint256).Add(Debit(uint256.NewInt(1)))
	require.ErrorIs(err, ErrOverflow)

	// opposite signs never overflow
	got, err := Debit(maxUint256).Add(Credit(maxUint256))
	require.NoError(err)
	require.True(got.IsZero())
}

func TestDeltaApplyTo(t *testing.T) {
	require := require.New(t)

	got, err := Debit(uint256.NewInt(400)).ApplyTo(uint256.NewInt(1000))
	require.NoError(err)
	require.Equal(uint64(600), got.Uint64())

	_, err = Debit(uint256.NewInt(1001)).ApplyTo(uint256.NewInt(1000))
	require.ErrorIs(err, ErrUnderflow)

	_, err = Credit(uint256.NewInt(1)).ApplyTo(maxUint256)
	require.ErrorIs(err, ErrOverflow)
}

func TestDeltaJSON(t *testing.T) {
	require := require.New(t)

	var m map[string]Delta
	require.NoError(json.Unmarshal([]byte(`{"a":"-1000","b":"1000"}`), &m))
	require.True(m["a"].IsNegative())
	require.Equal("1000", m["b"].String())

	b, err := json.Marshal(m)
	require.NoError(err)
	require.JSONEq(`{"a":"-1000","b":"1000"}`, string(b))

	require.Error(json.Unmarshal([]byte(`{"a":-1000}`), &m))
}
