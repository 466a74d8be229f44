// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/intents"
)

func TestDefaults(t *testing.T) {
	require := require.New(t)

	cfg, err := LoadFrom(map[string]string{
		"VERIFIER_JWT_SECRET": "secret",
	})
	require.NoError(err)
	require.Equal("verifier.db", cfg.DBPath)
	require.Equal(":8080", cfg.HTTPAddr)
	require.Equal(10*time.Second, cfg.ShutdownTimeout)
	require.Equal(4, cfg.VerifyWorkers)
	require.True(cfg.OtelEnabled)

	contract, err := cfg.Contract()
	require.NoError(err)
	require.Equal(intents.AccountID("intents.near"), contract)

	minStorage, err := cfg.MinStorage()
	require.NoError(err)
	require.True(minStorage.IsZero())
}

func TestOverrides(t *testing.T) {
	require := require.New(t)

	cfg, err := LoadFrom(map[string]string{
		"VERIFIER_JWT_SECRET":          "secret",
		"VERIFIER_CONTRACT_ID":         "intents.lux",
		"VERIFIER_MIN_STORAGE_DEPOSIT": "1250000000000000000000",
		"VERIFIER_SHUTDOWN_TIMEOUT":    "3s",
		"VERIFIER_VERIFY_WORKERS":      "0",
	})
	require.NoError(err)
	require.Equal(3*time.Second, cfg.ShutdownTimeout)
	require.Zero(cfg.VerifyWorkers)

	minStorage, err := cfg.MinStorage()
	require.NoError(err)
	require.Equal("1250000000000000000000", minStorage.Dec())
}

func TestInvalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want error
	}{
		{
			name: "missing secret",
			env:  map[string]string{},
			want: errMissingJWTSecret,
		},
		{
			name: "negative workers",
			env: map[string]string{
				"VERIFIER_JWT_SECRET":     "secret",
				"VERIFIER_VERIFY_WORKERS": "-1",
			},
			want: errInvalidWorkers,
		},
		{
			name: "zero burst",
			env: map[string]string{
				"VERIFIER_JWT_SECRET": "secret",
				"VERIFIER_RATE_BURST": "0",
			},
			want: errInvalidRate,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFrom(tt.env)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestInvalidContract(t *testing.T) {
	_, err := LoadFrom(map[string]string{
		"VERIFIER_JWT_SECRET":  "secret",
		"VERIFIER_CONTRACT_ID": "Intents",
	})
	require.Error(t, err)
}

func TestInvalidMinStorage(t *testing.T) {
	_, err := LoadFrom(map[string]string{
		"VERIFIER_JWT_SECRET":          "secret",
		"VERIFIER_MIN_STORAGE_DEPOSIT": "-1",
	})
	require.Error(t, err)
}
