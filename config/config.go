// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package config loads the daemon configuration from VERIFIER_* environment
// variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/holiman/uint256"

	"github.com/luxfi/intents"
	"github.com/luxfi/intents/amount"
)

var (
	errMissingJWTSecret = errors.New("VERIFIER_JWT_SECRET is required")
	errInvalidWorkers   = errors.New("VERIFIER_VERIFY_WORKERS must not be negative")
	errInvalidRate      = errors.New("VERIFIER_RATE_LIMIT and VERIFIER_RATE_BURST must be positive")
)

// Config holds the settings of verifierd.
type Config struct {
	ContractID        string        `env:"VERIFIER_CONTRACT_ID" envDefault:"intents.near"`
	DBPath            string        `env:"VERIFIER_DB_PATH" envDefault:"verifier.db"`
	HTTPAddr          string        `env:"VERIFIER_HTTP_ADDR" envDefault:":8080"`
	ShutdownTimeout   time.Duration `env:"VERIFIER_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	JWTSecret         string        `env:"VERIFIER_JWT_SECRET"`
	JWTIssuer         string        `env:"VERIFIER_JWT_ISSUER" envDefault:"verifierd"`
	MinStorageDeposit string        `env:"VERIFIER_MIN_STORAGE_DEPOSIT" envDefault:"0"`
	VerifyWorkers     int           `env:"VERIFIER_VERIFY_WORKERS" envDefault:"4"`
	RateLimit         float64       `env:"VERIFIER_RATE_LIMIT" envDefault:"20"`
	RateBurst         int           `env:"VERIFIER_RATE_BURST" envDefault:"40"`
	MaxClients        int           `env:"VERIFIER_MAX_CLIENTS" envDefault:"10000"`
	OtelEndpoint      string        `env:"VERIFIER_OTEL_ENDPOINT"`
	OtelEnabled       bool          `env:"VERIFIER_OTEL_ENABLED" envDefault:"true"`
}

// Load parses the process environment.
func Load() (Config, error) {
	return parse(env.Options{})
}

// LoadFrom parses environment, ignoring the process environment.
func LoadFrom(environment map[string]string) (Config, error) {
	return parse(env.Options{Environment: environment})
}

func parse(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.JWTSecret = strings.TrimSpace(cfg.JWTSecret)
	return cfg, cfg.Validate()
}

// Validate checks the settings that have no usable default.
func (c Config) Validate() error {
	if _, err := c.Contract(); err != nil {
		return err
	}
	if _, err := c.MinStorage(); err != nil {
		return err
	}
	if c.JWTSecret == "" {
		return errMissingJWTSecret
	}
	if c.VerifyWorkers < 0 {
		return errInvalidWorkers
	}
	if c.RateLimit <= 0 || c.RateBurst <= 0 || c.MaxClients <= 0 {
		return errInvalidRate
	}
	return nil
}

// Contract returns the verifying contract id.
func (c Config) Contract() (intents.AccountID, error) {
	id, err := intents.ParseAccountID(c.ContractID)
	if err != nil {
		return "", fmt.Errorf("VERIFIER_CONTRACT_ID: %w", err)
	}
	return id, nil
}

// MinStorage returns the minimum storage deposit.
func (c Config) MinStorage() (*uint256.Int, error) {
	v, err := amount.Parse(c.MinStorageDeposit)
	if err != nil {
		return nil, fmt.Errorf("VERIFIER_MIN_STORAGE_DEPOSIT: %w", err)
	}
	return v, nil
}
