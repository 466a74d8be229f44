// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/luxfi/log"
	"github.com/luxfi/metric"
	"github.com/luxfi/vm/utils/timer/mockable"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/luxfi/intents/api"
	"github.com/luxfi/intents/config"
	"github.com/luxfi/intents/state/sqlitedb"
	"github.com/luxfi/intents/telemetry"
	"github.com/luxfi/intents/verifier"
)

const serviceName = "verifierd"

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the verifier HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		return serve(ctx, log.Root(), cfg)
	},
}

func serve(ctx context.Context, logger log.Logger, cfg config.Config) error {
	contractID, err := cfg.Contract()
	if err != nil {
		return err
	}
	minStorage, err := cfg.MinStorage()
	if err != nil {
		return err
	}

	shutdown, err := telemetry.Setup(ctx, telemetry.Config{
		ServiceName: serviceName,
		Endpoint:    cfg.OtelEndpoint,
		Enabled:     cfg.OtelEnabled,
	})
	if err != nil {
		return fmt.Errorf("failed to set up tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			logger.Warn("failed to flush spans", log.Err(err))
		}
	}()

	db, err := sqlitedb.Open(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Warn("failed to close database", log.Err(err))
		}
	}()

	clock := &mockable.Clock{}
	registry := metric.NewRegistry()
	v, err := verifier.New(
		logger,
		db,
		newJournalReleaser(logger, db, clock),
		clock,
		verifier.Config{
			ContractID:        contractID,
			MinStorageDeposit: minStorage,
			VerifyWorkers:     cfg.VerifyWorkers,
		},
		registry,
	)
	if err != nil {
		return err
	}

	auth, err := api.NewAuthenticator([]byte(cfg.JWTSecret), cfg.JWTIssuer, nil)
	if err != nil {
		return err
	}

	gin.SetMode(gin.ReleaseMode)
	server, err := api.New(
		logger,
		v,
		auth,
		api.NewRateThrottler(rate.Limit(cfg.RateLimit), cfg.RateBurst, cfg.MaxClients),
		registry,
	)
	if err != nil {
		return err
	}

	logger.Info("starting verifier",
		log.Stringer("contractID", contractID),
		log.String("db", cfg.DBPath),
		log.Int("verifyWorkers", cfg.VerifyWorkers),
	)
	return server.Serve(ctx, cfg.HTTPAddr, cfg.ShutdownTimeout)
}
