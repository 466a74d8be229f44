// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package api serves the verifier over HTTP.
//
// Intent execution and the read-only views are public. Deposits and storage
// deposits are credited by the custody service and need a token with the
// custody role. Withdrawals need a token whose subject is the withdrawing
// account.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/holiman/uint256"
	"github.com/luxfi/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"

	"github.com/luxfi/intents"
	"github.com/luxfi/intents/engine"
	"github.com/luxfi/intents/keys"
	"github.com/luxfi/intents/payload"
	"github.com/luxfi/intents/tokenid"
	"github.com/luxfi/intents/verifier"
)

const (
	tracerName        = "github.com/luxfi/intents/api"
	readHeaderTimeout = 10 * time.Second
)

var _ Backend = (*verifier.Verifier)(nil)

// Backend is the settlement service exposed by the API.
type Backend interface {
	ContractID() intents.AccountID
	ExecuteIntents(ctx context.Context, batch []payload.Signed) (*engine.Result, error)
	SimulateIntents(ctx context.Context, batch []payload.Signed) (*engine.Result, error)
	Deposit(ctx context.Context, owner intents.AccountID, amounts map[tokenid.TokenID]*uint256.Int) error
	Withdraw(ctx context.Context, w verifier.Withdrawal) error
	StorageDeposit(ctx context.Context, account intents.AccountID, amount *uint256.Int) (*uint256.Int, error)

	BalanceOf(account intents.AccountID, token tokenid.TokenID) (*uint256.Int, error)
	TotalSupply(token tokenid.TokenID) (*uint256.Int, error)
	IsNonceUsed(account intents.AccountID, nonce intents.Nonce) (bool, error)
	PublicKeys(account intents.AccountID) ([]keys.PublicKey, error)
	StorageBalance(account intents.AccountID) (*uint256.Int, error)
}

type Server struct {
	log     log.Logger
	backend Backend
	router  *gin.Engine
}

// New builds the HTTP routes. Metrics of the API are served on /metrics
// together with everything gatherer collects; gatherer may be nil.
func New(
	log log.Logger,
	backend Backend,
	auth *Authenticator,
	throttler Throttler,
	gatherer prometheus.Gatherer,
) (*Server, error) {
	if auth == nil {
		return nil, errMissingSecret
	}
	registry := prometheus.NewRegistry()
	m, err := newMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to register api metrics: %w", err)
	}
	gatherers := prometheus.Gatherers{registry}
	if gatherer != nil {
		gatherers = append(gatherers, gatherer)
	}
	if throttler == nil {
		throttler = NoOpThrottler{}
	}

	s := &Server{
		log:     log,
		backend: backend,
		router:  gin.New(),
	}

	r := s.router
	r.Use(
		gin.Recovery(),
		requestID(),
		tracing(otel.Tracer(tracerName)),
		instrument(m, log),
	)
	r.GET("/healthz", s.health)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherers, promhttp.HandlerOpts{})))

	v1 := r.Group("/v1", authenticate(auth), throttle(throttler, log))
	v1.GET("/contract", s.contract)
	v1.POST("/intents/execute", s.executeIntents)
	v1.POST("/intents/simulate", s.simulateIntents)
	v1.POST("/deposits", requireRole(RoleCustody), s.deposit)
	v1.POST("/storage_deposit", requireRole(RoleCustody), s.storageDeposit)
	v1.POST("/withdrawals", s.withdraw)
	v1.GET("/accounts/:account/balances/:token", s.balance)
	v1.GET("/accounts/:account/nonces/*nonce", s.nonce)
	v1.GET("/accounts/:account/public_keys", s.publicKeys)
	v1.GET("/accounts/:account/storage_balance", s.storageBalance)
	v1.GET("/tokens/:token/supply", s.totalSupply)
	return s, nil
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Serve listens on addr until ctx is cancelled, then drains in-flight
// requests for at most shutdownTimeout.
func (s *Server) Serve(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext: func(net.Listener) context.Context {
			return context.WithoutCancel(ctx)
		},
	}

	errs := make(chan error, 1)
	go func() {
		errs <- srv.ListenAndServe()
	}()
	s.log.Info("serving api",
		log.String("addr", addr),
	)

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down api: %w", err)
	}
	if err := <-errs; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
