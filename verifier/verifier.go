// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package verifier is the host facade of the settlement engine. Every entry
// point runs to completion before the next one starts.
package verifier

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/holiman/uint256"
	"github.com/luxfi/log"
	"github.com/luxfi/metric"
	"github.com/luxfi/vm/utils/timer/mockable"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/luxfi/intents"
	"github.com/luxfi/intents/accounts"
	"github.com/luxfi/intents/engine"
	"github.com/luxfi/intents/keys"
	"github.com/luxfi/intents/ledger"
	"github.com/luxfi/intents/nonces"
	"github.com/luxfi/intents/payload"
	"github.com/luxfi/intents/state"
	"github.com/luxfi/intents/tokenid"
)

const (
	tracerName       = "github.com/luxfi/intents/verifier"
	metricsNamespace = "intents"
)

// Config parameterizes a Verifier.
type Config struct {
	ContractID intents.AccountID
	// MinStorageDeposit is the storage deposit an account without prior
	// state must have paid before its first deposit. A zero minimum still
	// requires a registered, non-zero storage deposit.
	MinStorageDeposit *uint256.Int
	VerifyWorkers     int
}

// Verifier serializes access to the engine, the ledger and the account
// registry over one database.
type Verifier struct {
	log      log.Logger
	db       state.Database
	releaser Releaser
	config   Config
	engine   *engine.Engine
	tracer   trace.Tracer

	lock sync.Mutex
}

func New(
	log log.Logger,
	db state.Database,
	releaser Releaser,
	clock *mockable.Clock,
	config Config,
	registerer metric.Registerer,
) (*Verifier, error) {
	e, err := engine.New(
		log,
		db,
		clock,
		engine.Config{
			ContractID:    config.ContractID,
			VerifyWorkers: config.VerifyWorkers,
		},
		metricsNamespace,
		registerer,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}
	if config.MinStorageDeposit == nil {
		config.MinStorageDeposit = new(uint256.Int)
	}
	if releaser == nil {
		releaser = NoOpReleaser{}
	}
	return &Verifier{
		log:      log,
		db:       db,
		releaser: releaser,
		config:   config,
		engine:   e,
		tracer:   otel.Tracer(tracerName),
	}, nil
}

func (v *Verifier) ContractID() intents.AccountID {
	return v.config.ContractID
}

// ExecuteIntents settles batch atomically.
func (v *Verifier) ExecuteIntents(ctx context.Context, batch []payload.Signed) (*engine.Result, error) {
	ctx, span := v.tracer.Start(ctx, "verifier.ExecuteIntents",
		trace.WithAttributes(attribute.Int("batch.size", len(batch))),
	)
	defer span.End()

	v.lock.Lock()
	defer v.lock.Unlock()

	result, err := v.engine.Execute(ctx, batch)
	return result, endSpan(span, err)
}

// SimulateIntents reports what ExecuteIntents would do without changing
// state.
func (v *Verifier) SimulateIntents(ctx context.Context, batch []payload.Signed) (*engine.Result, error) {
	ctx, span := v.tracer.Start(ctx, "verifier.SimulateIntents",
		trace.WithAttributes(attribute.Int("batch.size", len(batch))),
	)
	defer span.End()

	v.lock.Lock()
	defer v.lock.Unlock()

	result, err := v.engine.Simulate(ctx, batch)
	return result, endSpan(span, err)
}

// Deposit credits owner with assets that entered custody. An owner with no
// prior state must have paid the minimum storage deposit.
func (v *Verifier) Deposit(ctx context.Context, owner intents.AccountID, amounts map[tokenid.TokenID]*uint256.Int) error {
	_, span := v.tracer.Start(ctx, "verifier.Deposit",
		trace.WithAttributes(
			attribute.String("account", owner.String()),
			attribute.Int("tokens", len(amounts)),
		),
	)
	defer span.End()

	v.lock.Lock()
	defer v.lock.Unlock()

	return endSpan(span, v.deposit(owner, amounts, true))
}

func (v *Verifier) deposit(owner intents.AccountID, amounts map[tokenid.TokenID]*uint256.Int, requireStorage bool) error {
	if err := verifyAccount(owner); err != nil {
		return err
	}
	if len(amounts) == 0 {
		return intents.ErrInvalidAmount.WithAccount(owner).Withf("no assets")
	}
	for token := range amounts {
		if err := token.Verify(); err != nil {
			return err
		}
	}

	overlay := state.NewOverlay(v.db)
	l := ledger.New(overlay)
	if requireStorage {
		if err := v.requireStorage(overlay, l, owner, amounts); err != nil {
			return err
		}
	}
	if err := l.Deposit(owner, amounts); err != nil {
		return err
	}
	if err := overlay.Commit(v.db); err != nil {
		return fmt.Errorf("commit deposit: %w", err)
	}

	v.log.Debug("deposited",
		log.Stringer("account", owner),
		log.Int("tokens", len(amounts)),
	)
	return nil
}

// requireStorage fails with StorageNotRegistered when owner has no prior state
// and has not paid the minimum storage deposit. Prior state is a balance in
// one of the deposited assets or a registered public key.
func (v *Verifier) requireStorage(overlay *state.Overlay, l *ledger.Ledger, owner intents.AccountID, amounts map[tokenid.TokenID]*uint256.Int) error {
	registry := accounts.New(overlay)
	err := registry.RequireStorage(owner, v.config.MinStorageDeposit)
	if !errors.Is(err, intents.ErrStorageNotRegistered) {
		return err
	}

	tokens := make([]tokenid.TokenID, 0, len(amounts))
	for token := range amounts {
		tokens = append(tokens, token)
	}
	has, hasErr := l.HasAnyBalance(owner, tokens)
	if hasErr != nil {
		return fmt.Errorf("read balances: %w", hasErr)
	}
	if has {
		return nil
	}
	pks, pksErr := registry.PublicKeys(owner)
	if pksErr != nil {
		return fmt.Errorf("read public keys: %w", pksErr)
	}
	if len(pks) > 0 {
		return nil
	}
	return err
}

// Withdraw debits owner and hands the assets to the releaser. If the release
// fails the debit is refunded and the release error is returned.
func (v *Verifier) Withdraw(ctx context.Context, w Withdrawal) error {
	ctx, span := v.tracer.Start(ctx, "verifier.Withdraw",
		trace.WithAttributes(
			attribute.String("account", w.Owner.String()),
			attribute.String("token", w.Token.String()),
		),
	)
	defer span.End()

	v.lock.Lock()
	defer v.lock.Unlock()

	return endSpan(span, v.withdraw(ctx, w))
}

func (v *Verifier) withdraw(ctx context.Context, w Withdrawal) error {
	if err := verifyAccount(w.Owner); err != nil {
		return err
	}
	if err := w.Token.Verify(); err != nil {
		return err
	}
	if w.Destination == "" {
		return intents.ErrMalformedPayload.WithAccount(w.Owner).WithAsset(w.Token).Withf("missing destination")
	}
	amounts := map[tokenid.TokenID]*uint256.Int{w.Token: w.Amount}

	overlay := state.NewOverlay(v.db)
	if err := ledger.New(overlay).Withdraw(w.Owner, amounts); err != nil {
		return err
	}
	if err := overlay.Commit(v.db); err != nil {
		return fmt.Errorf("commit withdrawal: %w", err)
	}

	releaseErr := v.releaser.Release(ctx, w)
	if releaseErr == nil {
		v.log.Debug("withdrawn",
			log.Stringer("account", w.Owner),
			log.Stringer("token", w.Token),
			log.String("amount", w.Amount.Dec()),
		)
		return nil
	}

	v.log.Warn("release failed, refunding withdrawal",
		log.Stringer("account", w.Owner),
		log.Stringer("token", w.Token),
		log.Err(releaseErr),
	)
	if err := v.deposit(w.Owner, amounts, false); err != nil {
		return fmt.Errorf("refund after failed release (%w): %w", releaseErr, err)
	}
	return fmt.Errorf("release %s: %w", w.Token, releaseErr)
}

// StorageDeposit adds amount to the storage deposit of account and returns
// the new storage balance.
func (v *Verifier) StorageDeposit(ctx context.Context, account intents.AccountID, amount *uint256.Int) (*uint256.Int, error) {
	_, span := v.tracer.Start(ctx, "verifier.StorageDeposit",
		trace.WithAttributes(attribute.String("account", account.String())),
	)
	defer span.End()

	v.lock.Lock()
	defer v.lock.Unlock()

	if err := verifyAccount(account); err != nil {
		return nil, endSpan(span, err)
	}
	overlay := state.NewOverlay(v.db)
	bal, err := accounts.New(overlay).StorageDeposit(account, amount)
	if err != nil {
		return nil, endSpan(span, err)
	}
	if err := overlay.Commit(v.db); err != nil {
		return nil, endSpan(span, fmt.Errorf("commit storage deposit: %w", err))
	}
	return bal, nil
}

func (v *Verifier) BalanceOf(account intents.AccountID, token tokenid.TokenID) (*uint256.Int, error) {
	v.lock.Lock()
	defer v.lock.Unlock()

	return ledger.New(v.db).BalanceOf(account, token)
}

func (v *Verifier) TotalSupply(token tokenid.TokenID) (*uint256.Int, error) {
	v.lock.Lock()
	defer v.lock.Unlock()

	return ledger.New(v.db).TotalSupply(token)
}

func (v *Verifier) IsNonceUsed(account intents.AccountID, nonce intents.Nonce) (bool, error) {
	v.lock.Lock()
	defer v.lock.Unlock()

	return nonces.New(v.db).IsUsed(account, nonce)
}

// PublicKeys returns the keys registered for account. Implicit keys are not
// listed.
func (v *Verifier) PublicKeys(account intents.AccountID) ([]keys.PublicKey, error) {
	v.lock.Lock()
	defer v.lock.Unlock()

	return accounts.New(v.db).PublicKeys(account)
}

func (v *Verifier) StorageBalance(account intents.AccountID) (*uint256.Int, error) {
	v.lock.Lock()
	defer v.lock.Unlock()

	return accounts.New(v.db).StorageBalance(account)
}

func verifyAccount(account intents.AccountID) error {
	if _, err := intents.ParseAccountID(string(account)); err != nil {
		return intents.ErrMalformedPayload.Withf("%s", err)
	}
	return nil
}

func endSpan(span trace.Span, err error) error {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}
