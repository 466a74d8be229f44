// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package engine settles batches of signed intents atomically.
//
// A batch is executed in six steps:
//
//  1. every signature is verified and the recovered key is checked against
//     the signer account;
//  2. every intent is checked for its verifying contract, its deadline and
//     the freshness of its nonce;
//  3. the actions of all intents are aggregated into one net delta per
//     (account, asset);
//  4. every asset must be conserved by the aggregated deltas;
//  5. the deltas are applied to the ledger;
//  6. nonces and public key changes are recorded.
//
// Steps 5 and 6 write to an overlay that is flushed to the database in a
// single batch, so a failing batch never leaves a trace.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/luxfi/ids"
	"github.com/luxfi/log"
	"github.com/luxfi/math/set"
	"github.com/luxfi/metric"
	"github.com/luxfi/vm/utils/timer/mockable"
	"golang.org/x/sync/errgroup"

	"github.com/luxfi/intents"
	"github.com/luxfi/intents/accounts"
	"github.com/luxfi/intents/intent"
	"github.com/luxfi/intents/keys"
	"github.com/luxfi/intents/ledger"
	"github.com/luxfi/intents/nonces"
	"github.com/luxfi/intents/payload"
	"github.com/luxfi/intents/state"
)

var (
	ErrEmptyBatch      = errors.New("empty batch")
	errMissingContract = errors.New("missing contract id")
)

// Config parameterizes an Engine.
type Config struct {
	// ContractID is the verifying contract every intent must name.
	ContractID intents.AccountID
	// VerifyWorkers bounds the signatures verified concurrently. Values
	// below 2 verify sequentially.
	VerifyWorkers int
}

// Engine executes batches against db. It is not safe for concurrent use.
type Engine struct {
	log     log.Logger
	db      state.Database
	clock   *mockable.Clock
	config  Config
	metrics *metrics
}

func New(
	log log.Logger,
	db state.Database,
	clock *mockable.Clock,
	config Config,
	namespace string,
	registerer metric.Registerer,
) (*Engine, error) {
	if config.ContractID == "" {
		return nil, errMissingContract
	}
	if clock == nil {
		clock = &mockable.Clock{}
	}
	m, err := newMetrics(namespace, registerer)
	if err != nil {
		return nil, fmt.Errorf("failed to register engine metrics: %w", err)
	}
	return &Engine{
		log:     log,
		db:      db,
		clock:   clock,
		config:  config,
		metrics: m,
	}, nil
}

// Execute settles batch or fails without writing anything. Errors are
// *intents.Error carrying the offending intent index where there is one,
// or wrapped storage errors.
func (e *Engine) Execute(ctx context.Context, batch []payload.Signed) (*Result, error) {
	overlay, result, err := e.run(ctx, batch)
	if err != nil {
		e.metrics.failed.Inc()
		e.log.Debug("batch aborted",
			log.Int("intents", len(batch)),
			log.Err(err),
		)
		return nil, err
	}
	if err := overlay.Commit(e.db); err != nil {
		e.metrics.failed.Inc()
		return nil, fmt.Errorf("commit batch: %w", err)
	}

	e.metrics.committed.Inc()
	e.metrics.intentsExecuted.Add(float64(len(batch)))
	e.log.Debug("batch committed",
		log.Int("intents", len(batch)),
		log.Int("deltas", len(result.Deltas)),
		log.Int("events", len(result.Events)),
	)
	return result, nil
}

// Simulate runs batch exactly as Execute would and discards the writes.
func (e *Engine) Simulate(ctx context.Context, batch []payload.Signed) (*Result, error) {
	e.metrics.simulated.Inc()
	overlay, result, err := e.run(ctx, batch)
	if err != nil {
		return nil, err
	}
	overlay.Discard()
	return result, nil
}

type verified struct {
	signed payload.Signed
	pk     keys.PublicKey
	body   *intent.Payload
	hash   ids.ID
}

func (e *Engine) run(ctx context.Context, batch []payload.Signed) (*state.Overlay, *Result, error) {
	if len(batch) == 0 {
		return nil, nil, ErrEmptyBatch
	}
	e.metrics.batchSize.Set(float64(len(batch)))

	overlay := state.NewOverlay(e.db)
	registry := accounts.New(overlay)
	guard := nonces.New(overlay)

	// Step 1: authenticate.
	intentsOf, err := e.authenticate(ctx, registry, batch)
	if err != nil {
		return nil, nil, err
	}

	// Step 2: validate.
	now := e.clock.Time()
	seen := set.NewSet[string](len(intentsOf))
	for i, v := range intentsOf {
		if err := e.validate(guard, seen, v, now); err != nil {
			return nil, nil, atIndex(err, i)
		}
	}

	// Step 3: aggregate.
	agg := newAggregator()
	result := &Result{
		Outcomes: make([]Outcome, 0, len(intentsOf)),
	}
	for i, v := range intentsOf {
		agg.index = i
		for _, action := range v.body.Intents {
			if err := action.Execute(v.body.SignerID, agg); err != nil {
				return nil, nil, atIndex(err, i)
			}
			result.Events = append(result.Events, Event{
				Index:      i,
				Signer:     v.body.SignerID,
				IntentHash: v.hash,
				Action:     action,
			})
		}
		result.Outcomes = append(result.Outcomes, Outcome{
			Index:      i,
			Standard:   v.signed.Standard(),
			Signer:     v.body.SignerID,
			PublicKey:  v.pk,
			IntentHash: v.hash,
			Nonce:      v.body.Nonce,
		})
	}

	// Step 4: conservation.
	deltas := agg.deltas()
	if err := checkConservation(deltas); err != nil {
		return nil, nil, err
	}

	// Step 5: apply.
	if err := ledger.New(overlay).ApplyDeltas(deltas); err != nil {
		return nil, nil, err
	}

	// Step 6: record nonces and key changes.
	for i, v := range intentsOf {
		if err := guard.Commit(v.body.SignerID, v.body.Nonce); err != nil {
			return nil, nil, atIndex(err, i)
		}
	}
	for _, use := range agg.invalidated {
		if err := guard.Commit(use.account, use.nonce); err != nil {
			return nil, nil, atIndex(err, use.index)
		}
	}
	for _, op := range agg.keyOps {
		var err error
		if op.add {
			err = registry.AddPublicKey(op.account, op.pk)
		} else {
			err = registry.RemovePublicKey(op.account, op.pk)
		}
		if err != nil {
			return nil, nil, atIndex(err, op.index)
		}
	}

	result.Deltas = sortDeltas(deltas)
	return overlay, result, nil
}

// authenticate verifies every signature, decodes every message and checks
// that the recovered key may sign for the signer. The lowest failing index
// is reported.
func (e *Engine) authenticate(ctx context.Context, registry *accounts.Registry, batch []payload.Signed) ([]verified, error) {
	pks := make([]keys.PublicKey, len(batch))
	errs := make([]error, len(batch))

	if e.config.VerifyWorkers > 1 && len(batch) > 1 {
		var g errgroup.Group
		g.SetLimit(e.config.VerifyWorkers)
		for i, signed := range batch {
			g.Go(func() error {
				pks[i], errs[i] = signed.Verify()
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i, signed := range batch {
			pks[i], errs[i] = signed.Verify()
			if errs[i] != nil {
				break
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]verified, len(batch))
	for i, signed := range batch {
		if errs[i] != nil {
			return nil, atIndex(errs[i], i)
		}
		body, err := intent.Decode(signed.Message())
		if err != nil {
			return nil, atIndex(err, i)
		}
		if err := bindEnvelope(signed, body); err != nil {
			return nil, atIndex(err, i)
		}
		ok, err := registry.HasPublicKey(body.SignerID, pks[i])
		if err != nil {
			return nil, fmt.Errorf("read public keys: %w", err)
		}
		if !ok {
			return nil, intents.ErrInvalidSignature.
				WithIndex(i).
				WithAccount(body.SignerID).
				Withf("%s may not sign for the account", pks[i])
		}
		out[i] = verified{
			signed: signed,
			pk:     pks[i],
			body:   body,
			hash:   signed.Hash(),
		}
	}
	return out, nil
}

// bindEnvelope reconciles the nonce and recipient of an envelope with the
// message it carries. Fields missing from the message are taken from the
// envelope; fields present in both must agree.
func bindEnvelope(signed payload.Signed, body *intent.Payload) error {
	env, ok := payload.EnvelopeOf(signed)
	if !ok {
		return nil
	}
	switch nonce := env.EnvelopeNonce(); {
	case body.Nonce == intents.Nonce{}:
		body.Nonce = nonce
	case body.Nonce != nonce:
		return intents.ErrMalformedPayload.Withf("nonce differs from envelope")
	}
	switch recipient := env.EnvelopeRecipient(); {
	case body.VerifyingContract == "":
		body.VerifyingContract = recipient
	case body.VerifyingContract != recipient:
		return intents.ErrMalformedPayload.Withf("verifying contract differs from envelope recipient")
	}
	return nil
}

func (e *Engine) validate(guard *nonces.Guard, seen set.Set[string], v verified, now time.Time) error {
	body := v.body
	if body.VerifyingContract != e.config.ContractID {
		return intents.ErrWrongVerifyingContract.Withf("%q", body.VerifyingContract)
	}
	if body.Deadline.HasExpired(now) {
		return intents.ErrIntentExpired.WithAccount(body.SignerID)
	}
	if err := nonces.CheckExpiry(body.Nonce, body.Deadline, now); err != nil {
		return err
	}

	key := string(body.SignerID) + "/" + string(body.Nonce[:])
	if seen.Contains(key) {
		return intents.ErrNonceAlreadyUsed.WithAccount(body.SignerID).Withf("repeated in batch")
	}
	seen.Add(key)

	used, err := guard.IsUsed(body.SignerID, body.Nonce)
	if err != nil {
		return fmt.Errorf("read nonce: %w", err)
	}
	if used {
		return intents.ErrNonceAlreadyUsed.WithAccount(body.SignerID)
	}
	return nil
}

// atIndex attributes a typed error to intent i.
func atIndex(err error, i int) error {
	var typed *intents.Error
	if errors.As(err, &typed) {
		return typed.WithIndex(i)
	}
	return err
}
