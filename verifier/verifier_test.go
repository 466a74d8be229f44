// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package verifier_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/luxfi/log"
	"github.com/luxfi/metric"
	"github.com/luxfi/vm/utils/timer/mockable"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/luxfi/intents"
	"github.com/luxfi/intents/intent"
	"github.com/luxfi/intents/intentstest"
	"github.com/luxfi/intents/payload"
	"github.com/luxfi/intents/state"
	"github.com/luxfi/intents/tokenid"
	"github.com/luxfi/intents/verifier"
	"github.com/luxfi/intents/verifier/verifiermock"
)

const (
	contractID intents.AccountID = "intents.near"

	destination = "bc1qar0srrr7xfkvy5l643lydnw9re59gtzzwf5mdq"
)

var (
	usdc = tokenid.NewNep141("usdc.near")
	wbtc = tokenid.NewNep141("wbtc.near")
	nft  = tokenid.NewNep171("nft.near", "1")

	now = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	errBridgeDown = errors.New("bridge down")
)

func newVerifier(t *testing.T, releaser verifier.Releaser, minStorage uint64) (*verifier.Verifier, *state.MemDB) {
	db := state.NewMemDB()
	clock := &mockable.Clock{}
	clock.Set(now)
	v, err := verifier.New(
		log.NewNoOpLogger(),
		db,
		releaser,
		clock,
		verifier.Config{
			ContractID:        contractID,
			MinStorageDeposit: uint256.NewInt(minStorage),
			VerifyWorkers:     2,
		},
		metric.NewRegistry(),
	)
	require.NoError(t, err)
	return v, db
}

func amounts(token tokenid.TokenID, v uint64) map[tokenid.TokenID]*uint256.Int {
	return map[tokenid.TokenID]*uint256.Int{token: uint256.NewInt(v)}
}

// fund pays the storage deposit of account and deposits v of token.
func fund(t *testing.T, v *verifier.Verifier, account intents.AccountID, token tokenid.TokenID, amount uint64) {
	ctx := context.Background()
	_, err := v.StorageDeposit(ctx, account, uint256.NewInt(10))
	require.NoError(t, err)
	require.NoError(t, v.Deposit(ctx, account, amounts(token, amount)))
}

func requireBalance(t *testing.T, v *verifier.Verifier, account intents.AccountID, token tokenid.TokenID, want uint64) {
	bal, err := v.BalanceOf(account, token)
	require.NoError(t, err)
	require.Equal(t, want, bal.Uint64())
}

func transfer(t *testing.T, s intentstest.Signer, to intents.AccountID, token tokenid.TokenID, v uint64, n byte) payload.Signed {
	var nonce intents.Nonce
	nonce[0] = 0x01
	nonce[intents.NonceLen-1] = n
	return s.Sign(t, &intent.Payload{
		SignerID:          s.Account(),
		VerifyingContract: contractID,
		Deadline:          intents.NewDeadline(now.Add(time.Minute)),
		Nonce:             nonce,
		Intents: intent.Actions{
			&intent.Transfer{ReceiverID: to, Tokens: amounts(token, v)},
		},
	}).Signed
}

func TestNewRequiresContract(t *testing.T) {
	_, err := verifier.New(log.NewNoOpLogger(), state.NewMemDB(), nil, nil, verifier.Config{}, metric.NewRegistry())
	require.Error(t, err)
}

func TestDepositAndViews(t *testing.T) {
	require := require.New(t)
	v, _ := newVerifier(t, nil, 0)

	require.Equal(contractID, v.ContractID())
	fund(t, v, "alice.near", usdc, 100)
	fund(t, v, "bob.near", usdc, 50)

	requireBalance(t, v, "alice.near", usdc, 100)
	requireBalance(t, v, "bob.near", usdc, 50)
	requireBalance(t, v, "carol.near", usdc, 0)

	supply, err := v.TotalSupply(usdc)
	require.NoError(err)
	require.Equal(uint64(150), supply.Uint64())
}

func TestDepositErrors(t *testing.T) {
	tests := []struct {
		name    string
		amounts map[tokenid.TokenID]*uint256.Int
		want    error
	}{
		{
			name:    "no assets",
			amounts: nil,
			want:    intents.ErrInvalidAmount,
		},
		{
			name:    "zero amount",
			amounts: amounts(usdc, 0),
			want:    intents.ErrInvalidAmount,
		},
		{
			name:    "unknown standard",
			amounts: amounts(tokenid.TokenID{Standard: "erc20", Contract: "usdc.eth"}, 1),
			want:    intents.ErrUnknownAsset,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, db := newVerifier(t, nil, 0)
			_, err := v.StorageDeposit(context.Background(), "alice.near", uint256.NewInt(1))
			require.NoError(t, err)
			before := db.Snapshot()

			err = v.Deposit(context.Background(), "alice.near", tt.amounts)
			require.ErrorIs(t, err, tt.want)
			require.Equal(t, before, db.Snapshot())
		})
	}
}

func TestNftDepositedOnce(t *testing.T) {
	require := require.New(t)
	v, _ := newVerifier(t, nil, 0)

	fund(t, v, "alice.near", nft, 1)
	_, err := v.StorageDeposit(context.Background(), "bob.near", uint256.NewInt(1))
	require.NoError(err)
	err = v.Deposit(context.Background(), "bob.near", amounts(nft, 1))
	require.ErrorIs(err, intents.ErrNftAlreadyDeposited)
	requireBalance(t, v, "bob.near", nft, 0)
}

func TestDepositRequiresStorage(t *testing.T) {
	require := require.New(t)
	v, _ := newVerifier(t, nil, 10)
	ctx := context.Background()

	err := v.Deposit(ctx, "alice.near", amounts(usdc, 100))
	require.ErrorIs(err, intents.ErrStorageNotRegistered)

	bal, err := v.StorageDeposit(ctx, "alice.near", uint256.NewInt(4))
	require.NoError(err)
	require.Equal(uint64(4), bal.Uint64())
	err = v.Deposit(ctx, "alice.near", amounts(usdc, 100))
	require.ErrorIs(err, intents.ErrStorageNotRegistered)

	bal, err = v.StorageDeposit(ctx, "alice.near", uint256.NewInt(6))
	require.NoError(err)
	require.Equal(uint64(10), bal.Uint64())
	require.NoError(v.Deposit(ctx, "alice.near", amounts(usdc, 100)))

	stored, err := v.StorageBalance("alice.near")
	require.NoError(err)
	require.Equal(uint64(10), stored.Uint64())

	_, err = v.StorageDeposit(ctx, "alice.near", new(uint256.Int))
	require.ErrorIs(err, intents.ErrInvalidAmount)
}

func TestWithdraw(t *testing.T) {
	require := require.New(t)
	ctrl := gomock.NewController(t)
	releaser := verifiermock.NewReleaser(ctrl)
	v, _ := newVerifier(t, releaser, 0)
	ctx := context.Background()

	fund(t, v, "alice.near", wbtc, 10)

	w := verifier.Withdrawal{
		Owner:       "alice.near",
		Token:       wbtc,
		Amount:      uint256.NewInt(4),
		Destination: destination,
	}
	releaser.EXPECT().Release(gomock.Any(), w).Return(nil)
	require.NoError(v.Withdraw(ctx, w))

	requireBalance(t, v, "alice.near", wbtc, 6)
	supply, err := v.TotalSupply(wbtc)
	require.NoError(err)
	require.Equal(uint64(6), supply.Uint64())
}

func TestWithdrawInsufficientBalance(t *testing.T) {
	require := require.New(t)
	ctrl := gomock.NewController(t)
	releaser := verifiermock.NewReleaser(ctrl)
	v, _ := newVerifier(t, releaser, 0)
	ctx := context.Background()

	fund(t, v, "alice.near", wbtc, 10)

	// the releaser must not be called
	err := v.Withdraw(ctx, verifier.Withdrawal{
		Owner:       "alice.near",
		Token:       wbtc,
		Amount:      uint256.NewInt(11),
		Destination: destination,
	})
	require.ErrorIs(err, intents.ErrInsufficientBalance)

	var typed *intents.Error
	require.ErrorAs(err, &typed)
	require.Equal("alice.near", typed.Account)
	require.Equal(wbtc.String(), typed.Asset)
	requireBalance(t, v, "alice.near", wbtc, 10)
}

func TestWithdrawRefundsFailedRelease(t *testing.T) {
	require := require.New(t)
	ctrl := gomock.NewController(t)
	releaser := verifiermock.NewReleaser(ctrl)
	v, _ := newVerifier(t, releaser, 5)
	ctx := context.Background()

	_, err := v.StorageDeposit(ctx, "alice.near", uint256.NewInt(5))
	require.NoError(err)
	require.NoError(v.Deposit(ctx, "alice.near", amounts(wbtc, 10)))

	releaser.EXPECT().Release(gomock.Any(), gomock.Any()).Return(errBridgeDown)
	err = v.Withdraw(ctx, verifier.Withdrawal{
		Owner:       "alice.near",
		Token:       wbtc,
		Amount:      uint256.NewInt(10),
		Destination: destination,
	})
	require.ErrorIs(err, errBridgeDown)

	requireBalance(t, v, "alice.near", wbtc, 10)
	supply, err := v.TotalSupply(wbtc)
	require.NoError(err)
	require.Equal(uint64(10), supply.Uint64())
}

func TestTestReleaser(t *testing.T) {
	require := require.New(t)
	var released []verifier.Withdrawal
	releaser := &verifier.TestReleaser{
		ReleaseF: func(_ context.Context, w verifier.Withdrawal) error {
			released = append(released, w)
			return nil
		},
	}
	v, _ := newVerifier(t, releaser, 0)
	ctx := context.Background()

	fund(t, v, "alice.near", usdc, 3)
	require.NoError(v.Withdraw(ctx, verifier.Withdrawal{
		Owner:       "alice.near",
		Token:       usdc,
		Amount:      uint256.NewInt(3),
		Destination: destination,
	}))
	require.Len(released, 1)
	require.Equal(usdc, released[0].Token)
	requireBalance(t, v, "alice.near", usdc, 0)
}

func TestExecuteIntents(t *testing.T) {
	require := require.New(t)
	v, db := newVerifier(t, nil, 0)
	ctx := context.Background()

	alice := intentstest.NewSigner(t, payload.Nep413Standard)
	bob := intentstest.NewSigner(t, payload.Tip191Standard)
	fund(t, v, alice.Account(), usdc, 100)

	batch := []payload.Signed{transfer(t, alice, bob.Account(), usdc, 40, 1)}

	before := db.Snapshot()
	simulated, err := v.SimulateIntents(ctx, batch)
	require.NoError(err)
	require.Equal(before, db.Snapshot())

	executed, err := v.ExecuteIntents(ctx, batch)
	require.NoError(err)
	require.Equal(simulated, executed)

	requireBalance(t, v, alice.Account(), usdc, 60)
	requireBalance(t, v, bob.Account(), usdc, 40)

	used, err := v.IsNonceUsed(alice.Account(), executed.Outcomes[0].Nonce)
	require.NoError(err)
	require.True(used)

	_, err = v.ExecuteIntents(ctx, batch)
	require.ErrorIs(err, intents.ErrNonceAlreadyUsed)
	requireBalance(t, v, alice.Account(), usdc, 60)
}

func TestPublicKeysView(t *testing.T) {
	require := require.New(t)
	v, _ := newVerifier(t, nil, 0)
	ctx := context.Background()

	alice := intentstest.NewSigner(t, payload.RawEd25519Standard)
	device := intentstest.NewSigner(t, payload.BLSStandard)

	var nonce intents.Nonce
	nonce[intents.NonceLen-1] = 7
	_, err := v.ExecuteIntents(ctx, []payload.Signed{alice.Sign(t, &intent.Payload{
		SignerID:          alice.Account(),
		VerifyingContract: contractID,
		Deadline:          intents.NewDeadline(now.Add(time.Minute)),
		Nonce:             nonce,
		Intents:           intent.Actions{&intent.AddPublicKey{PublicKey: device.PublicKey()}},
	}).Signed})
	require.NoError(err)

	pks, err := v.PublicKeys(alice.Account())
	require.NoError(err)
	require.Len(pks, 1)
	require.Equal(device.PublicKey(), pks[0])

	// a registered key is prior state, so no storage deposit is needed
	require.NoError(v.Deposit(ctx, alice.Account(), amounts(usdc, 5)))
	requireBalance(t, v, alice.Account(), usdc, 5)
}

func TestConcurrentBatchesAreSerialized(t *testing.T) {
	require := require.New(t)
	v, _ := newVerifier(t, nil, 0)
	ctx := context.Background()

	const n = 16
	alice := intentstest.NewSigner(t, payload.Sep53Standard)
	bob := intentstest.NewSigner(t, payload.Erc191Standard)
	fund(t, v, alice.Account(), usdc, n)

	batches := make([][]payload.Signed, n)
	for i := range batches {
		batches[i] = []payload.Signed{transfer(t, alice, bob.Account(), usdc, 1, byte(i))}
	}

	var (
		wg   sync.WaitGroup
		errs = make([]error, n)
	)
	for i, batch := range batches {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = v.ExecuteIntents(ctx, batch)
		}()
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(err)
	}
	requireBalance(t, v, alice.Account(), usdc, 0)
	requireBalance(t, v, bob.Account(), usdc, n)
}

func TestDepositWithoutStorage(t *testing.T) {
	require := require.New(t)
	v, db := newVerifier(t, nil, 0)
	ctx := context.Background()

	// a zero minimum still requires a registered storage deposit
	err := v.Deposit(ctx, "alice.near", amounts(usdc, 100))
	require.ErrorIs(err, intents.ErrStorageNotRegistered)
	require.Zero(db.Len())

	_, err = v.StorageDeposit(ctx, "alice.near", uint256.NewInt(1))
	require.NoError(err)
	require.NoError(v.Deposit(ctx, "alice.near", amounts(usdc, 100)))
}

func TestDepositToExistingBalance(t *testing.T) {
	require := require.New(t)
	v, _ := newVerifier(t, nil, 10)
	ctx := context.Background()

	alice := intentstest.NewSigner(t, payload.Nep413Standard)
	bob := intentstest.NewSigner(t, payload.Tip191Standard)
	fund(t, v, alice.Account(), usdc, 100)
	_, err := v.ExecuteIntents(ctx, []payload.Signed{transfer(t, alice, bob.Account(), usdc, 40, 1)})
	require.NoError(err)

	// bob holds usdc without having paid for storage
	require.NoError(v.Deposit(ctx, bob.Account(), amounts(usdc, 1)))
	requireBalance(t, v, bob.Account(), usdc, 41)

	err = v.Deposit(ctx, bob.Account(), amounts(wbtc, 1))
	require.ErrorIs(err, intents.ErrStorageNotRegistered)
}

func TestInvalidAccount(t *testing.T) {
	tests := []struct {
		name    string
		account intents.AccountID
	}{
		{
			name:    "empty",
			account: "",
		},
		{
			name:    "key separator",
			account: "A\x00B",
		},
		{
			name:    "uppercase",
			account: "Alice.near",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)
			ctrl := gomock.NewController(t)
			releaser := verifiermock.NewReleaser(ctrl)
			v, db := newVerifier(t, releaser, 0)
			ctx := context.Background()

			_, err := v.StorageDeposit(ctx, tt.account, uint256.NewInt(10))
			require.ErrorIs(err, intents.ErrMalformedPayload)

			err = v.Deposit(ctx, tt.account, amounts(usdc, 5))
			require.ErrorIs(err, intents.ErrMalformedPayload)

			err = v.Withdraw(ctx, verifier.Withdrawal{
				Owner:       tt.account,
				Token:       usdc,
				Amount:      uint256.NewInt(5),
				Destination: destination,
			})
			require.ErrorIs(err, intents.ErrMalformedPayload)

			require.Zero(db.Len())
			requireBalance(t, v, tt.account, usdc, 0)
		})
	}
}

func TestWithdrawRequiresDestination(t *testing.T) {
	require := require.New(t)
	ctrl := gomock.NewController(t)
	releaser := verifiermock.NewReleaser(ctrl)
	v, db := newVerifier(t, releaser, 0)
	ctx := context.Background()

	fund(t, v, "alice.near", wbtc, 10)
	before := db.Snapshot()

	// the releaser must not be called
	err := v.Withdraw(ctx, verifier.Withdrawal{
		Owner:  "alice.near",
		Token:  wbtc,
		Amount: uint256.NewInt(4),
	})
	require.ErrorIs(err, intents.ErrMalformedPayload)
	require.Equal(before, db.Snapshot())
}
