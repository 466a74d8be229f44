// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ledger

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/intents"
	"github.com/luxfi/intents/amount"
	"github.com/luxfi/intents/state"
	"github.com/luxfi/intents/tokenid"
)

var (
	alice = intents.AccountID("alice.near")
	bob   = intents.AccountID("bob.near")

	tokenA = tokenid.NewNep141("a.near")
	tokenB = tokenid.NewNep141("b.near")
	nft    = tokenid.NewNep171("nft.near", "1")
)

func u(v uint64) *uint256.Int {
	return uint256.NewInt(v)
}

func requireBalance(t *testing.T, l *Ledger, account intents.AccountID, token tokenid.TokenID, want uint64) {
	t.Helper()

	got, err := l.BalanceOf(account, token)
	require.NoError(t, err)
	require.Equal(t, want, got.Uint64(), "%s %s", account, token)
}

func TestDepositWithdraw(t *testing.T) {
	require := require.New(t)
	l := New(state.NewMemDB())

	require.NoError(l.Deposit(alice, map[tokenid.TokenID]*uint256.Int{tokenA: u(1000)}))
	require.NoError(l.Deposit(bob, map[tokenid.TokenID]*uint256.Int{tokenA: u(5)}))
	requireBalance(t, l, alice, tokenA, 1000)

	supply, err := l.TotalSupply(tokenA)
	require.NoError(err)
	require.Equal(uint64(1005), supply.Uint64())

	require.NoError(l.Withdraw(alice, map[tokenid.TokenID]*uint256.Int{tokenA: u(400)}))
	requireBalance(t, l, alice, tokenA, 600)
	supply, err = l.TotalSupply(tokenA)
	require.NoError(err)
	require.Equal(uint64(605), supply.Uint64())

	err = l.Withdraw(alice, map[tokenid.TokenID]*uint256.Int{tokenA: u(601)})
	require.ErrorIs(err, intents.ErrInsufficientBalance)
	requireBalance(t, l, alice, tokenA, 600)
}

func TestDepositRejectsZero(t *testing.T) {
	require := require.New(t)
	db := state.NewMemDB()
	l := New(db)

	err := l.Deposit(alice, map[tokenid.TokenID]*uint256.Int{tokenA: u(1), tokenB: u(0)})
	require.ErrorIs(err, intents.ErrInvalidAmount)
	require.Zero(db.Len())
}

func TestDepositOverflow(t *testing.T) {
	require := require.New(t)
	l := New(state.NewMemDB())

	maxAmount := new(uint256.Int).SetAllOne()
	require.NoError(l.Deposit(alice, map[tokenid.TokenID]*uint256.Int{tokenA: maxAmount}))
	err := l.Deposit(bob, map[tokenid.TokenID]*uint256.Int{tokenA: u(1)})
	require.ErrorIs(err, intents.ErrArithmeticOverflow)
	requireBalance(t, l, bob, tokenA, 0)
}

func TestNftSupplyIsOne(t *testing.T) {
	require := require.New(t)
	l := New(state.NewMemDB())

	err := l.Deposit(alice, map[tokenid.TokenID]*uint256.Int{nft: u(2)})
	require.ErrorIs(err, intents.ErrNftAlreadyDeposited)

	require.NoError(l.Deposit(alice, map[tokenid.TokenID]*uint256.Int{nft: u(1)}))
	err = l.Deposit(bob, map[tokenid.TokenID]*uint256.Int{nft: u(1)})
	require.ErrorIs(err, intents.ErrNftAlreadyDeposited)

	// once withdrawn it can come back
	require.NoError(l.Withdraw(alice, map[tokenid.TokenID]*uint256.Int{nft: u(1)}))
	require.NoError(l.Deposit(bob, map[tokenid.TokenID]*uint256.Int{nft: u(1)}))
}

func TestApplyDeltas(t *testing.T) {
	require := require.New(t)
	db := state.NewMemDB()
	l := New(db)

	require.NoError(l.Deposit(alice, map[tokenid.TokenID]*uint256.Int{tokenA: u(1000)}))
	require.NoError(l.Deposit(bob, map[tokenid.TokenID]*uint256.Int{tokenB: u(1000)}))

	require.NoError(l.ApplyDeltas(map[Key]amount.Delta{
		{Account: alice, Token: tokenA}: amount.Debit(u(1000)),
		{Account: bob, Token: tokenA}:   amount.Credit(u(1000)),
		{Account: bob, Token: tokenB}:   amount.Debit(u(1000)),
		{Account: alice, Token: tokenB}: amount.Credit(u(1000)),
	}))
	requireBalance(t, l, alice, tokenA, 0)
	requireBalance(t, l, alice, tokenB, 1000)
	requireBalance(t, l, bob, tokenA, 1000)
	requireBalance(t, l, bob, tokenB, 0)

	// emptied balances are removed from the store
	has, err := l.HasAnyBalance(alice, []tokenid.TokenID{tokenA})
	require.NoError(err)
	require.False(has)
}

func TestApplyDeltasIsAllOrNothing(t *testing.T) {
	require := require.New(t)
	db := state.NewMemDB()
	l := New(db)

	require.NoError(l.Deposit(alice, map[tokenid.TokenID]*uint256.Int{tokenA: u(500)}))
	require.NoError(l.Deposit(bob, map[tokenid.TokenID]*uint256.Int{tokenA: u(10)}))
	before := db.Snapshot()

	err := l.ApplyDeltas(map[Key]amount.Delta{
		{Account: alice, Token: tokenA}: amount.Credit(u(10)),
		{Account: bob, Token: tokenA}:   amount.Debit(u(11)),
	})
	require.ErrorIs(err, intents.ErrInsufficientBalance)

	var typed *intents.Error
	require.ErrorAs(err, &typed)
	require.Equal(string(bob), typed.Account)
	require.Equal(tokenA.String(), typed.Asset)

	require.Equal(before, db.Snapshot())
}

func TestApplyDeltasReportsFirstOffender(t *testing.T) {
	require := require.New(t)
	l := New(state.NewMemDB())

	err := l.ApplyDeltas(map[Key]amount.Delta{
		{Account: bob, Token: tokenA}:   amount.Debit(u(1)),
		{Account: alice, Token: tokenB}: amount.Debit(u(1)),
		{Account: alice, Token: tokenA}: amount.Debit(u(1)),
	})

	var typed *intents.Error
	require.ErrorAs(err, &typed)
	require.Equal(string(alice), typed.Account)
	require.Equal(tokenA.String(), typed.Asset)
}
