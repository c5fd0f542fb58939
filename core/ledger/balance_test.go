package ledger

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/BurstFinance/burst/core/amount"
)

func TestMintTo(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.SetAdmin(testOwner, testAdmin)
	require.NoError(t, err)

	ev, err := e.MintTo(testAdmin, testUser1, 500)
	require.NoError(t, err)
	require.Equal(t, TransferEvent{To: testUser1, Amount: 500}, ev)
	require.Equal(t, amount.Amount(500), e.BalanceOf(testUser1))
	require.Equal(t, amount.Amount(500), e.TotalMinted())

	// Owner is implicitly admin-gated in.
	_, err = e.MintTo(testOwner, testUser1, 100)
	require.NoError(t, err)
	require.Equal(t, amount.Amount(600), e.BalanceOf(testUser1))

	// Plain accounts cannot mint.
	_, err = e.MintTo(testUser1, testUser1, 100)
	require.ErrorIs(t, err, ErrUnauthorized)
	require.Equal(t, amount.Amount(600), e.BalanceOf(testUser1))
}

func TestBalanceOfUnseenAccount(t *testing.T) {
	e := newTestEngine(t)
	require.Equal(t, amount.Amount(0), e.BalanceOf(testUser3))
}

func TestTransfer(t *testing.T) {
	e := newFundedEngine(t, 1000)

	ev, err := e.Transfer(testUser1, testUser2, 300)
	require.NoError(t, err)
	require.Equal(t, TransferEvent{From: testUser1, To: testUser2, Amount: 300}, ev)
	require.Equal(t, amount.Amount(700), e.BalanceOf(testUser1))
	require.Equal(t, amount.Amount(300), e.BalanceOf(testUser2))

	_, err = e.Transfer(testUser1, testUser2, 701)
	require.ErrorIs(t, err, ErrInsufficientBalance)
	require.Equal(t, amount.Amount(700), e.BalanceOf(testUser1))
	require.Equal(t, amount.Amount(300), e.BalanceOf(testUser2))

	_, err = e.Transfer(testUser1, testUser2, 0)
	require.ErrorIs(t, err, ErrInvalidAmount)

	// Self transfer moves nothing.
	_, err = e.Transfer(testUser1, testUser1, 700)
	require.NoError(t, err)
	require.Equal(t, amount.Amount(700), e.BalanceOf(testUser1))
}

func TestBurn(t *testing.T) {
	e := newFundedEngine(t, 1000)

	ev, err := e.Burn(testUser1, 400)
	require.NoError(t, err)
	require.Equal(t, TransferEvent{From: testUser1, Amount: 400}, ev)
	require.Equal(t, amount.Amount(600), e.BalanceOf(testUser1))
	require.Equal(t, amount.Amount(400), e.TotalBurned())
	require.Equal(t, amount.Amount(600), e.TotalSupply())

	_, err = e.Burn(testUser1, 601)
	require.ErrorIs(t, err, ErrInsufficientBalance)

	_, err = e.Burn(testUser1, 0)
	require.ErrorIs(t, err, ErrInvalidAmount)
}

// conservation checks the ledger's conservation law: everything ever
// minted is either in a balance, in native stake custody, or burned.
func conservation(t *testing.T, e *Engine, accounts ...string) {
	t.Helper()

	var held amount.Amount
	for _, a := range accounts {
		var err error
		held, err = amount.Add(held, e.BalanceOf(a))
		require.NoError(t, err)
	}
	held, err := amount.Add(held, e.TotalStaked())
	require.NoError(t, err)

	require.Equal(t, e.TotalSupply(), held)
}

func TestConservationAcrossOperations(t *testing.T) {
	e := newFundedEngine(t, 10_000)
	all := []string{testOwner, testAdmin, testUser1, testUser2, testUser3}

	conservation(t, e, all...)

	_, err := e.Transfer(testUser1, testUser2, 2_500)
	require.NoError(t, err)
	conservation(t, e, all...)

	_, err = e.Stake(NativeAsset(), testUser1, 4_000)
	require.NoError(t, err)
	conservation(t, e, all...)

	_, err = e.Burn(testUser2, 500)
	require.NoError(t, err)
	conservation(t, e, all...)

	_, err = e.BatchMint(testAdmin, PoolTransactional, []string{testUser3}, []amount.Amount{1_000})
	require.NoError(t, err)
	conservation(t, e, all...) // pending rewards are not yet supply

	_, err = e.Compound(testUser3)
	require.NoError(t, err)
	conservation(t, e, all...)

	_, err = e.WithdrawStake(NativeAsset(), testUser3, 1_000)
	require.NoError(t, err)
	conservation(t, e, all...)
}
