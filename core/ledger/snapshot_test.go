package ledger

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/BurstFinance/burst/config"
	"github.com/BurstFinance/burst/core/amount"
)

// populatedEngine builds an engine exercising every state dimension a
// snapshot must carry: balances, native and external stake, pending
// rewards in two pools, a purchased slot, burned supply, and a stopped
// engine.
func populatedEngine(t *testing.T) *Engine {
	t.Helper()

	custody := StaticCustodyBank{
		"usdc": newFakeCustodian(testUser2, 10*amount.Scale),
	}
	e := newFundedEngine(t, 100*amount.Scale, WithCustodyBank(custody))

	_, err := e.Transfer(testUser1, testUser2, 20*amount.Scale)
	require.NoError(t, err)
	_, err = e.Stake(NativeAsset(), testUser1, 15*amount.Scale)
	require.NoError(t, err)
	_, err = e.Stake(ExternalAsset("usdc"), testUser2, 4*amount.Scale)
	require.NoError(t, err)
	_, err = e.BatchMint(testAdmin, PoolTransactional,
		[]string{testUser1}, []amount.Amount{3 * amount.Scale})
	require.NoError(t, err)
	_, err = e.BatchMint(testAdmin, PoolLiquidity,
		[]string{testUser2}, []amount.Amount{amount.Scale})
	require.NoError(t, err)
	_, err = e.BuySlot(testUser3, 1, 10*amount.Scale)
	require.NoError(t, err)
	_, err = e.Burn(testUser2, 5*amount.Scale)
	require.NoError(t, err)
	_, err = e.StopMining(testOwner)
	require.NoError(t, err)

	return e
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	e := populatedEngine(t)
	snap := e.Snapshot()
	require.Equal(t, testOwner, snap.Owner)
	require.Equal(t, []string{testAdmin}, snap.Admins)
	require.False(t, snap.Active)
	require.NotEmpty(t, snap.StateRoot)
	require.NotZero(t, snap.Timestamp)

	fresh, err := New(testConfig())
	require.NoError(t, err)
	require.NoError(t, fresh.Restore(snap))

	// Restoring into a fresh engine reproduces the exact state.
	require.Equal(t, snap.StateRoot, fresh.StateRoot())
	require.Equal(t, e.StateRoot(), fresh.StateRoot())
	require.Equal(t, e.BalanceOf(testUser1), fresh.BalanceOf(testUser1))
	require.Equal(t, e.BalanceOf(testUser2), fresh.BalanceOf(testUser2))
	require.Equal(t, e.StakeBalanceOf(NativeAsset(), testUser1), fresh.StakeBalanceOf(NativeAsset(), testUser1))
	require.Equal(t, e.StakeBalanceOf(ExternalAsset("usdc"), testUser2), fresh.StakeBalanceOf(ExternalAsset("usdc"), testUser2))
	require.Equal(t, e.TotalMinted(), fresh.TotalMinted())
	require.Equal(t, e.TotalBurned(), fresh.TotalBurned())
	require.Equal(t, e.TotalStaked(), fresh.TotalStaked())
	require.Equal(t, e.TreasuryBalance(), fresh.TreasuryBalance())
	require.Equal(t, e.Slots(), fresh.Slots())
	require.Equal(t, e.IsActive(), fresh.IsActive())
	require.True(t, fresh.IsAdmin(testAdmin))

	pending, err := fresh.PendingReward(PoolTransactional, testUser1)
	require.NoError(t, err)
	require.Equal(t, amount.Amount(3*amount.Scale), pending)
	pending, err = fresh.PendingReward(PoolLiquidity, testUser2)
	require.NoError(t, err)
	require.Equal(t, amount.Amount(amount.Scale), pending)
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	e := newFundedEngine(t, 50*amount.Scale)
	snap := e.Snapshot()

	// Mutating the engine after the fact must not reach into the snapshot.
	_, err := e.Transfer(testUser1, testUser2, 10*amount.Scale)
	require.NoError(t, err)
	_, err = e.BuySlot(testUser2, 0, 10*amount.Scale)
	require.NoError(t, err)

	require.Equal(t, amount.Amount(50*amount.Scale), snap.Accounts[testUser1].Balance)
	require.Empty(t, snap.Slots[0].Owner)
}

func TestRestoreRejectsForeignSnapshot(t *testing.T) {
	e := populatedEngine(t)
	snap := e.Snapshot()

	otherOwner := *testConfig()
	otherOwner.Owner = testUser3
	foreign, err := New(&otherOwner)
	require.NoError(t, err)
	require.Error(t, foreign.Restore(snap))

	smaller := *testConfig()
	smaller.SlotCount = 2
	resized, err := New(&smaller)
	require.NoError(t, err)
	require.Error(t, resized.Restore(snap))

	fresh, err := New(testConfig())
	require.NoError(t, err)
	require.Error(t, fresh.Restore(nil))
}

func TestRestoreRejectsUnknownPool(t *testing.T) {
	e := newTestEngine(t)
	snap := e.Snapshot()
	snap.Accounts[testUser1] = &AccountState{
		Rewards: map[string]amount.Amount{"staking": amount.Scale},
	}

	fresh, err := New(testConfig())
	require.NoError(t, err)
	require.ErrorIs(t, fresh.Restore(snap), ErrUnknownPool)
}

func TestRestoreDropsZeroEntries(t *testing.T) {
	e := newTestEngine(t)
	snap := e.Snapshot()
	snap.Accounts[testUser1] = &AccountState{
		Balance: 0,
		Stakes:  map[string]amount.Amount{"": 0},
		Rewards: map[string]amount.Amount{"liquidity": 0},
	}

	fresh, err := New(testConfig())
	require.NoError(t, err)
	require.NoError(t, fresh.Restore(snap))

	// Zero entries are stripped so state roots stay canonical.
	require.Equal(t, e.StateRoot(), fresh.StateRoot())
}

func TestSnapshotStateRootTracksState(t *testing.T) {
	cfg := config.EngineConfig{
		Owner:     testOwner,
		SlotCount: 4,
		BasePrice: 10 * amount.Scale,
	}
	a, err := New(&cfg)
	require.NoError(t, err)
	b, err := New(&cfg)
	require.NoError(t, err)

	require.Equal(t, a.StateRoot(), b.StateRoot())

	_, err = a.SetAdmin(testOwner, testAdmin)
	require.NoError(t, err)
	require.NotEqual(t, a.StateRoot(), b.StateRoot())
}
