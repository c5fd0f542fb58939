package ledger

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/BurstFinance/burst/core/amount"
)

// newAdminEngine returns a fresh engine with testAdmin registered.
func newAdminEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()

	e := newTestEngine(t, opts...)
	_, err := e.SetAdmin(testOwner, testAdmin)
	require.NoError(t, err)
	return e
}

func TestBatchMint(t *testing.T) {
	e := newAdminEngine(t)

	ev, err := e.BatchMint(testAdmin, PoolLiquidity,
		[]string{testUser1, testUser2},
		[]amount.Amount{5 * amount.Scale, 7 * amount.Scale})
	require.NoError(t, err)
	require.Equal(t, RewardsBatchMintedEvent{Pool: PoolLiquidity, Count: 2}, ev)

	pending, err := e.PendingReward(PoolLiquidity, testUser1)
	require.NoError(t, err)
	require.Equal(t, amount.Amount(5*amount.Scale), pending)

	pending, err = e.PendingReward(PoolLiquidity, testUser2)
	require.NoError(t, err)
	require.Equal(t, amount.Amount(7*amount.Scale), pending)

	// Pending rewards are not supply until harvested.
	require.Equal(t, amount.Amount(0), e.TotalMinted())
}

func TestBatchMintRepeatedAccountAccumulates(t *testing.T) {
	e := newAdminEngine(t)

	_, err := e.BatchMint(testAdmin, PoolTransactional,
		[]string{testUser1, testUser1},
		[]amount.Amount{3 * amount.Scale, 4 * amount.Scale})
	require.NoError(t, err)

	pending, err := e.PendingReward(PoolTransactional, testUser1)
	require.NoError(t, err)
	require.Equal(t, amount.Amount(7*amount.Scale), pending)
}

func TestBatchMintLengthMismatch(t *testing.T) {
	e := newAdminEngine(t)

	_, err := e.BatchMint(testAdmin, PoolCollectible,
		[]string{testUser1, testUser2},
		[]amount.Amount{amount.Scale})
	require.ErrorIs(t, err, ErrLengthMismatch)

	pending, err := e.PendingReward(PoolCollectible, testUser1)
	require.NoError(t, err)
	require.True(t, pending.IsZero())
}

func TestBatchMintAdminGated(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.BatchMint(testUser1, PoolLiquidity,
		[]string{testUser2}, []amount.Amount{amount.Scale})
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestBatchMintOverflowAllOrNothing(t *testing.T) {
	e := newAdminEngine(t)

	// The first entry alone would be fine; the combined batch overflows.
	// Nothing may land in the pool.
	_, err := e.BatchMint(testAdmin, PoolLiquidity,
		[]string{testUser1, testUser2, testUser1},
		[]amount.Amount{amount.Max, amount.Scale, 1})
	require.ErrorIs(t, err, amount.ErrOverflow)

	pending, err := e.PendingReward(PoolLiquidity, testUser1)
	require.NoError(t, err)
	require.True(t, pending.IsZero())
	pending, err = e.PendingReward(PoolLiquidity, testUser2)
	require.NoError(t, err)
	require.True(t, pending.IsZero())
}

func TestBatchMintZeroAmountLeavesNoEntry(t *testing.T) {
	e := newAdminEngine(t)

	_, err := e.BatchMint(testAdmin, PoolLiquidity,
		[]string{testUser1, testUser2},
		[]amount.Amount{0, 2 * amount.Scale})
	require.NoError(t, err)

	pending, err := e.PendingReward(PoolLiquidity, testUser1)
	require.NoError(t, err)
	require.True(t, pending.IsZero())

	// A zero credit must not leave a stored pool entry behind: the live
	// root and the root of a restored snapshot have to agree.
	fresh := newTestEngine(t)
	require.NoError(t, fresh.Restore(e.Snapshot()))
	require.Equal(t, e.StateRoot(), fresh.StateRoot())
}

func TestHarvest(t *testing.T) {
	e := newAdminEngine(t)
	reward := amount.Amount(9 * amount.Scale)

	_, err := e.BatchMint(testAdmin, PoolCollectible,
		[]string{testUser1}, []amount.Amount{reward})
	require.NoError(t, err)

	events, err := e.Harvest(PoolCollectible, testUser1)
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, TransferEvent{To: testUser1, Amount: reward}, events[0])
	require.Equal(t, RewardHarvestedEvent{Pool: PoolCollectible, Account: testUser1, Amount: reward}, events[1])

	require.Equal(t, reward, e.BalanceOf(testUser1))
	require.Equal(t, reward, e.TotalMinted())

	pending, err := e.PendingReward(PoolCollectible, testUser1)
	require.NoError(t, err)
	require.True(t, pending.IsZero())
}

func TestHarvestTwiceIsIdempotent(t *testing.T) {
	e := newAdminEngine(t)
	reward := amount.Amount(2 * amount.Scale)

	_, err := e.BatchMint(testAdmin, PoolTransactional,
		[]string{testUser1}, []amount.Amount{reward})
	require.NoError(t, err)

	_, err = e.Harvest(PoolTransactional, testUser1)
	require.NoError(t, err)

	// Second harvest finds nothing pending and mints nothing.
	events, err := e.Harvest(PoolTransactional, testUser1)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, RewardHarvestedEvent{Pool: PoolTransactional, Account: testUser1}, events[0])

	require.Equal(t, reward, e.BalanceOf(testUser1))
	require.Equal(t, reward, e.TotalMinted())
}

func TestHarvestPoolsIndependent(t *testing.T) {
	e := newAdminEngine(t)

	_, err := e.BatchMint(testAdmin, PoolTransactional,
		[]string{testUser1}, []amount.Amount{amount.Scale})
	require.NoError(t, err)
	_, err = e.BatchMint(testAdmin, PoolLiquidity,
		[]string{testUser1}, []amount.Amount{2 * amount.Scale})
	require.NoError(t, err)

	_, err = e.Harvest(PoolTransactional, testUser1)
	require.NoError(t, err)
	require.Equal(t, amount.Amount(amount.Scale), e.BalanceOf(testUser1))

	pending, err := e.PendingReward(PoolLiquidity, testUser1)
	require.NoError(t, err)
	require.Equal(t, amount.Amount(2*amount.Scale), pending)
}

func TestCompound(t *testing.T) {
	e := newAdminEngine(t)
	reward := amount.Amount(6 * amount.Scale)

	_, err := e.BatchMint(testAdmin, PoolTransactional,
		[]string{testUser1}, []amount.Amount{reward})
	require.NoError(t, err)

	ev, err := e.Compound(testUser1)
	require.NoError(t, err)
	require.Equal(t, RewardCompoundedEvent{Account: testUser1, Amount: reward}, ev)

	// The reward lands in stake, never touching spendable balance.
	require.True(t, e.BalanceOf(testUser1).IsZero())
	require.Equal(t, reward, e.StakeBalanceOf(NativeAsset(), testUser1).Amount)
	require.Equal(t, reward, e.TotalStaked())
	require.Equal(t, reward, e.TotalMinted())

	pending, err := e.PendingReward(PoolTransactional, testUser1)
	require.NoError(t, err)
	require.True(t, pending.IsZero())

	// Withdrawing the compounded amount returns it to balance.
	_, err = e.WithdrawStake(NativeAsset(), testUser1, reward)
	require.NoError(t, err)
	require.Equal(t, reward, e.BalanceOf(testUser1))
	require.True(t, e.TotalStaked().IsZero())
	conservation(t, e, testUser1)
}

func TestCompoundNothingPending(t *testing.T) {
	e := newTestEngine(t)

	ev, err := e.Compound(testUser1)
	require.NoError(t, err)
	require.Equal(t, RewardCompoundedEvent{Account: testUser1}, ev)
	require.True(t, e.TotalStaked().IsZero())
	require.True(t, e.TotalMinted().IsZero())
}

func TestPoolKindRoundTrip(t *testing.T) {
	for _, kind := range PoolKinds() {
		parsed, err := ParsePoolKind(kind.String())
		require.NoError(t, err)
		require.Equal(t, kind, parsed)
	}

	_, err := ParsePoolKind("staking")
	require.ErrorIs(t, err, ErrUnknownPool)
}
