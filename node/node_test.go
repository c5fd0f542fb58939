package node

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/BurstFinance/burst/config"
	"github.com/BurstFinance/burst/core/amount"
	"github.com/BurstFinance/burst/core/ledger"
	"github.com/BurstFinance/burst/storage"
)

const (
	testOwner = "0x0000000000000000000000000000000000000001"
	testUser  = "0x0000000000000000000000000000000000000002"
)

func testNodeConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg, err := config.Load()
	require.NoError(t, err)
	cfg.DataDir = t.TempDir()
	cfg.API.Addr = "127.0.0.1:0"
	cfg.Engine.Owner = testOwner
	cfg.Engine.SlotCount = 4
	return cfg
}

func TestNodeStatePersistsAcrossRestart(t *testing.T) {
	cfg := testNodeConfig(t)

	n, err := New(cfg, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, n.Start())

	_, err = n.Engine().MintTo(testOwner, testUser, 40*amount.Scale)
	require.NoError(t, err)
	_, err = n.Engine().Stake(ledger.NativeAsset(), testUser, 15*amount.Scale)
	require.NoError(t, err)
	root := n.Engine().StateRoot()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, n.Stop(ctx))

	// A second node over the same data directory resumes the state.
	n2, err := New(cfg, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, n2.Start())
	defer n2.Stop(ctx)

	require.Equal(t, root, n2.Engine().StateRoot())
	require.Equal(t, amount.Amount(25*amount.Scale), n2.Engine().BalanceOf(testUser))
	require.Equal(t, amount.Amount(15*amount.Scale), n2.Engine().TotalStaked())
}

func TestNodeJournalsEvents(t *testing.T) {
	cfg := testNodeConfig(t)

	n, err := New(cfg, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, n.Start())

	_, err = n.Engine().MintTo(testOwner, testUser, amount.Scale)
	require.NoError(t, err)
	_, err = n.Engine().Burn(testUser, amount.Scale)
	require.NoError(t, err)

	// Journaling is asynchronous; the events arrive shortly after the
	// operations commit, in commit order.
	require.Eventually(t, func() bool {
		return n.store.EventCount() == 2
	}, 2*time.Second, 10*time.Millisecond)

	entries, err := n.store.Events(0, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "transfer", entries[0].Type)
	require.Equal(t, "transfer", entries[1].Type)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, n.Stop(ctx))
}

func TestNodeStopFlushesJournal(t *testing.T) {
	cfg := testNodeConfig(t)

	n, err := New(cfg, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, n.Start())

	_, err = n.Engine().MintTo(testOwner, testUser, amount.Scale)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, n.Stop(ctx))

	// Stop drains the queue before closing storage, so a reopened
	// journal sees the event even without waiting.
	db, err := storage.NewBadgerStorage(cfg.DataDir)
	require.NoError(t, err)
	defer db.Close()
	store, err := storage.NewLedgerStore(db)
	require.NoError(t, err)
	require.EqualValues(t, 1, store.EventCount())
}

func TestNodeDoubleStart(t *testing.T) {
	cfg := testNodeConfig(t)

	n, err := New(cfg, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, n.Start())
	require.Error(t, n.Start())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, n.Stop(ctx))
	require.NoError(t, n.Stop(ctx))
}

func TestNodeConfiguredAssets(t *testing.T) {
	cfg := testNodeConfig(t)
	cfg.Engine.Assets = []string{"usdc"}

	n, err := New(cfg, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, n.Start())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	defer n.Stop(ctx)

	require.Equal(t, []string{"usdc"}, n.Custody().Assets())

	// Configured assets are stakeable once deposited into custody.
	require.NoError(t, n.Custody().Deposit("usdc", testUser, 6*amount.Scale))
	_, err = n.Engine().Stake(ledger.ExternalAsset("usdc"), testUser, 6*amount.Scale)
	require.NoError(t, err)

	pool, err := n.Custody().PoolBalance("usdc")
	require.NoError(t, err)
	require.Equal(t, amount.Amount(6*amount.Scale), pool)
}

func TestNodeRejectsForeignDataDir(t *testing.T) {
	cfg := testNodeConfig(t)

	n, err := New(cfg, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, n.Start())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, n.Stop(ctx))

	// Same data directory under a different owner must be refused.
	cfg.Engine.Owner = testUser
	_, err = New(cfg, zerolog.Nop())
	require.Error(t, err)
}
