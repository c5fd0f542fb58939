// Package node assembles a running Burst deployment: the storage layer,
// the ledger engine, and the HTTP API, with snapshot persistence across
// restarts.
package node

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/BurstFinance/burst/api"
	"github.com/BurstFinance/burst/config"
	"github.com/BurstFinance/burst/core/ledger"
	"github.com/BurstFinance/burst/custody"
	"github.com/BurstFinance/burst/storage"
)

// snapshotInterval is how often the engine state is persisted while the
// node runs. A final snapshot is always taken on shutdown.
const snapshotInterval = 30 * time.Second

// Node owns the storage, engine, and API server of one deployment.
type Node struct {
	cfg     *config.Config
	log     zerolog.Logger
	db      *storage.BadgerStorage
	store   *storage.LedgerStore
	custody *custody.Ledger
	engine  *ledger.Engine
	server  *api.Server

	// Events are queued by the engine's sink and journaled by a
	// separate goroutine, keeping storage I/O out of the engine's
	// critical section.
	evMu     sync.Mutex
	evQueue  []ledger.Event
	evSignal chan struct{}

	mu        sync.Mutex
	isRunning bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// New opens the data directory, restores the last persisted snapshot if
// one exists, and wires the engine to the event journal and API.
func New(cfg *config.Config, log zerolog.Logger, opts ...ledger.Option) (*Node, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	db, err := storage.NewBadgerStorage(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	store, err := storage.NewLedgerStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	n := &Node{
		cfg:      cfg,
		log:      log.With().Str("component", "node").Logger(),
		db:       db,
		store:    store,
		evSignal: make(chan struct{}, 1),
	}

	bank, err := custody.New(cfg.Engine.Assets...)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to build custody ledger: %w", err)
	}
	n.custody = bank

	opts = append(opts, ledger.WithEventSink(n.handleEvent), ledger.WithCustodyBank(bank))
	engine, err := ledger.New(&cfg.Engine, opts...)
	if err != nil {
		db.Close()
		return nil, err
	}
	n.engine = engine

	snap, err := store.LoadSnapshot()
	switch err {
	case nil:
		if err := engine.Restore(snap); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to restore snapshot: %w", err)
		}
		n.log.Info().
			Str("state_root", snap.StateRoot).
			Int64("saved_at", snap.Timestamp).
			Msg("restored ledger state")
	case storage.ErrKeyNotFound:
		n.log.Info().Str("owner", cfg.Engine.Owner).Msg("starting with fresh ledger state")
	default:
		db.Close()
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}

	n.server = api.NewServer(engine, store, bank, cfg.API, log)
	return n, nil
}

// Engine returns the node's ledger engine.
func (n *Node) Engine() *ledger.Engine { return n.engine }

// Custody returns the node's external-asset custody ledger.
func (n *Node) Custody() *custody.Ledger { return n.custody }

// handleEvent runs inside the engine's critical section, so it only
// queues the event. The journal loop persists it afterwards, in the
// order the engine committed.
func (n *Node) handleEvent(ev ledger.Event) {
	n.evMu.Lock()
	n.evQueue = append(n.evQueue, ev)
	n.evMu.Unlock()

	select {
	case n.evSignal <- struct{}{}:
	default:
	}
}

func (n *Node) journalLoop(ctx context.Context) {
	defer n.wg.Done()

	for {
		select {
		case <-ctx.Done():
			n.drainEvents()
			return
		case <-n.evSignal:
			n.drainEvents()
		}
	}
}

func (n *Node) drainEvents() {
	n.evMu.Lock()
	queue := n.evQueue
	n.evQueue = nil
	n.evMu.Unlock()

	for _, ev := range queue {
		if err := n.store.AppendEvent(ev); err != nil {
			n.log.Error().Err(err).Str("type", ev.Type()).Msg("failed to journal event")
			continue
		}
		n.log.Debug().Str("type", ev.Type()).Interface("event", ev).Msg("event")
	}
}

// Start runs the API server and the snapshot loop. It returns once both
// are started.
func (n *Node) Start() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.isRunning {
		return fmt.Errorf("node is already running")
	}

	ctx, cancel := context.WithCancel(context.Background())
	n.cancel = cancel

	go func() {
		if err := n.server.Start(); err != nil {
			n.log.Error().Err(err).Msg("API server exited")
		}
	}()

	n.wg.Add(2)
	go n.journalLoop(ctx)
	go n.snapshotLoop(ctx)

	n.isRunning = true
	n.log.Info().
		Str("addr", n.cfg.API.Addr).
		Str("owner", n.engine.Owner()).
		Msg("node started")
	return nil
}

func (n *Node) snapshotLoop(ctx context.Context) {
	defer n.wg.Done()

	ticker := time.NewTicker(snapshotInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := n.store.SaveSnapshot(n.engine.Snapshot()); err != nil {
				n.log.Error().Err(err).Msg("periodic snapshot failed")
			}
		}
	}
}

// Stop shuts the node down: the API server drains, a final snapshot is
// persisted, and the storage is closed.
func (n *Node) Stop(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.isRunning {
		return nil
	}
	n.isRunning = false

	// Drain in-flight API requests before stopping the loops, so every
	// committed event reaches the journal's final drain.
	if err := n.server.Shutdown(ctx); err != nil {
		n.log.Error().Err(err).Msg("API shutdown failed")
	}

	n.cancel()
	n.wg.Wait()

	snap := n.engine.Snapshot()
	if err := n.store.SaveSnapshot(snap); err != nil {
		n.db.Close()
		return fmt.Errorf("final snapshot failed: %w", err)
	}
	n.log.Info().Str("state_root", snap.StateRoot).Msg("final snapshot persisted")

	return n.db.Close()
}
