// Package coordinator implements the singleton authoritative state
// machine: world state, the pending transaction queue, block history, the
// round lock, and the watchdog timer. Every mutation passes through
// transact, the single-writer primitive guarding the whole record at
// once — never per-field locks, since the invariants span balances,
// sequences, the queue, and history together.
package coordinator

import (
	"log"
	"sync"
	"time"

	"github.com/tolelom/quorumchain/backup"
	"github.com/tolelom/quorumchain/core"
	"github.com/tolelom/quorumchain/events"
	"github.com/tolelom/quorumchain/indexer"
	"github.com/tolelom/quorumchain/storage"
	"github.com/tolelom/quorumchain/watchdog"
)

// Coordinator owns {worldState, queue, history, config} exclusively.
// Proposer and Validator never reach in here directly — they talk to it
// only through the internalapi.Client interface.
type Coordinator struct {
	mu sync.Mutex

	state   *core.WorldState
	queue   *core.PendingQueue
	history *core.BlockHistory
	config  *core.ConsensusConfig

	stateStore *storage.StateStore
	emitter    *events.Emitter
	wd         *watchdog.Watchdog
	backupSvc  *backup.Service
	idx        *indexer.Indexer // nil falls back to a linear history scan

	backupIntervalMs int64
	lastBackupMs     int64
}

// Options configures a new Coordinator.
type Options struct {
	History          *core.BlockHistory
	StateStore       *storage.StateStore
	Emitter          *events.Emitter
	BackupService    *backup.Service   // nil disables backups
	Indexer          *indexer.Indexer  // nil falls back to a linear history scan
	BackupIntervalMs int64
}

// New constructs a Coordinator with an empty queue, loading WorldState
// from the state store if one is configured. The watchdog is created but
// not armed until the first packBlock.
func New(opts Options) (*Coordinator, error) {
	state := core.NewWorldState()
	if opts.StateStore != nil {
		loaded, err := opts.StateStore.Load()
		if err != nil {
			return nil, err
		}
		state = loaded
	}
	emitter := opts.Emitter
	if emitter == nil {
		emitter = events.NewEmitter()
	}
	c := &Coordinator{
		state:            state,
		queue:            core.NewPendingQueue(),
		history:          opts.History,
		config:           &core.ConsensusConfig{},
		stateStore:       opts.StateStore,
		emitter:          emitter,
		backupSvc:        opts.BackupService,
		idx:              opts.Indexer,
		backupIntervalMs: opts.BackupIntervalMs,
	}
	c.wd = watchdog.New(c.onWatchdogFire)
	return c, nil
}

// transact runs fn with the whole record locked. fn must not block on
// network I/O — dispatch anything that does as a detached goroutine
// after transact returns.
func (c *Coordinator) transact(fn func() error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return fn()
}

func nowMs() int64 { return time.Now().UnixMilli() }

func (c *Coordinator) persistState() {
	if c.stateStore == nil {
		return
	}
	if err := c.stateStore.Persist(c.state); err != nil {
		log.Printf("[coordinator] persist state: %v", err)
	}
}

func (c *Coordinator) emit(ev events.Event) {
	if c.emitter != nil {
		c.emitter.Emit(ev)
	}
}

// SetConfig installs the consensus configuration, normally called once at
// startup (genesis) and never mutated afterward (no dynamic validator
// set).
func (c *Coordinator) SetConfig(cfg *core.ConsensusConfig) error {
	return c.transact(func() error {
		c.config = cfg
		return nil
	})
}

// Config returns a copy of the current consensus configuration.
func (c *Coordinator) Config() core.ConsensusConfig {
	c.mu.Lock()
	defer c.mu.Unlock()
	return *c.config
}
