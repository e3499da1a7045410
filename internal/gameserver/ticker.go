package gameserver

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/gridlands/gridlands/internal/game/world"
	"github.com/gridlands/gridlands/internal/protocol"
)

// Ticker is the authoritative broadcast clock. On every fire it advances the
// tick counter by exactly one, snapshots the store, and fans the snapshot
// out to all sessions. It is the only source of STATE_UPDATE frames and is
// never reset by inbound traffic, so state staleness is bounded by one
// interval regardless of message load.
type Ticker struct {
	interval time.Duration
	store    *world.Store
	caster   *Broadcaster
	logger   *zap.Logger

	done chan struct{}
	once sync.Once
}

// NewTicker creates a stopped Ticker.
//
// Precondition: interval must be > 0; store, caster, and logger non-nil.
func NewTicker(interval time.Duration, store *world.Store, caster *Broadcaster, logger *zap.Logger) *Ticker {
	if interval <= 0 {
		panic("gameserver.NewTicker: interval must be > 0")
	}
	return &Ticker{
		interval: interval,
		store:    store,
		caster:   caster,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Start runs the tick loop until Stop is called. Blocks; intended to run as
// a lifecycle service.
//
// Postcondition: The tick counter advances by exactly one per interval while
// running.
func (t *Ticker) Start() error {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-t.done:
			return nil
		case <-ticker.C:
			t.fire()
		}
	}
}

// Stop halts the tick loop. Safe to call more than once.
func (t *Ticker) Stop() {
	t.once.Do(func() { close(t.done) })
}

// fire advances the world one tick and broadcasts the resulting snapshot.
func (t *Ticker) fire() {
	tick := t.store.AdvanceTick()
	snap := t.store.Snapshot()

	frame, err := protocol.EncodeStateUpdate(snap)
	if err != nil {
		t.logger.Error("encoding state update",
			zap.Int64("tick", tick),
			zap.Error(err),
		)
		return
	}
	t.caster.Broadcast(frame)
}
