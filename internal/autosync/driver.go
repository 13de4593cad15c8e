// Package autosync drives periodic and reconnect-triggered synchronization,
// tying the façade, the offline queue, and the connectivity monitor
// together the way System Overview §2 describes: the connectivity monitor
// flips the driver between online and offline modes and triggers a queue
// drain on reconnect. Grounded on internal/connectivity.Monitor's own
// ticker-and-stop-channel loop, generalized from a read-only probe into an
// actor that also does work on each tick.
package autosync

import (
	"context"
	"sync"
	"time"

	"tasksync/internal/syncengine"
	"tasksync/internal/telemetry"
)

// Syncer is the subset of *facade.Facade the driver needs. A narrow
// interface, not facade.Facade itself, so this package stays decoupled
// from the façade's full CRUD surface and is easy to fake in tests.
type Syncer interface {
	DrainQueue(ctx context.Context) (drained, failed int, err error)
	SyncAll(ctx context.Context) (*syncengine.SyncResult, error)
}

// Driver runs a periodic full sync pass on interval and, independently,
// an immediate drain-then-sync pass whenever HandleTransition reports the
// remote side coming back online. Disabled entirely when enabled is false,
// matching config.Persistence.AutoSync=false.
type Driver struct {
	sync     Syncer
	interval time.Duration
	enabled  bool

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
}

// New builds a Driver. interval <= 0 disables the periodic tick (the
// driver still responds to HandleTransition) since some deployments only
// want reconnect-triggered drains.
func New(s Syncer, interval time.Duration, enabled bool) *Driver {
	return &Driver{sync: s, interval: interval, enabled: enabled, stop: make(chan struct{})}
}

// Start launches the periodic sync loop in the background. A no-op when
// autosync is disabled.
func (d *Driver) Start() {
	if !d.enabled {
		return
	}
	d.mu.Lock()
	if d.running || d.interval <= 0 {
		d.mu.Unlock()
		return
	}
	d.running = true
	d.mu.Unlock()

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ticker := time.NewTicker(d.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				d.runPass(context.Background(), "periodic")
			case <-d.stop:
				return
			}
		}
	}()
}

// Stop halts the periodic loop. Safe to call once; later calls are a
// no-op. Safe to call even if Start was never called.
func (d *Driver) Stop() {
	d.once.Do(func() { close(d.stop) })
	d.wg.Wait()
}

// HandleTransition is the connectivity monitor's onTransition callback.
// On the offline-to-online edge it immediately drains the offline queue
// and runs a full sync pass, rather than waiting out the rest of the
// current tick interval.
func (d *Driver) HandleTransition(online bool) {
	if !d.enabled || !online {
		return
	}
	go d.runPass(context.Background(), "reconnect")
}

func (d *Driver) runPass(ctx context.Context, trigger string) {
	drained, failed, err := d.sync.DrainQueue(ctx)
	if err != nil {
		telemetry.Get().Warn("autosync(%s): drain queue failed: %v", trigger, err)
	} else if drained > 0 || failed > 0 {
		telemetry.Get().Debug("autosync(%s): drained %d, %d still failing", trigger, drained, failed)
	}

	if _, err := d.sync.SyncAll(ctx); err != nil {
		telemetry.Get().Warn("autosync(%s): sync pass failed: %v", trigger, err)
	}
}
