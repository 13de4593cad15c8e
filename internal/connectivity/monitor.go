// Package connectivity implements a periodic liveness probe that emits
// online/offline edge events, grounded on
// internal/sync/coordinator.go's isOnline (timeout-bounded goroutine probe)
// generalized into a standing monitor.
package connectivity

import (
	"context"
	"sync"
	"time"

	"tasksync/internal/telemetry"
)

const (
	defaultInterval = 30 * time.Second
	probeTimeout    = 3 * time.Second
)

// Status is a snapshot of the monitor's current view of connectivity.
type Status struct {
	IsOnline             bool
	LastSuccessfulAt     time.Time
	TimeSinceLastSuccess time.Duration
}

// LivenessCheck is the caller-supplied probe, typically the transport's
// Ping against a cheap endpoint.
type LivenessCheck func(ctx context.Context) error

// Monitor polls a LivenessCheck on an interval and emits only transitions
// between online and offline, coalescing consecutive same-polarity
// results.
type Monitor struct {
	check    LivenessCheck
	interval time.Duration

	mu               sync.RWMutex
	online           bool
	lastSuccessfulAt time.Time
	manual           bool
	manualOnline     bool

	onTransition func(online bool)

	stop chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

// New builds a Monitor. onTransition, if non-nil, is invoked with the new
// polarity whenever the observed state flips.
func New(check LivenessCheck, interval time.Duration, onTransition func(online bool)) *Monitor {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Monitor{
		check:        check,
		interval:     interval,
		onTransition: onTransition,
		stop:         make(chan struct{}),
	}
}

// Start runs the probe loop in a background goroutine until Stop is called.
func (m *Monitor) Start() {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.probeOnce()

		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.probeOnce()
			case <-m.stop:
				return
			}
		}
	}()
}

// Stop halts the probe loop. Safe to call once; a second call is a no-op.
func (m *Monitor) Stop() {
	m.once.Do(func() { close(m.stop) })
	m.wg.Wait()
}

func (m *Monitor) probeOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()

	done := make(chan bool, 1)
	go func() {
		done <- m.check(ctx) == nil
	}()

	var online bool
	select {
	case online = <-done:
	case <-time.After(probeTimeout):
		online = false
	}

	m.recordResult(online)
}

func (m *Monitor) recordResult(online bool) {
	m.mu.Lock()
	if m.manual {
		m.mu.Unlock()
		return
	}
	changed := online != m.online
	m.online = online
	if online {
		m.lastSuccessfulAt = time.Now().UTC()
	}
	m.mu.Unlock()

	if changed && m.onTransition != nil {
		m.onTransition(online)
	}
}

// SetOnline overrides the monitor's view for tests and for the sync
// engine to force-offline after an unrecoverable transport failure. Pass
// a nil-equivalent by calling ClearOverride to resume probing.
func (m *Monitor) SetOnline(online bool) {
	m.mu.Lock()
	changed := !m.manual || online != m.online
	m.manual = true
	m.manualOnline = online
	m.online = online
	if online {
		m.lastSuccessfulAt = time.Now().UTC()
	}
	m.mu.Unlock()

	if changed && m.onTransition != nil {
		m.onTransition(online)
	}
}

// ClearOverride resumes probe-driven status after a prior SetOnline call.
func (m *Monitor) ClearOverride() {
	m.mu.Lock()
	m.manual = false
	m.mu.Unlock()
}

// Status returns a snapshot of the monitor's current view.
func (m *Monitor) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var since time.Duration
	if !m.lastSuccessfulAt.IsZero() {
		since = time.Since(m.lastSuccessfulAt)
	}
	return Status{
		IsOnline:             m.online,
		LastSuccessfulAt:     m.lastSuccessfulAt,
		TimeSinceLastSuccess: since,
	}
}

// ErrOffline is returned by callers that require connectivity and observe
// the monitor reporting offline.
var ErrOffline = telemetry.New(telemetry.KindTransport, "connectivity", "remote store is offline")
