// Package reachability observes connectivity transitions and raises an
// edge-triggered "became reachable" event. Consumers see the current
// online state plus a discrete signal fired exactly once per
// offline-to-online transition; redundant online updates are absorbed.
package reachability

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ruteroapp/fieldsync/internal/logging"
)

// Probe checks whether the remote side is currently reachable.
type Probe interface {
	Check(ctx context.Context) bool
}

// Monitor tracks the online state. It can poll a Probe on an interval,
// accept pushed updates from a platform connectivity callback, or both.
// The monitor starts offline; the first successful check raises an edge.
type Monitor struct {
	probe    Probe
	interval time.Duration

	mu      sync.RWMutex
	online  bool
	running bool

	events chan struct{}
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewMonitor creates a Monitor. A nil probe disables polling; the
// monitor then relies solely on SetOnline pushes.
func NewMonitor(probe Probe, interval time.Duration) *Monitor {
	return &Monitor{
		probe:    probe,
		interval: interval,
		events:   make(chan struct{}, 1),
		stopCh:   make(chan struct{}),
	}
}

// Start begins polling the probe, if one is configured. Safe to call
// once; the monitor is push-only until then.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	if m.running || m.probe == nil {
		m.mu.Unlock()
		return
	}
	m.running = true
	m.mu.Unlock()

	m.wg.Add(1)
	go m.pollLoop(ctx)
}

// Stop halts polling and waits for the poll goroutine to exit.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	m.mu.Unlock()

	close(m.stopCh)
	m.wg.Wait()
}

// IsOnline returns the current connectivity state.
func (m *Monitor) IsOnline() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.online
}

// Events returns the edge-triggered reachability signal. The channel
// has a one-slot buffer and publishes without blocking, so a slow
// consumer coalesces edges rather than backing up the monitor.
func (m *Monitor) Events() <-chan struct{} {
	return m.events
}

// SetOnline records a connectivity update pushed from outside (for
// example a platform reachability callback). Only the offline-to-online
// transition raises an event.
func (m *Monitor) SetOnline(online bool) {
	m.mu.Lock()
	was := m.online
	m.online = online
	m.mu.Unlock()

	if was == online {
		return
	}

	logging.Log.Info("connectivity changed", zap.Bool("online", online))

	if online {
		select {
		case m.events <- struct{}{}:
		default:
		}
	}
}

func (m *Monitor) pollLoop(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	// Establish the initial state immediately instead of waiting a
	// full interval.
	m.SetOnline(m.probe.Check(ctx))

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.SetOnline(m.probe.Check(ctx))
		}
	}
}
