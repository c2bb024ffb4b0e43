// Package syncer orchestrates replay of the pending-operation queues
// against the remote service. A single worker goroutine receives
// discrete drive events (reachability edge, enqueue while online,
// manual trigger) and runs at most one sync pass at a time; triggers
// raised while a pass is in flight are dropped, not queued.
package syncer

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ruteroapp/fieldsync/internal/logging"
	"github.com/ruteroapp/fieldsync/internal/models"
	"github.com/ruteroapp/fieldsync/internal/queue"
	"github.com/ruteroapp/fieldsync/internal/reachability"
	"github.com/ruteroapp/fieldsync/internal/store"
)

// State is a read-only snapshot of the observable sync surface.
type State struct {
	IsOnline             bool       `json:"is_online"`
	IsSyncing            bool       `json:"is_syncing"`
	PendingSalePoints    int        `json:"pending_sale_points"`
	PendingTrackSegments int        `json:"pending_track_segments"`
	LastSyncAt           *time.Time `json:"last_sync_at,omitempty"`
}

// Syncer owns all queue mutation. Consumers enqueue through it and
// observe progress through State and Subscribe.
type Syncer struct {
	store      store.Store
	remote     RemoteOperations
	salePoints *queue.SalePointQueue
	segments   *queue.SegmentQueue
	monitor    *reachability.Monitor

	trigger chan struct{}
	stopCh  chan struct{}
	wg      sync.WaitGroup

	mu        sync.RWMutex
	running   bool
	isSyncing bool
	lastSync  *time.Time
	spCount   int
	segCount  int
	subs      []func(State)
}

// New creates a Syncer. Counters and the last-sync timestamp are
// recomputed from the persisted state, so a restarted process resumes
// with accurate numbers before any pass runs.
func New(s store.Store, remote RemoteOperations, sp *queue.SalePointQueue, seg *queue.SegmentQueue, monitor *reachability.Monitor) *Syncer {
	sy := &Syncer{
		store:      s,
		remote:     remote,
		salePoints: sp,
		segments:   seg,
		monitor:    monitor,
		trigger:    make(chan struct{}, 1),
		stopCh:     make(chan struct{}),
	}

	sy.lastSync = loadLastSync(s)
	sy.spCount = sp.Len()
	sy.segCount = seg.Len()

	return sy
}

// Start launches the worker goroutine.
func (s *Syncer) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	s.wg.Add(1)
	go s.run(ctx)

	logging.Log.Info("sync scheduler started",
		zap.Int("pending_sale_points", s.spCount),
		zap.Int("pending_track_segments", s.segCount))
}

// Stop halts the worker and waits for it to exit. An in-flight remote
// call finishes; partial progress already persisted remains valid
// because each queue write is atomic and self-consistent.
func (s *Syncer) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	close(s.stopCh)
	s.wg.Wait()

	logging.Log.Info("sync scheduler stopped")
}

// SyncNow requests a sync pass. A no-op while a pass is already in
// flight.
func (s *Syncer) SyncNow() {
	s.mu.RLock()
	busy := s.isSyncing
	s.mu.RUnlock()

	if busy {
		logging.Log.Debug("sync already in progress, trigger dropped")
		return
	}

	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// EnqueueSalePoint durably queues a sale point creation and, when
// online, requests a pass. It never blocks on network I/O.
func (s *Syncer) EnqueueSalePoint(trackID int64, name string, lat, lng float64) (string, error) {
	id, err := s.salePoints.Enqueue(trackID, name, lat, lng)
	if err != nil {
		return "", err
	}

	s.refreshCounters()
	s.notify()

	if s.monitor.IsOnline() {
		s.SyncNow()
	}
	return id, nil
}

// EnqueueTrackSegment durably queues a segment append and, when online,
// requests a pass. It never blocks on network I/O.
func (s *Syncer) EnqueueTrackSegment(trackID int64, segment models.TrackSegment) (string, error) {
	id, err := s.segments.Enqueue(trackID, segment)
	if err != nil {
		return "", err
	}

	s.refreshCounters()
	s.notify()

	if s.monitor.IsOnline() {
		s.SyncNow()
	}
	return id, nil
}

// State returns a snapshot of the observable surface.
func (s *Syncer) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return State{
		IsOnline:             s.monitor.IsOnline(),
		IsSyncing:            s.isSyncing,
		PendingSalePoints:    s.spCount,
		PendingTrackSegments: s.segCount,
		LastSyncAt:           s.lastSync,
	}
}

// Subscribe registers a callback invoked after every observable state
// change. Callbacks run synchronously on the mutating goroutine and
// must not block.
func (s *Syncer) Subscribe(fn func(State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

func (s *Syncer) run(ctx context.Context) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-s.monitor.Events():
			s.runPass(ctx)
		case <-s.trigger:
			s.runPass(ctx)
		}
	}
}

// runPass drains both queues sequentially. Individual item failures are
// recorded and the pass moves on; nothing aborts the pass except
// cancellation.
func (s *Syncer) runPass(ctx context.Context) {
	s.setSyncing(true)
	defer s.setSyncing(false)

	logging.Log.Debug("sync pass starting")

	s.drainSalePoints(ctx)
	s.drainSegments(ctx)

	now := time.Now().UTC()
	if err := s.store.Set(store.KeyLastSyncAt, []byte(now.Format(time.RFC3339Nano))); err != nil {
		logging.Log.Warn("failed to persist last sync time", zap.Error(err))
	}

	s.mu.Lock()
	s.lastSync = &now
	s.mu.Unlock()

	s.refreshCounters()

	logging.Log.Info("sync pass finished",
		zap.Int("pending_sale_points", s.State().PendingSalePoints),
		zap.Int("pending_track_segments", s.State().PendingTrackSegments))
}

func (s *Syncer) drainSalePoints(ctx context.Context) {
	ops := s.salePoints.LoadAll()
	if len(ops) == 0 {
		return
	}

	kept := make([]models.PendingSalePointOp, 0, len(ops))

	for i := range ops {
		op := ops[i]

		if !op.NeedsSync() {
			kept = append(kept, op)
			continue
		}

		select {
		case <-ctx.Done():
			kept = append(kept, ops[i:]...)
			s.persistSalePoints(kept)
			return
		default:
		}

		if _, err := s.remote.CreateSalePoint(ctx, op.TrackID, op.Name, op.Latitude, op.Longitude); err != nil {
			op.SyncStatus = models.SyncStatusFailed
			kept = append(kept, op)
			logging.Log.Warn("sale point sync failed",
				zap.String("id", op.ID),
				zap.Error(err))
			continue
		}

		// Synced entries are removed, not retained.
		logging.Log.Debug("sale point synced", zap.String("id", op.ID))
	}

	s.persistSalePoints(kept)
}

func (s *Syncer) drainSegments(ctx context.Context) {
	ops := s.segments.LoadAll()
	if len(ops) == 0 {
		return
	}

	kept := make([]models.PendingTrackSegmentOp, 0, len(ops))

	for i := range ops {
		op := ops[i]

		if !op.NeedsSync() {
			kept = append(kept, op)
			continue
		}

		select {
		case <-ctx.Done():
			kept = append(kept, ops[i:]...)
			s.persistSegments(kept)
			return
		default:
		}

		if _, err := s.remote.AppendTrackSegment(ctx, op.TrackID, op.Segment); err != nil {
			op.SyncStatus = models.SyncStatusFailed
			kept = append(kept, op)
			logging.Log.Warn("track segment sync failed",
				zap.String("id", op.ID),
				zap.String("segment_id", op.Segment.ID),
				zap.Error(err))
			continue
		}

		logging.Log.Debug("track segment synced", zap.String("id", op.ID))
	}

	s.persistSegments(kept)
}

func (s *Syncer) persistSalePoints(ops []models.PendingSalePointOp) {
	if err := s.salePoints.Replace(ops); err != nil {
		logging.Log.Error("failed to persist sale point queue", zap.Error(err))
	}
}

func (s *Syncer) persistSegments(ops []models.PendingTrackSegmentOp) {
	if err := s.segments.Replace(ops); err != nil {
		logging.Log.Error("failed to persist segment queue", zap.Error(err))
	}
}

func (s *Syncer) setSyncing(v bool) {
	s.mu.Lock()
	s.isSyncing = v
	s.mu.Unlock()
	s.notify()
}

func (s *Syncer) refreshCounters() {
	sp := s.salePoints.Len()
	seg := s.segments.Len()

	s.mu.Lock()
	s.spCount = sp
	s.segCount = seg
	s.mu.Unlock()

	s.notify()
}

func (s *Syncer) notify() {
	state := s.State()

	s.mu.RLock()
	subs := make([]func(State), len(s.subs))
	copy(subs, s.subs)
	s.mu.RUnlock()

	for _, fn := range subs {
		fn(state)
	}
}

func loadLastSync(s store.Store) *time.Time {
	data, err := s.Get(store.KeyLastSyncAt)
	if err != nil {
		return nil
	}

	t, err := time.Parse(time.RFC3339Nano, string(data))
	if err != nil {
		logging.Log.Warn("corrupt last sync timestamp, ignoring", zap.Error(err))
		return nil
	}
	return &t
}
