// Package syncer provides unit tests for the sync scheduler.
package syncer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ruteroapp/fieldsync/internal/models"
	"github.com/ruteroapp/fieldsync/internal/queue"
	"github.com/ruteroapp/fieldsync/internal/reachability"
	"github.com/ruteroapp/fieldsync/internal/store"
)

var errRemoteDown = errors.New("remote unavailable")

// fakeRemote is an in-memory RemoteOperations with controllable
// failures and call accounting.
type fakeRemote struct {
	mu             sync.Mutex
	failSalePoints bool
	failSegments   bool
	failNames      map[string]bool
	delay          time.Duration

	salePointCalls int
	segmentCalls   int
	active         int
	maxActive      int
}

func (r *fakeRemote) enter() {
	r.mu.Lock()
	r.active++
	if r.active > r.maxActive {
		r.maxActive = r.active
	}
	r.mu.Unlock()

	if r.delay > 0 {
		time.Sleep(r.delay)
	}
}

func (r *fakeRemote) leave() {
	r.mu.Lock()
	r.active--
	r.mu.Unlock()
}

func (r *fakeRemote) CreateSalePoint(ctx context.Context, trackID int64, name string, lat, lng float64) (*models.SalePoint, error) {
	r.enter()
	defer r.leave()

	r.mu.Lock()
	r.salePointCalls++
	fail := r.failSalePoints || r.failNames[name]
	r.mu.Unlock()

	if fail {
		return nil, errRemoteDown
	}
	return &models.SalePoint{ID: 1, TrackID: trackID, Name: name, Latitude: lat, Longitude: lng}, nil
}

func (r *fakeRemote) AppendTrackSegment(ctx context.Context, trackID int64, segment models.TrackSegment) (*models.Track, error) {
	r.enter()
	defer r.leave()

	r.mu.Lock()
	r.segmentCalls++
	fail := r.failSegments
	r.mu.Unlock()

	if fail {
		return nil, errRemoteDown
	}
	return &models.Track{ID: trackID}, nil
}

type testHarness struct {
	kv         *store.MemoryStore
	remote     *fakeRemote
	salePoints *queue.SalePointQueue
	segments   *queue.SegmentQueue
	monitor    *reachability.Monitor
	syncer     *Syncer
}

func newHarness(remote *fakeRemote) *testHarness {
	kv := store.NewMemoryStore()
	sp := queue.NewSalePointQueue(kv)
	seg := queue.NewSegmentQueue(kv)
	monitor := reachability.NewMonitor(nil, time.Second)

	return &testHarness{
		kv:         kv,
		remote:     remote,
		salePoints: sp,
		segments:   seg,
		monitor:    monitor,
		syncer:     New(kv, remote, sp, seg, monitor),
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for %s", what)
}

func sampleSegment(id string, coords int) models.TrackSegment {
	start := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	seg := models.TrackSegment{
		ID:        id,
		StartTime: start,
		EndTime:   start.Add(10 * time.Minute),
		Distance:  980.2,
	}
	for i := 0; i < coords; i++ {
		seg.Coordinates = append(seg.Coordinates, models.Coordinate{
			Latitude:  -34.6,
			Longitude: -58.4,
			Timestamp: start.Add(time.Duration(i) * time.Second),
		})
	}
	return seg
}

// TestOfflineEnqueueThenEdgeDrainsQueues tests liveness: items queued
// offline are fully drained once the reachability edge fires and the
// remote succeeds.
func TestOfflineEnqueueThenEdgeDrainsQueues(t *testing.T) {
	h := newHarness(&fakeRemote{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.syncer.Start(ctx)
	defer h.syncer.Stop()

	// Offline: enqueue must not reach the network.
	for i := 0; i < 3; i++ {
		if _, err := h.syncer.EnqueueSalePoint(7, "point", -34.6, -58.4); err != nil {
			t.Fatalf("EnqueueSalePoint failed: %v", err)
		}
	}
	if _, err := h.syncer.EnqueueTrackSegment(7, sampleSegment("seg-1", 5)); err != nil {
		t.Fatalf("EnqueueTrackSegment failed: %v", err)
	}

	state := h.syncer.State()
	if state.PendingSalePoints != 3 || state.PendingTrackSegments != 1 {
		t.Fatalf("Unexpected pending counts before edge: %+v", state)
	}
	if h.remote.salePointCalls != 0 {
		t.Fatalf("Expected no remote calls while offline, got %d", h.remote.salePointCalls)
	}

	h.monitor.SetOnline(true)

	waitFor(t, "queues to drain", func() bool {
		s := h.syncer.State()
		return s.PendingSalePoints == 0 && s.PendingTrackSegments == 0 && !s.IsSyncing
	})

	if len(h.salePoints.LoadAll()) != 0 || len(h.segments.LoadAll()) != 0 {
		t.Error("Expected persisted queues to be empty after drain")
	}
	if h.syncer.State().LastSyncAt == nil {
		t.Error("Expected LastSyncAt to be set after a pass")
	}
}

// TestFailingItemRemainsFailedWithStableLength tests that an item whose
// remote call always fails stays in the queue as failed, is retried on
// every pass, and is never duplicated or dropped.
func TestFailingItemRemainsFailedWithStableLength(t *testing.T) {
	remote := &fakeRemote{failSalePoints: true}
	h := newHarness(remote)

	if _, err := h.syncer.EnqueueSalePoint(7, "rejected", -34.6, -58.4); err != nil {
		t.Fatalf("EnqueueSalePoint failed: %v", err)
	}

	for pass := 1; pass <= 3; pass++ {
		h.syncer.runPass(context.Background())

		ops := h.salePoints.LoadAll()
		if len(ops) != 1 {
			t.Fatalf("Pass %d: expected queue length 1, got %d", pass, len(ops))
		}
		if ops[0].SyncStatus != models.SyncStatusFailed {
			t.Errorf("Pass %d: expected failed status, got %s", pass, ops[0].SyncStatus)
		}
	}

	// Unbounded retry: one attempt per pass.
	if remote.salePointCalls != 3 {
		t.Errorf("Expected 3 attempts over 3 passes, got %d", remote.salePointCalls)
	}
}

// TestSingleItemFailureDoesNotAbortPass tests that a failing entry is
// skipped over and the rest of the pass proceeds.
func TestSingleItemFailureDoesNotAbortPass(t *testing.T) {
	remote := &fakeRemote{failNames: map[string]bool{"bad": true}}
	h := newHarness(remote)

	h.syncer.EnqueueSalePoint(7, "bad", 0, 0)
	h.syncer.EnqueueSalePoint(7, "good", 0, 0)
	h.syncer.EnqueueTrackSegment(7, sampleSegment("seg-1", 2))

	h.syncer.runPass(context.Background())

	ops := h.salePoints.LoadAll()
	if len(ops) != 1 {
		t.Fatalf("Expected only the failing op to remain, got %d", len(ops))
	}
	if ops[0].Name != "bad" || ops[0].SyncStatus != models.SyncStatusFailed {
		t.Errorf("Unexpected remaining op: %+v", ops[0])
	}

	// The segment queue is drained independently of sale point failures.
	if len(h.segments.LoadAll()) != 0 {
		t.Error("Expected segment queue to drain despite sale point failure")
	}
}

// TestConcurrentTriggersRunSinglePass tests the pass-exclusion flag:
// hammering SyncNow from many goroutines never overlaps remote calls
// and every item is processed exactly once.
func TestConcurrentTriggersRunSinglePass(t *testing.T) {
	remote := &fakeRemote{delay: 5 * time.Millisecond}
	h := newHarness(remote)

	for i := 0; i < 5; i++ {
		h.salePoints.Enqueue(7, "point", -34.6, -58.4)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.syncer.Start(ctx)
	defer h.syncer.Stop()

	h.monitor.SetOnline(true)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.syncer.SyncNow()
		}()
	}
	wg.Wait()

	waitFor(t, "queue to drain", func() bool {
		s := h.syncer.State()
		return s.PendingSalePoints == 0 && !s.IsSyncing
	})

	if remote.maxActive != 1 {
		t.Errorf("Expected at most 1 concurrent remote call, got %d", remote.maxActive)
	}
	if remote.salePointCalls != 5 {
		t.Errorf("Expected each item processed exactly once (5 calls), got %d", remote.salePointCalls)
	}
}

// TestEnqueueWhileOnlineTriggersPass tests drive condition 2: a new
// item enqueued while online starts a pass without any explicit
// trigger.
func TestEnqueueWhileOnlineTriggersPass(t *testing.T) {
	h := newHarness(&fakeRemote{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.syncer.Start(ctx)
	defer h.syncer.Stop()

	h.monitor.SetOnline(true)
	waitFor(t, "initial edge pass", func() bool { return !h.syncer.State().IsSyncing })

	if _, err := h.syncer.EnqueueSalePoint(7, "online point", -34.6, -58.4); err != nil {
		t.Fatalf("EnqueueSalePoint failed: %v", err)
	}

	waitFor(t, "opportunistic sync", func() bool {
		return h.syncer.State().PendingSalePoints == 0
	})
}

// TestSalePointSyncScenario walks the full happy path: enqueue Kiosco
// Sur offline, count 1, reachability edge, remote succeeds, count 0 and
// last sync date updated.
func TestSalePointSyncScenario(t *testing.T) {
	remote := &fakeRemote{}
	h := newHarness(remote)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.syncer.Start(ctx)
	defer h.syncer.Stop()

	if _, err := h.syncer.EnqueueSalePoint(7, "Kiosco Sur", -34.6, -58.4); err != nil {
		t.Fatalf("EnqueueSalePoint failed: %v", err)
	}
	if got := h.syncer.State().PendingSalePoints; got != 1 {
		t.Fatalf("Expected queue count 1, got %d", got)
	}
	if h.syncer.State().LastSyncAt != nil {
		t.Fatal("Expected no LastSyncAt before the first pass")
	}

	h.monitor.SetOnline(true)

	waitFor(t, "scenario drain", func() bool {
		s := h.syncer.State()
		return s.PendingSalePoints == 0 && s.LastSyncAt != nil
	})

	if remote.salePointCalls != 1 {
		t.Errorf("Expected exactly 1 remote call, got %d", remote.salePointCalls)
	}
}

// TestCountersRecomputedOnConstruction tests that a restarted syncer
// resumes with counters and last-sync loaded from persisted state.
func TestCountersRecomputedOnConstruction(t *testing.T) {
	h := newHarness(&fakeRemote{})

	h.salePoints.Enqueue(7, "a", 0, 0)
	h.salePoints.Enqueue(7, "b", 0, 0)
	h.segments.Enqueue(7, sampleSegment("seg-1", 2))

	last := time.Date(2026, 3, 13, 18, 0, 0, 0, time.UTC)
	h.kv.Set(store.KeyLastSyncAt, []byte(last.Format(time.RFC3339Nano)))

	restarted := New(h.kv, h.remote, h.salePoints, h.segments, h.monitor)

	state := restarted.State()
	if state.PendingSalePoints != 2 {
		t.Errorf("Expected 2 pending sale points, got %d", state.PendingSalePoints)
	}
	if state.PendingTrackSegments != 1 {
		t.Errorf("Expected 1 pending segment, got %d", state.PendingTrackSegments)
	}
	if state.LastSyncAt == nil || !state.LastSyncAt.Equal(last) {
		t.Errorf("Expected LastSyncAt %v, got %v", last, state.LastSyncAt)
	}
}

// TestCorruptLastSyncIgnored tests that a malformed persisted timestamp
// degrades to "never synced".
func TestCorruptLastSyncIgnored(t *testing.T) {
	kv := store.NewMemoryStore()
	kv.Set(store.KeyLastSyncAt, []byte("not a timestamp"))

	s := New(kv, &fakeRemote{},
		queue.NewSalePointQueue(kv), queue.NewSegmentQueue(kv),
		reachability.NewMonitor(nil, time.Second))

	if s.State().LastSyncAt != nil {
		t.Error("Expected nil LastSyncAt for corrupt timestamp")
	}
}

// TestSubscribeObservesSyncingFlag tests that subscribers see the
// syncing flag raise and fall around a pass.
func TestSubscribeObservesSyncingFlag(t *testing.T) {
	h := newHarness(&fakeRemote{})
	h.salePoints.Enqueue(7, "observed", 0, 0)

	var mu sync.Mutex
	var sawSyncing, sawIdleAfter bool
	h.syncer.Subscribe(func(s State) {
		mu.Lock()
		defer mu.Unlock()
		if s.IsSyncing {
			sawSyncing = true
		} else if sawSyncing {
			sawIdleAfter = true
		}
	})

	h.syncer.runPass(context.Background())

	mu.Lock()
	defer mu.Unlock()
	if !sawSyncing || !sawIdleAfter {
		t.Errorf("Expected subscribers to observe syncing then idle, got syncing=%v idle=%v",
			sawSyncing, sawIdleAfter)
	}
}

// TestCancelledPassKeepsQueueConsistent tests that cancellation leaves
// unattempted items pending in the persisted queue.
func TestCancelledPassKeepsQueueConsistent(t *testing.T) {
	h := newHarness(&fakeRemote{})

	h.salePoints.Enqueue(7, "a", 0, 0)
	h.salePoints.Enqueue(7, "b", 0, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	h.syncer.runPass(ctx)

	ops := h.salePoints.LoadAll()
	if len(ops) != 2 {
		t.Fatalf("Expected both ops retained after cancelled pass, got %d", len(ops))
	}
	for _, op := range ops {
		if op.SyncStatus != models.SyncStatusPending {
			t.Errorf("Expected pending status after cancellation, got %s", op.SyncStatus)
		}
	}
}
