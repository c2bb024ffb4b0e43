package queue

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ruteroapp/fieldsync/internal/logging"
	"github.com/ruteroapp/fieldsync/internal/models"
	"github.com/ruteroapp/fieldsync/internal/store"
)

// SegmentQueue holds not-yet-confirmed track segment appends.
type SegmentQueue struct {
	mu    sync.Mutex
	store store.Store
}

// NewSegmentQueue creates a queue persisting under the pending track
// segments key.
func NewSegmentQueue(s store.Store) *SegmentQueue {
	return &SegmentQueue{store: s}
}

// Enqueue appends a new pending op and persists the full collection
// before returning. The segment payload is taken as-is and never
// edited after enqueue.
func (q *SegmentQueue) Enqueue(trackID int64, segment models.TrackSegment) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	op := models.PendingTrackSegmentOp{
		ID:         uuid.New().String(),
		TrackID:    trackID,
		Segment:    segment,
		CreatedAt:  time.Now().UTC(),
		SyncStatus: models.SyncStatusPending,
	}

	ops := append(q.loadLocked(), op)
	if err := q.replaceLocked(ops); err != nil {
		return "", err
	}

	logging.Log.Debug("enqueued track segment",
		zap.String("id", op.ID),
		zap.Int64("track_id", trackID),
		zap.String("segment_id", segment.ID),
		zap.Int("coordinates", len(segment.Coordinates)))

	return op.ID, nil
}

// LoadAll returns the persisted collection in enqueue order. An absent
// or corrupt blob yields an empty collection, never an error.
func (q *SegmentQueue) LoadAll() []models.PendingTrackSegmentOp {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.loadLocked()
}

// Replace atomically overwrites the persisted collection.
func (q *SegmentQueue) Replace(ops []models.PendingTrackSegmentOp) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.replaceLocked(ops)
}

// Len returns the number of persisted ops.
func (q *SegmentQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.loadLocked())
}

func (q *SegmentQueue) loadLocked() []models.PendingTrackSegmentOp {
	data, err := q.store.Get(store.KeyPendingTrackSegments)
	if err != nil {
		if err != store.ErrNotFound {
			logging.Log.Warn("failed to read segment queue, treating as empty", zap.Error(err))
		}
		return nil
	}

	var ops []models.PendingTrackSegmentOp
	if err := json.Unmarshal(data, &ops); err != nil {
		logging.Log.Warn("corrupt segment queue, treating as empty", zap.Error(err))
		return nil
	}
	return ops
}

func (q *SegmentQueue) replaceLocked(ops []models.PendingTrackSegmentOp) error {
	if ops == nil {
		ops = []models.PendingTrackSegmentOp{}
	}
	data, err := json.Marshal(ops)
	if err != nil {
		return err
	}
	return q.store.Set(store.KeyPendingTrackSegments, data)
}
