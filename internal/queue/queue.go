// Package queue provides the durable pending-operation queues for
// offline mutations. Each queue owns one store key and persists its
// full collection synchronously on every change, so a process restart
// reconstructs the exact pending set. A corrupted persisted blob
// degrades to an empty collection rather than an error.
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

// SalePointQueue holds not-yet-confirmed sale point creations.
type SalePointQueue struct {
	mu    sync.Mutex
	store store.Store
}

// NewSalePointQueue creates a queue persisting under the pending
// sale points key.
func NewSalePointQueue(s store.Store) *SalePointQueue {
	return &SalePointQueue{store: s}
}

// Enqueue appends a new pending op and persists the full collection
// before returning. It never touches the network.
func (q *SalePointQueue) Enqueue(trackID int64, name string, lat, lng float64) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	op := models.PendingSalePointOp{
		ID:         uuid.New().String(),
		TrackID:    trackID,
		Name:       name,
		Latitude:   lat,
		Longitude:  lng,
		CreatedAt:  time.Now().UTC(),
		SyncStatus: models.SyncStatusPending,
	}

	ops := append(q.loadLocked(), op)
	if err := q.replaceLocked(ops); err != nil {
		return "", err
	}

	logging.Log.Debug("enqueued sale point",
		zap.String("id", op.ID),
		zap.Int64("track_id", trackID),
		zap.String("name", name))

	return op.ID, nil
}

// LoadAll returns the persisted collection in enqueue order. An absent
// or corrupt blob yields an empty collection, never an error.
func (q *SalePointQueue) LoadAll() []models.PendingSalePointOp {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.loadLocked()
}

// Replace atomically overwrites the persisted collection.
func (q *SalePointQueue) Replace(ops []models.PendingSalePointOp) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.replaceLocked(ops)
}

// Len returns the number of persisted ops.
func (q *SalePointQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.loadLocked())
}

func (q *SalePointQueue) loadLocked() []models.PendingSalePointOp {
	data, err := q.store.Get(store.KeyPendingSalePoints)
	if err != nil {
		if err != store.ErrNotFound {
			logging.Log.Warn("failed to read sale point queue, treating as empty", zap.Error(err))
		}
		return nil
	}

	var ops []models.PendingSalePointOp
	if err := json.Unmarshal(data, &ops); err != nil {
		logging.Log.Warn("corrupt sale point queue, treating as empty", zap.Error(err))
		return nil
	}
	return ops
}

func (q *SalePointQueue) replaceLocked(ops []models.PendingSalePointOp) error {
	if ops == nil {
		ops = []models.PendingSalePointOp{}
	}
	data, err := json.Marshal(ops)
	if err != nil {
		return err
	}
	return q.store.Set(store.KeyPendingSalePoints, data)
}
