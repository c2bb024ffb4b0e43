// Package recording persists the in-progress GPS recording session so
// a multi-hour recording survives process termination. The snapshot is
// the sole recovery mechanism: on relaunch the recording controller
// loads it and offers the user a resume/discard choice.
package recording

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/ruteroapp/fieldsync/internal/logging"
	"github.com/ruteroapp/fieldsync/internal/models"
	"github.com/ruteroapp/fieldsync/internal/store"
)

// SnapshotStore persists at most one RecordingSnapshot at a time and
// exposes the current value for observation.
type SnapshotStore struct {
	store store.Store

	mu      sync.RWMutex
	current *models.RecordingSnapshot
	loaded  bool
	subs    []func(*models.RecordingSnapshot)
}

// NewSnapshotStore creates a SnapshotStore over the given store.
func NewSnapshotStore(s store.Store) *SnapshotStore {
	return &SnapshotStore{store: s}
}

// Save serializes and persists the snapshot, replacing any prior one,
// and updates the observable current value.
func (ss *SnapshotStore) Save(snapshot models.RecordingSnapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}

	if err := ss.store.Set(store.KeyRecordingSnapshot, data); err != nil {
		return err
	}

	ss.mu.Lock()
	ss.current = &snapshot
	ss.loaded = true
	ss.mu.Unlock()

	ss.notify(&snapshot)
	return nil
}

// Load returns the persisted snapshot, or nil if none exists or the
// persisted blob is malformed. A corrupt snapshot is treated as "no
// active recording", never as an error.
func (ss *SnapshotStore) Load() (*models.RecordingSnapshot, error) {
	data, err := ss.store.Get(store.KeyRecordingSnapshot)
	if err == store.ErrNotFound {
		ss.setCurrent(nil)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var snapshot models.RecordingSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		logging.Log.Warn("corrupt recording snapshot, treating as absent", zap.Error(err))
		ss.setCurrent(nil)
		return nil, nil
	}

	ss.setCurrent(&snapshot)
	return &snapshot, nil
}

// Clear removes the persisted snapshot and resets the observable value
// to absent. Called when the session ends or is discarded.
func (ss *SnapshotStore) Clear() error {
	if err := ss.store.Delete(store.KeyRecordingSnapshot); err != nil {
		return err
	}

	ss.setCurrent(nil)
	ss.notify(nil)
	return nil
}

// Current returns the last observed snapshot, loading it from the
// store on first access.
func (ss *SnapshotStore) Current() *models.RecordingSnapshot {
	ss.mu.RLock()
	loaded := ss.loaded
	current := ss.current
	ss.mu.RUnlock()

	if loaded {
		return current
	}

	snapshot, err := ss.Load()
	if err != nil {
		logging.Log.Warn("failed to load recording snapshot", zap.Error(err))
		return nil
	}
	return snapshot
}

// Subscribe registers a callback invoked whenever the current snapshot
// changes. Callbacks run synchronously and must not block.
func (ss *SnapshotStore) Subscribe(fn func(*models.RecordingSnapshot)) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	ss.subs = append(ss.subs, fn)
}

func (ss *SnapshotStore) setCurrent(snapshot *models.RecordingSnapshot) {
	ss.mu.Lock()
	ss.current = snapshot
	ss.loaded = true
	ss.mu.Unlock()
}

func (ss *SnapshotStore) notify(snapshot *models.RecordingSnapshot) {
	ss.mu.RLock()
	subs := make([]func(*models.RecordingSnapshot), len(ss.subs))
	copy(subs, ss.subs)
	ss.mu.RUnlock()

	for _, fn := range subs {
		fn(snapshot)
	}
}
