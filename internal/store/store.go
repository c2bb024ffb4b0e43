// Package store provides the durable key/value surface shared by the
// pending queues and the recording snapshot. Each component uses a
// disjoint key, so no cross-component locking is required.
package store

import "errors"

// ErrNotFound is returned by Get when no value exists for a key.
var ErrNotFound = errors.New("store: key not found")

// Well-known keys. Kept in one place so the disjointness is visible.
const (
	KeyPendingSalePoints    = "pending_sale_points"
	KeyPendingTrackSegments = "pending_track_segments"
	KeyRecordingSnapshot    = "recording_snapshot"
	KeyLastSyncAt           = "last_sync_at"
)

// Store is a byte-oriented key/value surface.
type Store interface {
	// Get returns the value for key, or ErrNotFound.
	Get(key string) ([]byte, error)

	// Set durably writes the value for key, replacing any prior value.
	Set(key string, value []byte) error

	// Delete removes the value for key. Deleting an absent key is not
	// an error.
	Delete(key string) error

	// Close releases underlying resources.
	Close() error
}
