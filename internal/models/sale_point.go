// Package models provides data model definitions for the fieldsync core.
package models

import "time"

// SyncStatus tracks a pending operation through its lifecycle.
type SyncStatus string

const (
	SyncStatusPending SyncStatus = "pending"
	SyncStatusSyncing SyncStatus = "syncing"
	SyncStatusSynced  SyncStatus = "synced"
	SyncStatusFailed  SyncStatus = "failed"
)

// PendingSalePointOp is a not-yet-confirmed sale point creation.
// ID is local-only: it identifies the entry within the queue for dedup
// and removal and is never sent to the remote.
type PendingSalePointOp struct {
	ID         string     `json:"id"`
	TrackID    int64      `json:"track_id"`
	Name       string     `json:"name"`
	Latitude   float64    `json:"latitude"`
	Longitude  float64    `json:"longitude"`
	CreatedAt  time.Time  `json:"created_at"`
	SyncStatus SyncStatus `json:"sync_status"`
}

// NeedsSync reports whether the op should be attempted on the next pass.
func (op PendingSalePointOp) NeedsSync() bool {
	return op.SyncStatus == SyncStatusPending || op.SyncStatus == SyncStatusFailed
}

// SalePoint is a sale point as confirmed by the remote service.
type SalePoint struct {
	ID        int64   `json:"id"`
	TrackID   int64   `json:"track_id"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}
