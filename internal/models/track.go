package models

import "time"

// Coordinate is a single timed GPS fix.
type Coordinate struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Timestamp time.Time `json:"timestamp"`
}

// TrackSegment is a contiguous block of GPS samples recorded between a
// start and end time. Its ID is assigned once when the segment is
// finalized and never changes; the remote is expected to deduplicate
// retried appends on that identity.
type TrackSegment struct {
	ID          string       `json:"id"`
	StartTime   time.Time    `json:"start_time"`
	EndTime     time.Time    `json:"end_time"`
	Distance    float64      `json:"distance"`
	Paused      bool         `json:"paused"`
	Coordinates []Coordinate `json:"coordinates"`
}

// PendingTrackSegmentOp is a not-yet-confirmed segment append. The
// segment payload is fully formed at enqueue time and never edited.
type PendingTrackSegmentOp struct {
	ID         string       `json:"id"`
	TrackID    int64        `json:"track_id"`
	Segment    TrackSegment `json:"segment"`
	CreatedAt  time.Time    `json:"created_at"`
	SyncStatus SyncStatus   `json:"sync_status"`
}

// NeedsSync reports whether the op should be attempted on the next pass.
func (op PendingTrackSegmentOp) NeedsSync() bool {
	return op.SyncStatus == SyncStatusPending || op.SyncStatus == SyncStatusFailed
}

// Track is a recorded route as confirmed by the remote service.
type Track struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	TotalDistance float64   `json:"total_distance"`
	UpdatedAt     time.Time `json:"updated_at"`
}
