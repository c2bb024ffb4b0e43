package models

import "time"

// RecordingSnapshot captures an in-progress GPS recording session so it
// can be restored verbatim after an unexpected process termination.
// At most one snapshot exists process-wide at a time.
type RecordingSnapshot struct {
	TrackID             int64        `json:"track_id"`
	TrackName           string       `json:"track_name"`
	StartTime           time.Time    `json:"start_time"`
	TotalDistance       float64      `json:"total_distance"`
	PointsCount         int          `json:"points_count"`
	IsPaused            bool         `json:"is_paused"`
	RecordedCoordinates []Coordinate `json:"recorded_coordinates"`
}
