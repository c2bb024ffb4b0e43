package syncer

import (
	"context"

	"github.com/ruteroapp/fieldsync/internal/models"
)

// RemoteOperations performs the actual network calls for pending
// mutations. Implementations must be idempotent per segment identity so
// that retried appends are safe. Errors are treated uniformly; the
// syncer does not distinguish retryable from terminal failures.
type RemoteOperations interface {
	// CreateSalePoint creates a sale point on the remote service.
	CreateSalePoint(ctx context.Context, trackID int64, name string, lat, lng float64) (*models.SalePoint, error)

	// AppendTrackSegment appends a finalized segment to a track.
	AppendTrackSegment(ctx context.Context, trackID int64, segment models.TrackSegment) (*models.Track, error)
}
