package ports

import (
	"context"
	"errors"
	"time"

	"github.com/samirrijal/poimap/internal/core/domain"
)

// MapSurface is the marker-rendering collaborator. Render replaces the
// whole marker set of one viewer.
type MapSurface interface {
	Render(ctx context.Context, viewerID string, markers []domain.Marker) error
}

// CountObserver receives count notifications. Both calls may be repeated
// with the same values.
type CountObserver interface {
	// CountChanged is invoked once per terminal ingestion transition.
	CountChanged(ctx context.Context, category domain.Category, count int) error
	// CountsRecomputed is invoked on every display recompute.
	CountsRecomputed(ctx context.Context, viewerID string, counts domain.Counts) error
}

// Notifier surfaces advisory notices to viewers.
type Notifier interface {
	Notify(ctx context.Context, notice domain.Notice) error
}

// DatasetPublisher hands finished datasets to other processes.
type DatasetPublisher interface {
	PublishDataset(ctx context.Context, status domain.LayerStatus, ds domain.Dataset) error
}

// DatasetSubscriber receives datasets produced elsewhere.
type DatasetSubscriber interface {
	SubscribeDatasets(ctx context.Context, handler func(ctx context.Context, status domain.LayerStatus, ds domain.Dataset) error) error
}

// ErrCacheMiss is returned by CacheService.Get for absent or expired keys.
var ErrCacheMiss = errors.New("cache miss")

// CacheService provides key/value storage with expiry.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}

// ViewerStore keeps per-viewer visibility for the lifetime of a session.
type ViewerStore interface {
	Load(ctx context.Context, viewerID string) (domain.Visibility, bool, error)
	Save(ctx context.Context, viewerID string, vis domain.Visibility, ttl time.Duration) error
	Delete(ctx context.Context, viewerID string) error
}

// ErrorReporter forwards failures to an external error tracker.
type ErrorReporter interface {
	Capture(err error, context map[string]any)
}
