package valkey

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/samirrijal/poimap/internal/core/domain"
	"github.com/samirrijal/poimap/internal/core/ports"
	"github.com/samirrijal/poimap/internal/pkg/metrics"
)

const viewerKeyPrefix = "poimap:viewer:"

// ViewerStore implements ports.ViewerStore on top of any CacheService, so
// the same encoding is used against Valkey and the in-process fallback.
type ViewerStore struct {
	cache ports.CacheService
}

// NewViewerStore creates a new ViewerStore.
func NewViewerStore(cache ports.CacheService) *ViewerStore {
	return &ViewerStore{cache: cache}
}

// Load returns the stored flags of a viewer; ok is false when the session
// is unknown or expired.
func (s *ViewerStore) Load(ctx context.Context, id string) (domain.Visibility, bool, error) {
	data, err := s.cache.Get(ctx, viewerKeyPrefix+id)
	if errors.Is(err, ports.ErrCacheMiss) {
		metrics.CacheMisses.WithLabelValues("viewer").Inc()
		return domain.Visibility{}, false, nil
	}
	if err != nil {
		return domain.Visibility{}, false, fmt.Errorf("get viewer: %w", err)
	}

	var vis domain.Visibility
	if err := json.Unmarshal(data, &vis); err != nil {
		return domain.Visibility{}, false, fmt.Errorf("decode viewer: %w", err)
	}
	metrics.CacheHits.WithLabelValues("viewer").Inc()
	return vis, true, nil
}

// Save stores the flags and (re)starts the session TTL.
func (s *ViewerStore) Save(ctx context.Context, id string, vis domain.Visibility, ttl time.Duration) error {
	data, err := json.Marshal(vis)
	if err != nil {
		return fmt.Errorf("encode viewer: %w", err)
	}
	if err := s.cache.Set(ctx, viewerKeyPrefix+id, data, ttlSeconds(ttl)); err != nil {
		return fmt.Errorf("set viewer: %w", err)
	}
	return nil
}

// Delete removes a session.
func (s *ViewerStore) Delete(ctx context.Context, id string) error {
	if err := s.cache.Delete(ctx, viewerKeyPrefix+id); err != nil {
		return fmt.Errorf("delete viewer: %w", err)
	}
	return nil
}

func ttlSeconds(ttl time.Duration) int {
	secs := int(math.Ceil(ttl.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return secs
}
