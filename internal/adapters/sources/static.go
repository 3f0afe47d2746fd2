package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/samirrijal/poimap/internal/core/domain"
	"github.com/samirrijal/poimap/internal/resources"
)

// StaticWKT serves a literal list of WKT point records, either the
// embedded default or a JSON file.
type StaticWKT struct {
	name string
	load func() ([]byte, error)
}

// NewStaticWKT returns the embedded attractions list, or the file at path
// when path is set.
func NewStaticWKT(path string) *StaticWKT {
	if path == "" {
		return &StaticWKT{name: "static:embedded", load: func() ([]byte, error) { return resources.Attractions, nil }}
	}
	return &StaticWKT{name: "static:" + path, load: func() ([]byte, error) { return os.ReadFile(path) }}
}

// Name identifies the source in statuses and logs.
func (s *StaticWKT) Name() string { return s.name }

// Fetch decodes the list.
func (s *StaticWKT) Fetch(_ context.Context) ([]domain.WKTRecord, error) {
	data, err := s.load()
	if err != nil {
		return nil, fmt.Errorf("static attractions: %w", err)
	}
	var recs []domain.WKTRecord
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("static attractions: %w: %v", ErrDecode, err)
	}
	return recs, nil
}

// FallbackEvents loads the built-in running-events dataset, or the feed
// document at path when set. The document uses the live feed's format.
func FallbackEvents(path string) ([]domain.FeedEvent, error) {
	data := resources.FallbackEvents
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("fallback events: %w", err)
		}
		data = b
	}
	return DecodeFeed(data)
}
