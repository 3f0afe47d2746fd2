package sources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/samirrijal/poimap/internal/core/domain"
)

// EventFeed reads the running-events JSON document over HTTP.
type EventFeed struct {
	url    string
	client *HTTPClient
}

// NewEventFeed creates a new EventFeed.
func NewEventFeed(url string, client *HTTPClient) *EventFeed {
	return &EventFeed{url: url, client: client}
}

// Name identifies the source in statuses and logs.
func (f *EventFeed) Name() string { return "feed:" + f.url }

// Fetch downloads and decodes the whole document. Malformed entries are
// returned as-is and dropped by the normalizer.
func (f *EventFeed) Fetch(ctx context.Context) ([]domain.FeedEvent, error) {
	body, err := f.client.Get(ctx, f.url, "application/json")
	if err != nil {
		return nil, fmt.Errorf("event feed: %w", err)
	}
	return DecodeFeed(body)
}

// DecodeFeed parses a `{"events": [...]}` document. A missing events key
// yields an empty slice. An entry whose fields have the wrong JSON type is
// kept as a zero FeedEvent so the normalizer drops it without failing the
// document.
func DecodeFeed(body []byte) ([]domain.FeedEvent, error) {
	var doc struct {
		Events []json.RawMessage `json:"events"`
	}
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("event feed: %w: %v", ErrDecode, err)
	}

	events := make([]domain.FeedEvent, 0, len(doc.Events))
	for _, raw := range doc.Events {
		var e domain.FeedEvent
		if err := json.Unmarshal(raw, &e); err != nil {
			e = domain.FeedEvent{}
		}
		events = append(events, e)
	}
	return events, nil
}
