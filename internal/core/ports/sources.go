package ports

import (
	"context"

	"github.com/samirrijal/poimap/internal/core/domain"
)

// RecordSource loads raw records of one shape from an external source.
// An error means the whole source is unusable (transport or decode failure);
// malformed individual records are not errors.
type RecordSource[R any] interface {
	Name() string
	Fetch(ctx context.Context) ([]R, error)
}

// EventFeed delivers raw running-event entries.
type EventFeed = RecordSource[domain.FeedEvent]

// RowSource delivers header-keyed tabular rows.
type RowSource = RecordSource[domain.TabularRow]

// WKTSource delivers literal WKT point records.
type WKTSource = RecordSource[domain.WKTRecord]
