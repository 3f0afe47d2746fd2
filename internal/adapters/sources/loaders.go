package sources

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samirrijal/poimap/internal/core/domain"
	"github.com/samirrijal/poimap/internal/core/ports"
	"github.com/samirrijal/poimap/internal/core/usecases"
	"github.com/samirrijal/poimap/internal/pkg/config"
	"github.com/samirrijal/poimap/internal/pkg/geospatial"
)

// ErrNotConfigured is returned by a source whose location was never set.
var ErrNotConfigured = errors.New("source not configured")

type unavailable[R any] struct {
	name string
	err  error
}

// Unavailable is a source that always fails with err. It lets a loader
// take its failure path when the backing service could not even be reached
// at start-up.
func Unavailable[R any](name string, err error) ports.RecordSource[R] {
	return unavailable[R]{name: name, err: err}
}

func (u unavailable[R]) Name() string { return u.name }

func (u unavailable[R]) Fetch(context.Context) ([]R, error) {
	return nil, fmt.Errorf("%s: %w", u.name, u.err)
}

// Loaders builds the running-event and attraction loaders described by cfg.
// postgis is the attraction source used when the kind is postgis.
func Loaders(cfg config.SourcesConfig, postgis ports.WKTSource) ([]*usecases.Loader, error) {
	client := NewHTTPClient(time.Duration(cfg.HTTPTimeout) * time.Second)

	fallbackRecords, err := FallbackEvents(cfg.Events.FallbackPath)
	if err != nil {
		return nil, err
	}
	fallback := usecases.Normalize(fallbackRecords, domain.CategoryRunningEvent, usecases.FeedEventExtractor)

	var events *usecases.Loader
	switch {
	case cfg.Events.URL == "":
		events = usecases.NewLoader[domain.FeedEvent](domain.CategoryRunningEvent,
			Unavailable[domain.FeedEvent]("feed", ErrNotConfigured), usecases.FeedEventExtractor)
	case cfg.Events.Kind == config.EventsCSV:
		events = usecases.NewLoader[domain.TabularRow](domain.CategoryRunningEvent,
			NewTabularURL(cfg.Events.URL, client), usecases.TabularExtractor(geospatial.DefaultEventAliases))
	default:
		events = usecases.NewLoader[domain.FeedEvent](domain.CategoryRunningEvent,
			NewEventFeed(cfg.Events.URL, client), usecases.FeedEventExtractor)
	}
	events.WithFallback(fallback)

	a := cfg.Attractions
	var attractions *usecases.Loader
	switch a.Kind {
	case config.AttractionsCSV:
		var src *TabularSource
		if a.URL != "" {
			src = NewTabularURL(a.URL, client)
		} else {
			src = NewTabularFile(a.Path)
		}
		attractions = usecases.NewLoader[domain.TabularRow](domain.CategoryAttraction,
			src.WithComma(a.DelimiterRune()), usecases.TabularExtractor(geospatial.DefaultAttractionAliases))
	case config.AttractionsPostGIS:
		if postgis == nil {
			postgis = Unavailable[domain.WKTRecord]("postgis", ErrNotConfigured)
		}
		attractions = usecases.NewLoader[domain.WKTRecord](domain.CategoryAttraction, postgis, usecases.WKTRecordExtractor)
	default:
		attractions = usecases.NewLoader[domain.WKTRecord](domain.CategoryAttraction, NewStaticWKT(a.Path), usecases.WKTRecordExtractor)
	}

	return []*usecases.Loader{events, attractions}, nil
}
