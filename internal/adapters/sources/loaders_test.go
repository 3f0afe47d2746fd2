package sources_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samirrijal/poimap/internal/adapters/sources"
	"github.com/samirrijal/poimap/internal/core/domain"
	"github.com/samirrijal/poimap/internal/core/usecases"
	"github.com/samirrijal/poimap/internal/pkg/config"
)

func sourcesConfig() config.SourcesConfig {
	return config.SourcesConfig{
		HTTPTimeout: 2,
		Events:      config.EventsSourceConfig{Kind: config.EventsFeed},
		Attractions: config.AttractionSourceConfig{Kind: config.AttractionsStatic, Delimiter: ","},
	}
}

func runLoaders(t *testing.T, cfg config.SourcesConfig) *usecases.Catalog {
	t.Helper()
	loaders, err := sources.Loaders(cfg, nil)
	require.NoError(t, err)
	require.Len(t, loaders, 2)

	catalog := usecases.NewCatalog()
	usecases.NewIngestionService(catalog, loaders).Run(context.Background())
	return catalog
}

func TestLoaders_Defaults(t *testing.T) {
	catalog := runLoaders(t, sourcesConfig())

	events := catalog.Status(domain.CategoryRunningEvent)
	assert.Equal(t, domain.StateReadyWithFallback, events.State)
	assert.Equal(t, 5, events.Count)

	parks := catalog.Status(domain.CategoryAttraction)
	assert.Equal(t, domain.StateReady, parks.State)
	assert.Equal(t, "static:embedded", parks.Source)
	assert.Equal(t, catalog.Dataset(domain.CategoryAttraction).Len(), parks.Count)
	assert.Positive(t, parks.Count)
}

func TestLoaders_FeedServerError(t *testing.T) {
	srv := serve(t, http.StatusInternalServerError, "boom")
	cfg := sourcesConfig()
	cfg.Events.URL = srv.URL

	catalog := runLoaders(t, cfg)

	st := catalog.Status(domain.CategoryRunningEvent)
	assert.Equal(t, domain.StateReadyWithFallback, st.State)
	require.Equal(t, 5, st.Count)
	require.NotNil(t, st.Notice)
	assert.Equal(t, domain.NoticeWarning, st.Notice.Level)
}

func TestLoaders_CSVAttractions(t *testing.T) {
	srv := serve(t, http.StatusOK, "Name;Latitude;Longitude;Country\nX Park;10.5;-20.25;Z\nNo Lat;;1;Z\n")
	cfg := sourcesConfig()
	cfg.Attractions = config.AttractionSourceConfig{Kind: config.AttractionsCSV, URL: srv.URL, Delimiter: ";"}

	catalog := runLoaders(t, cfg)

	ds := catalog.Dataset(domain.CategoryAttraction)
	require.Equal(t, 1, ds.Len())
	assert.Equal(t, "X Park", ds.Points[0].Name)
	assert.Equal(t, domain.GeoPoint{Lat: 10.5, Lon: -20.25}, ds.Points[0].Location)
	assert.Equal(t, "Z", ds.Points[0].Attr("country"))
}

func TestLoaders_CSVAttractionsUnreachable(t *testing.T) {
	srv := serve(t, http.StatusNotFound, "")
	cfg := sourcesConfig()
	cfg.Attractions = config.AttractionSourceConfig{Kind: config.AttractionsCSV, URL: srv.URL, Delimiter: ","}

	catalog := runLoaders(t, cfg)

	st := catalog.Status(domain.CategoryAttraction)
	assert.Equal(t, domain.StateReadyWithFallback, st.State)
	assert.Equal(t, 0, st.Count)
	require.NotNil(t, st.Notice)
	assert.Equal(t, domain.NoticeError, st.Notice.Level)
}

func TestLoaders_PostGISWithoutDatabase(t *testing.T) {
	cfg := sourcesConfig()
	cfg.Attractions.Kind = config.AttractionsPostGIS

	catalog := runLoaders(t, cfg)

	st := catalog.Status(domain.CategoryAttraction)
	assert.Equal(t, domain.StateReadyWithFallback, st.State)
	assert.Equal(t, "none", st.Source)
}

func TestUnavailable(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	src := sources.Unavailable[domain.WKTRecord]("postgis", cause)

	assert.Equal(t, "postgis", src.Name())
	_, err := src.Fetch(context.Background())
	assert.ErrorIs(t, err, cause)
}
