package sources_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samirrijal/poimap/internal/adapters/sources"
	"github.com/samirrijal/poimap/internal/core/domain"
	"github.com/samirrijal/poimap/internal/core/usecases"
)

func TestStaticWKT_Embedded(t *testing.T) {
	recs, err := sources.NewStaticWKT("").Fetch(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, recs)

	ds := usecases.Normalize(recs, domain.CategoryAttraction, usecases.WKTRecordExtractor)
	assert.Equal(t, len(recs), ds.Len())
	assert.Equal(t, "Cedar Point", ds.Points[0].Name)
	assert.InDelta(t, 41.4822, ds.Points[0].Location.Lat, 1e-9)
}

func TestStaticWKT_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "parks.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"wkt":"POINT (10 20)","name":"P"},{"wkt":"POINT EMPTY","name":"E"}]`), 0o600))

	recs, err := sources.NewStaticWKT(path).Fetch(context.Background())
	require.NoError(t, err)
	ds := usecases.Normalize(recs, domain.CategoryAttraction, usecases.WKTRecordExtractor)
	require.Equal(t, 1, ds.Len())
	assert.Equal(t, domain.GeoPoint{Lat: 20, Lon: 10}, ds.Points[0].Location)
}

func TestStaticWKT_BadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "parks.json")
	require.NoError(t, os.WriteFile(path, []byte(`{`), 0o600))

	_, err := sources.NewStaticWKT(path).Fetch(context.Background())
	assert.ErrorIs(t, err, sources.ErrDecode)
}
