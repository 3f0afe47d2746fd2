// Package surface keeps the rendered marker set of each viewer as a GeoJSON
// FeatureCollection for the browser map widget.
package surface

import (
	"context"
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/samirrijal/poimap/internal/core/domain"
)

// GeoJSON implements ports.MapSurface. Every Render replaces the viewer's
// collection wholesale.
type GeoJSON struct {
	mu      sync.RWMutex
	layers  map[string]*geojson.FeatureCollection
	renders map[string]uint64
}

// NewGeoJSON creates an empty surface.
func NewGeoJSON() *GeoJSON {
	return &GeoJSON{
		layers:  make(map[string]*geojson.FeatureCollection),
		renders: make(map[string]uint64),
	}
}

// Render replaces the viewer's markers.
func (s *GeoJSON) Render(_ context.Context, viewerID string, markers []domain.Marker) error {
	fc := FeatureCollection(markers)

	s.mu.Lock()
	s.layers[viewerID] = fc
	s.renders[viewerID]++
	s.mu.Unlock()
	return nil
}

// Snapshot returns the last rendered collection of a viewer together with
// its render version.
func (s *GeoJSON) Snapshot(viewerID string) (*geojson.FeatureCollection, uint64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fc, ok := s.layers[viewerID]
	return fc, s.renders[viewerID], ok
}

// Forget drops a viewer's collection.
func (s *GeoJSON) Forget(viewerID string) {
	s.mu.Lock()
	delete(s.layers, viewerID)
	delete(s.renders, viewerID)
	s.mu.Unlock()
}

// FeatureCollection converts markers to GeoJSON, one Point feature each.
func FeatureCollection(markers []domain.Marker) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, m := range markers {
		f := geojson.NewFeature(orb.Point{m.Location.Lon, m.Location.Lat})
		f.Properties["category"] = string(m.Category)
		f.Properties["title"] = m.Title
		if len(m.Details) > 0 {
			details := make([]map[string]string, 0, len(m.Details))
			for _, d := range m.Details {
				details = append(details, map[string]string{"label": d.Label, "value": d.Value})
			}
			f.Properties["details"] = details
		}
		fc.Append(f)
	}
	return fc
}
