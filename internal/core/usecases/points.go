package usecases

import (
	"fmt"

	"github.com/samirrijal/poimap/internal/core/domain"
)

const (
	defaultNearbyRadius = 5000.0
	maxNearbyRadius     = 200000.0
	maxNearbyLimit      = 100
)

// PointService answers read queries over the loaded datasets.
type PointService struct {
	catalog *Catalog
}

// NewPointService creates a new PointService.
func NewPointService(catalog *Catalog) *PointService {
	return &PointService{catalog: catalog}
}

// List returns the current dataset of a category.
func (s *PointService) List(cat domain.Category) domain.Dataset {
	return s.catalog.Dataset(cat)
}

// Layers returns the ingestion status of every category.
func (s *PointService) Layers() []domain.LayerStatus {
	return s.catalog.Statuses()
}

// Nearby returns points within radiusMeters of (lat, lon), closest first.
func (s *PointService) Nearby(lat, lon, radiusMeters float64, limit int, cats ...domain.Category) ([]domain.Point, error) {
	center := domain.GeoPoint{Lat: lat, Lon: lon}
	if !center.Valid() {
		return nil, fmt.Errorf("invalid coordinate %.6f,%.6f", lat, lon)
	}
	if radiusMeters <= 0 {
		radiusMeters = defaultNearbyRadius
	}
	if radiusMeters > maxNearbyRadius {
		radiusMeters = maxNearbyRadius
	}
	if limit <= 0 || limit > maxNearbyLimit {
		limit = maxNearbyLimit
	}

	pts := s.catalog.Nearby(center, radiusMeters, limit, cats...)
	if pts == nil {
		pts = []domain.Point{}
	}
	return pts, nil
}
