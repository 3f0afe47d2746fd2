package geospatial

import (
	"math"

	"github.com/samirrijal/poimap/internal/core/domain"
)

const earthRadiusM = 6371000.0

// Haversine returns the great-circle distance in meters between a and b.
func Haversine(a, b domain.GeoPoint) float64 {
	dLat := toRad(b.Lat - a.Lat)
	dLon := toRad(b.Lon - a.Lon)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(a.Lat))*math.Cos(toRad(b.Lat))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	return earthRadiusM * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// BoundingBox returns a box around center that contains every point within
// radiusMeters. Near the poles the longitude span is widened to the full range.
func BoundingBox(center domain.GeoPoint, radiusMeters float64) domain.Bounds {
	latDelta := radiusMeters / 111320.0
	b := domain.Bounds{
		MinLat: math.Max(center.Lat-latDelta, -90),
		MaxLat: math.Min(center.Lat+latDelta, 90),
		MinLon: -180,
		MaxLon: 180,
	}

	cos := math.Cos(toRad(center.Lat))
	if cos < 1e-6 {
		return b
	}
	lonDelta := radiusMeters / (111320.0 * cos)
	if lonDelta >= 180 {
		return b
	}
	b.MinLon = center.Lon - lonDelta
	b.MaxLon = center.Lon + lonDelta
	return b
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
