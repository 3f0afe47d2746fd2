package geospatial

import (
	"math"
	"regexp"

	"github.com/paulmach/orb/encoding/wkt"

	"github.com/samirrijal/poimap/internal/core/domain"
)

// wktPointPattern accepts exactly two signed decimal tokens inside POINT(...).
// Z/M variants, EMPTY and anything else fall through.
var wktPointPattern = regexp.MustCompile(
	`(?i)^\s*POINT\s*\(\s*([+-]?(?:\d+\.?\d*|\.\d+)(?:[eE][+-]?\d+)?)\s+([+-]?(?:\d+\.?\d*|\.\d+)(?:[eE][+-]?\d+)?)\s*\)\s*$`,
)

// ParseWKTPoint decodes "POINT (<lon> <lat>)". WKT is x/y ordered, so the
// first token is the longitude. It never panics; ok is false on any deviation.
func ParseWKTPoint(text string) (domain.GeoPoint, bool) {
	m := wktPointPattern.FindStringSubmatch(text)
	if m == nil {
		return domain.GeoPoint{}, false
	}

	p, err := wkt.UnmarshalPoint("POINT(" + m[1] + " " + m[2] + ")")
	if err != nil {
		return domain.GeoPoint{}, false
	}
	if math.IsInf(p.Lon(), 0) || math.IsInf(p.Lat(), 0) {
		return domain.GeoPoint{}, false
	}

	return domain.GeoPoint{Lat: p.Lat(), Lon: p.Lon()}, true
}
