package usecases

import (
	"strconv"
	"strings"

	"github.com/samirrijal/poimap/internal/core/domain"
	"github.com/samirrijal/poimap/internal/pkg/geospatial"
)

// FeedEventExtractor reads a running-events feed entry. Coordinates may be
// encoded as JSON strings or numbers.
func FeedEventExtractor(e domain.FeedEvent) (domain.Candidate, bool) {
	lat, err := strconv.ParseFloat(strings.TrimSpace(string(e.Latitude)), 64)
	if err != nil {
		return domain.Candidate{}, false
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(string(e.Longitude)), 64)
	if err != nil {
		return domain.Candidate{}, false
	}

	c := domain.Candidate{
		Name:     e.Name,
		Location: domain.GeoPoint{Lat: lat, Lon: lon},
		Attributes: map[string]string{
			domain.AttrCountry: e.Country,
			domain.AttrRegion:  e.Region,
			domain.AttrStatus:  e.Status,
		},
	}
	if id, err := strconv.Atoi(strings.TrimSpace(string(e.ID))); err == nil {
		c.ID = &id
	}
	return c, true
}

// TabularExtractor reads header-keyed rows using the given alias table.
func TabularExtractor(aliases geospatial.ColumnAliases) Extractor[domain.TabularRow] {
	return func(row domain.TabularRow) (domain.Candidate, bool) {
		return geospatial.ParseTabularPoint(row, aliases)
	}
}

// WKTRecordExtractor reads a literal "POINT (lon lat)" record.
func WKTRecordExtractor(r domain.WKTRecord) (domain.Candidate, bool) {
	loc, ok := geospatial.ParseWKTPoint(r.WKT)
	if !ok {
		return domain.Candidate{}, false
	}
	return domain.Candidate{
		Name:     r.Name,
		Location: loc,
		Attributes: map[string]string{
			domain.AttrDescription: r.Description,
			domain.AttrCountry:     r.Country,
			domain.AttrState:       r.State,
		},
	}, true
}

// PointExtractor is the identity extractor for already normalized points.
func PointExtractor(p domain.Point) (domain.Candidate, bool) {
	return domain.Candidate{
		ID:         p.ID,
		Name:       p.Name,
		Location:   p.Location,
		Attributes: p.Attributes,
	}, true
}
