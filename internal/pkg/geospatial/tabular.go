package geospatial

import (
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/cases"

	"github.com/samirrijal/poimap/internal/core/domain"
)

// ColumnAliases lists accepted header names per logical field. Matching is
// case-insensitive and the first alias with a non-empty cell wins.
type ColumnAliases struct {
	Name      []string
	Latitude  []string
	Longitude []string
	Country   []string
	Region    []string

	// RegionAttr is the attribute key the region value is stored under.
	RegionAttr string
}

// DefaultAttractionAliases is the alias table for the attractions CSV.
var DefaultAttractionAliases = ColumnAliases{
	Name:       []string{"name", "Name"},
	Latitude:   []string{"latitude", "Latitude", "lat"},
	Longitude:  []string{"longitude", "Longitude", "lng", "lon"},
	Country:    []string{"country", "Country"},
	Region:     []string{"state", "State"},
	RegionAttr: domain.AttrState,
}

// DefaultEventAliases is the alias table for running events delivered as rows.
var DefaultEventAliases = ColumnAliases{
	Name:       []string{"name", "Name", "event", "Event"},
	Latitude:   []string{"latitude", "Latitude", "lat"},
	Longitude:  []string{"longitude", "Longitude", "lng", "lon"},
	Country:    []string{"country", "Country"},
	Region:     []string{"region", "Region"},
	RegionAttr: domain.AttrRegion,
}

// ParseTabularPoint extracts a candidate from a header-keyed row. Missing
// name/latitude/longitude or non-numeric coordinates yield ok=false.
func ParseTabularPoint(row map[string]string, aliases ColumnAliases) (domain.Candidate, bool) {
	if len(row) == 0 {
		return domain.Candidate{}, false
	}
	lk := newRowLookup(row)

	name := lk.first(aliases.Name)
	latStr := lk.first(aliases.Latitude)
	lonStr := lk.first(aliases.Longitude)
	if name == "" || latStr == "" || lonStr == "" {
		return domain.Candidate{}, false
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return domain.Candidate{}, false
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return domain.Candidate{}, false
	}

	c := domain.Candidate{
		Name:     name,
		Location: domain.GeoPoint{Lat: lat, Lon: lon},
	}

	attrs := map[string]string{}
	if v := lk.first(aliases.Country); v != "" {
		attrs[domain.AttrCountry] = v
	}
	if v := lk.first(aliases.Region); v != "" {
		key := aliases.RegionAttr
		if key == "" {
			key = domain.AttrRegion
		}
		attrs[key] = v
	}
	if len(attrs) > 0 {
		c.Attributes = attrs
	}
	return c, true
}

type rowLookup struct {
	exact  map[string]string
	folded map[string]string
	caser  cases.Caser
}

func newRowLookup(row map[string]string) *rowLookup {
	lk := &rowLookup{
		exact:  make(map[string]string, len(row)),
		folded: make(map[string]string, len(row)),
		caser:  cases.Fold(),
	}

	// Sorted so that keys colliding after folding resolve the same way every time.
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		col := cleanHeader(k)
		v := strings.TrimSpace(row[k])
		if _, dup := lk.exact[col]; !dup {
			lk.exact[col] = v
		}
		f := lk.caser.String(col)
		if _, dup := lk.folded[f]; !dup {
			lk.folded[f] = v
		}
	}
	return lk
}

func (lk *rowLookup) first(aliases []string) string {
	for _, a := range aliases {
		if v := lk.exact[a]; v != "" {
			return v
		}
	}
	for _, a := range aliases {
		if v := lk.folded[lk.caser.String(a)]; v != "" {
			return v
		}
	}
	return ""
}

// cleanHeader strips a UTF-8 BOM and surrounding whitespace from a header cell.
func cleanHeader(col string) string {
	return strings.TrimSpace(strings.TrimPrefix(col, "\xef\xbb\xbf"))
}
