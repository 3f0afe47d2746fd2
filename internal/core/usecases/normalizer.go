package usecases

import (
	"strings"

	"github.com/samirrijal/poimap/internal/core/domain"
)

// Extractor turns one raw record into a candidate point. ok=false drops it.
type Extractor[R any] func(record R) (domain.Candidate, bool)

// Normalize applies extract to every record and keeps the candidates that
// satisfy the point invariants, in input order. It never fails: malformed
// records are dropped silently.
func Normalize[R any](records []R, category domain.Category, extract Extractor[R]) domain.Dataset {
	ds, _ := NormalizeWithReport(records, category, extract)
	return ds
}

// NormalizeWithReport is Normalize plus a count of dropped records per reason.
func NormalizeWithReport[R any](records []R, category domain.Category, extract Extractor[R]) (domain.Dataset, domain.DropReport) {
	ds := domain.Dataset{Category: category, Points: make([]domain.Point, 0, len(records))}
	report := domain.DropReport{Total: len(records), Dropped: map[domain.DropReason]int{}}

	for _, r := range records {
		c, ok := extract(r)
		if !ok {
			report.Dropped[domain.DropExtractFailed]++
			continue
		}

		name := strings.TrimSpace(c.Name)
		if name == "" {
			report.Dropped[domain.DropEmptyName]++
			continue
		}
		if !c.Location.Valid() {
			report.Dropped[domain.DropOutOfRange]++
			continue
		}

		ds.Points = append(ds.Points, domain.Point{
			ID:         copyID(c.ID),
			Name:       name,
			Location:   c.Location,
			Category:   category,
			Attributes: copyAttrs(c.Attributes),
		})
	}

	report.Kept = len(ds.Points)
	return ds, report
}

func copyID(id *int) *int {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

func copyAttrs(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out[k] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
