package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/poimap/internal/core/domain"
)

// DefaultAttractionQuery reads a PostGIS table whose location column is a
// geography or geometry point. Columns must come back in the order
// wkt, name, description, country, state.
const DefaultAttractionQuery = `
	SELECT ST_AsText(location::geometry),
	       name,
	       COALESCE(description, ''),
	       COALESCE(country, ''),
	       COALESCE(state, '')
	FROM attractions
	ORDER BY id
`

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// AttractionSource implements ports.WKTSource over a read-only query.
type AttractionSource struct {
	db    querier
	query string
	stats func()
}

// NewAttractionSource creates a source; an empty query uses DefaultAttractionQuery.
func NewAttractionSource(db *DB, query string) *AttractionSource {
	if query == "" {
		query = DefaultAttractionQuery
	}
	return &AttractionSource{db: db.Pool, query: query, stats: db.ReportStats}
}

// Name identifies the source in statuses and logs.
func (s *AttractionSource) Name() string { return "postgis" }

// Fetch runs the query once. A NULL geometry yields an empty WKT string,
// which the normalizer drops.
func (s *AttractionSource) Fetch(ctx context.Context) ([]domain.WKTRecord, error) {
	if s.stats != nil {
		defer s.stats()
	}

	rows, err := s.db.Query(ctx, s.query)
	if err != nil {
		return nil, fmt.Errorf("query attractions: %w", err)
	}
	defer rows.Close()

	recs := []domain.WKTRecord{}
	for rows.Next() {
		var (
			wkt *string
			r   domain.WKTRecord
		)
		if err := rows.Scan(&wkt, &r.Name, &r.Description, &r.Country, &r.State); err != nil {
			return nil, fmt.Errorf("scan attraction: %w", err)
		}
		if wkt != nil {
			r.WKT = *wkt
		}
		recs = append(recs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attractions: %w", err)
	}
	return recs, nil
}
