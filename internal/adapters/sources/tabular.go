package sources

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/samirrijal/poimap/internal/core/domain"
)

// TabularSource reads a delimited file with a header row, either over HTTP
// or from the local filesystem.
type TabularSource struct {
	url    string
	path   string
	comma  rune
	client *HTTPClient
}

// NewTabularURL reads rows from an HTTP(S) URL.
func NewTabularURL(url string, client *HTTPClient) *TabularSource {
	return &TabularSource{url: url, client: client, comma: ','}
}

// NewTabularFile reads rows from a local file.
func NewTabularFile(path string) *TabularSource {
	return &TabularSource{path: path, comma: ','}
}

// WithComma sets the field delimiter.
func (s *TabularSource) WithComma(r rune) *TabularSource {
	if r != 0 {
		s.comma = r
	}
	return s
}

// Name identifies the source in statuses and logs.
func (s *TabularSource) Name() string {
	if s.url != "" {
		return "csv:" + s.url
	}
	return "csv:" + s.path
}

// Fetch loads the whole file and splits it into header-keyed rows.
func (s *TabularSource) Fetch(ctx context.Context) ([]domain.TabularRow, error) {
	var (
		body []byte
		err  error
	)
	if s.url != "" {
		body, err = s.client.Get(ctx, s.url, "text/csv")
	} else {
		body, err = os.ReadFile(s.path)
	}
	if err != nil {
		return nil, fmt.Errorf("tabular source: %w", err)
	}
	return DecodeRows(bytes.NewReader(body), s.comma)
}

// DecodeRows parses delimited text. A missing header is a decode error;
// a row that cannot be parsed becomes an empty row so it is counted as a
// drop instead of failing the file.
func DecodeRows(r io.Reader, comma rune) ([]domain.TabularRow, error) {
	reader := csv.NewReader(r)
	reader.Comma = comma
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("tabular source: %w: empty file", ErrDecode)
		}
		return nil, fmt.Errorf("tabular source: %w: header: %v", ErrDecode, err)
	}
	cols := indexColumns(header)

	rows := []domain.TabularRow{}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			rows = append(rows, domain.TabularRow{})
			continue
		}
		if len(record) == 1 && strings.TrimSpace(record[0]) == "" {
			continue
		}

		row := make(domain.TabularRow, len(cols))
		for name := range cols {
			if v := getField(record, cols, name); v != "" {
				row[name] = v
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func indexColumns(header []string) map[string]int {
	m := make(map[string]int, len(header))
	for i, col := range header {
		// Strip BOM from first column
		col = strings.TrimSpace(strings.TrimPrefix(col, "\xef\xbb\xbf"))
		if col == "" {
			continue
		}
		if _, dup := m[col]; !dup {
			m[col] = i
		}
	}
	return m
}

func getField(record []string, cols map[string]int, name string) string {
	idx, ok := cols[name]
	if !ok || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}
