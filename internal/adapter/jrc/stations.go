// Package jrc reads the JRC hydro-power-database plant registry from its CSV
// export. Rows are returned untyped; parsing and filtering happen in the
// domain layer.
package jrc

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/tarnmoor/hydro-inflow-etl/internal/domain"
)

// requiredColumns must all be present in the CSV header. Capacity and name
// are optional because some registry exports omit them.
var requiredColumns = []string{"id", "country_code", "type", "lat", "lon"}

// Source loads station rows from a JRC CSV export on disk.
// It implements pipeline.StationSource.
type Source struct {
	path   string
	logger *slog.Logger
}

// NewSource creates a station source for the given CSV file.
func NewSource(path string, logger *slog.Logger) *Source {
	return &Source{path: path, logger: logger}
}

// Stations reads every data row of the export. Columns are located by header
// name, so column order and extra columns do not matter.
func (s *Source) Stations(_ context.Context) ([]domain.StationRecord, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open stations csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read stations header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	for _, name := range requiredColumns {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("stations csv %s: missing column %q", s.path, name)
		}
	}

	field := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	var recs []domain.StationRecord
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read stations csv: %w", err)
		}
		recs = append(recs, domain.StationRecord{
			ID:          field(row, "id"),
			Name:        field(row, "name"),
			CountryCode: field(row, "country_code"),
			Type:        field(row, "type"),
			Lat:         field(row, "lat"),
			Lon:         field(row, "lon"),
			CapacityMW:  field(row, "installed_capacity_MW"),
		})
	}

	s.logger.Debug("stations loaded", "path", s.path, "rows", len(recs))
	return recs, nil
}
