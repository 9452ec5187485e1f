// Package demand normalizes national demand-profile tables for the model:
// country-name headers become ISO alpha-3 codes, timestamps are rewritten
// into the study year, and values are scaled from reported MW into the
// model's sign and unit convention.
package demand

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/tarnmoor/hydro-inflow-etl/internal/domain"
)

const (
	// inputFormat is the day-first timestamp layout the reported profiles use.
	inputFormat = "02/01/2006 15:04"
	// outputFormat matches the model's timeseries tables.
	outputFormat = "2006-01-02 15:04"
)

// DefaultScale converts reported positive MW demand into the model's
// negative per-unit convention.
const DefaultScale = -0.01

// Options control one normalization pass.
type Options struct {
	// Scale multiplies every value; zero means DefaultScale.
	Scale float64
	// Year rewrites timestamps into the given calendar year by whole-day
	// offset; zero keeps the source year.
	Year int
	// Aliases resolves non-standard country names; nil means
	// domain.DefaultNameAliases.
	Aliases map[string]string
}

// Normalize reads a demand table from r and writes the normalized table to w.
// The first column is the timestep index; every other column header is a
// country name.
func Normalize(r io.Reader, w io.Writer, opts Options) error {
	if opts.Scale == 0 {
		opts.Scale = DefaultScale
	}
	if opts.Aliases == nil {
		opts.Aliases = domain.DefaultNameAliases
	}

	cr := csv.NewReader(r)
	rows, err := cr.ReadAll()
	if err != nil {
		return fmt.Errorf("read demand table: %w", err)
	}
	if len(rows) < 2 {
		return errors.New("demand table has no data rows")
	}

	header, err := normalizeHeader(rows[0], opts.Aliases)
	if err != nil {
		return err
	}

	steps, err := parseSteps(rows[1:])
	if err != nil {
		return err
	}
	if opts.Year != 0 {
		steps = reindexYear(steps, opts.Year)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, row := range rows[1:] {
		out := make([]string, len(row))
		out[0] = steps[i].Format(outputFormat)
		for j, cell := range row[1:] {
			scaled, err := scaleCell(cell, opts.Scale)
			if err != nil {
				return fmt.Errorf("row %d, column %s: %w", i+2, header[j+1], err)
			}
			out[j+1] = scaled
		}
		if err := cw.Write(out); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush demand table: %w", err)
	}
	return nil
}

// normalizeHeader keeps the index column name and converts every country
// name to its alpha-3 code.
func normalizeHeader(header []string, aliases map[string]string) ([]string, error) {
	if len(header) < 2 {
		return nil, errors.New("demand table needs an index column and at least one country column")
	}
	out := make([]string, len(header))
	out[0] = strings.TrimSpace(header[0])
	for i, name := range header[1:] {
		code, err := domain.NormalizeCountryName(name, aliases)
		if err != nil {
			return nil, fmt.Errorf("column %d: %w", i+2, err)
		}
		out[i+1] = string(code)
	}
	return out, nil
}

func parseSteps(rows [][]string) ([]time.Time, error) {
	steps := make([]time.Time, len(rows))
	for i, row := range rows {
		if len(row) == 0 {
			return nil, fmt.Errorf("row %d is empty", i+2)
		}
		ts, err := time.Parse(inputFormat, strings.TrimSpace(row[0]))
		if err != nil {
			return nil, fmt.Errorf("row %d: parse timestep %q: %w", i+2, row[0], err)
		}
		steps[i] = ts
	}
	return steps, nil
}

// reindexYear shifts every timestamp by the whole-day offset between the
// source year's start and the target year's start, preserving time of day.
func reindexYear(steps []time.Time, year int) []time.Time {
	if len(steps) == 0 {
		return steps
	}
	src := time.Date(steps[0].Year(), 1, 1, 0, 0, 0, 0, time.UTC)
	dst := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
	delta := dst.Sub(src)

	out := make([]time.Time, len(steps))
	for i, ts := range steps {
		out[i] = ts.Add(delta)
	}
	return out
}

// scaleCell scales one value; empty cells (missing readings) pass through.
func scaleCell(cell string, scale float64) (string, error) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return "", nil
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return "", fmt.Errorf("parse value %q: %w", cell, err)
	}
	return strconv.FormatFloat(v*scale, 'f', -1, 64), nil
}
