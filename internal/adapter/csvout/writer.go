// Package csvout writes pipeline results as the model-ready file set: one
// wide inflow table, one plant attribute table, one run manifest.
package csvout

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/tarnmoor/hydro-inflow-etl/internal/domain"
	"github.com/tarnmoor/hydro-inflow-etl/internal/pipeline"
)

// stepFormat matches the timestamp convention of the downstream model's
// timeseries tables.
const stepFormat = "2006-01-02 15:04"

// Writer persists a run's outputs under a single directory.
// It implements pipeline.ResultWriter.
type Writer struct {
	dir    string
	logger *slog.Logger
}

// NewWriter creates a result writer rooted at dir. The directory is created
// on first write.
func NewWriter(dir string, logger *slog.Logger) *Writer {
	return &Writer{dir: dir, logger: logger}
}

// WriteResult writes inflow_<year>.csv, plants_<year>.csv and
// manifest_<year>.json. Columns follow the registry's input order, so
// repeated runs produce byte-identical tables.
func (w *Writer) WriteResult(_ context.Context, res *pipeline.Result) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	series := res.OrderedSeries()
	if err := w.writeInflow(res.Year, series); err != nil {
		return err
	}
	if err := w.writePlants(res.Year, series); err != nil {
		return err
	}
	if err := w.writeManifest(res); err != nil {
		return err
	}

	w.logger.Debug("result written",
		"dir", w.dir,
		"year", res.Year,
		"series", len(series),
		"failures", len(res.Failures),
	)
	return nil
}

// writeInflow writes the wide table: one row per timestep, one column per
// plant, volumes in m³ per step.
func (w *Writer) writeInflow(year int, series []domain.InflowSeries) error {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)

	header := make([]string, 0, len(series)+1)
	header = append(header, "time")
	for _, s := range series {
		header = append(header, s.PlantID)
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write inflow header: %w", err)
	}

	var steps []time.Time
	if len(series) > 0 {
		steps = series[0].Steps
	}
	row := make([]string, len(series)+1)
	for t, ts := range steps {
		row[0] = ts.UTC().Format(stepFormat)
		for i, s := range series {
			row[i+1] = strconv.FormatFloat(s.Volumes[t], 'f', -1, 64)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write inflow row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush inflow csv: %w", err)
	}

	path := filepath.Join(w.dir, fmt.Sprintf("inflow_%d.csv", year))
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// writePlants writes per-plant attributes for the plants that produced a
// series, in the same order as the inflow columns.
func (w *Writer) writePlants(year int, series []domain.InflowSeries) error {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)

	if err := cw.Write([]string{"id", "country_code", "plant_type", "basin_id", "capacity_mw"}); err != nil {
		return fmt.Errorf("write plants header: %w", err)
	}
	for _, s := range series {
		row := []string{
			s.PlantID,
			string(s.Country),
			string(s.Type),
			s.BasinID,
			strconv.FormatFloat(s.CapacityMW, 'f', -1, 64),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write plants row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush plants csv: %w", err)
	}

	path := filepath.Join(w.dir, fmt.Sprintf("plants_%d.csv", year))
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

type manifestFailure struct {
	PlantID string `json:"plant_id"`
	Stage   string `json:"stage"`
	Error   string `json:"error"`
}

type manifest struct {
	RunID      string            `json:"run_id"`
	Year       int               `json:"year"`
	Plants     int               `json:"plants"`
	Series     int               `json:"series"`
	Failures   []manifestFailure `json:"failures"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
}

func (w *Writer) writeManifest(res *pipeline.Result) error {
	m := manifest{
		RunID:      res.RunID,
		Year:       res.Year,
		Plants:     len(res.Plants),
		Series:     len(res.Series),
		Failures:   make([]manifestFailure, 0, len(res.Failures)),
		StartedAt:  res.StartedAt,
		FinishedAt: res.FinishedAt,
	}
	for _, f := range res.Failures {
		m.Failures = append(m.Failures, manifestFailure{
			PlantID: f.PlantID,
			Stage:   f.Stage,
			Error:   f.Err.Error(),
		})
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	path := filepath.Join(w.dir, fmt.Sprintf("manifest_%d.json", res.Year))
	if err := os.WriteFile(path, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
