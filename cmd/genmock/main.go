// Command genmock generates a self-consistent fixture set from a YAML
// scenario: a plant registry CSV, a basin GeoJSON, a runoff cutout bundle,
// and the expected result tables. Expected inflows are computed with the
// actual domain, basin, and inflow packages so fixtures always match real
// pipeline behavior.
//
// Usage:
//
//	go run ./cmd/genmock -scenario data/mock/scenario.yaml -out data/mock
package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/tarnmoor/hydro-inflow-etl/internal/adapter/csvout"
	"github.com/tarnmoor/hydro-inflow-etl/internal/adapter/era5"
	"github.com/tarnmoor/hydro-inflow-etl/internal/adapter/hybas"
	"github.com/tarnmoor/hydro-inflow-etl/internal/adapter/jrc"
	"github.com/tarnmoor/hydro-inflow-etl/internal/basin"
	"github.com/tarnmoor/hydro-inflow-etl/internal/domain"
	"github.com/tarnmoor/hydro-inflow-etl/internal/inflow"
	"github.com/tarnmoor/hydro-inflow-etl/internal/observability"
	"github.com/tarnmoor/hydro-inflow-etl/internal/pipeline"
	"gopkg.in/yaml.v3"
)

// scenario describes the synthetic world to generate: a uniform grid with
// constant per-cell runoff rates, rectangular basins, and a plant registry.
type scenario struct {
	Year  int `yaml:"year"`
	Steps int `yaml:"steps"`
	Grid  struct {
		OriginLon float64 `yaml:"origin_lon"` // west edge
		OriginLat float64 `yaml:"origin_lat"` // south edge
		Cols      int     `yaml:"cols"`
		Rows      int     `yaml:"rows"`
		CellSize  float64 `yaml:"cell_size"` // degrees
	} `yaml:"grid"`
	Runoff []struct {
		Row  int     `yaml:"row"`
		Col  int     `yaml:"col"`
		Rate float64 `yaml:"rate"` // m³/s, constant over all steps
	} `yaml:"runoff"`
	Basins []struct {
		ID   string    `yaml:"id"`
		Rect []float64 `yaml:"rect"` // min_lon, min_lat, max_lon, max_lat
	} `yaml:"basins"`
	Plants []struct {
		ID       string  `yaml:"id"`
		Name     string  `yaml:"name"`
		Country  string  `yaml:"country"`
		Type     string  `yaml:"type"`
		Lat      float64 `yaml:"lat"`
		Lon      float64 `yaml:"lon"`
		Capacity float64 `yaml:"capacity_mw"`
	} `yaml:"plants"`
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	scenarioPath := flag.String("scenario", "", "path to the YAML scenario")
	outDir := flag.String("out", "", "output directory for the fixture set")
	flag.Parse()

	if *scenarioPath == "" || *outDir == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -scenario, -out")
	}

	sc, err := loadScenario(*scenarioPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	stationsPath := filepath.Join(*outDir, "stations.csv")
	basinsPath := filepath.Join(*outDir, "basins.geojson")
	cutoutPath := filepath.Join(*outDir, fmt.Sprintf("cutout_%d.json", sc.Year))

	if err := writeStations(stationsPath, sc); err != nil {
		return err
	}
	log.Printf("wrote %s: %d plants", stationsPath, len(sc.Plants))

	if err := writeBasins(basinsPath, sc); err != nil {
		return err
	}
	log.Printf("wrote %s: %d basins", basinsPath, len(sc.Basins))

	if err := writeCutout(cutoutPath, sc); err != nil {
		return err
	}
	log.Printf("wrote %s: %dx%d grid, %d steps", cutoutPath, sc.Grid.Rows, sc.Grid.Cols, sc.Steps)

	// Fix the clock so manifest timestamps are reproducible.
	domain.SetClock(clockwork.NewFakeClockAt(
		time.Date(sc.Year+1, time.January, 15, 6, 0, 0, 0, time.UTC),
	))
	defer domain.SetClock(nil)

	res, err := deriveExpected(sc, stationsPath, basinsPath, cutoutPath)
	if err != nil {
		return err
	}
	if err := csvout.NewWriter(*outDir, discardLogger()).WriteResult(context.Background(), res); err != nil {
		return fmt.Errorf("write expected tables: %w", err)
	}
	log.Printf("wrote expected tables: inflow_%d.csv, plants_%d.csv, manifest_%d.json", sc.Year, sc.Year, sc.Year)

	printStats(res)
	return nil
}

func loadScenario(path string) (*scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	var sc scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}

	switch {
	case sc.Year == 0:
		return nil, fmt.Errorf("scenario: year is required")
	case sc.Steps < 2:
		return nil, fmt.Errorf("scenario: need at least 2 steps")
	case sc.Grid.Rows < 2 || sc.Grid.Cols < 2:
		return nil, fmt.Errorf("scenario: grid needs at least 2 rows and 2 cols")
	case sc.Grid.CellSize <= 0:
		return nil, fmt.Errorf("scenario: cell_size must be positive")
	case len(sc.Basins) == 0:
		return nil, fmt.Errorf("scenario: at least one basin is required")
	case len(sc.Plants) == 0:
		return nil, fmt.Errorf("scenario: at least one plant is required")
	}
	for _, b := range sc.Basins {
		if len(b.Rect) != 4 {
			return nil, fmt.Errorf("scenario: basin %s: rect needs 4 values", b.ID)
		}
	}
	for _, r := range sc.Runoff {
		if r.Row < 0 || r.Row >= sc.Grid.Rows || r.Col < 0 || r.Col >= sc.Grid.Cols {
			return nil, fmt.Errorf("scenario: runoff cell (%d,%d) outside %dx%d grid", r.Row, r.Col, sc.Grid.Rows, sc.Grid.Cols)
		}
	}
	return &sc, nil
}

func writeStations(path string, sc *scenario) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create stations csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"id", "name", "country_code", "type", "lat", "lon", "installed_capacity_MW"}); err != nil {
		return err
	}
	for _, p := range sc.Plants {
		row := []string{
			p.ID,
			p.Name,
			p.Country,
			p.Type,
			strconv.FormatFloat(p.Lat, 'f', -1, 64),
			strconv.FormatFloat(p.Lon, 'f', -1, 64),
			strconv.FormatFloat(p.Capacity, 'f', -1, 64),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func writeBasins(path string, sc *scenario) error {
	fc := geojson.NewFeatureCollection()
	for _, b := range sc.Basins {
		rect := orb.Polygon{orb.Ring{
			{b.Rect[0], b.Rect[1]},
			{b.Rect[2], b.Rect[1]},
			{b.Rect[2], b.Rect[3]},
			{b.Rect[0], b.Rect[3]},
			{b.Rect[0], b.Rect[1]},
		}}
		feat := geojson.NewFeature(rect)
		feat.Properties["HYBAS_ID"] = b.ID
		fc.Append(feat)
	}
	data, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode basins geojson: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0o600)
}

func writeCutout(path string, sc *scenario) error {
	steps := make([]time.Time, sc.Steps)
	start := time.Date(sc.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
	for i := range steps {
		steps[i] = start.Add(time.Duration(i) * time.Hour)
	}

	lat := make([]float64, sc.Grid.Rows)
	for row := range lat {
		lat[row] = sc.Grid.OriginLat + (float64(row)+0.5)*sc.Grid.CellSize
	}
	lon := make([]float64, sc.Grid.Cols)
	for col := range lon {
		lon[col] = sc.Grid.OriginLon + (float64(col)+0.5)*sc.Grid.CellSize
	}

	rates := make([]float64, sc.Grid.Rows*sc.Grid.Cols)
	for _, r := range sc.Runoff {
		rates[r.Row*sc.Grid.Cols+r.Col] = r.Rate
	}
	runoff := make([][]float64, len(rates))
	for cell, rate := range rates {
		values := make([]float64, sc.Steps)
		for t := range values {
			values[t] = rate
		}
		runoff[cell] = values
	}

	return era5.WriteBundle(path, steps, lat, lon, runoff)
}

// deriveExpected reloads the just-written fixtures through the real adapters
// and derives the expected series with the real assignment and extraction
// code, so the fixture files and the expected tables cannot drift apart.
func deriveExpected(sc *scenario, stationsPath, basinsPath, cutoutPath string) (*pipeline.Result, error) {
	ctx := context.Background()
	logger := discardLogger()
	metrics := observability.NewMetricsForTesting()

	recs, err := jrc.NewSource(stationsPath, logger).Stations(ctx)
	if err != nil {
		return nil, err
	}
	plants, err := domain.NormalizeStations(recs, domain.NewCountryNormalizer(domain.DefaultCountryOverrides))
	if err != nil {
		return nil, err
	}

	basins, err := hybas.NewSource(basinsPath, logger).Basins(ctx)
	if err != nil {
		return nil, err
	}
	index := basin.NewIndex(basins, logger, metrics)

	cut, err := era5.NewSource(cutoutPath, "", logger).Cutout(ctx)
	if err != nil {
		return nil, err
	}
	extractor := inflow.NewExtractor(cut, logger, metrics)

	now := domain.Clock().Now().UTC()
	res := &pipeline.Result{
		RunID:      fmt.Sprintf("fixture-%d", sc.Year),
		Year:       sc.Year,
		Plants:     plants,
		Series:     make(map[string]domain.InflowSeries, len(plants)),
		StartedAt:  now,
		FinishedAt: now,
	}
	for _, plant := range plants {
		b, err := index.Assign(plant.Location)
		if err != nil {
			res.Failures = append(res.Failures, pipeline.Failure{PlantID: plant.ID, Stage: pipeline.StageAssign, Err: err})
			continue
		}
		steps, volumes, err := extractor.Extract(b, sc.Year)
		if err != nil {
			res.Failures = append(res.Failures, pipeline.Failure{PlantID: plant.ID, Stage: pipeline.StageExtract, Err: err})
			continue
		}
		res.Series[plant.ID] = domain.InflowSeries{
			PlantID:    plant.ID,
			BasinID:    b.ID,
			Country:    plant.Country,
			Type:       plant.Type,
			CapacityMW: plant.CapacityMW,
			Steps:      steps,
			Volumes:    volumes,
		}
	}
	return res, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func printStats(res *pipeline.Result) {
	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Plants retained: %d, series derived: %d, failures: %d\n",
		len(res.Plants), len(res.Series), len(res.Failures))

	for _, s := range res.OrderedSeries() {
		fmt.Printf("  %s: basin=%s country=%s type=%s steps=%d first=%g total=%g m³\n",
			s.PlantID, s.BasinID, s.Country, s.Type, s.Len(), s.Volumes[0], s.Total())
	}
	for _, f := range res.Failures {
		fmt.Printf("  %s: failed at %s: %v\n", f.PlantID, f.Stage, f.Err)
	}
}
