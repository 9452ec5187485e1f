// Command validate performs end-to-end integrity checks on a produced output
// directory: it reloads the run's inputs, checks the output tables' shape
// against them, recomputes every inflow value with the actual assignment and
// extraction code, and checks the series for numeric defects.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -stations data/mock/stations.csv \
//	  -basins data/mock/basins.geojson \
//	  -cutout data/mock/cutout_2019.json \
//	  -out data/mock \
//	  -year 2019
package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/tarnmoor/hydro-inflow-etl/internal/adapter/era5"
	"github.com/tarnmoor/hydro-inflow-etl/internal/adapter/hybas"
	"github.com/tarnmoor/hydro-inflow-etl/internal/adapter/jrc"
	"github.com/tarnmoor/hydro-inflow-etl/internal/basin"
	"github.com/tarnmoor/hydro-inflow-etl/internal/domain"
	"github.com/tarnmoor/hydro-inflow-etl/internal/inflow"
	"github.com/tarnmoor/hydro-inflow-etl/internal/observability"
)

const stepFormat = "2006-01-02 15:04"

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	stationsPath := flag.String("stations", "", "path to the plant registry CSV")
	basinsPath := flag.String("basins", "", "path to the basin polygons GeoJSON")
	cutoutPath := flag.String("cutout", "", "path to the runoff cutout (.nc or .json)")
	outDir := flag.String("out", "", "output directory to validate")
	year := flag.Int("year", 0, "calendar year of the run")
	runoffVar := flag.String("runoff-var", era5.DefaultRunoffVar, "NetCDF runoff variable name")
	flag.Parse()

	if *stationsPath == "" || *basinsPath == "" || *cutoutPath == "" || *outDir == "" || *year == 0 {
		flag.Usage()
		os.Exit(1)
	}

	os.Exit(run(*stationsPath, *basinsPath, *cutoutPath, *outDir, *year, *runoffVar))
}

// inputs holds the reloaded run inputs shared by all phases.
type inputs struct {
	plants    []domain.Plant
	index     *basin.Index
	cut       *domain.Cutout
	extractor *inflow.Extractor
	year      int
}

// inflowTable is the parsed inflow_<year>.csv.
type inflowTable struct {
	steps   []time.Time
	columns []string
	values  [][]float64 // [row][column]
}

func run(stationsPath, basinsPath, cutoutPath, outDir string, year int, runoffVar string) int {
	fmt.Println("=== Inflow Output Integrity Validation ===")
	fmt.Println()

	in, inputPhase := loadInputs(stationsPath, basinsPath, cutoutPath, year, runoffVar)

	phases := []*phase{inputPhase}
	var table *inflowTable
	if in != nil {
		var shapePhase *phase
		table, shapePhase = validateOutputShape(outDir, in)
		phases = append(phases,
			shapePhase,
			validateRecomputeParity(table, outDir, in),
			validateSeriesSanity(table),
		)
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-44s %s\n", p.name, status)
	}

	if in != nil && table != nil {
		printSummary(in, table)
	}

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Phase 1: Input Integrity ──
// The inputs must load and normalize exactly as a pipeline run would see them.

func loadInputs(stationsPath, basinsPath, cutoutPath string, year int, runoffVar string) (*inputs, *phase) {
	p := &phase{name: "Phase 1: Input Integrity"}
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	metrics := observability.NewMetricsForTesting()

	recs, err := jrc.NewSource(stationsPath, logger).Stations(ctx)
	if err != nil {
		p.errorf("load stations: %v", err)
		return nil, p
	}
	plants, err := domain.NormalizeStations(recs, domain.NewCountryNormalizer(domain.DefaultCountryOverrides))
	if err != nil {
		p.errorf("normalize stations: %v", err)
		return nil, p
	}
	if len(plants) == 0 {
		p.errorf("no hydro plants retained from %d rows", len(recs))
		return nil, p
	}

	basins, err := hybas.NewSource(basinsPath, logger).Basins(ctx)
	if err != nil {
		p.errorf("load basins: %v", err)
		return nil, p
	}

	cut, err := era5.NewSource(cutoutPath, runoffVar, logger).Cutout(ctx)
	if err != nil {
		p.errorf("load cutout: %v", err)
		return nil, p
	}
	if err := cut.Validate(); err != nil {
		p.errorf("cutout: %v", err)
		return nil, p
	}
	if _, _, err := cut.YearRange(year); err != nil {
		p.errorf("cutout: %v", err)
		return nil, p
	}

	return &inputs{
		plants:    plants,
		index:     basin.NewIndex(basins, logger, metrics),
		cut:       cut,
		extractor: inflow.NewExtractor(cut, logger, metrics),
		year:      year,
	}, p
}

// ── Phase 2: Output Shape ──
// The tables must be well-formed and consistent with the inputs.

func validateOutputShape(outDir string, in *inputs) (*inflowTable, *phase) {
	p := &phase{name: "Phase 2: Output Shape (tables)"}

	table := loadInflowTable(p, filepath.Join(outDir, fmt.Sprintf("inflow_%d.csv", in.year)))
	if table == nil {
		return nil, p
	}

	known := make(map[string]bool, len(in.plants))
	for _, plant := range in.plants {
		known[plant.ID] = true
	}
	seen := map[string]bool{}
	for _, id := range table.columns {
		if !known[id] {
			p.errorf("inflow column %q is not a retained plant", id)
		}
		if seen[id] {
			p.errorf("inflow column %q appears twice", id)
		}
		seen[id] = true
	}

	lo, hi, _ := in.cut.YearRange(in.year)
	if len(table.columns) > 0 && len(table.steps) != hi-lo {
		p.errorf("inflow has %d rows, cutout covers %d steps of %d", len(table.steps), hi-lo, in.year)
	}
	for i, ts := range table.steps {
		if i > 0 && !table.steps[i-1].Before(ts) {
			p.errorf("inflow row %d: timestamp %s not after previous", i+2, ts.Format(stepFormat))
		}
		if ts.Year() != in.year {
			p.errorf("inflow row %d: timestamp %s outside year %d", i+2, ts.Format(stepFormat), in.year)
		}
	}

	checkPlantsTable(p, filepath.Join(outDir, fmt.Sprintf("plants_%d.csv", in.year)), table, in)
	checkManifest(p, filepath.Join(outDir, fmt.Sprintf("manifest_%d.json", in.year)), table, in)
	return table, p
}

func loadInflowTable(p *phase, path string) *inflowTable {
	f, err := os.Open(path)
	if err != nil {
		p.errorf("open inflow table: %v", err)
		return nil
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		p.errorf("read inflow table: %v", err)
		return nil
	}
	if len(rows) == 0 {
		p.errorf("inflow table is empty")
		return nil
	}
	if rows[0][0] != "time" {
		p.errorf("inflow header starts with %q, want \"time\"", rows[0][0])
		return nil
	}

	table := &inflowTable{columns: rows[0][1:]}
	for i, row := range rows[1:] {
		ts, err := time.Parse(stepFormat, row[0])
		if err != nil {
			p.errorf("inflow row %d: bad timestamp %q", i+2, row[0])
			return nil
		}
		table.steps = append(table.steps, ts)

		values := make([]float64, len(row)-1)
		for j, cell := range row[1:] {
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				p.errorf("inflow row %d, column %s: bad value %q", i+2, table.columns[j], cell)
				return nil
			}
			values[j] = v
		}
		table.values = append(table.values, values)
	}
	return table
}

func checkPlantsTable(p *phase, path string, table *inflowTable, in *inputs) {
	f, err := os.Open(path)
	if err != nil {
		p.errorf("open plants table: %v", err)
		return
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		p.errorf("read plants table: %v", err)
		return
	}
	if len(rows) == 0 {
		p.errorf("plants table is empty")
		return
	}

	want := []string{"id", "country_code", "plant_type", "basin_id", "capacity_mw"}
	for i, col := range want {
		if i >= len(rows[0]) || rows[0][i] != col {
			p.errorf("plants header: want %v, got %v", want, rows[0])
			return
		}
	}

	if len(rows)-1 != len(table.columns) {
		p.errorf("plants table has %d rows, inflow has %d columns", len(rows)-1, len(table.columns))
		return
	}

	byID := make(map[string]domain.Plant, len(in.plants))
	for _, plant := range in.plants {
		byID[plant.ID] = plant
	}
	for i, row := range rows[1:] {
		if row[0] != table.columns[i] {
			p.errorf("plants row %d: id %q does not match inflow column %q", i+2, row[0], table.columns[i])
			continue
		}
		plant, ok := byID[row[0]]
		if !ok {
			continue // already reported against the inflow header
		}
		if row[1] != string(plant.Country) {
			p.errorf("plant %s: country %q, registry has %q", row[0], row[1], plant.Country)
		}
		if row[2] != string(plant.Type) {
			p.errorf("plant %s: type %q, registry has %q", row[0], row[2], plant.Type)
		}
		if capMW, err := strconv.ParseFloat(row[4], 64); err != nil || !floatEq(capMW, plant.CapacityMW) {
			p.errorf("plant %s: capacity %q, registry has %g", row[0], row[4], plant.CapacityMW)
		}
	}
}

func checkManifest(p *phase, path string, table *inflowTable, in *inputs) {
	data, err := os.ReadFile(path)
	if err != nil {
		p.errorf("read manifest: %v", err)
		return
	}
	var m struct {
		RunID    string `json:"run_id"`
		Year     int    `json:"year"`
		Plants   int    `json:"plants"`
		Series   int    `json:"series"`
		Failures []struct {
			PlantID string `json:"plant_id"`
		} `json:"failures"`
	}
	if err := json.Unmarshal(data, &m); err != nil {
		p.errorf("parse manifest: %v", err)
		return
	}

	if m.RunID == "" {
		p.errorf("manifest: run_id is empty")
	}
	if m.Year != in.year {
		p.errorf("manifest: year %d, want %d", m.Year, in.year)
	}
	if m.Plants != len(in.plants) {
		p.errorf("manifest: %d plants, registry retains %d", m.Plants, len(in.plants))
	}
	if m.Series != len(table.columns) {
		p.errorf("manifest: %d series, inflow has %d columns", m.Series, len(table.columns))
	}
	if m.Series+len(m.Failures) != m.Plants {
		p.errorf("manifest: %d series + %d failures != %d plants", m.Series, len(m.Failures), m.Plants)
	}
}

// ── Phase 3: Recompute Parity ──
// Every value in the table must equal a fresh assignment + extraction.

func validateRecomputeParity(table *inflowTable, outDir string, in *inputs) *phase {
	p := &phase{name: "Phase 3: Recompute Parity (values)"}
	if table == nil {
		p.errorf("skipped: inflow table failed to load")
		return p
	}

	basinByID := loadPlantBasins(p, filepath.Join(outDir, fmt.Sprintf("plants_%d.csv", in.year)))

	byID := make(map[string]domain.Plant, len(in.plants))
	for _, plant := range in.plants {
		byID[plant.ID] = plant
	}

	for col, id := range table.columns {
		plant, ok := byID[id]
		if !ok {
			continue // already reported in phase 2
		}
		b, err := in.index.Assign(plant.Location)
		if err != nil {
			p.errorf("plant %s: assignment failed on recompute: %v", id, err)
			continue
		}
		if wantBasin, ok := basinByID[id]; ok && wantBasin != b.ID {
			p.errorf("plant %s: basin %s in table, recompute assigns %s", id, wantBasin, b.ID)
		}

		_, volumes, err := in.extractor.Extract(b, in.year)
		if err != nil {
			p.errorf("plant %s: extraction failed on recompute: %v", id, err)
			continue
		}
		if len(volumes) != len(table.steps) {
			p.errorf("plant %s: recompute yields %d steps, table has %d", id, len(volumes), len(table.steps))
			continue
		}
		for row := range volumes {
			if !floatEq(volumes[row], table.values[row][col]) {
				p.errorf("plant %s, step %s: table=%g, recompute=%g",
					id, table.steps[row].Format(stepFormat), table.values[row][col], volumes[row])
				break // one mismatch per plant is enough noise
			}
		}
	}
	return p
}

func loadPlantBasins(p *phase, path string) map[string]string {
	out := map[string]string{}
	f, err := os.Open(path)
	if err != nil {
		return out // phase 2 already reported
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil || len(rows) < 1 {
		return out
	}
	for _, row := range rows[1:] {
		if len(row) >= 4 {
			out[row[0]] = row[3]
		}
	}
	return out
}

// ── Phase 4: Series Sanity ──
// Volumes are physical quantities: finite and non-negative.

func validateSeriesSanity(table *inflowTable) *phase {
	p := &phase{name: "Phase 4: Series Sanity (numeric)"}
	if table == nil {
		p.errorf("skipped: inflow table failed to load")
		return p
	}

	for col, id := range table.columns {
		for row := range table.values {
			v := table.values[row][col]
			switch {
			case math.IsNaN(v):
				p.errorf("plant %s, row %d: NaN volume", id, row+2)
			case math.IsInf(v, 0):
				p.errorf("plant %s, row %d: infinite volume", id, row+2)
			case v < 0:
				p.errorf("plant %s, row %d: negative volume %g", id, row+2, v)
			}
		}
	}
	return p
}

// ── Helpers ──

func printSummary(in *inputs, table *inflowTable) {
	fmt.Println()
	fmt.Printf("Plants: %d retained, %d with series; %d steps of %d\n",
		len(in.plants), len(table.columns), len(table.steps), in.year)

	for col, id := range table.columns {
		column := make([]float64, len(table.values))
		for row := range table.values {
			column[row] = table.values[row][col]
		}
		mean := stat.Mean(column, nil)
		sd := stat.StdDev(column, nil)
		fmt.Printf("  %s: mean %.1f m³/step, stddev %.1f\n", id, mean, sd)
	}
}

func floatEq(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}
