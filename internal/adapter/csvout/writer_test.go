package csvout

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tarnmoor/hydro-inflow-etl/internal/domain"
	"github.com/tarnmoor/hydro-inflow-etl/internal/pipeline"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func testResult() *pipeline.Result {
	steps := []time.Time{
		time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2019, 1, 1, 1, 0, 0, 0, time.UTC),
	}
	return &pipeline.Result{
		RunID: "run-123",
		Year:  2019,
		Plants: []domain.Plant{
			{ID: "P1", Country: "AUT", Type: domain.RunOfRiver, CapacityMW: 12.5},
			{ID: "POUT", Country: "CHE", Type: domain.RunOfRiver},
			{ID: "P2", Country: "GRC", Type: domain.Reservoir, CapacityMW: 833},
		},
		Series: map[string]domain.InflowSeries{
			"P1": {
				PlantID: "P1", BasinID: "B1", Country: "AUT", Type: domain.RunOfRiver,
				CapacityMW: 12.5, Steps: steps, Volumes: []float64{36000, 18000.5},
			},
			"P2": {
				PlantID: "P2", BasinID: "B1", Country: "GRC", Type: domain.Reservoir,
				CapacityMW: 833, Steps: steps, Volumes: []float64{0, 7200},
			},
		},
		Failures: []pipeline.Failure{
			{PlantID: "POUT", Stage: pipeline.StageAssign, Err: errors.New("no basin contains location")},
		},
		StartedAt:  time.Date(2026, 3, 1, 8, 30, 0, 0, time.UTC),
		FinishedAt: time.Date(2026, 3, 1, 8, 31, 0, 0, time.UTC),
	}
}

func TestWriteResult_InflowTable(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, NewWriter(dir, testLogger()).WriteResult(context.Background(), testResult()))

	rows := readCSV(t, filepath.Join(dir, "inflow_2019.csv"))

	require.Len(t, rows, 3)
	assert.Equal(t, []string{"time", "P1", "P2"}, rows[0])
	assert.Equal(t, []string{"2019-01-01 00:00", "36000", "0"}, rows[1])
	assert.Equal(t, []string{"2019-01-01 01:00", "18000.5", "7200"}, rows[2])
}

func TestWriteResult_PlantsTable(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, NewWriter(dir, testLogger()).WriteResult(context.Background(), testResult()))

	rows := readCSV(t, filepath.Join(dir, "plants_2019.csv"))

	require.Len(t, rows, 3)
	assert.Equal(t, []string{"id", "country_code", "plant_type", "basin_id", "capacity_mw"}, rows[0])
	assert.Equal(t, []string{"P1", "AUT", "hydro_run_of_river", "B1", "12.5"}, rows[1])
	assert.Equal(t, []string{"P2", "GRC", "hydro_reservoir", "B1", "833"}, rows[2])
}

func TestWriteResult_Manifest(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, NewWriter(dir, testLogger()).WriteResult(context.Background(), testResult()))

	data, err := os.ReadFile(filepath.Join(dir, "manifest_2019.json"))
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, "run-123", m["run_id"])
	assert.Equal(t, float64(2019), m["year"])
	assert.Equal(t, float64(3), m["plants"])
	assert.Equal(t, float64(2), m["series"])

	failures, ok := m["failures"].([]any)
	require.True(t, ok)
	require.Len(t, failures, 1)
	failure := failures[0].(map[string]any)
	assert.Equal(t, "POUT", failure["plant_id"])
	assert.Equal(t, "assign", failure["stage"])
	assert.Contains(t, failure["error"], "no basin")
}

func TestWriteResult_NoSeries(t *testing.T) {
	dir := t.TempDir()
	res := testResult()
	res.Series = nil
	res.Plants = nil

	require.NoError(t, NewWriter(dir, testLogger()).WriteResult(context.Background(), res))

	rows := readCSV(t, filepath.Join(dir, "inflow_2019.csv"))
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"time"}, rows[0])
}

func TestWriteResult_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out", "2019")

	require.NoError(t, NewWriter(dir, testLogger()).WriteResult(context.Background(), testResult()))

	_, err := os.Stat(filepath.Join(dir, "manifest_2019.json"))
	assert.NoError(t, err)
}
