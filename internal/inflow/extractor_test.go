package inflow

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tarnmoor/hydro-inflow-etl/internal/domain"
	"github.com/tarnmoor/hydro-inflow-etl/internal/observability"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func hourlySteps(start time.Time, n int) []time.Time {
	steps := make([]time.Time, n)
	for i := range steps {
		steps[i] = start.Add(time.Duration(i) * time.Hour)
	}
	return steps
}

// testCutout builds an nx × ny one-degree grid anchored at (originLon,
// originLat) with a constant runoff rate per cell.
func testCutout(steps []time.Time, originLon, originLat float64, nx, ny int, rate func(row, col int) float64) *domain.Cutout {
	cut := &domain.Cutout{Steps: steps}
	for row := 0; row < ny; row++ {
		for col := 0; col < nx; col++ {
			w := originLon + float64(col)
			s := originLat + float64(row)
			cut.Cells = append(cut.Cells, domain.Cell{
				Row:   row,
				Col:   col,
				Bound: orb.Bound{Min: orb.Point{w, s}, Max: orb.Point{w + 1, s + 1}},
			})
			values := make([]float64, len(steps))
			for t := range values {
				values[t] = rate(row, col)
			}
			cut.Runoff = append(cut.Runoff, values)
		}
	}
	return cut
}

func rect(id string, minLon, minLat, maxLon, maxLat float64) domain.Basin {
	ring := orb.Ring{
		{minLon, minLat},
		{maxLon, minLat},
		{maxLon, maxLat},
		{minLon, maxLat},
		{minLon, minLat},
	}
	return domain.Basin{ID: id, Geometry: orb.MultiPolygon{{ring}}}
}

func TestExtractSingleCellFullyCovered(t *testing.T) {
	// One cell at 10 m³/s under an hourly axis: every step must carry
	// 10 × 3600 = 36000 m³.
	steps := hourlySteps(time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC), 24)
	cut := testCutout(steps, 14, 46, 1, 1, func(_, _ int) float64 { return 10 })
	e := NewExtractor(cut, testLogger(), observability.NewMetricsForTesting())

	basin := rect("wide", 13.5, 45.5, 15.5, 47.5)
	gotSteps, volumes, err := e.Extract(basin, 2019)

	require.NoError(t, err)
	require.Len(t, volumes, 24)
	assert.Equal(t, steps, gotSteps)
	for i, v := range volumes {
		assert.InDelta(t, 36000.0, v, 1e-6, "step %d", i)
	}
}

func TestExtractPartialOverlap(t *testing.T) {
	// Basin covers the western half of the single cell; at constant latitude
	// span the area fraction is the longitude fraction.
	steps := hourlySteps(time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC), 4)
	cut := testCutout(steps, 0, 45, 1, 1, func(_, _ int) float64 { return 10 })
	e := NewExtractor(cut, testLogger(), observability.NewMetricsForTesting())

	basin := rect("half", 0, 45, 0.5, 46)
	_, volumes, err := e.Extract(basin, 2019)

	require.NoError(t, err)
	for _, v := range volumes {
		assert.InDelta(t, 18000.0, v, 1e-6)
	}
}

func TestExtractSpansMultipleCells(t *testing.T) {
	steps := hourlySteps(time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC), 6)
	rates := map[[2]int]float64{{0, 0}: 10, {0, 1}: 20}
	cut := testCutout(steps, 0, 45, 2, 1, func(row, col int) float64 { return rates[[2]int{row, col}] })
	e := NewExtractor(cut, testLogger(), observability.NewMetricsForTesting())

	basin := rect("both", -0.5, 44.5, 2.5, 46.5)
	_, volumes, err := e.Extract(basin, 2019)

	require.NoError(t, err)
	for _, v := range volumes {
		assert.InDelta(t, 108000.0, v, 1e-6)
	}
}

func TestExtractZeroRunoffKept(t *testing.T) {
	steps := hourlySteps(time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC), 3)
	cut := testCutout(steps, 0, 45, 1, 1, func(_, _ int) float64 { return 0 })
	e := NewExtractor(cut, testLogger(), observability.NewMetricsForTesting())

	_, volumes, err := e.Extract(rect("dry", -1, 44, 2, 47), 2019)

	require.NoError(t, err)
	require.Len(t, volumes, 3)
	for _, v := range volumes {
		assert.Equal(t, 0.0, v)
	}
}

func TestExtractEmptyOverlap(t *testing.T) {
	steps := hourlySteps(time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC), 3)
	cut := testCutout(steps, 0, 45, 2, 2, func(_, _ int) float64 { return 5 })
	e := NewExtractor(cut, testLogger(), observability.NewMetricsForTesting())

	far := rect("far", 120, 10, 121, 11)
	_, _, err := e.Extract(far, 2019)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptyOverlap)
	assert.Contains(t, err.Error(), "far")

	// The empty result is cached and keeps failing.
	_, _, err = e.Extract(far, 2019)
	assert.ErrorIs(t, err, ErrEmptyOverlap)
	ws, ok := e.weights["far"]
	assert.True(t, ok)
	assert.Empty(t, ws)
}

func TestExtractDeterministic(t *testing.T) {
	steps := hourlySteps(time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC), 48)
	cut := testCutout(steps, 5, 44, 4, 3, func(row, col int) float64 {
		return 0.37*float64(row+1) + 1.91*float64(col)
	})
	basin := rect("alps", 5.3, 44.2, 8.7, 46.9)

	first := NewExtractor(cut, testLogger(), observability.NewMetricsForTesting())
	_, a, err := first.Extract(basin, 2019)
	require.NoError(t, err)

	// Same extractor again (cached weights) and a fresh extractor
	// (recomputed weights) must both reproduce the series bit for bit.
	_, b, err := first.Extract(basin, 2019)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	second := NewExtractor(cut, testLogger(), observability.NewMetricsForTesting())
	_, c, err := second.Extract(basin, 2019)
	require.NoError(t, err)
	assert.Equal(t, a, c)
}

func TestExtractWeightsComputedOnce(t *testing.T) {
	steps := hourlySteps(time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC), 3)
	cut := testCutout(steps, 0, 45, 2, 2, func(_, _ int) float64 { return 1 })
	e := NewExtractor(cut, testLogger(), observability.NewMetricsForTesting())

	basin := rect("b1", -1, 44, 3, 48)
	_, _, err := e.Extract(basin, 2019)
	require.NoError(t, err)
	require.Len(t, e.weights, 1)

	cached := e.weights["b1"]
	_, _, err = e.Extract(basin, 2019)
	require.NoError(t, err)
	assert.Len(t, e.weights, 1)
	// Same backing slice, not a recompute.
	assert.Same(t, &cached[0], &e.weights["b1"][0])
}

func TestExtractYearSlicing(t *testing.T) {
	// Axis runs 2018-12-31 20:00 .. 2019-01-01 07:00.
	steps := hourlySteps(time.Date(2018, 12, 31, 20, 0, 0, 0, time.UTC), 12)
	cut := testCutout(steps, 0, 45, 1, 1, func(_, _ int) float64 { return 2 })
	e := NewExtractor(cut, testLogger(), observability.NewMetricsForTesting())

	basin := rect("b", -1, 44, 2, 47)

	gotSteps, volumes, err := e.Extract(basin, 2019)
	require.NoError(t, err)
	require.Len(t, volumes, 8)
	assert.Equal(t, 2019, gotSteps[0].Year())
	assert.Equal(t, time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC), gotSteps[0])

	_, _, err = e.Extract(basin, 2021)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2021")
}
