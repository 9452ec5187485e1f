package era5

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/paulmach/orb"
	"github.com/tarnmoor/hydro-inflow-etl/internal/domain"
)

// assembleCutout turns center-point axes and a [cell][step] runoff matrix
// into a validated cutout. Cells are enumerated row-major over (lat, lon)
// axis indices, matching the flattening order of the decoders.
func assembleCutout(steps []time.Time, lat, lon []float64, runoff [][]float64) (*domain.Cutout, error) {
	latEdges, err := axisEdges(lat)
	if err != nil {
		return nil, fmt.Errorf("lat axis: %w", err)
	}
	lonEdges, err := axisEdges(lon)
	if err != nil {
		return nil, fmt.Errorf("lon axis: %w", err)
	}
	if want := len(lat) * len(lon); len(runoff) != want {
		return nil, fmt.Errorf("runoff has %d cells, axes imply %d", len(runoff), want)
	}

	cells := make([]domain.Cell, 0, len(lat)*len(lon))
	for row := range lat {
		for col := range lon {
			cells = append(cells, domain.Cell{
				Row:   row,
				Col:   col,
				Bound: cellBound(lonEdges[col], lonEdges[col+1], latEdges[row], latEdges[row+1]),
			})
		}
	}

	cut := &domain.Cutout{Steps: steps, Cells: cells, Runoff: runoff}
	if err := cut.Validate(); err != nil {
		return nil, err
	}
	return cut, nil
}

// axisEdges derives cell boundaries from center points: interior edges are
// midpoints, end edges extrapolate the adjacent spacing. The axis may run in
// either direction (ERA5 latitude is typically descending) but must be
// strictly monotonic.
func axisEdges(centers []float64) ([]float64, error) {
	if len(centers) < 2 {
		return nil, errors.New("need at least two points to infer cell size")
	}
	asc := centers[1] > centers[0]
	for i := 1; i < len(centers); i++ {
		if centers[i] == centers[i-1] || (centers[i] > centers[i-1]) != asc {
			return nil, errors.New("axis is not strictly monotonic")
		}
	}

	edges := make([]float64, len(centers)+1)
	for i := 1; i < len(centers); i++ {
		edges[i] = (centers[i-1] + centers[i]) / 2
	}
	edges[0] = centers[0] - (edges[1] - centers[0])
	edges[len(centers)] = centers[len(centers)-1] + (centers[len(centers)-1] - edges[len(centers)-1])
	return edges, nil
}

func cellBound(lonA, lonB, latA, latB float64) orb.Bound {
	return orb.Bound{
		Min: orb.Point{math.Min(lonA, lonB), math.Min(latA, latB)},
		Max: orb.Point{math.Max(lonA, lonB), math.Max(latA, latB)},
	}
}

// era5Epoch anchors the cutout time axis. ERA5-derived exports encode time
// as hours since 1900-01-01 00:00:00 UTC.
var era5Epoch = time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)

// decodeTimes converts an hours-since-epoch axis to UTC timestamps, rounded
// to whole seconds so float noise cannot leak into formatted output.
func decodeTimes(hours []float64) []time.Time {
	steps := make([]time.Time, len(hours))
	for i, h := range hours {
		steps[i] = era5Epoch.Add(time.Duration(math.Round(h*3600)) * time.Second)
	}
	return steps
}

// transposeRunoff reorders a flattened (time, lat, lon) block into the
// [cell][step] layout extraction wants, cells row-major over (lat, lon).
func transposeRunoff(raw []float64, nTime, nLat, nLon int) [][]float64 {
	cells := nLat * nLon
	runoff := make([][]float64, cells)
	for cell := range runoff {
		runoff[cell] = make([]float64, nTime)
	}
	for t := 0; t < nTime; t++ {
		base := t * cells
		for cell := 0; cell < cells; cell++ {
			runoff[cell][t] = raw[base+cell]
		}
	}
	return runoff
}
