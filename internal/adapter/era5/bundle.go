package era5

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/tarnmoor/hydro-inflow-etl/internal/domain"
)

// bundle is the JSON fixture form of a cutout: the same center-point axes a
// NetCDF export carries, runoff flattened row-major over (lat, lon).
type bundle struct {
	Steps  []time.Time `json:"steps"`
	Lat    []float64   `json:"lat"`
	Lon    []float64   `json:"lon"`
	Runoff [][]float64 `json:"runoff"`
}

func loadBundle(path string) (*domain.Cutout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read cutout bundle: %w", err)
	}
	var b bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("parse cutout bundle: %w", err)
	}
	cut, err := assembleCutout(b.Steps, b.Lat, b.Lon, b.Runoff)
	if err != nil {
		return nil, fmt.Errorf("cutout bundle %s: %w", path, err)
	}
	return cut, nil
}

// WriteBundle writes a cutout bundle for fixture generation. Axes are center
// points; runoff is indexed [cell][step] with cells row-major over (lat, lon).
func WriteBundle(path string, steps []time.Time, lat, lon []float64, runoff [][]float64) error {
	// Assemble first so a malformed fixture fails at generation time, not
	// when the pipeline loads it.
	if _, err := assembleCutout(steps, lat, lon, runoff); err != nil {
		return fmt.Errorf("cutout bundle %s: %w", path, err)
	}
	data, err := json.MarshalIndent(bundle{Steps: steps, Lat: lat, Lon: lon, Runoff: runoff}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode cutout bundle: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write cutout bundle: %w", err)
	}
	return nil
}
