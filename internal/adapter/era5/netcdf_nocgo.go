//go:build !cgo

package era5

import (
	"fmt"

	"github.com/tarnmoor/hydro-inflow-etl/internal/domain"
)

// loadNetCDF needs the C netcdf library. Pure-Go builds can still run the
// pipeline from JSON bundles.
func loadNetCDF(path, _ string) (*domain.Cutout, error) {
	return nil, fmt.Errorf("cutout %s: netcdf support requires a cgo build", path)
}
