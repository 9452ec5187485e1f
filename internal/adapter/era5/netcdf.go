//go:build cgo

package era5

import (
	"fmt"
	"strings"

	"github.com/fhs/go-netcdf/netcdf"
	"github.com/tarnmoor/hydro-inflow-etl/internal/domain"
)

// loadNetCDF reads an ERA5-style cutout: one-dimensional time/lat/lon axes
// and a runoff variable laid out (time, lat, lon). Values are read through
// the C library's numeric conversion, so the variable may be stored as
// float32 or float64; packed short variables must be exported unpacked.
func loadNetCDF(path, varName string) (*domain.Cutout, error) {
	ds, err := netcdf.OpenFile(path, netcdf.NOWRITE)
	if err != nil {
		return nil, fmt.Errorf("open cutout netcdf: %w", err)
	}
	defer ds.Close()

	hours, err := readAxis(ds, "time")
	if err != nil {
		return nil, err
	}
	lat, err := readAxis(ds, "lat", "latitude", "y")
	if err != nil {
		return nil, err
	}
	lon, err := readAxis(ds, "lon", "longitude", "x")
	if err != nil {
		return nil, err
	}

	v, err := ds.Var(varName)
	if err != nil {
		return nil, fmt.Errorf("cutout netcdf: variable %q: %w", varName, err)
	}
	dims, err := v.Dims()
	if err != nil {
		return nil, fmt.Errorf("cutout netcdf: dims of %q: %w", varName, err)
	}
	if len(dims) != 3 {
		return nil, fmt.Errorf("variable %q has %d dimensions, want 3 (time, lat, lon)", varName, len(dims))
	}
	for i, want := range []int{len(hours), len(lat), len(lon)} {
		n, err := dims[i].Len()
		if err != nil {
			return nil, fmt.Errorf("cutout netcdf: dim %d of %q: %w", i, varName, err)
		}
		if int(n) != want {
			name, _ := dims[i].Name()
			return nil, fmt.Errorf("variable %q dim %q has length %d, axis has %d", varName, name, n, want)
		}
	}

	raw := make([]float64, len(hours)*len(lat)*len(lon))
	if err := v.ReadFloat64s(raw); err != nil {
		return nil, fmt.Errorf("read %q: %w", varName, err)
	}

	cut, err := assembleCutout(
		decodeTimes(hours),
		lat, lon,
		transposeRunoff(raw, len(hours), len(lat), len(lon)),
	)
	if err != nil {
		return nil, fmt.Errorf("cutout netcdf %s: %w", path, err)
	}
	return cut, nil
}

// readAxis reads the first present one-dimensional variable among names.
func readAxis(ds netcdf.Dataset, names ...string) ([]float64, error) {
	for _, name := range names {
		v, err := ds.Var(name)
		if err != nil {
			continue
		}
		dims, err := v.Dims()
		if err != nil {
			return nil, fmt.Errorf("cutout netcdf: dims of %q: %w", name, err)
		}
		if len(dims) != 1 {
			return nil, fmt.Errorf("axis %q is not one-dimensional", name)
		}
		n, err := dims[0].Len()
		if err != nil {
			return nil, fmt.Errorf("cutout netcdf: length of %q: %w", name, err)
		}
		out := make([]float64, n)
		if err := v.ReadFloat64s(out); err != nil {
			return nil, fmt.Errorf("read axis %q: %w", name, err)
		}
		return out, nil
	}
	return nil, fmt.Errorf("cutout netcdf: no %s axis (tried %s)", names[0], strings.Join(names, ", "))
}
