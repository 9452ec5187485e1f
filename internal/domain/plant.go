package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
)

// PlantType is the normalized technology name used in model outputs.
type PlantType string

const (
	RunOfRiver PlantType = "hydro_run_of_river"
	Reservoir  PlantType = "hydro_reservoir"
)

// ParsePlantType maps a raw JRC technology code to its normalized name.
// Matching is case-insensitive; ok is false for every code outside the
// retained set (HPHS pumped storage in particular).
func ParsePlantType(raw string) (PlantType, bool) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "HROR":
		return RunOfRiver, true
	case "HDAM":
		return Reservoir, true
	default:
		return "", false
	}
}

// StationRecord is one raw CSV row from the plant database, untyped exactly
// as read. Parsing and validation happen in NormalizeStations so that a bad
// row fails with its plant ID attached.
type StationRecord struct {
	ID          string
	Name        string
	CountryCode string // two-letter source code, possibly Eurostat-style
	Type        string // JRC code: HROR, HDAM, HPHS, ...
	Lat         string
	Lon         string
	CapacityMW  string
}

// Plant is a retained hydropower station after normalization.
type Plant struct {
	ID         string      `json:"id"`
	Name       string      `json:"name,omitempty"`
	Country    CountryCode `json:"country_code"`
	Type       PlantType   `json:"plant_type"`
	Location   orb.Point   `json:"location"` // lon/lat, WGS-84
	CapacityMW float64     `json:"capacity_mw"`
}

// PlantLoadError reports a station row that failed normalization. Err wraps
// the underlying cause (a country-code error, a coordinate parse failure, a
// duplicate ID).
type PlantLoadError struct {
	PlantID string
	Err     error
}

func (e *PlantLoadError) Error() string {
	return fmt.Sprintf("load plant %q: %v", e.PlantID, e.Err)
}

func (e *PlantLoadError) Unwrap() error { return e.Err }

// NormalizeStations converts raw station rows into retained plants.
//
// Every row's country code is normalized first, whether or not the row's
// type survives the filter: a single unknown or malformed code fails the
// whole load rather than producing partially-normalized output. Rows whose
// type is outside the retained set are then dropped silently. Input order is
// preserved for the rows that remain.
func NormalizeStations(recs []StationRecord, codes *CountryNormalizer) ([]Plant, error) {
	normalized := make([]CountryCode, len(recs))
	seen := make(map[string]struct{}, len(recs))
	for i, rec := range recs {
		if strings.TrimSpace(rec.ID) == "" {
			return nil, &PlantLoadError{PlantID: rec.ID, Err: fmt.Errorf("row %d has no plant id", i+1)}
		}
		if _, dup := seen[rec.ID]; dup {
			return nil, &PlantLoadError{PlantID: rec.ID, Err: errors.New("duplicate plant id")}
		}
		seen[rec.ID] = struct{}{}

		code, err := codes.Normalize(rec.CountryCode)
		if err != nil {
			return nil, &PlantLoadError{PlantID: rec.ID, Err: err}
		}
		normalized[i] = code
	}

	var plants []Plant //nolint:prealloc // most rows are typically filtered out
	for i, rec := range recs {
		typ, ok := ParsePlantType(rec.Type)
		if !ok {
			continue
		}

		lat, err := strconv.ParseFloat(strings.TrimSpace(rec.Lat), 64)
		if err != nil {
			return nil, &PlantLoadError{PlantID: rec.ID, Err: fmt.Errorf("parse lat %q: %w", rec.Lat, err)}
		}
		lon, err := strconv.ParseFloat(strings.TrimSpace(rec.Lon), 64)
		if err != nil {
			return nil, &PlantLoadError{PlantID: rec.ID, Err: fmt.Errorf("parse lon %q: %w", rec.Lon, err)}
		}

		plants = append(plants, Plant{
			ID:         rec.ID,
			Name:       strings.TrimSpace(rec.Name),
			Country:    normalized[i],
			Type:       typ,
			Location:   orb.Point{lon, lat},
			CapacityMW: parseFloatOrZero(rec.CapacityMW),
		})
	}
	return plants, nil
}

// parseFloatOrZero parses a string as float64, returning 0 on failure.
// Capacity is informational passthrough, so garbage degrades to zero instead
// of failing the load.
func parseFloatOrZero(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
