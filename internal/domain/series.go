package domain

import (
	"time"

	"gonum.org/v1/gonum/floats"
)

// InflowSeries is the derived inflow series for one retained plant: exactly
// one per plant, derived from exactly one basin assignment. Volumes are m³
// per timestep, aligned index-for-index with Steps. Plant attributes ride
// along unchanged so downstream consumers need no second lookup.
type InflowSeries struct {
	PlantID    string      `json:"plant_id"`
	BasinID    string      `json:"basin_id"`
	Country    CountryCode `json:"country_code"`
	Type       PlantType   `json:"plant_type"`
	CapacityMW float64     `json:"capacity_mw"`
	Steps      []time.Time `json:"steps"`
	Volumes    []float64   `json:"volumes"`
}

// Len returns the number of timesteps in the series.
func (s InflowSeries) Len() int { return len(s.Volumes) }

// Total returns the summed inflow volume over the whole series in m³.
func (s InflowSeries) Total() float64 { return floats.Sum(s.Volumes) }
