// Package domain models hydropower plants, river basins, and gridded runoff
// data used to derive per-plant water inflow series.
//
// # Data Sources
//
// Plant stations come from the JRC hydro-power-database CSV export
// (https://github.com/energy-modelling-toolkit/hydro-power-database): one row
// per station with a national plant identifier, a two-letter country code, a
// technology type code, WGS-84 coordinates, and installed capacity.
//
// Basin polygons come from HydroBASINS (https://www.hydrosheds.org), keyed by
// HYBAS_ID. Runoff comes from an ERA5-derived cutout: a regular lon/lat grid
// with an hourly (or coarser) time axis and a runoff rate per cell.
//
// # Country Codes
//
// Source data uses two-letter codes with Eurostat quirks: Greece appears as
// "EL" and the United Kingdom as "UK", neither of which is the ISO-3166
// alpha-2 code. Normalization rewrites these through an explicit override
// table and resolves everything else via the ISO registry, producing
// canonical three-letter codes (GRC, GBR, ...). There is no fuzzy matching:
// a code either resolves or the load fails.
//
// # Plant Types
//
//	HROR → hydro_run_of_river
//	HDAM → hydro_reservoir
//	HPHS → pumped storage, outside the retained set
//
// Only run-of-river and reservoir stations receive inflow series; all other
// type codes are dropped silently during load. Dropping is a deliberate
// inclusion filter, not an error.
//
// # Units
//
// Cutout runoff is a rate in m³/s per grid cell. Inflow series are volumes in
// m³ per timestep: volume = rate × timestep length in seconds. A 10 m³/s cell
// under an hourly grid yields 36000 m³ per step. Timestamps are UTC.
//
// # Determinism
//
// Extraction is pure arithmetic over static inputs: the same stations,
// basins, and cutout always produce bit-for-bit identical series. Cell
// contributions are accumulated in ascending cell order to keep floating
// point summation reproducible.
package domain
