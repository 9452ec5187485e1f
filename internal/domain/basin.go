package domain

import "github.com/paulmach/orb"

// Basin is a hydrological catchment polygon, keyed by its HydroBASINS ID.
// Geometry is a multipolygon in lon/lat degrees; single-part basins are a
// multipolygon of one.
type Basin struct {
	ID       string
	Geometry orb.MultiPolygon
}

// Bound returns the geometry's bounding box.
func (b Basin) Bound() orb.Bound { return b.Geometry.Bound() }
