// Package hybas loads HydroBASINS catchment polygons from a GeoJSON
// FeatureCollection export.
package hybas

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/tarnmoor/hydro-inflow-etl/internal/domain"
)

// Source loads basins from a GeoJSON file on disk.
// It implements pipeline.BasinSource.
type Source struct {
	path   string
	logger *slog.Logger
}

// NewSource creates a basin source for the given GeoJSON file.
func NewSource(path string, logger *slog.Logger) *Source {
	return &Source{path: path, logger: logger}
}

// Basins reads every feature of the collection. Each feature must carry a
// HYBAS_ID (or id) property and a Polygon or MultiPolygon geometry.
func (s *Source) Basins(_ context.Context) ([]domain.Basin, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read basins geojson: %w", err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parse basins geojson: %w", err)
	}
	if len(fc.Features) == 0 {
		return nil, fmt.Errorf("basins geojson %s: no features", s.path)
	}

	basins := make([]domain.Basin, 0, len(fc.Features))
	seen := make(map[string]struct{}, len(fc.Features))
	for i, feat := range fc.Features {
		id, err := featureID(feat, i)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("duplicate basin id %q", id)
		}
		seen[id] = struct{}{}

		var geom orb.MultiPolygon
		switch g := feat.Geometry.(type) {
		case orb.Polygon:
			geom = orb.MultiPolygon{g}
		case orb.MultiPolygon:
			geom = g
		default:
			return nil, fmt.Errorf("basin %s: unsupported geometry %T", id, feat.Geometry)
		}
		basins = append(basins, domain.Basin{ID: id, Geometry: geom})
	}

	s.logger.Debug("basins loaded", "path", s.path, "count", len(basins))
	return basins, nil
}

// featureID resolves the basin identifier. HydroBASINS encodes HYBAS_ID as a
// JSON number, so numeric values are formatted without an exponent.
func featureID(feat *geojson.Feature, index int) (string, error) {
	for _, key := range []string{"HYBAS_ID", "id"} {
		if v, ok := feat.Properties[key]; ok {
			return formatID(v), nil
		}
	}
	if feat.ID != nil {
		return formatID(feat.ID), nil
	}
	return "", fmt.Errorf("basins geojson: feature %d has no HYBAS_ID or id", index)
}

func formatID(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	default:
		return fmt.Sprint(id)
	}
}
