// Package basin assigns plant locations to river basin polygons.
package basin

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/tarnmoor/hydro-inflow-etl/internal/domain"
	"github.com/tarnmoor/hydro-inflow-etl/internal/observability"
	"github.com/tidwall/rtree"
)

// ErrNoBasinMatch reports a location outside every basin polygon.
var ErrNoBasinMatch = errors.New("no basin contains the location")

// Index answers point-in-basin queries. An R-tree over geometry bounds
// prunes candidates; exact containment runs against the polygons themselves.
// The index is read-only after construction and safe for concurrent use.
type Index struct {
	basins  []domain.Basin
	tree    rtree.RTreeG[int]
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewIndex builds an index over the given basins. Basins are copied and
// sorted by ID so that multi-match resolution has one fixed iteration order
// regardless of input order.
func NewIndex(basins []domain.Basin, logger *slog.Logger, metrics *observability.Metrics) *Index {
	sorted := make([]domain.Basin, len(basins))
	copy(sorted, basins)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	ix := &Index{basins: sorted, logger: logger, metrics: metrics}
	for i, b := range sorted {
		bound := b.Bound()
		ix.tree.Insert([2]float64{bound.Min[0], bound.Min[1]}, [2]float64{bound.Max[0], bound.Max[1]}, i)
	}
	metrics.BasinsIndexed.Set(float64(len(sorted)))
	return ix
}

// Len returns the number of indexed basins.
func (ix *Index) Len() int { return len(ix.basins) }

// Assign returns the basin containing the given lon/lat point.
//
// Zero matches wrap ErrNoBasinMatch. When polygons overlap and more than one
// contains the point, the basin with the smallest ID wins; the ambiguity is
// logged and counted rather than silently swallowed, since it usually means
// sliver overlaps in the basin dataset.
func (ix *Index) Assign(pt orb.Point) (domain.Basin, error) {
	q := [2]float64{pt[0], pt[1]}
	var candidates []int
	ix.tree.Search(q, q, func(_, _ [2]float64, i int) bool {
		candidates = append(candidates, i)
		return true
	})
	// Search order is unspecified; basins are ID-sorted, so index order is ID order.
	sort.Ints(candidates)

	var matches []int
	for _, i := range candidates {
		if planar.MultiPolygonContains(ix.basins[i].Geometry, pt) {
			matches = append(matches, i)
		}
	}

	if len(matches) == 0 {
		return domain.Basin{}, fmt.Errorf("location (%.4f, %.4f): %w", pt[0], pt[1], ErrNoBasinMatch)
	}

	winner := ix.basins[matches[0]]
	if len(matches) > 1 {
		ids := make([]string, len(matches))
		for i, m := range matches {
			ids[i] = ix.basins[m].ID
		}
		ix.logger.Warn("location contained by multiple basins",
			"lon", pt[0],
			"lat", pt[1],
			"basins", ids,
			"assigned", winner.ID,
		)
		ix.metrics.AmbiguousAssignments.Inc()
	}
	return winner, nil
}
