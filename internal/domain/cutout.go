package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/paulmach/orb"
)

// Cell is one grid cell of a cutout: its position on the lat/lon axes and its
// footprint in lon/lat degrees.
type Cell struct {
	Row   int
	Col   int
	Bound orb.Bound
}

// Cutout is a gridded runoff dataset: a uniform ascending time axis, a set of
// cells, and a runoff rate in m³/s per cell per step. Runoff is indexed
// [cell][step], matching Cells and Steps. A cutout is read-only once loaded;
// extraction shares it across workers without copying.
type Cutout struct {
	Steps  []time.Time
	Cells  []Cell
	Runoff [][]float64
}

// Validate checks the structural invariants: at least two steps, a strictly
// ascending uniform time axis, and runoff dimensions matching cells × steps.
func (c *Cutout) Validate() error {
	if len(c.Steps) < 2 {
		return errors.New("cutout: time axis needs at least two steps")
	}
	if len(c.Cells) == 0 {
		return errors.New("cutout: no cells")
	}
	if len(c.Runoff) != len(c.Cells) {
		return fmt.Errorf("cutout: %d runoff rows for %d cells", len(c.Runoff), len(c.Cells))
	}

	dt := c.Steps[1].Sub(c.Steps[0])
	if dt <= 0 {
		return errors.New("cutout: time axis is not ascending")
	}
	for i := 1; i < len(c.Steps); i++ {
		if c.Steps[i].Sub(c.Steps[i-1]) != dt {
			return fmt.Errorf("cutout: non-uniform step at index %d", i)
		}
	}

	for i, row := range c.Runoff {
		if len(row) != len(c.Steps) {
			return fmt.Errorf("cutout: cell %d has %d values for %d steps", i, len(row), len(c.Steps))
		}
	}
	return nil
}

// StepSeconds returns the length of one timestep in seconds.
func (c *Cutout) StepSeconds() float64 {
	if len(c.Steps) < 2 {
		return 0
	}
	return c.Steps[1].Sub(c.Steps[0]).Seconds()
}

// YearRange returns the half-open step range [lo, hi) falling within the
// given calendar year (UTC). The time axis is ascending, so the range is
// contiguous. Errors if the cutout does not cover the year at all.
func (c *Cutout) YearRange(year int) (lo, hi int, err error) {
	lo = -1
	for i, ts := range c.Steps {
		if ts.UTC().Year() != year {
			if lo >= 0 {
				break
			}
			continue
		}
		if lo < 0 {
			lo = i
		}
		hi = i + 1
	}
	if lo < 0 {
		return 0, 0, fmt.Errorf("cutout does not cover year %d", year)
	}
	return lo, hi, nil
}
