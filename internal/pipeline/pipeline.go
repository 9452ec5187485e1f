package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/tarnmoor/hydro-inflow-etl/internal/basin"
	"github.com/tarnmoor/hydro-inflow-etl/internal/domain"
	"github.com/tarnmoor/hydro-inflow-etl/internal/inflow"
	"github.com/tarnmoor/hydro-inflow-etl/internal/observability"
)

// StationSource loads raw station rows from the plant database.
type StationSource interface {
	Stations(ctx context.Context) ([]domain.StationRecord, error)
}

// BasinSource loads basin polygons.
type BasinSource interface {
	Basins(ctx context.Context) ([]domain.Basin, error)
}

// CutoutSource loads the gridded runoff dataset.
type CutoutSource interface {
	Cutout(ctx context.Context) (*domain.Cutout, error)
}

// ResultWriter persists a completed run.
type ResultWriter interface {
	WriteResult(ctx context.Context, res *Result) error
}

// SeriesPublisher hands derived series to a downstream transport. Optional;
// a nil publisher disables publishing.
type SeriesPublisher interface {
	PublishSeries(ctx context.Context, series []domain.InflowSeries) error
}

// FailureMode controls how the per-plant stage reacts to failures.
type FailureMode int

const (
	// FailFast aborts the run on the first per-plant failure.
	FailFast FailureMode = iota
	// CollectFailures records per-plant failures and keeps going; well-formed
	// plants still produce series.
	CollectFailures
)

// ParseFailureMode maps the config strings onto a FailureMode.
func ParseFailureMode(s string) (FailureMode, error) {
	switch s {
	case "fail-fast", "":
		return FailFast, nil
	case "collect":
		return CollectFailures, nil
	default:
		return FailFast, fmt.Errorf("unknown failure mode %q", s)
	}
}

// Stage names used in per-plant failures.
const (
	StageAssign  = "assign"
	StageExtract = "extract"
)

// Failure describes one plant that could not be processed.
type Failure struct {
	PlantID string
	Stage   string
	Err     error
}

// Result is the outcome of one pipeline run: every retained plant, an inflow
// series per successfully processed plant, and (in collect mode) the plants
// that failed, in input order.
type Result struct {
	RunID      string
	Year       int
	Plants     []domain.Plant
	Series     map[string]domain.InflowSeries
	Failures   []Failure
	StartedAt  time.Time
	FinishedAt time.Time
}

// OrderedSeries returns the derived series following plant input order, for
// writers that need deterministic output.
func (r *Result) OrderedSeries() []domain.InflowSeries {
	out := make([]domain.InflowSeries, 0, len(r.Series))
	for _, p := range r.Plants {
		if s, ok := r.Series[p.ID]; ok {
			out = append(out, s)
		}
	}
	return out
}

// Pipeline orchestrates one load-assign-extract-write pass.
type Pipeline struct {
	stations  StationSource
	basins    BasinSource
	cutouts   CutoutSource
	writer    ResultWriter
	publisher SeriesPublisher
	codes     *domain.CountryNormalizer
	logger    *slog.Logger
	metrics   *observability.Metrics
	workers   int
	mode      FailureMode
	ready     atomic.Bool
}

// New creates a Pipeline. publisher may be nil; workers below 1 become 1.
func New(
	stations StationSource,
	basins BasinSource,
	cutouts CutoutSource,
	writer ResultWriter,
	publisher SeriesPublisher,
	codes *domain.CountryNormalizer,
	logger *slog.Logger,
	metrics *observability.Metrics,
	workers int,
	mode FailureMode,
) *Pipeline {
	if workers < 1 {
		workers = 1
	}
	return &Pipeline{
		stations:  stations,
		basins:    basins,
		cutouts:   cutouts,
		writer:    writer,
		publisher: publisher,
		codes:     codes,
		logger:    logger,
		metrics:   metrics,
		workers:   workers,
		mode:      mode,
	}
}

// CheckReadiness returns nil once the run's inputs are loaded and validated,
// or an error describing why the pipeline is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline inputs not loaded yet")
	}
	return nil
}

// Run executes one complete pass for the given year.
func (p *Pipeline) Run(ctx context.Context, year int) (*Result, error) {
	runID := uuid.NewString()
	logger := p.logger.With("run_id", runID, "year", year)
	startedAt := domain.Clock().Now().UTC()
	start := time.Now()

	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)
	logger.Info("run started", "workers", p.workers)

	recs, err := p.stations.Stations(ctx)
	if err != nil {
		return nil, fmt.Errorf("load stations: %w", err)
	}
	p.metrics.StationsRead.Add(float64(len(recs)))

	plants, err := domain.NormalizeStations(recs, p.codes)
	if err != nil {
		return nil, fmt.Errorf("normalize stations: %w", err)
	}
	p.metrics.PlantsRetained.Add(float64(len(plants)))
	logger.Info("stations loaded", "rows", len(recs), "retained", len(plants))

	basins, err := p.basins.Basins(ctx)
	if err != nil {
		return nil, fmt.Errorf("load basins: %w", err)
	}
	index := basin.NewIndex(basins, logger, p.metrics)
	logger.Info("basins indexed", "count", index.Len())

	cut, err := p.cutouts.Cutout(ctx)
	if err != nil {
		return nil, fmt.Errorf("load cutout: %w", err)
	}
	if err := cut.Validate(); err != nil {
		return nil, err
	}
	if _, _, err := cut.YearRange(year); err != nil {
		return nil, err
	}
	logger.Info("cutout loaded", "cells", len(cut.Cells), "steps", len(cut.Steps))

	extractor := inflow.NewExtractor(cut, logger, p.metrics)
	p.ready.Store(true)

	outcomes := p.extractAll(ctx, plants, index, extractor, year)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	res := &Result{
		RunID:     runID,
		Year:      year,
		Plants:    plants,
		Series:    make(map[string]domain.InflowSeries, len(plants)),
		StartedAt: startedAt,
	}
	for i, o := range outcomes {
		switch {
		case o.failure != nil:
			p.metrics.PlantFailures.WithLabelValues(o.failure.Stage).Inc()
			if p.mode == FailFast {
				return nil, fmt.Errorf("plant %s failed at %s: %w", o.failure.PlantID, o.failure.Stage, o.failure.Err)
			}
			logger.Warn("plant failed",
				"plant_id", o.failure.PlantID,
				"stage", o.failure.Stage,
				"error", o.failure.Err,
			)
			res.Failures = append(res.Failures, *o.failure)
		case o.done:
			res.Series[plants[i].ID] = o.series
			p.metrics.SeriesExtracted.Inc()
		}
	}
	res.FinishedAt = domain.Clock().Now().UTC()

	if err := p.writer.WriteResult(ctx, res); err != nil {
		return nil, fmt.Errorf("write result: %w", err)
	}

	if p.publisher != nil {
		series := res.OrderedSeries()
		if err := p.publisher.PublishSeries(ctx, series); err != nil {
			return nil, fmt.Errorf("publish series: %w", err)
		}
		p.metrics.SeriesPublished.Add(float64(len(series)))
	}

	p.metrics.RunDuration.Observe(time.Since(start).Seconds())
	logger.Info("run complete",
		"series", len(res.Series),
		"failures", len(res.Failures),
		"duration", time.Since(start),
	)
	return res, nil
}

// outcome is one plant's result slot. done distinguishes processed plants
// from those skipped after an early abort.
type outcome struct {
	series  domain.InflowSeries
	failure *Failure
	done    bool
}

// extractAll fans plants out over the worker pool. Results land in a slice
// indexed by input position, so no output ordering depends on scheduling.
// In fail-fast mode the first failure cancels the remaining work.
func (p *Pipeline) extractAll(ctx context.Context, plants []domain.Plant, index *basin.Index, extractor *inflow.Extractor, year int) []outcome {
	outcomes := make([]outcome, len(plants))

	workerCtx := ctx
	var cancel context.CancelFunc
	if p.mode == FailFast {
		workerCtx, cancel = context.WithCancel(ctx)
		defer cancel()
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < p.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if workerCtx.Err() != nil {
					continue
				}
				outcomes[i] = p.processPlant(plants[i], index, extractor, year)
				if outcomes[i].failure != nil && cancel != nil {
					cancel()
				}
			}
		}()
	}

	for i := range plants {
		select {
		case jobs <- i:
		case <-workerCtx.Done():
		}
	}
	close(jobs)
	wg.Wait()

	return outcomes
}

// processPlant runs the per-plant stages: basin assignment, then extraction.
// The shared index, extractor, and cutout are read-only here.
func (p *Pipeline) processPlant(plant domain.Plant, index *basin.Index, extractor *inflow.Extractor, year int) outcome {
	b, err := index.Assign(plant.Location)
	if err != nil {
		return outcome{done: true, failure: &Failure{PlantID: plant.ID, Stage: StageAssign, Err: err}}
	}

	steps, volumes, err := extractor.Extract(b, year)
	if err != nil {
		return outcome{done: true, failure: &Failure{PlantID: plant.ID, Stage: StageExtract, Err: err}}
	}

	return outcome{done: true, series: domain.InflowSeries{
		PlantID:    plant.ID,
		BasinID:    b.ID,
		Country:    plant.Country,
		Type:       plant.Type,
		CapacityMW: plant.CapacityMW,
		Steps:      steps,
		Volumes:    volumes,
	}}
}
