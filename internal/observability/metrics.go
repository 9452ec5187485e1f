package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// inflow pipeline.
type Metrics struct {
	StationsRead    prometheus.Counter
	PlantsRetained  prometheus.Counter
	SeriesExtracted prometheus.Counter
	SeriesPublished prometheus.Counter
	PlantFailures   *prometheus.CounterVec // labels: stage={assign,extract}
	PipelineRunning prometheus.Gauge

	// Spatial index metrics.
	BasinsIndexed        prometheus.Gauge
	AmbiguousAssignments prometheus.Counter

	// Extraction metrics.
	OverlapCells    prometheus.Histogram
	ExtractDuration prometheus.Histogram
	RunDuration     prometheus.Histogram
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		StationsRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hydro_etl",
			Name:      "stations_read_total",
			Help:      "Total station rows read from the plant database.",
		}),
		PlantsRetained: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hydro_etl",
			Name:      "plants_retained_total",
			Help:      "Station rows surviving the type filter.",
		}),
		SeriesExtracted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hydro_etl",
			Name:      "series_extracted_total",
			Help:      "Inflow series successfully derived.",
		}),
		SeriesPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hydro_etl",
			Name:      "series_published_total",
			Help:      "Inflow series published to the sink topic.",
		}),
		PlantFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hydro_etl",
			Name:      "plant_failures_total",
			Help:      "Per-plant failures by pipeline stage.",
		}, []string{"stage"}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hydro_etl",
			Name:      "pipeline_running",
			Help:      "1 while a run is active, 0 otherwise.",
		}),
		BasinsIndexed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hydro_etl",
			Name:      "basins_indexed",
			Help:      "Basin polygons held by the spatial index.",
		}),
		AmbiguousAssignments: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hydro_etl",
			Name:      "ambiguous_assignments_total",
			Help:      "Plant locations contained by more than one basin polygon.",
		}),
		OverlapCells: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "hydro_etl",
			Name:      "overlap_cells",
			Help:      "Grid cells contributing to one basin's inflow.",
			Buckets:   []float64{1, 2, 4, 8, 16, 32, 64, 128, 256},
		}),
		ExtractDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "hydro_etl",
			Name:      "extract_duration_seconds",
			Help:      "Duration of a single plant's series extraction.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5},
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "hydro_etl",
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete pipeline run.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		}),
	}

	prometheus.MustRegister(
		m.StationsRead,
		m.PlantsRetained,
		m.SeriesExtracted,
		m.SeriesPublished,
		m.PlantFailures,
		m.PipelineRunning,
		m.BasinsIndexed,
		m.AmbiguousAssignments,
		m.OverlapCells,
		m.ExtractDuration,
		m.RunDuration,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		StationsRead:         prometheus.NewCounter(prometheus.CounterOpts{Namespace: "hydro_etl", Name: "stations_read_total"}),
		PlantsRetained:       prometheus.NewCounter(prometheus.CounterOpts{Namespace: "hydro_etl", Name: "plants_retained_total"}),
		SeriesExtracted:      prometheus.NewCounter(prometheus.CounterOpts{Namespace: "hydro_etl", Name: "series_extracted_total"}),
		SeriesPublished:      prometheus.NewCounter(prometheus.CounterOpts{Namespace: "hydro_etl", Name: "series_published_total"}),
		PlantFailures:        prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "hydro_etl", Name: "plant_failures_total"}, []string{"stage"}),
		PipelineRunning:      prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "hydro_etl", Name: "pipeline_running"}),
		BasinsIndexed:        prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "hydro_etl", Name: "basins_indexed"}),
		AmbiguousAssignments: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "hydro_etl", Name: "ambiguous_assignments_total"}),
		OverlapCells:         prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "hydro_etl", Name: "overlap_cells"}),
		ExtractDuration:      prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "hydro_etl", Name: "extract_duration_seconds"}),
		RunDuration:          prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "hydro_etl", Name: "run_duration_seconds"}),
	}
}
