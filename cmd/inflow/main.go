// Command inflow runs one hydrological input-preparation pass: it loads the
// plant registry, basin polygons, and runoff cutout, derives a per-plant
// inflow series for the requested year, and writes the model-ready tables.
//
// Usage:
//
//	go run ./cmd/inflow \
//	  -stations data/jrc-hydro-power-plant-database.csv \
//	  -basins data/hybas_eu_lev07.geojson \
//	  -cutout data/europe-2019-era5.nc \
//	  -out out/2019 \
//	  -year 2019
//
// Environment variables (see internal/config) select the failure mode,
// worker count, optional Kafka publishing, and the optional ops HTTP server.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/tarnmoor/hydro-inflow-etl/internal/adapter/csvout"
	"github.com/tarnmoor/hydro-inflow-etl/internal/adapter/era5"
	httpadapter "github.com/tarnmoor/hydro-inflow-etl/internal/adapter/http"
	"github.com/tarnmoor/hydro-inflow-etl/internal/adapter/hybas"
	"github.com/tarnmoor/hydro-inflow-etl/internal/adapter/jrc"
	kafkaadapter "github.com/tarnmoor/hydro-inflow-etl/internal/adapter/kafka"
	"github.com/tarnmoor/hydro-inflow-etl/internal/config"
	"github.com/tarnmoor/hydro-inflow-etl/internal/domain"
	"github.com/tarnmoor/hydro-inflow-etl/internal/observability"
	"github.com/tarnmoor/hydro-inflow-etl/internal/pipeline"
)

func main() {
	os.Exit(run())
}

func run() int {
	// A .env file is a local convenience; absence is fine.
	_ = godotenv.Load()

	stationsPath := flag.String("stations", "", "path to the plant registry CSV")
	basinsPath := flag.String("basins", "", "path to the basin polygons GeoJSON")
	cutoutPath := flag.String("cutout", "", "path to the runoff cutout (.nc or .json)")
	outDir := flag.String("out", "out", "output directory for the result tables")
	year := flag.Int("year", 0, "calendar year to extract")
	runoffVar := flag.String("runoff-var", era5.DefaultRunoffVar, "NetCDF runoff variable name")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}
	logger := observability.NewLogger(cfg)

	if *stationsPath == "" || *basinsPath == "" || *cutoutPath == "" || *year == 0 {
		flag.Usage()
		logger.Error("missing required flags: -stations, -basins, -cutout, -year")
		return 2
	}

	mode, err := pipeline.ParseFailureMode(cfg.FailureMode)
	if err != nil {
		logger.Error("invalid failure mode", "error", err)
		return 1
	}
	metrics := observability.NewMetrics()

	var publisher pipeline.SeriesPublisher
	var kafkaPublisher *kafkaadapter.Publisher
	if cfg.KafkaEnabled {
		kafkaPublisher = kafkaadapter.NewPublisher(cfg, logger)
		publisher = kafkaPublisher
		logger.Info("kafka publishing enabled", "topic", cfg.KafkaTopic)
	} else {
		logger.Info("kafka publishing disabled")
	}

	p := pipeline.New(
		jrc.NewSource(*stationsPath, logger),
		hybas.NewSource(*basinsPath, logger),
		era5.NewSource(*cutoutPath, *runoffVar, logger),
		csvout.NewWriter(*outDir, logger),
		publisher,
		domain.NewCountryNormalizer(domain.DefaultCountryOverrides),
		logger,
		metrics,
		cfg.ExtractWorkers,
		mode,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var srv *httpadapter.Server
	if cfg.HTTPEnabled {
		srv = httpadapter.NewServer(cfg.HTTPAddr, p, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("ops server error", "error", err)
			}
		}()
	}

	code := 0
	res, err := p.Run(ctx, *year)
	if err != nil {
		logger.Error("pipeline error", "error", err)
		code = 1
	} else {
		logger.Info("outputs written",
			"dir", *outDir,
			"series", len(res.Series),
			"failures", len(res.Failures),
		)
	}

	if cfg.PushgatewayURL != "" {
		if err := observability.PushMetrics(cfg.PushgatewayURL, "hydro_inflow_etl", strconv.Itoa(*year)); err != nil {
			logger.Error("metrics push error", "error", err)
		}
	}

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("ops server shutdown error", "error", err)
		}
	}
	if kafkaPublisher != nil {
		if err := kafkaPublisher.Close(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}

	return code
}
