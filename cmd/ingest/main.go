// Command ingest runs one ingestion batch: it loads a site list and a job
// file, extracts every configured source, and writes the harmonized per-site
// forcing table as CSV. While the run is in flight an operational HTTP server
// exposes /healthz, /readyz, /statusz, and /metrics.
//
// Usage:
//
//	go run ./cmd/ingest \
//	  -sites data/sites.csv \
//	  -job data/job.json \
//	  -out out/forcing.csv
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/pepaaran/ingestr/internal/adapter/http"
	kafkaadapter "github.com/pepaaran/ingestr/internal/adapter/kafka"
	"github.com/pepaaran/ingestr/internal/adapter/netcdf"
	"github.com/pepaaran/ingestr/internal/config"
	"github.com/pepaaran/ingestr/internal/domain"
	"github.com/pepaaran/ingestr/internal/extract"
	"github.com/pepaaran/ingestr/internal/observability"
	"github.com/pepaaran/ingestr/internal/pipeline"
	"github.com/pepaaran/ingestr/internal/sitefile"
	"github.com/pepaaran/ingestr/internal/source"
)

// jobFile is the on-disk run description: the named sources to extract.
type jobFile struct {
	Sources []pipeline.SourceJob `json:"sources"`
}

func main() {
	sitesPath := flag.String("sites", "", "path to the sites CSV (site_id,lon,lat[,elv])")
	jobPath := flag.String("job", "", "path to the job JSON listing sources")
	outPath := flag.String("out", "", "path for the output forcing CSV")
	flag.Parse()

	if *sitesPath == "" || *jobPath == "" || *outPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err := run(cfg, logger, *sitesPath, *jobPath, *outPath); err != nil {
		logger.Error("ingestion failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger, sitesPath, jobPath, outPath string) error {
	metrics := observability.NewMetrics()

	sites, err := sitefile.ReadSites(sitesPath)
	if err != nil {
		return err
	}

	jobs, err := readJobs(jobPath)
	if err != nil {
		return err
	}

	cache := netcdf.NewCache(cfg.GridCacheSize, func(hit bool) {
		result := "miss"
		if hit {
			result = "hit"
		}
		metrics.GridCacheLookups.WithLabelValues(result).Inc()
	})

	registry := extract.NewRegistry(
		source.NewPointRaster(cache),
		source.NewClimatology(cache),
		source.NewSoil(cache),
		source.NewAnnualSeries(cache),
		source.NewCO2Archive(),
	)

	p := pipeline.New(
		extract.NewExtractor(registry),
		domain.DefaultDeriveConfig(),
		domain.AggregateConfig{GrowingSeasonMinC: cfg.GrowingSeasonMinC},
		logger,
		metrics,
	)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, p, logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	table, err := p.Run(ctx, sites, jobs)
	if err != nil {
		return err
	}

	if err := sitefile.WriteTable(outPath, table); err != nil {
		return err
	}
	logger.Info("forcing table written",
		"path", outPath,
		"sites", len(table.SiteIDs()),
		"columns", len(table.Columns()),
	)

	if cfg.KafkaEnabled {
		return publishForcing(ctx, cfg, logger, metrics, table)
	}
	return nil
}

func readJobs(path string) ([]pipeline.SourceJob, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read job file: %w", err)
	}
	var jf jobFile
	if err := json.Unmarshal(data, &jf); err != nil {
		return nil, fmt.Errorf("parse job file %s: %w", path, err)
	}
	if len(jf.Sources) == 0 {
		return nil, fmt.Errorf("job file %s lists no sources", path)
	}
	return jf.Sources, nil
}

func publishForcing(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics, table *domain.SiteTable) error {
	writer := kafkaadapter.NewWriter(cfg, logger)
	defer func() {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}()

	records := domain.ForcingRecords(table)
	if err := writer.PublishForcing(ctx, records); err != nil {
		metrics.SinkFailures.Add(float64(len(records)))
		return fmt.Errorf("publish forcing records: %w", err)
	}
	metrics.SinkPublished.Add(float64(len(records)))
	logger.Info("forcing records published", "topic", cfg.KafkaTopic, "count", len(records))
	return nil
}
