// Package pipeline orchestrates one ingestion run: every configured source
// is extracted and aggregated independently, the per-source tables are
// left-joined over the full site list, and site metadata backfills
// elevation. One failing source degrades the output table instead of
// sinking the run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pepaaran/ingestr/internal/domain"
	"github.com/pepaaran/ingestr/internal/observability"
)

// Extractor validates and runs one source extraction.
type Extractor interface {
	ExtractAll(ctx context.Context, sites []domain.Site, spec domain.SourceSpec) ([]domain.RawRecord, error)
}

// SourceJob is one named extraction of a run. The name keys logs, metrics,
// and status reporting; the embedded spec configures the extraction.
type SourceJob struct {
	Name string `json:"name"`
	domain.SourceSpec
}

// SourceStatus is the outcome of one source in the latest run.
type SourceStatus struct {
	Name            string            `json:"name"`
	Kind            domain.SourceKind `json:"kind"`
	OK              bool              `json:"ok"`
	Error           string            `json:"error,omitempty"`
	Records         int               `json:"records"`
	Columns         []string          `json:"columns,omitempty"`
	DurationSeconds float64           `json:"duration_seconds"`
}

// Pipeline fans one site list out over the configured sources and joins the
// results into a single per-site table.
type Pipeline struct {
	extractor Extractor
	derive    domain.DeriveConfig
	aggregate domain.AggregateConfig
	logger    *slog.Logger
	metrics   *observability.Metrics
	ready     atomic.Bool

	mu       sync.Mutex
	statuses []SourceStatus
}

// New creates a Pipeline with the given extractor, transform constants, and
// observability.
func New(e Extractor, derive domain.DeriveConfig, aggregate domain.AggregateConfig, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		extractor: e,
		derive:    derive,
		aggregate: aggregate,
		logger:    logger,
		metrics:   metrics,
	}
}

// CheckReadiness returns nil once a run has produced a table, or an error
// describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no ingestion run has completed yet")
	}
	return nil
}

// Status returns a snapshot of the per-source outcomes of the latest run.
func (p *Pipeline) Status() []SourceStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]SourceStatus(nil), p.statuses...)
}

// Run extracts every source, aggregates, and joins. Sources run
// concurrently but land in job order, so the output table is identical
// across runs. Run fails only when the site list is unusable, the context
// is cancelled, or every source failed; individual failures leave NaN
// columns and are reported via Status.
func (p *Pipeline) Run(ctx context.Context, sites []domain.Site, jobs []SourceJob) (*domain.SiteTable, error) {
	if err := domain.ValidateSites(sites); err != nil {
		return nil, fmt.Errorf("site list: %w", err)
	}

	p.logger.Info("ingestion run started", "sites", len(sites), "sources", len(jobs))
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)
	start := time.Now()

	tables := make([]*domain.SiteTable, len(jobs))
	statuses := make([]SourceStatus, len(jobs))

	var wg sync.WaitGroup
	for i, job := range jobs {
		wg.Add(1)
		go func(i int, job SourceJob) {
			defer wg.Done()
			tables[i], statuses[i] = p.runSource(ctx, sites, job)
		}(i, job)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.statuses = statuses
	p.mu.Unlock()

	failed := 0
	for _, s := range statuses {
		if !s.OK {
			failed++
		}
	}
	if len(jobs) > 0 && failed == len(jobs) {
		return nil, fmt.Errorf("all %d sources failed", failed)
	}

	table, err := domain.Join(sites, tables...)
	if err != nil {
		return nil, fmt.Errorf("joining source tables: %w", err)
	}
	domain.FillElevationColumn(table, sites, p.logger)

	p.metrics.RunDuration.Observe(time.Since(start).Seconds())
	p.metrics.SitesIngested.Add(float64(len(sites)))
	p.ready.Store(true)
	p.logger.Info("ingestion run finished",
		"sites", len(sites),
		"columns", len(table.Columns()),
		"failed_sources", failed,
		"duration", time.Since(start),
	)
	return table, nil
}

// runSource extracts and aggregates one source, translating the outcome
// into a status entry. A nil table marks a failed source for the join.
func (p *Pipeline) runSource(ctx context.Context, sites []domain.Site, job SourceJob) (*domain.SiteTable, SourceStatus) {
	status := SourceStatus{Name: job.Name, Kind: job.Kind}
	start := time.Now()

	records, err := p.extractor.ExtractAll(ctx, sites, job.SourceSpec)
	if err != nil {
		p.logger.Warn("source extraction failed",
			"source", job.Name,
			"kind", job.Kind,
			"error", err,
		)
		p.metrics.ExtractFailures.WithLabelValues(job.Name, failureReason(err)).Inc()
		status.Error = err.Error()
		status.DurationSeconds = time.Since(start).Seconds()
		return nil, status
	}

	p.metrics.RecordsExtracted.WithLabelValues(job.Name).Add(float64(len(records)))
	missing := 0
	for _, r := range records {
		if domain.IsMissing(r.Value) {
			missing++
		}
	}
	if missing > 0 {
		p.metrics.MissingValues.WithLabelValues(job.Name).Add(float64(missing))
	}

	aggs, err := p.aggregateRecords(sites, job, records)
	if err != nil {
		p.logger.Warn("source aggregation failed", "source", job.Name, "error", err)
		p.metrics.ExtractFailures.WithLabelValues(job.Name, "other").Inc()
		status.Error = err.Error()
		status.DurationSeconds = time.Since(start).Seconds()
		return nil, status
	}

	table, err := domain.TableFromRecords(domain.SiteIDs(sites), aggs)
	if err != nil {
		p.logger.Warn("source table build failed", "source", job.Name, "error", err)
		p.metrics.ExtractFailures.WithLabelValues(job.Name, "other").Inc()
		status.Error = err.Error()
		status.DurationSeconds = time.Since(start).Seconds()
		return nil, status
	}

	status.OK = true
	status.Records = len(records)
	status.Columns = table.Columns()
	status.DurationSeconds = time.Since(start).Seconds()
	p.metrics.SourceDuration.WithLabelValues(job.Name).Observe(status.DurationSeconds)
	p.logger.Debug("source extracted",
		"source", job.Name,
		"records", len(records),
		"missing", missing,
		"columns", status.Columns,
	)
	return table, status
}

// aggregateRecords picks the reduction for the source family: point values
// pass through, monthly stacks run the climate derivation and growing-season
// mean, soil layers spread into per-layer columns or collapse to a layer
// mean, and yearly archives take multi-year means plus composites.
func (p *Pipeline) aggregateRecords(sites []domain.Site, job SourceJob, records []domain.RawRecord) ([]domain.AggregatedRecord, error) {
	switch job.Kind {
	case domain.KindPointRaster:
		return domain.PointValues(records), nil

	case domain.KindMonthlyStack:
		derived := make([]domain.DerivedRecord, 0, len(sites)*12)
		for _, site := range sites {
			derived = append(derived, domain.DeriveClimate(site, records, p.derive)...)
		}
		columns := domain.ClimateOutputFields(job.Variables)
		return domain.GrowingSeasonMeans(derived, columns, p.aggregate), nil

	case domain.KindSoilLayers:
		if job.LayerMean {
			return domain.LayerMeans(records), nil
		}
		return domain.PerLayerValues(records), nil

	case domain.KindAnnualSeries, domain.KindCO2Archive:
		aggs := domain.MultiYearMeans(records, job.YearStart, job.YearEnd)
		return domain.ApplyComposites(aggs, job.Composites), nil
	}
	return nil, fmt.Errorf("no aggregation for source kind %q", job.Kind)
}

// failureReason buckets an extraction error for metrics. Vocabulary misses
// match both settings and variable sentinels, so they are checked first.
func failureReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrVariableNotFound):
		return "vocabulary"
	case errors.Is(err, domain.ErrInvalidSettings):
		return "settings"
	case errors.Is(err, domain.ErrSourceUnavailable):
		return "unavailable"
	default:
		return "other"
	}
}
