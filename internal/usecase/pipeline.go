package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"BeerSync/internal/domain"
	"BeerSync/internal/merge"
	"BeerSync/internal/ports"
	"BeerSync/internal/quality"
)

const (
	DefaultSnapshotName = "beers.enriched.json"
	DefaultReportName   = "sync-report.json"
)

// PipelineDeps wires all driven adapters into the sync pipeline. Breweries
// and Products are the two enrichment sources; Runs and Notifier are optional.
type PipelineDeps struct {
	Baseline     ports.BaselineLoader
	Overrides    ports.OverrideStore
	Breweries    ports.Enricher
	Products     ports.Enricher
	Artifacts    ports.ArtifactStore
	Runs         ports.RunRepository
	Notifier     ports.Notifier
	Logger       *slog.Logger
	Now          func() time.Time
	SnapshotName string
	ReportName   string
}

// RunOptions are the per-run switches of the CLI and the trigger endpoint.
type RunOptions struct {
	DryRun        bool
	SkipBreweries bool
	SkipProducts  bool
}

// Summary is what a caller learns about a finished run.
type Summary struct {
	RunID            string
	DryRun           bool
	InputCount       int
	OutputCount      int
	Attempted        int
	Matched          int
	Unmatched        int
	Discovered       int
	OverridesApplied int
	ValidationErrors int
	Degraded         []domain.Stage
	SnapshotLocation string
	ReportLocation   string
	Report           domain.QualityReport
}

// Pipeline implements the six-stage sync workflow.
type Pipeline struct {
	baseline     ports.BaselineLoader
	overrides    ports.OverrideStore
	breweries    ports.Enricher
	products     ports.Enricher
	artifacts    ports.ArtifactStore
	runs         ports.RunRepository
	notifier     ports.Notifier
	logger       *slog.Logger
	now          func() time.Time
	snapshotName string
	reportName   string
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.SnapshotName == "" {
		deps.SnapshotName = DefaultSnapshotName
	}
	if deps.ReportName == "" {
		deps.ReportName = DefaultReportName
	}
	return &Pipeline{
		baseline:     deps.Baseline,
		overrides:    deps.Overrides,
		breweries:    deps.Breweries,
		products:     deps.Products,
		artifacts:    deps.Artifacts,
		runs:         deps.Runs,
		notifier:     deps.Notifier,
		logger:       deps.Logger,
		now:          deps.Now,
		snapshotName: deps.SnapshotName,
		reportName:   deps.ReportName,
	}
}

// Run executes every stage in order. Only a baseline or persistence failure
// returns an error (a *domain.StageError); other stage failures degrade and
// are recorded as report warnings.
func (p *Pipeline) Run(ctx context.Context, opts RunOptions) (Summary, error) {
	tracker := quality.NewTracker(p.now)
	log := p.logger.With("run_id", tracker.RunID())
	summary := Summary{RunID: tracker.RunID(), DryRun: opts.DryRun, Degraded: []domain.Stage{}}
	log.Info("sync started", "dry_run", opts.DryRun, "skip_breweries", opts.SkipBreweries, "skip_products", opts.SkipProducts)

	degrade := func(stage domain.Stage, err error) {
		stageErr := domain.NewDegraded(stage, err)
		log.Warn("stage degraded", "stage", stage, "error", err)
		tracker.RecordWarning(nil, stageErr.Error())
		summary.Degraded = append(summary.Degraded, stage)
	}

	if p.baseline == nil {
		return summary, domain.NewFatal(domain.StageLoadBaseline, errors.New("no baseline loader configured"))
	}
	baseline, err := p.baseline.LoadBaseline(ctx)
	if err != nil {
		log.Error("stage failed", "stage", domain.StageLoadBaseline, "error", err)
		return summary, domain.NewFatal(domain.StageLoadBaseline, err)
	}
	log.Info("stage completed", "stage", domain.StageLoadBaseline, "beers", len(baseline))

	overrides := domain.Overrides{}
	if p.overrides != nil {
		loaded, warnings, err := p.overrides.LoadOverrides(ctx)
		if err != nil {
			degrade(domain.StageLoadOverrides, err)
		} else {
			overrides = loaded
			for _, w := range warnings {
				log.Warn("override dropped", "reason", w)
				tracker.RecordWarning(nil, w)
			}
		}
	}
	log.Info("stage completed", "stage", domain.StageLoadOverrides, "overrides", len(overrides))

	breweries := p.enrich(ctx, log, domain.StageEnrichSourceA, p.breweries, opts.SkipBreweries, baseline, degrade)
	products := p.enrich(ctx, log, domain.StageEnrichSourceB, p.products, opts.SkipProducts, baseline, degrade)
	summary.Attempted = breweries.Stats.Attempted
	summary.Matched = breweries.Stats.Matched

	merged := merge.NewEngine(p.now).Merge(merge.Input{
		Baseline:  baseline,
		Primary:   merge.Layer{Source: sourceName(p.breweries, domain.SourceOpenBreweryDB), Payloads: breweries.Payloads},
		Secondary: merge.Layer{Source: sourceName(p.products, domain.SourceOpenFoodFacts), Payloads: products.Payloads},
		Overrides: overrides,
	})
	for _, c := range merged.Collisions {
		nr := c.Nr
		tracker.RecordConflict(&nr, fmt.Sprintf("duplicate beer identity %q (first seen as nr %d)", c.Key, c.FirstNr))
	}
	for _, nr := range unknownOverrides(baseline, overrides) {
		tracker.RecordWarning(&nr, "override targets a nr missing from the baseline")
	}

	beers := make([]domain.EnrichedBeer, 0, len(merged.Beers)+len(products.Discovered))
	beers = append(beers, merged.Beers...)
	beers = append(beers, products.Discovered...)

	for _, beer := range beers {
		v := merge.Validate(beer)
		if v.Valid {
			continue
		}
		summary.ValidationErrors++
		nr := beer.Nr
		for _, msg := range v.Errors {
			tracker.RecordError(&nr, msg)
		}
	}

	quality.Analyze(tracker, quality.Analysis{
		Baseline:   baseline,
		Beers:      beers,
		Breweries:  breweries.Payloads,
		Products:   products.Payloads,
		Overrides:  overrides,
		Discovered: len(products.Discovered),
	})

	sort.SliceStable(beers, func(i, j int) bool { return beers[i].Nr < beers[j].Nr })
	log.Info("stage completed", "stage", domain.StageMergeAndValidate,
		"beers", len(beers),
		"collisions", len(merged.Collisions),
		"validation_errors", summary.ValidationErrors,
	)

	tracker.Finish()
	report, err := tracker.Report()
	if err != nil {
		return summary, domain.NewFatal(domain.StageReportAndPersist, err)
	}
	summary.fill(report)

	if err := p.persist(ctx, log, beers, report, &summary); err != nil {
		log.Error("stage failed", "stage", domain.StageReportAndPersist, "error", err)
		return summary, domain.NewFatal(domain.StageReportAndPersist, err)
	}

	log.Info("sync finished",
		"input", summary.InputCount,
		"output", summary.OutputCount,
		"matched", report.Matched,
		"unmatched", report.Unmatched,
		"discovered", report.Discovered,
		"duration_ms", report.DurationMs,
	)
	return summary, nil
}

func (p *Pipeline) enrich(
	ctx context.Context,
	log *slog.Logger,
	stage domain.Stage,
	source ports.Enricher,
	skip bool,
	baseline []domain.BaselineBeer,
	degrade func(domain.Stage, error),
) domain.EnrichmentResult {
	if skip || source == nil {
		log.Info("stage skipped", "stage", stage)
		return domain.EmptyEnrichment()
	}

	result, err := source.Enrich(ctx, baseline)
	if err != nil {
		degrade(stage, fmt.Errorf("%s: %w", source.Name(), err))
		return domain.EmptyEnrichment()
	}
	if result.Payloads == nil {
		result.Payloads = map[int]domain.EnrichmentPayload{}
	}
	log.Info("stage completed", "stage", stage,
		"source", source.Name(),
		"attempted", result.Stats.Attempted,
		"matched", result.Stats.Matched,
		"discovered", len(result.Discovered),
	)
	return result
}

// persist serializes both artifacts before writing either of them.
func (p *Pipeline) persist(ctx context.Context, log *slog.Logger, beers []domain.EnrichedBeer, report domain.QualityReport, summary *Summary) error {
	snapshot, err := encodeJSON(beers)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	reportJSON, err := encodeJSON(report)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	if summary.DryRun {
		log.Info("stage skipped", "stage", domain.StageReportAndPersist, "reason", "dry run")
		return nil
	}
	if p.artifacts == nil {
		return errors.New("no artifact store configured")
	}

	if summary.SnapshotLocation, err = p.artifacts.Put(ctx, p.snapshotName, snapshot); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if summary.ReportLocation, err = p.artifacts.Put(ctx, p.reportName, reportJSON); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	log.Info("stage completed", "stage", domain.StageReportAndPersist,
		"snapshot", summary.SnapshotLocation,
		"report", summary.ReportLocation,
	)

	if p.runs != nil {
		run := domain.NewRunRecord(report, summary.SnapshotLocation, summary.ReportLocation)
		if err := p.runs.SaveRun(ctx, run); err != nil {
			log.Warn("run history not recorded", "error", err)
		}
	}

	if p.notifier != nil {
		if err := p.notifier.PublishSummary(ctx, buildSummaryMessage(*summary)); err != nil {
			log.Warn("run summary not delivered", "error", err)
		}
	}
	return nil
}

func (s *Summary) fill(report domain.QualityReport) {
	s.Report = report
	s.InputCount = report.InputCount
	s.OutputCount = report.OutputCount
	s.Unmatched = report.Unmatched
	s.Discovered = report.Discovered
	s.OverridesApplied = report.OverridesApplied
}

func sourceName(e ports.Enricher, fallback string) string {
	if e == nil {
		return fallback
	}
	return e.Name()
}

// unknownOverrides returns, in ascending order, the override nrs that match no baseline record.
func unknownOverrides(baseline []domain.BaselineBeer, overrides domain.Overrides) []int {
	known := make(map[int]bool, len(baseline))
	for _, b := range baseline {
		known[b.Nr] = true
	}
	var nrs []int
	for nr := range overrides {
		if !known[nr] {
			nrs = append(nrs, nr)
		}
	}
	sort.Ints(nrs)
	return nrs
}

func encodeJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func buildSummaryMessage(s Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Beer sync %s finished\n", s.RunID)
	fmt.Fprintf(&b, "Input: %d, output: %d\n", s.InputCount, s.OutputCount)
	fmt.Fprintf(&b, "Brewery matches: %d/%d, unmatched: %d\n", s.Matched, s.Attempted, s.Unmatched)
	fmt.Fprintf(&b, "Discovered: %d, overrides: %d, validation errors: %d\n", s.Discovered, s.OverridesApplied, s.ValidationErrors)
	if len(s.Degraded) > 0 {
		names := make([]string, 0, len(s.Degraded))
		for _, st := range s.Degraded {
			names = append(names, string(st))
		}
		fmt.Fprintf(&b, "Degraded: %s\n", strings.Join(names, ", "))
	}
	if s.SnapshotLocation != "" {
		fmt.Fprintf(&b, "Snapshot: %s\n", s.SnapshotLocation)
	}
	return b.String()
}
