package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"BeerSync/internal/domain"
)

var fixedClock = func() time.Time { return time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC) }

type fakeLoader struct {
	beers []domain.BaselineBeer
	err   error
}

func (f fakeLoader) LoadBaseline(context.Context) ([]domain.BaselineBeer, error) {
	return f.beers, f.err
}

type fakeOverrides struct {
	overrides domain.Overrides
	warnings  []string
	err       error
}

func (f fakeOverrides) LoadOverrides(context.Context) (domain.Overrides, []string, error) {
	return f.overrides, f.warnings, f.err
}

type fakeEnricher struct {
	name   string
	result domain.EnrichmentResult
	err    error
	calls  int
	block  chan struct{}
}

func (f *fakeEnricher) Name() string { return f.name }

func (f *fakeEnricher) Enrich(ctx context.Context, _ []domain.BaselineBeer) (domain.EnrichmentResult, error) {
	f.calls++
	if f.block != nil {
		<-f.block
	}
	return f.result, f.err
}

type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	failOn  string
}

func (m *memStore) Put(_ context.Context, name string, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if name == m.failOn {
		return "", errors.New("disk full")
	}
	if m.objects == nil {
		m.objects = map[string][]byte{}
	}
	m.objects[name] = append([]byte(nil), data...)
	return "mem://" + name, nil
}

type fakeRuns struct {
	saved []domain.RunRecord
	err   error
}

func (f *fakeRuns) SaveRun(_ context.Context, run domain.RunRecord) error {
	f.saved = append(f.saved, run)
	return f.err
}

func (f *fakeRuns) LatestRun(context.Context) (domain.RunRecord, error) {
	if len(f.saved) == 0 {
		return domain.RunRecord{}, domain.ErrNoRuns
	}
	return f.saved[len(f.saved)-1], nil
}

type fakeNotifier struct {
	messages []string
	err      error
}

func (f *fakeNotifier) PublishSummary(_ context.Context, summary string) error {
	f.messages = append(f.messages, summary)
	return f.err
}

func beer(nr int, name, brewery, country string) domain.BaselineBeer {
	return domain.BaselineBeer{
		Nr: nr, Name: name, Brewery: brewery, Country: country,
		ABV: "5,0%", Stammwuerze: "-", Ingredients: "-",
		Size: "0,5L", Price: "3,00 €", Category: "Lager",
	}
}

func threeBeers() []domain.BaselineBeer {
	return []domain.BaselineBeer{
		beer(2, "Dunkel", "Brewery B", "DEUTSCHLAND"),
		beer(1, "Pils", "Brewery A", "DEUTSCHLAND"),
		beer(3, "Tripel", "Brewery C", "BELGIEN"),
	}
}

func breweries() *fakeEnricher {
	return &fakeEnricher{name: domain.SourceOpenBreweryDB, result: domain.EnrichmentResult{
		Payloads: map[int]domain.EnrichmentPayload{
			1: {BreweryWebsite: "https://a.example", BreweryCity: "Köln", SourceID: "a"},
			2: {BreweryWebsite: "https://b.example", BreweryCity: "Bonn", SourceID: "b"},
		},
		Stats: domain.EnrichmentStats{Attempted: 3, Matched: 2},
	}}
}

func readSnapshot(t *testing.T, store *memStore) []domain.EnrichedBeer {
	t.Helper()
	var beers []domain.EnrichedBeer
	require.NoError(t, json.Unmarshal(store.objects[DefaultSnapshotName], &beers))
	return beers
}

func readReport(t *testing.T, store *memStore) domain.QualityReport {
	t.Helper()
	var report domain.QualityReport
	require.NoError(t, json.Unmarshal(store.objects[DefaultReportName], &report))
	return report
}

func TestRunEndToEnd(t *testing.T) {
	t.Parallel()

	products := &fakeEnricher{name: domain.SourceOpenFoodFacts, result: domain.EnrichmentResult{
		Payloads: map[int]domain.EnrichmentPayload{3: {Size: "0,33L", SourceID: "off-3"}},
		Discovered: []domain.EnrichedBeer{{
			Nr: 4, Name: "Found", Brewery: "-", Country: "Unknown", Category: "Beer", Size: "-", Price: "-",
			DataSources: []domain.DataSource{{Source: domain.SourceOpenFoodFacts, SourceID: "x"}},
		}},
		Stats: domain.EnrichmentStats{Attempted: 3, Matched: 1, Discovered: 1},
	}}
	override := domain.NewPatch()
	require.NoError(t, override.Set("price", "3,20 €"))

	store := &memStore{}
	runs := &fakeRuns{}
	notifier := &fakeNotifier{}
	p := NewPipeline(PipelineDeps{
		Baseline:  fakeLoader{beers: threeBeers()},
		Overrides: fakeOverrides{overrides: domain.Overrides{3: override}},
		Breweries: breweries(),
		Products:  products,
		Artifacts: store,
		Runs:      runs,
		Notifier:  notifier,
		Now:       fixedClock,
	})

	summary, err := p.Run(context.Background(), RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, 3, summary.InputCount)
	assert.Equal(t, 4, summary.OutputCount)
	assert.Equal(t, 3, summary.Attempted)
	assert.Equal(t, 2, summary.Matched)
	assert.Equal(t, 1, summary.Unmatched)
	assert.Equal(t, 1, summary.Discovered)
	assert.Equal(t, 1, summary.OverridesApplied)
	assert.Zero(t, summary.ValidationErrors)
	assert.Empty(t, summary.Degraded)
	assert.Equal(t, "mem://"+DefaultSnapshotName, summary.SnapshotLocation)
	assert.Equal(t, "mem://"+DefaultReportName, summary.ReportLocation)

	beers := readSnapshot(t, store)
	require.Len(t, beers, 4)
	for i, b := range beers {
		assert.Equal(t, i+1, b.Nr, "snapshot is sorted by nr")
	}
	assert.Equal(t, "https://a.example", beers[0].BreweryWebsite)
	assert.Empty(t, beers[2].BreweryWebsite)
	assert.Equal(t, "0,33L", beers[2].Size)
	assert.Equal(t, "3,20 €", beers[2].Price)
	assert.True(t, beers[2].HasSource(domain.SourceManualOverride))

	report := readReport(t, store)
	assert.Equal(t, summary.RunID, report.RunID)
	assert.Equal(t, map[string]int{domain.MatchKeyOpenBreweryDB: 2, domain.MatchKeyOpenFoodFacts: 1}, report.Matched)
	assert.Equal(t, 1, report.Unmatched)
	assert.Equal(t, 1, report.Discovered)

	require.Len(t, runs.saved, 1)
	assert.Equal(t, summary.RunID, runs.saved[0].RunID)
	require.Len(t, notifier.messages, 1)
	assert.Contains(t, notifier.messages[0], summary.RunID)
}

func TestRunDegradesFailingSources(t *testing.T) {
	t.Parallel()

	failing := &fakeEnricher{name: domain.SourceOpenBreweryDB, err: errors.New("directory down")}
	store := &memStore{}
	p := NewPipeline(PipelineDeps{
		Baseline:  fakeLoader{beers: threeBeers()},
		Overrides: fakeOverrides{err: errors.New("bad json")},
		Breweries: failing,
		Products:  &fakeEnricher{name: domain.SourceOpenFoodFacts, err: errors.New("timeout")},
		Artifacts: store,
		Now:       fixedClock,
	})

	summary, err := p.Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, []domain.Stage{domain.StageLoadOverrides, domain.StageEnrichSourceA, domain.StageEnrichSourceB}, summary.Degraded)
	assert.Equal(t, 3, summary.OutputCount)

	report := readReport(t, store)
	assert.Equal(t, 3, report.Unmatched)
	require.Len(t, report.Warnings, 3)
	assert.Contains(t, report.Warnings[1].Message, "directory down")

	for _, b := range readSnapshot(t, store) {
		assert.Equal(t, []domain.DataSource{{Source: domain.SourceCSV, SyncedAt: fixedClock()}}, b.DataSources)
	}
}

func TestRunDryRunWritesNothing(t *testing.T) {
	t.Parallel()

	store := &memStore{}
	runs := &fakeRuns{}
	notifier := &fakeNotifier{}
	p := NewPipeline(PipelineDeps{
		Baseline:  fakeLoader{beers: threeBeers()},
		Breweries: breweries(),
		Artifacts: store,
		Runs:      runs,
		Notifier:  notifier,
		Now:       fixedClock,
	})

	summary, err := p.Run(context.Background(), RunOptions{DryRun: true})
	require.NoError(t, err)
	assert.True(t, summary.DryRun)
	assert.Equal(t, 3, summary.OutputCount)
	assert.Equal(t, 2, summary.Report.Matched[domain.MatchKeyOpenBreweryDB])
	assert.Empty(t, store.objects)
	assert.Empty(t, runs.saved)
	assert.Empty(t, notifier.messages)
	assert.Empty(t, summary.SnapshotLocation)
}

func TestRunBaselineFailureIsFatal(t *testing.T) {
	t.Parallel()

	store := &memStore{}
	src := breweries()
	p := NewPipeline(PipelineDeps{
		Baseline:  fakeLoader{err: errors.New("no such file")},
		Breweries: src,
		Artifacts: store,
	})

	_, err := p.Run(context.Background(), RunOptions{})
	require.Error(t, err)

	var stageErr *domain.StageError
	require.True(t, errors.As(err, &stageErr))
	assert.True(t, stageErr.Fatal)
	assert.Equal(t, domain.StageLoadBaseline, stageErr.Stage)
	assert.Zero(t, src.calls)
	assert.Empty(t, store.objects)
}

func TestRunPersistFailureIsFatal(t *testing.T) {
	t.Parallel()

	runs := &fakeRuns{}
	p := NewPipeline(PipelineDeps{
		Baseline:  fakeLoader{beers: threeBeers()},
		Artifacts: &memStore{failOn: DefaultReportName},
		Runs:      runs,
	})

	_, err := p.Run(context.Background(), RunOptions{})
	var stageErr *domain.StageError
	require.True(t, errors.As(err, &stageErr))
	assert.Equal(t, domain.StageReportAndPersist, stageErr.Stage)
	assert.Empty(t, runs.saved)
}

func TestRunSideChannelFailuresOnlyWarn(t *testing.T) {
	t.Parallel()

	p := NewPipeline(PipelineDeps{
		Baseline:  fakeLoader{beers: threeBeers()},
		Artifacts: &memStore{},
		Runs:      &fakeRuns{err: errors.New("db down")},
		Notifier:  &fakeNotifier{err: errors.New("telegram down")},
	})

	_, err := p.Run(context.Background(), RunOptions{})
	assert.NoError(t, err)
}

func TestRunSkipsSources(t *testing.T) {
	t.Parallel()

	a := breweries()
	b := &fakeEnricher{name: domain.SourceOpenFoodFacts}
	p := NewPipeline(PipelineDeps{
		Baseline:  fakeLoader{beers: threeBeers()},
		Breweries: a,
		Products:  b,
		Artifacts: &memStore{},
	})

	summary, err := p.Run(context.Background(), RunOptions{SkipBreweries: true, SkipProducts: true})
	require.NoError(t, err)
	assert.Zero(t, a.calls)
	assert.Zero(t, b.calls)
	assert.Empty(t, summary.Degraded)
	assert.Equal(t, 3, summary.Unmatched)
}

func TestRunRecordsCollisionsAndValidationErrors(t *testing.T) {
	t.Parallel()

	base := []domain.BaselineBeer{
		beer(1, "Pils", "Brewery A", "Deutschland"),
		beer(2, "PILS", "brewery a", "Germany"),
	}
	blank := domain.NewPatch()
	require.NoError(t, blank.Set("name", ""))

	store := &memStore{}
	p := NewPipeline(PipelineDeps{
		Baseline:  fakeLoader{beers: base},
		Overrides: fakeOverrides{overrides: domain.Overrides{2: blank}, warnings: []string{"override nr 9: unknown field: color"}},
		Artifacts: store,
	})

	summary, err := p.Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.ValidationErrors)

	report := readReport(t, store)
	assert.Equal(t, 1, report.Conflicts)
	require.Len(t, report.Errors, 1)
	require.NotNil(t, report.Errors[0].Beer)
	assert.Equal(t, 2, *report.Errors[0].Beer)
	assert.Len(t, report.Warnings, 2)
	assert.Len(t, readSnapshot(t, store), 2, "invalid records are still published")
}

func TestRunOutputIsDeterministic(t *testing.T) {
	t.Parallel()

	run := func() []byte {
		store := &memStore{}
		p := NewPipeline(PipelineDeps{
			Baseline:  fakeLoader{beers: threeBeers()},
			Breweries: breweries(),
			Artifacts: store,
			Now:       fixedClock,
		})
		_, err := p.Run(context.Background(), RunOptions{})
		require.NoError(t, err)
		return store.objects[DefaultSnapshotName]
	}

	assert.Equal(t, string(run()), string(run()))
}

func TestRunnerRejectsOverlappingRuns(t *testing.T) {
	t.Parallel()

	slow := &fakeEnricher{name: domain.SourceOpenBreweryDB, block: make(chan struct{})}
	runner := NewRunner(NewPipeline(PipelineDeps{
		Baseline:  fakeLoader{beers: threeBeers()},
		Breweries: slow,
		Artifacts: &memStore{},
	}))

	done := make(chan error, 1)
	go func() {
		_, err := runner.Run(context.Background(), RunOptions{})
		done <- err
	}()

	require.Eventually(t, func() bool { return runner.running.Load() }, time.Second, time.Millisecond)
	_, err := runner.Run(context.Background(), RunOptions{})
	assert.ErrorIs(t, err, ErrRunInProgress)

	close(slow.block)
	require.NoError(t, <-done)

	_, err = runner.Run(context.Background(), RunOptions{DryRun: true})
	assert.NoError(t, err)
}

type immediateDriver struct {
	started bool
	stopped bool
}

func (d *immediateDriver) Start(_ context.Context, job func(time.Time)) error {
	d.started = true
	job(fixedClock())
	return nil
}

func (d *immediateDriver) Stop(context.Context) error {
	d.stopped = true
	return nil
}

func TestSchedulerRunsPipeline(t *testing.T) {
	t.Parallel()

	store := &memStore{}
	driver := &immediateDriver{}
	runner := NewRunner(NewPipeline(PipelineDeps{
		Baseline:  fakeLoader{beers: threeBeers()},
		Artifacts: store,
	}))

	s := NewScheduler(driver, runner, RunOptions{}, nil)
	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Stop(context.Background()))

	assert.True(t, driver.started)
	assert.True(t, driver.stopped)
	assert.Contains(t, store.objects, DefaultSnapshotName)
}

func TestRunWarnsOnOverridesForUnknownNrs(t *testing.T) {
	t.Parallel()

	patch := domain.NewPatch()
	require.NoError(t, patch.Set("price", "1,00 €"))

	store := &memStore{}
	p := NewPipeline(PipelineDeps{
		Baseline:  fakeLoader{beers: threeBeers()},
		Overrides: fakeOverrides{overrides: domain.Overrides{1: patch, 42: patch}},
		Artifacts: store,
		Now:       fixedClock,
	})

	summary, err := p.Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.OverridesApplied)

	report := readReport(t, store)
	require.Len(t, report.Warnings, 1)
	require.NotNil(t, report.Warnings[0].Beer)
	assert.Equal(t, 42, *report.Warnings[0].Beer)
}

func TestRunKeepsBrewerySentinelConsistent(t *testing.T) {
	t.Parallel()

	products := &fakeEnricher{name: domain.SourceOpenFoodFacts, result: domain.EnrichmentResult{
		Payloads: map[int]domain.EnrichmentPayload{},
		Discovered: []domain.EnrichedBeer{{
			Nr: 2, Name: "Found", Brewery: "-", Country: "Unknown", Category: "Beer", Size: "-", Price: "-",
			DataSources: []domain.DataSource{{Source: domain.SourceOpenFoodFacts, SourceID: "999"}},
		}},
		Stats: domain.EnrichmentStats{Discovered: 1},
	}}

	store := &memStore{}
	p := NewPipeline(PipelineDeps{
		Baseline:  fakeLoader{beers: []domain.BaselineBeer{beer(1, "Hausbier", "-", "DEUTSCHLAND")}},
		Products:  products,
		Artifacts: store,
		Now:       fixedClock,
	})

	_, err := p.Run(context.Background(), RunOptions{})
	require.NoError(t, err)

	beers := readSnapshot(t, store)
	require.Len(t, beers, 2)
	assert.Equal(t, "-", beers[0].Brewery)
	assert.Equal(t, "-", beers[1].Brewery)
}
