// Package quality accumulates run metrics and projects them into the
// published quality report.
package quality

import (
	"time"

	"github.com/google/uuid"

	"BeerSync/internal/domain"
)

// Tracker is a mutable accumulator for one run. It is not safe for concurrent use.
type Tracker struct {
	now func() time.Time

	runID      string
	startedAt  time.Time
	finishedAt time.Time
	finished   bool

	inputCount       int
	outputCount      int
	matched          map[string]int
	discovered       int
	unmatched        int
	conflicts        int
	overridesApplied int
	missingFields    map[string]int
	errors           []domain.Issue
	warnings         []domain.Issue
}

// NewTracker starts tracking a run; nil now means time.Now.
func NewTracker(now func() time.Time) *Tracker {
	if now == nil {
		now = time.Now
	}
	return &Tracker{
		now:           now,
		runID:         uuid.NewString(),
		startedAt:     now().UTC(),
		matched:       map[string]int{domain.MatchKeyOpenBreweryDB: 0},
		missingFields: map[string]int{},
	}
}

// RunID identifies the run in logs, artifacts and history.
func (t *Tracker) RunID() string { return t.runID }

// StartedAt returns the tracker creation time.
func (t *Tracker) StartedAt() time.Time { return t.startedAt }

func (t *Tracker) RecordInput(n int) { t.inputCount = n }

func (t *Tracker) RecordOutput(n int) { t.outputCount = n }

// RecordMatch counts one matched record for the report key of a source.
func (t *Tracker) RecordMatch(key string) { t.matched[key]++ }

func (t *Tracker) RecordUnmatched() { t.unmatched++ }

func (t *Tracker) RecordDiscovered(n int) { t.discovered += n }

func (t *Tracker) RecordOverride() { t.overridesApplied++ }

func (t *Tracker) RecordMissingField(field string) { t.missingFields[field]++ }

// RecordConflict counts a conflict and keeps its message as a warning.
func (t *Tracker) RecordConflict(nr *int, message string) {
	t.conflicts++
	t.RecordWarning(nr, message)
}

// RecordError adds an error; nr is nil for run-level problems.
func (t *Tracker) RecordError(nr *int, message string) {
	t.errors = append(t.errors, domain.Issue{Beer: copyNr(nr), Message: message})
}

// RecordWarning adds a warning; nr is nil for run-level problems.
func (t *Tracker) RecordWarning(nr *int, message string) {
	t.warnings = append(t.warnings, domain.Issue{Beer: copyNr(nr), Message: message})
}

// ErrorCount returns the number of recorded errors.
func (t *Tracker) ErrorCount() int { return len(t.errors) }

// Finish locks the end timestamp. Later calls keep the first one.
func (t *Tracker) Finish() {
	if t.finished {
		return
	}
	t.finishedAt = t.now().UTC()
	t.finished = true
}

// Report projects the tracker into an immutable report. It fails until Finish was called.
func (t *Tracker) Report() (domain.QualityReport, error) {
	if !t.finished {
		return domain.QualityReport{}, domain.ErrReportNotFinished
	}

	matched := map[string]int{domain.MatchKeyOpenBreweryDB: t.matched[domain.MatchKeyOpenBreweryDB]}
	for key, n := range t.matched {
		if n > 0 {
			matched[key] = n
		}
	}

	missing := make(map[string]int, len(t.missingFields))
	for f, n := range t.missingFields {
		missing[f] = n
	}

	return domain.QualityReport{
		RunID:            t.runID,
		StartedAt:        t.startedAt,
		FinishedAt:       t.finishedAt,
		DurationMs:       t.finishedAt.Sub(t.startedAt).Milliseconds(),
		InputCount:       t.inputCount,
		OutputCount:      t.outputCount,
		Matched:          matched,
		Discovered:       t.discovered,
		Unmatched:        t.unmatched,
		Conflicts:        t.conflicts,
		OverridesApplied: t.overridesApplied,
		MissingFields:    missing,
		Errors:           append([]domain.Issue{}, t.errors...),
		Warnings:         append([]domain.Issue{}, t.warnings...),
	}, nil
}

func copyNr(nr *int) *int {
	if nr == nil {
		return nil
	}
	v := *nr
	return &v
}
