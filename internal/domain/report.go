package domain

import (
	"errors"
	"time"
)

// ErrReportNotFinished is returned when a report is requested before the run is finished.
var ErrReportNotFinished = errors.New("quality tracker not finished")

// Issue is one error or warning entry of a quality report. Beer is nil for run-level issues.
type Issue struct {
	Beer    *int   `json:"beer"`
	Message string `json:"message"`
}

// QualityReport is the immutable, machine-readable summary of one sync run.
type QualityReport struct {
	RunID            string         `json:"runId"`
	StartedAt        time.Time      `json:"startedAt"`
	FinishedAt       time.Time      `json:"finishedAt"`
	DurationMs       int64          `json:"durationMs"`
	InputCount       int            `json:"inputCount"`
	OutputCount      int            `json:"outputCount"`
	Matched          map[string]int `json:"matched"`
	Discovered       int            `json:"discovered"`
	Unmatched        int            `json:"unmatched"`
	Conflicts        int            `json:"conflicts"`
	OverridesApplied int            `json:"overridesApplied"`
	MissingFields    map[string]int `json:"missingFields"`
	Errors           []Issue        `json:"errors"`
	Warnings         []Issue        `json:"warnings"`
}

// Report keys for per-source match counts.
const (
	MatchKeyOpenBreweryDB = "openBreweryDb"
	MatchKeyOpenFoodFacts = "openFoodFacts"
)
