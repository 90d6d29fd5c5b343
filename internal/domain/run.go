package domain

import (
	"errors"
	"time"
)

// ErrNoRuns is returned when the run history is empty.
var ErrNoRuns = errors.New("no sync runs recorded")

// RunRecord is the persisted history entry of one finished, non-dry-run sync.
type RunRecord struct {
	RunID            string        `json:"runId"`
	StartedAt        time.Time     `json:"startedAt"`
	FinishedAt       time.Time     `json:"finishedAt"`
	InputCount       int           `json:"inputCount"`
	OutputCount      int           `json:"outputCount"`
	Discovered       int           `json:"discovered"`
	Unmatched        int           `json:"unmatched"`
	Conflicts        int           `json:"conflicts"`
	OverridesApplied int           `json:"overridesApplied"`
	ErrorCount       int           `json:"errorCount"`
	WarningCount     int           `json:"warningCount"`
	SnapshotLocation string        `json:"snapshotLocation"`
	ReportLocation   string        `json:"reportLocation"`
	Report           QualityReport `json:"report"`
}

// NewRunRecord projects a finished report and its artifact locations into a history entry.
func NewRunRecord(report QualityReport, snapshotLocation, reportLocation string) RunRecord {
	return RunRecord{
		RunID:            report.RunID,
		StartedAt:        report.StartedAt,
		FinishedAt:       report.FinishedAt,
		InputCount:       report.InputCount,
		OutputCount:      report.OutputCount,
		Discovered:       report.Discovered,
		Unmatched:        report.Unmatched,
		Conflicts:        report.Conflicts,
		OverridesApplied: report.OverridesApplied,
		ErrorCount:       len(report.Errors),
		WarningCount:     len(report.Warnings),
		SnapshotLocation: snapshotLocation,
		ReportLocation:   reportLocation,
		Report:           report,
	}
}
