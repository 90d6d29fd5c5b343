package ports

import (
	"context"
	"time"

	"BeerSync/internal/domain"
)

// BaselineLoader reads the canonical beer list.
type BaselineLoader interface {
	LoadBaseline(ctx context.Context) ([]domain.BaselineBeer, error)
}

// OverrideStore returns the manual corrections keyed by beer nr, plus
// non-fatal problems found while loading them.
type OverrideStore interface {
	LoadOverrides(ctx context.Context) (domain.Overrides, []string, error)
}

// Enricher pulls optional metadata for baseline records from an external directory.
type Enricher interface {
	Name() string
	Enrich(ctx context.Context, beers []domain.BaselineBeer) (domain.EnrichmentResult, error)
}

// ArtifactStore persists the serialized snapshot and report; it returns the artifact location.
type ArtifactStore interface {
	Put(ctx context.Context, name string, data []byte) (string, error)
}

// RunRepository keeps a history of finished runs.
type RunRepository interface {
	SaveRun(ctx context.Context, run domain.RunRecord) error
	LatestRun(ctx context.Context) (domain.RunRecord, error)
}

// Notifier streams run summaries to Telegram or other channels.
type Notifier interface {
	PublishSummary(ctx context.Context, summary string) error
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
