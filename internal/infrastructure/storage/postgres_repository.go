package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"

	"BeerSync/internal/domain"
	"BeerSync/internal/ports"
)

const runsTable = "sync_runs"

const schema = `CREATE TABLE IF NOT EXISTS sync_runs (
    run_id            TEXT PRIMARY KEY,
    started_at        TIMESTAMPTZ NOT NULL,
    finished_at       TIMESTAMPTZ NOT NULL,
    input_count       INTEGER NOT NULL,
    output_count      INTEGER NOT NULL,
    discovered        INTEGER NOT NULL,
    unmatched         INTEGER NOT NULL,
    conflicts         INTEGER NOT NULL,
    overrides_applied INTEGER NOT NULL,
    error_count       INTEGER NOT NULL,
    warning_count     INTEGER NOT NULL,
    snapshot_location TEXT NOT NULL,
    report_location   TEXT NOT NULL,
    report            JSONB NOT NULL,
    created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

var runColumns = []string{
	"run_id", "started_at", "finished_at", "input_count", "output_count",
	"discovered", "unmatched", "conflicts", "overrides_applied",
	"error_count", "warning_count", "snapshot_location", "report_location", "report",
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PostgresRepository keeps the history of sync runs in Postgres.
type PostgresRepository struct {
	db *sql.DB
}

var _ ports.RunRepository = (*PostgresRepository)(nil)

// NewPostgresRepository wires a sql.DB implementation.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// OpenPostgres opens and pings a database handle for dsn.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// EnsureSchema creates the history table if it does not exist.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if r.db == nil {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create %s: %w", runsTable, err)
	}
	return nil
}

// SaveRun inserts the run; re-saving the same run id is a no-op.
func (r *PostgresRepository) SaveRun(ctx context.Context, run domain.RunRecord) error {
	if r.db == nil {
		return nil
	}

	query, args, err := insertRunQuery(run)
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// LatestRun returns the most recently finished run or domain.ErrNoRuns.
func (r *PostgresRepository) LatestRun(ctx context.Context) (domain.RunRecord, error) {
	if r.db == nil {
		return domain.RunRecord{}, domain.ErrNoRuns
	}

	query, args, err := latestRunQuery()
	if err != nil {
		return domain.RunRecord{}, err
	}

	var (
		run    domain.RunRecord
		report []byte
	)
	err = r.db.QueryRowContext(ctx, query, args...).Scan(
		&run.RunID, &run.StartedAt, &run.FinishedAt, &run.InputCount, &run.OutputCount,
		&run.Discovered, &run.Unmatched, &run.Conflicts, &run.OverridesApplied,
		&run.ErrorCount, &run.WarningCount, &run.SnapshotLocation, &run.ReportLocation, &report,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.RunRecord{}, domain.ErrNoRuns
	}
	if err != nil {
		return domain.RunRecord{}, fmt.Errorf("query latest run: %w", err)
	}

	if err := json.Unmarshal(report, &run.Report); err != nil {
		return domain.RunRecord{}, fmt.Errorf("decode run report: %w", err)
	}
	return run, nil
}

func insertRunQuery(run domain.RunRecord) (string, []any, error) {
	report, err := json.Marshal(run.Report)
	if err != nil {
		return "", nil, fmt.Errorf("encode run report: %w", err)
	}

	query, args, err := psql.Insert(runsTable).
		Columns(runColumns...).
		Values(
			run.RunID, run.StartedAt, run.FinishedAt, run.InputCount, run.OutputCount,
			run.Discovered, run.Unmatched, run.Conflicts, run.OverridesApplied,
			run.ErrorCount, run.WarningCount, run.SnapshotLocation, run.ReportLocation, string(report),
		).
		Suffix("ON CONFLICT (run_id) DO NOTHING").
		ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("build insert run: %w", err)
	}
	return query, args, nil
}

func latestRunQuery() (string, []any, error) {
	query, args, err := psql.Select(runColumns...).
		From(runsTable).
		OrderBy("finished_at DESC", "created_at DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("build latest run: %w", err)
	}
	return query, args, nil
}
