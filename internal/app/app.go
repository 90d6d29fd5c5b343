package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"BeerSync/internal/config"
	"BeerSync/internal/domain"
	"BeerSync/internal/enrich"
	"BeerSync/internal/infrastructure/openbrewery"
	"BeerSync/internal/infrastructure/openfoodfacts"
	"BeerSync/internal/infrastructure/parser"
	"BeerSync/internal/infrastructure/scheduler"
	"BeerSync/internal/infrastructure/storage"
	"BeerSync/internal/infrastructure/telegram"
	"BeerSync/internal/logging"
	"BeerSync/internal/ports"
	"BeerSync/internal/server"
	"BeerSync/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg    config.Config
	logger *slog.Logger
	runner *usecase.Runner
	runs   ports.RunRepository
	db     *sql.DB
}

// New builds the adapters described by cfg. The run history is optional: a
// database that cannot be reached only disables it.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	registry, err := buildRegistry(cfg, baseLogger)
	if err != nil {
		return nil, err
	}
	breweries, err := registry.Resolve(domain.SourceOpenBreweryDB)
	if err != nil {
		return nil, err
	}
	products, err := registry.Resolve(domain.SourceOpenFoodFacts)
	if err != nil {
		return nil, err
	}

	a := &Application{cfg: cfg, logger: baseLogger}

	if cfg.Database.DSN != "" {
		a.openRunHistory(ctx)
	}

	var notifier ports.Notifier
	if cfg.Notifications.Telegram.Enabled() {
		notifier = telegram.NewNotifier(cfg.Notifications.Telegram.BotToken, cfg.Notifications.Telegram.ChatID)
	}

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Baseline:     parser.NewCSVLoader(cfg.Paths.BaselineCSV, baseLogger.With("component", "parser.csv")),
		Overrides:    storage.NewJSONOverrideStore(cfg.Paths.OverridesJSON),
		Breweries:    breweries,
		Products:     products,
		Artifacts:    storage.NewFileArtifactStore(cfg.Paths.OutputDir),
		Runs:         a.runs,
		Notifier:     notifier,
		Logger:       baseLogger.With("component", "pipeline"),
		SnapshotName: cfg.Paths.SnapshotName,
		ReportName:   cfg.Paths.ReportName,
	})
	a.runner = usecase.NewRunner(pipeline)

	return a, nil
}

func buildRegistry(cfg config.Config, baseLogger *slog.Logger) (*enrich.Registry, error) {
	obdb := cfg.OpenBreweryDB
	aliases := openbrewery.DefaultAliases()
	if obdb.AliasesFile != "" {
		loaded, err := openbrewery.LoadAliases(obdb.AliasesFile)
		if err != nil {
			return nil, err
		}
		aliases = loaded
	}

	off := cfg.OpenFoodFacts

	registry := enrich.NewRegistry()
	registry.Register(openbrewery.New(openbrewery.Options{
		BaseURL:   obdb.BaseURL,
		PerPage:   obdb.PerPage,
		Delay:     obdb.RequestDelay,
		Timeout:   obdb.Timeout,
		Retries:   obdb.Retries,
		RetryStep: obdb.RetryStep,
		CacheSize: obdb.CacheSize,
		MinScore:  obdb.MinScore,
		Weights:   obdb.Weights,
		Aliases:   aliases,
	}, baseLogger.With("component", "enrich.openbrewerydb")))
	registry.Register(openfoodfacts.New(openfoodfacts.Options{
		BaseURL:          off.BaseURL,
		ProductURL:       off.ProductURL,
		PageSize:         off.PageSize,
		MaxPages:         off.MaxPages,
		Delay:            off.RequestDelay,
		Timeout:          off.Timeout,
		Retries:          off.Retries,
		RetryStep:        off.RetryStep,
		CacheSize:        off.CacheSize,
		DiscoveryLimit:   off.DiscoveryLimit,
		IncludeDiscovery: off.IncludeDiscovery,
		MinScore:         off.MinScore,
		Weights:          off.Weights,
	}, baseLogger.With("component", "enrich.openfoodfacts")))
	return registry, nil
}

func (a *Application) openRunHistory(ctx context.Context) {
	log := a.logger.With("component", "storage.postgres")

	db, err := storage.OpenPostgres(ctx, a.cfg.Database.DSN)
	if err != nil {
		log.Warn("run history disabled", "error", err)
		return
	}
	repo := storage.NewPostgresRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		log.Warn("run history disabled", "error", err)
		_ = db.Close()
		return
	}
	a.db = db
	a.runs = repo
}

// Sync performs one pipeline execution.
func (a *Application) Sync(ctx context.Context, opts usecase.RunOptions) (usecase.Summary, error) {
	return a.runner.Run(ctx, opts)
}

// Serve starts the trigger endpoint and, when an interval is configured, the
// recurring scheduler. It blocks until ctx is cancelled.
func (a *Application) Serve(ctx context.Context, addr string) error {
	if addr == "" {
		addr = a.cfg.Server.Addr
	}

	var history server.RunHistory
	if a.runs != nil {
		history = a.runs
	}
	srv := server.New(server.Options{
		CronSecret:   a.cfg.Server.CronSecret,
		RequestDelay: a.cfg.OpenBreweryDB.RequestDelay,
		Runner:       a.runner,
		History:      history,
		Logger:       a.logger.With("component", "server"),
	})

	if a.cfg.Server.CronSecret == "" {
		a.logger.Warn("CRON_SECRET is not set; the trigger endpoint refuses every request")
	}

	if a.cfg.Server.Interval > 0 {
		sched := usecase.NewScheduler(
			scheduler.NewIntervalScheduler(a.cfg.Server.Interval, a.cfg.Server.RunOnStart),
			a.runner,
			usecase.RunOptions{},
			a.logger.With("component", "scheduler"),
		)
		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
		defer func() {
			if err := sched.Stop(context.Background()); err != nil {
				a.logger.Warn("stop scheduler", "error", err)
			}
		}()
	}

	return srv.ListenAndServe(ctx, addr)
}

// Close releases the database handle, if any.
func (a *Application) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}
