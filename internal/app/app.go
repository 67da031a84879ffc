package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"

	"HangarWatch/internal/config"
	"HangarWatch/internal/domain"
	"HangarWatch/internal/infrastructure/cache"
	"HangarWatch/internal/infrastructure/docarchive"
	"HangarWatch/internal/infrastructure/embedding"
	"HangarWatch/internal/infrastructure/llm"
	"HangarWatch/internal/infrastructure/mailjet"
	"HangarWatch/internal/infrastructure/parser"
	"HangarWatch/internal/infrastructure/report"
	"HangarWatch/internal/infrastructure/scheduler"
	"HangarWatch/internal/infrastructure/storage"
	"HangarWatch/internal/infrastructure/telegram"
	"HangarWatch/internal/logging"
	"HangarWatch/internal/ports"
	"HangarWatch/internal/scanner"
	"HangarWatch/internal/usecase"
)

const shutdownTimeout = 30 * time.Second

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg    config.Config
	logger *slog.Logger

	db       *sql.DB
	postgres *storage.PostgresRepository
	store    ports.IncidentStore
	redis    *cache.RedisCache

	registry  *scanner.Registry
	source    *parser.StrategySource
	embedder  ports.Embedder
	pipeline  *usecase.Pipeline
	exporter  *report.ExcelExporter
	notifiers []ports.Notifier
	importer  *usecase.ArchiveImporter
}

// New builds the application graph. Network resources are not touched except for the
// optional Redis ping; an unreachable cache is logged and skipped.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}
	a := &Application{cfg: cfg, logger: baseLogger}

	if err := a.initStore(); err != nil {
		return nil, err
	}
	a.initEmbedder(ctx)

	oracle, err := newOracle(cfg.Classifier)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	a.registry = scanner.NewRegistry()
	a.registry.Register(parser.NewNewsAPIScanner(nil, cfg.Providers.NewsAPI))
	a.registry.Register(parser.NewSerpAPIScanner(nil, cfg.Providers.SerpAPI, parser.EngineGoogleNews))
	a.registry.Register(parser.NewSerpAPIScanner(nil, cfg.Providers.SerpAPI, parser.EngineBingNews))
	a.source = parser.NewStrategySource(a.registry, cfg.Sources, baseLogger.With("component", "source"))

	a.pipeline = usecase.NewPipeline(usecase.PipelineDeps{
		Embedder:   a.embedder,
		Store:      a.store,
		Classifier: usecase.NewDuplicateClassifier(oracle, baseLogger.With("component", "classifier")),
		Neighbors:  cfg.Classifier.Neighbors,
		Clock:      zonedClock(cfg.Scheduler.Location()),
		Logger:     baseLogger.With("component", "pipeline"),
	})

	a.exporter = report.NewExcelExporter(cfg.Report.Path)
	a.notifiers = newNotifiers(cfg.Notifications, baseLogger)
	a.importer = usecase.NewArchiveImporter(a.embedder, a.store, baseLogger.With("component", "archive"))

	return a, nil
}

func (a *Application) initStore() error {
	if a.cfg.UsesMemoryStore() {
		a.logger.Warn("using in-memory incident store; nothing survives the process")
		a.store = storage.NewMemoryRepository()
		return nil
	}

	db, err := sql.Open("postgres", a.cfg.Database.DSN)
	if err != nil {
		return domain.StoreError("open database", err)
	}
	a.db = db
	a.postgres = storage.NewPostgresRepository(db, a.cfg.Database.Table)
	a.store = a.postgres
	return nil
}

func (a *Application) initEmbedder(ctx context.Context) {
	client := embedding.NewOpenAIClient(a.cfg.Embedding)
	a.embedder = client

	if a.cfg.Cache.Addr == "" {
		return
	}
	rc, err := cache.NewRedisCache(ctx, a.cfg.Cache)
	if err != nil {
		a.logger.Warn("embedding cache disabled", "addr", a.cfg.Cache.Addr, "error", err)
		return
	}
	a.redis = rc
	a.embedder = embedding.NewCachedEmbedder(client, rc, client.Model(), a.cfg.Cache.TTL,
		a.logger.With("component", "embedding.cache"))
}

// zonedClock reports wall time in loc so weekly batch tags follow the configured timezone.
func zonedClock(loc *time.Location) func() time.Time {
	return func() time.Time { return time.Now().In(loc) }
}

func newOracle(cfg config.ClassifierConfig) (ports.Oracle, error) {
	switch cfg.Provider {
	case "", config.ProviderOpenAI:
		return llm.NewChatGPTClient(cfg.ChatGPT), nil
	case config.ProviderAnthropic:
		return llm.NewAnthropicClient(cfg.Anthropic), nil
	default:
		return nil, fmt.Errorf("unknown classifier provider %q", cfg.Provider)
	}
}

func newNotifiers(cfg config.NotificationConfig, logger *slog.Logger) []ports.Notifier {
	var out []ports.Notifier
	if cfg.Telegram.BotToken != "" && cfg.Telegram.ChatID != "" {
		out = append(out, telegram.NewNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID))
	} else {
		logger.Info("telegram digest disabled")
	}
	mj := cfg.Mailjet
	if mj.APIKeyPublic != "" && mj.APIKeyPrivate != "" && mj.SenderEmail != "" && mj.RecipientEmail != "" {
		out = append(out, mailjet.NewSender(mj))
	} else {
		logger.Info("mailjet report disabled")
	}
	return out
}

func (a *Application) collector(source ports.RecordSource, skipFailed bool) *usecase.Collector {
	return usecase.NewCollector(usecase.CollectorDeps{
		Source:     source,
		Pipeline:   a.pipeline,
		Store:      a.store,
		Exporter:   a.exporter,
		Notifiers:  a.notifiers,
		SkipFailed: skipFailed,
		Logger:     a.logger.With("component", "collector"),
	})
}

// Collect fetches from every configured provider and ingests the result.
func (a *Application) Collect(ctx context.Context, backfill bool) (usecase.CollectResult, error) {
	now := time.Now().In(a.cfg.Scheduler.Location())
	return a.collector(a.source, false).Collect(ctx, now, backfill)
}

// Ingest runs already fetched records through the pipeline.
func (a *Application) Ingest(ctx context.Context, records []domain.RawRecord, backfill, skipFailed bool) (usecase.CollectResult, error) {
	return a.collector(nil, skipFailed).Process(ctx, records, backfill)
}

// Scrape runs the sources bound to one scanner and returns their raw records without ingesting.
func (a *Application) Scrape(ctx context.Context, scannerName string, weekly bool) ([]domain.RawRecord, error) {
	if _, err := a.registry.Resolve(scannerName); err != nil {
		return nil, fmt.Errorf("%w (known: %v)", err, a.registry.Names())
	}

	var sources []config.SourceConfig
	for _, src := range a.cfg.Sources {
		if src.Scanner == scannerName {
			sources = append(sources, src)
		}
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("no configured source uses scanner %q", scannerName)
	}

	src := parser.NewStrategySource(a.registry, sources, a.logger.With("component", "source"))
	return src.Fetch(ctx, ports.FetchRequest{
		Now:    time.Now().In(a.cfg.Scheduler.Location()),
		Weekly: weekly,
	})
}

// ImportArchive parses a .docx archive and stores its entries under the archive tag.
func (a *Application) ImportArchive(ctx context.Context, path string, clear bool) (int, error) {
	records, err := docarchive.ParseFile(path)
	if err != nil {
		return 0, domain.ValidationError("parse archive", err)
	}
	a.logger.Info("archive parsed", "path", path, "records", len(records))
	return a.importer.Import(ctx, records, clear)
}

// Export writes the report for all non-archive incidents to path (configured path when empty).
func (a *Application) Export(ctx context.Context, path string) (string, int, error) {
	incidents, err := a.store.ListForReport(ctx)
	if err != nil {
		return "", 0, err
	}
	if path == "" {
		path = a.exporter.Path()
	}
	if err := a.exporter.ExportTo(path, incidents); err != nil {
		return "", 0, err
	}
	return path, len(incidents), nil
}

// Clear removes every incident from the store.
func (a *Application) Clear(ctx context.Context) error {
	return a.store.DeleteAll(ctx)
}

// Migrate prepares the Postgres schema.
func (a *Application) Migrate(ctx context.Context) error {
	if a.postgres == nil {
		return errors.New("migrate needs a postgres database; the in-memory store has no schema")
	}
	return a.postgres.Migrate(ctx, a.cfg.Database.Dimensions)
}

// Run starts the periodic collection and blocks until ctx is cancelled.
func (a *Application) Run(ctx context.Context) error {
	driver := scheduler.NewIntervalScheduler(a.cfg.Scheduler.Interval, a.cfg.Scheduler.Location())
	sched := usecase.NewScheduler(driver, a.collector(a.source, false), a.logger.With("component", "scheduler"))

	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	a.logger.Info("scheduler started", "interval", a.cfg.Scheduler.Interval, "timezone", a.cfg.Scheduler.Location().String())

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := sched.Stop(stopCtx); err != nil {
		return fmt.Errorf("stop scheduler: %w", err)
	}
	a.logger.Info("scheduler stopped")
	return nil
}

// Close releases the database and cache connections.
func (a *Application) Close() error {
	var errs []error
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	return errors.Join(errs...)
}
