package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/quaydocs/corpus-assistant/internal/adapters/chat"
	httpadapter "github.com/quaydocs/corpus-assistant/internal/adapters/http"
	"github.com/quaydocs/corpus-assistant/internal/config"
	"github.com/quaydocs/corpus-assistant/internal/core/usecase"
	"github.com/quaydocs/corpus-assistant/internal/infrastructure/chunking"
	"github.com/quaydocs/corpus-assistant/internal/infrastructure/extractor"
	"github.com/quaydocs/corpus-assistant/internal/infrastructure/llm/ollama"
	natsqueue "github.com/quaydocs/corpus-assistant/internal/infrastructure/queue/nats"
	"github.com/quaydocs/corpus-assistant/internal/infrastructure/repository/postgres"
	"github.com/quaydocs/corpus-assistant/internal/infrastructure/resilience"
	"github.com/quaydocs/corpus-assistant/internal/infrastructure/storage/localfs"
	"github.com/quaydocs/corpus-assistant/internal/infrastructure/vector/qdrant"
	"github.com/quaydocs/corpus-assistant/internal/observability/logging"
	"github.com/quaydocs/corpus-assistant/internal/observability/metrics"
)

// App holds every wired component shared by the entrypoints. Both binaries
// build the same graph and pick the pieces they serve.
type App struct {
	Config config.Config
	Logger *slog.Logger

	Tenants  *usecase.TenantDirectory
	Ingest   *usecase.IngestUseCase
	Ask      *usecase.AskUseCase
	Bindings *usecase.BindingUseCase

	Queue      *natsqueue.Queue
	APIMetrics *metrics.APIMetrics

	db *sql.DB
}

func NewApp(ctx context.Context, service string) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger := logging.NewJSONLogger(service, cfg.LogLevel)
	slog.SetDefault(logger)

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	bindingRepo := postgres.NewBindingRepository(db)
	if err := bindingRepo.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	queue, err := natsqueue.NewWithOptions(cfg.NATSURL, natsqueue.Subjects{
		Ingested:     cfg.IngestedSubject,
		ChatInbound:  cfg.ChatInboundSubject,
		ChatOutbound: cfg.ChatOutboundPrefix,
	}, natsqueue.Options{ResilienceExecutor: executor})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connect nats: %w", err)
	}

	archive, err := localfs.New(cfg.StoragePath)
	if err != nil {
		queue.Close()
		db.Close()
		return nil, fmt.Errorf("init storage: %w", err)
	}

	vectorStore := qdrant.New(cfg.QdrantURL)
	llmClient := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, executor)
	embedder := ollama.NewEmbedder(llmClient)
	generator := ollama.NewGenerator(llmClient)

	tenants := usecase.NewTenantDirectory(cfg.Tenants)
	registry := usecase.NewCollectionRegistry(vectorStore, cfg.VectorSize)
	splitter := chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)

	ingest := usecase.NewIngestUseCase(
		registry,
		archive,
		extractor.New(),
		splitter,
		embedder,
		vectorStore,
		queue,
		logger,
	)
	ask := usecase.NewAskUseCase(registry, embedder, vectorStore, generator, cfg.RetrieveTopK)
	bindings := usecase.NewBindingUseCase(bindingRepo, tenants, registry)

	return &App{
		Config:     cfg,
		Logger:     logger,
		Tenants:    tenants,
		Ingest:     ingest,
		Ask:        ask,
		Bindings:   bindings,
		Queue:      queue,
		APIMetrics: metrics.NewAPIMetrics(service),
		db:         db,
	}, nil
}

// APIHandler builds the HTTP front end over the wired services.
func (a *App) APIHandler() *httpadapter.Router {
	return httpadapter.NewRouter(
		a.Ingest,
		a.Ask,
		a.Bindings,
		a.Tenants,
		a.APIMetrics,
		a.Config.APIRateLimitRPS,
		a.Config.APIRateLimitBurst,
	)
}

// Gateway builds the chat bridge over the wired services.
func (a *App) Gateway(gatewayMetrics *metrics.GatewayMetrics) *chat.Gateway {
	return chat.NewGateway(a.Queue, a.Bindings, a.Ask, a.Tenants, gatewayMetrics, a.Logger)
}

func (a *App) Close() {
	if a.Queue != nil {
		a.Queue.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}
