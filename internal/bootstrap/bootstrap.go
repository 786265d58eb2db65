package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/northbridge-ai/diligence/internal/config"
	"github.com/northbridge-ai/diligence/internal/core/ports"
	"github.com/northbridge-ai/diligence/internal/core/usecase"
	"github.com/northbridge-ai/diligence/internal/infrastructure/chunking"
	"github.com/northbridge-ai/diligence/internal/infrastructure/dedup"
	"github.com/northbridge-ai/diligence/internal/infrastructure/llm/ollama"
	"github.com/northbridge-ai/diligence/internal/infrastructure/loaders"
	natsqueue "github.com/northbridge-ai/diligence/internal/infrastructure/queue/nats"
	"github.com/northbridge-ai/diligence/internal/infrastructure/repository/postgres"
	"github.com/northbridge-ai/diligence/internal/infrastructure/resilience"
	"github.com/northbridge-ai/diligence/internal/infrastructure/vector/chroma"
)

// App holds every wired component; binaries pick what they serve.
type App struct {
	Config config.Config

	Queue    *natsqueue.Queue
	Runs     ports.RunRepository
	Searcher ports.Searcher
	Answerer ports.Answerer
	Pipeline ports.Ingestor

	closeFn func()
}

// Options toggles optional subsystems so the CLI can skip the broker and
// the run registry.
type Options struct {
	SkipQueue    bool
	SkipPostgres bool
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger, opts Options) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	executor := resilience.NewExecutor(resilience.DefaultPolicy(), logger)

	ollamaClient := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, executor)
	embedder := ollama.NewEmbedder(ollamaClient)
	generator := ollama.NewGenerator(ollamaClient)

	collections, err := chroma.NewProvider(cfg.ChromaURL, chroma.NewEmbeddingFunc(embedder))
	if err != nil {
		return nil, fmt.Errorf("init vector store: %w", err)
	}

	searcher := usecase.NewHybridRetriever(collections, usecase.NewBM25Cache(), usecase.RetrieverConfig{
		SemanticWeight: cfg.SemanticWeight,
		BM25Weight:     cfg.BM25Weight,
		UseMMR:         cfg.UseMMR,
		MMRDiversity:   cfg.MMRDiversity,
	}, logger)
	answerer := usecase.NewAnswerService(searcher, generator, logger)

	deduper := dedup.NewHybrid(cfg.FuzzyThreshold, dedup.DefaultNumPerm, dedup.DefaultNgramSize)
	chunker := chunking.NewAdaptiveChunker(cfg.ChunkSize, cfg.ChunkOverlap)
	pipeline := usecase.NewIngestPipeline(loaders.All(), chunker, deduper, collections, cfg.BatchSize, logger)

	app := &App{
		Config:   cfg,
		Searcher: searcher,
		Answerer: answerer,
		Pipeline: pipeline,
	}

	closers := []func(){func() { _ = collections.Close() }}

	if !opts.SkipPostgres {
		db, err := postgres.OpenDB(cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		runs := postgres.NewRunRepository(db)
		if err := runs.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		app.Runs = runs
		closers = append(closers, func() { _ = db.Close() })
	}

	if !opts.SkipQueue {
		queue, err := natsqueue.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, natsqueue.Options{
			ResilienceExecutor: executor,
			Logger:             logger,
		})
		if err != nil {
			return nil, fmt.Errorf("init message queue: %w", err)
		}
		app.Queue = queue
		closers = append(closers, queue.Close)
	}

	app.closeFn = func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	return app, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
