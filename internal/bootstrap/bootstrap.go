package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/mkuzmin/askdoc/internal/config"
	"github.com/mkuzmin/askdoc/internal/core/ports"
	"github.com/mkuzmin/askdoc/internal/core/usecase"
	"github.com/mkuzmin/askdoc/internal/infrastructure/chunking"
	"github.com/mkuzmin/askdoc/internal/infrastructure/extractor"
	"github.com/mkuzmin/askdoc/internal/infrastructure/graph/neo4j"
	"github.com/mkuzmin/askdoc/internal/infrastructure/llm/ollama"
	natsqueue "github.com/mkuzmin/askdoc/internal/infrastructure/queue/nats"
	"github.com/mkuzmin/askdoc/internal/infrastructure/repository/postgres"
	"github.com/mkuzmin/askdoc/internal/infrastructure/resilience"
	"github.com/mkuzmin/askdoc/internal/infrastructure/storage/localfs"
	"github.com/mkuzmin/askdoc/internal/infrastructure/vector/qdrant"
)

// App holds the wired dependency graph shared by the api and worker
// processes.
type App struct {
	Config config.Config

	DB    *sql.DB
	Repo  *postgres.DocumentRepository
	Queue *natsqueue.Queue
	Graph *neo4j.Store

	AskUC     ports.QueryService
	IngestUC  ports.DocumentIngestor
	ProcessUC ports.DocumentProcessor
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	repo := postgres.NewDocumentRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultPolicy())

	queue, err := natsqueue.New(cfg.NATSURL, cfg.NATSSubject, executor)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init queue: %w", err)
	}

	ollamaClient := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, executor)
	generator := ollama.NewGenerator(ollamaClient)
	embedder := ollama.NewEmbedder(ollamaClient)

	vectorStore := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection, embedder)

	// The knowledge graph is optional; citation enrichment and graph
	// recording are skipped when no URI is configured.
	var graph *neo4j.Store
	var graphPort ports.KnowledgeGraph
	if cfg.Neo4jURI != "" {
		graph, err = neo4j.Connect(ctx, cfg.Neo4jURI, cfg.Neo4jUser, cfg.Neo4jPassword)
		if err != nil {
			queue.Close()
			db.Close()
			return nil, fmt.Errorf("connect neo4j: %w", err)
		}
		graphPort = graph
	} else {
		slog.Info("knowledge_graph_disabled")
	}

	askUC := usecase.NewAskUseCase(generator, vectorStore, graphPort, usecase.AskConfig{
		ExpansionCount:    cfg.RAGExpansionCount,
		PerQueryLimit:     cfg.RAGPerQueryLimit,
		ContextCharBudget: cfg.RAGContextCharBudget,
	})
	ingestUC := usecase.NewIngestDocumentUseCase(repo, storage, queue)
	processUC := usecase.NewProcessDocumentUseCase(
		repo,
		extractor.New(storage),
		chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap),
		embedder,
		vectorStore,
		graphPort,
	)

	return &App{
		Config: cfg,

		DB:    db,
		Repo:  repo,
		Queue: queue,
		Graph: graph,

		AskUC:     askUC,
		IngestUC:  ingestUC,
		ProcessUC: processUC,
	}, nil
}

func (a *App) Close(ctx context.Context) {
	if a.Graph != nil {
		if err := a.Graph.Close(ctx); err != nil {
			slog.Warn("neo4j_close_failed", "error", err)
		}
	}
	if a.Queue != nil {
		a.Queue.Close()
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			slog.Warn("postgres_close_failed", "error", err)
		}
	}
}
