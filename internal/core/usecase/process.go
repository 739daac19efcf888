package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mkuzmin/askdoc/internal/core/domain"
	"github.com/mkuzmin/askdoc/internal/core/ports"
)

// ProcessDocumentUseCase turns an uploaded document into searchable vectors:
// extract text, chunk, embed, index, then record the document in the
// knowledge graph.
type ProcessDocumentUseCase struct {
	repo      ports.DocumentRepository
	extractor ports.TextExtractor
	chunker   ports.Chunker
	embedder  ports.Embedder
	vectorDB  ports.VectorStore
	graph     ports.KnowledgeGraph
}

func NewProcessDocumentUseCase(
	repo ports.DocumentRepository,
	extractor ports.TextExtractor,
	chunker ports.Chunker,
	embedder ports.Embedder,
	vectorDB ports.VectorStore,
	graph ports.KnowledgeGraph,
) *ProcessDocumentUseCase {
	return &ProcessDocumentUseCase{
		repo:      repo,
		extractor: extractor,
		chunker:   chunker,
		embedder:  embedder,
		vectorDB:  vectorDB,
		graph:     graph,
	}
}

func (uc *ProcessDocumentUseCase) ProcessByID(ctx context.Context, documentID string) error {
	if err := uc.repo.UpdateStatus(ctx, documentID, domain.StatusProcessing, ""); err != nil {
		return fmt.Errorf("set status=processing: %w", err)
	}

	doc, chunkCount, err := uc.processPipeline(ctx, documentID)
	if err != nil {
		if failErr := uc.repo.UpdateStatus(ctx, documentID, domain.StatusFailed, err.Error()); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.repo.SetChunkCount(ctx, doc.ID, chunkCount); err != nil {
		return fmt.Errorf("save chunk count: %w", err)
	}
	if err := uc.repo.UpdateStatus(ctx, documentID, domain.StatusReady, ""); err != nil {
		return fmt.Errorf("set status=ready: %w", err)
	}
	return nil
}

func (uc *ProcessDocumentUseCase) processPipeline(ctx context.Context, documentID string) (*domain.Document, int, error) {
	doc, err := uc.repo.GetByID(ctx, documentID)
	if err != nil {
		return nil, 0, fmt.Errorf("fetch document by id: %w", err)
	}

	text, err := uc.extractor.Extract(ctx, doc)
	if err != nil {
		return nil, 0, fmt.Errorf("extract text: %w", err)
	}
	if text == "" {
		return nil, 0, domain.WrapError(domain.ErrInvalidInput, "extract text", errors.New("empty extracted text"))
	}

	chunks := uc.chunker.Split(text)
	if len(chunks) == 0 {
		return nil, 0, domain.WrapError(domain.ErrInvalidInput, "chunk document", errors.New("chunking produced zero chunks"))
	}

	vectors, err := uc.embedder.Embed(ctx, chunks)
	if err != nil {
		return nil, 0, fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return nil, 0, domain.WrapError(
			domain.ErrInvalidInput,
			"embed chunks",
			fmt.Errorf("vectors/chunks mismatch: %d/%d", len(vectors), len(chunks)),
		)
	}

	if err := uc.vectorDB.IndexChunks(ctx, doc, chunks, vectors); err != nil {
		return nil, 0, fmt.Errorf("index chunks in vector db: %w", err)
	}

	// Graph recording is best-effort; the document is already searchable.
	if uc.graph != nil {
		if err := uc.graph.RecordDocument(ctx, doc, len(chunks)); err != nil {
			slog.Warn("knowledge_graph_record_failed", "document_id", doc.ID, "error", err)
		}
	}

	return doc, len(chunks), nil
}
