package ports

import (
	"context"
	"io"

	"github.com/mkuzmin/askdoc/internal/core/domain"
)

// LanguageModel is the completion boundary. Both calls are remote,
// rate-limited and fallible; callers treat any failure as terminal for the
// current request.
type LanguageModel interface {
	Complete(ctx context.Context, prompt string) (string, error)
	// CompleteStream forwards each generated fragment to onFragment in
	// generation order and returns the full concatenated text. A non-nil
	// error from onFragment stops forwarding.
	CompleteStream(ctx context.Context, prompt string, onFragment func(string) error) (string, error)
}

// VectorStore indexes chunks and answers similarity searches. Search takes
// the raw query text; embedding happens behind the boundary. A store whose
// index was never populated reports domain.ErrEmptyIndex, distinct from an
// empty result list.
type VectorStore interface {
	IndexChunks(ctx context.Context, doc *domain.Document, chunks []string, vectors [][]float32) error
	Search(ctx context.Context, query string, limit int) ([]domain.Passage, error)
}

// Embedder builds vectors for chunk and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// KnowledgeGraph records indexed documents and answers related-document
// lookups used to enrich citations. Optional; every call is best-effort.
type KnowledgeGraph interface {
	RecordDocument(ctx context.Context, doc *domain.Document, chunkCount int) error
	RelatedDocuments(ctx context.Context, documentIDs []string) (map[string][]string, error)
}

// DocumentRepository persists and reads document state.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error
	SetChunkCount(ctx context.Context, id string, chunkCount int) error
}

// ObjectStorage stores source documents.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue publishes/consumes ingestion events.
type MessageQueue interface {
	PublishDocumentIngested(ctx context.Context, documentID string) error
	SubscribeDocumentIngested(ctx context.Context, handler func(context.Context, string) error) error
}

// TextExtractor extracts plain text from a stored document.
type TextExtractor interface {
	Extract(ctx context.Context, doc *domain.Document) (string, error)
}

// Chunker splits text into indexable chunks.
type Chunker interface {
	Split(text string) []string
}
