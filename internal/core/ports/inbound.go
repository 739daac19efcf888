package ports

import (
	"context"
	"io"

	"github.com/mkuzmin/askdoc/internal/core/domain"
)

// QueryService is the inbound contract for the question answering pipeline.
type QueryService interface {
	Answer(ctx context.Context, question string) (*domain.AnswerResult, error)
	// AnswerStream pushes the answer as an ordered event sequence: one
	// connected event, zero or more content events, one terminal event.
	// A non-nil error from emit stops further writes.
	AnswerStream(ctx context.Context, question string, emit func(domain.StreamEvent) error) error
}

// DocumentIngestor is the inbound contract for document upload orchestration.
type DocumentIngestor interface {
	Upload(ctx context.Context, filename, mimeType string, body io.Reader) (*domain.Document, error)
}

// DocumentReader is the inbound read model for document metadata/state.
type DocumentReader interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)
}

// DocumentProcessor is the inbound contract for asynchronous document processing.
type DocumentProcessor interface {
	ProcessByID(ctx context.Context, documentID string) error
}
