package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/mkuzmin/askdoc/internal/core/domain"
)

func seedDocument(repo *fakeDocumentRepo, id string) {
	repo.docs[id] = &domain.Document{
		ID:       id,
		Filename: "manual.pdf",
		MimeType: "application/pdf",
		Status:   domain.StatusUploaded,
	}
}

func TestProcessByIDHappyPath(t *testing.T) {
	repo := newFakeDocumentRepo()
	seedDocument(repo, "doc-1")
	indexer := &fakeIndexer{}
	graph := &fakeKnowledgeGraph{}

	uc := NewProcessDocumentUseCase(
		repo,
		&fakeExtractor{text: "Extracted body text."},
		&fakeChunker{chunks: []string{"chunk one", "chunk two"}},
		&fakeEmbedder{},
		indexer,
		graph,
	)

	if err := uc.ProcessByID(context.Background(), "doc-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantStatuses := []string{"processing", "ready"}
	if len(repo.statusLog) != len(wantStatuses) {
		t.Fatalf("expected statuses %v, got %v", wantStatuses, repo.statusLog)
	}
	for i, s := range wantStatuses {
		if repo.statusLog[i] != s {
			t.Fatalf("expected statuses %v, got %v", wantStatuses, repo.statusLog)
		}
	}
	if repo.chunkCounts["doc-1"] != 2 {
		t.Fatalf("expected chunk count 2, got %d", repo.chunkCounts["doc-1"])
	}
	if len(indexer.indexed) != 1 || len(indexer.indexed[0]) != 2 {
		t.Fatalf("chunks not indexed: %+v", indexer.indexed)
	}
	if len(graph.recordedDocs) != 1 || graph.recordedDocs[0] != "doc-1" {
		t.Fatalf("document not recorded in graph: %v", graph.recordedDocs)
	}
}

func TestProcessByIDMarksFailedOnEmptyText(t *testing.T) {
	repo := newFakeDocumentRepo()
	seedDocument(repo, "doc-1")

	uc := NewProcessDocumentUseCase(
		repo,
		&fakeExtractor{text: ""},
		&fakeChunker{},
		&fakeEmbedder{},
		&fakeIndexer{},
		nil,
	)

	if err := uc.ProcessByID(context.Background(), "doc-1"); err == nil {
		t.Fatalf("expected error for empty extracted text")
	}

	last := repo.statusLog[len(repo.statusLog)-1]
	if last != string(domain.StatusFailed) {
		t.Fatalf("expected failed status, got %v", repo.statusLog)
	}
	if repo.lastError == "" {
		t.Fatalf("failed status must carry the error message")
	}
}

func TestProcessByIDMarksFailedOnVectorMismatch(t *testing.T) {
	repo := newFakeDocumentRepo()
	seedDocument(repo, "doc-1")

	uc := NewProcessDocumentUseCase(
		repo,
		&fakeExtractor{text: "text"},
		&fakeChunker{chunks: []string{"a", "b"}},
		&fakeEmbedder{vectors: [][]float32{{1}}},
		&fakeIndexer{},
		nil,
	)

	if err := uc.ProcessByID(context.Background(), "doc-1"); err == nil {
		t.Fatalf("expected error for vectors/chunks mismatch")
	}
	if repo.statusLog[len(repo.statusLog)-1] != string(domain.StatusFailed) {
		t.Fatalf("expected failed status, got %v", repo.statusLog)
	}
}

func TestProcessByIDSurvivesGraphRecordFailure(t *testing.T) {
	repo := newFakeDocumentRepo()
	seedDocument(repo, "doc-1")
	graph := &fakeKnowledgeGraph{recordErr: errors.New("neo4j down")}

	uc := NewProcessDocumentUseCase(
		repo,
		&fakeExtractor{text: "text"},
		&fakeChunker{chunks: []string{"a"}},
		&fakeEmbedder{},
		&fakeIndexer{},
		graph,
	)

	if err := uc.ProcessByID(context.Background(), "doc-1"); err != nil {
		t.Fatalf("graph failure must not fail processing: %v", err)
	}
	if repo.statusLog[len(repo.statusLog)-1] != string(domain.StatusReady) {
		t.Fatalf("expected ready status, got %v", repo.statusLog)
	}
}

func TestProcessByIDUnknownDocument(t *testing.T) {
	repo := newFakeDocumentRepo()

	uc := NewProcessDocumentUseCase(
		repo,
		&fakeExtractor{},
		&fakeChunker{},
		&fakeEmbedder{},
		&fakeIndexer{},
		nil,
	)

	err := uc.ProcessByID(context.Background(), "missing")
	if !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected document not found, got %v", err)
	}
}
