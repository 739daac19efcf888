package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/mkuzmin/askdoc/internal/core/domain"
)

// fakeLanguageModel scripts model responses per call. Fragments, when set,
// drive CompleteStream output.
type fakeLanguageModel struct {
	mu sync.Mutex

	responses []string
	errs      []error
	fragments []string
	streamErr error

	completeCalls int
	streamCalls   int
	prompts       []string
}

func (f *fakeLanguageModel) Complete(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	call := f.completeCalls
	f.completeCalls++
	f.prompts = append(f.prompts, prompt)

	if call < len(f.errs) && f.errs[call] != nil {
		return "", f.errs[call]
	}
	if call < len(f.responses) {
		return f.responses[call], nil
	}
	return "", errors.New("unscripted model call")
}

func (f *fakeLanguageModel) CompleteStream(
	_ context.Context,
	prompt string,
	onFragment func(string) error,
) (string, error) {
	f.mu.Lock()
	f.streamCalls++
	f.prompts = append(f.prompts, prompt)
	fragments := f.fragments
	streamErr := f.streamErr
	f.mu.Unlock()

	if streamErr != nil {
		return "", streamErr
	}

	var full string
	for _, fragment := range fragments {
		full += fragment
		if onFragment != nil {
			if err := onFragment(fragment); err != nil {
				return "", err
			}
		}
	}
	return full, nil
}

// fakeVectorStore serves canned passages per normalized query. Unknown
// queries fall back to defaultHits.
type fakeVectorStore struct {
	mu sync.Mutex

	hits        map[string][]domain.Passage
	errs        map[string]error
	defaultHits []domain.Passage
	defaultErr  error
	delay       map[string]time.Duration

	searchCalls int
	queries     []string
}

func (f *fakeVectorStore) Search(_ context.Context, query string, _ int) ([]domain.Passage, error) {
	f.mu.Lock()
	f.searchCalls++
	f.queries = append(f.queries, query)
	delay := f.delay[query]
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	if err, ok := f.errs[query]; ok {
		return nil, err
	}
	if hits, ok := f.hits[query]; ok {
		return hits, nil
	}
	if f.defaultErr != nil {
		return nil, f.defaultErr
	}
	return f.defaultHits, nil
}

func (f *fakeVectorStore) IndexChunks(context.Context, *domain.Document, []string, [][]float32) error {
	return nil
}

type fakeKnowledgeGraph struct {
	related      map[string][]string
	relatedErr   error
	recordedDocs []string
	recordErr    error
}

func (f *fakeKnowledgeGraph) RecordDocument(_ context.Context, doc *domain.Document, _ int) error {
	f.recordedDocs = append(f.recordedDocs, doc.ID)
	return f.recordErr
}

func (f *fakeKnowledgeGraph) RelatedDocuments(context.Context, []string) (map[string][]string, error) {
	if f.relatedErr != nil {
		return nil, f.relatedErr
	}
	return f.related, nil
}

type fakeDocumentRepo struct {
	docs          map[string]*domain.Document
	statusLog     []string
	lastError     string
	chunkCounts   map[string]int
	updateErr     error
	setChunksErr  error
	createdDocs   []*domain.Document
	createErr     error
	getMissingErr error
}

func newFakeDocumentRepo() *fakeDocumentRepo {
	return &fakeDocumentRepo{
		docs:        make(map[string]*domain.Document),
		chunkCounts: make(map[string]int),
	}
}

func (f *fakeDocumentRepo) Create(_ context.Context, doc *domain.Document) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.docs[doc.ID] = doc
	f.createdDocs = append(f.createdDocs, doc)
	return nil
}

func (f *fakeDocumentRepo) GetByID(_ context.Context, id string) (*domain.Document, error) {
	doc, ok := f.docs[id]
	if !ok {
		if f.getMissingErr != nil {
			return nil, f.getMissingErr
		}
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", errors.New(id))
	}
	return doc, nil
}

func (f *fakeDocumentRepo) UpdateStatus(_ context.Context, id string, status domain.DocumentStatus, errMsg string) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.statusLog = append(f.statusLog, string(status))
	f.lastError = errMsg
	if doc, ok := f.docs[id]; ok {
		doc.Status = status
	}
	return nil
}

func (f *fakeDocumentRepo) SetChunkCount(_ context.Context, id string, count int) error {
	if f.setChunksErr != nil {
		return f.setChunksErr
	}
	f.chunkCounts[id] = count
	return nil
}

type fakeExtractor struct {
	text string
	err  error
}

func (f *fakeExtractor) Extract(context.Context, *domain.Document) (string, error) {
	return f.text, f.err
}

type fakeChunker struct {
	chunks []string
}

func (f *fakeChunker) Split(string) []string {
	return f.chunks
}

type fakeEmbedder struct {
	vectors [][]float32
	err     error
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.vectors != nil {
		return f.vectors, nil
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(i)}
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := f.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

type fakeIndexer struct {
	indexed   [][]string
	indexErr  error
	documents []string
}

func (f *fakeIndexer) IndexChunks(_ context.Context, doc *domain.Document, chunks []string, _ [][]float32) error {
	if f.indexErr != nil {
		return f.indexErr
	}
	f.indexed = append(f.indexed, chunks)
	f.documents = append(f.documents, doc.ID)
	return nil
}

func (f *fakeIndexer) Search(context.Context, string, int) ([]domain.Passage, error) {
	return nil, nil
}

type fakeObjectStorage struct {
	saved   map[string][]byte
	saveErr error
}

func (f *fakeObjectStorage) Save(_ context.Context, key string, data io.Reader) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	if f.saved == nil {
		f.saved = make(map[string][]byte)
	}
	f.saved[key] = raw
	return nil
}

func (f *fakeObjectStorage) Open(_ context.Context, key string) (io.ReadCloser, error) {
	raw, ok := f.saved[key]
	if !ok {
		return nil, errors.New("object not found: " + key)
	}
	return io.NopCloser(bytes.NewReader(raw)), nil
}

type fakeMessageQueue struct {
	published  []string
	publishErr error
}

func (f *fakeMessageQueue) PublishDocumentIngested(_ context.Context, documentID string) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, documentID)
	return nil
}

func (f *fakeMessageQueue) SubscribeDocumentIngested(context.Context, func(context.Context, string) error) error {
	return nil
}
