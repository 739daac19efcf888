package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mkuzmin/askdoc/internal/core/domain"
)

func passage(docID string, chunk int, content string) domain.Passage {
	return domain.Passage{
		DocumentID: docID,
		Source:     docID + ".txt",
		ChunkIndex: chunk,
		Content:    content,
		Score:      0.9,
	}
}

func TestAnswerRejectsBlankQuestion(t *testing.T) {
	llm := &fakeLanguageModel{}
	store := &fakeVectorStore{}
	uc := NewAskUseCase(llm, store, nil, AskConfig{})

	for _, question := range []string{"", "   ", "\n\t"} {
		_, err := uc.Answer(context.Background(), question)
		if !domain.IsKind(err, domain.ErrInvalidInput) {
			t.Fatalf("question %q: expected invalid input error, got %v", question, err)
		}
	}

	if llm.completeCalls != 0 || llm.streamCalls != 0 {
		t.Fatalf("model called %d/%d times for invalid input", llm.completeCalls, llm.streamCalls)
	}
	if store.searchCalls != 0 {
		t.Fatalf("store called %d times for invalid input", store.searchCalls)
	}
}

func TestAnswerHappyPath(t *testing.T) {
	llm := &fakeLanguageModel{
		responses: []string{
			`["how long is the warranty", "warranty duration"]`,
			"The warranty lasts two years.",
		},
	}
	store := &fakeVectorStore{
		hits: map[string][]domain.Passage{
			"what is the warranty period": {passage("doc-1", 0, "Warranty: two years from purchase.")},
			"how long is the warranty":    {passage("doc-1", 0, "Warranty: two years from purchase.")},
			"warranty duration":           {passage("doc-2", 3, "Extended warranty available.")},
		},
	}

	uc := NewAskUseCase(llm, store, nil, AskConfig{ExpansionCount: 2})
	result, err := uc.Answer(context.Background(), "what is the warranty period")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Answer != "The warranty lasts two years." {
		t.Fatalf("unexpected answer: %q", result.Answer)
	}
	if result.DocumentsRetrieved != 2 {
		t.Fatalf("expected 2 deduplicated passages, got %d", result.DocumentsRetrieved)
	}
	if len(result.Sources) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(result.Sources))
	}
	if result.Sources[0].DocumentID != "doc-1" || result.Sources[1].DocumentID != "doc-2" {
		t.Fatalf("sources out of order: %+v", result.Sources)
	}

	answerPrompt := llm.prompts[len(llm.prompts)-1]
	if !strings.Contains(answerPrompt, "Warranty: two years from purchase.") {
		t.Fatalf("answer prompt missing retrieved context:\n%s", answerPrompt)
	}
	if !strings.Contains(answerPrompt, "what is the warranty period") {
		t.Fatalf("answer prompt missing question:\n%s", answerPrompt)
	}
}

func TestAnswerAbsorbsExpansionFailure(t *testing.T) {
	llm := &fakeLanguageModel{
		errs:      []error{errors.New("model overloaded")},
		responses: []string{"", "Grounded answer."},
	}
	store := &fakeVectorStore{
		defaultHits: []domain.Passage{passage("doc-1", 0, "Relevant text.")},
	}

	uc := NewAskUseCase(llm, store, nil, AskConfig{ExpansionCount: 3})
	result, err := uc.Answer(context.Background(), "question")
	if err != nil {
		t.Fatalf("expansion failure must not fail the pipeline: %v", err)
	}
	if result.Answer != "Grounded answer." {
		t.Fatalf("unexpected answer: %q", result.Answer)
	}
	// Only the original question is searched when expansion degrades.
	if store.searchCalls != 1 {
		t.Fatalf("expected 1 search, got %d", store.searchCalls)
	}
}

func TestAnswerNoContextShortCircuitsGeneration(t *testing.T) {
	llm := &fakeLanguageModel{
		responses: []string{`["other phrasing"]`},
	}
	store := &fakeVectorStore{}

	uc := NewAskUseCase(llm, store, nil, AskConfig{ExpansionCount: 1})
	result, err := uc.Answer(context.Background(), "unanswerable question")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Answer != noRelevantInformation {
		t.Fatalf("expected no-information answer, got %q", result.Answer)
	}
	if result.Sources == nil || len(result.Sources) != 0 {
		t.Fatalf("expected empty non-nil sources, got %#v", result.Sources)
	}
	if result.DocumentsRetrieved != 0 {
		t.Fatalf("expected zero retrieved documents, got %d", result.DocumentsRetrieved)
	}
	if result.ProcessingTimeMs < 0 {
		t.Fatalf("negative processing time: %d", result.ProcessingTimeMs)
	}
	// One model call for expansion, none for answer generation.
	if llm.completeCalls != 1 {
		t.Fatalf("expected 1 model call, got %d", llm.completeCalls)
	}
}

func TestAnswerPropagatesEmptyIndex(t *testing.T) {
	llm := &fakeLanguageModel{
		responses: []string{`["alt"]`},
	}
	store := &fakeVectorStore{
		defaultErr: domain.WrapError(domain.ErrEmptyIndex, "search", errors.New("collection missing")),
	}

	uc := NewAskUseCase(llm, store, nil, AskConfig{ExpansionCount: 1})
	_, err := uc.Answer(context.Background(), "question")
	if !domain.IsKind(err, domain.ErrEmptyIndex) {
		t.Fatalf("expected empty index error, got %v", err)
	}
}

func TestAnswerWrapsGenerationFailure(t *testing.T) {
	llm := &fakeLanguageModel{
		responses: []string{`["alt"]`},
		errs:      []error{nil, errors.New("model crashed")},
	}
	store := &fakeVectorStore{
		defaultHits: []domain.Passage{passage("doc-1", 0, "Context.")},
	}

	uc := NewAskUseCase(llm, store, nil, AskConfig{ExpansionCount: 1})
	_, err := uc.Answer(context.Background(), "question")
	if !domain.IsKind(err, domain.ErrGeneration) {
		t.Fatalf("expected generation error, got %v", err)
	}
}

func TestAnswerEnrichesSourcesFromGraph(t *testing.T) {
	llm := &fakeLanguageModel{
		responses: []string{`[]`, "Answer."},
	}
	store := &fakeVectorStore{
		defaultHits: []domain.Passage{passage("doc-1", 0, "Context.")},
	}
	graph := &fakeKnowledgeGraph{
		related: map[string][]string{"doc-1": {"manual.pdf", "faq.txt"}},
	}

	uc := NewAskUseCase(llm, store, graph, AskConfig{ExpansionCount: 1})
	result, err := uc.Answer(context.Background(), "question")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Sources) != 1 || len(result.Sources[0].Related) != 2 {
		t.Fatalf("expected enriched related documents, got %+v", result.Sources)
	}
}

func TestAnswerSurvivesGraphFailure(t *testing.T) {
	llm := &fakeLanguageModel{
		responses: []string{`[]`, "Answer."},
	}
	store := &fakeVectorStore{
		defaultHits: []domain.Passage{passage("doc-1", 0, "Context.")},
	}
	graph := &fakeKnowledgeGraph{relatedErr: errors.New("neo4j down")}

	uc := NewAskUseCase(llm, store, graph, AskConfig{ExpansionCount: 1})
	result, err := uc.Answer(context.Background(), "question")
	if err != nil {
		t.Fatalf("graph failure must not fail the pipeline: %v", err)
	}
	if result.Answer != "Answer." {
		t.Fatalf("unexpected answer: %q", result.Answer)
	}
}

func TestAnswerStreamEventOrdering(t *testing.T) {
	llm := &fakeLanguageModel{
		responses: []string{`["alt one"]`},
		fragments: []string{"The ", "warranty ", "lasts ", "two years."},
	}
	store := &fakeVectorStore{
		defaultHits: []domain.Passage{passage("doc-1", 0, "Warranty text.")},
	}

	uc := NewAskUseCase(llm, store, nil, AskConfig{ExpansionCount: 1})

	var events []domain.StreamEvent
	err := uc.AnswerStream(context.Background(), "question", func(e domain.StreamEvent) error {
		events = append(events, e)
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(events) < 3 {
		t.Fatalf("expected connected+content+complete, got %d events", len(events))
	}
	if events[0].Type != domain.StreamConnected {
		t.Fatalf("first event must be connected, got %s", events[0].Type)
	}
	last := events[len(events)-1]
	if last.Type != domain.StreamComplete {
		t.Fatalf("last event must be complete, got %s", last.Type)
	}
	if last.Result == nil {
		t.Fatalf("complete event carries no result")
	}

	var streamed strings.Builder
	for _, e := range events[1 : len(events)-1] {
		if e.Type != domain.StreamContent {
			t.Fatalf("middle event must be content, got %s", e.Type)
		}
		streamed.WriteString(e.Content)
	}
	if streamed.String() != last.Result.Answer {
		t.Fatalf("streamed fragments %q do not concatenate to answer %q", streamed.String(), last.Result.Answer)
	}
}

func TestAnswerStreamRejectsBlankQuestionBeforeConnecting(t *testing.T) {
	uc := NewAskUseCase(&fakeLanguageModel{}, &fakeVectorStore{}, nil, AskConfig{})

	var events []domain.StreamEvent
	err := uc.AnswerStream(context.Background(), "   ", func(e domain.StreamEvent) error {
		events = append(events, e)
		return nil
	})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input error, got %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("no events may be emitted for invalid input, got %d", len(events))
	}
}

func TestAnswerStreamNoContext(t *testing.T) {
	llm := &fakeLanguageModel{responses: []string{`[]`}}
	store := &fakeVectorStore{}

	uc := NewAskUseCase(llm, store, nil, AskConfig{ExpansionCount: 1})

	var events []domain.StreamEvent
	err := uc.AnswerStream(context.Background(), "question", func(e domain.StreamEvent) error {
		events = append(events, e)
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(events) != 3 {
		t.Fatalf("expected connected+content+complete, got %d events", len(events))
	}
	if events[1].Type != domain.StreamContent || events[1].Content != noRelevantInformation {
		t.Fatalf("expected no-information content event, got %+v", events[1])
	}
	if events[2].Type != domain.StreamComplete || events[2].Result.DocumentsRetrieved != 0 {
		t.Fatalf("expected complete event with zero retrieved, got %+v", events[2])
	}
	if llm.streamCalls != 0 {
		t.Fatalf("no streamed generation may run with an empty candidate set, got %d calls", llm.streamCalls)
	}
}

func TestAnswerStreamTerminalErrorOnGenerationFailure(t *testing.T) {
	llm := &fakeLanguageModel{
		responses: []string{`[]`},
		streamErr: errors.New("model crashed"),
	}
	store := &fakeVectorStore{
		defaultHits: []domain.Passage{passage("doc-1", 0, "Context.")},
	}

	uc := NewAskUseCase(llm, store, nil, AskConfig{ExpansionCount: 1})

	var events []domain.StreamEvent
	err := uc.AnswerStream(context.Background(), "question", func(e domain.StreamEvent) error {
		events = append(events, e)
		return nil
	})
	if !domain.IsKind(err, domain.ErrGeneration) {
		t.Fatalf("expected generation error, got %v", err)
	}

	last := events[len(events)-1]
	if last.Type != domain.StreamError || last.Message == "" {
		t.Fatalf("expected terminal error event, got %+v", last)
	}
	terminals := 0
	for _, e := range events {
		if e.Terminal() {
			terminals++
		}
	}
	if terminals != 1 {
		t.Fatalf("exactly one terminal event required, got %d", terminals)
	}
}

func TestAnswerStreamMatchesBatchAnswer(t *testing.T) {
	fragments := []string{"Two ", "years."}
	store := &fakeVectorStore{
		defaultHits: []domain.Passage{passage("doc-1", 0, "Warranty: two years.")},
	}

	batch := NewAskUseCase(&fakeLanguageModel{
		responses: []string{`[]`, "Two years."},
	}, store, nil, AskConfig{ExpansionCount: 1})
	stream := NewAskUseCase(&fakeLanguageModel{
		responses: []string{`[]`},
		fragments: fragments,
	}, store, nil, AskConfig{ExpansionCount: 1})

	batchResult, err := batch.Answer(context.Background(), "question")
	if err != nil {
		t.Fatalf("batch: %v", err)
	}

	var streamResult *domain.AnswerResult
	err = stream.AnswerStream(context.Background(), "question", func(e domain.StreamEvent) error {
		if e.Type == domain.StreamComplete {
			streamResult = e.Result
		}
		return nil
	})
	if err != nil {
		t.Fatalf("stream: %v", err)
	}

	if streamResult == nil || streamResult.Answer != batchResult.Answer {
		t.Fatalf("stream answer %+v differs from batch answer %q", streamResult, batchResult.Answer)
	}
	if streamResult.DocumentsRetrieved != batchResult.DocumentsRetrieved {
		t.Fatalf("retrieved counts differ: stream %d batch %d", streamResult.DocumentsRetrieved, batchResult.DocumentsRetrieved)
	}
}

func TestAnswerDeterministicUnderReversedCompletionOrder(t *testing.T) {
	llm := &fakeLanguageModel{
		responses: []string{`["alt query"]`, "Answer."},
	}
	store := &fakeVectorStore{
		hits: map[string][]domain.Passage{
			"question":  {passage("doc-1", 0, "First."), passage("doc-2", 0, "Second.")},
			"alt query": {passage("doc-2", 0, "Second."), passage("doc-3", 0, "Third.")},
		},
		// The original question finishes last; merge order must not change.
		delay: map[string]time.Duration{"question": 30 * time.Millisecond},
	}

	uc := NewAskUseCase(llm, store, nil, AskConfig{ExpansionCount: 1})
	result, err := uc.Answer(context.Background(), "question")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ids := make([]string, 0, len(result.Sources))
	for _, s := range result.Sources {
		ids = append(ids, s.DocumentID)
	}
	want := []string{"doc-1", "doc-2", "doc-3"}
	if len(ids) != len(want) {
		t.Fatalf("expected %v, got %v", want, ids)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("submission-order merge violated: expected %v, got %v", want, ids)
		}
	}
}
