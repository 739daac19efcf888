package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mkuzmin/askdoc/internal/core/domain"
	"github.com/mkuzmin/askdoc/internal/core/ports"
)

type AskConfig struct {
	ExpansionCount    int
	PerQueryLimit     int
	ContextCharBudget int
}

// AskUseCase sequences the query pipeline: expand the question, fan out
// retrieval, assemble context, generate the answer. Expansion and partial
// retrieval failures are absorbed; validation, empty-index and generation
// failures surface to the caller.
type AskUseCase struct {
	expander  *Expander
	retriever *MultiQueryRetriever
	assembler *ContextAssembler
	llm       ports.LanguageModel
	graph     ports.KnowledgeGraph
}

// NewAskUseCase wires the pipeline. graph may be nil; citation enrichment
// is then skipped.
func NewAskUseCase(
	llm ports.LanguageModel,
	store ports.VectorStore,
	graph ports.KnowledgeGraph,
	cfg AskConfig,
) *AskUseCase {
	if cfg.ExpansionCount == 0 {
		cfg.ExpansionCount = 3
	}
	return &AskUseCase{
		expander:  NewExpander(llm, cfg.ExpansionCount),
		retriever: NewMultiQueryRetriever(store, cfg.PerQueryLimit),
		assembler: NewContextAssembler(cfg.ContextCharBudget),
		llm:       llm,
		graph:     graph,
	}
}

func (uc *AskUseCase) Answer(ctx context.Context, question string) (*domain.AnswerResult, error) {
	q, err := validateQuestion(question)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	assembled, retrieved, err := uc.retrieveContext(ctx, q)
	if err != nil {
		return nil, err
	}
	if retrieved == 0 {
		return noInfoResult(q, started), nil
	}

	prompt := render(answerTemplate, map[string]string{
		"context":  assembled.Text,
		"question": q,
	})
	answer, err := uc.llm.Complete(ctx, prompt)
	if err != nil {
		return nil, domain.WrapError(domain.ErrGeneration, "generate answer", err)
	}

	return &domain.AnswerResult{
		Question:           q,
		Answer:             answer,
		Sources:            assembled.Sources,
		ProcessingTimeMs:   elapsedMs(started),
		DocumentsRetrieved: retrieved,
	}, nil
}

func (uc *AskUseCase) AnswerStream(
	ctx context.Context,
	question string,
	emit func(domain.StreamEvent) error,
) error {
	if emit == nil {
		return errors.New("stream emit callback is nil")
	}
	// Validation rejects before the stream opens, so no connected event
	// is written for malformed input.
	q, err := validateQuestion(question)
	if err != nil {
		return err
	}

	started := time.Now()
	if err := emit(domain.ConnectedEvent()); err != nil {
		return err
	}

	assembled, retrieved, err := uc.retrieveContext(ctx, q)
	if err != nil {
		return emitTerminalError(emit, err)
	}

	if retrieved == 0 {
		result := noInfoResult(q, started)
		if err := emit(domain.ContentEvent(result.Answer)); err != nil {
			return err
		}
		return emit(domain.CompleteEvent(result))
	}

	prompt := render(answerTemplate, map[string]string{
		"context":  assembled.Text,
		"question": q,
	})
	answer, genErr := uc.llm.CompleteStream(ctx, prompt, func(fragment string) error {
		if fragment == "" {
			return nil
		}
		return emit(domain.ContentEvent(fragment))
	})
	if genErr != nil {
		return emitTerminalError(emit, domain.WrapError(domain.ErrGeneration, "generate answer", genErr))
	}

	return emit(domain.CompleteEvent(&domain.AnswerResult{
		Question:           q,
		Answer:             answer,
		Sources:            assembled.Sources,
		ProcessingTimeMs:   elapsedMs(started),
		DocumentsRetrieved: retrieved,
	}))
}

// retrieveContext runs expansion, fan-out retrieval, assembly and citation
// enrichment. retrieved is the deduplicated candidate count before the
// context budget applies.
func (uc *AskUseCase) retrieveContext(ctx context.Context, question string) (AssembledContext, int, error) {
	expansion := uc.expander.Expand(ctx, question)
	if expansion.Degraded {
		slog.Info("query_expansion_degraded", "cause", expansion.Cause)
	}

	queries := make([]string, 0, 1+len(expansion.Queries))
	queries = append(queries, question)
	queries = append(queries, expansion.Queries...)

	retrieval, err := uc.retriever.Retrieve(ctx, queries)
	if err != nil {
		return AssembledContext{}, 0, fmt.Errorf("retrieve passages: %w", err)
	}

	assembled := uc.assembler.Assemble(retrieval.Passages)
	uc.enrichSources(ctx, assembled.Sources)
	return assembled, len(retrieval.Passages), nil
}

func (uc *AskUseCase) enrichSources(ctx context.Context, sources []domain.SourceSummary) {
	if uc.graph == nil || len(sources) == 0 {
		return
	}

	ids := make([]string, 0, len(sources))
	seen := make(map[string]struct{}, len(sources))
	for _, s := range sources {
		if s.DocumentID == "" {
			continue
		}
		if _, dup := seen[s.DocumentID]; dup {
			continue
		}
		seen[s.DocumentID] = struct{}{}
		ids = append(ids, s.DocumentID)
	}
	if len(ids) == 0 {
		return
	}

	related, err := uc.graph.RelatedDocuments(ctx, ids)
	if err != nil {
		slog.Warn("citation_enrichment_failed", "error", err)
		return
	}
	for i := range sources {
		sources[i].Related = related[sources[i].DocumentID]
	}
}

func validateQuestion(question string) (string, error) {
	q := strings.TrimSpace(question)
	if q == "" {
		return "", domain.WrapError(domain.ErrInvalidInput, "validate question", errors.New("question is empty"))
	}
	return q, nil
}

func noInfoResult(question string, started time.Time) *domain.AnswerResult {
	return &domain.AnswerResult{
		Question:           question,
		Answer:             noRelevantInformation,
		Sources:            []domain.SourceSummary{},
		ProcessingTimeMs:   elapsedMs(started),
		DocumentsRetrieved: 0,
	}
}

// emitTerminalError writes the single terminal error event. An emit failure
// means the client is gone; the pipeline error still propagates.
func emitTerminalError(emit func(domain.StreamEvent) error, err error) error {
	_ = emit(domain.ErrorEvent(err.Error()))
	return err
}

func elapsedMs(started time.Time) int64 {
	ms := time.Since(started).Milliseconds()
	if ms < 0 {
		return 0
	}
	return ms
}
