package usecase

import (
	"context"
	"log/slog"
	"sync"

	"github.com/mkuzmin/askdoc/internal/core/domain"
	"github.com/mkuzmin/askdoc/internal/core/ports"
)

// Retrieval is the merged, deduplicated result of the per-query fan-out.
// Degraded marks that at least one sub-query failed.
type Retrieval struct {
	Passages      []domain.Passage
	FailedQueries int
	Degraded      bool
}

// MultiQueryRetriever runs one vector search per query concurrently and
// merges the results deterministically: flatten in query submission order,
// keep the first occurrence of each passage identity.
type MultiQueryRetriever struct {
	store         ports.VectorStore
	perQueryLimit int
}

func NewMultiQueryRetriever(store ports.VectorStore, perQueryLimit int) *MultiQueryRetriever {
	if perQueryLimit <= 0 {
		perQueryLimit = 3
	}
	return &MultiQueryRetriever{store: store, perQueryLimit: perQueryLimit}
}

// Retrieve isolates per-query failures: a failing sub-query contributes an
// empty list and the rest proceed. The only error returned is the typed
// empty-index kind, and only when every sub-query reported it.
func (r *MultiQueryRetriever) Retrieve(ctx context.Context, queries []string) (Retrieval, error) {
	if len(queries) == 0 {
		return Retrieval{}, nil
	}

	// Index-addressed slots keep the merge order equal to submission
	// order no matter which goroutine finishes first.
	results := make([][]domain.Passage, len(queries))
	errs := make([]error, len(queries))

	var wg sync.WaitGroup
	for i, query := range queries {
		wg.Add(1)
		go func(slot int, q string) {
			defer wg.Done()
			results[slot], errs[slot] = r.store.Search(ctx, q, r.perQueryLimit)
		}(i, query)
	}
	wg.Wait()

	failed, emptyIndex := 0, 0
	for i, err := range errs {
		if err == nil {
			continue
		}
		failed++
		if domain.IsKind(err, domain.ErrEmptyIndex) {
			emptyIndex++
		}
		slog.Warn("retrieval_query_failed", "query_index", i, "error", err)
	}

	if failed == len(queries) {
		if emptyIndex == len(queries) {
			return Retrieval{}, errs[0]
		}
		// Total failure degrades to an empty candidate set; the
		// orchestrator answers with the no-information message.
		return Retrieval{FailedQueries: failed, Degraded: true}, nil
	}

	seen := make(map[string]struct{})
	merged := make([]domain.Passage, 0, len(queries)*r.perQueryLimit)
	for _, passages := range results {
		for _, p := range passages {
			key := p.Key()
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			merged = append(merged, p)
		}
	}

	return Retrieval{
		Passages:      merged,
		FailedQueries: failed,
		Degraded:      failed > 0,
	}, nil
}
