package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/mkuzmin/askdoc/internal/core/ports"
)

// Expansion is the best-effort result of query paraphrasing. Queries never
// includes the original question; callers prepend it. Degraded records that
// the model call or parse failed so tests can assert degradation without
// reading logs.
type Expansion struct {
	Queries  []string
	Degraded bool
	Cause    error
}

// Expander asks the language model for alternative phrasings of a question.
// Expansion failures never fail the pipeline.
type Expander struct {
	llm   ports.LanguageModel
	count int
}

func NewExpander(llm ports.LanguageModel, count int) *Expander {
	if count < 0 {
		count = 0
	}
	return &Expander{llm: llm, count: count}
}

func (e *Expander) Expand(ctx context.Context, question string) Expansion {
	if e.count == 0 {
		return Expansion{}
	}

	prompt := render(queryExpansionTemplate, map[string]string{
		"count":    strconv.Itoa(e.count),
		"question": question,
	})

	raw, err := e.llm.Complete(ctx, prompt)
	if err != nil {
		slog.Warn("query_expansion_failed", "error", err)
		return Expansion{Degraded: true, Cause: err}
	}

	parsed, err := parseExpansion(raw)
	if err != nil {
		slog.Warn("query_expansion_unparseable", "error", err)
		return Expansion{Degraded: true, Cause: err}
	}

	queries := make([]string, 0, e.count)
	seen := map[string]struct{}{normalizeQuery(question): {}}
	for _, q := range parsed {
		q = strings.TrimSpace(q)
		if q == "" {
			continue
		}
		key := normalizeQuery(q)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		queries = append(queries, q)
		if len(queries) == e.count {
			break
		}
	}
	return Expansion{Queries: queries}
}

func parseExpansion(raw string) ([]string, error) {
	var queries []string
	if err := json.Unmarshal([]byte(extractJSONArray(raw)), &queries); err != nil {
		return nil, fmt.Errorf("parse expansion json: %w", err)
	}
	return queries, nil
}

// extractJSONArray tolerates prose around the array by slicing the
// outermost brackets.
func extractJSONArray(raw string) string {
	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}

func normalizeQuery(q string) string {
	return strings.ToLower(strings.TrimSpace(q))
}
