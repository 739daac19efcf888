package usecase

import (
	"strings"

	"github.com/mkuzmin/askdoc/internal/core/domain"
)

const sourcePreviewChars = 200

// AssembledContext pairs the joined context text with the citation
// summaries for the passages it contains, in the same order.
type AssembledContext struct {
	Text    string
	Sources []domain.SourceSummary
}

// ContextAssembler joins passage contents with a blank-line separator under
// a character budget sized to the model's context window. Passages past the
// budget are dropped, last first, since the merged set is already ordered by
// retrieval priority.
type ContextAssembler struct {
	charBudget int
}

func NewContextAssembler(charBudget int) *ContextAssembler {
	if charBudget <= 0 {
		charBudget = 8000
	}
	return &ContextAssembler{charBudget: charBudget}
}

func (a *ContextAssembler) Assemble(passages []domain.Passage) AssembledContext {
	if len(passages) == 0 {
		return AssembledContext{Sources: []domain.SourceSummary{}}
	}

	contents := make([]string, 0, len(passages))
	summaries := make([]domain.SourceSummary, 0, len(passages))
	used := 0
	for _, p := range passages {
		cost := len(p.Content)
		if len(contents) > 0 {
			cost += 2
		}
		if used+cost > a.charBudget && len(contents) > 0 {
			break
		}
		used += cost
		contents = append(contents, p.Content)
		summaries = append(summaries, domain.SourceSummary{
			DocumentID: p.DocumentID,
			Source:     p.Source,
			ChunkIndex: p.ChunkIndex,
			Preview:    previewOf(p.Content),
			Score:      p.Score,
		})
	}

	return AssembledContext{
		Text:    strings.Join(contents, "\n\n"),
		Sources: summaries,
	}
}

func previewOf(content string) string {
	runes := []rune(content)
	if len(runes) <= sourcePreviewChars {
		return content
	}
	return string(runes[:sourcePreviewChars]) + "..."
}
