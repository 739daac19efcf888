package domain

import "strconv"

// Passage is the read-only view of one retrieved chunk. The pipeline never
// mutates passages; they are owned by the vector store.
type Passage struct {
	DocumentID string  `json:"document_id"`
	Source     string  `json:"source"`
	ChunkIndex int     `json:"chunk_index"`
	Content    string  `json:"content"`
	Score      float64 `json:"score"`
}

// Key is the passage identity used for deduplication across fanned-out
// queries: same document chunk, or same source+content when chunk
// coordinates are missing.
func (p Passage) Key() string {
	if p.DocumentID != "" && p.ChunkIndex >= 0 {
		return p.DocumentID + ":" + strconv.Itoa(p.ChunkIndex)
	}
	return p.Source + "|" + p.Content
}

// SourceSummary is the citation view of a passage: a truncated content
// preview plus the metadata needed to locate the source.
type SourceSummary struct {
	DocumentID string   `json:"document_id"`
	Source     string   `json:"source"`
	ChunkIndex int      `json:"chunk_index"`
	Preview    string   `json:"preview"`
	Score      float64  `json:"score"`
	Related    []string `json:"related,omitempty"`
}

// AnswerResult is the terminal value of one batch query. Never mutated
// after construction.
type AnswerResult struct {
	Question           string          `json:"question"`
	Answer             string          `json:"answer"`
	Sources            []SourceSummary `json:"sources"`
	ProcessingTimeMs   int64           `json:"processing_time_ms"`
	DocumentsRetrieved int             `json:"documents_retrieved"`
}
