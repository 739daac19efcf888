package neo4j

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/mkuzmin/askdoc/internal/core/domain"
)

// Store keeps a small document graph used to enrich citations: one node per
// indexed document, related to the documents that share its mime type.
type Store struct {
	driver neo4j.DriverWithContext
}

func Connect(ctx context.Context, uri, user, password string) (*Store, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("verify neo4j connectivity: %w", err)
	}
	return &Store{driver: driver}, nil
}

func (s *Store) Close(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}
	return s.driver.Close(ctx)
}

func (s *Store) RecordDocument(ctx context.Context, doc *domain.Document, chunkCount int) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	_, err := session.Run(ctx, `
		MERGE (d:Document {id: $id})
		SET d.filename = $filename,
		    d.mime_type = $mimeType,
		    d.chunk_count = $chunkCount
	`, map[string]any{
		"id":         doc.ID,
		"filename":   doc.Filename,
		"mimeType":   doc.MimeType,
		"chunkCount": chunkCount,
	})
	if err != nil {
		return fmt.Errorf("record document node: %w", err)
	}
	return nil
}

// RelatedDocuments returns, per input id, the filenames of other documents
// of the same mime type. Missing ids simply have no entry.
func (s *Store) RelatedDocuments(ctx context.Context, documentIDs []string) (map[string][]string, error) {
	if len(documentIDs) == 0 {
		return map[string][]string{}, nil
	}

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.Run(ctx, `
		MATCH (d:Document)
		WHERE d.id IN $ids
		OPTIONAL MATCH (other:Document)
		WHERE other.id <> d.id AND other.mime_type = d.mime_type
		RETURN d.id AS id, collect(DISTINCT other.filename) AS related
	`, map[string]any{"ids": documentIDs})
	if err != nil {
		return nil, fmt.Errorf("run related documents query: %w", err)
	}

	related := make(map[string][]string, len(documentIDs))
	for result.Next(ctx) {
		record := result.Record()
		idVal, _ := record.Get("id")
		relatedVal, _ := record.Get("related")

		id, ok := idVal.(string)
		if !ok {
			continue
		}
		related[id] = toStringSlice(relatedVal)
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("related documents result: %w", err)
	}
	return related, nil
}

func toStringSlice(value any) []string {
	raw, ok := value.([]any)
	if !ok {
		if v, ok := value.([]string); ok {
			return v
		}
		return nil
	}

	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}
