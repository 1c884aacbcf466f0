package pgx

import (
	"context"
	"fmt"

	"github.com/clinigraph/backend/pkg/graph"

	"github.com/pgvector/pgvector-go"
)

const defaultTopK = 15

// Search performs nearest-neighbor search over one embedded node collection.
// Results are ordered by cosine similarity descending; the similarity score is
// returned alongside each node. Superseded nodes are not filtered here; the
// reranker owns lifecycle filtering.
func (s *GraphDBStore) Search(
	ctx context.Context,
	collection graph.Collection,
	vector []float32,
	topK int,
) ([]graph.Hit, error) {
	if topK <= 0 {
		topK = defaultTopK
	}
	embed := pgvector.NewVector(vector)

	switch collection {
	case graph.CollectionRecommendations:
		return s.searchRecommendations(ctx, embed, topK)
	case graph.CollectionEvidence:
		return s.searchEvidence(ctx, embed, topK)
	case graph.CollectionStudies:
		return s.searchStudies(ctx, embed, topK)
	default:
		return nil, fmt.Errorf("unknown vector collection: %q", collection)
	}
}

func (s *GraphDBStore) searchRecommendations(ctx context.Context, embed pgvector.Vector, topK int) ([]graph.Hit, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT r.public_id, r.title, r.summary, r.status, r.strength,
		       r.evidence_quality, r.direction, r.topics,
		       1 - (r.embedding <=> $1) AS similarity
		FROM recommendations r
		ORDER BY r.embedding <=> $1
		LIMIT $2`, embed, topK)
	if err != nil {
		return nil, fmt.Errorf("failed to search recommendations: %w", err)
	}
	defer rows.Close()

	hits := make([]graph.Hit, 0, topK)
	for rows.Next() {
		var h graph.Hit
		var status string
		if err := rows.Scan(&h.Node.ID, &h.Node.Title, &h.Node.Summary, &status,
			&h.Node.Strength, &h.Node.Quality, &h.Node.Direction, &h.Node.Topics, &h.Score); err != nil {
			return nil, err
		}
		h.Node.Type = graph.NodeRecommendation
		h.Node.Status = graph.Status(status)
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

func (s *GraphDBStore) searchEvidence(ctx context.Context, embed pgvector.Vector, topK int) ([]graph.Hit, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT e.public_id, e.summary, e.quality,
		       1 - (e.embedding <=> $1) AS similarity
		FROM evidence e
		ORDER BY e.embedding <=> $1
		LIMIT $2`, embed, topK)
	if err != nil {
		return nil, fmt.Errorf("failed to search evidence: %w", err)
	}
	defer rows.Close()

	hits := make([]graph.Hit, 0, topK)
	for rows.Next() {
		var h graph.Hit
		if err := rows.Scan(&h.Node.ID, &h.Node.Summary, &h.Node.Quality, &h.Score); err != nil {
			return nil, err
		}
		h.Node.Type = graph.NodeEvidence
		h.Node.Status = graph.StatusActive
		h.Node.Title = h.Node.Summary
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

func (s *GraphDBStore) searchStudies(ctx context.Context, embed pgvector.Vector, topK int) ([]graph.Hit, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT s.public_id, s.title, s.summary,
		       1 - (s.embedding <=> $1) AS similarity
		FROM studies s
		ORDER BY s.embedding <=> $1
		LIMIT $2`, embed, topK)
	if err != nil {
		return nil, fmt.Errorf("failed to search studies: %w", err)
	}
	defer rows.Close()

	hits := make([]graph.Hit, 0, topK)
	for rows.Next() {
		var h graph.Hit
		if err := rows.Scan(&h.Node.ID, &h.Node.Title, &h.Node.Summary, &h.Score); err != nil {
			return nil, err
		}
		h.Node.Type = graph.NodeStudy
		h.Node.Status = graph.StatusActive
		hits = append(hits, h)
	}
	return hits, rows.Err()
}
