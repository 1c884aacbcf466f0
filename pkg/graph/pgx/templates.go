package pgx

import (
	"context"
	"fmt"

	"github.com/clinigraph/backend/pkg/graph"
)

const defaultTemplateLimit = 20

// Per-template SQL. Each statement carries the template's intrinsic ordering
// in its ORDER BY clause; parameters are always bound, never interpolated.
const (
	sqlRecommendationsForCondition = `
		SELECT r.public_id, r.title, r.summary, r.status, r.strength,
		       r.evidence_quality, r.direction, r.topics
		FROM recommendations r
		JOIN recommendation_conditions rc ON rc.rec_public_id = r.public_id
		WHERE rc.condition_public_id = $1
		ORDER BY r.display_sequence ASC
		LIMIT $2`

	sqlRecommendationsForMedication = `
		SELECT r.public_id, r.title, r.summary, r.status, r.strength,
		       r.evidence_quality, r.direction, r.topics
		FROM recommendations r
		JOIN recommendation_medications rm ON rm.rec_public_id = r.public_id
		WHERE rm.medication_public_id = $1
		  AND ($2::text IS NULL OR EXISTS (
		      SELECT 1 FROM recommendation_conditions rc
		      WHERE rc.rec_public_id = r.public_id AND rc.condition_public_id = $2))
		ORDER BY r.display_sequence ASC
		LIMIT $3`

	sqlStudiesForRecommendation = `
		SELECT s.public_id, s.title, s.summary, s.publication_year
		FROM studies s
		JOIN recommendation_studies rs ON rs.study_public_id = s.public_id
		WHERE rs.rec_public_id = $1
		ORDER BY s.publication_year DESC, s.public_id ASC
		LIMIT $2`

	sqlEvidenceForRecommendation = `
		SELECT e.public_id, e.summary, e.quality, e.display_sequence
		FROM evidence e
		WHERE e.rec_public_id = $1
		ORDER BY array_position(ARRAY['high','moderate','low','very_low'], e.quality),
		         e.display_sequence ASC
		LIMIT $2`

	sqlRelatedRecommendations = `
		SELECT r.public_id, r.title, r.summary, r.status, r.strength,
		       r.evidence_quality, r.direction, r.topics,
		       cardinality(ARRAY(
		        SELECT unnest(r.topics) INTERSECT
		        SELECT unnest(b.topics)
		       )) AS shared_topics
		FROM recommendations r, recommendations b
		WHERE b.public_id = $1 AND r.public_id <> $1
		  AND r.topics && b.topics
		ORDER BY shared_topics DESC, r.display_sequence ASC
		LIMIT $2`
)

// Execute runs exactly one allow-listed template with the given parameters.
// The template contract is validated before any query is issued; combining
// structural patterns happens by calling Execute repeatedly and fusing the
// results afterwards, never inside one template.
func (s *GraphDBStore) Execute(
	ctx context.Context,
	template graph.Template,
	params map[string]any,
) ([]graph.Node, error) {
	if err := graph.ValidateParams(template, params); err != nil {
		return nil, err
	}

	limit := paramLimit(params)

	switch template {
	case graph.TemplateRecommendationsForCondition:
		return s.queryRecommendations(ctx, sqlRecommendationsForCondition, params["condition_id"], limit)
	case graph.TemplateRecommendationsForMedication:
		var conditionID any
		if v, ok := params["condition_id"]; ok && v != "" {
			conditionID = v
		}
		return s.queryRecommendations(ctx, sqlRecommendationsForMedication, params["medication_id"], conditionID, limit)
	case graph.TemplateStudiesForRecommendation:
		return s.queryStudies(ctx, params["rec_id"], limit)
	case graph.TemplateEvidenceForRecommendation:
		return s.queryEvidence(ctx, params["rec_id"], limit)
	case graph.TemplateRecommendationsByStrength:
		return s.queryRecommendationsByStrength(ctx, params["strength"], limit)
	case graph.TemplateRelatedRecommendations:
		return s.queryRelatedRecommendations(ctx, params["rec_id"], limit)
	default:
		return nil, fmt.Errorf("%w: %q", graph.ErrUnknownTemplate, template)
	}
}

func paramLimit(params map[string]any) int {
	raw, ok := params["limit"]
	if !ok {
		return defaultTemplateLimit
	}
	switch v := raw.(type) {
	case int:
		if v > 0 {
			return v
		}
	case int32:
		if v > 0 {
			return int(v)
		}
	case int64:
		if v > 0 {
			return int(v)
		}
	case float64:
		if v > 0 {
			return int(v)
		}
	}
	return defaultTemplateLimit
}

func (s *GraphDBStore) queryRecommendations(ctx context.Context, sql string, args ...any) ([]graph.Node, error) {
	rows, err := s.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query recommendations: %w", err)
	}
	defer rows.Close()

	nodes := make([]graph.Node, 0)
	for rows.Next() {
		var n graph.Node
		var status string
		if err := rows.Scan(&n.ID, &n.Title, &n.Summary, &status, &n.Strength, &n.Quality, &n.Direction, &n.Topics); err != nil {
			return nil, err
		}
		n.Type = graph.NodeRecommendation
		n.Status = graph.Status(status)
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

func (s *GraphDBStore) queryRecommendationsByStrength(ctx context.Context, strength any, limit int) ([]graph.Node, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT r.public_id, r.title, r.summary, r.status, r.strength,
		       r.evidence_quality, r.direction, r.topics
		FROM recommendations r
		WHERE r.strength = $1
		ORDER BY (
		    SELECT count(*) FROM recommendation_conditions rc
		    WHERE rc.rec_public_id = r.public_id
		) DESC, r.display_sequence ASC
		LIMIT $2`, strength, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recommendations by strength: %w", err)
	}
	defer rows.Close()

	nodes := make([]graph.Node, 0)
	for rows.Next() {
		var n graph.Node
		var status string
		if err := rows.Scan(&n.ID, &n.Title, &n.Summary, &status, &n.Strength, &n.Quality, &n.Direction, &n.Topics); err != nil {
			return nil, err
		}
		n.Type = graph.NodeRecommendation
		n.Status = graph.Status(status)
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

func (s *GraphDBStore) queryRelatedRecommendations(ctx context.Context, recID any, limit int) ([]graph.Node, error) {
	rows, err := s.conn.Query(ctx, sqlRelatedRecommendations, recID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query related recommendations: %w", err)
	}
	defer rows.Close()

	nodes := make([]graph.Node, 0)
	for rows.Next() {
		var n graph.Node
		var status string
		var sharedTopics int
		if err := rows.Scan(&n.ID, &n.Title, &n.Summary, &status, &n.Strength, &n.Quality, &n.Direction, &n.Topics, &sharedTopics); err != nil {
			return nil, err
		}
		n.Type = graph.NodeRecommendation
		n.Status = graph.Status(status)
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

func (s *GraphDBStore) queryStudies(ctx context.Context, recID any, limit int) ([]graph.Node, error) {
	rows, err := s.conn.Query(ctx, sqlStudiesForRecommendation, recID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query studies: %w", err)
	}
	defer rows.Close()

	nodes := make([]graph.Node, 0)
	for rows.Next() {
		var n graph.Node
		var year int
		if err := rows.Scan(&n.ID, &n.Title, &n.Summary, &year); err != nil {
			return nil, err
		}
		n.Type = graph.NodeStudy
		n.Status = graph.StatusActive
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

func (s *GraphDBStore) queryEvidence(ctx context.Context, recID any, limit int) ([]graph.Node, error) {
	rows, err := s.conn.Query(ctx, sqlEvidenceForRecommendation, recID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query evidence: %w", err)
	}
	defer rows.Close()

	nodes := make([]graph.Node, 0)
	for rows.Next() {
		var n graph.Node
		var displaySequence int
		if err := rows.Scan(&n.ID, &n.Summary, &n.Quality, &displaySequence); err != nil {
			return nil, err
		}
		n.Type = graph.NodeEvidence
		n.Status = graph.StatusActive
		n.Title = n.Summary
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}
