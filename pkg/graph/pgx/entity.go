package pgx

import (
	"context"
	"fmt"

	"github.com/clinigraph/backend/pkg/graph"

	"github.com/jackc/pgx/v5"
)

// GetNode returns the node with the given public identifier, or nil if no
// node carries it. All node tables are checked; identifiers are unique across
// the graph.
func (s *GraphDBStore) GetNode(ctx context.Context, id string) (*graph.Node, error) {
	var n graph.Node
	var status string

	err := s.conn.QueryRow(ctx, `
		SELECT r.public_id, r.title, r.summary, r.status, r.strength,
		       r.evidence_quality, r.direction, r.topics
		FROM recommendations r
		WHERE r.public_id = $1`, id).
		Scan(&n.ID, &n.Title, &n.Summary, &status, &n.Strength, &n.Quality, &n.Direction, &n.Topics)
	if err == nil {
		n.Type = graph.NodeRecommendation
		n.Status = graph.Status(status)
		return &n, nil
	}
	if err != pgx.ErrNoRows {
		return nil, fmt.Errorf("failed to look up node %q: %w", id, err)
	}

	err = s.conn.QueryRow(ctx, `
		SELECT c.public_id, c.name, c.description, c.node_type FROM (
		    SELECT public_id, name, description, 'condition' AS node_type FROM conditions
		    UNION ALL
		    SELECT public_id, name, description, 'medication' AS node_type FROM medications
		    UNION ALL
		    SELECT public_id, title AS name, summary AS description, 'study' AS node_type FROM studies
		) c
		WHERE c.public_id = $1`, id).
		Scan(&n.ID, &n.Title, &n.Summary, &n.Type)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up node %q: %w", id, err)
	}
	n.Status = graph.StatusActive
	return &n, nil
}

// FindNodesByName matches a mention case-insensitively against canonical name
// and description fields of the given category.
func (s *GraphDBStore) FindNodesByName(
	ctx context.Context,
	category graph.NodeType,
	mention string,
) ([]graph.Node, error) {
	var sql string
	switch category {
	case graph.NodeCondition:
		sql = `SELECT public_id, name, description FROM conditions
		       WHERE name ILIKE '%' || $1 || '%' OR description ILIKE '%' || $1 || '%'
		       ORDER BY name ASC LIMIT 5`
	case graph.NodeMedication:
		sql = `SELECT public_id, name, description FROM medications
		       WHERE name ILIKE '%' || $1 || '%' OR description ILIKE '%' || $1 || '%'
		       ORDER BY name ASC LIMIT 5`
	case graph.NodeStudy:
		sql = `SELECT public_id, title, summary FROM studies
		       WHERE title ILIKE '%' || $1 || '%' OR summary ILIKE '%' || $1 || '%'
		       ORDER BY title ASC LIMIT 5`
	case graph.NodeRecommendation:
		sql = `SELECT public_id, title, summary FROM recommendations
		       WHERE title ILIKE '%' || $1 || '%' OR summary ILIKE '%' || $1 || '%'
		       ORDER BY display_sequence ASC LIMIT 5`
	default:
		return nil, fmt.Errorf("unknown entity category: %q", category)
	}

	rows, err := s.conn.Query(ctx, sql, mention)
	if err != nil {
		return nil, fmt.Errorf("failed to find nodes by name: %w", err)
	}
	defer rows.Close()

	nodes := make([]graph.Node, 0)
	for rows.Next() {
		var n graph.Node
		if err := rows.Scan(&n.ID, &n.Title, &n.Summary); err != nil {
			return nil, err
		}
		n.Type = category
		n.Status = graph.StatusActive
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}
