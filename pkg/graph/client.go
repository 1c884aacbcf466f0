package graph

import "context"

// QueryService executes allow-listed structural query templates against the
// knowledge graph store. Implementations must validate the template contract
// via ValidateParams before touching the store and must preserve each
// template's intrinsic result ordering.
type QueryService interface {
	Execute(ctx context.Context, template Template, params map[string]any) ([]Node, error)
}

// VectorIndex performs nearest-neighbor search over an embedded node
// collection. Results are ordered by similarity score descending.
type VectorIndex interface {
	Search(ctx context.Context, collection Collection, vector []float32, topK int) ([]Hit, error)
}

// Directory resolves identifiers and free-text mentions to graph nodes.
type Directory interface {
	// GetNode returns the node with the given identifier, or nil if absent.
	GetNode(ctx context.Context, id string) (*Node, error)
	// FindNodesByName matches mentions case-insensitively against canonical
	// name and description fields of the given category.
	FindNodesByName(ctx context.Context, category NodeType, mention string) ([]Node, error)
}
