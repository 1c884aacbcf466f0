package query

import (
	"context"
	"sort"
	"strings"

	"github.com/clinigraph/backend/pkg/ai"
	"github.com/clinigraph/backend/pkg/graph"
	"github.com/clinigraph/backend/pkg/logger"
)

// defaultVectorFallbackThreshold is the minimum similarity score a vector
// match must reach before it counts as a resolved entity.
const defaultVectorFallbackThreshold = 0.55

var categoryNodeTypes = map[string]graph.NodeType{
	"condition":      graph.NodeCondition,
	"medication":     graph.NodeMedication,
	"recommendation": graph.NodeRecommendation,
	"study":          graph.NodeStudy,
}

// categoryCollections maps categories to the embedded collection used for the
// optional vector fallback. Conditions and medications carry no embeddings.
var categoryCollections = map[string]graph.Collection{
	"recommendation": graph.CollectionRecommendations,
	"study":          graph.CollectionStudies,
}

// ResolvedEntity binds a routed mention to a concrete graph node.
type ResolvedEntity struct {
	Category string
	Mention  string
	Node     graph.Node
}

// Resolver maps free-text entity mentions to graph node identifiers.
// Resolution tries, in order: exact identifier match, case-insensitive name
// match, and an optional embedding similarity fallback.
type Resolver struct {
	directory graph.Directory
	index     graph.VectorIndex
	aiClient  ai.GraphAIClient

	vectorFallback bool
	threshold      float64
}

type ResolverParams struct {
	Directory graph.Directory
	Index     graph.VectorIndex
	AIClient  ai.GraphAIClient

	// VectorFallback enables the embedding similarity fallback for mentions
	// that neither identifier nor name matching could resolve.
	VectorFallback bool
	Threshold      float64
}

func NewResolver(params ResolverParams) *Resolver {
	threshold := params.Threshold
	if threshold <= 0 {
		threshold = defaultVectorFallbackThreshold
	}
	return &Resolver{
		directory:      params.Directory,
		index:          params.Index,
		aiClient:       params.AIClient,
		vectorFallback: params.VectorFallback,
		threshold:      threshold,
	}
}

// Resolve maps every routed mention to a node where possible. Unresolvable
// mentions are dropped from the result, never turned into guessed
// identifiers; callers that needed them fall back accordingly. Store errors
// abort resolution.
func (r *Resolver) Resolve(ctx context.Context, entities map[string][]string) ([]ResolvedEntity, error) {
	categories := make([]string, 0, len(entities))
	for category := range entities {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	var resolved []ResolvedEntity
	for _, category := range categories {
		nodeType, ok := categoryNodeTypes[category]
		if !ok {
			continue
		}
		for _, mention := range entities[category] {
			node, err := r.resolveMention(ctx, category, nodeType, mention)
			if err != nil {
				return nil, err
			}
			if node == nil {
				logger.Debug("Unresolved entity mention", "category", category, "mention", mention)
				continue
			}
			resolved = append(resolved, ResolvedEntity{
				Category: category,
				Mention:  mention,
				Node:     *node,
			})
		}
	}
	return resolved, nil
}

func (r *Resolver) resolveMention(ctx context.Context, category string, nodeType graph.NodeType, mention string) (*graph.Node, error) {
	node, err := r.directory.GetNode(ctx, mention)
	if err != nil {
		return nil, err
	}
	if node != nil && node.Type == nodeType {
		return node, nil
	}

	matches, err := r.directory.FindNodesByName(ctx, nodeType, mention)
	if err != nil {
		return nil, err
	}
	if len(matches) > 0 {
		return &matches[0], nil
	}

	if !r.vectorFallback {
		return nil, nil
	}
	collection, ok := categoryCollections[category]
	if !ok {
		return nil, nil
	}
	return r.resolveByEmbedding(ctx, collection, mention)
}

func (r *Resolver) resolveByEmbedding(ctx context.Context, collection graph.Collection, mention string) (*graph.Node, error) {
	vector, err := r.aiClient.GenerateEmbedding(ctx, []byte(strings.ToLower(mention)))
	if err != nil {
		logger.Warn("Entity embedding failed, skipping vector fallback", "mention", mention, "err", err)
		return nil, nil
	}

	hits, err := r.index.Search(ctx, collection, vector, 1)
	if err != nil {
		logger.Warn("Entity vector lookup failed, skipping vector fallback", "mention", mention, "err", err)
		return nil, nil
	}
	if len(hits) == 0 || hits[0].Score < r.threshold {
		return nil, nil
	}
	return &hits[0].Node, nil
}
