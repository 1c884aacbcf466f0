package query

import (
	"context"
	"fmt"
	"sort"

	"github.com/clinigraph/backend/internal/util"
	"github.com/clinigraph/backend/pkg/ai"
	"github.com/clinigraph/backend/pkg/graph"
)

const defaultVectorTopK = 15

// intentCollections statically maps a routed intent to the collections the
// vector path searches. Unknown intents fall back to recommendations only.
var intentCollections = map[string][]graph.Collection{
	"treatment": {graph.CollectionRecommendations},
	"dosing":    {graph.CollectionRecommendations},
	"evidence":  {graph.CollectionRecommendations, graph.CollectionEvidence},
	"mechanism": {graph.CollectionRecommendations, graph.CollectionEvidence},
	"study":     {graph.CollectionStudies},
	"general":   {graph.CollectionRecommendations},
}

// collectionsForIntent returns the collections searched for an intent.
func collectionsForIntent(intent string) []graph.Collection {
	if collections, ok := intentCollections[intent]; ok {
		return collections
	}
	return []graph.Collection{graph.CollectionRecommendations}
}

// VectorRetriever runs the semantic retrieval path: embed the routed search
// text once, search the intent's collections, and merge hits into a single
// ranked candidate list.
type VectorRetriever struct {
	aiClient ai.GraphAIClient
	index    graph.VectorIndex
	topK     int
}

func NewVectorRetriever(aiClient ai.GraphAIClient, index graph.VectorIndex, topK int) *VectorRetriever {
	if topK <= 0 {
		topK = defaultVectorTopK
	}
	return &VectorRetriever{aiClient: aiClient, index: index, topK: topK}
}

// Retrieve produces the vector path candidates for a routing decision. It is
// side-effect free and safe to run concurrently with the graph path.
func (v *VectorRetriever) Retrieve(ctx context.Context, decision RoutingDecision) ([]Candidate, error) {
	vector, err := util.RetryWithContext(ctx, 2, func(ctx context.Context) ([]float32, error) {
		return v.aiClient.GenerateEmbedding(ctx, []byte(decision.SearchText))
	})
	if err != nil {
		return nil, fmt.Errorf("embedding search text: %w", err)
	}

	var hits []graph.Hit
	for _, collection := range collectionsForIntent(decision.Intent) {
		collectionHits, err := util.RetryWithContext(ctx, 2, func(ctx context.Context) ([]graph.Hit, error) {
			return v.index.Search(ctx, collection, vector, v.topK)
		})
		if err != nil {
			return nil, fmt.Errorf("searching collection %s: %w", collection, err)
		}
		hits = append(hits, collectionHits...)
	}

	// Collections return hits ordered by score; a stable sort keeps that
	// order deterministic across the merged list.
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > v.topK {
		hits = hits[:v.topK]
	}

	candidates := make([]Candidate, 0, len(hits))
	for i, hit := range hits {
		candidates = append(candidates, Candidate{
			Node:       hit.Node,
			RawScore:   hit.Score,
			SourcePath: PathVector,
			RankInPath: i + 1,
		})
	}
	return candidates, nil
}
