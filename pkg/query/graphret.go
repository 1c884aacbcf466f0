package query

import (
	"context"
	"fmt"
	"strings"

	"github.com/clinigraph/backend/internal/util"
	"github.com/clinigraph/backend/pkg/graph"
)

// GraphRetriever runs the structural retrieval path: exactly one allow-listed
// template per request, with parameters bound from resolved entities only.
type GraphRetriever struct {
	service graph.QueryService
}

func NewGraphRetriever(service graph.QueryService) *GraphRetriever {
	return &GraphRetriever{service: service}
}

// Retrieve executes the template. The template contract is validated before
// the store is touched; a contract violation returns immediately without a
// store call. Result order is the template's intrinsic ordering, expressed as
// ranks; raw scores stay zero since structural results carry no similarity.
func (g *GraphRetriever) Retrieve(ctx context.Context, template graph.Template, params map[string]any) ([]Candidate, error) {
	if err := graph.ValidateParams(template, params); err != nil {
		return nil, err
	}

	nodes, err := util.RetryWithContext(ctx, 2, func(ctx context.Context) ([]graph.Node, error) {
		return g.service.Execute(ctx, template, params)
	})
	if err != nil {
		return nil, fmt.Errorf("executing template %s: %w", template, err)
	}

	candidates := make([]Candidate, 0, len(nodes))
	for i, node := range nodes {
		candidates = append(candidates, Candidate{
			Node:       node,
			SourcePath: PathGraph,
			RankInPath: i + 1,
		})
	}
	return candidates, nil
}

// SelectTemplate picks the structural template for a routing decision and
// binds its parameters from resolved entities. The routed hint wins when its
// required parameters can be bound; otherwise selection falls back to the
// entity mix. Returns false when no template's required parameters resolve.
func SelectTemplate(decision RoutingDecision, resolved []ResolvedEntity) (graph.Template, map[string]any, bool) {
	ids := map[string]string{}
	for _, entity := range resolved {
		if _, seen := ids[entity.Category]; !seen {
			ids[entity.Category] = entity.Node.ID
		}
	}

	if decision.TemplateHint != "" {
		if template, params, ok := bindTemplate(graph.Template(decision.TemplateHint), decision, ids); ok {
			return template, params, true
		}
	}

	if _, ok := ids["medication"]; ok {
		return bindTemplate(graph.TemplateRecommendationsForMedication, decision, ids)
	}
	if _, ok := ids["condition"]; ok {
		return bindTemplate(graph.TemplateRecommendationsForCondition, decision, ids)
	}
	if _, ok := ids["recommendation"]; ok {
		switch decision.Intent {
		case "study":
			return bindTemplate(graph.TemplateStudiesForRecommendation, decision, ids)
		case "evidence", "mechanism":
			return bindTemplate(graph.TemplateEvidenceForRecommendation, decision, ids)
		default:
			return bindTemplate(graph.TemplateRelatedRecommendations, decision, ids)
		}
	}
	return "", nil, false
}

// bindTemplate fills a template's parameters from resolved entity ids. Only
// identifiers produced by the resolver are bound; mention text never reaches
// a parameter.
func bindTemplate(template graph.Template, decision RoutingDecision, ids map[string]string) (graph.Template, map[string]any, bool) {
	params := map[string]any{}
	switch template {
	case graph.TemplateRecommendationsForCondition:
		if id, ok := ids["condition"]; ok {
			params["condition_id"] = id
		}
	case graph.TemplateRecommendationsForMedication:
		if id, ok := ids["medication"]; ok {
			params["medication_id"] = id
		}
		if id, ok := ids["condition"]; ok {
			params["condition_id"] = id
		}
	case graph.TemplateStudiesForRecommendation,
		graph.TemplateEvidenceForRecommendation,
		graph.TemplateRelatedRecommendations:
		if id, ok := ids["recommendation"]; ok {
			params["rec_id"] = id
		}
	case graph.TemplateRecommendationsByStrength:
		if strength := strengthFromText(decision.SearchText); strength != "" {
			params["strength"] = strength
		}
	default:
		return "", nil, false
	}

	if err := graph.ValidateParams(template, params); err != nil {
		return "", nil, false
	}
	return template, params, true
}

func strengthFromText(text string) string {
	for _, strength := range []string{graph.StrengthConditional, graph.StrengthStrong, graph.StrengthWeak} {
		if containsFold(text, strength) {
			return strength
		}
	}
	return ""
}

func containsFold(text, substr string) bool {
	return strings.Contains(strings.ToLower(text), substr)
}
