package query

import (
	"sort"
	"strings"

	"github.com/clinigraph/backend/pkg/graph"
)

// BoostRule multiplies a candidate's fused score when one of its grading
// attributes matches. Multipliers compose multiplicatively when several rules
// match the same candidate.
type BoostRule struct {
	Attribute  string  `json:"attribute"`
	Value      string  `json:"value"`
	Multiplier float64 `json:"multiplier"`
}

// BoostTable is the deterministic rule set the reranker applies after
// lifecycle filtering. It is plain data: ranking behavior changes by swapping
// tables, not by editing the algorithm.
type BoostTable struct {
	Rules []BoostRule `json:"rules"`
	// TopicMatch multiplies the score when a candidate's topics intersect
	// the question's entity terms.
	TopicMatch float64 `json:"topic_match"`
}

// DefaultBoostTable favors strong recommendations backed by high-quality
// evidence, mirroring guideline grading.
func DefaultBoostTable() BoostTable {
	return BoostTable{
		Rules: []BoostRule{
			{Attribute: "strength", Value: graph.StrengthStrong, Multiplier: 1.3},
			{Attribute: "strength", Value: graph.StrengthConditional, Multiplier: 1.1},
			{Attribute: "quality", Value: graph.QualityHigh, Multiplier: 1.2},
			{Attribute: "quality", Value: graph.QualityModerate, Multiplier: 1.05},
		},
		TopicMatch: 1.15,
	}
}

// Rerank drops candidates that are not active, applies the boost table and
// re-sorts by the boosted score. It never adds candidates and never restores
// dropped ones; running it twice over its own output yields the same order.
func Rerank(results []FusedResult, table BoostTable, entityTerms []string) []RankedResult {
	terms := make(map[string]struct{}, len(entityTerms))
	for _, term := range entityTerms {
		terms[strings.ToLower(term)] = struct{}{}
	}

	ranked := make([]RankedResult, 0, len(results))
	for _, result := range results {
		if !result.Node.Active() {
			continue
		}

		score := result.FusedScore
		for _, rule := range table.Rules {
			if rule.Multiplier > 0 && attributeValue(result.Node, rule.Attribute) == rule.Value {
				score *= rule.Multiplier
			}
		}
		if table.TopicMatch > 0 && topicsMatch(result.Node.Topics, terms) {
			score *= table.TopicMatch
		}

		ranked = append(ranked, RankedResult{FusedResult: result, FinalScore: score})
	}

	// Stable sort on the boosted score alone: ties keep their position from
	// the fused input order.
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].FinalScore > ranked[j].FinalScore
	})
	return ranked
}

func attributeValue(node graph.Node, attribute string) string {
	switch attribute {
	case "strength":
		return node.Strength
	case "quality":
		return node.Quality
	case "direction":
		return node.Direction
	}
	return ""
}

func topicsMatch(topics []string, terms map[string]struct{}) bool {
	for _, topic := range topics {
		if _, ok := terms[strings.ToLower(topic)]; ok {
			return true
		}
	}
	return false
}
