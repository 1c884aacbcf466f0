package query

import (
	"sort"

	"github.com/clinigraph/backend/pkg/graph"
)

// DefaultRRFK is the standard Reciprocal Rank Fusion constant. Larger values
// flatten the contribution difference between adjacent ranks.
const DefaultRRFK = 60.0

// FuseRRF merges per-path candidate lists into a single ranked list via
// Reciprocal Rank Fusion: each appearance of a node at rank r contributes
// 1/(k+r). A node surfaced by multiple paths accumulates one contribution per
// path, so agreement between paths outranks a single strong appearance.
// Fusion uses ranks only; raw path scores are never compared across paths.
//
// Equal fused scores tie-break on the node's best rank in any path, then on
// node id, so the output order is fully deterministic.
func FuseRRF(lists [][]Candidate, k float64) []FusedResult {
	if k <= 0 {
		k = DefaultRRFK
	}

	byID := make(map[string]*FusedResult)
	var order []string

	for _, list := range lists {
		for _, candidate := range list {
			contribution := 1.0 / (k + float64(candidate.RankInPath))

			fused, ok := byID[candidate.Node.ID]
			if !ok {
				fused = &FusedResult{
					Node:     candidate.Node,
					BestRank: candidate.RankInPath,
				}
				byID[candidate.Node.ID] = fused
				order = append(order, candidate.Node.ID)
			}

			fused.FusedScore += contribution
			fused.Paths = appendPath(fused.Paths, candidate.SourcePath)
			if candidate.RankInPath < fused.BestRank {
				fused.BestRank = candidate.RankInPath
			}
			mergeNode(&fused.Node, candidate.Node)
		}
	}

	results := make([]FusedResult, 0, len(order))
	for _, id := range order {
		results = append(results, *byID[id])
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].FusedScore != results[j].FusedScore {
			return results[i].FusedScore > results[j].FusedScore
		}
		if results[i].BestRank != results[j].BestRank {
			return results[i].BestRank < results[j].BestRank
		}
		return results[i].Node.ID < results[j].Node.ID
	})
	return results
}

func appendPath(paths []SourcePath, path SourcePath) []SourcePath {
	for _, existing := range paths {
		if existing == path {
			return paths
		}
	}
	return append(paths, path)
}

// mergeNode fills attribute gaps on the first-seen node projection with
// values a later path carried. Structural results come with lifecycle and
// grading attributes the vector projections may lack.
func mergeNode(dst *graph.Node, src graph.Node) {
	if dst.Title == "" {
		dst.Title = src.Title
	}
	if dst.Summary == "" {
		dst.Summary = src.Summary
	}
	if dst.Status == "" {
		dst.Status = src.Status
	}
	if dst.Strength == "" {
		dst.Strength = src.Strength
	}
	if dst.Quality == "" {
		dst.Quality = src.Quality
	}
	if dst.Direction == "" {
		dst.Direction = src.Direction
	}
	if len(dst.Topics) == 0 {
		dst.Topics = src.Topics
	}
	if len(dst.StudyIDs) == 0 {
		dst.StudyIDs = src.StudyIDs
	}
}
