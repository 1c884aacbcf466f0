package query

import (
	"math"
	"testing"
)

func candidatesAt(path SourcePath, ids ...string) []Candidate {
	candidates := make([]Candidate, 0, len(ids))
	for i, id := range ids {
		candidates = append(candidates, Candidate{
			Node:       recNode(id),
			SourcePath: path,
			RankInPath: i + 1,
		})
	}
	return candidates
}

func TestFuseRRFDeduplicates(t *testing.T) {
	vector := candidatesAt(PathVector, "a", "b")
	graphPath := candidatesAt(PathGraph, "a", "c")

	fused := FuseRRF([][]Candidate{vector, graphPath}, DefaultRRFK)
	if len(fused) != 3 {
		t.Fatalf("got %d fused results, want 3", len(fused))
	}

	seen := map[string]int{}
	for _, result := range fused {
		seen[result.Node.ID]++
	}
	if seen["a"] != 1 {
		t.Fatalf("node a appears %d times, want 1", seen["a"])
	}

	want := 1.0/(DefaultRRFK+1) + 1.0/(DefaultRRFK+1)
	if math.Abs(fused[0].FusedScore-want) > 1e-9 {
		t.Fatalf("got fused score %f for a, want %f", fused[0].FusedScore, want)
	}
	if len(fused[0].Paths) != 2 {
		t.Fatalf("got %d paths for a, want 2", len(fused[0].Paths))
	}
}

func TestFuseRRFOverlapBeatsSinglePath(t *testing.T) {
	// Node "both" sits mid-list on both paths; node "solo" tops one.
	vector := candidatesAt(PathVector, "solo", "both", "v3")
	graphPath := candidatesAt(PathGraph, "g1", "both", "g3")

	fused := FuseRRF([][]Candidate{vector, graphPath}, DefaultRRFK)
	if fused[0].Node.ID != "both" {
		t.Fatalf("got top result %q, want %q", fused[0].Node.ID, "both")
	}
}

func TestFuseRRFHigherRankScoresMore(t *testing.T) {
	fused := FuseRRF([][]Candidate{candidatesAt(PathVector, "first", "second")}, DefaultRRFK)
	if fused[0].Node.ID != "first" {
		t.Fatalf("got top result %q, want %q", fused[0].Node.ID, "first")
	}
	if fused[0].FusedScore <= fused[1].FusedScore {
		t.Fatalf("rank 1 score %f not greater than rank 2 score %f", fused[0].FusedScore, fused[1].FusedScore)
	}
}

func TestFuseRRFTieBreaksDeterministic(t *testing.T) {
	// Two nodes each appear once at rank 1 of their own path: equal score,
	// equal best rank, id decides.
	lists := [][]Candidate{
		candidatesAt(PathVector, "zzz"),
		candidatesAt(PathGraph, "aaa"),
	}

	for i := 0; i < 5; i++ {
		fused := FuseRRF(lists, DefaultRRFK)
		if fused[0].Node.ID != "aaa" {
			t.Fatalf("run %d: got top result %q, want %q", i, fused[0].Node.ID, "aaa")
		}
	}
}

func TestFuseRRFFillsMissingAttributes(t *testing.T) {
	incomplete := recNode("r1")
	incomplete.Status = ""
	incomplete.Strength = ""

	complete := recNode("r1")
	complete.Strength = "strong"

	fused := FuseRRF([][]Candidate{
		{{Node: incomplete, SourcePath: PathVector, RankInPath: 1}},
		{{Node: complete, SourcePath: PathGraph, RankInPath: 1}},
	}, DefaultRRFK)

	if fused[0].Node.Strength != "strong" {
		t.Fatalf("got strength %q, want %q", fused[0].Node.Strength, "strong")
	}
	if !fused[0].Node.Active() {
		t.Fatalf("merged node should be active")
	}
}
