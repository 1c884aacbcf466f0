package query

import (
	"context"
	"testing"

	"github.com/clinigraph/backend/pkg/graph"
)

func TestResolveExactID(t *testing.T) {
	directory := &fakeDirectory{byID: map[string]graph.Node{
		"rec-001": recNode("rec-001"),
	}}
	resolver := NewResolver(ResolverParams{Directory: directory})

	resolved, err := resolver.Resolve(context.Background(), map[string][]string{
		"recommendation": {"rec-001"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resolved) != 1 {
		t.Fatalf("got %d resolved entities, want 1", len(resolved))
	}
	if resolved[0].Node.ID != "rec-001" {
		t.Fatalf("got node %q, want %q", resolved[0].Node.ID, "rec-001")
	}
}

func TestResolveByName(t *testing.T) {
	directory := &fakeDirectory{byName: map[string][]graph.Node{
		"medication/metformin": {
			{ID: "med-007", Type: graph.NodeMedication, Title: "Metformin"},
			{ID: "med-008", Type: graph.NodeMedication, Title: "Metformin XR"},
		},
	}}
	resolver := NewResolver(ResolverParams{Directory: directory})

	resolved, err := resolver.Resolve(context.Background(), map[string][]string{
		"medication": {"metformin"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resolved) != 1 || resolved[0].Node.ID != "med-007" {
		t.Fatalf("got %v, want the first name match med-007", resolved)
	}
}

func TestResolveDropsUnresolvable(t *testing.T) {
	resolver := NewResolver(ResolverParams{Directory: &fakeDirectory{}})

	resolved, err := resolver.Resolve(context.Background(), map[string][]string{
		"condition": {"nonexistent syndrome"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resolved) != 0 {
		t.Fatalf("got %d resolved entities, want 0", len(resolved))
	}
}

func TestResolveVectorFallbackRespectsThreshold(t *testing.T) {
	tests := []struct {
		name  string
		score float64
		want  int
	}{
		{"above threshold", 0.8, 1},
		{"below threshold", 0.3, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			index := &fakeVectorIndex{hits: map[graph.Collection][]graph.Hit{
				graph.CollectionStudies: {{Node: graph.Node{ID: "study-1", Type: graph.NodeStudy}, Score: tt.score}},
			}}
			resolver := NewResolver(ResolverParams{
				Directory:      &fakeDirectory{},
				Index:          index,
				AIClient:       &fakeAI{},
				VectorFallback: true,
				Threshold:      0.55,
			})

			resolved, err := resolver.Resolve(context.Background(), map[string][]string{
				"study": {"the big trial"},
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(resolved) != tt.want {
				t.Fatalf("got %d resolved entities, want %d", len(resolved), tt.want)
			}
		})
	}
}

func TestResolveNoVectorFallbackForConditions(t *testing.T) {
	aiClient := &fakeAI{}
	resolver := NewResolver(ResolverParams{
		Directory:      &fakeDirectory{},
		Index:          &fakeVectorIndex{},
		AIClient:       aiClient,
		VectorFallback: true,
	})

	if _, err := resolver.Resolve(context.Background(), map[string][]string{
		"condition": {"rare disease"},
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if aiClient.embedCalls != 0 {
		t.Fatalf("got %d embedding calls, want 0 for categories without a collection", aiClient.embedCalls)
	}
}
