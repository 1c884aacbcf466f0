package query

import (
	"context"
	"errors"
	"testing"

	"github.com/clinigraph/backend/pkg/graph"
)

func TestGraphRetrieveMissingParamNoServiceCall(t *testing.T) {
	service := &fakeQueryService{}
	retriever := NewGraphRetriever(service)

	_, err := retriever.Retrieve(context.Background(), graph.TemplateEvidenceForRecommendation, map[string]any{})

	var missing *graph.MissingParamError
	if !errors.As(err, &missing) {
		t.Fatalf("got error %v, want MissingParamError", err)
	}
	if missing.Param != "rec_id" {
		t.Fatalf("got missing param %q, want %q", missing.Param, "rec_id")
	}
	if len(service.calls) != 0 {
		t.Fatalf("store was called %d times, want 0", len(service.calls))
	}
}

func TestGraphRetrieveUnknownTemplate(t *testing.T) {
	retriever := NewGraphRetriever(&fakeQueryService{})
	_, err := retriever.Retrieve(context.Background(), graph.Template("made_up"), nil)
	if !errors.Is(err, graph.ErrUnknownTemplate) {
		t.Fatalf("got error %v, want ErrUnknownTemplate", err)
	}
}

func TestGraphRetrievePreservesTemplateOrdering(t *testing.T) {
	service := &fakeQueryService{nodes: map[graph.Template][]graph.Node{
		graph.TemplateRecommendationsForCondition: {recNode("r2"), recNode("r1"), recNode("r3")},
	}}
	retriever := NewGraphRetriever(service)

	candidates, err := retriever.Retrieve(context.Background(), graph.TemplateRecommendationsForCondition,
		map[string]any{"condition_id": "cond-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantOrder := []string{"r2", "r1", "r3"}
	for i, want := range wantOrder {
		if candidates[i].Node.ID != want {
			t.Fatalf("position %d: got %q, want %q", i, candidates[i].Node.ID, want)
		}
		if candidates[i].RankInPath != i+1 {
			t.Fatalf("position %d: got rank %d, want %d", i, candidates[i].RankInPath, i+1)
		}
		if candidates[i].SourcePath != PathGraph {
			t.Fatalf("position %d: got path %q, want %q", i, candidates[i].SourcePath, PathGraph)
		}
	}
}

func TestSelectTemplate(t *testing.T) {
	condition := ResolvedEntity{Category: "condition", Node: graph.Node{ID: "cond-1", Type: graph.NodeCondition}}
	medication := ResolvedEntity{Category: "medication", Node: graph.Node{ID: "med-1", Type: graph.NodeMedication}}
	recommendation := ResolvedEntity{Category: "recommendation", Node: recNode("rec-1")}

	tests := []struct {
		name     string
		decision RoutingDecision
		resolved []ResolvedEntity
		want     graph.Template
		wantOK   bool
	}{
		{
			name:     "condition only",
			decision: RoutingDecision{Intent: "treatment"},
			resolved: []ResolvedEntity{condition},
			want:     graph.TemplateRecommendationsForCondition,
			wantOK:   true,
		},
		{
			name:     "medication wins over condition",
			decision: RoutingDecision{Intent: "treatment"},
			resolved: []ResolvedEntity{condition, medication},
			want:     graph.TemplateRecommendationsForMedication,
			wantOK:   true,
		},
		{
			name:     "recommendation with study intent",
			decision: RoutingDecision{Intent: "study"},
			resolved: []ResolvedEntity{recommendation},
			want:     graph.TemplateStudiesForRecommendation,
			wantOK:   true,
		},
		{
			name:     "recommendation with evidence intent",
			decision: RoutingDecision{Intent: "evidence"},
			resolved: []ResolvedEntity{recommendation},
			want:     graph.TemplateEvidenceForRecommendation,
			wantOK:   true,
		},
		{
			name:     "recommendation default relates",
			decision: RoutingDecision{Intent: "general"},
			resolved: []ResolvedEntity{recommendation},
			want:     graph.TemplateRelatedRecommendations,
			wantOK:   true,
		},
		{
			name:     "hint honored when bindable",
			decision: RoutingDecision{Intent: "general", TemplateHint: string(graph.TemplateEvidenceForRecommendation)},
			resolved: []ResolvedEntity{recommendation},
			want:     graph.TemplateEvidenceForRecommendation,
			wantOK:   true,
		},
		{
			name:     "hint unbindable falls back to entities",
			decision: RoutingDecision{Intent: "treatment", TemplateHint: string(graph.TemplateStudiesForRecommendation)},
			resolved: []ResolvedEntity{condition},
			want:     graph.TemplateRecommendationsForCondition,
			wantOK:   true,
		},
		{
			name:     "nothing resolved",
			decision: RoutingDecision{Intent: "general"},
			resolved: nil,
			wantOK:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			template, params, ok := SelectTemplate(tt.decision, tt.resolved)
			if ok != tt.wantOK {
				t.Fatalf("got ok=%v, want %v", ok, tt.wantOK)
			}
			if !tt.wantOK {
				return
			}
			if template != tt.want {
				t.Fatalf("got template %q, want %q", template, tt.want)
			}
			if err := graph.ValidateParams(template, params); err != nil {
				t.Fatalf("selected params invalid: %v", err)
			}
		})
	}
}

func TestSelectTemplateStrengthFromText(t *testing.T) {
	decision := RoutingDecision{
		Intent:       "general",
		SearchText:   "list all strong recommendations",
		TemplateHint: string(graph.TemplateRecommendationsByStrength),
	}

	template, params, ok := SelectTemplate(decision, nil)
	if !ok {
		t.Fatalf("expected a bindable template")
	}
	if template != graph.TemplateRecommendationsByStrength {
		t.Fatalf("got template %q, want %q", template, graph.TemplateRecommendationsByStrength)
	}
	if params["strength"] != graph.StrengthStrong {
		t.Fatalf("got strength %v, want %q", params["strength"], graph.StrengthStrong)
	}
}
