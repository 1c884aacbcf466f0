package query

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
)

func scriptedRouting(responses ...routedDecision) func(string, string, any) error {
	i := 0
	return func(name, prompt string, out any) error {
		if i >= len(responses) {
			return fmt.Errorf("no scripted routing response left")
		}
		data, _ := json.Marshal(responses[i])
		i++
		return json.Unmarshal(data, out)
	}
}

func TestRouteValidDecision(t *testing.T) {
	aiClient := &fakeAI{formatFn: scriptedRouting(routedDecision{
		QueryType:  "graph",
		Intent:     "Treatment",
		Entities:   []routedEntity{{Category: "Condition", Mentions: []string{"hypertension"}}},
		SearchText: "first line treatment for hypertension",
		Confidence: 0.9,
	})}

	decision := NewRouter(aiClient).Route(context.Background(), "q", "", NewTrace())
	if decision.QueryType != QueryTypeGraph {
		t.Fatalf("got query type %q, want %q", decision.QueryType, QueryTypeGraph)
	}
	if decision.Intent != "treatment" {
		t.Fatalf("got intent %q, want %q", decision.Intent, "treatment")
	}
	if got := decision.Entities["condition"]; len(got) != 1 || got[0] != "hypertension" {
		t.Fatalf("got condition mentions %v, want [hypertension]", got)
	}
}

func TestRouteRetriesInvalidThenSucceeds(t *testing.T) {
	aiClient := &fakeAI{formatFn: scriptedRouting(
		routedDecision{QueryType: "SOMETHING", Intent: "general", SearchText: "x"},
		routedDecision{QueryType: "VECTOR", Intent: "general", SearchText: "x"},
	)}

	decision := NewRouter(aiClient).Route(context.Background(), "q", "", NewTrace())
	if decision.QueryType != QueryTypeVector {
		t.Fatalf("got query type %q, want %q", decision.QueryType, QueryTypeVector)
	}
	if aiClient.formatCalls != 2 {
		t.Fatalf("got %d routing calls, want 2", aiClient.formatCalls)
	}
}

func TestRouteFallsBackToDefaultAfterRetries(t *testing.T) {
	aiClient := &fakeAI{formatFn: func(name, prompt string, out any) error {
		return fmt.Errorf("model unavailable")
	}}

	trace := NewTrace()
	decision := NewRouter(aiClient).Route(context.Background(), "what helps with migraines", "", trace)

	if aiClient.formatCalls != maxRoutingRetries+1 {
		t.Fatalf("got %d routing calls, want %d", aiClient.formatCalls, maxRoutingRetries+1)
	}
	if decision.QueryType != QueryTypeHybrid {
		t.Fatalf("got query type %q, want %q", decision.QueryType, QueryTypeHybrid)
	}
	if decision.Confidence != 0 {
		t.Fatalf("got confidence %f, want 0", decision.Confidence)
	}
	if decision.SearchText != "what helps with migraines" {
		t.Fatalf("got search text %q, want the question", decision.SearchText)
	}

	reasoning := trace.Reasoning(decision)
	if len(reasoning.FallbacksTriggered) != 1 || reasoning.FallbacksTriggered[0] != "routing_default" {
		t.Fatalf("got fallbacks %v, want [routing_default]", reasoning.FallbacksTriggered)
	}
}

func TestRouteEmptySearchTextRetried(t *testing.T) {
	aiClient := &fakeAI{formatFn: scriptedRouting(
		routedDecision{QueryType: "HYBRID", Intent: "general", SearchText: "  "},
		routedDecision{QueryType: "HYBRID", Intent: "general", SearchText: "fixed"},
	)}

	decision := NewRouter(aiClient).Route(context.Background(), "q", "", NewTrace())
	if decision.SearchText != "fixed" {
		t.Fatalf("got search text %q, want %q", decision.SearchText, "fixed")
	}
}

func TestRouteDropsUnknownTemplateHint(t *testing.T) {
	aiClient := &fakeAI{formatFn: scriptedRouting(routedDecision{
		QueryType:    "HYBRID",
		Intent:       "general",
		SearchText:   "x",
		TemplateHint: "drop_all_tables",
	})}

	trace := NewTrace()
	decision := NewRouter(aiClient).Route(context.Background(), "q", "", trace)
	if decision.TemplateHint != "" {
		t.Fatalf("got template hint %q, want empty", decision.TemplateHint)
	}
	if aiClient.formatCalls != 1 {
		t.Fatalf("got %d routing calls, want 1 (hint drop is not a retry)", aiClient.formatCalls)
	}
}

func TestRouteIgnoresUnknownEntityCategories(t *testing.T) {
	aiClient := &fakeAI{formatFn: scriptedRouting(routedDecision{
		QueryType:  "HYBRID",
		Intent:     "general",
		SearchText: "x",
		Entities: []routedEntity{
			{Category: "medication", Mentions: []string{"metformin"}},
			{Category: "spaceship", Mentions: []string{"enterprise"}},
		},
	})}

	decision := NewRouter(aiClient).Route(context.Background(), "q", "", NewTrace())
	if len(decision.Entities) != 1 {
		t.Fatalf("got %d entity categories, want 1", len(decision.Entities))
	}
	if _, ok := decision.Entities["spaceship"]; ok {
		t.Fatalf("unknown category survived validation")
	}
}
