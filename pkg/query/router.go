package query

import (
	"context"
	"fmt"
	"strings"

	"github.com/clinigraph/backend/pkg/ai"
	"github.com/clinigraph/backend/pkg/graph"
	"github.com/clinigraph/backend/pkg/logger"
)

// maxRoutingRetries bounds how often an invalid routing response is retried
// before falling back to the conservative default decision.
const maxRoutingRetries = 2

var validCategories = map[string]struct{}{
	"condition":      {},
	"medication":     {},
	"recommendation": {},
	"study":          {},
}

var validIntents = map[string]struct{}{
	"treatment": {},
	"dosing":    {},
	"evidence":  {},
	"mechanism": {},
	"study":     {},
	"general":   {},
}

// routedEntity is one entity category in the routing wire format. A list of
// category objects keeps the JSON schema closed; a free-keyed map would not
// survive strict schema validation.
type routedEntity struct {
	Category string   `json:"category" jsonschema_description:"Entity category: condition, medication, recommendation or study"`
	Mentions []string `json:"mentions" jsonschema_description:"Verbatim entity mentions from the question"`
}

type routedDecision struct {
	QueryType    string         `json:"query_type" jsonschema_description:"One of VECTOR, GRAPH or HYBRID"`
	Intent       string         `json:"intent" jsonschema_description:"One of treatment, dosing, evidence, mechanism, study or general"`
	Entities     []routedEntity `json:"entities" jsonschema_description:"Entity mentions grouped by category"`
	TemplateHint string         `json:"template_hint" jsonschema_description:"Structural query template name, or empty"`
	SearchText   string         `json:"search_text" jsonschema_description:"Short sentence capturing the question for embedding search"`
	Confidence   float64        `json:"confidence" jsonschema_description:"Certainty of the chosen query_type, 0 to 1"`
}

// Router classifies a question into a retrieval strategy via a single
// structured model call.
type Router struct {
	aiClient ai.GraphAIClient
}

func NewRouter(aiClient ai.GraphAIClient) *Router {
	return &Router{aiClient: aiClient}
}

// Route classifies the question. A routing failure never fails the request:
// after maxRoutingRetries invalid or failed attempts it returns the default
// HYBRID decision and records the fallback on the trace.
func (r *Router) Route(ctx context.Context, question string, contextText string, trace *Trace) RoutingDecision {
	prompt := fmt.Sprintf(ai.RoutingPrompt, contextText, question)

	var lastErr error
	for attempt := 0; attempt <= maxRoutingRetries; attempt++ {
		if ctx.Err() != nil {
			break
		}

		attemptPrompt := prompt
		if lastErr != nil {
			attemptPrompt += fmt.Sprintf(ai.RoutingRetryPrompt, lastErr.Error())
		}

		var wire routedDecision
		err := r.aiClient.GenerateCompletionWithFormat(ctx, "routing_decision",
			"Classification of a clinical question into a retrieval strategy", attemptPrompt, &wire)
		if err == nil {
			decision, vErr := buildDecision(wire, trace)
			if vErr == nil {
				return decision
			}
			err = vErr
		}

		logger.Warn("Routing attempt failed", "attempt", attempt+1, "err", err)
		lastErr = err
	}

	trace.RecordFallback("routing_default")
	return DefaultDecision(question)
}

// DefaultDecision is the conservative fallback when routing is unavailable:
// run both paths on the raw question with zero confidence.
func DefaultDecision(question string) RoutingDecision {
	return RoutingDecision{
		QueryType:  QueryTypeHybrid,
		Intent:     "general",
		Entities:   map[string][]string{},
		SearchText: question,
		Confidence: 0,
	}
}

// buildDecision validates the wire response and converts it into the internal
// decision form. Malformed query types, intents or empty search text are
// retryable errors; an unknown template hint is merely dropped since the
// pipeline can select a template from resolved entities on its own.
func buildDecision(wire routedDecision, trace *Trace) (RoutingDecision, error) {
	queryType := QueryType(strings.ToUpper(strings.TrimSpace(wire.QueryType)))
	switch queryType {
	case QueryTypeVector, QueryTypeGraph, QueryTypeHybrid:
	default:
		return RoutingDecision{}, fmt.Errorf("unknown query_type %q", wire.QueryType)
	}

	intent := strings.ToLower(strings.TrimSpace(wire.Intent))
	if _, ok := validIntents[intent]; !ok {
		return RoutingDecision{}, fmt.Errorf("unknown intent %q", wire.Intent)
	}

	searchText := strings.TrimSpace(wire.SearchText)
	if searchText == "" {
		return RoutingDecision{}, fmt.Errorf("empty search_text")
	}

	entities := make(map[string][]string)
	for _, entity := range wire.Entities {
		category := strings.ToLower(strings.TrimSpace(entity.Category))
		if _, ok := validCategories[category]; !ok {
			continue
		}
		for _, mention := range entity.Mentions {
			mention = strings.TrimSpace(mention)
			if mention != "" {
				entities[category] = append(entities[category], mention)
			}
		}
	}

	templateHint := strings.TrimSpace(wire.TemplateHint)
	if templateHint != "" {
		if _, ok := graph.LookupTemplate(templateHint); !ok {
			trace.RecordFallback("template_hint_dropped")
			templateHint = ""
		}
	}

	confidence := wire.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	return RoutingDecision{
		QueryType:    queryType,
		Intent:       intent,
		Entities:     entities,
		TemplateHint: templateHint,
		SearchText:   searchText,
		Confidence:   confidence,
	}, nil
}
