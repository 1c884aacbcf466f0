package query

import (
	"time"

	"github.com/clinigraph/backend/pkg/graph"
)

// QueryType selects which retrieval paths run for a question.
type QueryType string

const (
	QueryTypeVector QueryType = "VECTOR"
	QueryTypeGraph  QueryType = "GRAPH"
	QueryTypeHybrid QueryType = "HYBRID"
)

// SourcePath identifies the retrieval path that surfaced a candidate.
type SourcePath string

const (
	PathVector SourcePath = "vector"
	PathGraph  SourcePath = "graph"
)

// RoutingDecision is the validated classification of a question into a
// retrieval strategy. It is produced once per request and is immutable; both
// retrieval paths consume it. Entity mentions reach the graph store only as
// bound parameter values, never as query text.
type RoutingDecision struct {
	QueryType    QueryType           `json:"query_type"`
	Intent       string              `json:"intent"`
	Entities     map[string][]string `json:"entities"`
	TemplateHint string              `json:"template_hint,omitempty"`
	SearchText   string              `json:"search_text"`
	Confidence   float64             `json:"confidence"`
}

// Candidate is a graph node surfaced by one retrieval path before fusion.
// Candidates live for a single retrieval call.
type Candidate struct {
	Node       graph.Node `json:"node"`
	RawScore   float64    `json:"raw_score"`
	SourcePath SourcePath `json:"source_path"`
	RankInPath int        `json:"rank_in_path"`
}

// FusedResult is one node after rank fusion. At most one FusedResult exists
// per node identifier.
type FusedResult struct {
	Node       graph.Node   `json:"node"`
	FusedScore float64      `json:"fused_score"`
	Paths      []SourcePath `json:"paths"`
	// BestRank is the node's position in whichever path ranked it highest,
	// used as the tie-break for equal fused scores.
	BestRank int `json:"best_rank"`
}

// RankedResult is a FusedResult after deterministic reranking.
type RankedResult struct {
	FusedResult
	FinalScore float64 `json:"final_score"`
}

// Citation links an answer assertion back to a graph node and the studies
// supporting it. Citations only ever reference nodes from the candidate set
// supplied to generation.
type Citation struct {
	NodeID             string         `json:"node_id"`
	NodeType           graph.NodeType `json:"node_type"`
	SupportingStudyIDs []string       `json:"supporting_study_ids,omitempty"`
}

// Conversation turn roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSummary   = "summary"
)

// Turn is one conversation turn. Turns marked as summaries replace an older
// compacted block and are never compacted again on their own.
type Turn struct {
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	Summary   bool      `json:"summary,omitempty"`
}

// Reasoning explains how a response was produced.
type Reasoning struct {
	Routing            RoutingDecision  `json:"routing"`
	PathsUsed          []SourcePath     `json:"paths_used"`
	TemplateUsed       string           `json:"template_used,omitempty"`
	TimingMs           map[string]int64 `json:"timing_ms"`
	FallbacksTriggered []string         `json:"fallbacks_triggered,omitempty"`
}

// Response is the result of one Answer call.
type Response struct {
	Results              []RankedResult `json:"results"`
	Answer               string         `json:"answer,omitempty"`
	Citations            []Citation     `json:"citations"`
	NoEvidence           bool           `json:"no_evidence,omitempty"`
	InsufficientEvidence bool           `json:"insufficient_evidence,omitempty"`
	Reasoning            Reasoning      `json:"reasoning"`
}
