package graph

// NodeType identifies the kind of a knowledge graph node.
type NodeType string

const (
	NodeRecommendation NodeType = "recommendation"
	NodeEvidence       NodeType = "evidence"
	NodeStudy          NodeType = "study"
	NodeCondition      NodeType = "condition"
	NodeMedication     NodeType = "medication"
)

// Status is the lifecycle state of a guideline node. Superseded and retired
// nodes must never surface in ranked results.
type Status string

const (
	StatusActive     Status = "active"
	StatusSuperseded Status = "superseded"
	StatusRetired    Status = "retired"
)

// Strength tiers for recommendations.
const (
	StrengthStrong      = "strong"
	StrengthConditional = "conditional"
	StrengthWeak        = "weak"
)

// Evidence quality tiers.
const (
	QualityHigh     = "high"
	QualityModerate = "moderate"
	QualityLow      = "low"
	QualityVeryLow  = "very_low"
)

// Node is a projection of a knowledge graph node carrying the attributes the
// ranking pipeline consumes. Fields that do not apply to a node type are left
// zero (a study has no recommendation strength).
type Node struct {
	ID        string   `json:"id"`
	Type      NodeType `json:"type"`
	Title     string   `json:"title"`
	Summary   string   `json:"summary,omitempty"`
	Status    Status   `json:"status,omitempty"`
	Strength  string   `json:"strength,omitempty"`
	Quality   string   `json:"quality,omitempty"`
	Direction string   `json:"direction,omitempty"`
	Topics    []string `json:"topics,omitempty"`
	StudyIDs  []string `json:"study_ids,omitempty"`
}

// Active reports whether the node may appear in ranked results.
func (n Node) Active() bool {
	return n.Status == "" || n.Status == StatusActive
}

// Collection names an embedded node collection in the vector index.
type Collection string

const (
	CollectionRecommendations Collection = "recommendations"
	CollectionEvidence        Collection = "evidence"
	CollectionStudies         Collection = "studies"
)

// Hit is a single nearest-neighbor match from the vector index.
type Hit struct {
	Node  Node
	Score float64
}
