package query

import (
	"context"
	"fmt"
	"strings"

	"github.com/clinigraph/backend/pkg/ai"
	"github.com/clinigraph/backend/pkg/graph"
	"github.com/clinigraph/backend/pkg/logger"
)

const (
	defaultAnswerTopN  = 8
	defaultTokenBudget = 3000
	hopExpandLimit     = 3
)

// Fixed user-facing texts for the degraded answer states. Neither involves a
// generation call. NoEvidenceMessage is transport-level text: the no-evidence
// response itself carries no answer, only the flag.
const (
	NoEvidenceMessage          = "No relevant guideline evidence was found for this question."
	InsufficientEvidenceAnswer = "The retrieved guideline evidence is insufficient to answer this question."
)

// GeneratedAnswer is the outcome of answer synthesis for one request.
type GeneratedAnswer struct {
	Answer               string
	Citations            []Citation
	NoEvidence           bool
	InsufficientEvidence bool
}

// evidenceEntry is one candidate rendered for the generation prompt together
// with the identifiers it legitimizes as citations.
type evidenceEntry struct {
	id       string
	text     string
	tokens   int
	nodeType graph.NodeType
	studyIDs []string
	// hopTypes records the node type of every hop-expanded id under this
	// entry, keyed by id.
	hopTypes map[string]graph.NodeType
}

// AnswerGenerator synthesizes a cited answer from the ranked results. The
// generation model only ever sees the evidence block built here, and every
// citation in its output is validated against that block.
type AnswerGenerator struct {
	aiClient ai.GraphAIClient
	service  graph.QueryService

	topN        int
	tokenBudget int
	countTokens func(string) int
}

type AnswerGeneratorParams struct {
	AIClient     ai.GraphAIClient
	QueryService graph.QueryService

	TopN        int
	TokenBudget int
	// CountTokens overrides the tokenizer, mainly for tests.
	CountTokens func(string) int
}

func NewAnswerGenerator(params AnswerGeneratorParams) *AnswerGenerator {
	generator := &AnswerGenerator{
		aiClient:    params.AIClient,
		service:     params.QueryService,
		topN:        params.TopN,
		tokenBudget: params.TokenBudget,
		countTokens: params.CountTokens,
	}
	if generator.topN <= 0 {
		generator.topN = defaultAnswerTopN
	}
	if generator.tokenBudget <= 0 {
		generator.tokenBudget = defaultTokenBudget
	}
	if generator.countTokens == nil {
		generator.countTokens = CountTokens
	}
	return generator
}

// Generate produces the answer for the ranked results. With zero results it
// returns the structured no-evidence response without any model call. Cited
// identifiers outside the supplied evidence block trigger one regeneration;
// a second violation degrades to the insufficient-evidence response.
func (a *AnswerGenerator) Generate(ctx context.Context, question string, history []Turn, results []RankedResult, trace *Trace) (GeneratedAnswer, error) {
	if len(results) == 0 {
		return GeneratedAnswer{NoEvidence: true}, nil
	}

	top := results
	if len(top) > a.topN {
		top = top[:a.topN]
	}

	entries := make([]evidenceEntry, 0, len(top))
	for _, result := range top {
		entries = append(entries, a.buildEntry(ctx, result, trace))
	}

	block, supplied := a.assembleBlock(entries)
	systemPrompt := fmt.Sprintf(ai.AnswerPrompt, block)

	messages := historyMessages(history)
	messages = append(messages, ai.ChatMessage{Message: question, Role: "user"})

	var (
		answer string
		err    error
	)
	if len(messages) > 1 {
		answer, err = a.aiClient.GenerateChat(ctx, messages, ai.WithSystemPrompts(systemPrompt))
	} else {
		answer, err = a.aiClient.GenerateCompletion(ctx, question, ai.WithSystemPrompts(systemPrompt))
	}
	if err != nil {
		return GeneratedAnswer{}, fmt.Errorf("generating answer: %w", err)
	}

	invalid := invalidCitations(answer, supplied)
	if len(invalid) > 0 {
		logger.Warn("Answer cited unknown nodes, regenerating", "invalid", invalid)
		retryMessages := append(messages,
			ai.ChatMessage{Message: answer, Role: "assistant"},
			ai.ChatMessage{Message: fmt.Sprintf(ai.AnswerRetryPrompt, strings.Join(invalid, ", ")), Role: "user"},
		)
		answer, err = a.aiClient.GenerateChat(ctx, retryMessages, ai.WithSystemPrompts(systemPrompt))
		if err != nil {
			return GeneratedAnswer{}, fmt.Errorf("regenerating answer: %w", err)
		}
		if invalid = invalidCitations(answer, supplied); len(invalid) > 0 {
			trace.RecordFallback("citation_validation_failed")
			return GeneratedAnswer{Answer: InsufficientEvidenceAnswer, InsufficientEvidence: true}, nil
		}
	}

	return GeneratedAnswer{
		Answer:    answer,
		Citations: buildCitations(answer, entries),
	}, nil
}

// historyMessages converts bounded conversation history into chat messages:
// the newest turns verbatim, preceded by the latest earlier summary.
func historyMessages(history []Turn) []ai.ChatMessage {
	start := len(history) - defaultContextViewTurns
	if start < 0 {
		start = 0
	}

	var messages []ai.ChatMessage
	for i := start - 1; i >= 0; i-- {
		if history[i].Summary {
			messages = append(messages, ai.ChatMessage{
				Message: "Summary of the earlier conversation: " + history[i].Text,
				Role:    "user",
			})
			break
		}
	}
	for _, turn := range history[start:] {
		role := "user"
		if turn.Role == RoleAssistant {
			role = "assistant"
		}
		text := turn.Text
		if turn.Summary {
			text = "Summary of the earlier conversation: " + text
		}
		messages = append(messages, ai.ChatMessage{Message: text, Role: role})
	}
	return messages
}

// buildEntry renders one ranked result. Recommendation entries are expanded
// one hop with their evidence and studies so the model can ground grading
// statements; a failed expansion degrades to the bare entry.
func (a *AnswerGenerator) buildEntry(ctx context.Context, result RankedResult, trace *Trace) evidenceEntry {
	node := result.Node

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] (%s) %s\n", node.ID, node.Type, node.Title)
	if node.Strength != "" {
		fmt.Fprintf(&b, "Strength: %s\n", node.Strength)
	}
	if node.Quality != "" {
		fmt.Fprintf(&b, "Evidence quality: %s\n", node.Quality)
	}
	if node.Direction != "" {
		fmt.Fprintf(&b, "Direction: %s\n", node.Direction)
	}
	if len(node.Topics) > 0 {
		fmt.Fprintf(&b, "Topics: %s\n", strings.Join(node.Topics, ", "))
	}
	if node.Summary != "" {
		fmt.Fprintf(&b, "%s\n", node.Summary)
	}

	entry := evidenceEntry{
		id:       node.ID,
		nodeType: node.Type,
		studyIDs: append([]string(nil), node.StudyIDs...),
		hopTypes: map[string]graph.NodeType{},
	}

	if node.Type == graph.NodeRecommendation && a.service != nil {
		a.expandHop(ctx, &b, &entry, graph.TemplateEvidenceForRecommendation, node.ID, trace)
		a.expandHop(ctx, &b, &entry, graph.TemplateStudiesForRecommendation, node.ID, trace)
	}

	entry.text = b.String()
	entry.tokens = a.countTokens(entry.text)
	return entry
}

func (a *AnswerGenerator) expandHop(ctx context.Context, b *strings.Builder, entry *evidenceEntry, template graph.Template, recID string, trace *Trace) {
	nodes, err := a.service.Execute(ctx, template, map[string]any{"rec_id": recID, "limit": hopExpandLimit})
	if err != nil {
		logger.Warn("Hop expansion failed", "template", template, "rec_id", recID, "err", err)
		trace.RecordFallback("hop_expansion_skipped")
		return
	}
	for _, node := range nodes {
		entry.hopTypes[node.ID] = node.Type
		if node.Type == graph.NodeStudy {
			entry.studyIDs = appendUnique(entry.studyIDs, node.ID)
		}
		label := node.Title
		if label == "" {
			label = node.Summary
		}
		fmt.Fprintf(b, "  - [%s] (%s) %s\n", node.ID, node.Type, label)
	}
}

// assembleBlock joins entries highest-ranked first until the token budget is
// exhausted. The top entry is always included so the model never sees an
// empty block. Returns the block and the set of identifiers it supplies.
func (a *AnswerGenerator) assembleBlock(entries []evidenceEntry) (string, map[string]struct{}) {
	var b strings.Builder
	supplied := make(map[string]struct{})

	used := 0
	for i, entry := range entries {
		if i > 0 && used+entry.tokens > a.tokenBudget {
			break
		}
		b.WriteString(entry.text)
		b.WriteString("\n")
		used += entry.tokens

		supplied[entry.id] = struct{}{}
		for id := range entry.hopTypes {
			supplied[id] = struct{}{}
		}
	}
	return b.String(), supplied
}

func invalidCitations(answer string, supplied map[string]struct{}) []string {
	var invalid []string
	for _, id := range ExtractCitationIDs(answer) {
		if _, ok := supplied[id]; !ok {
			invalid = append(invalid, id)
		}
	}
	return invalid
}

func buildCitations(answer string, entries []evidenceEntry) []Citation {
	byID := make(map[string]Citation, len(entries))
	for _, entry := range entries {
		byID[entry.id] = Citation{
			NodeID:             entry.id,
			NodeType:           entry.nodeType,
			SupportingStudyIDs: entry.studyIDs,
		}
		for hopID, hopType := range entry.hopTypes {
			if _, ok := byID[hopID]; !ok {
				byID[hopID] = Citation{NodeID: hopID, NodeType: hopType}
			}
		}
	}

	var citations []Citation
	for _, id := range ExtractCitationIDs(answer) {
		if citation, ok := byID[id]; ok {
			citations = append(citations, citation)
		}
	}
	return citations
}

func appendUnique(ids []string, id string) []string {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}
