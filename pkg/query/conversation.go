package query

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/clinigraph/backend/pkg/ai"
	"github.com/clinigraph/backend/pkg/logger"
)

const (
	defaultContextTokenBudget = 2000
	defaultKeepRecentTurns    = 4
	defaultContextViewTurns   = 6
)

// ContextManager bounds one session's conversation history. When the history
// grows past its token budget, the oldest block of turns is compacted into a
// single summary turn via a small generation call. The newest turns are never
// compacted, and a block that is already a single summary turn is left alone,
// so compacting twice in a row changes nothing.
type ContextManager struct {
	aiClient ai.GraphAIClient

	mu    sync.Mutex
	turns []Turn

	tokenBudget int
	keepRecent  int
	countTokens func(string) int
}

type ContextManagerParams struct {
	AIClient ai.GraphAIClient

	TokenBudget int
	KeepRecent  int
	// CountTokens overrides the tokenizer, mainly for tests.
	CountTokens func(string) int
}

func NewContextManager(params ContextManagerParams) *ContextManager {
	manager := &ContextManager{
		aiClient:    params.AIClient,
		tokenBudget: params.TokenBudget,
		keepRecent:  params.KeepRecent,
		countTokens: params.CountTokens,
	}
	if manager.tokenBudget <= 0 {
		manager.tokenBudget = defaultContextTokenBudget
	}
	if manager.keepRecent <= 0 {
		manager.keepRecent = defaultKeepRecentTurns
	}
	if manager.countTokens == nil {
		manager.countTokens = CountTokens
	}
	return manager
}

// Append adds a turn and compacts the history if it exceeds the token budget.
// A failed compaction keeps the full history; the next append tries again.
func (m *ContextManager) Append(ctx context.Context, turn Turn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.turns = append(m.turns, turn)
	if m.totalTokens() <= m.tokenBudget {
		return
	}
	m.compact(ctx)
}

// Turns returns a copy of the current history, oldest first.
func (m *ContextManager) Turns() []Turn {
	m.mu.Lock()
	defer m.mu.Unlock()
	turns := make([]Turn, len(m.turns))
	copy(turns, m.turns)
	return turns
}

// ContextText renders a bounded view of the history for prompt injection.
func (m *ContextManager) ContextText(maxTurns int) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return RenderContext(m.turns, maxTurns)
}

// RenderContext renders at most maxTurns of the newest turns as prompt text,
// preceded by the latest earlier summary turn if one exists.
func RenderContext(turns []Turn, maxTurns int) string {
	if maxTurns <= 0 {
		maxTurns = defaultContextViewTurns
	}

	start := len(turns) - maxTurns
	if start < 0 {
		start = 0
	}

	var b strings.Builder
	for i := start - 1; i >= 0; i-- {
		if turns[i].Summary {
			fmt.Fprintf(&b, "summary: %s\n", turns[i].Text)
			break
		}
	}
	for _, turn := range turns[start:] {
		fmt.Fprintf(&b, "%s: %s\n", turn.Role, turn.Text)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m *ContextManager) totalTokens() int {
	total := 0
	for _, turn := range m.turns {
		total += m.countTokens(turn.Text)
	}
	return total
}

// compact replaces the oldest block, everything except the keepRecent newest
// turns, with one summary turn. Callers hold the mutex.
func (m *ContextManager) compact(ctx context.Context) {
	if len(m.turns) <= m.keepRecent {
		return
	}

	block := m.turns[:len(m.turns)-m.keepRecent]
	if len(block) == 1 && block[0].Summary {
		return
	}

	var b strings.Builder
	for _, turn := range block {
		fmt.Fprintf(&b, "%s: %s\n", turn.Role, turn.Text)
	}

	summary, err := m.aiClient.GenerateCompletion(ctx, fmt.Sprintf(ai.SummaryPrompt, b.String()))
	if err != nil {
		logger.Warn("History compaction failed, keeping full history", "err", err)
		return
	}

	summaryTurn := Turn{
		Role:      RoleSummary,
		Text:      strings.TrimSpace(summary),
		Timestamp: block[len(block)-1].Timestamp,
		Summary:   true,
	}
	m.turns = append([]Turn{summaryTurn}, m.turns[len(m.turns)-m.keepRecent:]...)
}
