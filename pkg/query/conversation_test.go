package query

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func turnAt(role, text string, minute int) Turn {
	return Turn{Role: role, Text: text, Timestamp: time.Date(2026, 3, 1, 10, minute, 0, 0, time.UTC)}
}

func TestAppendCompactsOldestBlock(t *testing.T) {
	aiClient := &fakeAI{completions: []string{"earlier the user asked about statins"}}
	manager := NewContextManager(ContextManagerParams{
		AIClient:    aiClient,
		TokenBudget: 30,
		KeepRecent:  2,
		CountTokens: func(string) int { return 10 },
	})

	for i := 0; i < 4; i++ {
		manager.Append(context.Background(), turnAt(RoleUser, fmt.Sprintf("question %d", i), i))
	}

	turns := manager.Turns()
	if len(turns) != 3 {
		t.Fatalf("got %d turns, want 3 (summary + 2 recent)", len(turns))
	}
	if !turns[0].Summary || turns[0].Role != RoleSummary {
		t.Fatalf("oldest turn is not a summary: %+v", turns[0])
	}
	if turns[0].Text != "earlier the user asked about statins" {
		t.Fatalf("got summary %q", turns[0].Text)
	}
	if turns[1].Text != "question 2" || turns[2].Text != "question 3" {
		t.Fatalf("recent turns were compacted: %+v", turns[1:])
	}
}

func TestCompactionIdempotentOnSummary(t *testing.T) {
	// After one compaction the oldest block is a single summary turn;
	// staying over budget must not re-summarize it.
	aiClient := &fakeAI{completions: []string{"summary one"}}
	manager := NewContextManager(ContextManagerParams{
		AIClient:    aiClient,
		TokenBudget: 10,
		KeepRecent:  2,
		CountTokens: func(string) int { return 10 },
	})

	for i := 0; i < 3; i++ {
		manager.Append(context.Background(), turnAt(RoleUser, fmt.Sprintf("q%d", i), i))
	}
	if aiClient.completionCalls != 1 {
		t.Fatalf("got %d summarize calls, want 1", aiClient.completionCalls)
	}

	turns := manager.Turns()
	if len(turns) != 3 || !turns[0].Summary {
		t.Fatalf("unexpected history shape: %+v", turns)
	}
}

func TestCompactionFailureKeepsHistory(t *testing.T) {
	aiClient := &fakeAI{completionErr: fmt.Errorf("model down")}
	manager := NewContextManager(ContextManagerParams{
		AIClient:    aiClient,
		TokenBudget: 10,
		KeepRecent:  1,
		CountTokens: func(string) int { return 10 },
	})

	manager.Append(context.Background(), turnAt(RoleUser, "q0", 0))
	manager.Append(context.Background(), turnAt(RoleAssistant, "a0", 1))

	turns := manager.Turns()
	if len(turns) != 2 {
		t.Fatalf("failed compaction dropped turns: got %d, want 2", len(turns))
	}
	for _, turn := range turns {
		if turn.Summary {
			t.Fatalf("failed compaction produced a summary turn")
		}
	}
}

func TestRenderContextBoundsTurns(t *testing.T) {
	turns := []Turn{
		{Role: RoleSummary, Text: "older context", Summary: true},
		turnAt(RoleUser, "q1", 1),
		turnAt(RoleAssistant, "a1", 2),
		turnAt(RoleUser, "q2", 3),
	}

	text := RenderContext(turns, 2)
	want := "summary: older context\nassistant: a1\nuser: q2"
	if text != want {
		t.Fatalf("got %q, want %q", text, want)
	}
}

func TestRenderContextEmptyHistory(t *testing.T) {
	if text := RenderContext(nil, 4); text != "" {
		t.Fatalf("got %q, want empty", text)
	}
}
