package query

import (
	"context"
	"fmt"

	"github.com/clinigraph/backend/pkg/ai"
	"github.com/clinigraph/backend/pkg/graph"
)

// fakeAI is a scriptable GraphAIClient for pipeline tests.
type fakeAI struct {
	completions     []string
	completionErr   error
	completionCalls int
	prompts         []string

	formatFn    func(name, prompt string, out any) error
	formatCalls int

	embedding  []float32
	embedErr   error
	embedCalls int
}

func (f *fakeAI) GenerateCompletion(ctx context.Context, prompt string, opts ...ai.GenerateOption) (string, error) {
	f.completionCalls++
	f.prompts = append(f.prompts, prompt)
	if f.completionErr != nil {
		return "", f.completionErr
	}
	if len(f.completions) == 0 {
		return "", fmt.Errorf("no scripted completion left")
	}
	next := f.completions[0]
	f.completions = f.completions[1:]
	return next, nil
}

func (f *fakeAI) GenerateCompletionWithFormat(ctx context.Context, name string, description string, prompt string, out any, opts ...ai.GenerateOption) error {
	f.formatCalls++
	if f.formatFn == nil {
		return fmt.Errorf("no scripted format response")
	}
	return f.formatFn(name, prompt, out)
}

func (f *fakeAI) GenerateChat(ctx context.Context, messages []ai.ChatMessage, opts ...ai.GenerateOption) (string, error) {
	f.completionCalls++
	if len(messages) > 0 {
		f.prompts = append(f.prompts, messages[len(messages)-1].Message)
	}
	if f.completionErr != nil {
		return "", f.completionErr
	}
	if len(f.completions) == 0 {
		return "", fmt.Errorf("no scripted completion left")
	}
	next := f.completions[0]
	f.completions = f.completions[1:]
	return next, nil
}

func (f *fakeAI) GenerateEmbedding(ctx context.Context, input []byte) ([]float32, error) {
	f.embedCalls++
	if f.embedErr != nil {
		return nil, f.embedErr
	}
	if f.embedding != nil {
		return f.embedding, nil
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

func (f *fakeAI) ResetMetrics()               {}
func (f *fakeAI) GetMetrics() ai.ModelMetrics { return ai.ModelMetrics{} }

// fakeQueryService records template executions and serves scripted nodes.
type fakeQueryService struct {
	nodes map[graph.Template][]graph.Node
	err   error
	calls []graph.Template
}

func (f *fakeQueryService) Execute(ctx context.Context, template graph.Template, params map[string]any) ([]graph.Node, error) {
	if err := graph.ValidateParams(template, params); err != nil {
		return nil, err
	}
	f.calls = append(f.calls, template)
	if f.err != nil {
		return nil, f.err
	}
	return f.nodes[template], nil
}

// fakeVectorIndex serves scripted hits per collection.
type fakeVectorIndex struct {
	hits  map[graph.Collection][]graph.Hit
	err   error
	calls []graph.Collection
}

func (f *fakeVectorIndex) Search(ctx context.Context, collection graph.Collection, vector []float32, topK int) ([]graph.Hit, error) {
	f.calls = append(f.calls, collection)
	if f.err != nil {
		return nil, f.err
	}
	hits := f.hits[collection]
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

// fakeDirectory resolves scripted ids and names.
type fakeDirectory struct {
	byID   map[string]graph.Node
	byName map[string][]graph.Node
	err    error
}

func (f *fakeDirectory) GetNode(ctx context.Context, id string) (*graph.Node, error) {
	if f.err != nil {
		return nil, f.err
	}
	if node, ok := f.byID[id]; ok {
		return &node, nil
	}
	return nil, nil
}

func (f *fakeDirectory) FindNodesByName(ctx context.Context, category graph.NodeType, mention string) ([]graph.Node, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.byName[string(category)+"/"+mention], nil
}

func recNode(id string) graph.Node {
	return graph.Node{ID: id, Type: graph.NodeRecommendation, Title: "Recommendation " + id, Status: graph.StatusActive}
}
