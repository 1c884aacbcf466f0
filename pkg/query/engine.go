package query

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/clinigraph/backend/pkg/ai"
	"github.com/clinigraph/backend/pkg/graph"
	"github.com/clinigraph/backend/pkg/logger"
)

// Engine wires the full pipeline: routing, entity resolution, the two
// retrieval paths, rank fusion, reranking and answer synthesis. It is
// stateless across requests; conversation state lives in ContextManager.
type Engine struct {
	router   *Router
	resolver *Resolver
	vector   *VectorRetriever
	graphRet *GraphRetriever
	answerer *AnswerGenerator

	fusionK float64
	boosts  BoostTable
}

type EngineParams struct {
	AIClient     ai.GraphAIClient
	QueryService graph.QueryService
	VectorIndex  graph.VectorIndex
	Directory    graph.Directory

	VectorTopK           int
	FusionK              float64
	AnswerTopN           int
	AnswerTokenBudget    int
	EntityVectorFallback bool
	BoostTable           *BoostTable
}

func NewEngine(params EngineParams) *Engine {
	boosts := DefaultBoostTable()
	if params.BoostTable != nil {
		boosts = *params.BoostTable
	}
	fusionK := params.FusionK
	if fusionK <= 0 {
		fusionK = DefaultRRFK
	}

	return &Engine{
		router: NewRouter(params.AIClient),
		resolver: NewResolver(ResolverParams{
			Directory:      params.Directory,
			Index:          params.VectorIndex,
			AIClient:       params.AIClient,
			VectorFallback: params.EntityVectorFallback,
		}),
		vector:   NewVectorRetriever(params.AIClient, params.VectorIndex, params.VectorTopK),
		graphRet: NewGraphRetriever(params.QueryService),
		answerer: NewAnswerGenerator(AnswerGeneratorParams{
			AIClient:     params.AIClient,
			QueryService: params.QueryService,
			TopN:         params.AnswerTopN,
			TokenBudget:  params.AnswerTokenBudget,
		}),
		fusionK: fusionK,
		boosts:  boosts,
	}
}

type answerConfig struct {
	forcedTemplate graph.Template
	forcedParams   map[string]any
	hasForced      bool
}

// AnswerOption adjusts a single Answer call.
type AnswerOption func(*answerConfig)

// WithTemplate forces the structural path to run the named template with the
// given parameters instead of selecting one from resolved entities. Template
// and parameters are validated before any retrieval begins.
func WithTemplate(name string, params map[string]any) AnswerOption {
	return func(c *answerConfig) {
		c.forcedTemplate = graph.Template(name)
		c.forcedParams = params
		c.hasForced = true
	}
}

// Answer runs the pipeline for one question. The history slice is read only.
//
// Failure handling follows one rule: a failed step degrades and is recorded
// when another step can still produce a sound response, and fails the request
// otherwise. Caller mistakes (empty question, bad forced template) fail
// immediately as client errors before any retrieval runs.
func (e *Engine) Answer(ctx context.Context, question string, history []Turn, opts ...AnswerOption) (*Response, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	var cfg answerConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.hasForced {
		if err := graph.ValidateParams(cfg.forcedTemplate, cfg.forcedParams); err != nil {
			return nil, err
		}
	}

	trace := NewTrace()
	contextText := RenderContext(history, 0)

	stageStart := time.Now()
	decision := e.router.Route(ctx, question, contextText, trace)
	trace.RecordTiming("routing", time.Since(stageStart).Milliseconds())

	resolved, template, params := e.prepareGraphPath(ctx, &decision, cfg, trace)
	runGraph := template != ""
	runVector := decision.QueryType != QueryTypeGraph
	if !runVector && !runGraph {
		// Structural-only routing with no runnable template degrades to
		// semantic search over the routed text.
		trace.RecordFallback("graph_only_degraded_to_vector")
		runVector = true
	}

	vectorCands, graphCands, err := e.retrieve(ctx, decision, template, params, runVector, runGraph, trace)
	if err != nil {
		return nil, err
	}

	stageStart = time.Now()
	fused := FuseRRF([][]Candidate{vectorCands, graphCands}, e.fusionK)
	ranked := Rerank(fused, e.boosts, entityTerms(decision, resolved))
	trace.RecordTiming("rank", time.Since(stageStart).Milliseconds())

	if ctx.Err() != nil {
		return nil, fmt.Errorf("%w: %v", ErrInterrupted, ctx.Err())
	}

	stageStart = time.Now()
	generated, err := e.answerer.Generate(ctx, question, history, ranked, trace)
	trace.RecordTiming("generate", time.Since(stageStart).Milliseconds())
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", ErrInterrupted, ctx.Err())
		}
		// Ranked results are still sound without an answer.
		logger.Error("Answer generation failed, returning results only", "err", err)
		trace.RecordFallback("answer_generation_failed")
		generated = GeneratedAnswer{}
	}

	return &Response{
		Results:              ranked,
		Answer:               generated.Answer,
		Citations:            generated.Citations,
		NoEvidence:           generated.NoEvidence,
		InsufficientEvidence: generated.InsufficientEvidence,
		Reasoning:            trace.Reasoning(decision),
	}, nil
}

// prepareGraphPath resolves entities and selects the template for the
// structural path. An empty template means the path does not run and the
// reason is on the trace.
func (e *Engine) prepareGraphPath(ctx context.Context, decision *RoutingDecision, cfg answerConfig, trace *Trace) ([]ResolvedEntity, graph.Template, map[string]any) {
	if cfg.hasForced {
		resolved := e.resolveEntities(ctx, *decision, trace)
		return resolved, cfg.forcedTemplate, cfg.forcedParams
	}
	if decision.QueryType == QueryTypeVector {
		return nil, "", nil
	}

	resolved := e.resolveEntities(ctx, *decision, trace)
	template, params, ok := SelectTemplate(*decision, resolved)
	if !ok {
		trace.RecordFallback("graph_path_skipped_no_template")
		return resolved, "", nil
	}
	return resolved, template, params
}

func (e *Engine) resolveEntities(ctx context.Context, decision RoutingDecision, trace *Trace) []ResolvedEntity {
	stageStart := time.Now()
	resolved, err := e.resolver.Resolve(ctx, decision.Entities)
	trace.RecordTiming("resolve", time.Since(stageStart).Milliseconds())
	if err != nil {
		logger.Warn("Entity resolution failed", "err", err)
		trace.RecordFallback("entity_resolution_failed")
		return nil
	}
	return resolved
}

// retrieve runs the selected paths concurrently. The paths are side-effect
// free; one failing does not cancel the other. A failed path degrades when
// the other delivered, and fails the request when it was the only one.
func (e *Engine) retrieve(ctx context.Context, decision RoutingDecision, template graph.Template, params map[string]any, runVector, runGraph bool, trace *Trace) ([]Candidate, []Candidate, error) {
	var (
		group       errgroup.Group
		vectorCands []Candidate
		graphCands  []Candidate
		vectorErr   error
		graphErr    error
	)

	if runVector {
		group.Go(func() error {
			start := time.Now()
			vectorCands, vectorErr = e.vector.Retrieve(ctx, decision)
			trace.RecordTiming("vector", time.Since(start).Milliseconds())
			if vectorErr == nil {
				trace.RecordPath(PathVector)
			}
			return nil
		})
	}
	if runGraph {
		group.Go(func() error {
			start := time.Now()
			graphCands, graphErr = e.graphRet.Retrieve(ctx, template, params)
			trace.RecordTiming("graph", time.Since(start).Milliseconds())
			if graphErr == nil {
				trace.RecordPath(PathGraph)
				trace.RecordTemplate(string(template))
			}
			return nil
		})
	}
	_ = group.Wait()

	if graphErr != nil && IsClientError(graphErr) {
		return nil, nil, graphErr
	}
	if ctx.Err() != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInterrupted, ctx.Err())
	}

	switch {
	case vectorErr != nil && graphErr != nil:
		return nil, nil, fmt.Errorf("%w: vector: %v; graph: %v", ErrUpstreamUnavailable, vectorErr, graphErr)
	case vectorErr != nil && !runGraph:
		return nil, nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, vectorErr)
	case graphErr != nil && !runVector:
		return nil, nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, graphErr)
	case vectorErr != nil:
		logger.Warn("Vector path failed, continuing with graph results", "err", vectorErr)
		trace.RecordFallback("vector_path_failed")
		vectorCands = nil
	case graphErr != nil:
		logger.Warn("Graph path failed, continuing with vector results", "err", graphErr)
		trace.RecordFallback("graph_path_failed")
		graphCands = nil
	}
	return vectorCands, graphCands, nil
}

// entityTerms collects the text terms used for topic-match boosting: routed
// mentions plus resolved node titles and topics.
func entityTerms(decision RoutingDecision, resolved []ResolvedEntity) []string {
	var terms []string
	for _, mentions := range decision.Entities {
		terms = append(terms, mentions...)
	}
	for _, entity := range resolved {
		terms = append(terms, entity.Node.Title)
		terms = append(terms, entity.Node.Topics...)
	}
	return terms
}
