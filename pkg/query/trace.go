package query

import (
	"sort"
	"sync"
)

// Trace collects reasoning metadata while a request moves through the
// pipeline. Both retrieval paths write to it concurrently.
type Trace struct {
	mu        sync.Mutex
	paths     map[SourcePath]struct{}
	template  string
	fallbacks []string
	timings   map[string]int64
}

func NewTrace() *Trace {
	return &Trace{
		paths:   make(map[SourcePath]struct{}),
		timings: make(map[string]int64),
	}
}

// RecordPath marks a retrieval path as having produced candidates.
func (t *Trace) RecordPath(path SourcePath) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.paths[path] = struct{}{}
}

// RecordTemplate notes the structural template executed for this request.
func (t *Trace) RecordTemplate(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.template = name
}

// RecordFallback notes a degraded step; reasons surface verbatim in the
// response so operators can see why a request took the path it did.
func (t *Trace) RecordFallback(reason string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.fallbacks = append(t.fallbacks, reason)
}

// RecordTiming stores the duration of a pipeline stage in milliseconds.
func (t *Trace) RecordTiming(stage string, ms int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.timings[stage] = ms
}

// Reasoning assembles the trace into the response metadata block.
func (t *Trace) Reasoning(decision RoutingDecision) Reasoning {
	t.mu.Lock()
	defer t.mu.Unlock()

	paths := make([]SourcePath, 0, len(t.paths))
	for p := range t.paths {
		paths = append(paths, p)
	}
	sort.Slice(paths, func(i, j int) bool { return paths[i] < paths[j] })

	timings := make(map[string]int64, len(t.timings))
	for k, v := range t.timings {
		timings[k] = v
	}

	fallbacks := make([]string, len(t.fallbacks))
	copy(fallbacks, t.fallbacks)

	return Reasoning{
		Routing:            decision,
		PathsUsed:          paths,
		TemplateUsed:       t.template,
		TimingMs:           timings,
		FallbacksTriggered: fallbacks,
	}
}
