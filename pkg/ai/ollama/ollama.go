package ollama

import (
	"net/http"
	"net/url"
	"sync"

	"github.com/clinigraph/backend/pkg/ai"

	"github.com/ollama/ollama/api"
	"golang.org/x/sync/semaphore"
)

// GraphOllamaClient implements the ai.GraphAIClient interface using Ollama as
// the backend. It supports text generation, structured output, and embeddings
// via locally-hosted models.
type GraphOllamaClient struct {
	embeddingModel string
	chatModel      string
	routingModel   string

	reqLock    *semaphore.Weighted
	timeoutMin int64

	metricsLock sync.Mutex
	metrics     ai.ModelMetrics

	baseURL    *url.URL
	apiKey     string
	httpClient *http.Client

	Client *api.Client
}

// NewGraphOllamaClientParams contains configuration options for creating a new GraphOllamaClient.
type NewGraphOllamaClientParams struct {
	EmbeddingModel string
	ChatModel      string
	RoutingModel   string

	BaseURL string
	ApiKey  string

	TimeoutMin            int64
	MaxConcurrentRequests int64
}

type headerTransport struct {
	headers map[string]string
	rt      http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// clone so original request isn't modified
	r := req.Clone(req.Context())
	for k, v := range t.headers {
		// don't overwrite if already set
		if r.Header.Get(k) == "" {
			r.Header.Set(k, v)
		}
	}
	return t.rt.RoundTrip(r)
}

// NewGraphOllamaClient creates a new Ollama-based AI client with the specified
// configuration. It connects to the Ollama server at the given BaseURL (or the
// default if empty) and uses the configured models for different AI operations.
func NewGraphOllamaClient(
	params NewGraphOllamaClientParams,
) (*GraphOllamaClient, error) {
	var (
		u   *url.URL
		err error
	)

	if params.BaseURL != "" {
		u, err = url.Parse(params.BaseURL)
		if err != nil {
			return nil, err
		}
	}

	httpClient := &http.Client{
		Transport: &headerTransport{
			headers: map[string]string{
				"Authorization": "Bearer " + params.ApiKey,
			},
			rt: http.DefaultTransport,
		},
	}

	cli := api.NewClient(u, httpClient)

	maxConcurrent := params.MaxConcurrentRequests
	if maxConcurrent <= 0 {
		maxConcurrent = 2
	}

	timeoutMin := params.TimeoutMin
	if timeoutMin <= 0 {
		timeoutMin = 5
	}

	routingModel := params.RoutingModel
	if routingModel == "" {
		routingModel = params.ChatModel
	}

	return &GraphOllamaClient{
		embeddingModel: params.EmbeddingModel,
		chatModel:      params.ChatModel,
		routingModel:   routingModel,

		reqLock:    semaphore.NewWeighted(maxConcurrent),
		timeoutMin: timeoutMin,

		baseURL:    u,
		apiKey:     params.ApiKey,
		httpClient: httpClient,

		Client: cli,
	}, nil
}

func (c *GraphOllamaClient) modifyMetrics(metrics ai.ModelMetrics) {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()

	c.metrics.InputTokens += metrics.InputTokens
	c.metrics.OutputTokens += metrics.OutputTokens
	c.metrics.TotalTokens += metrics.TotalTokens
	c.metrics.DurationMs += metrics.DurationMs
}

// ResetMetrics clears the accumulated model metrics.
func (c *GraphOllamaClient) ResetMetrics() {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()

	c.metrics = ai.ModelMetrics{}
}

// GetMetrics returns the metrics accumulated since the last reset.
func (c *GraphOllamaClient) GetMetrics() ai.ModelMetrics {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()

	return c.metrics
}
