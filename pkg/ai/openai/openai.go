package openai

import (
	"sync"

	"github.com/clinigraph/backend/pkg/ai"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"golang.org/x/sync/semaphore"
)

// GraphOpenAIClient is an OpenAI-compatible client for the AI operations the
// retrieval engine needs. It manages separate clients for embeddings and
// chat/completion tasks, so both can point at different deployments.
//
// A GraphOpenAIClient should be created using NewGraphOpenAIClient.
type GraphOpenAIClient struct {
	embeddingModel string
	chatModel      string
	routingModel   string

	chatURL      string
	embeddingURL string

	timeoutMin    int64
	embeddingLock *semaphore.Weighted

	metricsLock sync.Mutex
	metrics     ai.ModelMetrics

	ChatClient      *openai.Client
	EmbeddingClient *openai.Client
}

// NewGraphOpenAIClientParams defines the configuration parameters for creating
// a new GraphOpenAIClient.
//
// EmbeddingModel specifies the model used for embeddings.
// ChatModel specifies the model used for answer synthesis and summaries.
// RoutingModel specifies the model used for structured routing output; when
// empty, ChatModel is used.
type NewGraphOpenAIClientParams struct {
	EmbeddingModel string
	ChatModel      string
	RoutingModel   string

	EmbeddingURL string
	EmbeddingKey string
	ChatURL      string
	ChatKey      string

	TimeoutMin              int64
	MaxConcurrentEmbeddings int64
}

// NewGraphOpenAIClient creates and returns a new GraphOpenAIClient configured
// with the provided parameters.
func NewGraphOpenAIClient(
	params NewGraphOpenAIClientParams,
) *GraphOpenAIClient {
	chatClient := newOpenaiClient(params.ChatURL, params.ChatKey)
	embedClient := newOpenaiClient(params.EmbeddingURL, params.EmbeddingKey)

	routingModel := params.RoutingModel
	if routingModel == "" {
		routingModel = params.ChatModel
	}

	timeoutMin := params.TimeoutMin
	if timeoutMin <= 0 {
		timeoutMin = 2
	}

	maxEmbeddings := params.MaxConcurrentEmbeddings
	if maxEmbeddings <= 0 {
		maxEmbeddings = 4
	}

	return &GraphOpenAIClient{
		embeddingModel: params.EmbeddingModel,
		chatModel:      params.ChatModel,
		routingModel:   routingModel,

		chatURL:      params.ChatURL,
		embeddingURL: params.EmbeddingURL,

		timeoutMin:    timeoutMin,
		embeddingLock: semaphore.NewWeighted(maxEmbeddings),

		ChatClient:      chatClient,
		EmbeddingClient: embedClient,
	}
}

func newOpenaiClient(
	baseURL string,
	apiKey string,
) *openai.Client {
	if apiKey == "" {
		return nil
	}
	options := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}

	if baseURL != "" {
		options = append(options, option.WithBaseURL(baseURL))
	}

	client := openai.NewClient(options...)

	return &client
}

func (c *GraphOpenAIClient) modifyMetrics(metrics ai.ModelMetrics) {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()

	c.metrics.InputTokens += metrics.InputTokens
	c.metrics.OutputTokens += metrics.OutputTokens
	c.metrics.TotalTokens += metrics.TotalTokens
	c.metrics.DurationMs += metrics.DurationMs
}

// ResetMetrics clears the accumulated model metrics.
func (c *GraphOpenAIClient) ResetMetrics() {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()

	c.metrics = ai.ModelMetrics{}
}

// GetMetrics returns the metrics accumulated since the last reset.
func (c *GraphOpenAIClient) GetMetrics() ai.ModelMetrics {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()

	return c.metrics
}
