package middleware

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"

	"github.com/clinigraph/backend/internal/server/session"
	"github.com/clinigraph/backend/internal/util"
	"github.com/clinigraph/backend/pkg/ai"
	oai "github.com/clinigraph/backend/pkg/ai/ollama"
	gai "github.com/clinigraph/backend/pkg/ai/openai"
	"github.com/clinigraph/backend/pkg/logger"
	"github.com/clinigraph/backend/pkg/query"
)

type App struct {
	DBConn   *pgxpool.Pool
	AiClient ai.GraphAIClient
	Engine   *query.Engine
	Sessions *session.Store
}

type AppContext struct {
	echo.Context
	App *App
}

func AppContextMiddleware(app *App) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cc := &AppContext{c, app}
			return next(cc)
		}
	}
}

// NewAIClientFromEnv builds the configured AI adapter. AI_ADAPTER selects
// ollama; anything else gets the OpenAI-compatible client.
func NewAIClientFromEnv() ai.GraphAIClient {
	adapter := util.GetEnv("AI_ADAPTER")

	switch adapter {
	case "ollama":
		client, err := oai.NewGraphOllamaClient(oai.NewGraphOllamaClientParams{
			EmbeddingModel: util.GetEnv("AI_EMBED_MODEL"),
			ChatModel:      util.GetEnv("AI_CHAT_MODEL"),
			RoutingModel:   util.GetEnv("AI_ROUTING_MODEL"),

			BaseURL: util.GetEnv("AI_CHAT_URL"),
			ApiKey:  util.GetEnv("AI_CHAT_KEY"),

			MaxConcurrentRequests: int64(util.GetEnvNumeric("AI_PARALLEL_REQ", 2)),
		})
		if err != nil {
			logger.Fatal("Failed to create Ollama client", "err", err)
		}
		return client
	default:
		return gai.NewGraphOpenAIClient(gai.NewGraphOpenAIClientParams{
			EmbeddingModel: util.GetEnv("AI_EMBED_MODEL"),
			ChatModel:      util.GetEnv("AI_CHAT_MODEL"),
			RoutingModel:   util.GetEnv("AI_ROUTING_MODEL"),

			EmbeddingURL: util.GetEnv("AI_EMBED_URL"),
			EmbeddingKey: util.GetEnv("AI_EMBED_KEY"),
			ChatURL:      util.GetEnv("AI_CHAT_URL"),
			ChatKey:      util.GetEnv("AI_CHAT_KEY"),

			MaxConcurrentEmbeddings: int64(util.GetEnvNumeric("AI_PARALLEL_REQ", 4)),
		})
	}
}
