package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mid "github.com/clinigraph/backend/internal/server/middleware"
	"github.com/clinigraph/backend/internal/server/session"
	"github.com/clinigraph/backend/internal/util"
	"github.com/clinigraph/backend/pkg/logger"
	"github.com/clinigraph/backend/pkg/query"

	"github.com/go-playground/validator"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	pgxvec "github.com/pgvector/pgvector-go/pgx"

	pgstore "github.com/clinigraph/backend/pkg/graph/pgx"
)

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i any) error {
	if err := cv.validator.Struct(i); err != nil {
		return err
	}
	return nil
}

func Init() {
	e := echo.New()
	e.Validator = &CustomValidator{validator: validator.New()}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := pgxpool.New(ctx, util.GetEnv("DATABASE_URL"))
	if err != nil {
		logger.Fatal("Failed to connect to database", "err", err)
	}
	defer conn.Close()
	conn.Config().AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	aiClient := mid.NewAIClientFromEnv()
	store := pgstore.NewGraphDBStore(conn)

	engine := query.NewEngine(query.EngineParams{
		AIClient:     aiClient,
		QueryService: store,
		VectorIndex:  store,
		Directory:    store,

		VectorTopK:           int(util.GetEnvNumeric("VECTOR_TOP_K", 15)),
		FusionK:              util.GetEnvNumeric("FUSION_RRF_K", 60),
		AnswerTopN:           int(util.GetEnvNumeric("ANSWER_TOP_N", 8)),
		AnswerTokenBudget:    int(util.GetEnvNumeric("ANSWER_TOKEN_BUDGET", 3000)),
		EntityVectorFallback: util.GetEnvBool("ENTITY_VECTOR_FALLBACK", true),
	})

	sessions := session.NewStore(func() *query.ContextManager {
		return query.NewContextManager(query.ContextManagerParams{
			AIClient:    aiClient,
			TokenBudget: int(util.GetEnvNumeric("CONTEXT_TOKEN_BUDGET", 2000)),
		})
	})

	app := &mid.App{
		DBConn:   conn,
		AiClient: aiClient,
		Engine:   engine,
		Sessions: sessions,
	}

	e.Use(mid.AppContextMiddleware(app))
	e.Use(middleware.CORS())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus: true,
		LogURI:    true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Info("Request", "method", v.Method, "uri", v.URI, "status", v.Status)
			return nil
		},
	}))
	e.Use(middleware.Recover())

	RegisterRoutes(e)

	go func() {
		port := util.GetEnv("PORT")
		if port == "" {
			port = "8080"
		}
		logger.Info("Starting server", "port", port)
		if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed shutting down server", "err", err)
		}
	}()

	<-ctx.Done()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Error("Failed to shutdown server", "err", err)
	}
}
