package server

import (
	"github.com/clinigraph/backend/internal/server/routes"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})

	apiRoutes := e.Group("/api")

	// Query routes
	apiRoutes.POST("/answer", routes.AnswerHandler)
	apiRoutes.GET("/templates", routes.GetTemplatesHandler)

	// Conversation routes
	apiRoutes.DELETE("/conversations/:id", routes.DeleteConversationHandler)
}
