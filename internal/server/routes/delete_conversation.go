package routes

import (
	"net/http"

	"github.com/clinigraph/backend/internal/server/middleware"

	"github.com/labstack/echo/v4"
)

// DeleteConversationHandler drops a conversation and its history
func DeleteConversationHandler(c echo.Context) error {
	type deleteResponse struct {
		Message string `json:"message"`
	}

	id := c.Param("id")
	if id == "" {
		return c.JSON(http.StatusBadRequest, deleteResponse{
			Message: "Missing conversation id",
		})
	}

	app := c.(*middleware.AppContext).App
	app.Sessions.Delete(id)

	return c.JSON(http.StatusOK, deleteResponse{
		Message: "Conversation deleted",
	})
}
