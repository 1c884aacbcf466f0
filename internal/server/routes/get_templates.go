package routes

import (
	"net/http"

	"github.com/clinigraph/backend/pkg/graph"

	"github.com/labstack/echo/v4"
)

// GetTemplatesHandler lists the structural query template allow-list
func GetTemplatesHandler(c echo.Context) error {
	type templatesResponse struct {
		Templates []graph.TemplateSpec `json:"templates"`
	}

	return c.JSON(http.StatusOK, templatesResponse{
		Templates: graph.Templates(),
	})
}
