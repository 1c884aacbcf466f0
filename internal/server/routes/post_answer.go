package routes

import (
	"errors"
	"net/http"
	"time"

	"github.com/clinigraph/backend/internal/server/middleware"
	"github.com/clinigraph/backend/pkg/logger"
	"github.com/clinigraph/backend/pkg/query"

	_ "github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// AnswerHandler runs the retrieval pipeline for one question
func AnswerHandler(c echo.Context) error {
	type answerBody struct {
		Question       string         `json:"question" validate:"required"`
		ConversationID string         `json:"conversation_id,omitempty"`
		Template       string         `json:"template,omitempty"`
		Params         map[string]any `json:"params,omitempty"`
	}

	type answerResponse struct {
		Message              string               `json:"message,omitempty"`
		ConversationID       string               `json:"conversation_id,omitempty"`
		Answer               string               `json:"answer,omitempty"`
		Citations            []query.Citation     `json:"citations,omitempty"`
		Results              []query.RankedResult `json:"results,omitempty"`
		NoEvidence           bool                 `json:"no_evidence,omitempty"`
		InsufficientEvidence bool                 `json:"insufficient_evidence,omitempty"`
		Reasoning            *query.Reasoning     `json:"reasoning,omitempty"`
	}

	data := new(answerBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, answerResponse{
			Message: "Invalid request body",
		})
	}

	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, answerResponse{
			Message: "Invalid request body",
		})
	}

	app := c.(*middleware.AppContext).App
	ctx := c.Request().Context()

	conversationID := data.ConversationID
	if conversationID == "" {
		id, err := gonanoid.New()
		if err != nil {
			return c.JSON(http.StatusInternalServerError, answerResponse{
				Message: "Internal server error",
			})
		}
		conversationID = id
	}
	manager := app.Sessions.Get(conversationID)

	var opts []query.AnswerOption
	if data.Template != "" {
		opts = append(opts, query.WithTemplate(data.Template, data.Params))
	}

	response, err := app.Engine.Answer(ctx, data.Question, manager.Turns(), opts...)
	if err != nil {
		switch {
		case query.IsClientError(err):
			return c.JSON(http.StatusBadRequest, answerResponse{
				Message: err.Error(),
			})
		case errors.Is(err, query.ErrInterrupted):
			return c.JSON(http.StatusRequestTimeout, answerResponse{
				Message: "Request interrupted",
			})
		case errors.Is(err, query.ErrUpstreamUnavailable):
			logger.Error("Retrieval upstream unavailable", "err", err)
			return c.JSON(http.StatusServiceUnavailable, answerResponse{
				Message: "Retrieval services unavailable",
			})
		default:
			logger.Error("Answer request failed", "err", err)
			return c.JSON(http.StatusInternalServerError, answerResponse{
				Message: "Internal server error",
			})
		}
	}

	now := time.Now()
	manager.Append(ctx, query.Turn{Role: query.RoleUser, Text: data.Question, Timestamp: now})
	if response.Answer != "" {
		manager.Append(ctx, query.Turn{Role: query.RoleAssistant, Text: response.Answer, Timestamp: now})
	}

	message := ""
	if response.NoEvidence {
		message = query.NoEvidenceMessage
	}

	return c.JSON(http.StatusOK, answerResponse{
		Message:              message,
		ConversationID:       conversationID,
		Answer:               response.Answer,
		Citations:            response.Citations,
		Results:              response.Results,
		NoEvidence:           response.NoEvidence,
		InsufficientEvidence: response.InsufficientEvidence,
		Reasoning:            &response.Reasoning,
	})
}
