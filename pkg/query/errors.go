package query

import (
	"errors"

	"github.com/clinigraph/backend/pkg/graph"
)

var (
	// ErrEmptyQuestion is returned when a request carries no question text.
	ErrEmptyQuestion = errors.New("question must not be empty")

	// ErrUpstreamUnavailable is returned when every selected retrieval path
	// failed after retries and no degraded result can be produced.
	ErrUpstreamUnavailable = errors.New("retrieval upstream unavailable")

	// ErrInterrupted is returned when the request context was canceled before
	// a complete response could be assembled. Partial results are discarded.
	ErrInterrupted = errors.New("request interrupted")
)

// IsClientError reports whether err is caused by invalid caller input rather
// than an upstream failure.
func IsClientError(err error) bool {
	var missing *graph.MissingParamError
	return errors.Is(err, ErrEmptyQuestion) ||
		errors.Is(err, graph.ErrUnknownTemplate) ||
		errors.As(err, &missing)
}
