package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrz1836/connector/internal/kms"
	connerr "github.com/mrz1836/connector/pkg/errors"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	ErrorCode  string            `json:"errorCode"`
	Message    string            `json:"message"`
	Details    map[string]string `json:"details,omitempty"`
	Suggestion string            `json:"suggestion,omitempty"`
}

// StatusCode maps an error to its HTTP status. Missing configuration is
// 503 even when wrapped by an upstream failure.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, connerr.ErrNoNodeURL), errors.Is(err, kms.ErrDisabled):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}

	var ce *connerr.ConnectorError
	if !errors.As(err, &ce) {
		return http.StatusInternalServerError
	}
	switch ce.ExitCode {
	case connerr.ExitInput:
		return http.StatusBadRequest
	case connerr.ExitNotFound:
		return http.StatusNotFound
	case connerr.ExitConfig:
		return http.StatusServiceUnavailable
	case connerr.ExitUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// abort writes the error body and stops the handler chain.
func abort(c *gin.Context, err error) {
	status := StatusCode(err)
	resp := ErrorResponse{
		ErrorCode: connerr.Code(err),
		Message:   err.Error(),
		Details:   connerr.Details(err),
	}
	var ce *connerr.ConnectorError
	if errors.As(err, &ce) {
		resp.Suggestion = ce.Suggestion
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, resp)
}

func bindFailed(err error) error {
	return connerr.WithDetails(connerr.ErrInvalidInput, map[string]string{
		"field":  "body",
		"reason": err.Error(),
	})
}
