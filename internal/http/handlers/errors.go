// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// Service errors are translated in one place, writeServiceError, so every
// endpoint reports the same status and code for the same failure:
//
//	*services.ValidationError  → 400 validation_failed (+ fields)
//	*services.ConflictError    → 409 scheduling_conflict (+ conflicts)
//	*services.StateError       → 409 invalid_state
//	services.Err*NotFound      → 404 not_found
//	services.ErrConcurrentUpdate → 409 conflict
//	anything else              → 500 internal_error (logged, not echoed)
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "scheduling_conflict",
//	  "message": "scheduling conflict with 1 mission(s)",
//	  "conflicts": [{"mission_id": "…", "agent_id": "agent-1", "date": "2025-02-18", "start": "10:00", "end": "11:00"}]
//	}
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-mission-scheduler/internal/http/middleware"
	"github.com/tbourn/go-mission-scheduler/internal/services"
)

const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeForbidden    = "forbidden"
	ErrCodeNotFound     = services.CodeNotFound
	ErrCodeConflict     = services.CodeConcurrentUpdate
	ErrCodeRateLimited  = "too_many_requests"
	ErrCodeInternal     = services.CodeInternal

	// Domain-specific:
	ErrCodeValidation         = services.CodeValidation
	ErrCodeSchedulingConflict = services.CodeSchedulingConflict
	ErrCodeInvalidState       = services.CodeInvalidState
	ErrCodeMethodNotAllowed   = "method_not_allowed"
)

// writeServiceError maps err onto the standard envelope.
func writeServiceError(c *gin.Context, err error) {
	var (
		ve *services.ValidationError
		ce *services.ConflictError
		se *services.StateError
	)
	switch {
	case errors.As(err, &ve):
		abort(c, http.StatusBadRequest, ErrorResponse{Code: ErrCodeValidation, Message: err.Error(), Fields: ve.Fields})
	case errors.As(err, &ce):
		abort(c, http.StatusConflict, ErrorResponse{Code: ErrCodeSchedulingConflict, Message: err.Error(), Conflicts: ce.Conflicts})
	case errors.As(err, &se):
		abort(c, http.StatusConflict, ErrorResponse{Code: ErrCodeInvalidState, Message: err.Error(), State: se})
	case services.IsNotFound(err):
		fail(c, http.StatusNotFound, ErrCodeNotFound, err.Error())
	case errors.Is(err, services.ErrConcurrentUpdate):
		fail(c, http.StatusConflict, ErrCodeConflict, err.Error())
	case errors.Is(err, context.Canceled):
		// Client went away; nothing useful to send.
		c.Abort()
	default:
		middleware.LoggerFrom(c).Error().Err(err).Msg("request failed")
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "internal error")
	}
}
