package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/riskgate/internal/middleware"
	"github.com/riskgate/internal/models"
	"github.com/riskgate/internal/repository"
	"github.com/riskgate/internal/service"
	"github.com/riskgate/pkg/response"
)

// respondError maps service and repository errors onto the API error
// vocabulary. Risk blocks carry their own status class: forbidden for
// account-level denials, conflict for transient gate rejections.
func respondError(c *gin.Context, err error) {
	var riskBlock *service.RiskBlockError
	if errors.As(err, &riskBlock) {
		if riskBlock.Forbidden {
			response.Forbidden(c, riskBlock.Reason)
			return
		}
		response.Conflict(c, riskBlock.Reason)
		return
	}

	switch {
	case errors.Is(err, repository.ErrSignalNotFound),
		errors.Is(err, repository.ErrPositionNotFound),
		errors.Is(err, repository.ErrUserNotFound),
		errors.Is(err, repository.ErrSecretNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, service.ErrSignalNotExecuting),
		errors.Is(err, service.ErrPositionNotOpen),
		errors.Is(err, service.ErrIdempotencyConflict):
		response.Conflict(c, err.Error())
	case errors.Is(err, service.ErrSignalMissingEntry),
		errors.Is(err, service.ErrIdempotencyKeyTooLong),
		errors.Is(err, service.ErrMissingCredentials),
		errors.Is(err, service.ErrUnknownProfile),
		errors.Is(err, service.ErrUnknownStrategy),
		errors.Is(err, models.ErrUnknownExchange):
		response.BadRequest(c, err.Error())
	case errors.Is(err, service.ErrUpstreamAdapter):
		response.BadGateway(c, err.Error())
	default:
		middleware.LogError("unhandled service error: %v", err)
		response.InternalError(c, "internal error")
	}
}

// pathExchange parses the :exchange route parameter
func pathExchange(c *gin.Context) (models.Exchange, bool) {
	exchange, ok := models.ParseExchange(c.Param("exchange"))
	if !ok {
		response.BadRequest(c, models.ErrUnknownExchange.Error())
		return "", false
	}
	return exchange, true
}
