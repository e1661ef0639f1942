package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"paytrack/internal/board"
	"paytrack/internal/model"
	"paytrack/internal/repository"
	"paytrack/internal/service"
	"paytrack/pkg/logger"
)

// respondError writes the HTTP response for err. Validation problems are
// 400, unknown records 404, conflicts 409 (failed status moves also
// carry the reverted project), everything else 500 with a user-facing message.
func respondError(c *gin.Context, log *zap.Logger, action string, err error) {
	log = logger.WithTrace(c.Request.Context(), log)

	var verr *model.ValidationError
	var moveErr *board.MoveError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Message, "field": verr.Field, "code": verr.Code})
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, board.ErrUnknownProject):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, service.ErrEmailTaken), errors.Is(err, repository.ErrDuplicate),
		errors.Is(err, repository.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.As(err, &moveErr):
		log.Warn(action+" failed", zap.Error(err))
		c.JSON(http.StatusConflict, gin.H{
			"error":   "could not update project status",
			"details": moveErr.Err.Error(),
			"project": projectJSON(moveErr.Reverted),
		})
	case errors.Is(err, context.DeadlineExceeded):
		log.Error(action+" timed out", zap.Error(err))
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "request timed out"})
	default:
		log.Error(action+" failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to " + action})
	}
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return false
	}
	return true
}
