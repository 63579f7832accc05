package handler

import (
	"errors"
	"net/http"

	"accounting-reconciliation-backend/internal/apperrors"

	"github.com/gin-gonic/gin"
)

// respondError maps core error kinds onto HTTP statuses. Every failure
// carries a human-readable reason.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, apperrors.ErrInvalidTarget), errors.Is(err, apperrors.ErrAllocationMismatch):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, apperrors.ErrConcurrentModification):
		status = http.StatusConflict
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// actorFrom identifies who performed the action, for the history log.
func actorFrom(c *gin.Context) string {
	if actor := c.GetHeader("X-Actor"); actor != "" {
		return actor
	}
	return "system"
}
