package handlers

import (
	"net/http"

	"quizmatch/models"

	"github.com/gin-gonic/gin"
)

// respondError maps the engine's error taxonomy onto HTTP statuses and
// renders the user-visible reason.
func respondError(c *gin.Context, err error) {
	var status int
	switch models.CodeOf(err) {
	case models.ErrNotFound:
		status = http.StatusNotFound
	case models.ErrValidation:
		status = http.StatusBadRequest
	case models.ErrUnauthorized:
		status = http.StatusForbidden
	case models.ErrInvalidState, models.ErrDuplicateSubmission:
		status = http.StatusConflict
	case models.ErrTimingViolation:
		status = http.StatusUnprocessableEntity
	default:
		status = http.StatusInternalServerError
	}
	c.JSON(status, gin.H{"error": models.ReasonOf(err)})
}

// callerID returns the authenticated user ID set by the auth
// middleware.
func callerID(c *gin.Context) (uint, bool) {
	value, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return 0, false
	}
	id, ok := value.(uint)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return 0, false
	}
	return id, true
}
