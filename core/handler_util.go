package core

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// respondError sends unified error payload {"error": {"code", "message"}}.
func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{"error": gin.H{"code": code, "message": message}})
}

// respondGateError maps credential gate failures to responses.
func respondGateError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		respondError(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid credentials. Please try again.")
	case errors.Is(err, ErrUnknownUser):
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "unknown user")
	case errors.Is(err, ErrDirectoryEmpty):
		respondError(c, http.StatusServiceUnavailable, "DIRECTORY_UNAVAILABLE", "No users found in the system.")
	default:
		respondError(c, http.StatusServiceUnavailable, "DIRECTORY_UNAVAILABLE", directoryMessage(err))
	}
}
