// Package respond maps orchestrator errors onto the JSON error shape shared by
// every /api handler: {"error": "...", "details": "..."}.
package respond

import (
	"errors"
	"net/http"

	"storyboard-app/internal/domain/stories"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// UserIDKey is the gin context key the auth middleware stores the caller under.
const UserIDKey = "user_id"

// UserID returns the authenticated caller or writes a 401.
func UserID(c *gin.Context) (string, bool) {
	uid := c.GetString(UserIDKey)
	if uid == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return "", false
	}
	return uid, true
}

// Error writes err as 404, 400 or 500. notFound is the 404 message, failure
// the 500 message.
func Error(c *gin.Context, log *zap.Logger, err error, notFound, failure string) {
	var ve *stories.ValidationError
	switch {
	case errors.Is(err, stories.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": notFound})
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"error": ve.Msg})
	default:
		log.Error(failure, zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": failure, "details": err.Error()})
	}
}

// BadRequest reports a body that failed to bind.
func BadRequest(c *gin.Context, msg string, err error) {
	body := gin.H{"error": msg}
	if err != nil {
		body["details"] = err.Error()
	}
	c.JSON(http.StatusBadRequest, body)
}
