package middleware

import (
	"net/http"
	"strings"

	"workshophub/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AttemptAuthMiddleware requires a valid attempt token and stores its attempt
// id under "attemptID".
func AttemptAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader(utils.AttemptTokenHeader)
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": "unauthorized", "message": "Missing or invalid Authorization header"})
			return
		}
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")

		attemptID, err := utils.ExtractAttemptID(tokenString)
		if err != nil {
			requestLogger(c).Info("rejected attempt token", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": "unauthorized", "message": "Your booking session is invalid or has expired"})
			return
		}

		c.Set("attemptID", attemptID)
		c.Next()
	}
}
