// middleware/auth.go
package middleware

import (
	"net/http"
	"strings"

	"agrilink/utils"

	"github.com/gin-gonic/gin"
)

// ActorAuthMiddleware extracts the acting user from a Bearer token and puts
// the actor ID on the context. The wider platform owns account management;
// the booking core only needs a trustworthy actor identity for holds.
func ActorAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid Authorization header"})
			return
		}
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")

		actorID, err := utils.ExtractIDFromToken(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		c.Set("actorID", actorID)
		c.Next()
	}
}
