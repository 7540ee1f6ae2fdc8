package transport

import (
	"net/http"

	"github.com/clockout/clockout/internal/domain/entry"
	"github.com/gin-gonic/gin"
)

const actorKey = "actor"

// ActorMiddleware extracts the acting identity from request headers. Token
// verification and identity issuance happen upstream (gateway); by the time
// a request reaches this service the headers are trusted.
func ActorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader("X-User-ID")
		companyID := c.GetHeader("X-Company-ID")
		if userID == "" || companyID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing identity headers"})
			return
		}
		role := entry.Role(c.GetHeader("X-User-Role"))
		switch role {
		case entry.RoleEmployee, entry.RoleManager, entry.RoleAdmin:
		case "":
			role = entry.RoleEmployee
		default:
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unknown role"})
			return
		}
		c.Set(actorKey, entry.Actor{
			UserID:    userID,
			CompanyID: companyID,
			Role:      role,
		})
		c.Next()
	}
}

func actorFrom(c *gin.Context) entry.Actor {
	return c.MustGet(actorKey).(entry.Actor)
}
