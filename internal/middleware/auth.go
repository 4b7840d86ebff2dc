package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"simutu-ng/internal/models"
)

const SessionUserID = "user_id"

func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := ActorFrom(c); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "требуется вход"})
			return
		}
		c.Next()
	}
}

// RequireRole сверяет роль Actor, загруженного InjectActor
func RequireRole(roles ...models.UserRole) gin.HandlerFunc {
	roleSet := map[models.UserRole]struct{}{}
	for _, r := range roles {
		roleSet[r] = struct{}{}
	}

	return func(c *gin.Context) {
		actor, ok := ActorFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "требуется вход"})
			return
		}

		if _, ok := roleSet[actor.Role]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "доступ запрещён"})
			return
		}
		c.Next()
	}
}
