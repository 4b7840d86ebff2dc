package middleware

import (
	"context"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"simutu-ng/internal/models"
)

const actorKey = "CurrentActor"

type UserLoader interface {
	UserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// InjectActor собирает Actor по user_id из сессии; роль и привязки
// всегда берутся из базы, а не из cookie
func InjectActor(users UserLoader, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := sessions.Default(c)

		if raw, ok := sess.Get(SessionUserID).(string); ok {
			if uid, err := uuid.Parse(raw); err == nil {
				user, err := users.UserByID(c.Request.Context(), uid)
				switch {
				case err != nil:
					logger.WithFields(logrus.Fields{"module": "middleware", "func": "InjectActor"}).
						WithError(err).Error("failed to load session user")
				case user != nil:
					c.Set(actorKey, models.ActorFromUser(*user))
				}
			}
		}

		c.Next()
	}
}

func ActorFrom(c *gin.Context) (models.Actor, bool) {
	v, ok := c.Get(actorKey)
	if !ok {
		return models.Actor{}, false
	}
	actor, ok := v.(models.Actor)
	return actor, ok
}

// SetActor для тестов обработчиков
func SetActor(c *gin.Context, actor models.Actor) {
	c.Set(actorKey, actor)
}
