package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"simutu-ng/internal/apperrors"
	"simutu-ng/internal/middleware"
	"simutu-ng/internal/models"
)

// actor достаёт пользователя, которого положил middleware.InjectActor
func actor(c *gin.Context) (models.Actor, bool) {
	a, ok := middleware.ActorFrom(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "требуется вход"})
	}
	return a, ok
}

func statusOf(kind apperrors.Kind) int {
	switch kind {
	case apperrors.KindValidation:
		return http.StatusBadRequest
	case apperrors.KindAuthorization:
		return http.StatusForbidden
	case apperrors.KindNotFound:
		return http.StatusNotFound
	case apperrors.KindConflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func (h *Handler) fail(c *gin.Context, fn string, err error) {
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) {
		h.logger.WithFields(logrus.Fields{
			"module": "handlers",
			"func":   fn,
			"path":   c.FullPath(),
		}).WithError(err).Error("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "внутренняя ошибка сервера"})
		return
	}

	body := gin.H{"error": appErr.Message}
	if len(appErr.Fields) > 0 {
		body["fields"] = appErr.Fields
	}
	c.JSON(statusOf(appErr.Kind), body)
}

func badRequest(c *gin.Context) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "некорректные данные"})
}
