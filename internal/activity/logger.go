package activity

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"simutu-ng/internal/models"
)

type Repo interface {
	InsertActivityLog(ctx context.Context, log *models.ActivityLog) error
	DeleteActivityLogsBefore(ctx context.Context, cutoff time.Time) (int64, error)
	ListActivityLogs(ctx context.Context, limit int) ([]models.ActivityLog, error)
}

// Logger пишет журнал действий; сбой записи только логируется
type Logger struct {
	repo   Repo
	logger *logrus.Logger
}

func NewLogger(repo Repo, logger *logrus.Logger) *Logger {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Logger{repo: repo, logger: logger}
}

func (l *Logger) Log(ctx context.Context, actor models.Actor, entity, entityID, action, details string) {
	row := &models.ActivityLog{
		Entity:   entity,
		EntityID: entityID,
		Action:   action,
		Details:  details,
	}
	if actor.UserID != uuid.Nil {
		id := actor.UserID
		row.UserID = &id
	}

	if err := l.repo.InsertActivityLog(ctx, row); err != nil {
		l.logger.WithFields(logrus.Fields{
			"module":   "activity",
			"func":     "Log",
			"entity":   entity,
			"entityId": entityID,
			"action":   action,
		}).WithError(err).Warn("failed to write activity log")
	}
}

// ListActivityLogs отдаёт последние записи, новые первыми
func (l *Logger) ListActivityLogs(ctx context.Context, limit int) ([]models.ActivityLog, error) {
	return l.repo.ListActivityLogs(ctx, limit)
}
