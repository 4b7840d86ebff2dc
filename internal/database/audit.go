package database

import (
	"context"
	"time"

	"gorm.io/gorm"

	"simutu-ng/internal/activity"
	"simutu-ng/internal/models"
)

// ActivityRepo хранит журнал действий пользователей
type ActivityRepo struct {
	db *gorm.DB
}

var _ activity.Repo = (*ActivityRepo)(nil)

func NewActivityRepo(db *gorm.DB) *ActivityRepo {
	return &ActivityRepo{db: db}
}

func (r *ActivityRepo) InsertActivityLog(ctx context.Context, log *models.ActivityLog) error {
	return r.db.WithContext(ctx).Omit("User").Create(log).Error
}

func (r *ActivityRepo) DeleteActivityLogsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&models.ActivityLog{})
	return res.RowsAffected, res.Error
}

// ListActivityLogs отдаёт последние записи для admin, новые первыми
func (r *ActivityRepo) ListActivityLogs(ctx context.Context, limit int) ([]models.ActivityLog, error) {
	list := []models.ActivityLog{}
	err := r.db.WithContext(ctx).
		Preload("User").
		Order("created_at DESC").
		Limit(limit).
		Find(&list).Error
	return list, err
}
