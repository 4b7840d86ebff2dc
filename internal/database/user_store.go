package database

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"simutu-ng/internal/models"
)

type UserStore struct {
	db *gorm.DB
}

func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.first(ctx, "username = ?", username)
}

func (s *UserStore) UserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.first(ctx, "id = ?", id)
}

func (s *UserStore) first(ctx context.Context, cond string, arg any) (*models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).First(&u, cond, arg).Error
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
