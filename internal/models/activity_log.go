package models

import (
	"time"

	"github.com/google/uuid"
)

type ActivityLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`

	UserID *uuid.UUID `gorm:"type:uuid;index" json:"userId"`
	User   *User      `json:"user,omitempty"`

	Entity   string `gorm:"size:50;not null" json:"entity"`  // "indicator_entry", "pdca", "session"
	EntityID string `gorm:"size:64" json:"entityId"`
	Action   string `gorm:"size:50;not null" json:"action"` // "create", "status_change" и т.п.
	Details  string `gorm:"type:text" json:"details"`
}
