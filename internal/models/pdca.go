package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PDCA: корректирующее действие по пункту, не прошедшему целевой порог
type PDCA struct {
	Base
	EntryItemID uuid.UUID           `gorm:"column:indicator_entry_item_id;type:uuid;not null;index" json:"entryItemId"`
	EntryItem   *IndicatorEntryItem `gorm:"foreignKey:EntryItemID" json:"entryItem,omitempty"`

	PDCADate     time.Time `gorm:"column:pdca_date;type:date;not null" json:"pdcaDate"`
	ProblemTitle string    `gorm:"type:text;not null" json:"problemTitle"`
	Step         string    `gorm:"type:text" json:"step"`
	Plan         string    `gorm:"type:text" json:"plan"`
	Do           string    `gorm:"type:text" json:"do"`
	CheckStudy   string    `gorm:"type:text" json:"checkStudy"`
	Action       string    `gorm:"type:text" json:"action"`

	CreatedBy uuid.UUID  `gorm:"type:uuid;not null" json:"createdBy"`
	UpdatedBy *uuid.UUID `gorm:"type:uuid" json:"updatedBy,omitempty"`

	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (PDCA) TableName() string { return "pdca" }
