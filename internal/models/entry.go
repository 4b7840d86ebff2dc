package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type EntryStatus string

const (
	StatusProposed EntryStatus = "proposed"
	StatusChecked  EntryStatus = "checked"
	StatusPending  EntryStatus = "pending"
	StatusFinish   EntryStatus = "finish"
)

var AllStatuses = []EntryStatus{StatusProposed, StatusChecked, StatusPending, StatusFinish}

func (s EntryStatus) Valid() bool {
	for _, st := range AllStatuses {
		if s == st {
			return true
		}
	}
	return false
}

// PeriodKey служит ключом уникальности: день для daily, месяц для monthly
func PeriodKey(freq Frequency, date time.Time) string {
	if freq == FrequencyMonthly {
		return date.Format("2006-01")
	}
	return date.Format("2006-01-02")
}

type IndicatorEntry struct {
	Base
	EntryCode string `gorm:"uniqueIndex:idx_entry_code;size:30;not null" json:"entryCode"`

	UnitID         uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_entry_period,where:deleted_at IS NULL" json:"unitId"`
	Unit           *Unit     `json:"unit,omitempty"`
	EntryDate      time.Time `gorm:"type:date;not null;index" json:"entryDate"`
	EntryFrequency Frequency `gorm:"type:varchar(10);not null;uniqueIndex:idx_entry_period,where:deleted_at IS NULL" json:"entryFrequency"`
	PeriodKey      string    `gorm:"size:10;not null;uniqueIndex:idx_entry_period,where:deleted_at IS NULL" json:"periodKey"`

	Status       EntryStatus `gorm:"type:varchar(20);not null;default:proposed" json:"status"`
	Notes        string      `gorm:"type:text" json:"notes"`
	AuditorNotes string      `gorm:"type:text" json:"auditorNotes"`

	CreatedBy uuid.UUID  `gorm:"type:uuid;not null" json:"createdBy"`
	UpdatedBy *uuid.UUID `gorm:"type:uuid" json:"updatedBy,omitempty"`

	Items []IndicatorEntryItem `gorm:"foreignKey:EntryID;constraint:OnDelete:CASCADE" json:"items,omitempty"`

	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

type IndicatorEntryItem struct {
	Base
	EntryID     uuid.UUID  `gorm:"column:indicator_entry_id;type:uuid;not null;index" json:"entryId"`
	IndicatorID uuid.UUID  `gorm:"type:uuid;not null;index" json:"indicatorId"`
	Indicator   *Indicator `json:"indicator,omitempty"`

	NumeratorValue   decimal.NullDecimal `gorm:"type:numeric" json:"numeratorValue"`
	DenominatorValue decimal.NullDecimal `gorm:"type:numeric" json:"denominatorValue"`
	Achievement      decimal.NullDecimal `gorm:"column:numerator_denominator_result;type:numeric" json:"achievement"`
	Score            decimal.NullDecimal `gorm:"column:skor;type:numeric" json:"score"`

	NeedsCorrectiveAction bool   `gorm:"column:is_need_pdca;not null;default:false" json:"needsCorrectiveAction"`
	IsAlreadyChecked      bool   `gorm:"not null;default:false" json:"isAlreadyChecked"`
	Notes                 string `gorm:"type:text" json:"notes"`
}

// VerificationLog: журнал смены статусов, только добавление
type VerificationLog struct {
	ID             uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt      time.Time   `json:"createdAt"`
	EntryID        uuid.UUID   `gorm:"column:indicator_entry_id;type:uuid;not null;index" json:"entryId"`
	PreviousStatus EntryStatus `gorm:"type:varchar(20);not null" json:"previousStatus"`
	NewStatus      EntryStatus `gorm:"type:varchar(20);not null" json:"newStatus"`
	Notes          string      `gorm:"type:text" json:"notes"`
	ActorID        uuid.UUID   `gorm:"type:uuid;not null" json:"actorId"`
	ActorRole      UserRole    `gorm:"type:varchar(20);not null" json:"actorRole"`
}

func (l *VerificationLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
