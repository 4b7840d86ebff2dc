package entries

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"simutu-ng/internal/models"
)

type ItemInput struct {
	IndicatorID      uuid.UUID           `json:"indicatorId" validate:"required"`
	NumeratorValue   decimal.NullDecimal `json:"numeratorValue"`
	DenominatorValue decimal.NullDecimal `json:"denominatorValue"`
	// посчитанные клиентом значения, берутся как есть
	Achievement decimal.NullDecimal `json:"achievement"`
	Score       decimal.NullDecimal `json:"score"`
	Notes       string              `json:"notes"`
}

type CreateInput struct {
	UnitID         uuid.UUID        `json:"unitId" validate:"required"`
	EntryDate      time.Time        `json:"entryDate" validate:"required"`
	EntryFrequency models.Frequency `json:"entryFrequency" validate:"required,oneof=daily monthly"`
	Notes          string           `json:"notes"`
	Items          []ItemInput      `json:"items" validate:"required,min=1,dive"`
}

// UpdateInput не меняет nil-поля; Items != nil заменяет все пункты
type UpdateInput struct {
	EntryDate      *time.Time        `json:"entryDate"`
	EntryFrequency *models.Frequency `json:"entryFrequency" validate:"omitempty,oneof=daily monthly"`
	Notes          *string           `json:"notes"`
	Items          []ItemInput       `json:"items" validate:"omitempty,min=1,dive"`
}

type StatusInput struct {
	Status       models.EntryStatus `json:"status" validate:"required,oneof=proposed checked pending finish"`
	Notes        string             `json:"notes"`
	AuditorNotes *string            `json:"auditorNotes"`
	Items        []ItemFlags        `json:"itemUpdates" validate:"omitempty,dive"`
}

type ListInput struct {
	UnitID    *uuid.UUID
	From      *time.Time
	To        *time.Time
	Frequency models.Frequency
	Statuses  []models.EntryStatus
	Limit     int
	Offset    int
}

type VerificationInput struct {
	ListInput
	DivisionID *uuid.UUID
}

type Page struct {
	Items []models.IndicatorEntry `json:"items"`
	Total int64                   `json:"total"`
}

const (
	defaultLimit = 50
	maxLimit     = 200
)

func (in ListInput) limit() int {
	switch {
	case in.Limit <= 0:
		return defaultLimit
	case in.Limit > maxLimit:
		return maxLimit
	}
	return in.Limit
}
