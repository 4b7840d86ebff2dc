package pdca

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"simutu-ng/internal/models"
)

// ItemRef: пункт записи и отделение, к которому он относится
type ItemRef struct {
	ItemID  uuid.UUID
	EntryID uuid.UUID
	UnitID  uuid.UUID
}

type FlaggedItem struct {
	ItemID         uuid.UUID           `json:"itemId"`
	EntryID        uuid.UUID           `json:"entryId"`
	EntryCode      string              `json:"entryCode"`
	EntryDate      time.Time           `json:"entryDate"`
	EntryStatus    models.EntryStatus  `json:"entryStatus"`
	UnitID         uuid.UUID           `json:"unitId"`
	UnitName       string              `json:"unitName"`
	IndicatorID    uuid.UUID           `json:"indicatorId"`
	IndicatorCode  string              `json:"indicatorCode"`
	IndicatorTitle string              `json:"indicatorTitle"`
	Achievement    decimal.NullDecimal `json:"achievement"`
	HasPDCA        bool                `json:"hasPdca"`
}

// Store отдаёт nil без ошибки, если строка не найдена или удалена
type Store interface {
	GetItemRef(ctx context.Context, itemID uuid.UUID) (*ItemRef, error)
	InsertPDCA(ctx context.Context, p *models.PDCA) error
	GetPDCA(ctx context.Context, id uuid.UUID) (*models.PDCA, error)
	UpdatePDCA(ctx context.Context, p *models.PDCA) error
	SoftDeletePDCA(ctx context.Context, id uuid.UUID) error
	ListPDCAByItem(ctx context.Context, itemID uuid.UUID) ([]models.PDCA, error)
	// FlaggedItems: пункты с флагом корректирующего действия в неудалённых записях
	FlaggedItems(ctx context.Context, allUnits bool, unitIDs []uuid.UUID) ([]FlaggedItem, error)
}

type ActivityLogger interface {
	Log(ctx context.Context, actor models.Actor, entity, entityID, action, details string)
}
