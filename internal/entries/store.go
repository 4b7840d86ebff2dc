package entries

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"simutu-ng/internal/models"
)

// ErrDuplicatePeriod: уникальный индекс (unit, frequency, period) отклонил вставку
var ErrDuplicatePeriod = errors.New("entry already exists for period")

// Store хранит записи. Отсутствующая или удалённая запись отдаётся как nil без ошибки.
// InsertEntry возвращает entrycode.ErrCodeTaken или ErrDuplicatePeriod при нарушении уникальности.
type Store interface {
	Transaction(ctx context.Context, fn func(tx Store) error) error

	GetEntry(ctx context.Context, id uuid.UUID) (*models.IndicatorEntry, error)
	FindEntryByPeriod(ctx context.Context, unitID uuid.UUID, freq models.Frequency, periodKey string, exclude *uuid.UUID) (*models.IndicatorEntry, error)
	LastEntryCode(ctx context.Context, prefix string) (string, error)
	ListEntries(ctx context.Context, q Query) ([]models.IndicatorEntry, int64, error)
	IndicatorsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Indicator, error)

	InsertEntry(ctx context.Context, entry *models.IndicatorEntry) error
	// UpdateEntryFields и UpdateStatus: compare-and-swap; false, если запись
	// уже в finish/удалена или статус изменился с момента чтения
	UpdateEntryFields(ctx context.Context, entry *models.IndicatorEntry) (bool, error)
	ReplaceItems(ctx context.Context, entryID uuid.UUID, items []models.IndicatorEntryItem) error
	UpdateStatus(ctx context.Context, change StatusChange) (bool, error)
	UpdateItemFlags(ctx context.Context, entryID uuid.UUID, flags []ItemFlags) error
	SoftDeleteEntry(ctx context.Context, id uuid.UUID) (bool, error)

	InsertVerificationLog(ctx context.Context, log *models.VerificationLog) error
	ListVerificationLogs(ctx context.Context, entryID uuid.UUID) ([]models.VerificationLog, error)
}

// Query задаёт выборку для списков. AllUnits=false и пустой UnitIDs дают пустой результат.
type Query struct {
	AllUnits  bool
	UnitIDs   []uuid.UUID
	From, To  *time.Time
	Frequency models.Frequency
	Statuses  []models.EntryStatus
	Limit     int
	Offset    int
}

type StatusChange struct {
	EntryID      uuid.UUID
	From, To     models.EntryStatus
	UpdatedBy    uuid.UUID
	AuditorNotes *string
}

type ItemFlags struct {
	ItemID                uuid.UUID `json:"itemId" validate:"required"`
	IsAlreadyChecked      *bool     `json:"isAlreadyChecked"`
	NeedsCorrectiveAction *bool     `json:"needsCorrectiveAction"`
}

// ActivityLogger пишет журнал действий; ошибки логируются и игнорируются внутри
type ActivityLogger interface {
	Log(ctx context.Context, actor models.Actor, entity, entityID, action, details string)
}

// ReportInvalidator сбрасывает кэш отчётов после изменения записей
type ReportInvalidator interface {
	InvalidateReports(ctx context.Context) error
}
