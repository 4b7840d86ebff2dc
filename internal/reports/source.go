package reports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"simutu-ng/internal/models"
)

// EntryQuery: диапазон дат включительно по entry_date
type EntryQuery struct {
	AllUnits  bool
	UnitIDs   []uuid.UUID
	Frequency models.Frequency
	From, To  time.Time
}

type AssignmentQuery struct {
	AllUnits   bool
	UnitIDs    []uuid.UUID
	Frequency  models.Frequency
	CategoryID *uuid.UUID
}

// Assignment: активный индикатор, назначенный отделению
type Assignment struct {
	Indicator models.Indicator
	UnitID    uuid.UUID
	UnitName  string
}

// Source читает данные для отчётов. Unit отдаёт nil, если отделения нет.
// EntriesWithItems отдаёт только неудалённые записи, пункты с индикаторами.
type Source interface {
	Unit(ctx context.Context, id uuid.UUID) (*models.Unit, error)
	Units(ctx context.Context, allUnits bool, ids []uuid.UUID) ([]models.Unit, error)
	EntriesWithItems(ctx context.Context, q EntryQuery) ([]models.IndicatorEntry, error)
	Assignments(ctx context.Context, q AssignmentQuery) ([]Assignment, error)
	Categories(ctx context.Context) ([]models.IndicatorCategory, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, obj any) error
}

// NopCache: кэш выключен
type NopCache struct{}

func (NopCache) Get(context.Context, string, any) (bool, error) { return false, nil }
func (NopCache) Set(context.Context, string, any) error         { return nil }
