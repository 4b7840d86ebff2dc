package database

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"simutu-ng/internal/models"
	"simutu-ng/internal/reports"
)

// ReportStore только читает, для отчётов
type ReportStore struct {
	db *gorm.DB
}

var _ reports.Source = (*ReportStore)(nil)

func NewReportStore(db *gorm.DB) *ReportStore {
	return &ReportStore{db: db}
}

func (s *ReportStore) Unit(ctx context.Context, id uuid.UUID) (*models.Unit, error) {
	var unit models.Unit
	err := s.db.WithContext(ctx).
		Preload("Site").
		Preload("HeadOfUnit").
		First(&unit, "id = ?", id).Error
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &unit, nil
}

func (s *ReportStore) Units(ctx context.Context, allUnits bool, ids []uuid.UUID) ([]models.Unit, error) {
	list := []models.Unit{}
	if !allUnits && len(ids) == 0 {
		return list, nil
	}

	q := s.db.WithContext(ctx).Order("name")
	if !allUnits {
		q = q.Where("id IN ?", ids)
	}
	err := q.Find(&list).Error
	return list, err
}

func (s *ReportStore) EntriesWithItems(ctx context.Context, q reports.EntryQuery) ([]models.IndicatorEntry, error) {
	list := []models.IndicatorEntry{}
	if !q.AllUnits && len(q.UnitIDs) == 0 {
		return list, nil
	}

	query := withItems(s.db.WithContext(ctx)).
		Where("entry_frequency = ?", q.Frequency).
		Where("entry_date BETWEEN ? AND ?", q.From, q.To)
	if !q.AllUnits {
		query = query.Where("unit_id IN ?", q.UnitIDs)
	}

	err := query.Order("entry_date, created_at").Find(&list).Error
	return list, err
}

func (s *ReportStore) Assignments(ctx context.Context, q reports.AssignmentQuery) ([]reports.Assignment, error) {
	if !q.AllUnits && len(q.UnitIDs) == 0 {
		return []reports.Assignment{}, nil
	}

	query := s.db.WithContext(ctx).
		Joins("Indicator").
		Joins("Unit").
		Where(`"Indicator".deleted_at IS NULL AND "Indicator".is_active = ?`, true).
		Where(`"Indicator".entry_frequency = ?`, q.Frequency).
		Where(`"Unit".deleted_at IS NULL`)
	if q.CategoryID != nil {
		query = query.Where(`"Indicator".indicator_category_id = ?`, *q.CategoryID)
	}
	if !q.AllUnits {
		query = query.Where("indicator_units.unit_id IN ?", q.UnitIDs)
	}

	var rows []models.IndicatorUnit
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]reports.Assignment, 0, len(rows))
	for _, row := range rows {
		if row.Indicator == nil || row.Unit == nil {
			continue
		}
		out = append(out, reports.Assignment{
			Indicator: *row.Indicator,
			UnitID:    row.UnitID,
			UnitName:  row.Unit.Name,
		})
	}
	return out, nil
}

func (s *ReportStore) Categories(ctx context.Context) ([]models.IndicatorCategory, error) {
	list := []models.IndicatorCategory{}
	err := s.db.WithContext(ctx).Order("name").Find(&list).Error
	return list, err
}
