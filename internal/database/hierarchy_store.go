package database

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"simutu-ng/internal/access"
	"simutu-ng/internal/models"
)

// HierarchyStore читает оргструктуру; удалённые строки не учитываются
type HierarchyStore struct {
	db *gorm.DB
}

var _ access.Hierarchy = (*HierarchyStore)(nil)

func NewHierarchyStore(db *gorm.DB) *HierarchyStore {
	return &HierarchyStore{db: db}
}

func (s *HierarchyStore) unitIDs(ctx context.Context, column string, value uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := s.db.WithContext(ctx).
		Model(&models.Unit{}).
		Where(column+" = ?", value).
		Pluck("id", &ids).Error
	return ids, err
}

func (s *HierarchyStore) UnitsOfDivision(ctx context.Context, divisionID uuid.UUID) ([]uuid.UUID, error) {
	return s.unitIDs(ctx, "division_id", divisionID)
}

func (s *HierarchyStore) UnitsHeadedBy(ctx context.Context, employeeID uuid.UUID) ([]uuid.UUID, error) {
	return s.unitIDs(ctx, "head_of_unit_id", employeeID)
}

func (s *HierarchyStore) UnitsOfSite(ctx context.Context, siteID uuid.UUID) ([]uuid.UUID, error) {
	return s.unitIDs(ctx, "site_id", siteID)
}

func (s *HierarchyStore) DivisionsManagedBy(ctx context.Context, employeeID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := s.db.WithContext(ctx).
		Model(&models.Division{}).
		Where("manager_id = ?", employeeID).
		Pluck("id", &ids).Error
	return ids, err
}

func (s *HierarchyStore) EmployeeUnit(ctx context.Context, employeeID uuid.UUID) (*uuid.UUID, error) {
	var emp models.Employee
	err := s.db.WithContext(ctx).First(&emp, "id = ?", employeeID).Error
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return emp.UnitID, nil
}
