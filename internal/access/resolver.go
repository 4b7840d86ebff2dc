package access

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"simutu-ng/internal/models"
)

// Hierarchy читает оргструктуру (site -> division -> unit -> employee)
type Hierarchy interface {
	UnitsOfDivision(ctx context.Context, divisionID uuid.UUID) ([]uuid.UUID, error)
	UnitsHeadedBy(ctx context.Context, employeeID uuid.UUID) ([]uuid.UUID, error)
	DivisionsManagedBy(ctx context.Context, employeeID uuid.UUID) ([]uuid.UUID, error)
	UnitsOfSite(ctx context.Context, siteID uuid.UUID) ([]uuid.UUID, error)
	EmployeeUnit(ctx context.Context, employeeID uuid.UUID) (*uuid.UUID, error)
}

type Resolver struct {
	hierarchy Hierarchy
}

func NewResolver(h Hierarchy) *Resolver {
	return &Resolver{hierarchy: h}
}

// AllowedUnits решает, какие отделения актор может читать и менять.
// Пустое множество тоже нормальный ответ; ошибка только при сбое хранилища.
func (r *Resolver) AllowedUnits(ctx context.Context, actor models.Actor) (Scope, error) {
	switch CapabilityOf(actor.Role).Visibility {
	case VisibilityAll:
		return All(), nil

	case VisibilityOwnUnit:
		if actor.UnitID == nil {
			return Units(), nil
		}
		return Units(*actor.UnitID), nil

	case VisibilityManaged:
		return r.managedUnits(ctx, actor)

	case VisibilitySite:
		if actor.SiteID == nil {
			return Units(), nil
		}
		ids, err := r.hierarchy.UnitsOfSite(ctx, *actor.SiteID)
		if err != nil {
			return Scope{}, fmt.Errorf("units of site: %w", err)
		}
		return Units(ids...), nil
	}

	return Units(), nil
}

func (r *Resolver) managedUnits(ctx context.Context, actor models.Actor) (Scope, error) {
	if actor.EmployeeID == nil {
		return Units(), nil
	}
	employeeID := *actor.EmployeeID

	divisions, err := r.hierarchy.DivisionsManagedBy(ctx, employeeID)
	if err != nil {
		return Scope{}, fmt.Errorf("divisions managed by: %w", err)
	}

	var ids []uuid.UUID
	for _, divisionID := range divisions {
		units, err := r.hierarchy.UnitsOfDivision(ctx, divisionID)
		if err != nil {
			return Scope{}, fmt.Errorf("units of division: %w", err)
		}
		ids = append(ids, units...)
	}

	headed, err := r.hierarchy.UnitsHeadedBy(ctx, employeeID)
	if err != nil {
		return Scope{}, fmt.Errorf("units headed by: %w", err)
	}
	ids = append(ids, headed...)

	if len(divisions) > 0 || len(headed) > 0 {
		return Units(ids...), nil
	}

	// ничем не управляет: только своё отделение
	own, err := r.hierarchy.EmployeeUnit(ctx, employeeID)
	if err != nil {
		return Scope{}, fmt.Errorf("employee unit: %w", err)
	}
	if own == nil {
		return Units(), nil
	}
	return Units(*own), nil
}

// Filter сужает выборку по параметрам запроса
type Filter struct {
	UnitIDs    []uuid.UUID
	DivisionID *uuid.UUID
	SiteID     *uuid.UUID
}

// Narrow = requested ∩ AllowedUnits(actor). Фильтры по division/site
// учитываются только для ролей с CanFilterByOrg.
func (r *Resolver) Narrow(ctx context.Context, actor models.Actor, f Filter) (Scope, error) {
	scope, err := r.AllowedUnits(ctx, actor)
	if err != nil {
		return Scope{}, err
	}

	if CapabilityOf(actor.Role).CanFilterByOrg {
		if f.DivisionID != nil {
			ids, err := r.hierarchy.UnitsOfDivision(ctx, *f.DivisionID)
			if err != nil {
				return Scope{}, fmt.Errorf("units of division: %w", err)
			}
			scope = scope.Intersect(Units(ids...))
		}
		if f.SiteID != nil {
			ids, err := r.hierarchy.UnitsOfSite(ctx, *f.SiteID)
			if err != nil {
				return Scope{}, fmt.Errorf("units of site: %w", err)
			}
			scope = scope.Intersect(Units(ids...))
		}
	}

	return scope.Restrict(f.UnitIDs), nil
}
