// Package accesstest держит оргструктуру в памяти для тестов.
package accesstest

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"simutu-ng/internal/access"
)

type Unit struct {
	DivisionID *uuid.UUID
	SiteID     *uuid.UUID
	HeadID     *uuid.UUID
}

type Hierarchy struct {
	Units     map[uuid.UUID]Unit
	Managers  map[uuid.UUID]uuid.UUID  // division -> employee
	Employees map[uuid.UUID]*uuid.UUID // employee -> unit
	Err       error
}

var _ access.Hierarchy = (*Hierarchy)(nil)

func New() *Hierarchy {
	return &Hierarchy{
		Units:     map[uuid.UUID]Unit{},
		Managers:  map[uuid.UUID]uuid.UUID{},
		Employees: map[uuid.UUID]*uuid.UUID{},
	}
}

func ptr(id uuid.UUID) *uuid.UUID { return &id }

// AddUnit регистрирует отделение в division/site
func (h *Hierarchy) AddUnit(unit, division, site uuid.UUID) {
	h.Units[unit] = Unit{DivisionID: ptr(division), SiteID: ptr(site)}
}

func (h *Hierarchy) SetHead(unit, employee uuid.UUID) {
	u := h.Units[unit]
	u.HeadID = ptr(employee)
	h.Units[unit] = u
}

func (h *Hierarchy) filter(match func(Unit) bool) []uuid.UUID {
	var ids []uuid.UUID
	for id, u := range h.Units {
		if match(u) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

func eq(a *uuid.UUID, b uuid.UUID) bool { return a != nil && *a == b }

func (h *Hierarchy) UnitsOfDivision(_ context.Context, divisionID uuid.UUID) ([]uuid.UUID, error) {
	if h.Err != nil {
		return nil, h.Err
	}
	return h.filter(func(u Unit) bool { return eq(u.DivisionID, divisionID) }), nil
}

func (h *Hierarchy) UnitsHeadedBy(_ context.Context, employeeID uuid.UUID) ([]uuid.UUID, error) {
	if h.Err != nil {
		return nil, h.Err
	}
	return h.filter(func(u Unit) bool { return eq(u.HeadID, employeeID) }), nil
}

func (h *Hierarchy) DivisionsManagedBy(_ context.Context, employeeID uuid.UUID) ([]uuid.UUID, error) {
	if h.Err != nil {
		return nil, h.Err
	}
	var ids []uuid.UUID
	for division, manager := range h.Managers {
		if manager == employeeID {
			ids = append(ids, division)
		}
	}
	return ids, nil
}

func (h *Hierarchy) UnitsOfSite(_ context.Context, siteID uuid.UUID) ([]uuid.UUID, error) {
	if h.Err != nil {
		return nil, h.Err
	}
	return h.filter(func(u Unit) bool { return eq(u.SiteID, siteID) }), nil
}

func (h *Hierarchy) EmployeeUnit(_ context.Context, employeeID uuid.UUID) (*uuid.UUID, error) {
	if h.Err != nil {
		return nil, h.Err
	}
	return h.Employees[employeeID], nil
}
