package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Оргструктура: Site ⊇ Division ⊇ Unit, сотрудники привязаны к Unit.
// Ведётся внешними CRUD-экранами, ядро только читает.

type Site struct {
	Base
	Name      string         `gorm:"size:255;not null" json:"name"`
	Address   string         `gorm:"type:text" json:"address"`
	SiteLogo  string         `gorm:"size:500" json:"siteLogo"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

type Division struct {
	Base
	SiteID    *uuid.UUID     `gorm:"type:uuid;index" json:"siteId"`
	Name      string         `gorm:"size:255;not null" json:"name"`
	ManagerID *uuid.UUID     `gorm:"type:uuid;index" json:"managerId"` // Employee.ID
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

type Unit struct {
	Base
	SiteID     *uuid.UUID `gorm:"type:uuid;index" json:"siteId"`
	Site       *Site      `json:"site,omitempty"`
	DivisionID *uuid.UUID `gorm:"type:uuid;index" json:"divisionId"`
	Division   *Division  `json:"division,omitempty"`

	UnitCode string `gorm:"size:50" json:"unitCode"`
	Name     string `gorm:"size:255;not null" json:"name"`

	HeadOfUnitID *uuid.UUID `gorm:"type:uuid;index" json:"headOfUnitId"`
	HeadOfUnit   *Employee  `gorm:"foreignKey:HeadOfUnitID" json:"headOfUnit,omitempty"`

	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

type Employee struct {
	Base
	UnitID    *uuid.UUID     `gorm:"type:uuid;index" json:"unitId"`
	FullName  string         `gorm:"size:255;not null" json:"fullName"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
