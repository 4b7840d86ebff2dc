package models

import "github.com/google/uuid"

type UserRole string

const (
	RoleAdmin   UserRole = "admin"
	RoleManager UserRole = "manager"
	RoleAuditor UserRole = "auditor"
	RoleUser    UserRole = "user"
)

func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleAuditor, RoleUser:
		return true
	}
	return false
}

type User struct {
	Base
	Username     string   `gorm:"uniqueIndex;size:50;not null" json:"username"`
	Name         string   `gorm:"size:255" json:"name"`
	PasswordHash string   `gorm:"not null" json:"-"`
	Role         UserRole `gorm:"type:varchar(20);not null" json:"role"`

	// привязка к оргструктуре: unit для user, employee для manager, site для auditor
	UnitID     *uuid.UUID `gorm:"type:uuid" json:"unitId,omitempty"`
	EmployeeID *uuid.UUID `gorm:"type:uuid" json:"employeeId,omitempty"`
	SiteID     *uuid.UUID `gorm:"type:uuid" json:"siteId,omitempty"`
}

// Actor выполняет операцию; собирается из сессии до вызова ядра
type Actor struct {
	UserID     uuid.UUID
	Name       string
	Role       UserRole
	UnitID     *uuid.UUID
	EmployeeID *uuid.UUID
	SiteID     *uuid.UUID
}

func ActorFromUser(u User) Actor {
	return Actor{
		UserID:     u.ID,
		Name:       u.Name,
		Role:       u.Role,
		UnitID:     u.UnitID,
		EmployeeID: u.EmployeeID,
		SiteID:     u.SiteID,
	}
}
