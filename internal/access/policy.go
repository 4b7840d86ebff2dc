package access

import "simutu-ng/internal/models"

type Visibility int

const (
	VisibilityNone Visibility = iota
	VisibilityAll
	VisibilityOwnUnit
	VisibilityManaged // управляемые отделы + возглавляемые отделения
	VisibilitySite
)

// Capability описывает, что роль может делать с записями
type Capability struct {
	Visibility     Visibility
	Statuses       []models.EntryStatus // куда роль может переводить запись
	CanFilterByOrg bool                 // фильтр отчётов по division/site
	CanVerify      bool                 // видит очередь верификации
}

// policy: единая таблица прав, её читают Resolver и жизненный цикл записей
var policy = map[models.UserRole]Capability{
	models.RoleAdmin: {
		Visibility:     VisibilityAll,
		Statuses:       models.AllStatuses,
		CanFilterByOrg: true,
		CanVerify:      true,
	},
	models.RoleManager: {
		Visibility: VisibilityManaged,
		Statuses:   []models.EntryStatus{models.StatusChecked, models.StatusPending},
		CanVerify:  true,
	},
	models.RoleAuditor: {
		Visibility:     VisibilitySite,
		Statuses:       []models.EntryStatus{models.StatusFinish},
		CanFilterByOrg: true,
		CanVerify:      true,
	},
	models.RoleUser: {
		Visibility: VisibilityOwnUnit,
		Statuses:   []models.EntryStatus{models.StatusProposed},
	},
}

// CapabilityOf для неизвестной роли возвращает пустой набор прав
func CapabilityOf(role models.UserRole) Capability {
	return policy[role]
}

func (c Capability) AllowsStatus(s models.EntryStatus) bool {
	for _, st := range c.Statuses {
		if st == s {
			return true
		}
	}
	return false
}
