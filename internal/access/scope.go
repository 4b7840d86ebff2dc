package access

import (
	"sort"
	"strings"

	"github.com/google/uuid"
)

// Scope: множество отделений, доступных актору, либо "все"
type Scope struct {
	all   bool
	units map[uuid.UUID]struct{}
}

func All() Scope {
	return Scope{all: true}
}

func Units(ids ...uuid.UUID) Scope {
	s := Scope{units: make(map[uuid.UUID]struct{}, len(ids))}
	for _, id := range ids {
		s.units[id] = struct{}{}
	}
	return s
}

func (s Scope) IsAll() bool {
	return s.all
}

func (s Scope) Empty() bool {
	return !s.all && len(s.units) == 0
}

func (s Scope) Contains(id uuid.UUID) bool {
	if s.all {
		return true
	}
	_, ok := s.units[id]
	return ok
}

// Intersect возвращает пересечение двух множеств
func (s Scope) Intersect(other Scope) Scope {
	if s.all {
		return other
	}
	if other.all {
		return s
	}
	out := Units()
	for id := range s.units {
		if _, ok := other.units[id]; ok {
			out.units[id] = struct{}{}
		}
	}
	return out
}

// Restrict применяет фильтр из запроса; пустой фильтр ничего не сужает.
// Недоступное отделение просто выпадает из результата.
func (s Scope) Restrict(requested []uuid.UUID) Scope {
	if len(requested) == 0 {
		return s
	}
	return s.Intersect(Units(requested...))
}

// UnitIDs возвращает отсортированный список; для "все" nil
func (s Scope) UnitIDs() []uuid.UUID {
	if s.all {
		return nil
	}
	ids := make([]uuid.UUID, 0, len(s.units))
	for id := range s.units {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

// Key даёт стабильное представление для ключей кэша
func (s Scope) Key() string {
	if s.all {
		return "all"
	}
	ids := s.UnitIDs()
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.String()
	}
	return "units:" + strings.Join(parts, ",")
}
