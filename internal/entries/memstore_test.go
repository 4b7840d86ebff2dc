package entries

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"simutu-ng/internal/entrycode"
	"simutu-ng/internal/models"
)

// memStore держит Store в памяти; Transaction откатывает состояние при ошибке
type memStore struct {
	mu   *sync.Mutex
	st   *memState
	inTx bool
}

type memState struct {
	entries    map[uuid.UUID]*models.IndicatorEntry
	indicators map[uuid.UUID]models.Indicator
	logs       []models.VerificationLog

	beforeUpdateStatus func(st *memState)
	failItemFlags      error
}

var _ Store = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{
		mu: &sync.Mutex{},
		st: &memState{
			entries:    map[uuid.UUID]*models.IndicatorEntry{},
			indicators: map[uuid.UUID]models.Indicator{},
		},
	}
}

func (s *memStore) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func cloneEntry(e *models.IndicatorEntry) *models.IndicatorEntry {
	c := *e
	c.Items = append([]models.IndicatorEntryItem(nil), e.Items...)
	return &c
}

func (st *memState) clone() *memState {
	c := *st
	c.entries = make(map[uuid.UUID]*models.IndicatorEntry, len(st.entries))
	for id, e := range st.entries {
		c.entries[id] = cloneEntry(e)
	}
	c.logs = append([]models.VerificationLog(nil), st.logs...)
	return &c
}

func (s *memStore) Transaction(_ context.Context, fn func(tx Store) error) error {
	unlock := s.lock()
	defer unlock()

	snapshot := s.st.clone()
	if err := fn(&memStore{mu: s.mu, st: s.st, inTx: true}); err != nil {
		*s.st = *snapshot
		return err
	}
	return nil
}

func (s *memStore) addIndicator(ind models.Indicator) models.Indicator {
	if ind.ID == uuid.Nil {
		ind.ID = uuid.New()
	}
	s.st.indicators[ind.ID] = ind
	return ind
}

func (s *memStore) withIndicators(e *models.IndicatorEntry) *models.IndicatorEntry {
	c := cloneEntry(e)
	for i := range c.Items {
		if ind, ok := s.st.indicators[c.Items[i].IndicatorID]; ok {
			ind := ind
			c.Items[i].Indicator = &ind
		}
	}
	return c
}

func (s *memStore) GetEntry(_ context.Context, id uuid.UUID) (*models.IndicatorEntry, error) {
	defer s.lock()()
	e, ok := s.st.entries[id]
	if !ok || e.DeletedAt.Valid {
		return nil, nil
	}
	return s.withIndicators(e), nil
}

func (s *memStore) findByPeriod(unitID uuid.UUID, freq models.Frequency, key string, exclude *uuid.UUID) *models.IndicatorEntry {
	for _, e := range s.st.entries {
		if e.DeletedAt.Valid || (exclude != nil && e.ID == *exclude) {
			continue
		}
		if e.UnitID == unitID && e.EntryFrequency == freq && e.PeriodKey == key {
			return e
		}
	}
	return nil
}

func (s *memStore) FindEntryByPeriod(_ context.Context, unitID uuid.UUID, freq models.Frequency, key string, exclude *uuid.UUID) (*models.IndicatorEntry, error) {
	defer s.lock()()
	if e := s.findByPeriod(unitID, freq, key, exclude); e != nil {
		return cloneEntry(e), nil
	}
	return nil, nil
}

func (s *memStore) LastEntryCode(_ context.Context, prefix string) (string, error) {
	defer s.lock()()
	last := ""
	for _, e := range s.st.entries {
		if strings.HasPrefix(e.EntryCode, prefix) && e.EntryCode > last {
			last = e.EntryCode
		}
	}
	return last, nil
}

func (s *memStore) ListEntries(_ context.Context, q Query) ([]models.IndicatorEntry, int64, error) {
	defer s.lock()()

	units := map[uuid.UUID]bool{}
	for _, id := range q.UnitIDs {
		units[id] = true
	}
	statuses := map[models.EntryStatus]bool{}
	for _, st := range q.Statuses {
		statuses[st] = true
	}

	var out []models.IndicatorEntry
	for _, e := range s.st.entries {
		switch {
		case e.DeletedAt.Valid:
		case !q.AllUnits && !units[e.UnitID]:
		case q.Frequency != "" && e.EntryFrequency != q.Frequency:
		case len(statuses) > 0 && !statuses[e.Status]:
		case q.From != nil && e.EntryDate.Before(*q.From):
		case q.To != nil && e.EntryDate.After(*q.To):
		default:
			out = append(out, *cloneEntry(e))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntryDate.After(out[j].EntryDate) })

	total := int64(len(out))
	if q.Offset >= len(out) {
		return []models.IndicatorEntry{}, total, nil
	}
	out = out[q.Offset:]
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, total, nil
}

func (s *memStore) IndicatorsByIDs(_ context.Context, ids []uuid.UUID) ([]models.Indicator, error) {
	defer s.lock()()
	var out []models.Indicator
	for _, id := range ids {
		if ind, ok := s.st.indicators[id]; ok {
			out = append(out, ind)
		}
	}
	return out, nil
}

func assignItemIDs(entryID uuid.UUID, items []models.IndicatorEntryItem) {
	for i := range items {
		if items[i].ID == uuid.Nil {
			items[i].ID = uuid.New()
		}
		items[i].EntryID = entryID
	}
}

func (s *memStore) InsertEntry(_ context.Context, entry *models.IndicatorEntry) error {
	defer s.lock()()
	for _, e := range s.st.entries {
		if e.EntryCode == entry.EntryCode {
			return entrycode.ErrCodeTaken
		}
	}
	if s.findByPeriod(entry.UnitID, entry.EntryFrequency, entry.PeriodKey, nil) != nil {
		return ErrDuplicatePeriod
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	assignItemIDs(entry.ID, entry.Items)
	entry.CreatedAt = time.Now()
	s.st.entries[entry.ID] = cloneEntry(entry)
	return nil
}

func (s *memStore) live(id uuid.UUID) *models.IndicatorEntry {
	e, ok := s.st.entries[id]
	if !ok || e.DeletedAt.Valid {
		return nil
	}
	return e
}

func (s *memStore) UpdateEntryFields(_ context.Context, entry *models.IndicatorEntry) (bool, error) {
	defer s.lock()()
	e := s.live(entry.ID)
	if e == nil || e.Status == models.StatusFinish {
		return false, nil
	}
	if s.findByPeriod(e.UnitID, entry.EntryFrequency, entry.PeriodKey, &e.ID) != nil {
		return false, ErrDuplicatePeriod
	}
	e.EntryDate = entry.EntryDate
	e.EntryFrequency = entry.EntryFrequency
	e.PeriodKey = entry.PeriodKey
	e.Notes = entry.Notes
	e.UpdatedBy = entry.UpdatedBy
	return true, nil
}

func (s *memStore) ReplaceItems(_ context.Context, entryID uuid.UUID, items []models.IndicatorEntryItem) error {
	defer s.lock()()
	e := s.live(entryID)
	if e == nil {
		return nil
	}
	fresh := append([]models.IndicatorEntryItem(nil), items...)
	assignItemIDs(entryID, fresh)
	e.Items = fresh
	return nil
}

func (s *memStore) UpdateStatus(_ context.Context, ch StatusChange) (bool, error) {
	defer s.lock()()
	if s.st.beforeUpdateStatus != nil {
		s.st.beforeUpdateStatus(s.st)
	}
	e := s.live(ch.EntryID)
	if e == nil || e.Status != ch.From {
		return false, nil
	}
	e.Status = ch.To
	e.UpdatedBy = &ch.UpdatedBy
	if ch.AuditorNotes != nil {
		e.AuditorNotes = *ch.AuditorNotes
	}
	return true, nil
}

func (s *memStore) UpdateItemFlags(_ context.Context, entryID uuid.UUID, flags []ItemFlags) error {
	defer s.lock()()
	if s.st.failItemFlags != nil {
		return s.st.failItemFlags
	}
	e := s.live(entryID)
	if e == nil {
		return nil
	}
	for _, f := range flags {
		for i := range e.Items {
			if e.Items[i].ID != f.ItemID {
				continue
			}
			if f.IsAlreadyChecked != nil {
				e.Items[i].IsAlreadyChecked = *f.IsAlreadyChecked
			}
			if f.NeedsCorrectiveAction != nil {
				e.Items[i].NeedsCorrectiveAction = *f.NeedsCorrectiveAction
			}
		}
	}
	return nil
}

func (s *memStore) SoftDeleteEntry(_ context.Context, id uuid.UUID) (bool, error) {
	defer s.lock()()
	e := s.live(id)
	if e == nil || e.Status == models.StatusFinish {
		return false, nil
	}
	e.DeletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	return true, nil
}

func (s *memStore) InsertVerificationLog(_ context.Context, log *models.VerificationLog) error {
	defer s.lock()()
	if log.ID == uuid.Nil {
		log.ID = uuid.New()
	}
	log.CreatedAt = time.Now()
	s.st.logs = append(s.st.logs, *log)
	return nil
}

func (s *memStore) ListVerificationLogs(_ context.Context, entryID uuid.UUID) ([]models.VerificationLog, error) {
	defer s.lock()()
	var out []models.VerificationLog
	for _, l := range s.st.logs {
		if l.EntryID == entryID {
			out = append(out, l)
		}
	}
	return out, nil
}

// recorder запоминает вызовы ActivityLogger
type recorder struct {
	mu      sync.Mutex
	actions []string
}

func (r *recorder) Log(_ context.Context, _ models.Actor, entity, _, action, _ string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = append(r.actions, entity+":"+action)
}
