package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"simutu-ng/internal/apperrors"
	"simutu-ng/internal/entries"
	"simutu-ng/internal/entrycode"
	"simutu-ng/internal/models"
)

// EntryStore хранит записи, их пункты и журнал верификации
type EntryStore struct {
	db *gorm.DB
}

var (
	_ entries.Store   = (*EntryStore)(nil)
	_ entrycode.Store = (*EntryStore)(nil)
)

func NewEntryStore(db *gorm.DB) *EntryStore {
	return &EntryStore{db: db}
}

func (s *EntryStore) Transaction(ctx context.Context, fn func(tx entries.Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&EntryStore{db: tx})
	})
}

// mapWriteError переводит нарушения индексов в ошибки домена
func mapWriteError(err error) error {
	switch uniqueViolation(err) {
	case constraintEntryCode:
		return entrycode.ErrCodeTaken
	case constraintEntryPeriod:
		return entries.ErrDuplicatePeriod
	}
	return err
}

func withItems(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at, id") }).
		Preload("Items.Indicator", func(db *gorm.DB) *gorm.DB { return db.Unscoped() })
}

func (s *EntryStore) GetEntry(ctx context.Context, id uuid.UUID) (*models.IndicatorEntry, error) {
	var entry models.IndicatorEntry
	err := withItems(s.db.WithContext(ctx)).
		Preload("Unit").
		First(&entry, "id = ?", id).Error
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (s *EntryStore) FindEntryByPeriod(ctx context.Context, unitID uuid.UUID, freq models.Frequency, periodKey string, exclude *uuid.UUID) (*models.IndicatorEntry, error) {
	q := s.db.WithContext(ctx).
		Where("unit_id = ? AND entry_frequency = ? AND period_key = ?", unitID, freq, periodKey)
	if exclude != nil {
		q = q.Where("id <> ?", *exclude)
	}

	var entry models.IndicatorEntry
	err := q.First(&entry).Error
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// LastEntryCode смотрит и удалённые записи: код не переиспользуется
func (s *EntryStore) LastEntryCode(ctx context.Context, prefix string) (string, error) {
	var codes []string
	err := s.db.WithContext(ctx).Unscoped().
		Model(&models.IndicatorEntry{}).
		Where("entry_code LIKE ?", prefix+"%").
		Order("length(entry_code) DESC, entry_code DESC").
		Limit(1).
		Pluck("entry_code", &codes).Error
	if err != nil {
		return "", err
	}
	if len(codes) == 0 {
		return "", nil
	}
	return codes[0], nil
}

func (s *EntryStore) ListEntries(ctx context.Context, q entries.Query) ([]models.IndicatorEntry, int64, error) {
	if !q.AllUnits && len(q.UnitIDs) == 0 {
		return []models.IndicatorEntry{}, 0, nil
	}

	query := s.db.WithContext(ctx).Model(&models.IndicatorEntry{})
	if !q.AllUnits {
		query = query.Where("unit_id IN ?", q.UnitIDs)
	}
	if q.From != nil {
		query = query.Where("entry_date >= ?", *q.From)
	}
	if q.To != nil {
		query = query.Where("entry_date <= ?", *q.To)
	}
	if q.Frequency != "" {
		query = query.Where("entry_frequency = ?", q.Frequency)
	}
	if len(q.Statuses) > 0 {
		query = query.Where("status IN ?", q.Statuses)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count entries: %w", err)
	}

	list := []models.IndicatorEntry{}
	err := query.
		Preload("Unit").
		Order("entry_date DESC, created_at DESC").
		Limit(q.Limit).
		Offset(q.Offset).
		Find(&list).Error
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (s *EntryStore) IndicatorsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Indicator, error) {
	var list []models.Indicator
	if len(ids) == 0 {
		return list, nil
	}
	err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&list).Error
	return list, err
}

func (s *EntryStore) InsertEntry(ctx context.Context, entry *models.IndicatorEntry) error {
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return mapWriteError(err)
	}
	return nil
}

func (s *EntryStore) UpdateEntryFields(ctx context.Context, entry *models.IndicatorEntry) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(&models.IndicatorEntry{}).
		Where("id = ? AND status <> ?", entry.ID, models.StatusFinish).
		Updates(map[string]any{
			"entry_date":      entry.EntryDate,
			"entry_frequency": entry.EntryFrequency,
			"period_key":      entry.PeriodKey,
			"notes":           entry.Notes,
			"updated_by":      entry.UpdatedBy,
		})
	if res.Error != nil {
		return false, mapWriteError(res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (s *EntryStore) ReplaceItems(ctx context.Context, entryID uuid.UUID, items []models.IndicatorEntryItem) error {
	db := s.db.WithContext(ctx)
	itemIDs := func() *gorm.DB {
		return db.Model(&models.IndicatorEntryItem{}).Select("id").Where("indicator_entry_id = ?", entryID)
	}

	// живые PDCA блокируют замену; мягко удалённые удаляются вместе с пунктами
	var live int64
	if err := db.Model(&models.PDCA{}).Where("indicator_entry_item_id IN (?)", itemIDs()).Count(&live).Error; err != nil {
		return fmt.Errorf("count pdca: %w", err)
	}
	if live > 0 {
		return apperrors.Conflict("по пунктам записи уже заведены PDCA")
	}
	if err := db.Unscoped().
		Where("indicator_entry_item_id IN (?) AND deleted_at IS NOT NULL", itemIDs()).
		Delete(&models.PDCA{}).Error; err != nil {
		return fmt.Errorf("purge deleted pdca: %w", err)
	}

	err := db.Where("indicator_entry_id = ?", entryID).Delete(&models.IndicatorEntryItem{}).Error
	if foreignKeyViolation(err) {
		return apperrors.ConflictWrap("по пунктам записи уже заведены PDCA", err)
	}
	if err != nil {
		return fmt.Errorf("delete items: %w", err)
	}

	if len(items) == 0 {
		return nil
	}
	fresh := make([]models.IndicatorEntryItem, len(items))
	for i, item := range items {
		item.ID = uuid.Nil
		item.EntryID = entryID
		item.Indicator = nil
		fresh[i] = item
	}
	if err := db.Create(&fresh).Error; err != nil {
		return fmt.Errorf("insert items: %w", err)
	}
	return nil
}

func (s *EntryStore) UpdateStatus(ctx context.Context, ch entries.StatusChange) (bool, error) {
	fields := map[string]any{
		"status":     ch.To,
		"updated_by": ch.UpdatedBy,
	}
	if ch.AuditorNotes != nil {
		fields["auditor_notes"] = *ch.AuditorNotes
	}

	res := s.db.WithContext(ctx).
		Model(&models.IndicatorEntry{}).
		Where("id = ? AND status = ?", ch.EntryID, ch.From).
		Updates(fields)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (s *EntryStore) UpdateItemFlags(ctx context.Context, entryID uuid.UUID, flags []entries.ItemFlags) error {
	for _, f := range flags {
		fields := map[string]any{}
		if f.IsAlreadyChecked != nil {
			fields["is_already_checked"] = *f.IsAlreadyChecked
		}
		if f.NeedsCorrectiveAction != nil {
			fields["is_need_pdca"] = *f.NeedsCorrectiveAction
		}
		if len(fields) == 0 {
			continue
		}

		err := s.db.WithContext(ctx).
			Model(&models.IndicatorEntryItem{}).
			Where("id = ? AND indicator_entry_id = ?", f.ItemID, entryID).
			Updates(fields).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *EntryStore) SoftDeleteEntry(ctx context.Context, id uuid.UUID) (bool, error) {
	res := s.db.WithContext(ctx).
		Where("id = ? AND status <> ?", id, models.StatusFinish).
		Delete(&models.IndicatorEntry{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (s *EntryStore) InsertVerificationLog(ctx context.Context, log *models.VerificationLog) error {
	return s.db.WithContext(ctx).Create(log).Error
}

func (s *EntryStore) ListVerificationLogs(ctx context.Context, entryID uuid.UUID) ([]models.VerificationLog, error) {
	list := []models.VerificationLog{}
	err := s.db.WithContext(ctx).
		Where("indicator_entry_id = ?", entryID).
		Order("created_at").
		Find(&list).Error
	return list, err
}
