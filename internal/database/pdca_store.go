package database

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"simutu-ng/internal/models"
	"simutu-ng/internal/pdca"
)

type PDCAStore struct {
	db *gorm.DB
}

var _ pdca.Store = (*PDCAStore)(nil)

func NewPDCAStore(db *gorm.DB) *PDCAStore {
	return &PDCAStore{db: db}
}

func (s *PDCAStore) GetItemRef(ctx context.Context, itemID uuid.UUID) (*pdca.ItemRef, error) {
	var refs []pdca.ItemRef
	err := s.db.WithContext(ctx).
		Table("indicator_entry_items AS i").
		Select("i.id AS item_id, i.indicator_entry_id AS entry_id, e.unit_id AS unit_id").
		Joins("JOIN indicator_entries e ON e.id = i.indicator_entry_id AND e.deleted_at IS NULL").
		Where("i.id = ?", itemID).
		Limit(1).
		Scan(&refs).Error
	if err != nil {
		return nil, err
	}
	if len(refs) == 0 {
		return nil, nil
	}
	return &refs[0], nil
}

func (s *PDCAStore) InsertPDCA(ctx context.Context, p *models.PDCA) error {
	return s.db.WithContext(ctx).Omit("EntryItem").Create(p).Error
}

func (s *PDCAStore) GetPDCA(ctx context.Context, id uuid.UUID) (*models.PDCA, error) {
	var p models.PDCA
	err := s.db.WithContext(ctx).First(&p, "id = ?", id).Error
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PDCAStore) UpdatePDCA(ctx context.Context, p *models.PDCA) error {
	return s.db.WithContext(ctx).Omit("EntryItem").Save(p).Error
}

func (s *PDCAStore) SoftDeletePDCA(ctx context.Context, id uuid.UUID) error {
	return s.db.WithContext(ctx).Delete(&models.PDCA{}, "id = ?", id).Error
}

func (s *PDCAStore) ListPDCAByItem(ctx context.Context, itemID uuid.UUID) ([]models.PDCA, error) {
	list := []models.PDCA{}
	err := s.db.WithContext(ctx).
		Where("indicator_entry_item_id = ?", itemID).
		Order("pdca_date DESC, created_at DESC").
		Find(&list).Error
	return list, err
}

func (s *PDCAStore) FlaggedItems(ctx context.Context, allUnits bool, unitIDs []uuid.UUID) ([]pdca.FlaggedItem, error) {
	list := []pdca.FlaggedItem{}
	if !allUnits && len(unitIDs) == 0 {
		return list, nil
	}

	q := s.db.WithContext(ctx).
		Table("indicator_entry_items AS i").
		Select(`i.id AS item_id,
			e.id AS entry_id, e.entry_code, e.entry_date, e.status AS entry_status,
			e.unit_id, u.name AS unit_name,
			ind.id AS indicator_id, ind.code AS indicator_code, ind.judul AS indicator_title,
			i.numerator_denominator_result AS achievement,
			EXISTS (SELECT 1 FROM pdca p WHERE p.indicator_entry_item_id = i.id AND p.deleted_at IS NULL) AS has_pdca`).
		Joins("JOIN indicator_entries e ON e.id = i.indicator_entry_id AND e.deleted_at IS NULL").
		Joins("JOIN units u ON u.id = e.unit_id").
		Joins("JOIN indicators ind ON ind.id = i.indicator_id").
		Where("i.is_need_pdca = ?", true)
	if !allUnits {
		q = q.Where("e.unit_id IN ?", unitIDs)
	}

	err := q.Order("e.entry_date DESC, e.entry_code DESC").Scan(&list).Error
	return list, err
}
