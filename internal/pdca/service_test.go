package pdca

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simutu-ng/internal/access"
	"simutu-ng/internal/access/accesstest"
	"simutu-ng/internal/apperrors"
	"simutu-ng/internal/models"
)

type memStore struct {
	items   map[uuid.UUID]ItemRef
	flagged []FlaggedItem
	pdcas   map[uuid.UUID]*models.PDCA
}

var _ Store = (*memStore)(nil)

func (s *memStore) GetItemRef(_ context.Context, id uuid.UUID) (*ItemRef, error) {
	if ref, ok := s.items[id]; ok {
		return &ref, nil
	}
	return nil, nil
}

func (s *memStore) InsertPDCA(_ context.Context, p *models.PDCA) error {
	p.ID = uuid.New()
	c := *p
	s.pdcas[p.ID] = &c
	return nil
}

func (s *memStore) GetPDCA(_ context.Context, id uuid.UUID) (*models.PDCA, error) {
	p, ok := s.pdcas[id]
	if !ok || p.DeletedAt.Valid {
		return nil, nil
	}
	c := *p
	return &c, nil
}

func (s *memStore) UpdatePDCA(_ context.Context, p *models.PDCA) error {
	c := *p
	s.pdcas[p.ID] = &c
	return nil
}

func (s *memStore) SoftDeletePDCA(_ context.Context, id uuid.UUID) error {
	s.pdcas[id].DeletedAt.Valid = true
	return nil
}

func (s *memStore) ListPDCAByItem(_ context.Context, itemID uuid.UUID) ([]models.PDCA, error) {
	var out []models.PDCA
	for _, p := range s.pdcas {
		if p.EntryItemID == itemID && !p.DeletedAt.Valid {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (s *memStore) FlaggedItems(_ context.Context, all bool, unitIDs []uuid.UUID) ([]FlaggedItem, error) {
	allowed := access.Units(unitIDs...)
	if all {
		allowed = access.All()
	}
	var out []FlaggedItem
	for _, f := range s.flagged {
		if allowed.Contains(f.UnitID) {
			out = append(out, f)
		}
	}
	return out, nil
}

type nopActivity struct{ n int }

func (a *nopActivity) Log(context.Context, models.Actor, string, string, string, string) { a.n++ }

type fixture struct {
	svc      *Service
	store    *memStore
	activity *nopActivity
	u1, u2   uuid.UUID
	itemU1   uuid.UUID
	itemU2   uuid.UUID
	userU1   models.Actor
	admin    models.Actor
}

func newFixture() *fixture {
	f := &fixture{
		u1: uuid.New(), u2: uuid.New(),
		itemU1: uuid.New(), itemU2: uuid.New(),
		activity: &nopActivity{},
	}
	h := accesstest.New()
	site, div := uuid.New(), uuid.New()
	h.AddUnit(f.u1, div, site)
	h.AddUnit(f.u2, div, site)

	f.store = &memStore{
		items: map[uuid.UUID]ItemRef{
			f.itemU1: {ItemID: f.itemU1, EntryID: uuid.New(), UnitID: f.u1},
			f.itemU2: {ItemID: f.itemU2, EntryID: uuid.New(), UnitID: f.u2},
		},
		flagged: []FlaggedItem{
			{ItemID: f.itemU1, UnitID: f.u1, HasPDCA: true},
			{ItemID: f.itemU2, UnitID: f.u2},
		},
		pdcas: map[uuid.UUID]*models.PDCA{},
	}

	unit := f.u1
	f.userU1 = models.Actor{UserID: uuid.New(), Role: models.RoleUser, UnitID: &unit}
	f.admin = models.Actor{UserID: uuid.New(), Role: models.RoleAdmin}
	f.svc = NewService(f.store, access.NewResolver(h), f.activity)
	return f
}

func (f *fixture) validInput(item uuid.UUID) CreateInput {
	return CreateInput{
		EntryItemID:  item,
		PDCADate:     time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC),
		ProblemTitle: "Pasien jatuh di bangsal",
		Plan:         "Pasang pagar tempat tidur",
	}
}

func TestCreate(t *testing.T) {
	f := newFixture()

	p, err := f.svc.Create(context.Background(), f.userU1, f.validInput(f.itemU1))
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, p.ID)
	assert.Equal(t, f.userU1.UserID, p.CreatedBy)
	assert.Equal(t, 1, f.activity.n)
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Create(context.Background(), f.admin, CreateInput{EntryItemID: f.itemU1})

	var appErr *apperrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperrors.KindValidation, appErr.Kind)
	assert.Contains(t, appErr.Fields, "PDCADate")
	assert.Contains(t, appErr.Fields, "ProblemTitle")
}

func TestCreate_ItemOutsideScope(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Create(context.Background(), f.userU1, f.validInput(f.itemU2))
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = f.svc.Create(context.Background(), f.admin, f.validInput(uuid.New()))
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestUpdateAndDelete(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	p, err := f.svc.Create(ctx, f.admin, f.validInput(f.itemU2))
	require.NoError(t, err)

	_, err = f.svc.Get(ctx, f.userU1, p.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	action := "Edukasi keluarga pasien"
	updated, err := f.svc.Update(ctx, f.admin, p.ID, UpdateInput{Action: &action})
	require.NoError(t, err)
	assert.Equal(t, action, updated.Action)
	assert.Equal(t, "Pasang pagar tempat tidur", updated.Plan)
	require.NotNil(t, updated.UpdatedBy)

	empty := ""
	_, err = f.svc.Update(ctx, f.admin, p.ID, UpdateInput{ProblemTitle: &empty})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	list, err := f.svc.ListByItem(ctx, f.admin, f.itemU2)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, f.svc.Delete(ctx, f.admin, p.ID))
	_, err = f.svc.Get(ctx, f.admin, p.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	list, err = f.svc.ListByItem(ctx, f.admin, f.itemU2)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestNeedsPDCA_Scoped(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	items, err := f.svc.NeedsPDCA(ctx, f.userU1, nil)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.True(t, items[0].HasPDCA)

	items, err = f.svc.NeedsPDCA(ctx, f.userU1, &f.u2)
	require.NoError(t, err)
	assert.Empty(t, items)

	items, err = f.svc.NeedsPDCA(ctx, f.admin, nil)
	require.NoError(t, err)
	assert.Len(t, items, 2)
}
