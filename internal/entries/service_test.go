package entries

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simutu-ng/internal/access"
	"simutu-ng/internal/access/accesstest"
	"simutu-ng/internal/achievement"
	"simutu-ng/internal/apperrors"
	"simutu-ng/internal/entrycode"
	"simutu-ng/internal/models"
	"simutu-ng/internal/retry"
)

type fixture struct {
	svc      *Service
	store    *memStore
	h        *accesstest.Hierarchy
	activity *recorder

	site, divA  uuid.UUID
	u1, u2      uuid.UUID
	indicator   models.Indicator
	manager     models.Actor
	user        models.Actor
	auditor     models.Actor
	admin       models.Actor
	managerEmpl uuid.UUID
}

func ptr[T any](v T) *T { return &v }

func num(s string) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: decimal.RequireFromString(s), Valid: true}
}

// site{divA{u1,u2}}; manager возглавляет u1, но не управляет divA
func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		store:    newMemStore(),
		h:        accesstest.New(),
		activity: &recorder{},
		site:     uuid.New(),
		divA:     uuid.New(),
		u1:       uuid.New(),
		u2:       uuid.New(),
	}
	f.h.AddUnit(f.u1, f.divA, f.site)
	f.h.AddUnit(f.u2, f.divA, f.site)

	f.managerEmpl = uuid.New()
	f.h.SetHead(f.u1, f.managerEmpl)

	f.indicator = f.store.addIndicator(models.Indicator{
		Code:               "IND-01",
		Title:              "Angka kejadian pasien jatuh",
		Target:             num("2"),
		TargetComparator:   achievement.Less,
		CalculationFormula: achievement.FormulaPercentage,
		TargetWeight:       num("10"),
		EntryFrequency:     models.FrequencyDaily,
		IsActive:           true,
	})

	f.user = models.Actor{UserID: uuid.New(), Role: models.RoleUser, UnitID: ptr(f.u1)}
	f.manager = models.Actor{UserID: uuid.New(), Role: models.RoleManager, EmployeeID: ptr(f.managerEmpl)}
	f.auditor = models.Actor{UserID: uuid.New(), Role: models.RoleAuditor, SiteID: ptr(f.site)}
	f.admin = models.Actor{UserID: uuid.New(), Role: models.RoleAdmin}

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	codes := entrycode.New(f.store, &retry.Config{MaxRetries: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1}, logger)
	f.svc = NewService(f.store, access.NewResolver(f.h), codes, f.activity, logger)
	return f
}

func (f *fixture) input(unit uuid.UUID, date time.Time, n, d string) CreateInput {
	return CreateInput{
		UnitID:         unit,
		EntryDate:      date,
		EntryFrequency: models.FrequencyDaily,
		Items: []ItemInput{{
			IndicatorID:      f.indicator.ID,
			NumeratorValue:   num(n),
			DenominatorValue: num(d),
		}},
	}
}

func (f *fixture) create(t *testing.T, unit uuid.UUID, date time.Time) *models.IndicatorEntry {
	t.Helper()
	e, err := f.svc.CreateEntry(context.Background(), f.admin, f.input(unit, date, "15", "500"))
	require.NoError(t, err)
	return e
}

var march1 = time.Date(2024, 3, 1, 8, 30, 0, 0, time.UTC)

func TestCreateEntry_EvaluatesItems(t *testing.T) {
	f := newFixture(t)

	e, err := f.svc.CreateEntry(context.Background(), f.user, f.input(f.u1, march1, "5", "500"))
	require.NoError(t, err)

	assert.Equal(t, "NM/20240301/00001", e.EntryCode)
	assert.Equal(t, models.StatusProposed, e.Status)
	assert.Equal(t, "2024-03-01", e.PeriodKey)
	assert.Equal(t, f.user.UserID, e.CreatedBy)
	require.Len(t, e.Items, 1)

	item := e.Items[0]
	assert.True(t, item.Achievement.Decimal.Equal(decimal.NewFromInt(1)))
	assert.True(t, item.Score.Decimal.Equal(decimal.NewFromInt(100)))
	assert.False(t, item.NeedsCorrectiveAction)
	assert.Equal(t, []string{"indicator_entry:create"}, f.activity.actions)
}

func TestCreateEntry_MissedTargetFlagsItem(t *testing.T) {
	f := newFixture(t)

	e, err := f.svc.CreateEntry(context.Background(), f.user, f.input(f.u1, march1, "15", "500"))
	require.NoError(t, err)

	item := e.Items[0]
	assert.True(t, item.Achievement.Decimal.Equal(decimal.NewFromInt(3)))
	assert.True(t, item.Score.Decimal.Equal(decimal.NewFromInt(150)))
	assert.True(t, item.NeedsCorrectiveAction)
}

func TestCreateEntry_SuppliedAchievementHonored(t *testing.T) {
	f := newFixture(t)
	in := f.input(f.u1, march1, "15", "500")
	in.Items[0].Achievement = num("1.5")

	e, err := f.svc.CreateEntry(context.Background(), f.user, in)
	require.NoError(t, err)

	assert.True(t, e.Items[0].Achievement.Decimal.Equal(decimal.RequireFromString("1.5")))
	assert.False(t, e.Items[0].NeedsCorrectiveAction)
}

func TestCreateEntry_DuplicatePeriod(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateEntry(ctx, f.user, f.input(f.u1, march1, "1", "2"))
	require.NoError(t, err)

	_, err = f.svc.CreateEntry(ctx, f.user, f.input(f.u1, march1.Add(3*time.Hour), "1", "2"))
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	e, err := f.svc.CreateEntry(ctx, f.user, f.input(f.u1, march1.AddDate(0, 0, 1), "1", "2"))
	require.NoError(t, err)
	assert.Equal(t, "NM/20240302/00001", e.EntryCode)
}

func TestCreateEntry_MonthlyBucket(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := f.input(f.u1, march1, "1", "2")
	in.EntryFrequency = models.FrequencyMonthly
	_, err := f.svc.CreateEntry(ctx, f.admin, in)
	require.NoError(t, err)

	in.EntryDate = march1.AddDate(0, 0, 20)
	_, err = f.svc.CreateEntry(ctx, f.admin, in)
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	// daily в тот же день не конфликтует с monthly
	_, err = f.svc.CreateEntry(ctx, f.admin, f.input(f.u1, march1, "1", "2"))
	assert.NoError(t, err)
}

func TestCreateEntry_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateEntry(ctx, f.admin, CreateInput{EntryFrequency: models.FrequencyDaily})
	var appErr *apperrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperrors.KindValidation, appErr.Kind)
	assert.Equal(t, "required", appErr.Fields["UnitID"])
	assert.Equal(t, "required", appErr.Fields["EntryDate"])
	assert.Equal(t, "required", appErr.Fields["Items"])

	in := f.input(f.u1, march1, "1", "2")
	in.Items[0].IndicatorID = uuid.New()
	_, err = f.svc.CreateEntry(ctx, f.admin, in)
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "exists", appErr.Fields["Items[0].IndicatorID"])

	in = f.input(f.u1, march1, "1", "2")
	in.EntryFrequency = "weekly"
	_, err = f.svc.CreateEntry(ctx, f.admin, in)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	in = f.input(f.u1, march1, "1", "2")
	in.Items = append(in.Items, in.Items[0])
	_, err = f.svc.CreateEntry(ctx, f.admin, in)
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "unique", appErr.Fields["Items[1].IndicatorID"])
}

func TestCreateEntry_OutsideScope(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateEntry(context.Background(), f.user, f.input(f.u2, march1, "1", "2"))
	assert.ErrorIs(t, err, apperrors.ErrAuthorization)
}

func TestSetStatus_FinishIsTerminalForEveryRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.create(t, f.u1, march1)

	_, err := f.svc.SetStatus(ctx, f.auditor, e.ID, StatusInput{Status: models.StatusFinish})
	require.NoError(t, err)

	for _, actor := range []models.Actor{f.user, f.manager, f.auditor, f.admin} {
		_, err := f.svc.SetStatus(ctx, actor, e.ID, StatusInput{Status: models.StatusChecked})
		assert.ErrorIs(t, err, apperrors.ErrConflict, "set status as %s", actor.Role)

		_, err = f.svc.UpdateEntry(ctx, actor, e.ID, UpdateInput{Notes: ptr("late fix")})
		assert.ErrorIs(t, err, apperrors.ErrConflict, "update as %s", actor.Role)
	}

	assert.ErrorIs(t, f.svc.DeleteEntry(ctx, f.admin, e.ID), apperrors.ErrConflict)
}

func TestSetStatus_RoleNotAllowed(t *testing.T) {
	f := newFixture(t)
	e := f.create(t, f.u1, march1)

	_, err := f.svc.SetStatus(context.Background(), f.manager, e.ID, StatusInput{Status: models.StatusFinish})

	assert.ErrorIs(t, err, apperrors.ErrAuthorization)
	assert.Contains(t, err.Error(), "checked, pending")
}

func TestSetStatus_ManagerHeadedUnitOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	onU1 := f.create(t, f.u1, march1)
	onU2 := f.create(t, f.u2, march1)

	_, err := f.svc.SetStatus(ctx, f.manager, onU1.ID, StatusInput{Status: models.StatusChecked})
	assert.NoError(t, err)

	_, err = f.svc.SetStatus(ctx, f.manager, onU2.ID, StatusInput{Status: models.StatusChecked})
	assert.ErrorIs(t, err, apperrors.ErrAuthorization)

	// после назначения менеджером divA доступен и u2
	f.h.Managers[f.divA] = f.managerEmpl
	_, err = f.svc.SetStatus(ctx, f.manager, onU2.ID, StatusInput{Status: models.StatusChecked})
	assert.NoError(t, err)
}

func TestSetStatus_WritesLogAndFlags(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.create(t, f.u1, march1)
	other := f.create(t, f.u2, march1)
	itemID := e.Items[0].ID

	updated, err := f.svc.SetStatus(ctx, f.manager, e.ID, StatusInput{
		Status:       models.StatusPending,
		Notes:        "perlu PDCA",
		AuditorNotes: ptr("cek ulang"),
		Items: []ItemFlags{
			{ItemID: itemID, IsAlreadyChecked: ptr(true), NeedsCorrectiveAction: ptr(false)},
			{ItemID: other.Items[0].ID, IsAlreadyChecked: ptr(true)},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, models.StatusPending, updated.Status)
	assert.Equal(t, "cek ulang", updated.AuditorNotes)
	assert.True(t, updated.Items[0].IsAlreadyChecked)
	assert.False(t, updated.Items[0].NeedsCorrectiveAction)

	untouched, err := f.svc.GetEntry(ctx, f.admin, other.ID)
	require.NoError(t, err)
	assert.False(t, untouched.Items[0].IsAlreadyChecked)

	logs, err := f.svc.VerificationLogs(ctx, f.manager, e.ID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, models.StatusProposed, logs[0].PreviousStatus)
	assert.Equal(t, models.StatusPending, logs[0].NewStatus)
	assert.Equal(t, "perlu PDCA", logs[0].Notes)
	assert.Equal(t, f.manager.UserID, logs[0].ActorID)
}

func TestSetStatus_LostRace(t *testing.T) {
	f := newFixture(t)
	e := f.create(t, f.u1, march1)

	// другой запрос успел перевести запись между чтением и записью
	f.store.st.beforeUpdateStatus = func(st *memState) {
		st.entries[e.ID].Status = models.StatusChecked
		st.beforeUpdateStatus = nil
	}

	_, err := f.svc.SetStatus(context.Background(), f.manager, e.ID, StatusInput{Status: models.StatusPending})

	assert.ErrorIs(t, err, apperrors.ErrConflict)
	assert.Empty(t, f.store.st.logs)
}

func TestSetStatus_AtomicWithFlags(t *testing.T) {
	f := newFixture(t)
	e := f.create(t, f.u1, march1)
	f.store.st.failItemFlags = errors.New("deadlock detected")

	_, err := f.svc.SetStatus(context.Background(), f.manager, e.ID, StatusInput{
		Status: models.StatusChecked,
		Items:  []ItemFlags{{ItemID: e.Items[0].ID, IsAlreadyChecked: ptr(true)}},
	})
	require.Error(t, err)

	got, err := f.svc.GetEntry(context.Background(), f.admin, e.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusProposed, got.Status)
	assert.Empty(t, f.store.st.logs)
}

func TestSetStatus_NotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.SetStatus(context.Background(), f.admin, uuid.New(), StatusInput{Status: models.StatusChecked})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestGetEntry_HiddenOutsideScope(t *testing.T) {
	f := newFixture(t)
	e := f.create(t, f.u2, march1)

	_, err := f.svc.GetEntry(context.Background(), f.user, e.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	got, err := f.svc.GetEntry(context.Background(), f.auditor, e.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	require.NotNil(t, got.Items[0].Indicator)
	assert.Equal(t, "IND-01", got.Items[0].Indicator.Code)
}

func TestUpdateEntry_ReplacesItems(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.create(t, f.u1, march1)
	oldItem := e.Items[0].ID

	updated, err := f.svc.UpdateEntry(ctx, f.user, e.ID, UpdateInput{
		Notes: ptr("revisi"),
		Items: []ItemInput{{IndicatorID: f.indicator.ID, NumeratorValue: num("5"), DenominatorValue: num("500")}},
	})
	require.NoError(t, err)

	assert.Equal(t, "revisi", updated.Notes)
	assert.Equal(t, models.StatusProposed, updated.Status)
	require.Len(t, updated.Items, 1)
	assert.NotEqual(t, oldItem, updated.Items[0].ID)
	assert.False(t, updated.Items[0].NeedsCorrectiveAction)
	assert.True(t, updated.Items[0].Score.Decimal.Equal(decimal.NewFromInt(100)))
}

func TestUpdateEntry_PeriodCollision(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.create(t, f.u1, march1)
	second := f.create(t, f.u1, march1.AddDate(0, 0, 1))

	_, err := f.svc.UpdateEntry(ctx, f.admin, second.ID, UpdateInput{EntryDate: ptr(march1)})
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	_, err = f.svc.UpdateEntry(ctx, f.user, uuid.New(), UpdateInput{Notes: ptr("x")})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestDeleteEntry_FreesPeriod(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.create(t, f.u1, march1)

	require.NoError(t, f.svc.DeleteEntry(ctx, f.user, e.ID))

	_, err := f.svc.GetEntry(ctx, f.admin, e.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	again := f.create(t, f.u1, march1)
	assert.Equal(t, "NM/20240301/00002", again.EntryCode)
}

func TestListEntries_Scoped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.create(t, f.u1, march1)
	f.create(t, f.u2, march1)

	page, err := f.svc.ListEntries(ctx, f.user, ListInput{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.Total)

	page, err = f.svc.ListEntries(ctx, f.user, ListInput{UnitID: ptr(f.u2)})
	require.NoError(t, err)
	assert.Empty(t, page.Items)

	page, err = f.svc.ListEntries(ctx, f.auditor, ListInput{Statuses: []models.EntryStatus{models.StatusProposed}})
	require.NoError(t, err)
	assert.EqualValues(t, 2, page.Total)
}

func TestListForVerification(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.create(t, f.u1, march1)
	f.create(t, f.u2, march1)

	_, err := f.svc.ListForVerification(ctx, f.user, VerificationInput{})
	assert.ErrorIs(t, err, apperrors.ErrAuthorization)

	page, err := f.svc.ListForVerification(ctx, f.manager, VerificationInput{DivisionID: ptr(f.divA)})
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.Total, "manager division filter does not widen scope")

	page, err = f.svc.ListForVerification(ctx, f.admin, VerificationInput{DivisionID: ptr(uuid.New())})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
}

type countingInvalidator struct {
	calls int
	err   error
}

func (c *countingInvalidator) InvalidateReports(context.Context) error {
	c.calls++
	return c.err
}

func TestMutationsInvalidateReports(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv := &countingInvalidator{}
	WithReportInvalidator(inv)(f.svc)

	e := f.create(t, f.u1, march1)
	assert.Equal(t, 1, inv.calls)

	_, err := f.svc.UpdateEntry(ctx, f.user, e.ID, UpdateInput{Notes: ptr("revisi")})
	require.NoError(t, err)
	assert.Equal(t, 2, inv.calls)

	_, err = f.svc.SetStatus(ctx, f.manager, e.ID, StatusInput{Status: models.StatusChecked})
	require.NoError(t, err)
	assert.Equal(t, 3, inv.calls)

	require.NoError(t, f.svc.DeleteEntry(ctx, f.admin, e.ID))
	assert.Equal(t, 4, inv.calls)

	// отказ без изменений кэш не трогает
	_, err = f.svc.UpdateEntry(ctx, f.user, uuid.New(), UpdateInput{Notes: ptr("x")})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Equal(t, 4, inv.calls)
}

func TestInvalidateFailureDoesNotFailWrite(t *testing.T) {
	f := newFixture(t)
	WithReportInvalidator(&countingInvalidator{err: errors.New("redis down")})(f.svc)

	e, err := f.svc.CreateEntry(context.Background(), f.admin, f.input(f.u1, march1, "1", "100"))
	require.NoError(t, err)
	assert.NotEmpty(t, e.EntryCode)
}
