//go:build integration

package database

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"simutu-ng/internal/achievement"
	"simutu-ng/internal/apperrors"
	"simutu-ng/internal/entries"
	"simutu-ng/internal/entrycode"
	"simutu-ng/internal/models"
	"simutu-ng/internal/reports"
)

func startPostgres(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "simutu",
				"POSTGRES_PASSWORD": "simutu",
				"POSTGRES_DB":       "simutu",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(90 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("host=%s port=%s user=simutu password=simutu dbname=simutu sslmode=disable", host, port.Port())
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	return db
}

type seed struct {
	site, division, unit uuid.UUID
	head                 uuid.UUID
	indicator            models.Indicator
}

func seedOrg(t *testing.T, db *gorm.DB) seed {
	t.Helper()

	site := models.Site{Name: "RS Uji"}
	require.NoError(t, db.Create(&site).Error)
	head := models.Employee{FullName: "dr. Budi"}
	require.NoError(t, db.Create(&head).Error)
	division := models.Division{SiteID: &site.ID, Name: "Medis", ManagerID: &head.ID}
	require.NoError(t, db.Create(&division).Error)
	unit := models.Unit{SiteID: &site.ID, DivisionID: &division.ID, Name: "IGD", UnitCode: "IGD", HeadOfUnitID: &head.ID}
	require.NoError(t, db.Create(&unit).Error)

	ind := models.Indicator{
		Code:               "IND-01",
		Title:              "Waktu tanggap IGD",
		Target:             decimal.NewNullDecimal(decimal.NewFromInt(2)),
		TargetComparator:   achievement.Less,
		CalculationFormula: achievement.FormulaPercentage,
		TargetWeight:       decimal.NewNullDecimal(decimal.NewFromInt(10)),
		EntryFrequency:     models.FrequencyMonthly,
		IsActive:           true,
	}
	require.NoError(t, db.Create(&ind).Error)
	require.NoError(t, db.Create(&models.IndicatorUnit{IndicatorID: ind.ID, UnitID: unit.ID}).Error)

	return seed{site: site.ID, division: division.ID, unit: unit.ID, head: head.ID, indicator: ind}
}

func newEntry(s seed, code string, date time.Time) *models.IndicatorEntry {
	return &models.IndicatorEntry{
		EntryCode:      code,
		UnitID:         s.unit,
		EntryDate:      date,
		EntryFrequency: models.FrequencyMonthly,
		PeriodKey:      models.PeriodKey(models.FrequencyMonthly, date),
		Status:         models.StatusProposed,
		CreatedBy:      uuid.New(),
		Items: []models.IndicatorEntryItem{{
			IndicatorID:           s.indicator.ID,
			NumeratorValue:        decimal.NewNullDecimal(decimal.NewFromInt(5)),
			DenominatorValue:      decimal.NewNullDecimal(decimal.NewFromInt(100)),
			Achievement:           decimal.NewNullDecimal(decimal.NewFromInt(5)),
			NeedsCorrectiveAction: true,
		}},
	}
}

func TestEntryStore_Constraints(t *testing.T) {
	db := startPostgres(t)
	s := seedOrg(t, db)
	store := NewEntryStore(db)
	ctx := context.Background()
	march := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)

	first := newEntry(s, "NM/20240301/00001", march)
	require.NoError(t, store.InsertEntry(ctx, first))

	err := store.InsertEntry(ctx, newEntry(s, "NM/20240301/00001", march.AddDate(0, 1, 0)))
	assert.ErrorIs(t, err, entrycode.ErrCodeTaken)

	err = store.InsertEntry(ctx, newEntry(s, "NM/20240301/00002", march.AddDate(0, 0, 10)))
	assert.ErrorIs(t, err, entries.ErrDuplicatePeriod)

	// после мягкого удаления период свободен, а код остаётся занят
	ok, err := store.SoftDeleteEntry(ctx, first.ID)
	require.NoError(t, err)
	require.True(t, ok)

	last, err := store.LastEntryCode(ctx, "NM/20240301/")
	require.NoError(t, err)
	assert.Equal(t, "NM/20240301/00001", last)

	require.NoError(t, store.InsertEntry(ctx, newEntry(s, "NM/20240301/00002", march)))

	got, err := store.GetEntry(ctx, first.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestEntryStore_StatusCAS(t *testing.T) {
	db := startPostgres(t)
	s := seedOrg(t, db)
	store := NewEntryStore(db)
	ctx := context.Background()

	entry := newEntry(s, "NM/20240401/00001", time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, store.InsertEntry(ctx, entry))

	err := store.Transaction(ctx, func(tx entries.Store) error {
		ok, err := tx.UpdateStatus(ctx, entries.StatusChange{
			EntryID: entry.ID, From: models.StatusProposed, To: models.StatusChecked, UpdatedBy: uuid.New(),
		})
		require.NoError(t, err)
		require.True(t, ok)
		return tx.InsertVerificationLog(ctx, &models.VerificationLog{
			EntryID: entry.ID, PreviousStatus: models.StatusProposed, NewStatus: models.StatusChecked,
			ActorID: uuid.New(), ActorRole: models.RoleManager,
		})
	})
	require.NoError(t, err)

	ok, err := store.UpdateStatus(ctx, entries.StatusChange{
		EntryID: entry.ID, From: models.StatusProposed, To: models.StatusPending, UpdatedBy: uuid.New(),
	})
	require.NoError(t, err)
	assert.False(t, ok)

	logs, err := store.ListVerificationLogs(ctx, entry.ID)
	require.NoError(t, err)
	assert.Len(t, logs, 1)

	got, err := store.GetEntry(ctx, entry.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	require.NotNil(t, got.Items[0].Indicator)
	assert.Equal(t, models.StatusChecked, got.Status)
}

func TestEntryStore_ReplaceItemsWithPDCA(t *testing.T) {
	db := startPostgres(t)
	s := seedOrg(t, db)
	store := NewEntryStore(db)
	pdcas := NewPDCAStore(db)
	ctx := context.Background()

	entry := newEntry(s, "NM/20240601/00001", time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, store.InsertEntry(ctx, entry))

	p := &models.PDCA{
		EntryItemID:  entry.Items[0].ID,
		PDCADate:     time.Date(2024, time.June, 3, 0, 0, 0, 0, time.UTC),
		ProblemTitle: "Waktu tanggap melebihi target",
		CreatedBy:    uuid.New(),
	}
	require.NoError(t, pdcas.InsertPDCA(ctx, p))

	replacement := []models.IndicatorEntryItem{{
		IndicatorID:      s.indicator.ID,
		NumeratorValue:   decimal.NewNullDecimal(decimal.NewFromInt(1)),
		DenominatorValue: decimal.NewNullDecimal(decimal.NewFromInt(100)),
	}}

	// живой PDCA блокирует замену пунктов
	err := store.ReplaceItems(ctx, entry.ID, replacement)
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	got, err := store.GetEntry(ctx, entry.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, entry.Items[0].ID, got.Items[0].ID)

	// после мягкого удаления PDCA замена проходит, а строка PDCA удаляется
	require.NoError(t, pdcas.SoftDeletePDCA(ctx, p.ID))
	require.NoError(t, store.ReplaceItems(ctx, entry.ID, replacement))

	got, err = store.GetEntry(ctx, entry.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.NotEqual(t, entry.Items[0].ID, got.Items[0].ID)

	var left int64
	require.NoError(t, db.Unscoped().Model(&models.PDCA{}).Where("id = ?", p.ID).Count(&left).Error)
	assert.Zero(t, left)
}

func TestHierarchyAndReports(t *testing.T) {
	db := startPostgres(t)
	s := seedOrg(t, db)
	ctx := context.Background()

	h := NewHierarchyStore(db)
	managed, err := h.DivisionsManagedBy(ctx, s.head)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{s.division}, managed)

	units, err := h.UnitsOfDivision(ctx, s.division)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{s.unit}, units)

	require.NoError(t, NewEntryStore(db).InsertEntry(ctx,
		newEntry(s, "NM/20240501/00001", time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC))))

	src := NewReportStore(db)
	assignments, err := src.Assignments(ctx, reports.AssignmentQuery{AllUnits: true, Frequency: models.FrequencyMonthly})
	require.NoError(t, err)
	require.Len(t, assignments, 1)
	assert.Equal(t, "IGD", assignments[0].UnitName)
	assert.Equal(t, "IND-01", assignments[0].Indicator.Code)

	list, err := src.EntriesWithItems(ctx, reports.EntryQuery{
		UnitIDs:   []uuid.UUID{s.unit},
		Frequency: models.FrequencyMonthly,
		From:      time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		To:        time.Date(2024, time.December, 31, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Len(t, list[0].Items, 1)

	flagged, err := NewPDCAStore(db).FlaggedItems(ctx, true, nil)
	require.NoError(t, err)
	require.Len(t, flagged, 1)
	assert.Equal(t, "IGD", flagged[0].UnitName)
	assert.False(t, flagged[0].HasPDCA)
}
