package handlers

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"simutu-ng/internal/entries"
	"simutu-ng/internal/models"
	"simutu-ng/internal/pdca"
	"simutu-ng/internal/reports"
)

type EntryService interface {
	CreateEntry(ctx context.Context, actor models.Actor, in entries.CreateInput) (*models.IndicatorEntry, error)
	GetEntry(ctx context.Context, actor models.Actor, id uuid.UUID) (*models.IndicatorEntry, error)
	ListEntries(ctx context.Context, actor models.Actor, in entries.ListInput) (*entries.Page, error)
	UpdateEntry(ctx context.Context, actor models.Actor, id uuid.UUID, in entries.UpdateInput) (*models.IndicatorEntry, error)
	DeleteEntry(ctx context.Context, actor models.Actor, id uuid.UUID) error
	SetStatus(ctx context.Context, actor models.Actor, id uuid.UUID, in entries.StatusInput) (*models.IndicatorEntry, error)
	VerificationLogs(ctx context.Context, actor models.Actor, id uuid.UUID) ([]models.VerificationLog, error)
	ListForVerification(ctx context.Context, actor models.Actor, in entries.VerificationInput) (*entries.Page, error)
}

type ReportService interface {
	Daily(ctx context.Context, actor models.Actor, unitID uuid.UUID, date time.Time) (*reports.DetailReport, error)
	Monthly(ctx context.Context, actor models.Actor, unitID uuid.UUID, year int, month time.Month) (*reports.DetailReport, error)
	Range(ctx context.Context, actor models.Actor, unitID uuid.UUID, from, to time.Time, freq models.Frequency) (*reports.RangeReport, error)
	Yearly(ctx context.Context, actor models.Actor, q reports.YearlyQuery) (*reports.YearlyMatrix, error)
	Summary(ctx context.Context, actor models.Actor, q reports.SummaryQuery) ([]reports.UnitSummary, error)
}

type PDCAService interface {
	Create(ctx context.Context, actor models.Actor, in pdca.CreateInput) (*models.PDCA, error)
	Get(ctx context.Context, actor models.Actor, id uuid.UUID) (*models.PDCA, error)
	Update(ctx context.Context, actor models.Actor, id uuid.UUID, in pdca.UpdateInput) (*models.PDCA, error)
	Delete(ctx context.Context, actor models.Actor, id uuid.UUID) error
	ListByItem(ctx context.Context, actor models.Actor, itemID uuid.UUID) ([]models.PDCA, error)
	NeedsPDCA(ctx context.Context, actor models.Actor, unitID *uuid.UUID) ([]pdca.FlaggedItem, error)
}

type UserFinder interface {
	UserByUsername(ctx context.Context, username string) (*models.User, error)
}

type ActivityLogs interface {
	Log(ctx context.Context, actor models.Actor, entity, entityID, action, details string)
	ListActivityLogs(ctx context.Context, limit int) ([]models.ActivityLog, error)
}

type Deps struct {
	Entries  EntryService
	Reports  ReportService
	PDCA     PDCAService
	Users    UserFinder
	Activity ActivityLogs
	Logger   *logrus.Logger
}

type Handler struct {
	entries  EntryService
	reports  ReportService
	pdca     PDCAService
	users    UserFinder
	activity ActivityLogs
	logger   *logrus.Logger
}

func New(d Deps) *Handler {
	if d.Logger == nil {
		d.Logger = logrus.StandardLogger()
	}
	return &Handler{
		entries:  d.Entries,
		reports:  d.Reports,
		pdca:     d.PDCA,
		users:    d.Users,
		activity: d.Activity,
		logger:   d.Logger,
	}
}
