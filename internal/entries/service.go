package entries

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"simutu-ng/internal/access"
	"simutu-ng/internal/achievement"
	"simutu-ng/internal/apperrors"
	"simutu-ng/internal/entrycode"
	"simutu-ng/internal/models"
)

const entityEntry = "indicator_entry"

type Service struct {
	store    Store
	resolver *access.Resolver
	codes    *entrycode.Generator
	activity ActivityLogger
	reports  ReportInvalidator
	validate *validator.Validate
	logger   *logrus.Logger
}

type Option func(*Service)

func WithReportInvalidator(inv ReportInvalidator) Option {
	return func(s *Service) { s.reports = inv }
}

func NewService(store Store, resolver *access.Resolver, codes *entrycode.Generator, activity ActivityLogger, logger *logrus.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	s := &Service{
		store:    store,
		resolver: resolver,
		codes:    codes,
		activity: activity,
		validate: validator.New(),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// changed вызывается после каждой успешной записи; сбой сброса кэша только логируется
func (s *Service) changed(ctx context.Context, entryID uuid.UUID) {
	if s.reports == nil {
		return
	}
	if err := s.reports.InvalidateReports(ctx); err != nil {
		s.logger.WithFields(logrus.Fields{
			"module":  "entries",
			"func":    "changed",
			"entryId": entryID,
		}).WithError(err).Warn("failed to invalidate report cache")
	}
}

// СОЗДАНИЕ

func (s *Service) CreateEntry(ctx context.Context, actor models.Actor, in CreateInput) (*models.IndicatorEntry, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, apperrors.FromValidator(err)
	}

	scope, err := s.resolver.AllowedUnits(ctx, actor)
	if err != nil {
		return nil, err
	}
	if !scope.Contains(in.UnitID) {
		return nil, apperrors.Authorization("нет доступа к отделению")
	}

	items, err := s.buildItems(ctx, in.Items)
	if err != nil {
		return nil, err
	}

	date := dateOnly(in.EntryDate)
	periodKey := models.PeriodKey(in.EntryFrequency, date)

	existing, err := s.store.FindEntryByPeriod(ctx, in.UnitID, in.EntryFrequency, periodKey, nil)
	if err != nil {
		return nil, fmt.Errorf("find entry by period: %w", err)
	}
	if existing != nil {
		return nil, duplicatePeriod(nil)
	}

	entry := &models.IndicatorEntry{
		UnitID:         in.UnitID,
		EntryDate:      date,
		EntryFrequency: in.EntryFrequency,
		PeriodKey:      periodKey,
		Status:         models.StatusProposed,
		Notes:          in.Notes,
		CreatedBy:      actor.UserID,
		Items:          items,
	}

	_, err = s.codes.Create(ctx, date, func(code string) error {
		entry.EntryCode = code
		return s.store.Transaction(ctx, func(tx Store) error {
			return tx.InsertEntry(ctx, entry)
		})
	})
	if errors.Is(err, ErrDuplicatePeriod) {
		return nil, duplicatePeriod(err)
	}
	if err != nil {
		return nil, err
	}

	s.changed(ctx, entry.ID)
	s.activity.Log(ctx, actor, entityEntry, entry.ID.String(), "create", entry.EntryCode)

	return entry, nil
}

func duplicatePeriod(cause error) error {
	const msg = "запись за этот период уже существует"
	if cause != nil {
		return apperrors.ConflictWrap(msg, cause)
	}
	return apperrors.Conflict(msg)
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// buildItems проверяет индикаторы и считает пункты калькулятором
func (s *Service) buildItems(ctx context.Context, inputs []ItemInput) ([]models.IndicatorEntryItem, error) {
	ids := make([]uuid.UUID, 0, len(inputs))
	seen := make(map[uuid.UUID]bool, len(inputs))
	for i, in := range inputs {
		if seen[in.IndicatorID] {
			return nil, apperrors.Validation("индикатор указан дважды", map[string]string{
				fmt.Sprintf("Items[%d].IndicatorID", i): "unique",
			})
		}
		seen[in.IndicatorID] = true
		ids = append(ids, in.IndicatorID)
	}

	found, err := s.store.IndicatorsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("indicators by ids: %w", err)
	}
	byID := make(map[uuid.UUID]models.Indicator, len(found))
	for _, ind := range found {
		byID[ind.ID] = ind
	}

	items := make([]models.IndicatorEntryItem, 0, len(inputs))
	for i, in := range inputs {
		ind, ok := byID[in.IndicatorID]
		if !ok {
			return nil, apperrors.Validation("индикатор не найден", map[string]string{
				fmt.Sprintf("Items[%d].IndicatorID", i): "exists",
			})
		}

		res := achievement.Evaluate(achievement.Input{
			Numerator:   in.NumeratorValue,
			Denominator: in.DenominatorValue,
			Achievement: in.Achievement,
			Score:       in.Score,
		}, ind.Spec())

		items = append(items, models.IndicatorEntryItem{
			IndicatorID:           ind.ID,
			NumeratorValue:        in.NumeratorValue,
			DenominatorValue:      in.DenominatorValue,
			Achievement:           res.Achievement,
			Score:                 res.Score,
			NeedsCorrectiveAction: res.NeedsCorrectiveAction,
			Notes:                 in.Notes,
		})
	}

	return items, nil
}

// ЧТЕНИЕ

// visibleEntry отдаёт запись, только если актор может её видеть, иначе NotFound
func (s *Service) visibleEntry(ctx context.Context, actor models.Actor, id uuid.UUID) (*models.IndicatorEntry, error) {
	entry, err := s.store.GetEntry(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get entry: %w", err)
	}
	if entry == nil {
		return nil, apperrors.NotFound("запись не найдена")
	}

	scope, err := s.resolver.AllowedUnits(ctx, actor)
	if err != nil {
		return nil, err
	}
	if !scope.Contains(entry.UnitID) {
		return nil, apperrors.NotFound("запись не найдена")
	}

	return entry, nil
}

func (s *Service) GetEntry(ctx context.Context, actor models.Actor, id uuid.UUID) (*models.IndicatorEntry, error) {
	return s.visibleEntry(ctx, actor, id)
}

func (s *Service) ListEntries(ctx context.Context, actor models.Actor, in ListInput) (*Page, error) {
	var requested []uuid.UUID
	if in.UnitID != nil {
		requested = []uuid.UUID{*in.UnitID}
	}

	scope, err := s.resolver.Narrow(ctx, actor, access.Filter{UnitIDs: requested})
	if err != nil {
		return nil, err
	}

	return s.list(ctx, scope, in)
}

func (s *Service) list(ctx context.Context, scope access.Scope, in ListInput) (*Page, error) {
	if scope.Empty() {
		return &Page{Items: []models.IndicatorEntry{}}, nil
	}

	items, total, err := s.store.ListEntries(ctx, Query{
		AllUnits:  scope.IsAll(),
		UnitIDs:   scope.UnitIDs(),
		From:      in.From,
		To:        in.To,
		Frequency: in.Frequency,
		Statuses:  in.Statuses,
		Limit:     in.limit(),
		Offset:    in.Offset,
	})
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}

	return &Page{Items: items, Total: total}, nil
}

// ИЗМЕНЕНИЕ

func (s *Service) UpdateEntry(ctx context.Context, actor models.Actor, id uuid.UUID, in UpdateInput) (*models.IndicatorEntry, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, apperrors.FromValidator(err)
	}

	entry, err := s.visibleEntry(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if entry.Status == models.StatusFinish {
		return nil, finished()
	}

	var items []models.IndicatorEntryItem
	if in.Items != nil {
		if items, err = s.buildItems(ctx, in.Items); err != nil {
			return nil, err
		}
	}

	periodChanged := false
	if in.EntryDate != nil {
		entry.EntryDate = dateOnly(*in.EntryDate)
		periodChanged = true
	}
	if in.EntryFrequency != nil {
		entry.EntryFrequency = *in.EntryFrequency
		periodChanged = true
	}
	if in.Notes != nil {
		entry.Notes = *in.Notes
	}
	entry.PeriodKey = models.PeriodKey(entry.EntryFrequency, entry.EntryDate)
	updatedBy := actor.UserID
	entry.UpdatedBy = &updatedBy

	if periodChanged {
		other, err := s.store.FindEntryByPeriod(ctx, entry.UnitID, entry.EntryFrequency, entry.PeriodKey, &entry.ID)
		if err != nil {
			return nil, fmt.Errorf("find entry by period: %w", err)
		}
		if other != nil {
			return nil, duplicatePeriod(nil)
		}
	}

	err = s.store.Transaction(ctx, func(tx Store) error {
		ok, err := tx.UpdateEntryFields(ctx, entry)
		if err != nil {
			return err
		}
		if !ok {
			return finished()
		}
		if items != nil {
			return tx.ReplaceItems(ctx, entry.ID, items)
		}
		return nil
	})
	if errors.Is(err, ErrDuplicatePeriod) {
		return nil, duplicatePeriod(err)
	}
	if err != nil {
		return nil, err
	}

	s.changed(ctx, entry.ID)
	s.activity.Log(ctx, actor, entityEntry, entry.ID.String(), "update", entry.EntryCode)

	return s.visibleEntry(ctx, actor, id)
}

func finished() error {
	return apperrors.Conflict("запись завершена и не может быть изменена")
}

func (s *Service) DeleteEntry(ctx context.Context, actor models.Actor, id uuid.UUID) error {
	entry, err := s.visibleEntry(ctx, actor, id)
	if err != nil {
		return err
	}
	if entry.Status == models.StatusFinish {
		return finished()
	}

	ok, err := s.store.SoftDeleteEntry(ctx, id)
	if err != nil {
		return fmt.Errorf("soft delete entry: %w", err)
	}
	if !ok {
		return finished()
	}

	s.changed(ctx, id)
	s.activity.Log(ctx, actor, entityEntry, id.String(), "delete", entry.EntryCode)
	return nil
}
