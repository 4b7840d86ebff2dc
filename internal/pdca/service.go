package pdca

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"simutu-ng/internal/access"
	"simutu-ng/internal/apperrors"
	"simutu-ng/internal/models"
)

const entityPDCA = "pdca"

type CreateInput struct {
	EntryItemID  uuid.UUID `json:"entryItemId" validate:"required"`
	PDCADate     time.Time `json:"pdcaDate" validate:"required"`
	ProblemTitle string    `json:"problemTitle" validate:"required"`
	Step         string    `json:"step"`
	Plan         string    `json:"plan"`
	Do           string    `json:"do"`
	CheckStudy   string    `json:"checkStudy"`
	Action       string    `json:"action"`
}

type UpdateInput struct {
	PDCADate     *time.Time `json:"pdcaDate"`
	ProblemTitle *string    `json:"problemTitle" validate:"omitnil,min=1"`
	Step         *string    `json:"step"`
	Plan         *string    `json:"plan"`
	Do           *string    `json:"do"`
	CheckStudy   *string    `json:"checkStudy"`
	Action       *string    `json:"action"`
}

type Service struct {
	store    Store
	resolver *access.Resolver
	activity ActivityLogger
	validate *validator.Validate
}

func NewService(store Store, resolver *access.Resolver, activity ActivityLogger) *Service {
	return &Service{store: store, resolver: resolver, activity: activity, validate: validator.New()}
}

func (s *Service) visibleItem(ctx context.Context, actor models.Actor, itemID uuid.UUID) (*ItemRef, error) {
	ref, err := s.store.GetItemRef(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("get item ref: %w", err)
	}
	if ref == nil {
		return nil, apperrors.NotFound("пункт записи не найден")
	}

	scope, err := s.resolver.AllowedUnits(ctx, actor)
	if err != nil {
		return nil, err
	}
	if !scope.Contains(ref.UnitID) {
		return nil, apperrors.NotFound("пункт записи не найден")
	}
	return ref, nil
}

func (s *Service) visiblePDCA(ctx context.Context, actor models.Actor, id uuid.UUID) (*models.PDCA, error) {
	p, err := s.store.GetPDCA(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get pdca: %w", err)
	}
	if p == nil {
		return nil, apperrors.NotFound("PDCA не найден")
	}
	if _, err := s.visibleItem(ctx, actor, p.EntryItemID); err != nil {
		return nil, apperrors.NotFound("PDCA не найден")
	}
	return p, nil
}

func (s *Service) Create(ctx context.Context, actor models.Actor, in CreateInput) (*models.PDCA, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, apperrors.FromValidator(err)
	}
	if _, err := s.visibleItem(ctx, actor, in.EntryItemID); err != nil {
		return nil, err
	}

	p := &models.PDCA{
		EntryItemID:  in.EntryItemID,
		PDCADate:     in.PDCADate,
		ProblemTitle: in.ProblemTitle,
		Step:         in.Step,
		Plan:         in.Plan,
		Do:           in.Do,
		CheckStudy:   in.CheckStudy,
		Action:       in.Action,
		CreatedBy:    actor.UserID,
	}
	if err := s.store.InsertPDCA(ctx, p); err != nil {
		return nil, fmt.Errorf("insert pdca: %w", err)
	}

	s.activity.Log(ctx, actor, entityPDCA, p.ID.String(), "create", p.ProblemTitle)
	return p, nil
}

func (s *Service) Get(ctx context.Context, actor models.Actor, id uuid.UUID) (*models.PDCA, error) {
	return s.visiblePDCA(ctx, actor, id)
}

func (s *Service) Update(ctx context.Context, actor models.Actor, id uuid.UUID, in UpdateInput) (*models.PDCA, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, apperrors.FromValidator(err)
	}
	p, err := s.visiblePDCA(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if in.PDCADate != nil {
		p.PDCADate = *in.PDCADate
	}
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&p.ProblemTitle, in.ProblemTitle)
	set(&p.Step, in.Step)
	set(&p.Plan, in.Plan)
	set(&p.Do, in.Do)
	set(&p.CheckStudy, in.CheckStudy)
	set(&p.Action, in.Action)
	updatedBy := actor.UserID
	p.UpdatedBy = &updatedBy

	if err := s.store.UpdatePDCA(ctx, p); err != nil {
		return nil, fmt.Errorf("update pdca: %w", err)
	}

	s.activity.Log(ctx, actor, entityPDCA, p.ID.String(), "update", p.ProblemTitle)
	return p, nil
}

func (s *Service) Delete(ctx context.Context, actor models.Actor, id uuid.UUID) error {
	p, err := s.visiblePDCA(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.store.SoftDeletePDCA(ctx, id); err != nil {
		return fmt.Errorf("soft delete pdca: %w", err)
	}
	s.activity.Log(ctx, actor, entityPDCA, id.String(), "delete", p.ProblemTitle)
	return nil
}

func (s *Service) ListByItem(ctx context.Context, actor models.Actor, itemID uuid.UUID) ([]models.PDCA, error) {
	if _, err := s.visibleItem(ctx, actor, itemID); err != nil {
		return nil, err
	}
	list, err := s.store.ListPDCAByItem(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("list pdca: %w", err)
	}
	return list, nil
}

// NeedsPDCA отдаёт пункты с флагом в зоне видимости актора; hasPdca показывает, заведён ли PDCA
func (s *Service) NeedsPDCA(ctx context.Context, actor models.Actor, unitID *uuid.UUID) ([]FlaggedItem, error) {
	var requested []uuid.UUID
	if unitID != nil {
		requested = []uuid.UUID{*unitID}
	}
	scope, err := s.resolver.Narrow(ctx, actor, access.Filter{UnitIDs: requested})
	if err != nil {
		return nil, err
	}
	if scope.Empty() {
		return []FlaggedItem{}, nil
	}

	items, err := s.store.FlaggedItems(ctx, scope.IsAll(), scope.UnitIDs())
	if err != nil {
		return nil, fmt.Errorf("flagged items: %w", err)
	}
	return items, nil
}
