package entries

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"simutu-ng/internal/access"
	"simutu-ng/internal/apperrors"
	"simutu-ng/internal/models"
)

// СМЕНА СТАТУСА

// SetStatus: finish -> Conflict для любой роли; затем роль и область видимости.
// Статус, журнал верификации и флаги пунктов пишутся одной транзакцией.
func (s *Service) SetStatus(ctx context.Context, actor models.Actor, id uuid.UUID, in StatusInput) (*models.IndicatorEntry, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, apperrors.FromValidator(err)
	}

	entry, err := s.store.GetEntry(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get entry: %w", err)
	}
	if entry == nil {
		return nil, apperrors.NotFound("запись не найдена")
	}
	if entry.Status == models.StatusFinish {
		return nil, finished()
	}

	capability := access.CapabilityOf(actor.Role)
	if !capability.AllowsStatus(in.Status) {
		return nil, apperrors.Authorization(fmt.Sprintf(
			"роль %s может устанавливать только статусы: %s", actor.Role, joinStatuses(capability.Statuses)))
	}

	scope, err := s.resolver.AllowedUnits(ctx, actor)
	if err != nil {
		return nil, err
	}
	if !scope.Contains(entry.UnitID) {
		return nil, apperrors.Authorization("запись вне вашей зоны ответственности")
	}

	flags := ownFlags(entry, in.Items)
	previous := entry.Status

	err = s.store.Transaction(ctx, func(tx Store) error {
		ok, err := tx.UpdateStatus(ctx, StatusChange{
			EntryID:      entry.ID,
			From:         previous,
			To:           in.Status,
			UpdatedBy:    actor.UserID,
			AuditorNotes: in.AuditorNotes,
		})
		if err != nil {
			return err
		}
		if !ok {
			return apperrors.Conflict("статус записи изменился, обновите данные")
		}

		if err := tx.InsertVerificationLog(ctx, &models.VerificationLog{
			EntryID:        entry.ID,
			PreviousStatus: previous,
			NewStatus:      in.Status,
			Notes:          in.Notes,
			ActorID:        actor.UserID,
			ActorRole:      actor.Role,
		}); err != nil {
			return fmt.Errorf("insert verification log: %w", err)
		}

		if len(flags) > 0 {
			if err := tx.UpdateItemFlags(ctx, entry.ID, flags); err != nil {
				return fmt.Errorf("update item flags: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"module":  "entries",
		"func":    "SetStatus",
		"entryId": entry.ID,
		"from":    previous,
		"to":      in.Status,
		"actor":   actor.UserID,
	}).Info("entry status changed")

	s.changed(ctx, entry.ID)
	s.activity.Log(ctx, actor, entityEntry, entry.ID.String(), "status_change",
		fmt.Sprintf("%s: %s -> %s", entry.EntryCode, previous, in.Status))

	updated, err := s.store.GetEntry(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get entry: %w", err)
	}
	return updated, nil
}

func joinStatuses(list []models.EntryStatus) string {
	parts := make([]string, len(list))
	for i, st := range list {
		parts[i] = string(st)
	}
	return strings.Join(parts, ", ")
}

// ownFlags отбрасывает флаги для пунктов чужих записей
func ownFlags(entry *models.IndicatorEntry, flags []ItemFlags) []ItemFlags {
	if len(flags) == 0 {
		return nil
	}
	own := make(map[uuid.UUID]bool, len(entry.Items))
	for _, item := range entry.Items {
		own[item.ID] = true
	}

	out := make([]ItemFlags, 0, len(flags))
	for _, f := range flags {
		if own[f.ItemID] && (f.IsAlreadyChecked != nil || f.NeedsCorrectiveAction != nil) {
			out = append(out, f)
		}
	}
	return out
}

// ЖУРНАЛ И ОЧЕРЕДЬ ВЕРИФИКАЦИИ

func (s *Service) VerificationLogs(ctx context.Context, actor models.Actor, id uuid.UUID) ([]models.VerificationLog, error) {
	if _, err := s.visibleEntry(ctx, actor, id); err != nil {
		return nil, err
	}

	logs, err := s.store.ListVerificationLogs(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list verification logs: %w", err)
	}
	return logs, nil
}

// ListForVerification отдаёт очередь для manager/auditor/admin; фильтр по division
// работает только для ролей с CanFilterByOrg
func (s *Service) ListForVerification(ctx context.Context, actor models.Actor, in VerificationInput) (*Page, error) {
	if !access.CapabilityOf(actor.Role).CanVerify {
		return nil, apperrors.Authorization("верификация доступна только manager, auditor и admin")
	}

	var requested []uuid.UUID
	if in.UnitID != nil {
		requested = []uuid.UUID{*in.UnitID}
	}

	scope, err := s.resolver.Narrow(ctx, actor, access.Filter{UnitIDs: requested, DivisionID: in.DivisionID})
	if err != nil {
		return nil, err
	}

	return s.list(ctx, scope, in.ListInput)
}
