package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"farmops/internal/domain/model"
	"farmops/internal/logging"
	repo "farmops/internal/repository"

	"github.com/sirupsen/logrus"
)

type ScheduleUsecase struct {
	tx    repo.TransactionManager
	clock Clock
	ids   IDGenerator
	log   logrus.FieldLogger
}

func NewScheduleUsecase(tx repo.TransactionManager, clock Clock, ids IDGenerator, log logrus.FieldLogger) *ScheduleUsecase {
	return &ScheduleUsecase{tx: tx, clock: clock, ids: ids, log: log}
}

type CreateScheduleInput struct {
	Type        model.ScheduleType
	ScheduledOn time.Time
	UserID      *int64
	Notes       string
}

// POST /staff-schedules
// 配送はScheduleDeliveryで作る（在庫の引当が必要なため）
func (u *ScheduleUsecase) CreateSchedule(ctx context.Context, in CreateScheduleInput) (model.Schedule, error) {
	if !in.Type.Valid() {
		return model.Schedule{}, validationError("invalid type")
	}
	if in.Type == model.ScheduleTypeDelivery {
		return model.Schedule{}, validationError("deliveries are scheduled through the delivery endpoint")
	}
	if in.ScheduledOn.IsZero() {
		return model.Schedule{}, validationError("scheduled_on is required")
	}
	if in.UserID != nil && *in.UserID <= 0 {
		return model.Schedule{}, validationError("invalid user_id")
	}

	var out model.Schedule
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		s, err := r.Schedules().Create(ctx, model.Schedule{
			Type:        in.Type,
			Status:      model.ScheduleStatusPending,
			ScheduledOn: in.ScheduledOn,
			UserID:      in.UserID,
			Notes:       strings.TrimSpace(in.Notes),
		})
		out = s
		return err
	})
	if err != nil {
		return model.Schedule{}, u.fail("CreateSchedule", err)
	}
	return out, nil
}

type ScheduleListOutput struct {
	Schedules []model.Schedule `json:"schedules"`
	Total     int64            `json:"total"`
	Page      int              `json:"page"`
	Limit     int              `json:"limit"`
}

// GET /staff-schedules
func (u *ScheduleUsecase) ListSchedules(ctx context.Context, f repo.ScheduleListFilter) (ScheduleListOutput, error) {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Limit > 100 {
		return ScheduleListOutput{}, validationError("invalid limit")
	}
	if f.Type != nil && !f.Type.Valid() {
		return ScheduleListOutput{}, validationError("invalid type")
	}
	if f.Status != nil && !f.Status.Valid() {
		return ScheduleListOutput{}, validationError("invalid status")
	}

	out := ScheduleListOutput{Page: f.Page, Limit: f.Limit}
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		items, total, err := r.Schedules().List(ctx, f)
		out.Schedules = items
		out.Total = total
		return err
	})
	if err != nil {
		return ScheduleListOutput{}, u.fail("ListSchedules", err)
	}
	return out, nil
}

// GET /schedules/:id
func (u *ScheduleUsecase) GetSchedule(ctx context.Context, id int64) (model.Schedule, error) {
	if id <= 0 {
		return model.Schedule{}, validationError("invalid id")
	}
	var out model.Schedule
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		s, err := r.Schedules().FindByID(ctx, id)
		if errors.Is(err, repo.ErrNotFound) {
			return notFound(CodeScheduleNotFound, "schedule not found")
		}
		out = s
		return err
	})
	if err != nil {
		return model.Schedule{}, u.fail("GetSchedule", err)
	}
	return out, nil
}

// DELETE /schedules/:id
// 未完了の配送ならキャンセルと同じく引当を戻してから、注文の紐付けを外して消す
func (u *ScheduleUsecase) DeleteSchedule(ctx context.Context, actorUserID int64, id int64) error {
	if id <= 0 {
		return validationError("invalid id")
	}
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		s, err := r.Schedules().FindByIDForUpdate(ctx, id)
		if errors.Is(err, repo.ErrNotFound) {
			return notFound(CodeScheduleNotFound, "schedule not found")
		}
		if err != nil {
			return err
		}

		if s.Type == model.ScheduleTypeDelivery {
			if !s.Status.IsTerminal() {
				released, err := releaseScheduleOrders(ctx, r, u.clock, id, u.ids.NewID(), "delivery schedule deleted")
				if err != nil {
					return err
				}
				if err := writeAudit(ctx, r, actorUserID, model.AuditActionCancelDelivery, model.AuditResourceSchedule, id,
					map[string]string{"status": string(s.Status)},
					map[string]any{"deleted": true, "released_orders": released},
					u.clock.Now()); err != nil {
					return err
				}
			}
			if err := r.Orders().ClearSchedule(ctx, id); err != nil {
				return err
			}
		}
		return r.Schedules().Delete(ctx, id)
	})
	if err != nil {
		return u.fail("DeleteSchedule", err)
	}
	return nil
}

func (u *ScheduleUsecase) fail(funcName string, err error) error {
	err = storeError(err)
	if ue, ok := AsError(err); ok && (ue.Kind == KindInternal || ue.Kind == KindStoreUnavailable) {
		logging.LogError(u.log, "schedule", funcName, "transaction", nil, err)
	}
	return err
}
