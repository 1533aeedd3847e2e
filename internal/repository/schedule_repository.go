package repository

import (
	"context"
	"time"

	"farmops/internal/domain/model"
)

type ScheduleListFilter struct {
	Page   int
	Limit  int
	Type   *model.ScheduleType
	Status *model.ScheduleStatus
	UserID *int64
	From   *time.Time
	To     *time.Time
}

type ScheduleRepository interface {
	Create(ctx context.Context, s model.Schedule) (model.Schedule, error)
	FindByID(ctx context.Context, id int64) (model.Schedule, error)

	// 行ロック付きで取得（二重キャンセル対策）
	FindByIDForUpdate(ctx context.Context, id int64) (model.Schedule, error)

	// scheduled_on昇順
	List(ctx context.Context, f ScheduleListFilter) ([]model.Schedule, int64, error)

	UpdateStatus(ctx context.Context, id int64, status model.ScheduleStatus) error
	UpdateScheduledOn(ctx context.Context, id int64, scheduledOn time.Time) error
	Delete(ctx context.Context, id int64) error
}
