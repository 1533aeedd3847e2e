package repository

import (
	"context"
	"time"

	"farmops/internal/domain/model"
	repo "farmops/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ScheduleGormRepository struct {
	db *gorm.DB
}

func NewScheduleGormRepository(db *gorm.DB) *ScheduleGormRepository {
	return &ScheduleGormRepository{db: db}
}

func (r *ScheduleGormRepository) Create(ctx context.Context, s model.Schedule) (model.Schedule, error) {
	if err := session(r.db, ctx).Create(&s).Error; err != nil {
		return model.Schedule{}, err
	}
	return s, nil
}

func (r *ScheduleGormRepository) FindByID(ctx context.Context, id int64) (model.Schedule, error) {
	var s model.Schedule
	if err := session(r.db, ctx).First(&s, id).Error; err != nil {
		return model.Schedule{}, translate(err)
	}
	return s, nil
}

func (r *ScheduleGormRepository) FindByIDForUpdate(ctx context.Context, id int64) (model.Schedule, error) {
	var s model.Schedule
	err := session(r.db, ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&s).Error
	if err != nil {
		return model.Schedule{}, translate(err)
	}
	return s, nil
}

func (r *ScheduleGormRepository) List(ctx context.Context, f repo.ScheduleListFilter) ([]model.Schedule, int64, error) {
	f.Page, f.Limit = pageOf(f.Page, f.Limit, 50, 100)

	q := session(r.db, ctx).Model(&model.Schedule{})
	if f.Type != nil {
		q = q.Where("type = ?", *f.Type)
	}
	if f.Status != nil {
		q = q.Where("status = ?", *f.Status)
	}
	if f.UserID != nil {
		q = q.Where("user_id = ?", *f.UserID)
	}
	if f.From != nil {
		q = q.Where("scheduled_on >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("scheduled_on <= ?", *f.To)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return []model.Schedule{}, 0, err
	}

	var items []model.Schedule
	offset := (f.Page - 1) * f.Limit
	if err := q.Order("scheduled_on asc").Order("id asc").Limit(f.Limit).Offset(offset).Find(&items).Error; err != nil {
		return []model.Schedule{}, 0, err
	}
	return items, total, nil
}

func (r *ScheduleGormRepository) UpdateStatus(ctx context.Context, id int64, status model.ScheduleStatus) error {
	res := session(r.db, ctx).Model(&model.Schedule{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *ScheduleGormRepository) UpdateScheduledOn(ctx context.Context, id int64, scheduledOn time.Time) error {
	res := session(r.db, ctx).Model(&model.Schedule{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"scheduled_on": scheduledOn,
			"updated_at":   time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *ScheduleGormRepository) Delete(ctx context.Context, id int64) error {
	res := session(r.db, ctx).Delete(&model.Schedule{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}
