package repository

import (
	"context"
	"time"

	"farmops/internal/domain/model"
	repo "farmops/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OrderGormRepository struct {
	db *gorm.DB
}

func NewOrderGormRepository(db *gorm.DB) *OrderGormRepository {
	return &OrderGormRepository{db: db}
}

func (r *OrderGormRepository) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	var o model.Order
	err := session(r.db, ctx).Where("id = ?", orderID).First(&o).Error
	if err != nil {
		return model.Order{}, translate(err)
	}
	return o, nil
}

// SELECT ... FOR UPDATE
func (r *OrderGormRepository) FindByIDForUpdate(ctx context.Context, orderID int64) (model.Order, error) {
	var o model.Order
	err := session(r.db, ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", orderID).
		First(&o).Error
	if err != nil {
		return model.Order{}, translate(err)
	}
	return o, nil
}

func (r *OrderGormRepository) Create(ctx context.Context, order model.Order) (int64, error) {
	if err := session(r.db, ctx).Create(&order).Error; err != nil {
		return 0, err
	}
	return order.ID, nil
}

func (r *OrderGormRepository) List(ctx context.Context, f repo.OrderListFilter) ([]model.Order, int64, error) {
	f.Page, f.Limit = pageOf(f.Page, f.Limit, 50, 100)

	q := session(r.db, ctx).Model(&model.Order{})

	//status 絞り込み
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}

	//customer_id 絞り込み
	if f.CustomerID != nil {
		q = q.Where("customer_id = ?", *f.CustomerID)
	}

	//配送日で期間絞り込み
	if f.From != nil {
		q = q.Where("delivery_date >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("delivery_date <= ?", *f.To)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return []model.Order{}, 0, err
	}

	var items []model.Order
	offset := (f.Page - 1) * f.Limit
	if err := q.Order("id desc").Limit(f.Limit).Offset(offset).Find(&items).Error; err != nil {
		return []model.Order{}, 0, err
	}

	return items, total, nil
}

func (r *OrderGormRepository) ListByScheduleID(ctx context.Context, scheduleID int64) ([]model.Order, error) {
	var orders []model.Order
	err := session(r.db, ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("schedule_id = ?", scheduleID).
		Order("id asc").
		Find(&orders).Error
	if err != nil {
		return []model.Order{}, err
	}
	return orders, nil
}

func (r *OrderGormRepository) CountOpenByCustomerID(ctx context.Context, customerID int64) (int64, error) {
	var count int64
	err := session(r.db, ctx).Model(&model.Order{}).
		Where("customer_id = ?", customerID).
		Where("status NOT IN ?", []model.OrderStatus{model.OrderStatusDelivered, model.OrderStatusCancelled}).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *OrderGormRepository) UpdateStatus(ctx context.Context, orderID int64, status model.OrderStatus) error {
	res := session(r.db, ctx).Model(&model.Order{}).
		Where("id = ?", orderID).
		Update("status", status)

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *OrderGormRepository) UpdateDelivery(ctx context.Context, orderID int64, deliveryDate time.Time, customerRequests string) error {
	res := session(r.db, ctx).Model(&model.Order{}).
		Where("id = ?", orderID).
		Updates(map[string]interface{}{
			"delivery_date":     deliveryDate,
			"customer_requests": customerRequests,
			"updated_at":        time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 予定に紐づく注文の配送日をまとめて変える（0件でもエラーにしない）
func (r *OrderGormRepository) UpdateDeliveryDateBySchedule(ctx context.Context, scheduleID int64, deliveryDate time.Time) error {
	return session(r.db, ctx).Model(&model.Order{}).
		Where("schedule_id = ?", scheduleID).
		Updates(map[string]interface{}{
			"delivery_date": deliveryDate,
			"updated_at":    time.Now(),
		}).Error
}

func (r *OrderGormRepository) ClearSchedule(ctx context.Context, scheduleID int64) error {
	return session(r.db, ctx).Model(&model.Order{}).
		Where("schedule_id = ?", scheduleID).
		Update("schedule_id", nil).Error
}

func (r *OrderGormRepository) Delete(ctx context.Context, orderID int64) error {
	res := session(r.db, ctx).Delete(&model.Order{}, orderID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}
