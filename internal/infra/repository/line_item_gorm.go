package repository

import (
	"context"
	"time"

	"farmops/internal/domain/model"
	repo "farmops/internal/repository"

	"gorm.io/gorm"
)

type LineItemGormRepository struct {
	db *gorm.DB
}

func NewLineItemGormRepository(db *gorm.DB) *LineItemGormRepository {
	return &LineItemGormRepository{db: db}
}

func (r *LineItemGormRepository) CreateBulk(ctx context.Context, orderID int64, items []model.LineItem) error {
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		items[i].OrderID = orderID
	}
	return session(r.db, ctx).Create(&items).Error
}

func (r *LineItemGormRepository) ListByOrderID(ctx context.Context, orderID int64) ([]model.LineItem, error) {
	var items []model.LineItem
	err := session(r.db, ctx).
		Where("order_id = ?", orderID).
		Order("id asc").
		Find(&items).Error
	if err != nil {
		return []model.LineItem{}, err
	}
	return items, nil
}

func (r *LineItemGormRepository) UpdateQuantity(ctx context.Context, lineItemID int64, qty int64) error {
	res := session(r.db, ctx).Model(&model.LineItem{}).
		Where("id = ?", lineItemID).
		Updates(map[string]interface{}{
			"quantity":   qty,
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

func (r *LineItemGormRepository) DeleteByOrderID(ctx context.Context, orderID int64) error {
	return session(r.db, ctx).
		Where("order_id = ?", orderID).
		Delete(&model.LineItem{}).Error
}
