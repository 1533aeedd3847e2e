package repository

import (
	"context"

	"farmops/internal/domain/model"

	"gorm.io/gorm"
)

type InventoryEventGormRepository struct {
	db *gorm.DB
}

func NewInventoryEventGormRepository(db *gorm.DB) *InventoryEventGormRepository {
	return &InventoryEventGormRepository{db: db}
}

// 履歴作成
func (r *InventoryEventGormRepository) Create(ctx context.Context, ev model.InventoryEvent) (model.InventoryEvent, error) {
	if err := session(r.db, ctx).Create(&ev).Error; err != nil {
		return model.InventoryEvent{}, err
	}
	return ev, nil
}

func (r *InventoryEventGormRepository) ListByItemID(ctx context.Context, itemID int64, limit int, offset int) ([]model.InventoryEvent, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var events []model.InventoryEvent
	err := session(r.db, ctx).
		Where("item_id = ?", itemID).
		Order("id desc").
		Limit(limit).
		Offset(offset).
		Find(&events).Error
	if err != nil {
		return []model.InventoryEvent{}, err
	}
	return events, nil
}

func (r *InventoryEventGormRepository) CountByItemID(ctx context.Context, itemID int64) (int64, error) {
	var count int64
	if err := session(r.db, ctx).
		Model(&model.InventoryEvent{}).
		Where("item_id = ?", itemID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *InventoryEventGormRepository) SumByItemID(ctx context.Context, itemID int64) (int64, error) {
	var sum int64
	if err := session(r.db, ctx).
		Model(&model.InventoryEvent{}).
		Where("item_id = ?", itemID).
		Select("COALESCE(SUM(quantity_change), 0)").
		Scan(&sum).Error; err != nil {
		return 0, err
	}
	return sum, nil
}
