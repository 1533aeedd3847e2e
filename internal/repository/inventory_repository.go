package repository

import (
	"context"

	"farmops/internal/domain/model"
)

// 在庫イベント（履歴）の約束。追加のみ。
type InventoryEventRepository interface {
	Create(ctx context.Context, event model.InventoryEvent) (model.InventoryEvent, error)

	// 新しい順
	ListByItemID(ctx context.Context, itemID int64, limit int, offset int) ([]model.InventoryEvent, error)

	CountByItemID(ctx context.Context, itemID int64) (int64, error)

	// quantity_changeの合計
	SumByItemID(ctx context.Context, itemID int64) (int64, error)
}
