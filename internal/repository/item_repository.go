package repository

import (
	"context"

	"farmops/internal/domain/model"
)

// 一覧検索
type ItemListQuery struct {
	Page        int
	Limit       int
	Category    *model.ItemCategory
	MinStock    *int64
	ReOrderNeed *bool
	// name / -name / stock_level / -stock_level
	Sort string
}

// 品目の保存・取得の約束。
// 在庫数の変更はApplyStockDeltaだけ。
type ItemRepository interface {
	Create(ctx context.Context, item model.Item) (model.Item, error)
	FindByID(ctx context.Context, id int64) (model.Item, error)

	// 行ロック付きで取得（現在庫から差分を計算する更新用）
	FindByIDForUpdate(ctx context.Context, id int64) (model.Item, error)
	FindByNameAndCategory(ctx context.Context, name string, category model.ItemCategory) (model.Item, error)
	List(ctx context.Context, q ItemListQuery) ([]model.Item, int64, error)

	// 名前・最低在庫・単価の更新（re_order_needも再計算）
	UpdateDetails(ctx context.Context, item model.Item) error

	Delete(ctx context.Context, id int64) error

	// 在庫を差分で更新し、re_order_needを再計算する。
	// allowNegative=falseなら0未満になる更新はしない（falseを返す）
	ApplyStockDelta(ctx context.Context, id int64, delta int64, allowNegative bool) (bool, error)
}
