package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type ItemCategory string

const (
	ItemCategoryTree       ItemCategory = "TREE"
	ItemCategorySapling    ItemCategory = "SAPLING"
	ItemCategoryFertilizer ItemCategory = "FERTILIZER"
	ItemCategoryEquipment  ItemCategory = "EQUIPMENT"
)

// 定義済みカテゴリか
func (c ItemCategory) Valid() bool {
	switch c {
	case ItemCategoryTree, ItemCategorySapling, ItemCategoryFertilizer, ItemCategoryEquipment:
		return true
	}
	return false
}

// 在庫品目
// stock_levelは在庫調整（InventoryEvent）経由でのみ変わる
type Item struct {
	ID            int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Name          string          `gorm:"type:varchar(255);not null;index" json:"name"`
	Category      ItemCategory    `gorm:"type:varchar(20);not null;index" json:"category"`
	StockLevel    int64           `gorm:"not null;default:0" json:"stock_level"`
	MinStockLevel int64           `gorm:"not null;default:0" json:"min_stock_level"`
	ReOrderNeed   bool            `gorm:"not null;default:false;index" json:"re_order_need"`
	UnitPrice     decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"unit_price"`
	CreatedAt     time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// 発注が必要か（在庫 <= 最低在庫）
func NeedsReorder(stockLevel, minStockLevel int64) bool {
	return stockLevel <= minStockLevel
}
