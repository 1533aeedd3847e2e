package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// 注文明細
// 作成時点の単価を保存
type LineItem struct {
	ID           int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID      int64           `gorm:"not null;index" json:"order_id"`
	ItemID       int64           `gorm:"not null;index" json:"item_id"`
	Quantity     int64           `gorm:"not null" json:"quantity"`
	PricePerItem decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"price_per_item"`
	CreatedAt    time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
