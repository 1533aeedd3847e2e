package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// 苗木の仕入れ
// 登録時にRECEIVED、変更・削除時にADJUSTEDで在庫へ反映
type Purchase struct {
	ID           int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	ItemID       int64           `gorm:"not null;index" json:"item_id"`
	Supplier     string          `gorm:"type:varchar(255);not null" json:"supplier"`
	Quantity     int64           `gorm:"not null" json:"quantity"`
	Cost         decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"cost"`
	PurchaseDate time.Time       `gorm:"not null" json:"purchase_date"`
	CreatedAt    time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
