package model

import "time"

type InventoryEventType string

const (
	//入荷
	InventoryEventReceived InventoryEventType = "RECEIVED"
	//出荷・引当
	InventoryEventShipped InventoryEventType = "SHIPPED"
	//調整（キャンセル戻し・削除の補償など）
	InventoryEventAdjusted InventoryEventType = "ADJUSTED"
)

func (t InventoryEventType) Valid() bool {
	switch t {
	case InventoryEventReceived, InventoryEventShipped, InventoryEventAdjusted:
		return true
	}
	return false
}

// 種類ごとの符号ルール
// RECEIVEDは正、SHIPPEDは負、ADJUSTEDは0以外
func (t InventoryEventType) AllowsChange(quantityChange int64) bool {
	switch t {
	case InventoryEventReceived:
		return quantityChange > 0
	case InventoryEventShipped:
		return quantityChange < 0
	case InventoryEventAdjusted:
		return quantityChange != 0
	}
	return false
}

// 在庫変動の履歴（不変）
// 同じ操作で出たイベントはOperationIDでまとまる
type InventoryEvent struct {
	ID             int64              `gorm:"primaryKey;autoIncrement" json:"id"`
	ItemID         int64              `gorm:"not null;index" json:"item_id"`
	EventType      InventoryEventType `gorm:"type:varchar(20);not null;index" json:"event_type"`
	QuantityChange int64              `gorm:"not null" json:"quantity_change"`
	OperationID    string             `gorm:"type:varchar(64);not null;index" json:"operation_id"`
	Reason         string             `gorm:"type:varchar(255);not null;default:''" json:"reason"`
	Correction     bool               `gorm:"not null;default:false" json:"correction"`
	Date           time.Time          `gorm:"not null;index" json:"date"`
	CreatedAt      time.Time          `gorm:"not null;autoCreateTime" json:"created_at"`
}
