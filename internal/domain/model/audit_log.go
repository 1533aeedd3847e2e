package model

import "time"

// 注文ステータス更新、配送キャンセルなど。
type AuditAction string

const (
	//在庫を手動で調整した操作。
	AuditActionAdjustStock AuditAction = "ADJUST_STOCK"
	//注文ステータスを更新した操作。
	AuditActionUpdateOrderStatus AuditAction = "UPDATE_ORDER_STATUS"
	//注文を削除した操作。
	AuditActionDeleteOrder AuditAction = "DELETE_ORDER"
	//配送をキャンセルした操作。
	AuditActionCancelDelivery AuditAction = "CANCEL_DELIVERY"
	//配送を完了にした操作。
	AuditActionCompleteDelivery AuditAction = "COMPLETE_DELIVERY"
)

func (a AuditAction) Valid() bool {
	switch a {
	case AuditActionAdjustStock, AuditActionUpdateOrderStatus, AuditActionDeleteOrder,
		AuditActionCancelDelivery, AuditActionCompleteDelivery:
		return true
	}
	return false
}

// 何に対する操作か
type AuditResourceType string

const (
	//品目に対する操作。
	AuditResourceItem AuditResourceType = "item"

	//注文に対する操作。
	AuditResourceOrder AuditResourceType = "order"

	//予定（配送）に対する操作。
	AuditResourceSchedule AuditResourceType = "schedule"
)

func (t AuditResourceType) Valid() bool {
	switch t {
	case AuditResourceItem, AuditResourceOrder, AuditResourceSchedule:
		return true
	}
	return false
}

// 監査ログ（管理者操作ログ）。
// 「誰が」「何を」「どの対象に」「どう変えたか」を残す。
type AuditLog struct {
	//IDは監査ログの主キー
	ID int64 `gorm:"primaryKey;autoIncrement" json:"id"`

	//操作したユーザーのID。認証なしの場合は0。
	ActorUserID int64 `gorm:"not null;index" json:"actor_user_id"`

	//Actionは操作の種類（UPDATE_ORDER_STATUS / CANCEL_DELIVERY など）。
	Action AuditAction `gorm:"type:varchar(50);not null;index" json:"action"`

	//対象の種類（item / order / schedule）。
	ResourceType AuditResourceType `gorm:"type:varchar(50);not null;index" json:"resource_type"`

	//対象のID。
	ResourceID int64 `gorm:"not null;index" json:"resource_id"`

	//JSON文字列で保存する。
	BeforeJSON string `gorm:"type:text" json:"before_json"`

	//JSON文字列で保存する。
	AfterJSON string `gorm:"type:text" json:"after_json"`

	//作成時刻
	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}
