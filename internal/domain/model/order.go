package model

import "time"

type OrderStatus string

const (
	OrderStatusPlaced    OrderStatus = "PLACED"
	OrderStatusInProcess OrderStatus = "IN_PROCESS"
	OrderStatusShipped   OrderStatus = "SHIPPED"
	OrderStatusDelivered OrderStatus = "DELIVERED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPlaced, OrderStatusInProcess, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// DELIVERED / CANCELLED は終端
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// 状態遷移
// PLACED → IN_PROCESS → SHIPPED → DELIVERED、CANCELLEDは終端以外から
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if s.IsTerminal() {
		return false
	}
	if next == OrderStatusCancelled {
		return true
	}
	switch s {
	case OrderStatusPlaced:
		return next == OrderStatusInProcess
	case OrderStatusInProcess:
		return next == OrderStatusShipped
	case OrderStatusShipped:
		return next == OrderStatusDelivered
	}
	return false
}

// 引当（在庫減算）がまだ生きているか
// 終端の注文はもう戻さない（CANCELLEDは戻し済み、DELIVEREDは出荷済み）
func (s OrderStatus) HoldsReservation() bool {
	return !s.IsTerminal()
}

type Order struct {
	ID               int64       `gorm:"primaryKey;autoIncrement" json:"id"`
	CustomerID       int64       `gorm:"not null;index" json:"customer_id"`
	ScheduleID       *int64      `gorm:"index" json:"schedule_id"`
	Status           OrderStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	DeliveryDate     time.Time   `gorm:"not null" json:"delivery_date"`
	CustomerRequests string      `gorm:"type:text;not null;default:''" json:"customer_requests"`
	CreatedAt        time.Time   `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time   `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
