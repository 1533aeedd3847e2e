package repository

import (
	"context"
	"time"

	"farmops/internal/domain/model"
)

type OrderListFilter struct {
	Page       int
	Limit      int
	Status     string
	CustomerID *int64
	From       *time.Time
	To         *time.Time
}

type OrderRepository interface {
	Create(ctx context.Context, order model.Order) (int64, error)
	FindByID(ctx context.Context, orderID int64) (model.Order, error)

	// 行ロック付きで取得（同時キャンセル対策）
	FindByIDForUpdate(ctx context.Context, orderID int64) (model.Order, error)

	List(ctx context.Context, f OrderListFilter) ([]model.Order, int64, error)
	ListByScheduleID(ctx context.Context, scheduleID int64) ([]model.Order, error)

	// 終端でない注文の件数
	CountOpenByCustomerID(ctx context.Context, customerID int64) (int64, error)

	UpdateStatus(ctx context.Context, orderID int64, status model.OrderStatus) error
	UpdateDelivery(ctx context.Context, orderID int64, deliveryDate time.Time, customerRequests string) error
	UpdateDeliveryDateBySchedule(ctx context.Context, scheduleID int64, deliveryDate time.Time) error

	// 予定を消すときに紐付けを外す
	ClearSchedule(ctx context.Context, scheduleID int64) error

	Delete(ctx context.Context, orderID int64) error
}

type LineItemRepository interface {
	CreateBulk(ctx context.Context, orderID int64, items []model.LineItem) error
	ListByOrderID(ctx context.Context, orderID int64) ([]model.LineItem, error)
	UpdateQuantity(ctx context.Context, lineItemID int64, qty int64) error
	DeleteByOrderID(ctx context.Context, orderID int64) error
}
