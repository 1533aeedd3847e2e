package usecase

import (
	"context"
	"time"

	"farmops/internal/domain/model"

	"github.com/shopspring/decimal"
)

type Clock interface {
	Now() time.Time
}

// 在庫イベントの操作IDなど
type IDGenerator interface {
	NewID() string
}

// 同じキーの二重実行を防ぐ（SETNX）
type IdempotencyGuard interface {
	// 取れたらtrue。すでに使われていればfalse
	Acquire(ctx context.Context, key string) (bool, error)
	// 失敗時にキーを外して再試行できるようにする
	Release(ctx context.Context, key string) error
}

type SaleAction string

const (
	SaleCreated SaleAction = "SALE_CREATED"
	SaleUpdated SaleAction = "SALE_UPDATED"
	SaleDeleted SaleAction = "SALE_DELETED"
)

// 会計システムへ送る内容
type SaleNotification struct {
	Action        SaleAction          `json:"action"`
	SaleID        int64               `json:"sale_id"`
	OrderID       int64               `json:"order_id"`
	Amount        decimal.Decimal     `json:"amount"`
	SaleDate      time.Time           `json:"sale_date"`
	PaymentStatus model.PaymentStatus `json:"payment_status"`
	OccurredAt    time.Time           `json:"occurred_at"`
}

// 失敗してもローカルの更新は戻さない
type AccountingNotifier interface {
	NotifySale(ctx context.Context, n SaleNotification) error
}
