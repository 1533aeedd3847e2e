package repository

import (
	"context"
	"time"

	repo "farmops/internal/repository"

	"gorm.io/gorm"
)

type txReposGorm struct {
	items     repo.ItemRepository
	events    repo.InventoryEventRepository
	orders    repo.OrderRepository
	lineItems repo.LineItemRepository
	schedules repo.ScheduleRepository
	customers repo.CustomerRepository
	purchases repo.PurchaseRepository
	sales     repo.SaleRepository
	auditLogs repo.AuditLogRepository
}

func (r *txReposGorm) Items() repo.ItemRepository            { return r.items }
func (r *txReposGorm) Events() repo.InventoryEventRepository { return r.events }
func (r *txReposGorm) Orders() repo.OrderRepository          { return r.orders }
func (r *txReposGorm) LineItems() repo.LineItemRepository    { return r.lineItems }
func (r *txReposGorm) Schedules() repo.ScheduleRepository    { return r.schedules }
func (r *txReposGorm) Customers() repo.CustomerRepository    { return r.customers }
func (r *txReposGorm) Purchases() repo.PurchaseRepository    { return r.purchases }
func (r *txReposGorm) Sales() repo.SaleRepository            { return r.sales }
func (r *txReposGorm) AuditLogs() repo.AuditLogRepository    { return r.auditLogs }

// 読み取り専用の処理もTx外で同じrepoを使えるようにする
func NewReposGorm(db *gorm.DB) repo.TxRepos {
	return &txReposGorm{
		items:     NewItemGormRepository(db),
		events:    NewInventoryEventGormRepository(db),
		orders:    NewOrderGormRepository(db),
		lineItems: NewLineItemGormRepository(db),
		schedules: NewScheduleGormRepository(db),
		customers: NewCustomerGormRepository(db),
		purchases: NewPurchaseGormRepository(db),
		sales:     NewSaleGormRepository(db),
		auditLogs: NewAuditLogGormRepository(db),
	}
}

type TxManagerGorm struct {
	db      *gorm.DB
	timeout time.Duration
}

// timeout<=0ならタイムアウトなし
func NewTxManagerGorm(db *gorm.DB, timeout time.Duration) *TxManagerGorm {
	return &TxManagerGorm{db: db, timeout: timeout}
}

func (tm *TxManagerGorm) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	if tm.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, tm.timeout)
		defer cancel()
	}
	return tm.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		//repoはtxを持ったDBで作り直す。txのStatement.Contextはタイムアウト付きのctx
		return fn(NewReposGorm(tx))
	})
}

// 各repoのクエリ用のDB。
// Tx内ならWithinTxのctx（呼び出し側ctxの子でストアのタイムアウト付き）を使う。
// 呼び出し側ctxの期限のほうが早ければそちらを使う。
func session(db *gorm.DB, ctx context.Context) *gorm.DB {
	txCtx := db.Statement.Context
	if txCtx == nil {
		return db.WithContext(ctx)
	}
	txDeadline, ok := txCtx.Deadline()
	if !ok {
		return db.WithContext(ctx)
	}
	if d, ok := ctx.Deadline(); ok && d.Before(txDeadline) {
		return db.WithContext(ctx)
	}
	return db.WithContext(txCtx)
}
