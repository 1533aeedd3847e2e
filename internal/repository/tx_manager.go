package repository

import "context"

// トランザクション内で使う約束
type TxRepos interface {
	Items() ItemRepository
	Events() InventoryEventRepository
	Orders() OrderRepository
	LineItems() LineItemRepository
	Schedules() ScheduleRepository
	Customers() CustomerRepository
	Purchases() PurchaseRepository
	Sales() SaleRepository
	AuditLogs() AuditLogRepository
}

// UsecaseからTxの開始/commit/rollbackを隠す。
// fnがerrorを返したら全部rollback。
type TransactionManager interface {
	WithinTx(ctx context.Context, fn func(r TxRepos) error) error
}
