package memory

import (
	"context"
	"sync"
	"time"

	"farmops/internal/domain/model"
	repo "farmops/internal/repository"
)

// 全テーブルをまとめて持つ。Txごとに丸ごとコピーして、失敗したら戻す
type tables struct {
	seq       map[string]int64
	items     map[int64]model.Item
	events    []model.InventoryEvent
	orders    map[int64]model.Order
	lineItems map[int64]model.LineItem
	schedules map[int64]model.Schedule
	customers map[int64]model.Customer
	purchases map[int64]model.Purchase
	sales     map[int64]model.Sale
	auditLogs []model.AuditLog
}

func newTables() *tables {
	return &tables{
		seq:       map[string]int64{},
		items:     map[int64]model.Item{},
		orders:    map[int64]model.Order{},
		lineItems: map[int64]model.LineItem{},
		schedules: map[int64]model.Schedule{},
		customers: map[int64]model.Customer{},
		purchases: map[int64]model.Purchase{},
		sales:     map[int64]model.Sale{},
	}
}

func (t *tables) nextID(table string) int64 {
	t.seq[table]++
	return t.seq[table]
}

func (t *tables) clone() *tables {
	c := &tables{
		seq:       copyMap(t.seq),
		items:     copyMap(t.items),
		events:    append([]model.InventoryEvent(nil), t.events...),
		orders:    copyMap(t.orders),
		lineItems: copyMap(t.lineItems),
		schedules: copyMap(t.schedules),
		customers: copyMap(t.customers),
		purchases: copyMap(t.purchases),
		sales:     copyMap(t.sales),
		auditLogs: append([]model.AuditLog(nil), t.auditLogs...),
	}
	return c
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Storeはメモリ上のストア（開発・テスト用）。
// Txは1本ずつ直列に流れる。
type Store struct {
	mu      sync.Mutex
	data    *tables
	timeout time.Duration
	now     func() time.Time
}

// timeout<=0ならタイムアウトなし
func NewStore(timeout time.Duration) *Store {
	return &Store{data: newTables(), timeout: timeout, now: time.Now}
}

func (s *Store) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	snapshot := s.data.clone()
	err := fn(&txRepos{t: s.data, now: s.now})
	if err == nil {
		//途中で期限切れならcommitしない
		err = ctx.Err()
	}
	if err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

type txRepos struct {
	t   *tables
	now func() time.Time
}

func (r *txRepos) Items() repo.ItemRepository            { return &itemRepo{r} }
func (r *txRepos) Events() repo.InventoryEventRepository { return &eventRepo{r} }
func (r *txRepos) Orders() repo.OrderRepository          { return &orderRepo{r} }
func (r *txRepos) LineItems() repo.LineItemRepository    { return &lineItemRepo{r} }
func (r *txRepos) Schedules() repo.ScheduleRepository    { return &scheduleRepo{r} }
func (r *txRepos) Customers() repo.CustomerRepository    { return &customerRepo{r} }
func (r *txRepos) Purchases() repo.PurchaseRepository    { return &purchaseRepo{r} }
func (r *txRepos) Sales() repo.SaleRepository            { return &saleRepo{r} }
func (r *txRepos) AuditLogs() repo.AuditLogRepository    { return &auditLogRepo{r} }

func pageOf(page, limit, defLimit, maxLimit int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 || limit > maxLimit {
		limit = defLimit
	}
	return page, limit
}

func paginate[T any](all []T, page, limit int) []T {
	start := (page - 1) * limit
	if start >= len(all) {
		return []T{}
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end]
}
