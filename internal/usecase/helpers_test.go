package usecase

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"farmops/internal/domain/model"
	"farmops/internal/infra/memory"
	"farmops/internal/logging"
	repo "farmops/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// =====================
// 固定の時計・ID
// =====================

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type seqIDs struct {
	mu sync.Mutex
	n  int
}

func (g *seqIDs) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return "op-" + strconv.Itoa(g.n)
}

var testNow = time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)

// =====================
// テスト用の一式
// =====================

type fixture struct {
	store     *memory.Store
	tx        repo.TransactionManager
	clock     Clock
	ids       *seqIDs
	inventory *InventoryUsecase
	purchases *PurchaseUsecase
	orders    *OrderUsecase
	delivery  *DeliveryUsecase
	schedules *ScheduleUsecase
	customers *CustomerUsecase
	audit     *AuditLogUsecase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore(0)
	return newFixtureWithTx(t, store, store, nil)
}

func newFixtureWithTx(t *testing.T, store *memory.Store, tx repo.TransactionManager, guard IdempotencyGuard) *fixture {
	t.Helper()
	clock := fixedClock{t: testNow}
	ids := &seqIDs{}
	log := logging.Discard()
	return &fixture{
		store:     store,
		tx:        tx,
		clock:     clock,
		ids:       ids,
		inventory: NewInventoryUsecase(tx, clock, ids, log),
		purchases: NewPurchaseUsecase(tx, clock, ids, log),
		orders:    NewOrderUsecase(tx, guard, clock, ids, log),
		delivery:  NewDeliveryUsecase(tx, guard, clock, ids, log),
		schedules: NewScheduleUsecase(tx, clock, ids, log),
		customers: NewCustomerUsecase(tx),
		audit:     NewAuditLogUsecase(tx),
	}
}

func (f *fixture) item(t *testing.T, name string, category model.ItemCategory, qty int64, min int64) model.Item {
	t.Helper()
	it, err := f.inventory.CreateItem(context.Background(), CreateItemInput{
		Name:          name,
		Category:      category,
		Quantity:      qty,
		MinStockLevel: min,
		UnitPrice:     decimal.RequireFromString("120.50"),
	})
	require.NoError(t, err)
	return it
}

func (f *fixture) customer(t *testing.T, email string) model.Customer {
	t.Helper()
	c, err := f.customers.CreateCustomer(context.Background(), CreateCustomerInput{
		Name:  "Customer " + email,
		Email: email,
	})
	require.NoError(t, err)
	return c
}

func (f *fixture) stock(t *testing.T, itemID int64) model.Item {
	t.Helper()
	it, err := f.inventory.GetItem(context.Background(), itemID)
	require.NoError(t, err)
	return it
}

// 在庫数 == Σイベント を確認する
func (f *fixture) requireLedger(t *testing.T, itemID int64) {
	t.Helper()
	l, err := f.inventory.VerifyLedger(context.Background(), itemID)
	require.NoError(t, err)
	require.True(t, l.Reconciled, "stock=%d sum=%d", l.StockLevel, l.EventSum)
}

func (f *fixture) counts(t *testing.T) (orders, lineItems, schedules int) {
	t.Helper()
	err := f.store.WithinTx(context.Background(), func(r repo.TxRepos) error {
		list, total, err := r.Orders().List(context.Background(), repo.OrderListFilter{Page: 1, Limit: 100})
		if err != nil {
			return err
		}
		orders = int(total)
		for _, o := range list {
			ls, err := r.LineItems().ListByOrderID(context.Background(), o.ID)
			if err != nil {
				return err
			}
			lineItems += len(ls)
		}
		_, st, err := r.Schedules().List(context.Background(), repo.ScheduleListFilter{Page: 1, Limit: 100})
		schedules = int(st)
		return err
	})
	require.NoError(t, err)
	return
}

func requireCode(t *testing.T, err error, code string) *Error {
	t.Helper()
	require.Error(t, err)
	ue, ok := AsError(err)
	require.True(t, ok, "expected *usecase.Error, got %T: %v", err, err)
	require.Equal(t, code, ue.Code, ue.Message)
	return ue
}

// =====================
// 障害注入（N回目の書き込みで失敗させる）
// =====================

var errInjected = errors.New("injected failure")

type faultyTx struct {
	inner   repo.TransactionManager
	failOn  string
	armed   bool
	trigger int
	calls   int
}

func (f *faultyTx) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	return f.inner.WithinTx(ctx, func(r repo.TxRepos) error {
		return fn(&faultyRepos{TxRepos: r, tx: f})
	})
}

func (f *faultyTx) hit(op string) error {
	if !f.armed || op != f.failOn {
		return nil
	}
	f.calls++
	if f.calls == f.trigger {
		return errInjected
	}
	return nil
}

type faultyRepos struct {
	repo.TxRepos
	tx *faultyTx
}

func (r *faultyRepos) LineItems() repo.LineItemRepository {
	return &faultyLineItems{LineItemRepository: r.TxRepos.LineItems(), tx: r.tx}
}

func (r *faultyRepos) Items() repo.ItemRepository {
	return &faultyItems{ItemRepository: r.TxRepos.Items(), tx: r.tx}
}

func (r *faultyRepos) Orders() repo.OrderRepository {
	return &faultyOrders{OrderRepository: r.TxRepos.Orders(), tx: r.tx}
}

type faultyLineItems struct {
	repo.LineItemRepository
	tx *faultyTx
}

func (l *faultyLineItems) CreateBulk(ctx context.Context, orderID int64, items []model.LineItem) error {
	if err := l.tx.hit("LineItems.CreateBulk"); err != nil {
		return err
	}
	return l.LineItemRepository.CreateBulk(ctx, orderID, items)
}

type faultyItems struct {
	repo.ItemRepository
	tx *faultyTx
}

func (i *faultyItems) ApplyStockDelta(ctx context.Context, id int64, delta int64, allowNegative bool) (bool, error) {
	if err := i.tx.hit("Items.ApplyStockDelta"); err != nil {
		return false, err
	}
	return i.ItemRepository.ApplyStockDelta(ctx, id, delta, allowNegative)
}

type faultyOrders struct {
	repo.OrderRepository
	tx *faultyTx
}

func (o *faultyOrders) Create(ctx context.Context, order model.Order) (int64, error) {
	if err := o.tx.hit("Orders.Create"); err != nil {
		return 0, err
	}
	return o.OrderRepository.Create(ctx, order)
}

// =====================
// 冪等キー / 会計通知 mock
// =====================

type GuardMock struct{ mock.Mock }

func (m *GuardMock) Acquire(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *GuardMock) Release(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

type NotifierMock struct{ mock.Mock }

func (m *NotifierMock) NotifySale(ctx context.Context, n SaleNotification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

// =====================
// 行の読み方を記録する（ロック付きで読んだか）
// =====================

type readSpyTx struct {
	inner repo.TransactionManager
	reads []string
}

func (s *readSpyTx) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	return s.inner.WithinTx(ctx, func(r repo.TxRepos) error {
		return fn(&readSpyRepos{TxRepos: r, spy: s})
	})
}

type readSpyRepos struct {
	repo.TxRepos
	spy *readSpyTx
}

func (r *readSpyRepos) Items() repo.ItemRepository {
	return &readSpyItems{ItemRepository: r.TxRepos.Items(), spy: r.spy}
}

func (r *readSpyRepos) Purchases() repo.PurchaseRepository {
	return &readSpyPurchases{PurchaseRepository: r.TxRepos.Purchases(), spy: r.spy}
}

type readSpyItems struct {
	repo.ItemRepository
	spy *readSpyTx
}

func (i *readSpyItems) FindByID(ctx context.Context, id int64) (model.Item, error) {
	i.spy.reads = append(i.spy.reads, "Items.FindByID")
	return i.ItemRepository.FindByID(ctx, id)
}

func (i *readSpyItems) FindByIDForUpdate(ctx context.Context, id int64) (model.Item, error) {
	i.spy.reads = append(i.spy.reads, "Items.FindByIDForUpdate")
	return i.ItemRepository.FindByIDForUpdate(ctx, id)
}

type readSpyPurchases struct {
	repo.PurchaseRepository
	spy *readSpyTx
}

func (p *readSpyPurchases) FindByID(ctx context.Context, id int64) (model.Purchase, error) {
	p.spy.reads = append(p.spy.reads, "Purchases.FindByID")
	return p.PurchaseRepository.FindByID(ctx, id)
}

func (p *readSpyPurchases) FindByIDForUpdate(ctx context.Context, id int64) (model.Purchase, error) {
	p.spy.reads = append(p.spy.reads, "Purchases.FindByIDForUpdate")
	return p.PurchaseRepository.FindByIDForUpdate(ctx, id)
}
