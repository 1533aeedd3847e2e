package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"sort"
	"strings"
	"time"

	"farmops/internal/domain/model"
	"farmops/internal/logging"
	repo "farmops/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type OrderUsecase struct {
	tx    repo.TransactionManager
	guard IdempotencyGuard
	clock Clock
	ids   IDGenerator
	log   logrus.FieldLogger
}

// guardはnilでもよい（冪等キーを使わない）
func NewOrderUsecase(tx repo.TransactionManager, guard IdempotencyGuard, clock Clock, ids IDGenerator, log logrus.FieldLogger) *OrderUsecase {
	return &OrderUsecase{tx: tx, guard: guard, clock: clock, ids: ids, log: log}
}

type OrderLineInput struct {
	ItemID   int64
	Quantity int64
}

type CreateOrderInput struct {
	Items                []OrderLineInput
	CustomerID           int64
	ExpectedDeliveryDate time.Time
	CustomerRequests     string
	IdempotencyKey       string
}

type CreateOrderOutput struct {
	OrderID              int64     `json:"order_id"`
	ConfirmationStatus   string    `json:"confirmation_status"`
	ExpectedDeliveryDate time.Time `json:"expected_delivery_date"`
}

// POST /orders
// 先に全品目の在庫を確認し、1つでも足りなければ何も書かずにStockShortage（足りない品目すべて）。
// 足りれば同じTxで注文・明細・条件付き減算。減算が競合で失敗したら全部rollback。
func (u *OrderUsecase) CreateOrder(ctx context.Context, in CreateOrderInput) (CreateOrderOutput, error) {
	if in.CustomerID <= 0 {
		return CreateOrderOutput{}, validationError("invalid customer_id")
	}
	if in.ExpectedDeliveryDate.IsZero() {
		return CreateOrderOutput{}, validationError("expected_delivery_date is required")
	}
	lines, err := mergeOrderLines(in.Items)
	if err != nil {
		return CreateOrderOutput{}, err
	}

	var out CreateOrderOutput
	err = u.withIdempotency(ctx, "order:"+in.IdempotencyKey, in.IdempotencyKey != "", func() error {
		return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
			//在庫チェック（書き込み前）
			items := make(map[int64]model.Item, len(lines))
			var short []int64
			for _, l := range lines {
				it, err := r.Items().FindByID(ctx, l.ItemID)
				if errors.Is(err, repo.ErrNotFound) {
					short = append(short, l.ItemID)
					continue
				}
				if err != nil {
					return err
				}
				if it.StockLevel < l.Quantity {
					short = append(short, l.ItemID)
					continue
				}
				items[l.ItemID] = it
			}
			if len(short) > 0 {
				return stockShortage(CodeStockShortage, "insufficient stock for items", short)
			}

			if _, err := r.Customers().FindByID(ctx, in.CustomerID); err != nil {
				if errors.Is(err, repo.ErrNotFound) {
					return notFound(CodeCustomerNotFound, "customer not found")
				}
				return err
			}

			orderID, err := r.Orders().Create(ctx, model.Order{
				CustomerID:       in.CustomerID,
				Status:           model.OrderStatusPlaced,
				DeliveryDate:     in.ExpectedDeliveryDate,
				CustomerRequests: strings.TrimSpace(in.CustomerRequests),
			})
			if err != nil {
				return err
			}

			lineItems := make([]model.LineItem, 0, len(lines))
			for _, l := range lines {
				lineItems = append(lineItems, model.LineItem{
					ItemID:       l.ItemID,
					Quantity:     l.Quantity,
					PricePerItem: items[l.ItemID].UnitPrice,
				})
			}
			if err := r.LineItems().CreateBulk(ctx, orderID, lineItems); err != nil {
				return err
			}

			if err := u.reserve(ctx, r, lines, u.ids.NewID(), "order placed"); err != nil {
				return asReservationShortage(err, CodeStockShortage)
			}

			out = CreateOrderOutput{
				OrderID:              orderID,
				ConfirmationStatus:   "confirmed",
				ExpectedDeliveryDate: in.ExpectedDeliveryDate,
			}
			return nil
		})
	})
	if err != nil {
		return CreateOrderOutput{}, u.fail("CreateOrder", err)
	}
	return out, nil
}

// 同じ品目はまとめる（明細は品目ごとに1行）
func mergeOrderLines(in []OrderLineInput) ([]OrderLineInput, error) {
	if len(in) == 0 {
		return nil, validationError("items must not be empty")
	}
	qty := map[int64]int64{}
	for _, l := range in {
		if l.ItemID <= 0 {
			return nil, validationError("invalid item_id")
		}
		if l.Quantity <= 0 {
			return nil, validationError("quantity must be > 0")
		}
		qty[l.ItemID] += l.Quantity
	}
	out := make([]OrderLineInput, 0, len(qty))
	for id, q := range qty {
		out = append(out, OrderLineInput{ItemID: id, Quantity: q})
	}
	//ロック順を揃える
	sort.Slice(out, func(i, j int) bool { return out[i].ItemID < out[j].ItemID })
	return out, nil
}

// 引当：SHIPPED（−数量）
func (u *OrderUsecase) reserve(ctx context.Context, r repo.TxRepos, lines []OrderLineInput, opID string, reason string) error {
	now := u.clock.Now()
	for _, l := range lines {
		if _, err := applyInventoryAdjustment(ctx, r, adjustment{
			ItemID:         l.ItemID,
			EventType:      model.InventoryEventShipped,
			QuantityChange: -l.Quantity,
			Reason:         reason,
			OperationID:    opID,
			Date:           now,
		}); err != nil {
			return err
		}
	}
	return nil
}

// 冪等キー。取れなければDuplicateRequest、処理が失敗したらキーを外す
func (u *OrderUsecase) withIdempotency(ctx context.Context, key string, enabled bool, fn func() error) error {
	return runIdempotent(ctx, u.guard, u.log, key, enabled, fn)
}

func runIdempotent(ctx context.Context, guard IdempotencyGuard, log logrus.FieldLogger, key string, enabled bool, fn func() error) error {
	if !enabled || guard == nil {
		return fn()
	}
	if len(key) > 255 {
		return validationError("invalid idempotency key")
	}

	ok, err := guard.Acquire(ctx, key)
	if err != nil {
		logging.LogError(log, "idempotency", "Acquire", "acquire key", key, err)
		return &Error{Kind: KindStoreUnavailable, Code: CodeStoreUnavailable, Message: "idempotency store unavailable, retry later"}
	}
	if !ok {
		return NewError(KindConflict, CodeDuplicateRequest, "duplicate request")
	}

	if err := fn(); err != nil {
		if rerr := guard.Release(context.WithoutCancel(ctx), key); rerr != nil {
			logging.LogError(log, "idempotency", "Release", "release key", key, rerr)
		}
		return err
	}
	return nil
}

// 想定外のエラーだけログに出す
func (u *OrderUsecase) fail(funcName string, err error) error {
	err = storeError(err)
	if ue, ok := AsError(err); ok && (ue.Kind == KindInternal || ue.Kind == KindStoreUnavailable) {
		logging.LogError(u.log, "order", funcName, "transaction", nil, err)
	}
	return err
}

type OrderLineOutput struct {
	LineItemID   int64           `json:"line_item_id"`
	ItemID       int64           `json:"item_id"`
	Name         string          `json:"name"`
	Quantity     int64           `json:"quantity"`
	PricePerItem decimal.Decimal `json:"price_per_item"`
}

type CustomerSummary struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	ContactNumber string `json:"contact_number"`
}

type ScheduleSummary struct {
	ID          int64                `json:"id"`
	ScheduledOn time.Time            `json:"scheduled_on"`
	Type        model.ScheduleType   `json:"type"`
	Status      model.ScheduleStatus `json:"status"`
}

type OrderDetailOutput struct {
	OrderID           int64             `json:"order_id"`
	Customer          CustomerSummary   `json:"customer"`
	Items             []OrderLineOutput `json:"items"`
	Status            model.OrderStatus `json:"status"`
	DeliveryDate      time.Time         `json:"delivery_date"`
	CustomerRequests  string            `json:"customer_requests"`
	Total             decimal.Decimal   `json:"total"`
	CreatedAt         time.Time         `json:"created_at"`
	ScheduledDelivery *ScheduleSummary  `json:"scheduled_delivery"`
}

func loadOrderDetail(ctx context.Context, r repo.TxRepos, o model.Order) (OrderDetailOutput, error) {
	out := OrderDetailOutput{
		OrderID:          o.ID,
		Status:           o.Status,
		DeliveryDate:     o.DeliveryDate,
		CustomerRequests: o.CustomerRequests,
		CreatedAt:        o.CreatedAt,
		Total:            decimal.Zero,
		Items:            []OrderLineOutput{},
	}

	c, err := r.Customers().FindByID(ctx, o.CustomerID)
	switch {
	case err == nil:
		out.Customer = CustomerSummary{ID: c.ID, Name: c.Name, Email: c.Email, ContactNumber: c.ContactNumber}
	case errors.Is(err, repo.ErrNotFound):
		out.Customer = CustomerSummary{ID: o.CustomerID}
	default:
		return OrderDetailOutput{}, err
	}

	lines, err := r.LineItems().ListByOrderID(ctx, o.ID)
	if err != nil {
		return OrderDetailOutput{}, err
	}
	for _, li := range lines {
		name := ""
		if it, err := r.Items().FindByID(ctx, li.ItemID); err == nil {
			name = it.Name
		} else if !errors.Is(err, repo.ErrNotFound) {
			return OrderDetailOutput{}, err
		}
		out.Items = append(out.Items, OrderLineOutput{
			LineItemID:   li.ID,
			ItemID:       li.ItemID,
			Name:         name,
			Quantity:     li.Quantity,
			PricePerItem: li.PricePerItem,
		})
		out.Total = out.Total.Add(li.PricePerItem.Mul(decimal.NewFromInt(li.Quantity)))
	}

	if o.ScheduleID != nil {
		s, err := r.Schedules().FindByID(ctx, *o.ScheduleID)
		if err == nil {
			out.ScheduledDelivery = &ScheduleSummary{ID: s.ID, ScheduledOn: s.ScheduledOn, Type: s.Type, Status: s.Status}
		} else if !errors.Is(err, repo.ErrNotFound) {
			return OrderDetailOutput{}, err
		}
	}
	return out, nil
}

// GET /orders/:id
func (u *OrderUsecase) GetOrder(ctx context.Context, orderID int64) (OrderDetailOutput, error) {
	if orderID <= 0 {
		return OrderDetailOutput{}, validationError("invalid id")
	}
	var out OrderDetailOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return notFound(CodeOrderNotFound, "order not found")
		}
		if err != nil {
			return err
		}
		out, err = loadOrderDetail(ctx, r, o)
		return err
	})
	if err != nil {
		return OrderDetailOutput{}, u.fail("GetOrder", err)
	}
	return out, nil
}

type OrderListOutput struct {
	Orders []OrderDetailOutput `json:"orders"`
	Total  int64               `json:"total"`
	Page   int                 `json:"page"`
	Limit  int                 `json:"limit"`
}

// GET /orders
func (u *OrderUsecase) ListOrders(ctx context.Context, f repo.OrderListFilter) (OrderListOutput, error) {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Limit > 100 {
		return OrderListOutput{}, validationError("invalid limit")
	}
	if f.Status != "" && !model.OrderStatus(f.Status).Valid() {
		return OrderListOutput{}, validationError("invalid status")
	}

	out := OrderListOutput{Page: f.Page, Limit: f.Limit, Orders: []OrderDetailOutput{}}
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, total, err := r.Orders().List(ctx, f)
		if err != nil {
			return err
		}
		out.Total = total
		for _, o := range orders {
			d, err := loadOrderDetail(ctx, r, o)
			if err != nil {
				return err
			}
			out.Orders = append(out.Orders, d)
		}
		return nil
	})
	if err != nil {
		return OrderListOutput{}, u.fail("ListOrders", err)
	}
	return out, nil
}

type UpdateOrderInput struct {
	CustomerRequests    string
	NewDeliveryDate     time.Time
	OrderSizeAdjustment int64
}

type UpdateOrderOutput struct {
	Success             bool              `json:"success"`
	UpdatedOrderDetails OrderDetailOutput `json:"updated_order_details"`

	// 終端の注文は日付だけ更新し、数量調整は行わない
	SizeAdjustmentSkipped bool `json:"size_adjustment_skipped,omitempty"`
}

// PUT /orders/:id
// 配送日と要望は常に更新。調整量は全明細に一律で足し、0で止める。
// 実際に変わった数量だけADJUSTEDで在庫に反映する（増やす分は在庫不足ならrollback）。
// 配送予定に紐づく注文なら予定日も合わせる。
func (u *OrderUsecase) UpdateOrder(ctx context.Context, orderID int64, in UpdateOrderInput) (UpdateOrderOutput, error) {
	if orderID <= 0 {
		return UpdateOrderOutput{}, validationError("invalid id")
	}
	if in.NewDeliveryDate.IsZero() {
		return UpdateOrderOutput{}, validationError("new_delivery_date is required")
	}

	var out UpdateOrderOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return notFound(CodeOrderNotFound, "order not found")
		}
		if err != nil {
			return err
		}

		//ロック順は 予定 → 注文（cancelDeliveryと同じ）
		if o.ScheduleID != nil {
			if err := syncScheduleDate(ctx, r, *o.ScheduleID, in.NewDeliveryDate); err != nil {
				return err
			}
		}
		o, err = r.Orders().FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}

		if err := r.Orders().UpdateDelivery(ctx, orderID, in.NewDeliveryDate, strings.TrimSpace(in.CustomerRequests)); err != nil {
			return err
		}

		skipped := false
		switch {
		case in.OrderSizeAdjustment == 0:
		case !o.Status.HoldsReservation():
			//終端の注文は引当がないので数量は動かさない
			skipped = true
		default:
			lines, err := r.LineItems().ListByOrderID(ctx, orderID)
			if err != nil {
				return err
			}
			opID := u.ids.NewID()
			for _, li := range lines {
				next, err := adjustedQuantity(li.Quantity, in.OrderSizeAdjustment)
				if err != nil {
					return err
				}
				if err := u.resize(ctx, r, li, next, opID, "order size adjusted"); err != nil {
					return err
				}
			}
		}

		o, err = r.Orders().FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		d, err := loadOrderDetail(ctx, r, o)
		if err != nil {
			return err
		}
		out = UpdateOrderOutput{Success: true, UpdatedOrderDetails: d, SizeAdjustmentSkipped: skipped}
		return nil
	})
	if err != nil {
		return UpdateOrderOutput{}, u.fail("UpdateOrder", err)
	}
	return out, nil
}

// qty + adj を0で止める。正の調整で桁あふれする場合はエラー
func adjustedQuantity(qty int64, adj int64) (int64, error) {
	if adj > 0 && qty > math.MaxInt64-adj {
		return 0, validationError("order_size_adjustment is too large")
	}
	next := qty + adj
	if next < 0 {
		next = 0
	}
	return next, nil
}

// 未完了の配送予定なら予定日と紐づく注文の配送日をそろえる
func syncScheduleDate(ctx context.Context, r repo.TxRepos, scheduleID int64, date time.Time) error {
	s, err := r.Schedules().FindByIDForUpdate(ctx, scheduleID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if s.Type != model.ScheduleTypeDelivery || s.Status.IsTerminal() {
		return nil
	}
	if err := r.Schedules().UpdateScheduledOn(ctx, scheduleID, date); err != nil {
		return err
	}
	return r.Orders().UpdateDeliveryDateBySchedule(ctx, scheduleID, date)
}

// 明細の数量を変え、差分を在庫に反映する（増えた分は在庫から引く）
func (u *OrderUsecase) resize(ctx context.Context, r repo.TxRepos, li model.LineItem, next int64, opID string, reason string) error {
	return resizeLineItem(ctx, r, u.clock, li, next, opID, reason)
}

func resizeLineItem(ctx context.Context, r repo.TxRepos, clock Clock, li model.LineItem, next int64, opID string, reason string) error {
	delta := next - li.Quantity
	if delta == 0 {
		return nil
	}
	if _, err := applyInventoryAdjustment(ctx, r, adjustment{
		ItemID:         li.ItemID,
		EventType:      model.InventoryEventAdjusted,
		QuantityChange: -delta,
		Reason:         reason,
		OperationID:    opID,
		Date:           clock.Now(),
	}); err != nil {
		return asReservationShortage(err, CodeInsufficientStock)
	}
	return r.LineItems().UpdateQuantity(ctx, li.ID, next)
}

// 注文の引当を戻す（+数量のADJUSTED）
func compensateOrder(ctx context.Context, r repo.TxRepos, clock Clock, orderID int64, opID string, reason string) error {
	lines, err := r.LineItems().ListByOrderID(ctx, orderID)
	if err != nil {
		return err
	}
	now := clock.Now()
	for _, li := range lines {
		if li.Quantity <= 0 {
			continue
		}
		if _, err := applyInventoryAdjustment(ctx, r, adjustment{
			ItemID:         li.ItemID,
			EventType:      model.InventoryEventAdjusted,
			QuantityChange: li.Quantity,
			Reason:         reason,
			OperationID:    opID,
			Date:           now,
		}); err != nil {
			return err
		}
	}
	return nil
}

type UpdateOrderStatusInput struct {
	Status string
}

// PUT /orders/:id/status
// CANCELLEDなら引当を戻す。予定の注文がすべて終端になったら予定も閉じる
func (u *OrderUsecase) UpdateOrderStatus(ctx context.Context, actorUserID int64, orderID int64, in UpdateOrderStatusInput) (OrderDetailOutput, error) {
	if actorUserID <= 0 {
		return OrderDetailOutput{}, unauthorized()
	}
	if orderID <= 0 {
		return OrderDetailOutput{}, validationError("invalid id")
	}
	next := model.OrderStatus(strings.ToUpper(strings.TrimSpace(in.Status)))
	if !next.Valid() {
		return OrderDetailOutput{}, validationError("invalid status")
	}

	var out OrderDetailOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByIDForUpdate(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return notFound(CodeOrderNotFound, "order not found")
		}
		if err != nil {
			return err
		}

		if o.Status != next {
			if o.Status.IsTerminal() {
				return NewError(KindInvalidState, CodeAlreadyFinalized, "order is already "+string(o.Status))
			}
			if !o.Status.CanTransitionTo(next) {
				return NewError(KindInvalidState, CodeInvalidTransition, "cannot change status from "+string(o.Status)+" to "+string(next))
			}

			if next == model.OrderStatusCancelled {
				if err := compensateOrder(ctx, r, u.clock, orderID, u.ids.NewID(), "order cancelled"); err != nil {
					return err
				}
			}
			if err := r.Orders().UpdateStatus(ctx, orderID, next); err != nil {
				return err
			}
			if o.ScheduleID != nil {
				if err := settleSchedule(ctx, r, *o.ScheduleID); err != nil {
					return err
				}
			}

			if err := writeAudit(ctx, r, actorUserID, model.AuditActionUpdateOrderStatus, model.AuditResourceOrder, orderID,
				map[string]string{"status": string(o.Status)}, map[string]string{"status": string(next)}, u.clock.Now()); err != nil {
				return err
			}
			o.Status = next
		}

		out, err = loadOrderDetail(ctx, r, o)
		return err
	})
	if err != nil {
		return OrderDetailOutput{}, u.fail("UpdateOrderStatus", err)
	}
	return out, nil
}

// 予定に紐づく注文がすべて終端なら、1件でもDELIVEREDがあればCOMPLETED、なければCANCELLED
func settleSchedule(ctx context.Context, r repo.TxRepos, scheduleID int64) error {
	s, err := r.Schedules().FindByIDForUpdate(ctx, scheduleID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if s.Status.IsTerminal() {
		return nil
	}

	orders, err := r.Orders().ListByScheduleID(ctx, scheduleID)
	if err != nil {
		return err
	}
	if len(orders) == 0 {
		return nil
	}
	delivered := false
	for _, o := range orders {
		if !o.Status.IsTerminal() {
			return nil
		}
		if o.Status == model.OrderStatusDelivered {
			delivered = true
		}
	}
	if delivered {
		return r.Schedules().UpdateStatus(ctx, scheduleID, model.ScheduleStatusCompleted)
	}
	return r.Schedules().UpdateStatus(ctx, scheduleID, model.ScheduleStatusCancelled)
}

// DELETE /orders/:id
// 引当が残っていれば戻してから消す
func (u *OrderUsecase) DeleteOrder(ctx context.Context, actorUserID int64, orderID int64) error {
	if orderID <= 0 {
		return validationError("invalid id")
	}
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByIDForUpdate(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return notFound(CodeOrderNotFound, "order not found")
		}
		if err != nil {
			return err
		}

		if o.Status.HoldsReservation() {
			if err := compensateOrder(ctx, r, u.clock, orderID, u.ids.NewID(), "order deleted"); err != nil {
				return err
			}
		}
		if err := r.LineItems().DeleteByOrderID(ctx, orderID); err != nil {
			return err
		}
		if err := r.Orders().Delete(ctx, orderID); err != nil {
			return err
		}

		return writeAudit(ctx, r, actorUserID, model.AuditActionDeleteOrder, model.AuditResourceOrder, orderID,
			map[string]string{"status": string(o.Status)}, nil, u.clock.Now())
	})
	if err != nil {
		return u.fail("DeleteOrder", err)
	}
	return nil
}

func writeAudit(ctx context.Context, r repo.TxRepos, actorUserID int64, action model.AuditAction, resource model.AuditResourceType, resourceID int64, before any, after any, at time.Time) error {
	toJSON := func(v any) string {
		if v == nil {
			return ""
		}
		b, _ := json.Marshal(v)
		return string(b)
	}
	return r.AuditLogs().Append(ctx, model.AuditLog{
		ActorUserID:  actorUserID,
		Action:       action,
		ResourceType: resource,
		ResourceID:   resourceID,
		BeforeJSON:   toJSON(before),
		AfterJSON:    toJSON(after),
		CreatedAt:    at,
	})
}
