package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"farmops/internal/domain/model"
	"farmops/internal/logging"
	repo "farmops/internal/repository"

	"github.com/sirupsen/logrus"
)

type DeliveryUsecase struct {
	tx    repo.TransactionManager
	guard IdempotencyGuard
	clock Clock
	ids   IDGenerator
	log   logrus.FieldLogger
}

func NewDeliveryUsecase(tx repo.TransactionManager, guard IdempotencyGuard, clock Clock, ids IDGenerator, log logrus.FieldLogger) *DeliveryUsecase {
	return &DeliveryUsecase{tx: tx, guard: guard, clock: clock, ids: ids, log: log}
}

type ScheduleDeliveryInput struct {
	DeliveryDate   time.Time
	Quantity       int64
	Destination    string
	ItemID         int64
	CustomerID     int64
	IdempotencyKey string
}

type ScheduleDeliveryOutput struct {
	Success           bool      `json:"success"`
	Message           string    `json:"message"`
	ScheduleID        int64     `json:"schedule_id"`
	OrderID           int64     `json:"order_id"`
	ScheduledDateTime time.Time `json:"scheduled_datetime"`
}

// POST /api/supply-chain/deliveries
// 予定・在庫減算・注文＋明細を1つのTxで作る
func (u *DeliveryUsecase) ScheduleDelivery(ctx context.Context, in ScheduleDeliveryInput) (ScheduleDeliveryOutput, error) {
	if in.DeliveryDate.IsZero() {
		return ScheduleDeliveryOutput{}, validationError("delivery_date is required")
	}
	if in.Quantity <= 0 {
		return ScheduleDeliveryOutput{}, validationError("quantity must be > 0")
	}
	if in.ItemID <= 0 {
		return ScheduleDeliveryOutput{}, validationError("invalid item_id")
	}
	if in.CustomerID <= 0 {
		return ScheduleDeliveryOutput{}, validationError("invalid customer_id")
	}
	destination := strings.TrimSpace(in.Destination)
	if destination == "" || len(destination) > 255 {
		return ScheduleDeliveryOutput{}, validationError("invalid destination")
	}

	var out ScheduleDeliveryOutput
	err := runIdempotent(ctx, u.guard, u.log, "delivery:"+in.IdempotencyKey, in.IdempotencyKey != "", func() error {
		return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
			item, err := r.Items().FindByID(ctx, in.ItemID)
			if errors.Is(err, repo.ErrNotFound) {
				return stockShortage(CodeInsufficientStock, "item does not exist", []int64{in.ItemID})
			}
			if err != nil {
				return err
			}
			if item.StockLevel < in.Quantity {
				return stockShortage(CodeInsufficientStock, "insufficient stock for the item", []int64{in.ItemID})
			}

			if _, err := r.Customers().FindByID(ctx, in.CustomerID); err != nil {
				if errors.Is(err, repo.ErrNotFound) {
					return notFound(CodeCustomerNotFound, "customer does not exist")
				}
				return err
			}

			s, err := r.Schedules().Create(ctx, model.Schedule{
				Type:        model.ScheduleTypeDelivery,
				Status:      model.ScheduleStatusPending,
				ScheduledOn: in.DeliveryDate,
				Destination: destination,
			})
			if err != nil {
				return err
			}

			if _, err := applyInventoryAdjustment(ctx, r, adjustment{
				ItemID:         in.ItemID,
				EventType:      model.InventoryEventShipped,
				QuantityChange: -in.Quantity,
				Reason:         "delivery scheduled",
				OperationID:    u.ids.NewID(),
				Date:           u.clock.Now(),
			}); err != nil {
				return asReservationShortage(err, CodeInsufficientStock)
			}

			scheduleID := s.ID
			orderID, err := r.Orders().Create(ctx, model.Order{
				CustomerID:   in.CustomerID,
				ScheduleID:   &scheduleID,
				Status:       model.OrderStatusPlaced,
				DeliveryDate: in.DeliveryDate,
			})
			if err != nil {
				return err
			}
			if err := r.LineItems().CreateBulk(ctx, orderID, []model.LineItem{{
				ItemID:       in.ItemID,
				Quantity:     in.Quantity,
				PricePerItem: item.UnitPrice,
			}}); err != nil {
				return err
			}

			out = ScheduleDeliveryOutput{
				Success:           true,
				Message:           "Delivery scheduled successfully.",
				ScheduleID:        s.ID,
				OrderID:           orderID,
				ScheduledDateTime: in.DeliveryDate,
			}
			return nil
		})
	})
	if err != nil {
		return ScheduleDeliveryOutput{}, u.fail("ScheduleDelivery", err)
	}
	return out, nil
}

// 配送予定を行ロック付きで取る。DELIVERYでなければNotFound、終端ならAlreadyFinalized
func lockPendingDelivery(ctx context.Context, r repo.TxRepos, id int64) (model.Schedule, error) {
	s, err := r.Schedules().FindByIDForUpdate(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Schedule{}, notFound(CodeScheduleNotFound, "delivery not found")
	}
	if err != nil {
		return model.Schedule{}, err
	}
	if s.Type != model.ScheduleTypeDelivery {
		return model.Schedule{}, notFound(CodeScheduleNotFound, "delivery not found")
	}
	if s.Status.IsTerminal() {
		return model.Schedule{}, NewError(KindInvalidState, CodeAlreadyFinalized, "delivery is already "+string(s.Status))
	}
	return s, nil
}

// 予定に紐づく未終端の注文の引当を戻してCANCELLEDにする
func releaseScheduleOrders(ctx context.Context, r repo.TxRepos, clock Clock, scheduleID int64, opID string, reason string) ([]int64, error) {
	orders, err := r.Orders().ListByScheduleID(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	released := []int64{}
	for _, o := range orders {
		if !o.Status.HoldsReservation() {
			continue
		}
		if err := compensateOrder(ctx, r, clock, o.ID, opID, reason); err != nil {
			return nil, err
		}
		if err := r.Orders().UpdateStatus(ctx, o.ID, model.OrderStatusCancelled); err != nil {
			return nil, err
		}
		released = append(released, o.ID)
	}
	return released, nil
}

type CancelDeliveryOutput struct {
	Success        bool    `json:"success"`
	Message        string  `json:"message"`
	ReleasedOrders []int64 `json:"released_orders"`
}

// POST /api/supply-chain/deliveries/:id/cancel
func (u *DeliveryUsecase) CancelDelivery(ctx context.Context, actorUserID int64, scheduleID int64) (CancelDeliveryOutput, error) {
	if scheduleID <= 0 {
		return CancelDeliveryOutput{}, validationError("invalid id")
	}

	var out CancelDeliveryOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		s, err := lockPendingDelivery(ctx, r, scheduleID)
		if err != nil {
			return err
		}

		if err := r.Schedules().UpdateStatus(ctx, scheduleID, model.ScheduleStatusCancelled); err != nil {
			return err
		}
		released, err := releaseScheduleOrders(ctx, r, u.clock, scheduleID, u.ids.NewID(), "delivery cancelled")
		if err != nil {
			return err
		}

		if err := writeAudit(ctx, r, actorUserID, model.AuditActionCancelDelivery, model.AuditResourceSchedule, scheduleID,
			map[string]string{"status": string(s.Status)},
			map[string]any{"status": model.ScheduleStatusCancelled, "released_orders": released},
			u.clock.Now()); err != nil {
			return err
		}

		out = CancelDeliveryOutput{Success: true, Message: "Delivery cancelled.", ReleasedOrders: released}
		return nil
	})
	if err != nil {
		return CancelDeliveryOutput{}, u.fail("CancelDelivery", err)
	}
	return out, nil
}

type CompleteDeliveryOutput struct {
	Success         bool    `json:"success"`
	Message         string  `json:"message"`
	DeliveredOrders []int64 `json:"delivered_orders"`
}

// POST /api/supply-chain/deliveries/:id/complete
// 予定をCOMPLETED、未終端の注文をDELIVEREDにする（在庫は出荷済みなので動かさない）
func (u *DeliveryUsecase) CompleteDelivery(ctx context.Context, actorUserID int64, scheduleID int64) (CompleteDeliveryOutput, error) {
	if scheduleID <= 0 {
		return CompleteDeliveryOutput{}, validationError("invalid id")
	}

	var out CompleteDeliveryOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		s, err := lockPendingDelivery(ctx, r, scheduleID)
		if err != nil {
			return err
		}
		if err := r.Schedules().UpdateStatus(ctx, scheduleID, model.ScheduleStatusCompleted); err != nil {
			return err
		}

		orders, err := r.Orders().ListByScheduleID(ctx, scheduleID)
		if err != nil {
			return err
		}
		delivered := []int64{}
		for _, o := range orders {
			if o.Status.IsTerminal() {
				continue
			}
			if err := r.Orders().UpdateStatus(ctx, o.ID, model.OrderStatusDelivered); err != nil {
				return err
			}
			delivered = append(delivered, o.ID)
		}

		if err := writeAudit(ctx, r, actorUserID, model.AuditActionCompleteDelivery, model.AuditResourceSchedule, scheduleID,
			map[string]string{"status": string(s.Status)},
			map[string]any{"status": model.ScheduleStatusCompleted, "delivered_orders": delivered},
			u.clock.Now()); err != nil {
			return err
		}

		out = CompleteDeliveryOutput{Success: true, Message: "Delivery completed.", DeliveredOrders: delivered}
		return nil
	})
	if err != nil {
		return CompleteDeliveryOutput{}, u.fail("CompleteDelivery", err)
	}
	return out, nil
}

type ItemQuantity struct {
	ItemID   int64 `json:"item_id"`
	Quantity int64 `json:"quantity"`
}

type UpdateDeliveryInput struct {
	NewDeliveryDate   time.Time
	UpdatedQuantities []ItemQuantity
}

type DeliveryDetails struct {
	DeliveryID     int64          `json:"delivery_id"`
	ScheduledDate  time.Time      `json:"scheduled_date"`
	ItemQuantities []ItemQuantity `json:"item_quantities"`
}

type UpdateDeliveryOutput struct {
	Success         bool            `json:"success"`
	Message         string          `json:"message"`
	UpdatedDelivery DeliveryDetails `json:"updated_delivery"`
}

// PUT /api/supply-chain/deliveries/:id
// 配送日を予定と注文の両方に反映。数量は品目ごとの新しい値で、差分を在庫に反映する
func (u *DeliveryUsecase) UpdateDelivery(ctx context.Context, scheduleID int64, in UpdateDeliveryInput) (UpdateDeliveryOutput, error) {
	if scheduleID <= 0 {
		return UpdateDeliveryOutput{}, validationError("invalid id")
	}
	if in.NewDeliveryDate.IsZero() {
		return UpdateDeliveryOutput{}, validationError("new_delivery_date is required")
	}
	seen := map[int64]bool{}
	for _, q := range in.UpdatedQuantities {
		if q.ItemID <= 0 {
			return UpdateDeliveryOutput{}, validationError("invalid item_id")
		}
		if q.Quantity < 0 {
			return UpdateDeliveryOutput{}, validationError("quantity must be >= 0")
		}
		if seen[q.ItemID] {
			return UpdateDeliveryOutput{}, validationError("duplicate item_id")
		}
		seen[q.ItemID] = true
	}

	var out UpdateDeliveryOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if _, err := lockPendingDelivery(ctx, r, scheduleID); err != nil {
			return err
		}
		if err := r.Schedules().UpdateScheduledOn(ctx, scheduleID, in.NewDeliveryDate); err != nil {
			return err
		}
		if err := r.Orders().UpdateDeliveryDateBySchedule(ctx, scheduleID, in.NewDeliveryDate); err != nil {
			return err
		}

		orders, err := r.Orders().ListByScheduleID(ctx, scheduleID)
		if err != nil {
			return err
		}
		//品目ID → 未終端の注文の明細
		lines := map[int64][]model.LineItem{}
		for _, o := range orders {
			if !o.Status.HoldsReservation() {
				continue
			}
			items, err := r.LineItems().ListByOrderID(ctx, o.ID)
			if err != nil {
				return err
			}
			for _, li := range items {
				lines[li.ItemID] = append(lines[li.ItemID], li)
			}
		}

		opID := u.ids.NewID()
		for _, q := range in.UpdatedQuantities {
			ls, ok := lines[q.ItemID]
			if !ok {
				return validationError("item is not part of this delivery")
			}
			for _, li := range ls {
				if err := resizeLineItem(ctx, r, u.clock, li, q.Quantity, opID, "delivery quantity updated"); err != nil {
					return err
				}
			}
		}

		out = UpdateDeliveryOutput{
			Success: true,
			Message: "Delivery updated successfully.",
			UpdatedDelivery: DeliveryDetails{
				DeliveryID:     scheduleID,
				ScheduledDate:  in.NewDeliveryDate,
				ItemQuantities: append([]ItemQuantity{}, in.UpdatedQuantities...),
			},
		}
		return nil
	})
	if err != nil {
		return UpdateDeliveryOutput{}, u.fail("UpdateDelivery", err)
	}
	return out, nil
}

type ListDeliveriesInput struct {
	StartDate *time.Time
	EndDate   *time.Time
	Status    *model.ScheduleStatus
	Category  *model.ItemCategory
}

type ItemOverview struct {
	ItemID   int64              `json:"item_id"`
	Name     string             `json:"name"`
	Category model.ItemCategory `json:"category"`
	Quantity int64              `json:"quantity"`
}

type DeliveryOrderOverview struct {
	OrderID      int64             `json:"order_id"`
	CustomerName string            `json:"customer_name"`
	Status       model.OrderStatus `json:"status"`
	Items        []ItemOverview    `json:"items"`
}

type DeliveryDetail struct {
	ScheduleID    int64                   `json:"schedule_id"`
	ScheduledDate time.Time               `json:"scheduled_date"`
	Status        model.ScheduleStatus    `json:"status"`
	Destination   string                  `json:"destination"`
	Orders        []DeliveryOrderOverview `json:"orders"`
}

// GET /api/supply-chain/deliveries
// categoryを指定したら、その品目を含む注文・予定だけ返す
func (u *DeliveryUsecase) ListDeliveries(ctx context.Context, in ListDeliveriesInput) ([]DeliveryDetail, error) {
	if in.Status != nil && !in.Status.Valid() {
		return []DeliveryDetail{}, validationError("invalid status")
	}
	if in.Category != nil && !in.Category.Valid() {
		return []DeliveryDetail{}, validationError("invalid category")
	}
	if in.StartDate != nil && in.EndDate != nil && in.EndDate.Before(*in.StartDate) {
		return []DeliveryDetail{}, validationError("end_date must not be before start_date")
	}

	deliveryType := model.ScheduleTypeDelivery
	outs := []DeliveryDetail{}
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		for page := 1; ; page++ {
			schedules, total, err := r.Schedules().List(ctx, repo.ScheduleListFilter{
				Page:   page,
				Limit:  100,
				Type:   &deliveryType,
				Status: in.Status,
				From:   in.StartDate,
				To:     in.EndDate,
			})
			if err != nil {
				return err
			}
			for _, s := range schedules {
				d, keep, err := u.deliveryDetail(ctx, r, s, in.Category)
				if err != nil {
					return err
				}
				if keep {
					outs = append(outs, d)
				}
			}
			if len(schedules) == 0 || int64(page*100) >= total {
				return nil
			}
		}
	})
	if err != nil {
		return []DeliveryDetail{}, u.fail("ListDeliveries", err)
	}
	return outs, nil
}

func (u *DeliveryUsecase) deliveryDetail(ctx context.Context, r repo.TxRepos, s model.Schedule, category *model.ItemCategory) (DeliveryDetail, bool, error) {
	d := DeliveryDetail{
		ScheduleID:    s.ID,
		ScheduledDate: s.ScheduledOn,
		Status:        s.Status,
		Destination:   s.Destination,
		Orders:        []DeliveryOrderOverview{},
	}

	orders, err := r.Orders().ListByScheduleID(ctx, s.ID)
	if err != nil {
		return DeliveryDetail{}, false, err
	}
	for _, o := range orders {
		ov := DeliveryOrderOverview{OrderID: o.ID, Status: o.Status, Items: []ItemOverview{}}
		if c, err := r.Customers().FindByID(ctx, o.CustomerID); err == nil {
			ov.CustomerName = c.Name
		} else if !errors.Is(err, repo.ErrNotFound) {
			return DeliveryDetail{}, false, err
		}

		lines, err := r.LineItems().ListByOrderID(ctx, o.ID)
		if err != nil {
			return DeliveryDetail{}, false, err
		}
		for _, li := range lines {
			it, err := r.Items().FindByID(ctx, li.ItemID)
			if errors.Is(err, repo.ErrNotFound) {
				continue
			}
			if err != nil {
				return DeliveryDetail{}, false, err
			}
			if category != nil && it.Category != *category {
				continue
			}
			ov.Items = append(ov.Items, ItemOverview{ItemID: it.ID, Name: it.Name, Category: it.Category, Quantity: li.Quantity})
		}
		if category != nil && len(ov.Items) == 0 {
			continue
		}
		d.Orders = append(d.Orders, ov)
	}
	if category != nil && len(d.Orders) == 0 {
		return DeliveryDetail{}, false, nil
	}
	return d, true, nil
}

func (u *DeliveryUsecase) fail(funcName string, err error) error {
	err = storeError(err)
	if ue, ok := AsError(err); ok && (ue.Kind == KindInternal || ue.Kind == KindStoreUnavailable) {
		logging.LogError(u.log, "delivery", funcName, "transaction", nil, err)
	}
	return err
}
