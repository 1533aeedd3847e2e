package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"farmops/internal/domain/model"
	"farmops/internal/logging"
	repo "farmops/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type InventoryUsecase struct {
	tx    repo.TransactionManager
	clock Clock
	ids   IDGenerator
	log   logrus.FieldLogger
}

// DI
func NewInventoryUsecase(tx repo.TransactionManager, clock Clock, ids IDGenerator, log logrus.FieldLogger) *InventoryUsecase {
	return &InventoryUsecase{tx: tx, clock: clock, ids: ids, log: log}
}

type CreateItemInput struct {
	Name            string
	Category        model.ItemCategory
	Quantity        int64
	MinStockLevel   int64
	UnitPrice       decimal.Decimal
	AcquisitionDate *time.Time
}

// POST /inventory/items
// 在庫0で作ってから、初期数量をRECEIVEDで入れる（台帳の起点は0）
func (u *InventoryUsecase) CreateItem(ctx context.Context, in CreateItemInput) (model.Item, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" || len(name) > 255 {
		return model.Item{}, validationError("invalid name")
	}
	if !in.Category.Valid() {
		return model.Item{}, validationError("invalid category")
	}
	if in.Quantity < 0 {
		return model.Item{}, validationError("quantity must be >= 0")
	}
	if in.MinStockLevel < 0 {
		return model.Item{}, validationError("min_stock_level must be >= 0")
	}
	if in.UnitPrice.IsNegative() {
		return model.Item{}, validationError("unit_price must be >= 0")
	}

	date := u.clock.Now()
	if in.AcquisitionDate != nil {
		date = *in.AcquisitionDate
	}

	var out model.Item
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		created, err := r.Items().Create(ctx, model.Item{
			Name:          name,
			Category:      in.Category,
			StockLevel:    0,
			MinStockLevel: in.MinStockLevel,
			UnitPrice:     in.UnitPrice,
		})
		if err != nil {
			return err
		}

		if in.Quantity > 0 {
			if _, err := applyInventoryAdjustment(ctx, r, adjustment{
				ItemID:         created.ID,
				EventType:      model.InventoryEventReceived,
				QuantityChange: in.Quantity,
				Reason:         "initial stock",
				OperationID:    u.ids.NewID(),
				Date:           date,
			}); err != nil {
				return err
			}
		}

		out, err = r.Items().FindByID(ctx, created.ID)
		return err
	})
	if err != nil {
		return model.Item{}, storeError(err)
	}
	return out, nil
}

func (u *InventoryUsecase) GetItem(ctx context.Context, id int64) (model.Item, error) {
	if id <= 0 {
		return model.Item{}, validationError("invalid id")
	}
	var out model.Item
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		it, err := r.Items().FindByID(ctx, id)
		if errors.Is(err, repo.ErrNotFound) {
			return notFound(CodeItemNotFound, "item not found")
		}
		if err != nil {
			return err
		}
		out = it
		return nil
	})
	if err != nil {
		return model.Item{}, storeError(err)
	}
	return out, nil
}

type ItemListOutput struct {
	Items []model.Item `json:"items"`
	Total int64        `json:"total"`
	Page  int          `json:"page"`
	Limit int          `json:"limit"`
}

// GET /inventory/items
func (u *InventoryUsecase) ListItems(ctx context.Context, q repo.ItemListQuery) (ItemListOutput, error) {
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.Limit <= 0 {
		q.Limit = 20
	}
	if q.Limit > 100 {
		return ItemListOutput{}, validationError("invalid limit")
	}
	if q.Category != nil && !q.Category.Valid() {
		return ItemListOutput{}, validationError("invalid category")
	}
	switch q.Sort {
	case "", "name", "-name", "stock_level", "-stock_level":
	default:
		return ItemListOutput{}, validationError("invalid sort")
	}

	out := ItemListOutput{Page: q.Page, Limit: q.Limit}
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		items, total, err := r.Items().List(ctx, q)
		if err != nil {
			return err
		}
		out.Items = items
		out.Total = total
		return nil
	})
	if err != nil {
		return ItemListOutput{}, storeError(err)
	}
	return out, nil
}

type UpdateItemInput struct {
	Name          *string
	MinStockLevel *int64
	UnitPrice     *decimal.Decimal
	// 絶対値で指定された在庫数。差分をADJUSTEDで入れる
	Quantity *int64
}

// PUT /inventory/items/:id
func (u *InventoryUsecase) UpdateItem(ctx context.Context, actorUserID int64, id int64, in UpdateItemInput) (model.Item, error) {
	if id <= 0 {
		return model.Item{}, validationError("invalid id")
	}
	if in.Name != nil {
		n := strings.TrimSpace(*in.Name)
		if n == "" || len(n) > 255 {
			return model.Item{}, validationError("invalid name")
		}
		in.Name = &n
	}
	if in.MinStockLevel != nil && *in.MinStockLevel < 0 {
		return model.Item{}, validationError("min_stock_level must be >= 0")
	}
	if in.UnitPrice != nil && in.UnitPrice.IsNegative() {
		return model.Item{}, validationError("unit_price must be >= 0")
	}
	if in.Quantity != nil && *in.Quantity < 0 {
		return model.Item{}, validationError("quantity must be >= 0")
	}

	var out model.Item
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		//ロックしてから現在庫との差分を出す
		cur, err := r.Items().FindByIDForUpdate(ctx, id)
		if errors.Is(err, repo.ErrNotFound) {
			return notFound(CodeItemNotFound, "item not found")
		}
		if err != nil {
			return err
		}

		next := cur
		if in.Name != nil {
			next.Name = *in.Name
		}
		if in.MinStockLevel != nil {
			next.MinStockLevel = *in.MinStockLevel
		}
		if in.UnitPrice != nil {
			next.UnitPrice = *in.UnitPrice
		}
		if err := r.Items().UpdateDetails(ctx, next); err != nil {
			return err
		}

		if in.Quantity != nil {
			if delta := *in.Quantity - cur.StockLevel; delta != 0 {
				if _, err := applyInventoryAdjustment(ctx, r, adjustment{
					ItemID:         id,
					EventType:      model.InventoryEventAdjusted,
					QuantityChange: delta,
					Reason:         "stock count update",
					OperationID:    u.ids.NewID(),
					Date:           u.clock.Now(),
				}); err != nil {
					return err
				}
				if err := writeStockAudit(ctx, r, actorUserID, id, cur.StockLevel, *in.Quantity, u.clock.Now()); err != nil {
					return err
				}
			}
		}

		out, err = r.Items().FindByID(ctx, id)
		return err
	})
	if err != nil {
		return model.Item{}, storeError(err)
	}
	return out, nil
}

// DELETE /inventory/items/:id
// 取引履歴がある品目は消さない
func (u *InventoryUsecase) DeleteItem(ctx context.Context, id int64) error {
	if id <= 0 {
		return validationError("invalid id")
	}
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if _, err := r.Items().FindByID(ctx, id); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return notFound(CodeItemNotFound, "item not found")
			}
			return err
		}

		n, err := r.Events().CountByItemID(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return NewError(KindInvalidState, CodeHasDependentEvents, "item has inventory events")
		}
		return r.Items().Delete(ctx, id)
	})
	return storeError(err)
}

type AdjustStockInput struct {
	EventType      model.InventoryEventType
	QuantityChange int64
	Reason         string
	Correction     bool
}

type AdjustStockOutput struct {
	Item  model.Item           `json:"item"`
	Event model.InventoryEvent `json:"event"`
}

// POST /inventory/items/:id/adjustments（admin/manager）
func (u *InventoryUsecase) AdjustStock(ctx context.Context, actorUserID int64, id int64, in AdjustStockInput) (AdjustStockOutput, error) {
	if actorUserID <= 0 {
		return AdjustStockOutput{}, unauthorized()
	}
	if id <= 0 {
		return AdjustStockOutput{}, validationError("invalid id")
	}
	reason := strings.TrimSpace(in.Reason)
	if len(reason) > 255 {
		return AdjustStockOutput{}, validationError("reason too long")
	}
	//訂正は理由必須
	if in.Correction && reason == "" {
		return AdjustStockOutput{}, validationError("reason is required for a correction")
	}

	var out AdjustStockOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		before, err := r.Items().FindByID(ctx, id)
		if errors.Is(err, repo.ErrNotFound) {
			return notFound(CodeItemNotFound, "item not found")
		}
		if err != nil {
			return err
		}

		now := u.clock.Now()
		ev, err := applyInventoryAdjustment(ctx, r, adjustment{
			ItemID:         id,
			EventType:      in.EventType,
			QuantityChange: in.QuantityChange,
			Reason:         reason,
			Correction:     in.Correction,
			OperationID:    u.ids.NewID(),
			Date:           now,
		})
		if err != nil {
			return err
		}

		after, err := r.Items().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err := writeStockAudit(ctx, r, actorUserID, id, before.StockLevel, after.StockLevel, now); err != nil {
			return err
		}

		out = AdjustStockOutput{Item: after, Event: ev}
		return nil
	})
	if err != nil {
		if ue, ok := AsError(err); !ok || ue.Kind == KindInternal {
			logging.LogError(u.log, "inventory", "AdjustStock", "apply adjustment", map[string]int64{"item_id": id}, err)
		}
		return AdjustStockOutput{}, storeError(err)
	}
	return out, nil
}

// GET /inventory/items/:id/events
func (u *InventoryUsecase) ListEvents(ctx context.Context, id int64, limit int, offset int) ([]model.InventoryEvent, error) {
	if id <= 0 {
		return []model.InventoryEvent{}, validationError("invalid id")
	}
	var out []model.InventoryEvent
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if _, err := r.Items().FindByID(ctx, id); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return notFound(CodeItemNotFound, "item not found")
			}
			return err
		}
		events, err := r.Events().ListByItemID(ctx, id, limit, offset)
		if err != nil {
			return err
		}
		out = events
		return nil
	})
	if err != nil {
		return []model.InventoryEvent{}, storeError(err)
	}
	return out, nil
}

type LedgerOutput struct {
	ItemID     int64 `json:"item_id"`
	StockLevel int64 `json:"stock_level"`
	EventSum   int64 `json:"event_sum"`
	EventCount int64 `json:"event_count"`
	Reconciled bool  `json:"reconciled"`
}

// GET /inventory/items/:id/ledger
// 在庫数 == Σイベント（起点0）か確認する
func (u *InventoryUsecase) VerifyLedger(ctx context.Context, id int64) (LedgerOutput, error) {
	if id <= 0 {
		return LedgerOutput{}, validationError("invalid id")
	}
	var out LedgerOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		it, err := r.Items().FindByID(ctx, id)
		if errors.Is(err, repo.ErrNotFound) {
			return notFound(CodeItemNotFound, "item not found")
		}
		if err != nil {
			return err
		}
		sum, err := r.Events().SumByItemID(ctx, id)
		if err != nil {
			return err
		}
		count, err := r.Events().CountByItemID(ctx, id)
		if err != nil {
			return err
		}
		out = LedgerOutput{
			ItemID:     id,
			StockLevel: it.StockLevel,
			EventSum:   sum,
			EventCount: count,
			Reconciled: it.StockLevel == sum,
		}
		return nil
	})
	if err != nil {
		return LedgerOutput{}, storeError(err)
	}
	if !out.Reconciled {
		u.log.WithFields(logrus.Fields{"item_id": id, "stock_level": out.StockLevel, "event_sum": out.EventSum}).
			Warn("inventory ledger does not reconcile")
	}
	return out, nil
}

// ★監査ログ（ADJUST_STOCK）
func writeStockAudit(ctx context.Context, r repo.TxRepos, actorUserID int64, itemID int64, before int64, after int64, at time.Time) error {
	return writeAudit(ctx, r, actorUserID, model.AuditActionAdjustStock, model.AuditResourceItem, itemID,
		map[string]int64{"stock_level": before}, map[string]int64{"stock_level": after}, at)
}
