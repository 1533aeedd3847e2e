package usecase

import (
	"context"
	"errors"
	"time"

	"farmops/internal/domain/model"
	repo "farmops/internal/repository"
)

// 在庫を動かす唯一の経路
type adjustment struct {
	ItemID         int64
	EventType      model.InventoryEventType
	QuantityChange int64
	Reason         string
	// trueなら0未満も許す（監査付きの訂正）
	Correction  bool
	OperationID string
	Date        time.Time
}

// applyInventoryAdjustment は在庫を条件付きUPDATEで動かし、同じTxでイベントを残す。
// 0未満になるならNegativeStock、品目がなければItemNotFound。
func applyInventoryAdjustment(ctx context.Context, r repo.TxRepos, adj adjustment) (model.InventoryEvent, error) {
	if !adj.EventType.Valid() {
		return model.InventoryEvent{}, validationError("invalid event type")
	}
	if !adj.EventType.AllowsChange(adj.QuantityChange) {
		return model.InventoryEvent{}, validationError("quantity change does not match event type")
	}

	ok, err := r.Items().ApplyStockDelta(ctx, adj.ItemID, adj.QuantityChange, adj.Correction)
	if err != nil {
		return model.InventoryEvent{}, err
	}
	if !ok {
		//0行更新：品目がないか在庫不足
		if _, err := r.Items().FindByID(ctx, adj.ItemID); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return model.InventoryEvent{}, notFound(CodeItemNotFound, "item not found")
			}
			return model.InventoryEvent{}, err
		}
		return model.InventoryEvent{}, stockShortage(CodeNegativeStock, "adjustment would make stock negative", []int64{adj.ItemID})
	}

	return r.Events().Create(ctx, model.InventoryEvent{
		ItemID:         adj.ItemID,
		EventType:      adj.EventType,
		QuantityChange: adj.QuantityChange,
		OperationID:    adj.OperationID,
		Reason:         adj.Reason,
		Correction:     adj.Correction,
		Date:           adj.Date,
	})
}

// 在庫不足をInsufficientStockとして言い換える（引当の文脈）
func asReservationShortage(err error, code string) error {
	ue, ok := AsError(err)
	if ok && ue.Code == CodeNegativeStock {
		return stockShortage(code, "insufficient stock", ue.ItemIDs)
	}
	return err
}
