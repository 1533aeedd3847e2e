package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"farmops/internal/domain/model"
	repo "farmops/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// 苗木の在庫品目（名前＋カテゴリで引く）
const (
	SeedlingItemName     = "Seedling"
	SeedlingItemCategory = model.ItemCategorySapling
)

type PurchaseUsecase struct {
	tx    repo.TransactionManager
	clock Clock
	ids   IDGenerator
	log   logrus.FieldLogger
}

func NewPurchaseUsecase(tx repo.TransactionManager, clock Clock, ids IDGenerator, log logrus.FieldLogger) *PurchaseUsecase {
	return &PurchaseUsecase{tx: tx, clock: clock, ids: ids, log: log}
}

type SeedlingOutput struct {
	ItemID      int64  `json:"item_id"`
	Name        string `json:"name"`
	StockLevel  int64  `json:"stock_level"`
	ReOrderNeed bool   `json:"re_order_need"`
}

// GET /api/supply-chain/seedlings
// 発注が必要な品目だけ
func (u *PurchaseUsecase) ListSeedlings(ctx context.Context, category model.ItemCategory) ([]SeedlingOutput, error) {
	if category == "" {
		category = SeedlingItemCategory
	}
	if !category.Valid() {
		return []SeedlingOutput{}, validationError("invalid category")
	}

	need := true
	outs := []SeedlingOutput{}
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		//ページを最後まで読む
		for page := 1; ; page++ {
			items, total, err := r.Items().List(ctx, repo.ItemListQuery{
				Page:        page,
				Limit:       100,
				Category:    &category,
				ReOrderNeed: &need,
				Sort:        "name",
			})
			if err != nil {
				return err
			}
			for _, it := range items {
				outs = append(outs, SeedlingOutput{
					ItemID:      it.ID,
					Name:        it.Name,
					StockLevel:  it.StockLevel,
					ReOrderNeed: it.ReOrderNeed,
				})
			}
			if len(items) == 0 || int64(page*100) >= total {
				return nil
			}
		}
	})
	if err != nil {
		return []SeedlingOutput{}, storeError(err)
	}
	return outs, nil
}

type AddPurchaseInput struct {
	// 0なら苗木品目
	ItemID       int64
	Supplier     string
	Quantity     int64
	Cost         decimal.Decimal
	PurchaseDate time.Time
}

// POST /api/supply-chain/seedlings
// 仕入れを記録してRECEIVEDで在庫に入れる
func (u *PurchaseUsecase) AddPurchase(ctx context.Context, in AddPurchaseInput) (model.Purchase, error) {
	supplier := strings.TrimSpace(in.Supplier)
	if supplier == "" || len(supplier) > 255 {
		return model.Purchase{}, validationError("invalid supplier")
	}
	if in.Quantity <= 0 {
		return model.Purchase{}, validationError("quantity must be > 0")
	}
	if in.Cost.IsNegative() {
		return model.Purchase{}, validationError("cost must be >= 0")
	}
	if in.PurchaseDate.IsZero() {
		return model.Purchase{}, validationError("purchase_date is required")
	}

	var out model.Purchase
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		item, err := u.purchaseItem(ctx, r, in.ItemID)
		if err != nil {
			return err
		}

		p, err := r.Purchases().Create(ctx, model.Purchase{
			ItemID:       item.ID,
			Supplier:     supplier,
			Quantity:     in.Quantity,
			Cost:         in.Cost,
			PurchaseDate: in.PurchaseDate,
		})
		if err != nil {
			return err
		}

		if _, err := applyInventoryAdjustment(ctx, r, adjustment{
			ItemID:         item.ID,
			EventType:      model.InventoryEventReceived,
			QuantityChange: in.Quantity,
			Reason:         "purchase from " + supplier,
			OperationID:    u.ids.NewID(),
			Date:           in.PurchaseDate,
		}); err != nil {
			return err
		}

		out = p
		return nil
	})
	if err != nil {
		return model.Purchase{}, storeError(err)
	}
	return out, nil
}

func (u *PurchaseUsecase) purchaseItem(ctx context.Context, r repo.TxRepos, itemID int64) (model.Item, error) {
	var (
		item model.Item
		err  error
	)
	if itemID > 0 {
		item, err = r.Items().FindByID(ctx, itemID)
	} else {
		item, err = r.Items().FindByNameAndCategory(ctx, SeedlingItemName, SeedlingItemCategory)
	}
	if errors.Is(err, repo.ErrNotFound) {
		return model.Item{}, notFound(CodeItemNotFound, "seedling item not found in inventory")
	}
	return item, err
}

func (u *PurchaseUsecase) GetPurchase(ctx context.Context, id int64) (model.Purchase, error) {
	if id <= 0 {
		return model.Purchase{}, validationError("invalid id")
	}
	var out model.Purchase
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		p, err := r.Purchases().FindByID(ctx, id)
		if errors.Is(err, repo.ErrNotFound) {
			return notFound(CodePurchaseNotFound, "purchase not found")
		}
		out = p
		return err
	})
	if err != nil {
		return model.Purchase{}, storeError(err)
	}
	return out, nil
}

type UpdatePurchaseInput struct {
	Supplier *string
	Quantity *int64
}

// PUT /api/supply-chain/seedlings/:id
// 数量の差分をADJUSTEDで反映
func (u *PurchaseUsecase) UpdatePurchase(ctx context.Context, id int64, in UpdatePurchaseInput) (model.Purchase, error) {
	if id <= 0 {
		return model.Purchase{}, validationError("invalid id")
	}
	if in.Supplier == nil && in.Quantity == nil {
		return model.Purchase{}, validationError("nothing to update")
	}
	if in.Supplier != nil {
		s := strings.TrimSpace(*in.Supplier)
		if s == "" || len(s) > 255 {
			return model.Purchase{}, validationError("invalid supplier")
		}
		in.Supplier = &s
	}
	if in.Quantity != nil && *in.Quantity <= 0 {
		return model.Purchase{}, validationError("quantity must be > 0")
	}

	var out model.Purchase
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		cur, err := r.Purchases().FindByIDForUpdate(ctx, id)
		if errors.Is(err, repo.ErrNotFound) {
			return notFound(CodePurchaseNotFound, "purchase not found")
		}
		if err != nil {
			return err
		}

		next := cur
		if in.Supplier != nil {
			next.Supplier = *in.Supplier
		}
		if in.Quantity != nil {
			next.Quantity = *in.Quantity
		}

		if delta := next.Quantity - cur.Quantity; delta != 0 {
			//減らす場合、すでに使われた分は戻せない（NegativeStock）
			if _, err := applyInventoryAdjustment(ctx, r, adjustment{
				ItemID:         cur.ItemID,
				EventType:      model.InventoryEventAdjusted,
				QuantityChange: delta,
				Reason:         "purchase quantity changed",
				OperationID:    u.ids.NewID(),
				Date:           u.clock.Now(),
			}); err != nil {
				return err
			}
		}

		if err := r.Purchases().Update(ctx, next); err != nil {
			return err
		}
		out, err = r.Purchases().FindByID(ctx, id)
		return err
	})
	if err != nil {
		return model.Purchase{}, storeError(err)
	}
	return out, nil
}

// DELETE /api/supply-chain/seedlings/:id
// 受け入れた分を−quantityのADJUSTEDで取り消す
func (u *PurchaseUsecase) DeletePurchase(ctx context.Context, id int64) error {
	if id <= 0 {
		return validationError("invalid id")
	}
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		p, err := r.Purchases().FindByIDForUpdate(ctx, id)
		if errors.Is(err, repo.ErrNotFound) {
			return notFound(CodePurchaseNotFound, "purchase not found")
		}
		if err != nil {
			return err
		}

		if _, err := applyInventoryAdjustment(ctx, r, adjustment{
			ItemID:         p.ItemID,
			EventType:      model.InventoryEventAdjusted,
			QuantityChange: -p.Quantity,
			Reason:         "purchase deleted",
			OperationID:    u.ids.NewID(),
			Date:           u.clock.Now(),
		}); err != nil {
			return err
		}

		return r.Purchases().Delete(ctx, id)
	})
	return storeError(err)
}
