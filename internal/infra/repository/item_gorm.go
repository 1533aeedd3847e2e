package repository

import (
	"context"
	"time"

	"farmops/internal/domain/model"
	repo "farmops/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ItemGormRepository struct {
	db *gorm.DB
}

// DI
func NewItemGormRepository(db *gorm.DB) *ItemGormRepository {
	return &ItemGormRepository{db: db}
}

func (r *ItemGormRepository) Create(ctx context.Context, item model.Item) (model.Item, error) {
	item.ReOrderNeed = model.NeedsReorder(item.StockLevel, item.MinStockLevel)
	if err := session(r.db, ctx).Create(&item).Error; err != nil {
		return model.Item{}, translate(err)
	}
	return item, nil
}

func (r *ItemGormRepository) FindByID(ctx context.Context, id int64) (model.Item, error) {
	var it model.Item
	if err := session(r.db, ctx).First(&it, id).Error; err != nil {
		return model.Item{}, translate(err)
	}
	return it, nil
}

func (r *ItemGormRepository) FindByIDForUpdate(ctx context.Context, id int64) (model.Item, error) {
	var it model.Item
	err := session(r.db, ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&it).Error
	if err != nil {
		return model.Item{}, translate(err)
	}
	return it, nil
}

func (r *ItemGormRepository) FindByNameAndCategory(ctx context.Context, name string, category model.ItemCategory) (model.Item, error) {
	var it model.Item
	err := session(r.db, ctx).
		Where("name = ? AND category = ?", name, category).
		Order("id asc").
		First(&it).Error
	if err != nil {
		return model.Item{}, translate(err)
	}
	return it, nil
}

// カテゴリ/最低在庫/発注要否/ソート/ページング付きで返す。
func (r *ItemGormRepository) List(ctx context.Context, q repo.ItemListQuery) ([]model.Item, int64, error) {
	page, limit := pageOf(q.Page, q.Limit, 20, 100)

	tx := session(r.db, ctx).Model(&model.Item{})
	if q.Category != nil {
		tx = tx.Where("category = ?", *q.Category)
	}
	if q.MinStock != nil {
		tx = tx.Where("stock_level >= ?", *q.MinStock)
	}
	if q.ReOrderNeed != nil {
		tx = tx.Where("re_order_need = ?", *q.ReOrderNeed)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return []model.Item{}, 0, err
	}

	switch q.Sort {
	case "name":
		tx = tx.Order("name asc").Order("id asc")
	case "-name":
		tx = tx.Order("name desc").Order("id desc")
	case "stock_level":
		tx = tx.Order("stock_level asc").Order("id asc")
	case "-stock_level":
		tx = tx.Order("stock_level desc").Order("id desc")
	default:
		tx = tx.Order("id asc")
	}

	var items []model.Item
	if err := tx.Offset((page - 1) * limit).Limit(limit).Find(&items).Error; err != nil {
		return []model.Item{}, 0, err
	}
	return items, total, nil
}

// 在庫数には触らない
func (r *ItemGormRepository) UpdateDetails(ctx context.Context, item model.Item) error {
	res := session(r.db, ctx).Model(&model.Item{}).
		Where("id = ?", item.ID).
		Updates(map[string]interface{}{
			"name":            item.Name,
			"min_stock_level": item.MinStockLevel,
			"unit_price":      item.UnitPrice,
			"re_order_need":   gorm.Expr("stock_level <= ?", item.MinStockLevel),
			"updated_at":      time.Now(),
		})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *ItemGormRepository) Delete(ctx context.Context, id int64) error {
	res := session(r.db, ctx).Delete(&model.Item{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 在庫が足りるときだけ差分更新（1文の条件付きUPDATE）
// SETの右辺は更新前の値を見るので、re_order_needも同じ文で再計算できる
func (r *ItemGormRepository) ApplyStockDelta(ctx context.Context, id int64, delta int64, allowNegative bool) (bool, error) {
	q := session(r.db, ctx).Model(&model.Item{}).Where("id = ?", id)
	if !allowNegative {
		q = q.Where("stock_level + ? >= 0", delta)
	}

	res := q.Updates(map[string]interface{}{
		"stock_level":   gorm.Expr("stock_level + ?", delta),
		"re_order_need": gorm.Expr("stock_level + ? <= min_stock_level", delta),
		"updated_at":    time.Now(),
	})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
