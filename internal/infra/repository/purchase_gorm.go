package repository

import (
	"context"
	"time"

	"farmops/internal/domain/model"
	repo "farmops/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PurchaseGormRepository struct {
	db *gorm.DB
}

func NewPurchaseGormRepository(db *gorm.DB) *PurchaseGormRepository {
	return &PurchaseGormRepository{db: db}
}

func (r *PurchaseGormRepository) Create(ctx context.Context, p model.Purchase) (model.Purchase, error) {
	if err := session(r.db, ctx).Create(&p).Error; err != nil {
		return model.Purchase{}, err
	}
	return p, nil
}

func (r *PurchaseGormRepository) FindByID(ctx context.Context, id int64) (model.Purchase, error) {
	var p model.Purchase
	if err := session(r.db, ctx).First(&p, id).Error; err != nil {
		return model.Purchase{}, translate(err)
	}
	return p, nil
}

func (r *PurchaseGormRepository) FindByIDForUpdate(ctx context.Context, id int64) (model.Purchase, error) {
	var p model.Purchase
	err := session(r.db, ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&p).Error
	if err != nil {
		return model.Purchase{}, translate(err)
	}
	return p, nil
}

func (r *PurchaseGormRepository) Update(ctx context.Context, p model.Purchase) error {
	res := session(r.db, ctx).Model(&model.Purchase{}).
		Where("id = ?", p.ID).
		Updates(map[string]interface{}{
			"supplier":      p.Supplier,
			"quantity":      p.Quantity,
			"cost":          p.Cost,
			"purchase_date": p.PurchaseDate,
			"updated_at":    time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *PurchaseGormRepository) Delete(ctx context.Context, id int64) error {
	res := session(r.db, ctx).Delete(&model.Purchase{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}
