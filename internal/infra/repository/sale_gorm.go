package repository

import (
	"context"
	"time"

	"farmops/internal/domain/model"
	repo "farmops/internal/repository"

	"gorm.io/gorm"
)

type SaleGormRepository struct {
	db *gorm.DB
}

func NewSaleGormRepository(db *gorm.DB) *SaleGormRepository {
	return &SaleGormRepository{db: db}
}

func (r *SaleGormRepository) Create(ctx context.Context, s model.Sale) (model.Sale, error) {
	if err := session(r.db, ctx).Create(&s).Error; err != nil {
		return model.Sale{}, err
	}
	return s, nil
}

func (r *SaleGormRepository) FindByID(ctx context.Context, id int64) (model.Sale, error) {
	var s model.Sale
	if err := session(r.db, ctx).First(&s, id).Error; err != nil {
		return model.Sale{}, translate(err)
	}
	return s, nil
}

func (r *SaleGormRepository) List(ctx context.Context, f repo.SaleListFilter) ([]model.Sale, int64, error) {
	f.Page, f.Limit = pageOf(f.Page, f.Limit, 50, 100)

	q := session(r.db, ctx).Model(&model.Sale{})
	if f.OrderID != nil {
		q = q.Where("order_id = ?", *f.OrderID)
	}
	if f.PaymentStatus != nil {
		q = q.Where("payment_status = ?", *f.PaymentStatus)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return []model.Sale{}, 0, err
	}

	var items []model.Sale
	if err := q.Order("sale_date desc").Order("id desc").
		Limit(f.Limit).Offset((f.Page - 1) * f.Limit).
		Find(&items).Error; err != nil {
		return []model.Sale{}, 0, err
	}
	return items, total, nil
}

func (r *SaleGormRepository) Update(ctx context.Context, s model.Sale) error {
	res := session(r.db, ctx).Model(&model.Sale{}).
		Where("id = ?", s.ID).
		Updates(map[string]interface{}{
			"amount":         s.Amount,
			"sale_date":      s.SaleDate,
			"payment_status": s.PaymentStatus,
			"updated_at":     time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *SaleGormRepository) Delete(ctx context.Context, id int64) error {
	res := session(r.db, ctx).Delete(&model.Sale{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}
