package repository

import (
	"context"
	"time"

	"farmops/internal/domain/model"
	repo "farmops/internal/repository"

	"gorm.io/gorm"
)

type CustomerGormRepository struct {
	db *gorm.DB
}

func NewCustomerGormRepository(db *gorm.DB) *CustomerGormRepository {
	return &CustomerGormRepository{db: db}
}

func (r *CustomerGormRepository) Create(ctx context.Context, c model.Customer) (model.Customer, error) {
	if err := session(r.db, ctx).Create(&c).Error; err != nil {
		return model.Customer{}, translate(err)
	}
	return c, nil
}

func (r *CustomerGormRepository) FindByID(ctx context.Context, id int64) (model.Customer, error) {
	var c model.Customer
	if err := session(r.db, ctx).First(&c, id).Error; err != nil {
		return model.Customer{}, translate(err)
	}
	return c, nil
}

func (r *CustomerGormRepository) List(ctx context.Context, page int, limit int) ([]model.Customer, int64, error) {
	page, limit = pageOf(page, limit, 50, 100)

	var total int64
	if err := session(r.db, ctx).Model(&model.Customer{}).Count(&total).Error; err != nil {
		return []model.Customer{}, 0, err
	}

	var items []model.Customer
	err := session(r.db, ctx).
		Order("id asc").
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&items).Error
	if err != nil {
		return []model.Customer{}, 0, err
	}
	return items, total, nil
}

func (r *CustomerGormRepository) Update(ctx context.Context, c model.Customer) error {
	res := session(r.db, ctx).Model(&model.Customer{}).
		Where("id = ?", c.ID).
		Updates(map[string]interface{}{
			"name":           c.Name,
			"email":          c.Email,
			"contact_number": c.ContactNumber,
			"preferences":    c.Preferences,
			"updated_at":     time.Now(),
		})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *CustomerGormRepository) Delete(ctx context.Context, id int64) error {
	res := session(r.db, ctx).Delete(&model.Customer{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}
