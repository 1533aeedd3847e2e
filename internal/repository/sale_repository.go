package repository

import (
	"context"

	"farmops/internal/domain/model"
)

type SaleListFilter struct {
	Page          int
	Limit         int
	OrderID       *int64
	PaymentStatus *model.PaymentStatus
}

type SaleRepository interface {
	Create(ctx context.Context, s model.Sale) (model.Sale, error)
	FindByID(ctx context.Context, id int64) (model.Sale, error)
	List(ctx context.Context, f SaleListFilter) ([]model.Sale, int64, error)
	Update(ctx context.Context, s model.Sale) error
	Delete(ctx context.Context, id int64) error
}
