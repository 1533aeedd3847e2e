package repository

import (
	"context"

	"farmops/internal/domain/model"
)

type PurchaseRepository interface {
	Create(ctx context.Context, p model.Purchase) (model.Purchase, error)
	FindByID(ctx context.Context, id int64) (model.Purchase, error)

	// 行ロック付き。数量の差分を在庫に一度だけ反映するため
	FindByIDForUpdate(ctx context.Context, id int64) (model.Purchase, error)
	Update(ctx context.Context, p model.Purchase) error
	Delete(ctx context.Context, id int64) error
}
