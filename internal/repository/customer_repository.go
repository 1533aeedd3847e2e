package repository

import (
	"context"

	"farmops/internal/domain/model"
)

type CustomerRepository interface {
	// メール重複はErrDuplicate
	Create(ctx context.Context, c model.Customer) (model.Customer, error)
	FindByID(ctx context.Context, id int64) (model.Customer, error)
	List(ctx context.Context, page int, limit int) ([]model.Customer, int64, error)

	// name/email/contact_number/preferencesを上書き。メール重複はErrDuplicate
	Update(ctx context.Context, c model.Customer) error
	Delete(ctx context.Context, id int64) error
}
