package usecase

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"farmops/internal/domain/model"
	repo "farmops/internal/repository"
)

type CustomerUsecase struct {
	tx repo.TransactionManager
}

func NewCustomerUsecase(tx repo.TransactionManager) *CustomerUsecase {
	return &CustomerUsecase{tx: tx}
}

type CreateCustomerInput struct {
	Name          string
	Email         string
	ContactNumber string
	Preferences   string
}

// POST /customers
func (u *CustomerUsecase) CreateCustomer(ctx context.Context, in CreateCustomerInput) (model.Customer, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" || len(name) > 255 {
		return model.Customer{}, validationError("invalid name")
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if _, err := mail.ParseAddress(email); err != nil || len(email) > 255 {
		return model.Customer{}, validationError("invalid email")
	}
	contact := strings.TrimSpace(in.ContactNumber)
	if len(contact) > 30 {
		return model.Customer{}, validationError("invalid contact_number")
	}

	var out model.Customer
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		c, err := r.Customers().Create(ctx, model.Customer{
			Name:          name,
			Email:         email,
			ContactNumber: contact,
			Preferences:   strings.TrimSpace(in.Preferences),
		})
		if errors.Is(err, repo.ErrDuplicate) {
			return NewError(KindConflict, CodeDuplicateEmail, "email already registered")
		}
		out = c
		return err
	})
	if err != nil {
		return model.Customer{}, storeError(err)
	}
	return out, nil
}

type UpdateCustomerInput struct {
	Name          *string
	Email         *string
	ContactNumber *string
	Preferences   *string
}

type UpdateCustomerOutput struct {
	Success       bool           `json:"success"`
	CustomerID    int64          `json:"customer_id"`
	UpdatedFields []string       `json:"updated_fields"`
	Customer      model.Customer `json:"customer"`
}

// PUT /customers/:id
// 指定された項目のうち、値が変わったものだけ更新してその項目名を返す
func (u *CustomerUsecase) UpdateCustomer(ctx context.Context, id int64, in UpdateCustomerInput) (UpdateCustomerOutput, error) {
	if id <= 0 {
		return UpdateCustomerOutput{}, validationError("invalid id")
	}
	if in.Name != nil {
		n := strings.TrimSpace(*in.Name)
		if n == "" || len(n) > 255 {
			return UpdateCustomerOutput{}, validationError("invalid name")
		}
		in.Name = &n
	}
	if in.Email != nil {
		e := strings.ToLower(strings.TrimSpace(*in.Email))
		if _, err := mail.ParseAddress(e); err != nil || len(e) > 255 {
			return UpdateCustomerOutput{}, validationError("invalid email")
		}
		in.Email = &e
	}
	if in.ContactNumber != nil {
		cn := strings.TrimSpace(*in.ContactNumber)
		if len(cn) > 30 {
			return UpdateCustomerOutput{}, validationError("invalid contact_number")
		}
		in.ContactNumber = &cn
	}
	if in.Preferences != nil {
		p := strings.TrimSpace(*in.Preferences)
		in.Preferences = &p
	}

	out := UpdateCustomerOutput{CustomerID: id, UpdatedFields: []string{}}
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		cur, err := r.Customers().FindByID(ctx, id)
		if errors.Is(err, repo.ErrNotFound) {
			return notFound(CodeCustomerNotFound, "customer not found")
		}
		if err != nil {
			return err
		}

		next := cur
		if in.Email != nil && *in.Email != cur.Email {
			next.Email = *in.Email
			out.UpdatedFields = append(out.UpdatedFields, "email")
		}
		if in.Name != nil && *in.Name != cur.Name {
			next.Name = *in.Name
			out.UpdatedFields = append(out.UpdatedFields, "name")
		}
		if in.ContactNumber != nil && *in.ContactNumber != cur.ContactNumber {
			next.ContactNumber = *in.ContactNumber
			out.UpdatedFields = append(out.UpdatedFields, "contact_number")
		}
		if in.Preferences != nil && *in.Preferences != cur.Preferences {
			next.Preferences = *in.Preferences
			out.UpdatedFields = append(out.UpdatedFields, "preferences")
		}

		if len(out.UpdatedFields) > 0 {
			err := r.Customers().Update(ctx, next)
			if errors.Is(err, repo.ErrDuplicate) {
				return NewError(KindConflict, CodeDuplicateEmail, "email already registered")
			}
			if err != nil {
				return err
			}
		}
		out.Customer, err = r.Customers().FindByID(ctx, id)
		return err
	})
	if err != nil {
		return UpdateCustomerOutput{}, storeError(err)
	}
	out.Success = true
	return out, nil
}

type CustomerDetailOutput struct {
	model.Customer
	OpenOrders int64 `json:"open_orders"`
}

// GET /customers/:id
func (u *CustomerUsecase) GetCustomer(ctx context.Context, id int64) (CustomerDetailOutput, error) {
	if id <= 0 {
		return CustomerDetailOutput{}, validationError("invalid id")
	}
	var out CustomerDetailOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		c, err := r.Customers().FindByID(ctx, id)
		if errors.Is(err, repo.ErrNotFound) {
			return notFound(CodeCustomerNotFound, "customer not found")
		}
		if err != nil {
			return err
		}
		open, err := r.Orders().CountOpenByCustomerID(ctx, id)
		if err != nil {
			return err
		}
		out = CustomerDetailOutput{Customer: c, OpenOrders: open}
		return nil
	})
	if err != nil {
		return CustomerDetailOutput{}, storeError(err)
	}
	return out, nil
}

type CustomerListOutput struct {
	Customers []model.Customer `json:"customers"`
	Total     int64            `json:"total"`
	Page      int              `json:"page"`
	Limit     int              `json:"limit"`
}

// GET /customers
func (u *CustomerUsecase) ListCustomers(ctx context.Context, page int, limit int) (CustomerListOutput, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		return CustomerListOutput{}, validationError("invalid limit")
	}
	out := CustomerListOutput{Page: page, Limit: limit}
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		items, total, err := r.Customers().List(ctx, page, limit)
		out.Customers = items
		out.Total = total
		return err
	})
	if err != nil {
		return CustomerListOutput{}, storeError(err)
	}
	return out, nil
}

// DELETE /customers/:id
// 未終端の注文がある顧客は消さない
func (u *CustomerUsecase) DeleteCustomer(ctx context.Context, id int64) error {
	if id <= 0 {
		return validationError("invalid id")
	}
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if _, err := r.Customers().FindByID(ctx, id); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return notFound(CodeCustomerNotFound, "customer not found")
			}
			return err
		}
		open, err := r.Orders().CountOpenByCustomerID(ctx, id)
		if err != nil {
			return err
		}
		if open > 0 {
			return NewError(KindInvalidState, CodeHasOpenOrders, "customer has open orders")
		}
		return r.Customers().Delete(ctx, id)
	})
	return storeError(err)
}
