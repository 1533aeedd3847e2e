package usecase

import (
	"context"
	"errors"
	"time"

	"farmops/internal/domain/model"
	"farmops/internal/logging"
	repo "farmops/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type SaleUsecase struct {
	tx       repo.TransactionManager
	notifier AccountingNotifier
	clock    Clock
	log      logrus.FieldLogger
}

func NewSaleUsecase(tx repo.TransactionManager, notifier AccountingNotifier, clock Clock, log logrus.FieldLogger) *SaleUsecase {
	return &SaleUsecase{tx: tx, notifier: notifier, clock: clock, log: log}
}

type CreateSaleInput struct {
	OrderID       int64
	Amount        decimal.Decimal
	SaleDate      time.Time
	PaymentStatus model.PaymentStatus
}

// POST /sales
func (u *SaleUsecase) CreateSale(ctx context.Context, in CreateSaleInput) (model.Sale, error) {
	if in.OrderID <= 0 {
		return model.Sale{}, validationError("invalid order_id")
	}
	if !in.Amount.IsPositive() {
		return model.Sale{}, validationError("amount must be > 0")
	}
	if in.SaleDate.IsZero() {
		return model.Sale{}, validationError("sale_date is required")
	}
	if in.PaymentStatus == "" {
		in.PaymentStatus = model.PaymentStatusPending
	}
	if !in.PaymentStatus.Valid() {
		return model.Sale{}, validationError("invalid payment_status")
	}

	var out model.Sale
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if _, err := r.Orders().FindByID(ctx, in.OrderID); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return notFound(CodeOrderNotFound, "order not found")
			}
			return err
		}
		s, err := r.Sales().Create(ctx, model.Sale{
			OrderID:       in.OrderID,
			Amount:        in.Amount,
			SaleDate:      in.SaleDate,
			PaymentStatus: in.PaymentStatus,
		})
		out = s
		return err
	})
	if err != nil {
		return model.Sale{}, storeError(err)
	}

	u.notify(ctx, SaleCreated, out)
	return out, nil
}

func (u *SaleUsecase) GetSale(ctx context.Context, id int64) (model.Sale, error) {
	if id <= 0 {
		return model.Sale{}, validationError("invalid id")
	}
	var out model.Sale
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		s, err := r.Sales().FindByID(ctx, id)
		if errors.Is(err, repo.ErrNotFound) {
			return notFound(CodeSaleNotFound, "sale not found")
		}
		out = s
		return err
	})
	if err != nil {
		return model.Sale{}, storeError(err)
	}
	return out, nil
}

type SaleListOutput struct {
	Sales []model.Sale `json:"sales"`
	Total int64        `json:"total"`
	Page  int          `json:"page"`
	Limit int          `json:"limit"`
}

func (u *SaleUsecase) ListSales(ctx context.Context, f repo.SaleListFilter) (SaleListOutput, error) {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Limit > 100 {
		return SaleListOutput{}, validationError("invalid limit")
	}
	if f.PaymentStatus != nil && !f.PaymentStatus.Valid() {
		return SaleListOutput{}, validationError("invalid payment_status")
	}
	out := SaleListOutput{Page: f.Page, Limit: f.Limit}
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		items, total, err := r.Sales().List(ctx, f)
		out.Sales = items
		out.Total = total
		return err
	})
	if err != nil {
		return SaleListOutput{}, storeError(err)
	}
	return out, nil
}

type UpdateSaleInput struct {
	Amount        *decimal.Decimal
	SaleDate      *time.Time
	PaymentStatus *model.PaymentStatus
}

// PUT /sales/:id
func (u *SaleUsecase) UpdateSale(ctx context.Context, id int64, in UpdateSaleInput) (model.Sale, error) {
	if id <= 0 {
		return model.Sale{}, validationError("invalid id")
	}
	if in.Amount != nil && !in.Amount.IsPositive() {
		return model.Sale{}, validationError("amount must be > 0")
	}
	if in.PaymentStatus != nil && !in.PaymentStatus.Valid() {
		return model.Sale{}, validationError("invalid payment_status")
	}

	var out model.Sale
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		cur, err := r.Sales().FindByID(ctx, id)
		if errors.Is(err, repo.ErrNotFound) {
			return notFound(CodeSaleNotFound, "sale not found")
		}
		if err != nil {
			return err
		}
		if in.Amount != nil {
			cur.Amount = *in.Amount
		}
		if in.SaleDate != nil {
			cur.SaleDate = *in.SaleDate
		}
		if in.PaymentStatus != nil {
			cur.PaymentStatus = *in.PaymentStatus
		}
		if err := r.Sales().Update(ctx, cur); err != nil {
			return err
		}
		out, err = r.Sales().FindByID(ctx, id)
		return err
	})
	if err != nil {
		return model.Sale{}, storeError(err)
	}

	u.notify(ctx, SaleUpdated, out)
	return out, nil
}

// DELETE /sales/:id
func (u *SaleUsecase) DeleteSale(ctx context.Context, id int64) error {
	if id <= 0 {
		return validationError("invalid id")
	}
	var deleted model.Sale
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		s, err := r.Sales().FindByID(ctx, id)
		if errors.Is(err, repo.ErrNotFound) {
			return notFound(CodeSaleNotFound, "sale not found")
		}
		if err != nil {
			return err
		}
		deleted = s
		return r.Sales().Delete(ctx, id)
	})
	if err != nil {
		return storeError(err)
	}

	u.notify(ctx, SaleDeleted, deleted)
	return nil
}

// コミット後に通知。失敗はログだけ
func (u *SaleUsecase) notify(ctx context.Context, action SaleAction, s model.Sale) {
	if u.notifier == nil {
		return
	}
	n := SaleNotification{
		Action:        action,
		SaleID:        s.ID,
		OrderID:       s.OrderID,
		Amount:        s.Amount,
		SaleDate:      s.SaleDate,
		PaymentStatus: s.PaymentStatus,
		OccurredAt:    u.clock.Now(),
	}
	if err := u.notifier.NotifySale(context.WithoutCancel(ctx), n); err != nil {
		logging.LogError(u.log, "sale", "notify", "accounting notification failed", n, err)
	}
}
