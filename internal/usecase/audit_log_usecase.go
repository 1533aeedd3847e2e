package usecase

import (
	"context"

	"farmops/internal/domain/model"
	repo "farmops/internal/repository"
)

type AuditLogUsecase struct {
	tx repo.TransactionManager
}

func NewAuditLogUsecase(tx repo.TransactionManager) *AuditLogUsecase {
	return &AuditLogUsecase{tx: tx}
}

// GET /admin/audit-logs
func (u *AuditLogUsecase) List(ctx context.Context, f repo.AuditLogFilter) ([]model.AuditLog, error) {
	if f.Limit < 0 || f.Limit > 200 {
		return []model.AuditLog{}, validationError("invalid limit")
	}
	if f.Offset < 0 {
		return []model.AuditLog{}, validationError("invalid offset")
	}
	if f.CreatedFrom != nil && f.CreatedTo != nil && f.CreatedTo.Before(*f.CreatedFrom) {
		return []model.AuditLog{}, validationError("invalid period")
	}
	if f.Action != nil && !f.Action.Valid() {
		return []model.AuditLog{}, validationError("invalid action")
	}
	if f.ResourceType != nil && !f.ResourceType.Valid() {
		return []model.AuditLog{}, validationError("invalid resource_type")
	}

	var out []model.AuditLog
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		logs, err := r.AuditLogs().Search(ctx, f)
		out = logs
		return err
	})
	if err != nil {
		return []model.AuditLog{}, storeError(err)
	}
	if out == nil {
		out = []model.AuditLog{}
	}
	return out, nil
}

// GET /admin/audit-logs/:resource_type/:resource_id
// 対象ひとつの操作履歴（古い順）。削除済みの注文や予定の履歴も返す
func (u *AuditLogUsecase) Timeline(ctx context.Context, resourceType model.AuditResourceType, resourceID int64) ([]model.AuditLog, error) {
	if !resourceType.Valid() {
		return []model.AuditLog{}, validationError("invalid resource_type")
	}
	if resourceID <= 0 {
		return []model.AuditLog{}, validationError("invalid resource_id")
	}

	out := []model.AuditLog{}
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		logs, err := r.AuditLogs().Timeline(ctx, resourceType, resourceID)
		if logs != nil {
			out = logs
		}
		return err
	})
	if err != nil {
		return []model.AuditLog{}, storeError(err)
	}
	return out, nil
}
