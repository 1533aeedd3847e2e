package repository

import (
	"context"
	"time"

	"farmops/internal/domain/model"
)

// nilの項目は条件にしない
type AuditLogFilter struct {
	ActorUserID  *int64
	Action       *model.AuditAction
	ResourceType *model.AuditResourceType
	ResourceID   *int64
	CreatedFrom  *time.Time
	CreatedTo    *time.Time
	Limit        int
	Offset       int
}

// 在庫調整・注文ステータス・配送操作の記録。追記のみ
type AuditLogRepository interface {
	Append(ctx context.Context, entry model.AuditLog) error

	// 新しい順
	Search(ctx context.Context, f AuditLogFilter) ([]model.AuditLog, error)

	// 品目・注文・配送予定ひとつ分の履歴。古い順
	Timeline(ctx context.Context, resourceType model.AuditResourceType, resourceID int64) ([]model.AuditLog, error)
}
