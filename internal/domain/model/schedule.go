package model

import "time"

type ScheduleType string

const (
	ScheduleTypeDelivery    ScheduleType = "DELIVERY"
	ScheduleTypeTreatment   ScheduleType = "TREATMENT"
	ScheduleTypeMaintenance ScheduleType = "MAINTENANCE"
	ScheduleTypeHarvest     ScheduleType = "HARVEST"
)

func (t ScheduleType) Valid() bool {
	switch t {
	case ScheduleTypeDelivery, ScheduleTypeTreatment, ScheduleTypeMaintenance, ScheduleTypeHarvest:
		return true
	}
	return false
}

type ScheduleStatus string

const (
	ScheduleStatusPending   ScheduleStatus = "PENDING"
	ScheduleStatusCompleted ScheduleStatus = "COMPLETED"
	ScheduleStatusCancelled ScheduleStatus = "CANCELLED"
)

func (s ScheduleStatus) Valid() bool {
	switch s {
	case ScheduleStatusPending, ScheduleStatusCompleted, ScheduleStatusCancelled:
		return true
	}
	return false
}

// COMPLETED / CANCELLED は再キャンセル・再完了しない
func (s ScheduleStatus) IsTerminal() bool {
	switch s {
	case ScheduleStatusCompleted, ScheduleStatusCancelled:
		return true
	}
	return false
}

// 予定（配送・施肥など）
type Schedule struct {
	ID          int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	Type        ScheduleType   `gorm:"type:varchar(20);not null;index" json:"type"`
	Status      ScheduleStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	ScheduledOn time.Time      `gorm:"not null;index" json:"scheduled_on"`
	UserID      *int64         `gorm:"index" json:"user_id"`
	Destination string         `gorm:"type:varchar(255);not null;default:''" json:"destination"`
	Notes       string         `gorm:"type:text;not null;default:''" json:"notes"`
	CreatedAt   time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
