package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/southerncrossbullion/bullion-backend/pkg/enums"
)

// HaltRule is the admin-mutable auto-halt threshold for one metal.
type HaltRule struct {
	ID               uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Symbol           enums.MetalSymbol `gorm:"column:symbol;not null;uniqueIndex"`
	DropThresholdPct decimal.Decimal   `gorm:"column:drop_threshold_pct;type:numeric(6,3);not null"`
	WindowMinutes    int               `gorm:"column:window_minutes;not null"`
	Enabled          bool              `gorm:"column:enabled;not null;default:true"`
	CreatedAt        time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// HaltState is the per-symbol sales gate. One row per metal symbol plus the
// implicit ALL override row.
type HaltState struct {
	ID        uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Symbol    enums.MetalSymbol `gorm:"column:symbol;not null;uniqueIndex"`
	IsHalted  bool              `gorm:"column:is_halted;not null;default:false"`
	HaltedAt  *time.Time        `gorm:"column:halted_at"`
	HaltedBy  *string           `gorm:"column:halted_by"`
	Reason    *string           `gorm:"column:halt_reason"`
	ResumedAt *time.Time        `gorm:"column:resumed_at"`
	ResumedBy *string           `gorm:"column:resumed_by"`
	CreatedAt time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// HaltEvent is the append-only audit trail of real halt transitions.
// Idempotent no-op toggles never append here.
type HaltEvent struct {
	ID         uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Symbol     enums.MetalSymbol `gorm:"column:symbol;not null;index"`
	Action     enums.HaltAction  `gorm:"column:action;not null"`
	Actor      string            `gorm:"column:actor;not null"`
	Reason     *string           `gorm:"column:reason"`
	OccurredAt time.Time         `gorm:"column:occurred_at;not null"`
	CreatedAt  time.Time         `gorm:"column:created_at;autoCreateTime"`
}
