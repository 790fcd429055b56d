package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/southerncrossbullion/bullion-backend/pkg/enums"
)

// PriceLock binds a calculated price to a (session, product) pair for a fixed
// window. It is the single source of truth a payment is validated against.
// USD and AUD amounts derive from the FX rate captured at lock time and are
// never recomputed afterwards. A partial unique index on
// (session_id, product_id) WHERE status = 'active' enforces at most one
// active lock per pair across process instances.
type PriceLock struct {
	ID             uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SessionID      string                `gorm:"column:session_id;not null;index:idx_price_locks_session"`
	ProductID      uuid.UUID             `gorm:"column:product_id;type:uuid;not null"`
	CustomerID     *uuid.UUID            `gorm:"column:customer_id;type:uuid"`
	MetalSymbol    enums.MetalSymbol     `gorm:"column:metal_symbol;not null"`
	LockedPriceUSD decimal.Decimal       `gorm:"column:locked_price_usd;type:numeric(12,2);not null"`
	LockedPriceAUD decimal.Decimal       `gorm:"column:locked_price_aud;type:numeric(12,2);not null"`
	FXRate         decimal.Decimal       `gorm:"column:fx_rate;type:numeric(18,8);not null"`
	FXDegraded     bool                  `gorm:"column:fx_degraded;not null;default:false"`
	Currency       enums.Currency        `gorm:"column:currency;not null;default:'USD'"`
	Status         enums.PriceLockStatus `gorm:"column:status;not null;default:'active'"`
	CreatedAt      time.Time             `gorm:"column:created_at;autoCreateTime"`
	ExpiresAt      time.Time             `gorm:"column:expires_at;not null"`
	UsedAt         *time.Time            `gorm:"column:used_at"`
}

// Active reports whether the lock is usable at the supplied instant. Expiry is
// evaluated lazily against expires_at; the sweep job is storage hygiene only.
func (l PriceLock) Active(now time.Time) bool {
	return l.Status == enums.PriceLockStatusActive && l.ExpiresAt.After(now)
}
