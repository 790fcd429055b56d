package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PricingSettings carries the admin-mutable pricing knobs. A single row is
// read fresh at the start of every pricing request; nothing caches it
// in-process, so concurrent instances never act on stale markup.
type PricingSettings struct {
	ID               uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	MarkupPercentage decimal.Decimal `gorm:"column:markup_percentage;type:numeric(6,3);not null"`
	DefaultBaseFee   decimal.Decimal `gorm:"column:default_base_fee;type:numeric(12,2);not null"`
	UpdatedBy        *string         `gorm:"column:updated_by"`
	CreatedAt        time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// BrandBaseFee overrides the default base fee for a specific mint/brand.
type BrandBaseFee struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Brand     string          `gorm:"column:brand;not null;uniqueIndex"`
	BaseFee   decimal.Decimal `gorm:"column:base_fee;type:numeric(12,2);not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// VolumeDiscountTier reduces unit price once a cart line reaches min_qty.
// Tiers are non-cumulative; the highest applicable tier wins.
type VolumeDiscountTier struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	MinQty      int             `gorm:"column:min_qty;not null;uniqueIndex"`
	DiscountPct decimal.Decimal `gorm:"column:discount_pct;type:numeric(6,3);not null"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
}
