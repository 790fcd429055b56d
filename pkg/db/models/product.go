package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is the storefront listing for a bullion item. Metal, category and
// weight arrive from upstream catalog imports in heterogeneous shapes; the
// pricing normalizer is the only component allowed to interpret them.
type Product struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SKU         string          `gorm:"column:sku;not null;uniqueIndex"`
	Name        string          `gorm:"column:name;not null"`
	Brand       *string         `gorm:"column:brand"`
	Category    *string         `gorm:"column:category"`
	Metal       *string         `gorm:"column:metal"`
	WeightValue decimal.Decimal `gorm:"column:weight_value;type:numeric(12,4);not null;default:0"`
	WeightUnit  string          `gorm:"column:weight_unit;not null;default:'g'"`
	IsActive    bool            `gorm:"column:is_active;not null;default:true"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
