package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/southerncrossbullion/bullion-backend/pkg/enums"
)

// MetalQuoteSnapshot is an immutable point-in-time spot price, appended by the
// halt monitor each tick and read back for rolling-window drop evaluation.
type MetalQuoteSnapshot struct {
	ID            uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Symbol        enums.MetalSymbol `gorm:"column:symbol;not null;index:idx_quote_snapshots_symbol_captured"`
	PriceUSDPerOz decimal.Decimal   `gorm:"column:price_usd_per_oz;type:numeric(18,6);not null"`
	CapturedAt    time.Time         `gorm:"column:captured_at;not null;index:idx_quote_snapshots_symbol_captured"`
}
