package quotes

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/southerncrossbullion/bullion-backend/pkg/enums"
)

// Quote is one live spot price as reported by the upstream vendor.
type Quote struct {
	Symbol        enums.MetalSymbol
	PriceUSDPerOz decimal.Decimal
	AsOf          time.Time
}

// Provider fetches live spot prices and FX rates from the quote vendor.
// Implementations fail fast; callers decide whether a fallback applies.
type Provider interface {
	SpotPrices(ctx context.Context, symbols []enums.MetalSymbol) (map[enums.MetalSymbol]Quote, error)
	FXRate(ctx context.Context, from, to enums.Currency) (decimal.Decimal, error)
}
