package pricing

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/southerncrossbullion/bullion-backend/internal/quotes"
	"github.com/southerncrossbullion/bullion-backend/pkg/db/models"
	"github.com/southerncrossbullion/bullion-backend/pkg/enums"
	pkgerrors "github.com/southerncrossbullion/bullion-backend/pkg/errors"
)

var (
	oneHundred = decimal.NewFromInt(100)
)

// ProductPrice is the priced result for a single product. Both currency
// amounts are final, rounded figures; AUD derives from the rounded USD price
// at the batch FX rate so downstream validation reproduces it exactly.
type ProductPrice struct {
	ProductID    uuid.UUID
	Symbol       enums.MetalSymbol
	SpotUSDPerOz decimal.Decimal
	UnitPriceUSD decimal.Decimal
	UnitPriceAUD decimal.Decimal
	FXRate       decimal.Decimal
	FXDegraded   bool
}

// Calculator turns pricing specs plus live quotes into sell prices.
//
//	unit = spot / 31.1035 * weight_grams
//	unit = unit * (1 + markup/100) + base fee
//
// rounded half-up to cents. One spot fetch and one FX fetch per batch.
type Calculator struct {
	provider quotes.Provider
	fx       *quotes.FXSource
}

// NewCalculator validates dependencies and builds a calculator.
func NewCalculator(provider quotes.Provider, fx *quotes.FXSource) (*Calculator, error) {
	if provider == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "quote provider is required")
	}
	if fx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "fx source is required")
	}
	return &Calculator{provider: provider, fx: fx}, nil
}

// PriceProducts prices every spec in the batch or fails. A missing quote or
// broken spec is unpriceable; an FX outage without a configured fallback is
// batch-fatal.
func (c *Calculator) PriceProducts(ctx context.Context, specs []PricingSpec, settings *Settings) (map[uuid.UUID]ProductPrice, error) {
	if len(specs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one product is required")
	}
	if settings == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "pricing settings are required")
	}

	seen := make(map[enums.MetalSymbol]bool, len(specs))
	symbols := make([]enums.MetalSymbol, 0, len(specs))
	for _, spec := range specs {
		if !seen[spec.Symbol] {
			seen[spec.Symbol] = true
			symbols = append(symbols, spec.Symbol)
		}
	}

	spot, err := c.provider.SpotPrices(ctx, symbols)
	if err != nil {
		return nil, err
	}

	fxResult, err := c.fx.Rate(ctx, enums.CurrencyUSD, enums.CurrencyAUD)
	if err != nil {
		return nil, err
	}

	markupFactor := decimal.NewFromInt(1).Add(settings.MarkupPercentage.Div(oneHundred))

	prices := make(map[uuid.UUID]ProductPrice, len(specs))
	for _, spec := range specs {
		quote, ok := spot[spec.Symbol]
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeUnpriceable, fmt.Sprintf("no live quote for %s", spec.Symbol))
		}
		if !spec.WeightGrams.IsPositive() {
			return nil, pkgerrors.New(pkgerrors.CodeUnpriceable, fmt.Sprintf("product %s has non-positive weight", spec.ProductID))
		}

		metalValue := quote.PriceUSDPerOz.Div(gramsPerTroyOunce).Mul(spec.WeightGrams)
		usd := metalValue.Mul(markupFactor).Add(settings.BrandFee(spec.Brand)).Round(2)
		aud := usd.Mul(fxResult.Rate).Round(2)

		prices[spec.ProductID] = ProductPrice{
			ProductID:    spec.ProductID,
			Symbol:       spec.Symbol,
			SpotUSDPerOz: quote.PriceUSDPerOz,
			UnitPriceUSD: usd,
			UnitPriceAUD: aud,
			FXRate:       fxResult.Rate,
			FXDegraded:   fxResult.Degraded,
		}
	}

	return prices, nil
}

// ApplyVolumeDiscount reduces the unit price by the highest tier whose min
// quantity is met. Tiers are non-cumulative and ordered by min_qty; below the
// lowest tier the price is unchanged.
func ApplyVolumeDiscount(unitPrice decimal.Decimal, qty int, tiers []models.VolumeDiscountTier) decimal.Decimal {
	applied := decimal.Zero
	appliedMinQty := -1
	for _, tier := range tiers {
		if qty >= tier.MinQty && tier.MinQty > appliedMinQty {
			appliedMinQty = tier.MinQty
			applied = tier.DiscountPct
		}
	}
	if applied.IsZero() {
		return unitPrice
	}
	factor := decimal.NewFromInt(1).Sub(applied.Div(oneHundred))
	return unitPrice.Mul(factor).Round(2)
}
