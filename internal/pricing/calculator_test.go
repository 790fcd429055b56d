package pricing

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/southerncrossbullion/bullion-backend/internal/quotes"
	"github.com/southerncrossbullion/bullion-backend/pkg/db/models"
	"github.com/southerncrossbullion/bullion-backend/pkg/enums"
	pkgerrors "github.com/southerncrossbullion/bullion-backend/pkg/errors"
	"github.com/southerncrossbullion/bullion-backend/pkg/logger"
)

type fakeProvider struct {
	spot     map[enums.MetalSymbol]quotes.Quote
	spotErr  error
	fxRate   decimal.Decimal
	fxErr    error
	fxCalls  int
	spotReqs [][]enums.MetalSymbol
}

func (f *fakeProvider) SpotPrices(ctx context.Context, symbols []enums.MetalSymbol) (map[enums.MetalSymbol]quotes.Quote, error) {
	f.spotReqs = append(f.spotReqs, symbols)
	return f.spot, f.spotErr
}

func (f *fakeProvider) FXRate(ctx context.Context, from, to enums.Currency) (decimal.Decimal, error) {
	f.fxCalls++
	return f.fxRate, f.fxErr
}

func quietLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func newTestCalculator(t *testing.T, provider *fakeProvider, fallback decimal.Decimal) *Calculator {
	t.Helper()
	fx, err := quotes.NewFXSource(provider, fallback, quietLogger())
	require.NoError(t, err)
	calc, err := NewCalculator(provider, fx)
	require.NoError(t, err)
	return calc
}

func goldSpot(price string) map[enums.MetalSymbol]quotes.Quote {
	return map[enums.MetalSymbol]quotes.Quote{
		enums.MetalGold: {Symbol: enums.MetalGold, PriceUSDPerOz: decimal.RequireFromString(price)},
	}
}

func TestPriceProductsOneOunceGold(t *testing.T) {
	t.Parallel()

	// 1 ozt of gold at $2000 spot, 10% markup, $10 fee: 2000*1.10+10 = 2210.00
	provider := &fakeProvider{
		spot:   goldSpot("2000"),
		fxRate: decimal.RequireFromString("1.50"),
	}
	calc := newTestCalculator(t, provider, decimal.Zero)

	productID := uuid.New()
	specs := []PricingSpec{{
		ProductID:   productID,
		Symbol:      enums.MetalGold,
		WeightGrams: decimal.RequireFromString("31.1035"),
	}}
	settings := &Settings{
		MarkupPercentage: decimal.RequireFromString("10"),
		DefaultBaseFee:   decimal.RequireFromString("10"),
	}

	prices, err := calc.PriceProducts(context.Background(), specs, settings)
	require.NoError(t, err)

	price := prices[productID]
	assert.Equal(t, "2210", price.UnitPriceUSD.String())
	assert.Equal(t, "3315", price.UnitPriceAUD.String())
	assert.False(t, price.FXDegraded)
	assert.Equal(t, 1, provider.fxCalls)
	require.Len(t, provider.spotReqs, 1)
}

func TestPriceProductsRoundsHalfUp(t *testing.T) {
	t.Parallel()

	// 10g at $2000/ozt, no markup, no fee: 2000/31.1035*10 = 643.014...
	provider := &fakeProvider{spot: goldSpot("2000"), fxRate: decimal.NewFromInt(1)}
	calc := newTestCalculator(t, provider, decimal.Zero)

	productID := uuid.New()
	specs := []PricingSpec{{
		ProductID:   productID,
		Symbol:      enums.MetalGold,
		WeightGrams: decimal.RequireFromString("10"),
	}}
	settings := &Settings{MarkupPercentage: decimal.Zero, DefaultBaseFee: decimal.Zero}

	prices, err := calc.PriceProducts(context.Background(), specs, settings)
	require.NoError(t, err)
	assert.Equal(t, "643.01", prices[productID].UnitPriceUSD.String())
}

func TestPriceProductsBrandFeeOverride(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{spot: goldSpot("2000"), fxRate: decimal.NewFromInt(1)}
	calc := newTestCalculator(t, provider, decimal.Zero)

	productID := uuid.New()
	specs := []PricingSpec{{
		ProductID:   productID,
		Symbol:      enums.MetalGold,
		WeightGrams: decimal.RequireFromString("31.1035"),
		Brand:       "Perth Mint",
	}}
	settings := &Settings{
		MarkupPercentage: decimal.Zero,
		DefaultBaseFee:   decimal.RequireFromString("10"),
		BrandFees:        map[string]decimal.Decimal{"perth mint": decimal.RequireFromString("25")},
	}

	prices, err := calc.PriceProducts(context.Background(), specs, settings)
	require.NoError(t, err)
	assert.Equal(t, "2025", prices[productID].UnitPriceUSD.String())
}

func TestPriceProductsFXFailureIsBatchFatal(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{
		spot:  goldSpot("2000"),
		fxErr: pkgerrors.New(pkgerrors.CodeUpstreamUnavailable, "fx down"),
	}
	calc := newTestCalculator(t, provider, decimal.Zero)

	specs := []PricingSpec{{
		ProductID:   uuid.New(),
		Symbol:      enums.MetalGold,
		WeightGrams: decimal.RequireFromString("10"),
	}}
	settings := &Settings{MarkupPercentage: decimal.Zero, DefaultBaseFee: decimal.Zero}

	_, err := calc.PriceProducts(context.Background(), specs, settings)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeUpstreamUnavailable, typed.Code())
}

func TestPriceProductsFXFallbackMarksDegraded(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{
		spot:  goldSpot("2000"),
		fxErr: pkgerrors.New(pkgerrors.CodeUpstreamUnavailable, "fx down"),
	}
	calc := newTestCalculator(t, provider, decimal.RequireFromString("1.40"))

	productID := uuid.New()
	specs := []PricingSpec{{
		ProductID:   productID,
		Symbol:      enums.MetalGold,
		WeightGrams: decimal.RequireFromString("31.1035"),
	}}
	settings := &Settings{MarkupPercentage: decimal.Zero, DefaultBaseFee: decimal.Zero}

	prices, err := calc.PriceProducts(context.Background(), specs, settings)
	require.NoError(t, err)
	assert.True(t, prices[productID].FXDegraded)
	assert.Equal(t, "2800", prices[productID].UnitPriceAUD.String())
}

func TestPriceProductsMissingQuoteIsUnpriceable(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{spot: goldSpot("2000"), fxRate: decimal.NewFromInt(1)}
	calc := newTestCalculator(t, provider, decimal.Zero)

	specs := []PricingSpec{{
		ProductID:   uuid.New(),
		Symbol:      enums.MetalSilver,
		WeightGrams: decimal.RequireFromString("10"),
	}}
	settings := &Settings{MarkupPercentage: decimal.Zero, DefaultBaseFee: decimal.Zero}

	_, err := calc.PriceProducts(context.Background(), specs, settings)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeUnpriceable, typed.Code())
}

func TestApplyVolumeDiscount(t *testing.T) {
	t.Parallel()

	tiers := []models.VolumeDiscountTier{
		{MinQty: 5, DiscountPct: decimal.RequireFromString("2")},
		{MinQty: 10, DiscountPct: decimal.RequireFromString("5")},
	}
	unit := decimal.RequireFromString("100.00")

	assert.Equal(t, "100", ApplyVolumeDiscount(unit, 1, tiers).String())
	assert.Equal(t, "98", ApplyVolumeDiscount(unit, 5, tiers).String())
	assert.Equal(t, "98", ApplyVolumeDiscount(unit, 9, tiers).String())
	// highest applicable tier wins, non-cumulative
	assert.Equal(t, "95", ApplyVolumeDiscount(unit, 10, tiers).String())
	assert.Equal(t, "95", ApplyVolumeDiscount(unit, 100, tiers).String())
	assert.Equal(t, "100", ApplyVolumeDiscount(unit, 3, nil).String())
}
