package quotes

import (
	"context"
	"io"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/southerncrossbullion/bullion-backend/pkg/enums"
	pkgerrors "github.com/southerncrossbullion/bullion-backend/pkg/errors"
	"github.com/southerncrossbullion/bullion-backend/pkg/logger"
)

type stubProvider struct {
	rate    decimal.Decimal
	rateErr error
}

func (s *stubProvider) SpotPrices(ctx context.Context, symbols []enums.MetalSymbol) (map[enums.MetalSymbol]Quote, error) {
	return nil, nil
}

func (s *stubProvider) FXRate(ctx context.Context, from, to enums.Currency) (decimal.Decimal, error) {
	return s.rate, s.rateErr
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func TestFXSourceLiveRate(t *testing.T) {
	t.Parallel()

	provider := &stubProvider{rate: decimal.RequireFromString("1.52")}
	source, err := NewFXSource(provider, decimal.Zero, testLogger())
	require.NoError(t, err)

	result, err := source.Rate(context.Background(), enums.CurrencyUSD, enums.CurrencyAUD)
	require.NoError(t, err)
	assert.False(t, result.Degraded)
	assert.Equal(t, "1.52", result.Rate.String())
}

func TestFXSourceFallsBackDegraded(t *testing.T) {
	t.Parallel()

	provider := &stubProvider{rateErr: pkgerrors.New(pkgerrors.CodeUpstreamUnavailable, "fx down")}
	source, err := NewFXSource(provider, decimal.RequireFromString("1.50"), testLogger())
	require.NoError(t, err)

	result, err := source.Rate(context.Background(), enums.CurrencyUSD, enums.CurrencyAUD)
	require.NoError(t, err)
	assert.True(t, result.Degraded)
	assert.Equal(t, "1.5", result.Rate.String())
}

func TestFXSourceNoFallbackSurfacesError(t *testing.T) {
	t.Parallel()

	provider := &stubProvider{rateErr: pkgerrors.New(pkgerrors.CodeUpstreamUnavailable, "fx down")}
	source, err := NewFXSource(provider, decimal.Zero, testLogger())
	require.NoError(t, err)

	_, err = source.Rate(context.Background(), enums.CurrencyUSD, enums.CurrencyAUD)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeUpstreamUnavailable, typed.Code())
}

func TestFXSourceIdentityNeverHitsProvider(t *testing.T) {
	t.Parallel()

	provider := &stubProvider{rateErr: pkgerrors.New(pkgerrors.CodeUpstreamUnavailable, "fx down")}
	source, err := NewFXSource(provider, decimal.Zero, testLogger())
	require.NoError(t, err)

	result, err := source.Rate(context.Background(), enums.CurrencyUSD, enums.CurrencyUSD)
	require.NoError(t, err)
	assert.False(t, result.Degraded)
	assert.True(t, result.Rate.Equal(decimal.NewFromInt(1)))
}
