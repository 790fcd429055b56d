package quotes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/southerncrossbullion/bullion-backend/pkg/enums"
	pkgerrors "github.com/southerncrossbullion/bullion-backend/pkg/errors"
)

func TestSpotPricesParsesQuotes(t *testing.T) {
	t.Parallel()

	var gotKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-Api-Key")
		assert.Equal(t, "/v1/spot", r.URL.Path)
		assert.Equal(t, "XAU,XAG", r.URL.Query().Get("symbols"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"quotes":[
			{"symbol":"XAU","price_usd_per_oz":"2000.50","as_of":"2025-08-12T09:30:00Z"},
			{"symbol":"XAG","price_usd_per_oz":"24.15","as_of":"2025-08-12T09:30:00Z"}
		]}`))
	}))
	defer server.Close()

	provider, err := NewHTTPProvider(server.URL, "test-key")
	require.NoError(t, err)

	quotes, err := provider.SpotPrices(context.Background(), []enums.MetalSymbol{enums.MetalGold, enums.MetalSilver})
	require.NoError(t, err)
	require.Len(t, quotes, 2)
	assert.Equal(t, "test-key", gotKey)
	assert.Equal(t, "2000.5", quotes[enums.MetalGold].PriceUSDPerOz.String())
	assert.Equal(t, "24.15", quotes[enums.MetalSilver].PriceUSDPerOz.String())
}

func TestSpotPricesReturnsPartialMapWhenVendorOmitsSymbols(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"quotes":[{"symbol":"XAU","price_usd_per_oz":"2000.50","as_of":"2025-08-12T09:30:00Z"}]}`))
	}))
	defer server.Close()

	provider, err := NewHTTPProvider(server.URL, "")
	require.NoError(t, err)

	quotes, err := provider.SpotPrices(context.Background(), []enums.MetalSymbol{enums.MetalGold, enums.MetalPlatinum})
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	assert.Equal(t, "2000.5", quotes[enums.MetalGold].PriceUSDPerOz.String())
	_, ok := quotes[enums.MetalPlatinum]
	assert.False(t, ok)
}

func TestSpotPricesSkipsUnusableQuotes(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"quotes":[
			{"symbol":"XAU","price_usd_per_oz":"2000.50","as_of":"2025-08-12T09:30:00Z"},
			{"symbol":"XAG","price_usd_per_oz":"0","as_of":"2025-08-12T09:30:00Z"},
			{"symbol":"BTC","price_usd_per_oz":"60000","as_of":"2025-08-12T09:30:00Z"}
		]}`))
	}))
	defer server.Close()

	provider, err := NewHTTPProvider(server.URL, "")
	require.NoError(t, err)

	quotes, err := provider.SpotPrices(context.Background(), []enums.MetalSymbol{enums.MetalGold, enums.MetalSilver})
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	_, ok := quotes[enums.MetalSilver]
	assert.False(t, ok)
}

func TestSpotPricesUpstreamErrorSurfacesAsUnavailable(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "vendor melted", http.StatusBadGateway)
	}))
	defer server.Close()

	provider, err := NewHTTPProvider(server.URL, "")
	require.NoError(t, err)

	_, err = provider.SpotPrices(context.Background(), []enums.MetalSymbol{enums.MetalGold})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeUpstreamUnavailable, typed.Code())
}

func TestSpotPricesRejectsEmptyAndUnknownSymbols(t *testing.T) {
	t.Parallel()

	provider, err := NewHTTPProvider("http://localhost:1", "")
	require.NoError(t, err)

	_, err = provider.SpotPrices(context.Background(), nil)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())

	_, err = provider.SpotPrices(context.Background(), []enums.MetalSymbol{enums.MetalSymbol("XCU")})
	typed = pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestFXRateParsesRate(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/fx", r.URL.Path)
		assert.Equal(t, "USD", r.URL.Query().Get("base"))
		assert.Equal(t, "AUD", r.URL.Query().Get("quote"))
		_, _ = w.Write([]byte(`{"rate":"1.52340000","as_of":"2025-08-12T09:30:00Z"}`))
	}))
	defer server.Close()

	provider, err := NewHTTPProvider(server.URL, "")
	require.NoError(t, err)

	rate, err := provider.FXRate(context.Background(), enums.CurrencyUSD, enums.CurrencyAUD)
	require.NoError(t, err)
	assert.Equal(t, "1.5234", rate.String())
}

func TestFXRateSameCurrencyIsIdentity(t *testing.T) {
	t.Parallel()

	provider, err := NewHTTPProvider("http://localhost:1", "")
	require.NoError(t, err)

	rate, err := provider.FXRate(context.Background(), enums.CurrencyUSD, enums.CurrencyUSD)
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.NewFromInt(1)))
}

func TestNewHTTPProviderRequiresBaseURL(t *testing.T) {
	t.Parallel()

	_, err := NewHTTPProvider("   ", "key")
	require.Error(t, err)
}
