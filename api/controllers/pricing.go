package controllers

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/southerncrossbullion/bullion-backend/api/responses"
	"github.com/southerncrossbullion/bullion-backend/api/validators"
	pricingsvc "github.com/southerncrossbullion/bullion-backend/internal/pricing"
	"github.com/southerncrossbullion/bullion-backend/pkg/enums"
	pkgerrors "github.com/southerncrossbullion/bullion-backend/pkg/errors"
	"github.com/southerncrossbullion/bullion-backend/pkg/logger"
)

// GetPricing quotes live storefront prices for the requested products.
func GetPricing(svc pricingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pricing service unavailable"))
			return
		}

		productIDs, err := validators.ParseUUIDList(r, "product_ids")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		currency, err := enums.ParseCurrency(strings.ToUpper(validators.ParseQueryString(r, "currency", string(enums.CurrencyUSD))))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid currency"))
			return
		}

		prices, err := svc.PriceProducts(r.Context(), productIDs)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payload := make([]pricedProductResponse, 0, len(prices))
		for _, price := range prices {
			payload = append(payload, toPricedProductResponse(price, currency))
		}

		responses.WriteSuccess(w, pricingResponse{
			Currency: string(currency),
			Products: payload,
		})
	}
}

type pricingResponse struct {
	Currency string                  `json:"currency"`
	Products []pricedProductResponse `json:"products"`
}

type pricedProductResponse struct {
	ProductID    string          `json:"product_id"`
	Symbol       string          `json:"symbol"`
	SpotUSDPerOz decimal.Decimal `json:"spot_usd_per_oz"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	UnitPriceUSD decimal.Decimal `json:"unit_price_usd"`
	UnitPriceAUD decimal.Decimal `json:"unit_price_aud"`
	FXRate       decimal.Decimal `json:"fx_rate"`
	FXDegraded   bool            `json:"fx_degraded"`
}

func toPricedProductResponse(price pricingsvc.ProductPrice, currency enums.Currency) pricedProductResponse {
	unit := price.UnitPriceUSD
	if currency == enums.CurrencyAUD {
		unit = price.UnitPriceAUD
	}
	return pricedProductResponse{
		ProductID:    price.ProductID.String(),
		Symbol:       string(price.Symbol),
		SpotUSDPerOz: price.SpotUSDPerOz,
		UnitPrice:    unit,
		UnitPriceUSD: price.UnitPriceUSD,
		UnitPriceAUD: price.UnitPriceAUD,
		FXRate:       price.FXRate,
		FXDegraded:   price.FXDegraded,
	}
}
