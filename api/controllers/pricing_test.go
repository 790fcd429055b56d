package controllers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	pricingsvc "github.com/southerncrossbullion/bullion-backend/internal/pricing"
	"github.com/southerncrossbullion/bullion-backend/pkg/enums"
	pkgerrors "github.com/southerncrossbullion/bullion-backend/pkg/errors"
	"github.com/southerncrossbullion/bullion-backend/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("debug"), Output: io.Discard})
}

type stubPricingService struct {
	prices    []pricingsvc.ProductPrice
	priceErr  error
	config    *pricingsvc.Config
	configErr error
	updated   *pricingsvc.UpdateConfigInput
	requested []uuid.UUID
}

func (s *stubPricingService) PriceProducts(ctx context.Context, productIDs []uuid.UUID) ([]pricingsvc.ProductPrice, error) {
	s.requested = productIDs
	return s.prices, s.priceErr
}

func (s *stubPricingService) GetConfig(ctx context.Context) (*pricingsvc.Config, error) {
	return s.config, s.configErr
}

func (s *stubPricingService) UpdateConfig(ctx context.Context, input pricingsvc.UpdateConfigInput) (*pricingsvc.Config, error) {
	s.updated = &input
	return s.config, s.configErr
}

func TestGetPricing(t *testing.T) {
	logg := testLogger()
	productID := uuid.New()

	t.Run("missing product_ids", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/pricing", nil)
		rec := httptest.NewRecorder()
		GetPricing(&stubPricingService{}, logg).ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 without product_ids, got %d", rec.Code)
		}
	})

	t.Run("invalid currency", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/pricing?product_ids="+productID.String()+"&currency=EUR", nil)
		rec := httptest.NewRecorder()
		GetPricing(&stubPricingService{}, logg).ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for unsupported currency, got %d", rec.Code)
		}
	})

	t.Run("unpriceable surfaces 422", func(t *testing.T) {
		stub := &stubPricingService{priceErr: pkgerrors.New(pkgerrors.CodeUnpriceable, "weight unit unknown")}
		req := httptest.NewRequest(http.MethodGet, "/api/v1/pricing?product_ids="+productID.String(), nil)
		rec := httptest.NewRecorder()
		GetPricing(stub, logg).ServeHTTP(rec, req)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422 for unpriceable, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "UNPRICEABLE") {
			t.Fatalf("expected UNPRICEABLE code in body, got %s", rec.Body.String())
		}
	})

	t.Run("success in aud", func(t *testing.T) {
		stub := &stubPricingService{prices: []pricingsvc.ProductPrice{{
			ProductID:    productID,
			Symbol:       enums.MetalGold,
			SpotUSDPerOz: decimal.RequireFromString("2000"),
			UnitPriceUSD: decimal.RequireFromString("2210"),
			UnitPriceAUD: decimal.RequireFromString("3315"),
			FXRate:       decimal.RequireFromString("1.5"),
		}}}
		req := httptest.NewRequest(http.MethodGet, "/api/v1/pricing?product_ids="+productID.String()+"&currency=aud", nil)
		rec := httptest.NewRecorder()
		GetPricing(stub, logg).ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		body := rec.Body.String()
		if !strings.Contains(body, `"currency":"AUD"`) {
			t.Fatalf("expected AUD currency in body, got %s", body)
		}
		if !strings.Contains(body, `"unit_price":"3315"`) {
			t.Fatalf("expected AUD unit price selected, got %s", body)
		}
		if len(stub.requested) != 1 || stub.requested[0] != productID {
			t.Fatalf("expected service to receive the parsed product id")
		}
	})
}
