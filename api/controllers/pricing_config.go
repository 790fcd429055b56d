package controllers

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/southerncrossbullion/bullion-backend/api/middleware"
	"github.com/southerncrossbullion/bullion-backend/api/responses"
	"github.com/southerncrossbullion/bullion-backend/api/validators"
	pricingsvc "github.com/southerncrossbullion/bullion-backend/internal/pricing"
	pkgerrors "github.com/southerncrossbullion/bullion-backend/pkg/errors"
	"github.com/southerncrossbullion/bullion-backend/pkg/logger"
)

// GetPricingConfig returns the admin view of markup, fees and tiers.
func GetPricingConfig(svc pricingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pricing service unavailable"))
			return
		}

		cfg, err := svc.GetConfig(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toPricingConfigResponse(cfg))
	}
}

// UpdatePricingConfig replaces the full pricing configuration.
func UpdatePricingConfig(svc pricingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pricing service unavailable"))
			return
		}

		actor := middleware.ActorFromContext(r.Context())
		if actor == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "admin actor missing"))
			return
		}

		var payload updatePricingConfigRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := pricingsvc.UpdateConfigInput{
			MarkupPercentage: payload.MarkupPercentage,
			DefaultBaseFee:   payload.DefaultBaseFee,
			UpdatedBy:        actor,
		}
		for _, fee := range payload.BrandFees {
			input.BrandFees = append(input.BrandFees, pricingsvc.BrandFeeEntry{
				Brand:   strings.TrimSpace(fee.Brand),
				BaseFee: fee.BaseFee,
			})
		}
		for _, tier := range payload.Tiers {
			input.Tiers = append(input.Tiers, pricingsvc.TierEntry{
				MinQty:      tier.MinQty,
				DiscountPct: tier.DiscountPct,
			})
		}

		cfg, err := svc.UpdateConfig(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toPricingConfigResponse(cfg))
	}
}

type updatePricingConfigRequest struct {
	MarkupPercentage decimal.Decimal       `json:"markup_percentage"`
	DefaultBaseFee   decimal.Decimal       `json:"default_base_fee"`
	BrandFees        []brandFeeRequest     `json:"brand_fees,omitempty" validate:"omitempty,dive"`
	Tiers            []discountTierRequest `json:"tiers,omitempty" validate:"omitempty,dive"`
}

type brandFeeRequest struct {
	Brand   string          `json:"brand" validate:"required"`
	BaseFee decimal.Decimal `json:"base_fee"`
}

type discountTierRequest struct {
	MinQty      int             `json:"min_qty" validate:"required,min=2"`
	DiscountPct decimal.Decimal `json:"discount_pct"`
}

type pricingConfigResponse struct {
	MarkupPercentage decimal.Decimal        `json:"markup_percentage"`
	DefaultBaseFee   decimal.Decimal        `json:"default_base_fee"`
	BrandFees        []brandFeeResponse     `json:"brand_fees"`
	Tiers            []discountTierResponse `json:"tiers"`
}

type brandFeeResponse struct {
	Brand   string          `json:"brand"`
	BaseFee decimal.Decimal `json:"base_fee"`
}

type discountTierResponse struct {
	MinQty      int             `json:"min_qty"`
	DiscountPct decimal.Decimal `json:"discount_pct"`
}

func toPricingConfigResponse(cfg *pricingsvc.Config) pricingConfigResponse {
	out := pricingConfigResponse{
		MarkupPercentage: cfg.MarkupPercentage,
		DefaultBaseFee:   cfg.DefaultBaseFee,
		BrandFees:        make([]brandFeeResponse, 0, len(cfg.BrandFees)),
		Tiers:            make([]discountTierResponse, 0, len(cfg.Tiers)),
	}
	for _, fee := range cfg.BrandFees {
		out.BrandFees = append(out.BrandFees, brandFeeResponse{Brand: fee.Brand, BaseFee: fee.BaseFee})
	}
	for _, tier := range cfg.Tiers {
		out.Tiers = append(out.Tiers, discountTierResponse{MinQty: tier.MinQty, DiscountPct: tier.DiscountPct})
	}
	return out
}
