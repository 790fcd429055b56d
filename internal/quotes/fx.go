package quotes

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/southerncrossbullion/bullion-backend/pkg/enums"
	pkgerrors "github.com/southerncrossbullion/bullion-backend/pkg/errors"
	"github.com/southerncrossbullion/bullion-backend/pkg/logger"
)

// FXResult carries a conversion rate plus whether it came from the configured
// fallback instead of the live endpoint. Degraded rates are persisted on the
// price lock so payment validation can see how the AUD amount was derived.
type FXResult struct {
	Rate     decimal.Decimal
	Degraded bool
}

// FXSource resolves currency conversion rates with an optional static
// fallback for when the live endpoint is down.
type FXSource struct {
	provider Provider
	fallback decimal.Decimal
	logg     *logger.Logger
}

// NewFXSource builds an FX source. A zero fallback disables degraded mode:
// provider failures then surface as errors.
func NewFXSource(provider Provider, fallback decimal.Decimal, logg *logger.Logger) (*FXSource, error) {
	if provider == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "quote provider is required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger is required")
	}
	if fallback.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "fallback fx rate must not be negative")
	}
	return &FXSource{provider: provider, fallback: fallback, logg: logg}, nil
}

// Rate resolves the live conversion rate, falling back to the configured
// static rate when the provider fails.
func (s *FXSource) Rate(ctx context.Context, from, to enums.Currency) (FXResult, error) {
	if from == to {
		return FXResult{Rate: decimal.NewFromInt(1)}, nil
	}

	rate, err := s.provider.FXRate(ctx, from, to)
	if err == nil {
		return FXResult{Rate: rate}, nil
	}

	if s.fallback.IsPositive() {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"from": string(from),
			"to":   string(to),
			"err":  err.Error(),
		}), "fx endpoint failed, using configured fallback rate")
		return FXResult{Rate: s.fallback, Degraded: true}, nil
	}

	return FXResult{}, pkgerrors.Wrap(pkgerrors.CodeUpstreamUnavailable, err, "resolve fx rate")
}
