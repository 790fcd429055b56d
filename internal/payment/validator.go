package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/southerncrossbullion/bullion-backend/internal/pricing"
	"github.com/southerncrossbullion/bullion-backend/internal/quotes"
	"github.com/southerncrossbullion/bullion-backend/pkg/db/models"
	"github.com/southerncrossbullion/bullion-backend/pkg/enums"
	pkgerrors "github.com/southerncrossbullion/bullion-backend/pkg/errors"
	"github.com/southerncrossbullion/bullion-backend/pkg/logger"
	"github.com/southerncrossbullion/bullion-backend/pkg/metrics"
)

// CartLine is one product and quantity submitted for payment.
type CartLine struct {
	ProductID uuid.UUID
	Qty       int
}

// ValidateInput is the payment-time validation request.
type ValidateInput struct {
	SessionID       string
	Lines           []CartLine
	SubmittedAmount decimal.Decimal
	Currency        enums.Currency
}

// ValidateResult is returned on approval. ChargeAmount is the canonical
// amount in the submitted currency; the gateway must charge exactly this.
type ValidateResult struct {
	ChargeAmount decimal.Decimal
	Currency     enums.Currency
	ExpectedUSD  decimal.Decimal
	FXRate       decimal.Decimal
	FXDegraded   bool
}

// Service is the validation surface consumed by the API layer.
type Service interface {
	ValidateAndPrice(ctx context.Context, input ValidateInput) (*ValidateResult, error)
}

// HaltChecker gates payment on the current halt state.
type HaltChecker interface {
	IsHalted(ctx context.Context, symbol enums.MetalSymbol) (bool, error)
}

// Validator revalidates a submitted payment against the session's price
// locks. The submitted amount is client-supplied and untrusted; the locks are
// the only price authority.
type Validator struct {
	db                *gorm.DB
	config            *pricing.ConfigRepository
	halts             HaltChecker
	fx                *quotes.FXSource
	toleranceFraction decimal.Decimal
	toleranceMinimum  decimal.Decimal
	metrics           *metrics.HaltMetrics
	logg              *logger.Logger
}

// NewValidator validates dependencies and builds a payment validator.
// Metrics are optional.
func NewValidator(
	db *gorm.DB,
	halts HaltChecker,
	fx *quotes.FXSource,
	toleranceFraction, toleranceMinimum float64,
	haltMetrics *metrics.HaltMetrics,
	logg *logger.Logger,
) (*Validator, error) {
	if db == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "db is required")
	}
	if halts == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "halt checker is required")
	}
	if fx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "fx source is required")
	}
	if toleranceFraction < 0 || toleranceMinimum < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tolerances must not be negative")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger is required")
	}
	return &Validator{
		db:                db,
		config:            pricing.NewConfigRepository(db),
		halts:             halts,
		fx:                fx,
		toleranceFraction: decimal.NewFromFloat(toleranceFraction),
		toleranceMinimum:  decimal.NewFromFloat(toleranceMinimum),
		metrics:           haltMetrics,
		logg:              logg,
	}, nil
}

// ValidateAndPrice approves or rejects a payment. Every cart line needs an
// active, unexpired lock; halted metals reject outright; the submitted amount
// must land within max(minimum, expected x fraction) of the locked total.
func (v *Validator) ValidateAndPrice(ctx context.Context, input ValidateInput) (*ValidateResult, error) {
	if input.SessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session_id is required")
	}
	if len(input.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one cart line is required")
	}
	if !input.Currency.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unsupported currency %q", string(input.Currency)))
	}
	if !input.SubmittedAmount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	for _, line := range input.Lines {
		if line.Qty <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("quantity for product %s must be positive", line.ProductID))
		}
	}

	ctx = v.logg.WithSessionID(ctx, input.SessionID)
	now := time.Now().UTC()

	locks, err := v.lockByProduct(ctx, input.SessionID, input.Lines, now)
	if err != nil {
		return nil, err
	}

	if err := v.rejectHalted(ctx, locks); err != nil {
		return nil, err
	}

	settings, err := v.config.LoadSettings(ctx)
	if err != nil {
		return nil, err
	}

	expectedUSD := decimal.Zero
	expectedSubmitted := decimal.Zero
	degraded := false
	for _, line := range input.Lines {
		lock := locks[line.ProductID]
		degraded = degraded || lock.FXDegraded

		unitUSD := pricing.ApplyVolumeDiscount(lock.LockedPriceUSD, line.Qty, settings.Tiers)
		expectedUSD = expectedUSD.Add(unitUSD.Mul(decimal.NewFromInt(int64(line.Qty))))

		unitSubmitted := unitUSD
		if input.Currency == enums.CurrencyAUD {
			unitSubmitted = pricing.ApplyVolumeDiscount(lock.LockedPriceAUD, line.Qty, settings.Tiers)
		}
		expectedSubmitted = expectedSubmitted.Add(unitSubmitted.Mul(decimal.NewFromInt(int64(line.Qty))))
	}

	submittedUSD := input.SubmittedAmount
	fxRate := decimal.NewFromInt(1)
	if input.Currency == enums.CurrencyAUD {
		// AUD submissions convert back at a fresh rate, not the lock-time one
		fxResult, err := v.fx.Rate(ctx, enums.CurrencyUSD, enums.CurrencyAUD)
		if err != nil {
			return nil, err
		}
		fxRate = fxResult.Rate
		degraded = degraded || fxResult.Degraded
		submittedUSD = input.SubmittedAmount.Div(fxResult.Rate).Round(2)
	}

	tolerance := expectedUSD.Mul(v.toleranceFraction)
	if tolerance.LessThan(v.toleranceMinimum) {
		tolerance = v.toleranceMinimum
	}

	diff := submittedUSD.Sub(expectedUSD).Abs()
	if diff.GreaterThan(tolerance) {
		v.reject("price_mismatch")
		return nil, pkgerrors.New(pkgerrors.CodePriceMismatch, "submitted amount does not match locked prices").
			WithDetails(map[string]any{
				"expected_usd":  expectedUSD.String(),
				"submitted_usd": submittedUSD.String(),
				"tolerance_usd": tolerance.String(),
				"currency":      string(input.Currency),
			})
	}

	return &ValidateResult{
		ChargeAmount: expectedSubmitted,
		Currency:     input.Currency,
		ExpectedUSD:  expectedUSD,
		FXRate:       fxRate,
		FXDegraded:   degraded,
	}, nil
}

// lockByProduct resolves every cart line to an active lock, distinguishing
// never-locked products from expired ones.
func (v *Validator) lockByProduct(ctx context.Context, sessionID string, lines []CartLine, now time.Time) (map[uuid.UUID]models.PriceLock, error) {
	out := make(map[uuid.UUID]models.PriceLock, len(lines))
	for _, line := range lines {
		var lock models.PriceLock
		err := v.db.WithContext(ctx).
			Where("session_id = ? AND product_id = ?", sessionID, line.ProductID).
			Order("created_at DESC").
			First(&lock).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			v.reject("lock_missing")
			return nil, pkgerrors.New(pkgerrors.CodeLockMissing, fmt.Sprintf("no price lock for product %s", line.ProductID))
		}
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load price lock")
		}
		if !lock.Active(now) {
			v.reject("lock_expired")
			return nil, pkgerrors.New(pkgerrors.CodeLockExpired, fmt.Sprintf("price lock for product %s has expired", line.ProductID))
		}
		out[line.ProductID] = lock
	}
	return out, nil
}

func (v *Validator) rejectHalted(ctx context.Context, locks map[uuid.UUID]models.PriceLock) error {
	checked := make(map[enums.MetalSymbol]bool, 4)
	for _, lock := range locks {
		if checked[lock.MetalSymbol] {
			continue
		}
		checked[lock.MetalSymbol] = true
		halted, err := v.halts.IsHalted(ctx, lock.MetalSymbol)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check halt state")
		}
		if halted {
			v.reject("metal_halted")
			return pkgerrors.New(pkgerrors.CodeMetalHalted, fmt.Sprintf("sales of %s are temporarily halted", lock.MetalSymbol))
		}
	}
	return nil
}

func (v *Validator) reject(reason string) {
	if v.metrics != nil {
		v.metrics.IncPaymentRejection(reason)
	}
}
