package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/southerncrossbullion/bullion-backend/api/responses"
	"github.com/southerncrossbullion/bullion-backend/api/validators"
	paymentsvc "github.com/southerncrossbullion/bullion-backend/internal/payment"
	"github.com/southerncrossbullion/bullion-backend/pkg/enums"
	pkgerrors "github.com/southerncrossbullion/bullion-backend/pkg/errors"
	"github.com/southerncrossbullion/bullion-backend/pkg/logger"
)

// ValidatePayment revalidates a submitted payment against the session's
// price locks before the gateway is allowed to capture.
func ValidatePayment(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment validator unavailable"))
			return
		}

		var payload validatePaymentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toValidateInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ValidateAndPrice(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, validatePaymentResponse{
			Approved:     true,
			ChargeAmount: result.ChargeAmount,
			Currency:     string(result.Currency),
			ExpectedUSD:  result.ExpectedUSD,
			FXRate:       result.FXRate,
			FXDegraded:   result.FXDegraded,
		})
	}
}

type validatePaymentRequest struct {
	SessionID string            `json:"session_id" validate:"required"`
	Cart      []cartLineRequest `json:"cart" validate:"required,min=1,dive"`
	Amount    decimal.Decimal   `json:"amount" validate:"required"`
	Currency  string            `json:"currency,omitempty"`
}

type cartLineRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Qty       int    `json:"qty" validate:"required,min=1"`
}

func (req validatePaymentRequest) toValidateInput() (paymentsvc.ValidateInput, error) {
	currency := enums.CurrencyUSD
	if trimmed := strings.TrimSpace(req.Currency); trimmed != "" {
		parsed, err := enums.ParseCurrency(strings.ToUpper(trimmed))
		if err != nil {
			return paymentsvc.ValidateInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid currency")
		}
		currency = parsed
	}

	lines := make([]paymentsvc.CartLine, 0, len(req.Cart))
	for _, line := range req.Cart {
		productID, err := uuid.Parse(strings.TrimSpace(line.ProductID))
		if err != nil {
			return paymentsvc.ValidateInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id")
		}
		lines = append(lines, paymentsvc.CartLine{ProductID: productID, Qty: line.Qty})
	}

	return paymentsvc.ValidateInput{
		SessionID:       strings.TrimSpace(req.SessionID),
		Lines:           lines,
		SubmittedAmount: req.Amount,
		Currency:        currency,
	}, nil
}

type validatePaymentResponse struct {
	Approved     bool            `json:"approved"`
	ChargeAmount decimal.Decimal `json:"charge_amount"`
	Currency     string          `json:"currency"`
	ExpectedUSD  decimal.Decimal `json:"expected_usd"`
	FXRate       decimal.Decimal `json:"fx_rate"`
	FXDegraded   bool            `json:"fx_degraded"`
}
