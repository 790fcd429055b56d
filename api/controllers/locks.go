package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/southerncrossbullion/bullion-backend/api/responses"
	"github.com/southerncrossbullion/bullion-backend/api/validators"
	locksvc "github.com/southerncrossbullion/bullion-backend/internal/pricelock"
	"github.com/southerncrossbullion/bullion-backend/pkg/db/models"
	"github.com/southerncrossbullion/bullion-backend/pkg/enums"
	pkgerrors "github.com/southerncrossbullion/bullion-backend/pkg/errors"
	"github.com/southerncrossbullion/bullion-backend/pkg/logger"
)

// CreateLocks freezes current prices for a checkout session.
func CreateLocks(svc locksvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "price lock service unavailable"))
			return
		}

		var payload createLocksRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toLockInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.LockPrices(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, toLockSessionResponse(payload.SessionID, result.ExpiresAt, result.Locks))
	}
}

// GetLocks lists the session's active locks. Lazily-expired rows never appear.
func GetLocks(svc locksvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "price lock service unavailable"))
			return
		}

		sessionID := strings.TrimSpace(chi.URLParam(r, "sessionID"))
		if sessionID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "session id is required"))
			return
		}

		locks, err := svc.ActiveLocks(r.Context(), sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var expiresAt time.Time
		if len(locks) > 0 {
			expiresAt = locks[0].ExpiresAt
		}
		responses.WriteSuccess(w, toLockSessionResponse(sessionID, expiresAt, locks))
	}
}

// ReleaseLocks expires a session's active locks ahead of the window.
func ReleaseLocks(svc locksvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "price lock service unavailable"))
			return
		}

		sessionID := strings.TrimSpace(chi.URLParam(r, "sessionID"))
		if sessionID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "session id is required"))
			return
		}

		released, err := svc.ReleaseSession(r.Context(), sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"session_id": sessionID,
			"released":   released,
		})
	}
}

type createLocksRequest struct {
	SessionID  string   `json:"session_id" validate:"required"`
	CustomerID *string  `json:"customer_id,omitempty" validate:"omitempty,uuid"`
	Currency   string   `json:"currency,omitempty"`
	ProductIDs []string `json:"product_ids" validate:"required,min=1,dive,uuid"`
}

func (req createLocksRequest) toLockInput() (locksvc.LockInput, error) {
	currency := enums.CurrencyUSD
	if trimmed := strings.TrimSpace(req.Currency); trimmed != "" {
		parsed, err := enums.ParseCurrency(strings.ToUpper(trimmed))
		if err != nil {
			return locksvc.LockInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid currency")
		}
		currency = parsed
	}

	var customerID *uuid.UUID
	if req.CustomerID != nil {
		parsed, err := uuid.Parse(strings.TrimSpace(*req.CustomerID))
		if err != nil {
			return locksvc.LockInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid customer id")
		}
		customerID = &parsed
	}

	productIDs := make([]uuid.UUID, 0, len(req.ProductIDs))
	for _, raw := range req.ProductIDs {
		parsed, err := uuid.Parse(strings.TrimSpace(raw))
		if err != nil {
			return locksvc.LockInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id")
		}
		productIDs = append(productIDs, parsed)
	}

	return locksvc.LockInput{
		SessionID:  strings.TrimSpace(req.SessionID),
		CustomerID: customerID,
		Currency:   currency,
		ProductIDs: productIDs,
	}, nil
}

type lockSessionResponse struct {
	SessionID string         `json:"session_id"`
	ExpiresAt time.Time      `json:"expires_at"`
	Locks     []lockResponse `json:"locks"`
}

type lockResponse struct {
	ProductID      string          `json:"product_id"`
	Symbol         string          `json:"symbol"`
	LockedPriceUSD decimal.Decimal `json:"locked_price_usd"`
	LockedPriceAUD decimal.Decimal `json:"locked_price_aud"`
	FXRate         decimal.Decimal `json:"fx_rate"`
	FXDegraded     bool            `json:"fx_degraded"`
	Currency       string          `json:"currency"`
	ExpiresAt      time.Time       `json:"expires_at"`
}

func toLockSessionResponse(sessionID string, expiresAt time.Time, locks []models.PriceLock) lockSessionResponse {
	out := lockSessionResponse{
		SessionID: sessionID,
		ExpiresAt: expiresAt,
		Locks:     make([]lockResponse, 0, len(locks)),
	}
	for _, lock := range locks {
		out.Locks = append(out.Locks, lockResponse{
			ProductID:      lock.ProductID.String(),
			Symbol:         string(lock.MetalSymbol),
			LockedPriceUSD: lock.LockedPriceUSD,
			LockedPriceAUD: lock.LockedPriceAUD,
			FXRate:         lock.FXRate,
			FXDegraded:     lock.FXDegraded,
			Currency:       string(lock.Currency),
			ExpiresAt:      lock.ExpiresAt,
		})
	}
	return out
}
