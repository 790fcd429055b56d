package controllers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/southerncrossbullion/bullion-backend/api/middleware"
	"github.com/southerncrossbullion/bullion-backend/api/responses"
	"github.com/southerncrossbullion/bullion-backend/api/validators"
	haltsvc "github.com/southerncrossbullion/bullion-backend/internal/halt"
	"github.com/southerncrossbullion/bullion-backend/pkg/db/models"
	"github.com/southerncrossbullion/bullion-backend/pkg/enums"
	pkgerrors "github.com/southerncrossbullion/bullion-backend/pkg/errors"
	"github.com/southerncrossbullion/bullion-backend/pkg/logger"
)

// ListHaltStates returns the sales gate for every metal plus the ALL override.
func ListHaltStates(svc haltsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "halt service unavailable"))
			return
		}

		states, err := svc.ListStates(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payload := make([]haltStateResponse, 0, len(states))
		for _, state := range states {
			payload = append(payload, toHaltStateResponse(state))
		}
		responses.WriteSuccess(w, payload)
	}
}

// GetHaltState returns the gate for one symbol or the ALL override.
func GetHaltState(svc haltsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "halt service unavailable"))
			return
		}

		symbol, err := haltScopeFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		state, err := svc.GetState(r.Context(), symbol)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if state == nil {
			responses.WriteSuccess(w, haltStateResponse{Symbol: string(symbol)})
			return
		}
		responses.WriteSuccess(w, toHaltStateResponse(*state))
	}
}

// SetHaltState halts or resumes a symbol (or ALL). The acting admin comes
// from the gateway-verified header; toggling into the current state is a
// no-op that returns the existing row.
func SetHaltState(svc haltsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "halt service unavailable"))
			return
		}

		actor := middleware.ActorFromContext(r.Context())
		if actor == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "admin actor missing"))
			return
		}

		symbol, err := haltScopeFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload setHaltStateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var state *models.HaltState
		if payload.Halted {
			state, err = svc.Halt(r.Context(), symbol, actor, strings.TrimSpace(payload.Reason))
		} else {
			state, err = svc.Resume(r.Context(), symbol, actor)
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, toHaltStateResponse(*state))
	}
}

// ListHaltEvents returns the audit trail for one symbol or the ALL scope,
// newest first. An optional limit query parameter caps the page size.
func ListHaltEvents(svc haltsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "halt service unavailable"))
			return
		}

		symbol, err := haltScopeFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit := 0
		if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
			limit, err = strconv.Atoi(raw)
			if err != nil || limit <= 0 {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "limit must be a positive integer"))
				return
			}
		}

		events, err := svc.ListEvents(r.Context(), symbol, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payload := make([]haltEventResponse, 0, len(events))
		for _, event := range events {
			payload = append(payload, haltEventResponse{
				ID:         event.ID.String(),
				Symbol:     string(event.Symbol),
				Action:     string(event.Action),
				Actor:      event.Actor,
				Reason:     event.Reason,
				OccurredAt: event.OccurredAt,
			})
		}
		responses.WriteSuccess(w, payload)
	}
}

func haltScopeFromRequest(r *http.Request) (enums.MetalSymbol, error) {
	raw := strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "symbol")))
	symbol, err := enums.ParseHaltScope(raw)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid halt scope")
	}
	return symbol, nil
}

type setHaltStateRequest struct {
	Halted bool   `json:"halted"`
	Reason string `json:"reason,omitempty"`
}

type haltEventResponse struct {
	ID         string    `json:"id"`
	Symbol     string    `json:"symbol"`
	Action     string    `json:"action"`
	Actor      string    `json:"actor"`
	Reason     *string   `json:"reason,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

type haltStateResponse struct {
	Symbol    string     `json:"symbol"`
	IsHalted  bool       `json:"is_halted"`
	HaltedAt  *time.Time `json:"halted_at,omitempty"`
	HaltedBy  *string    `json:"halted_by,omitempty"`
	Reason    *string    `json:"reason,omitempty"`
	ResumedAt *time.Time `json:"resumed_at,omitempty"`
	ResumedBy *string    `json:"resumed_by,omitempty"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func toHaltStateResponse(state models.HaltState) haltStateResponse {
	return haltStateResponse{
		Symbol:    string(state.Symbol),
		IsHalted:  state.IsHalted,
		HaltedAt:  state.HaltedAt,
		HaltedBy:  state.HaltedBy,
		Reason:    state.Reason,
		ResumedAt: state.ResumedAt,
		ResumedBy: state.ResumedBy,
		UpdatedAt: state.UpdatedAt,
	}
}
