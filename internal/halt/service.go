package halt

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/southerncrossbullion/bullion-backend/pkg/db/models"
	"github.com/southerncrossbullion/bullion-backend/pkg/enums"
	pkgerrors "github.com/southerncrossbullion/bullion-backend/pkg/errors"
	"github.com/southerncrossbullion/bullion-backend/pkg/logger"
	"github.com/southerncrossbullion/bullion-backend/pkg/metrics"
	"github.com/southerncrossbullion/bullion-backend/pkg/outbox"
)

// Service owns the sales gate for each metal plus the ALL override scope.
type Service interface {
	IsHalted(ctx context.Context, symbol enums.MetalSymbol) (bool, error)
	GetState(ctx context.Context, symbol enums.MetalSymbol) (*models.HaltState, error)
	ListStates(ctx context.Context) ([]models.HaltState, error)
	ListEvents(ctx context.Context, symbol enums.MetalSymbol, limit int) ([]models.HaltEvent, error)
	Halt(ctx context.Context, symbol enums.MetalSymbol, actor, reason string) (*models.HaltState, error)
	Resume(ctx context.Context, symbol enums.MetalSymbol, actor string) (*models.HaltState, error)
}

type service struct {
	db      *gorm.DB
	repo    *Repository
	events  *outbox.Service
	metrics *metrics.HaltMetrics
	notify  []string
	logg    *logger.Logger
}

// NewService validates dependencies and builds the halt service. Metrics are
// optional; notifyRecipients ride the outbox event payload so a downstream
// consumer knows who to alert.
func NewService(db *gorm.DB, events *outbox.Service, haltMetrics *metrics.HaltMetrics, logg *logger.Logger, notifyRecipients ...string) (Service, error) {
	if db == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "db is required")
	}
	if events == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "outbox service is required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger is required")
	}
	return &service{
		db:      db,
		repo:    NewRepository(db),
		events:  events,
		metrics: haltMetrics,
		notify:  notifyRecipients,
		logg:    logg,
	}, nil
}

// IsHalted reports whether sales of the symbol are gated, either by the
// symbol's own row or by the ALL override.
func (s *service) IsHalted(ctx context.Context, symbol enums.MetalSymbol) (bool, error) {
	if !symbol.IsValid() {
		return false, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown metal symbol %q", string(symbol)))
	}

	all, err := s.repo.GetState(ctx, enums.MetalAll)
	if err != nil {
		return false, err
	}
	if all != nil && all.IsHalted {
		return true, nil
	}

	state, err := s.repo.GetState(ctx, symbol)
	if err != nil {
		return false, err
	}
	return state != nil && state.IsHalted, nil
}

func (s *service) GetState(ctx context.Context, symbol enums.MetalSymbol) (*models.HaltState, error) {
	if !symbol.IsHaltScope() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown halt scope %q", string(symbol)))
	}
	state, err := s.repo.GetState(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if state == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("no halt state for %s", symbol))
	}
	return state, nil
}

func (s *service) ListStates(ctx context.Context) ([]models.HaltState, error) {
	return s.repo.ListStates(ctx)
}

// ListEvents returns the audit trail for one symbol or the ALL scope,
// newest first.
func (s *service) ListEvents(ctx context.Context, symbol enums.MetalSymbol, limit int) ([]models.HaltEvent, error) {
	if !symbol.IsHaltScope() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown halt scope %q", string(symbol)))
	}
	return s.repo.ListEvents(ctx, symbol, limit)
}

// Halt gates sales of the symbol. Halting an already-halted symbol is a
// no-op returning the current row: no second audit entry, no second
// notification.
func (s *service) Halt(ctx context.Context, symbol enums.MetalSymbol, actor, reason string) (*models.HaltState, error) {
	return s.transition(ctx, symbol, actor, reason, enums.HaltActionHalt)
}

// Resume reopens sales of the symbol. Resuming a non-halted symbol is a no-op.
func (s *service) Resume(ctx context.Context, symbol enums.MetalSymbol, actor string) (*models.HaltState, error) {
	return s.transition(ctx, symbol, actor, "", enums.HaltActionResume)
}

func (s *service) transition(ctx context.Context, symbol enums.MetalSymbol, actor, reason string, action enums.HaltAction) (*models.HaltState, error) {
	if !symbol.IsHaltScope() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown halt scope %q", string(symbol)))
	}
	if actor == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor is required")
	}

	ctx = s.logg.WithMetal(ctx, string(symbol))
	now := time.Now().UTC()
	halting := action == enums.HaltActionHalt

	var result *models.HaltState
	var transitioned bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		state, err := repo.GetState(ctx, symbol)
		if err != nil {
			return err
		}
		if state == nil {
			state = &models.HaltState{ID: uuid.New(), Symbol: symbol}
			if err := repo.CreateState(ctx, state); err != nil {
				return err
			}
		}

		if state.IsHalted == halting {
			result = state
			return nil
		}

		updates := map[string]any{"is_halted": halting}
		if halting {
			updates["halted_at"] = now
			updates["halted_by"] = actor
			updates["halt_reason"] = reason
		} else {
			updates["resumed_at"] = now
			updates["resumed_by"] = actor
		}
		if err := repo.UpdateState(ctx, state.ID, updates); err != nil {
			return err
		}

		auditReason := &reason
		if reason == "" {
			auditReason = nil
		}
		if err := repo.AppendEvent(ctx, &models.HaltEvent{
			ID:         uuid.New(),
			Symbol:     symbol,
			Action:     action,
			Actor:      actor,
			Reason:     auditReason,
			OccurredAt: now,
		}); err != nil {
			return err
		}

		eventType := enums.EventMetalHalted
		if !halting {
			eventType = enums.EventMetalResumed
		}
		payload := map[string]any{
			"symbol": string(symbol),
			"actor":  actor,
			"reason": reason,
		}
		if len(s.notify) > 0 {
			payload["notify"] = s.notify
		}
		if err := s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     eventType,
			AggregateType: enums.AggregateHaltState,
			AggregateID:   state.ID,
			Data:          payload,
			Version:       1,
			OccurredAt:    now,
		}); err != nil {
			return err
		}

		transitioned = true
		refreshed, err := repo.GetState(ctx, symbol)
		if err != nil {
			return err
		}
		result = refreshed
		return nil
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, fmt.Sprintf("%s %s", action, symbol))
	}

	if transitioned {
		if s.metrics != nil {
			if halting {
				s.metrics.IncHalt(string(symbol), actor)
			} else {
				s.metrics.IncResume(string(symbol), actor)
			}
		}
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"action": string(action),
			"actor":  actor,
			"reason": reason,
		}), "halt state transition")
	}

	return result, nil
}
