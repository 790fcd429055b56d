package paymentwebhook

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	pkgerrors "github.com/southerncrossbullion/bullion-backend/pkg/errors"
	"github.com/southerncrossbullion/bullion-backend/pkg/logger"
)

const (
	EventCaptureSucceeded = "payment.capture.succeeded"
	EventCaptureFailed    = "payment.capture.failed"
	EventCaptureCancelled = "payment.capture.cancelled"
)

type lockConsumer interface {
	MarkUsed(ctx context.Context, sessionID string, productIDs []uuid.UUID) (int64, error)
}

type ServiceParams struct {
	Locks  lockConsumer
	Logger *logger.Logger
}

// Service consumes capture results from the payment gateway. Success marks
// the session's locks used; failure leaves them to expire naturally.
type Service struct {
	locks lockConsumer
	logg  *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Locks == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "lock consumer required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{locks: params.Locks, logg: params.Logger}, nil
}

type CaptureEvent struct {
	EventID    string   `json:"event_id"`
	Type       string   `json:"type"`
	SessionID  string   `json:"session_id"`
	ProductIDs []string `json:"product_ids"`
}

// HandleEvent processes one capture result.
func (s *Service) HandleEvent(ctx context.Context, event *CaptureEvent) error {
	if event == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "capture event required")
	}
	sessionID := strings.TrimSpace(event.SessionID)
	if sessionID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "session_id is required")
	}

	ctx = s.logg.WithSessionID(ctx, sessionID)

	switch event.Type {
	case EventCaptureSucceeded:
		productIDs, err := parseProductIDs(event.ProductIDs)
		if err != nil {
			return err
		}
		if len(productIDs) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "product_ids are required on capture success")
		}
		used, err := s.locks.MarkUsed(ctx, sessionID, productIDs)
		if err != nil {
			return err
		}
		s.logg.Info(s.logg.WithField(ctx, "locks_used", used), "capture succeeded, locks consumed")
		return nil
	case EventCaptureFailed, EventCaptureCancelled:
		// Locks stay active until they expire; the customer can retry at
		// the same price inside the window.
		s.logg.Info(s.logg.WithField(ctx, "event_type", event.Type), "capture did not complete, locks untouched")
		return nil
	default:
		s.logg.Warn(s.logg.WithField(ctx, "event_type", event.Type), "ignoring unknown capture event type")
		return nil
	}
}

func parseProductIDs(values []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(values))
	for _, raw := range values {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, fmt.Sprintf("invalid product id %q", raw))
		}
		ids = append(ids, id)
	}
	return ids, nil
}
