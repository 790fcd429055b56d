package paymentwebhook

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/southerncrossbullion/bullion-backend/pkg/errors"
	"github.com/southerncrossbullion/bullion-backend/pkg/logger"
)

type stubLocks struct {
	sessionID  string
	productIDs []uuid.UUID
	used       int64
	err        error
	calls      int
}

func (s *stubLocks) MarkUsed(ctx context.Context, sessionID string, productIDs []uuid.UUID) (int64, error) {
	s.calls++
	s.sessionID = sessionID
	s.productIDs = productIDs
	return s.used, s.err
}

func newTestService(t *testing.T, locks *stubLocks) *Service {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("debug"), Output: io.Discard})
	svc, err := NewService(ServiceParams{Locks: locks, Logger: logg})
	require.NoError(t, err)
	return svc
}

func TestHandleEventCaptureSucceededMarksLocksUsed(t *testing.T) {
	locks := &stubLocks{used: 2}
	svc := newTestService(t, locks)
	productA := uuid.New()
	productB := uuid.New()

	err := svc.HandleEvent(context.Background(), &CaptureEvent{
		EventID:    "evt-1",
		Type:       EventCaptureSucceeded,
		SessionID:  "sess-1",
		ProductIDs: []string{productA.String(), productB.String()},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, locks.calls)
	assert.Equal(t, "sess-1", locks.sessionID)
	assert.Equal(t, []uuid.UUID{productA, productB}, locks.productIDs)
}

func TestHandleEventCaptureFailureLeavesLocksAlone(t *testing.T) {
	locks := &stubLocks{}
	svc := newTestService(t, locks)

	for _, eventType := range []string{EventCaptureFailed, EventCaptureCancelled} {
		err := svc.HandleEvent(context.Background(), &CaptureEvent{
			EventID:   "evt-2",
			Type:      eventType,
			SessionID: "sess-1",
		})
		require.NoError(t, err)
	}

	assert.Equal(t, 0, locks.calls)
}

func TestHandleEventRejectsBadPayloads(t *testing.T) {
	locks := &stubLocks{}
	svc := newTestService(t, locks)

	err := svc.HandleEvent(context.Background(), &CaptureEvent{Type: EventCaptureSucceeded})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())

	err = svc.HandleEvent(context.Background(), &CaptureEvent{
		Type:      EventCaptureSucceeded,
		SessionID: "sess-1",
	})
	require.Error(t, err)

	err = svc.HandleEvent(context.Background(), &CaptureEvent{
		Type:       EventCaptureSucceeded,
		SessionID:  "sess-1",
		ProductIDs: []string{"not-a-uuid"},
	})
	require.Error(t, err)
	assert.Equal(t, 0, locks.calls)
}

func TestHandleEventUnknownTypeIsIgnored(t *testing.T) {
	locks := &stubLocks{}
	svc := newTestService(t, locks)

	err := svc.HandleEvent(context.Background(), &CaptureEvent{
		EventID:   "evt-3",
		Type:      "payment.authorized",
		SessionID: "sess-1",
	})
	require.NoError(t, err)
	assert.Equal(t, 0, locks.calls)
}
