package webhooks

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	paymentwebhook "github.com/southerncrossbullion/bullion-backend/internal/webhooks/payment"
)

func TestPaymentWebhook_SuccessAndIdempotent(t *testing.T) {
	payload := buildCaptureEvent(t, paymentwebhook.EventCaptureSucceeded)
	header := buildPaymentSignature(payload, "secret")
	service := &fakePaymentWebhookService{}
	guard, err := paymentwebhook.NewIdempotencyGuard(newInMemoryStore(), time.Minute, "payment-webhook")
	if err != nil {
		t.Fatalf("guard setup: %v", err)
	}
	handler := PaymentWebhook(service, "secret", guard, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payment", bytes.NewReader(payload))
	req.Header.Set("X-Payment-Signature", header)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if service.calls != 1 {
		t.Fatalf("expected service called once, got %d", service.calls)
	}

	req2 := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payment", bytes.NewReader(payload))
	req2.Header.Set("X-Payment-Signature", header)
	rec2 := httptest.NewRecorder()
	handler.ServeHTTP(rec2, req2)
	if rec2.Code != http.StatusOK {
		t.Fatalf("expected 200 on duplicate, got %d", rec2.Code)
	}
	if service.calls != 1 {
		t.Fatalf("duplicate should not increment calls, got %d", service.calls)
	}
}

func TestPaymentWebhook_InvalidSignature(t *testing.T) {
	payload := buildCaptureEvent(t, paymentwebhook.EventCaptureSucceeded)
	service := &fakePaymentWebhookService{}
	guard, err := paymentwebhook.NewIdempotencyGuard(newInMemoryStore(), time.Minute, "payment-webhook")
	if err != nil {
		t.Fatalf("guard setup: %v", err)
	}
	handler := PaymentWebhook(service, "secret", guard, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payment", bytes.NewReader(payload))
	req.Header.Set("X-Payment-Signature", "invalid")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for invalid signature, got %d", rec.Code)
	}
	if service.calls != 0 {
		t.Fatalf("service should not be invoked on invalid signature")
	}
}

func TestPaymentWebhook_GuardReleasedOnHandlerError(t *testing.T) {
	payload := buildCaptureEvent(t, paymentwebhook.EventCaptureSucceeded)
	header := buildPaymentSignature(payload, "secret")
	service := &fakePaymentWebhookService{err: fmt.Errorf("downstream unavailable")}
	guard, err := paymentwebhook.NewIdempotencyGuard(newInMemoryStore(), time.Minute, "payment-webhook")
	if err != nil {
		t.Fatalf("guard setup: %v", err)
	}
	handler := PaymentWebhook(service, "secret", guard, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payment", bytes.NewReader(payload))
	req.Header.Set("X-Payment-Signature", header)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code == http.StatusOK {
		t.Fatalf("expected failure status, got 200")
	}

	// the guard key was released, so a retry reaches the service again
	service.err = nil
	req2 := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payment", bytes.NewReader(payload))
	req2.Header.Set("X-Payment-Signature", header)
	rec2 := httptest.NewRecorder()
	handler.ServeHTTP(rec2, req2)
	if rec2.Code != http.StatusOK {
		t.Fatalf("expected retry to succeed, got %d", rec2.Code)
	}
	if service.calls != 2 {
		t.Fatalf("expected retry to reach the service, got %d calls", service.calls)
	}
}

func buildCaptureEvent(t *testing.T, eventType string) []byte {
	t.Helper()
	event := &paymentwebhook.CaptureEvent{
		EventID:    "evt_" + uuid.NewString(),
		Type:       eventType,
		SessionID:  "sess_" + uuid.NewString(),
		ProductIDs: []string{uuid.NewString()},
	}
	payload, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	return payload
}

func buildPaymentSignature(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

type fakePaymentWebhookService struct {
	calls int
	err   error
}

func (f *fakePaymentWebhookService) HandleEvent(ctx context.Context, event *paymentwebhook.CaptureEvent) error {
	f.calls++
	return f.err
}

type inMemoryStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newInMemoryStore() *inMemoryStore {
	return &inMemoryStore{data: make(map[string]string)}
}

func (s *inMemoryStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.data[key]; exists {
		return false, nil
	}
	s.data[key] = fmt.Sprintf("%v", value)
	return true, nil
}

func (s *inMemoryStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("scb:idem:%s:%s", scope, id)
}

func (s *inMemoryStore) Del(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.data, key)
	}
	return nil
}
