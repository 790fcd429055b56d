package errors

import (
	stdErrors "errors"
	"net/http"
	"testing"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		publicMsg string
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, publicMsg: "validation failed", detailsOK: true},
		{code: CodeNotFound, status: http.StatusNotFound, publicMsg: "resource not found"},
		{code: CodeConflict, status: http.StatusConflict, publicMsg: "conflict detected"},
		{code: CodeStateConflict, status: http.StatusUnprocessableEntity, publicMsg: "state transition disallowed", detailsOK: true},
		{code: CodeInternal, status: http.StatusInternalServerError, publicMsg: "internal server error", retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, publicMsg: "dependency unavailable", retryable: true, detailsOK: true},
		{code: CodeUnpriceable, status: http.StatusUnprocessableEntity, publicMsg: "product cannot be priced right now", retryable: true, detailsOK: true},
		{code: CodeLockMissing, status: http.StatusConflict, publicMsg: "no active price lock for cart item", detailsOK: true},
		{code: CodeLockExpired, status: http.StatusConflict, publicMsg: "price lock expired", detailsOK: true},
		{code: CodePriceMismatch, status: http.StatusUnprocessableEntity, publicMsg: "submitted amount does not match locked price", detailsOK: true},
		{code: CodeMetalHalted, status: http.StatusConflict, publicMsg: "sales are temporarily halted for this metal", detailsOK: true},
		{code: CodeUpstreamUnavailable, status: http.StatusServiceUnavailable, publicMsg: "live price feed unavailable", retryable: true, detailsOK: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.PublicMessage != tt.publicMsg {
			t.Fatalf("code %s expected public message %q got %q", tt.code, tt.publicMsg, meta.PublicMessage)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.DetailsAllowed != tt.detailsOK {
			t.Fatalf("code %s expected details allowed %v got %v", tt.code, tt.detailsOK, meta.DetailsAllowed)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", meta.HTTPStatus)
	}
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeUnpriceable, "missing quote for XPT")
	if base.Code() != CodeUnpriceable {
		t.Fatalf("expected unpriceable code, got %s", base.Code())
	}
	if base.Message() != "missing quote for XPT" {
		t.Fatalf("unexpected message %q", base.Message())
	}
	if base.Details() != nil {
		t.Fatalf("details should be nil by default")
	}

	detail := map[string]any{"symbol": "XPT"}
	base.WithDetails(detail)
	if base.Details() == nil {
		t.Fatalf("details should be preserved")
	}

	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeUpstreamUnavailable, cause, "fetch quotes")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if wrapped.Code() != CodeUpstreamUnavailable {
		t.Fatalf("unexpected code %s", wrapped.Code())
	}
}

func TestAsReturnsTypedError(t *testing.T) {
	err := New(CodeLockExpired, "expired")
	if typed := As(err); typed == nil || typed.Code() != CodeLockExpired {
		t.Fatalf("expected typed error back, got %v", typed)
	}
	if typed := As(stdErrors.New("plain")); typed != nil {
		t.Fatalf("expected nil for untyped error")
	}
	wrapped := Wrap(CodePriceMismatch, New(CodeValidation, "inner"), "outer")
	if typed := As(wrapped); typed == nil || typed.Code() != CodePriceMismatch {
		t.Fatalf("expected outermost typed error, got %v", typed)
	}
}
