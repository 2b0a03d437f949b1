package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  *Error
		want int
	}{
		{NotFound("missing"), http.StatusNotFound},
		{Validation("bad"), http.StatusBadRequest},
		{BadRequest("bad"), http.StatusBadRequest},
		{Conflict("dup"), http.StatusConflict},
		{Compliance("blocked", nil), http.StatusUnprocessableEntity},
		{LimitExceeded("capped"), http.StatusTooManyRequests},
		{Transient("down", nil), http.StatusServiceUnavailable},
		{Internal("oops"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := tt.err.HTTPStatus(); got != tt.want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", tt.err.Kind, got, tt.want)
		}
	}
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"plain error", errors.New("boom"), true},
		{"transient", Transient("db down", nil), true},
		{"internal", Internal("oops"), true},
		{"compliance", Compliance("blocked", nil), false},
		{"limit exceeded", LimitExceeded("capped"), false},
		{"validation", Validation("bad"), false},
		{"not found", NotFound("missing"), false},
		{"conflict", Conflict("dup"), false},
		{"wrapped compliance", fmt.Errorf("context: %w", Compliance("blocked", nil)), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Retryable(tt.err); got != tt.want {
				t.Fatalf("Retryable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	wrapped := Wrap(KindTransient, "db down", cause)
	if !errors.Is(wrapped, cause) {
		t.Fatal("errors.Is should see the wrapped cause")
	}
	if GetKind(wrapped) != KindTransient {
		t.Fatalf("GetKind = %v, want KindTransient", GetKind(wrapped))
	}
}
