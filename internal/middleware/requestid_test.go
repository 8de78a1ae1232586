package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestRequestID_GeneratesNewID(t *testing.T) {
	var captured string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/categories", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if _, err := uuid.Parse(captured); err != nil {
		t.Errorf("expected generated UUID in context, got %q", captured)
	}
	if rr.Header().Get(RequestIDHeader) != captured {
		t.Errorf("expected response header %q, got %q", captured, rr.Header().Get(RequestIDHeader))
	}
}

func TestRequestID_IncomingHeader(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
		reused   bool
	}{
		{name: "well formed", incoming: "existing-request-id-123", reused: true},
		{name: "contains space", incoming: "bad id", reused: false},
		{name: "too long", incoming: strings.Repeat("a", maxRequestIDLength+1), reused: false},
		{name: "control character", incoming: "abc\x01", reused: false},
		{name: "non-ascii", incoming: "요청", reused: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var captured string
			handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				captured = GetRequestID(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/categories", nil)
			req.Header.Set(RequestIDHeader, tt.incoming)
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if got := captured == tt.incoming; got != tt.reused {
				t.Errorf("reused = %v, want %v (captured %q)", got, tt.reused, captured)
			}
			if captured == "" {
				t.Error("expected a request ID in context")
			}
		})
	}
}

func TestGetRequestID_EmptyContextReturnsEmptyString(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	if id := GetRequestID(req.Context()); id != "" {
		t.Errorf("expected empty string, got %q", id)
	}
}
