package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type fakeResolver map[string]string

func (f fakeResolver) ResolveIdentity(_ context.Context, token string) (string, error) {
	if id, ok := f[token]; ok {
		return id, nil
	}
	return "", errors.New("invalid token")
}

var testResolver = fakeResolver{"good": "user-1"}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"", ""},
		{"Bearer abc", "abc"},
		{"bearer abc", "abc"},
		{"Bearer  abc ", "abc"},
		{"Basic abc", ""},
		{"Bearer", ""},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		if got := BearerToken(req); got != tt.want {
			t.Errorf("BearerToken(%q) = %q, want %q", tt.header, got, tt.want)
		}
	}
}

func TestOptionalAuth(t *testing.T) {
	tests := []struct {
		name      string
		header    string
		wantUser  string
		wantToken string
	}{
		{"anonymous", "", "", ""},
		{"valid token", "Bearer good", "user-1", "good"},
		{"invalid token", "Bearer bad", "", "bad"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotUser, gotToken string
			handler := OptionalAuth(testResolver)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotUser, gotToken = GetUserID(r.Context()), GetToken(r.Context())
			}))

			req := httptest.NewRequest(http.MethodPost, "/products/calculate", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != http.StatusOK {
				t.Errorf("expected 200, got %d", rr.Code)
			}
			if gotUser != tt.wantUser || gotToken != tt.wantToken {
				t.Errorf("got user %q token %q, want %q %q", gotUser, gotToken, tt.wantUser, tt.wantToken)
			}
		})
	}
}

func TestRequireAuth(t *testing.T) {
	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"invalid", "Bearer bad", http.StatusUnauthorized},
		{"wrong scheme", "Basic good", http.StatusUnauthorized},
		{"valid", "Bearer good", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := RequireAuth(testResolver)(okHandler())
			req := httptest.NewRequest(http.MethodGet, "/histories", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, rr.Code)
			}
			if tt.wantStatus != http.StatusUnauthorized {
				return
			}
			var body errorBody
			if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Error.Code != "auth_failed" {
				t.Errorf("expected auth_failed, got %q", body.Error.Code)
			}
			if rr.Header().Get("WWW-Authenticate") == "" {
				t.Error("expected WWW-Authenticate header")
			}
		})
	}
}

func TestRequireAuth_ReusesOptionalAuth(t *testing.T) {
	calls := 0
	resolver := resolverFunc(func(ctx context.Context, token string) (string, error) {
		calls++
		return testResolver.ResolveIdentity(ctx, token)
	})
	handler := OptionalAuth(resolver)(RequireAuth(resolver)(okHandler()))

	req := httptest.NewRequest(http.MethodGet, "/histories", nil)
	req.Header.Set("Authorization", "Bearer good")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK || calls != 1 {
		t.Errorf("expected 200 with one resolution, got %d after %d calls", rr.Code, calls)
	}
}

func TestAuth_UserIDVisibleToLogging(t *testing.T) {
	buf := &bytes.Buffer{}
	handler := Logging(newTestLogger(buf))(OptionalAuth(testResolver)(okHandler()))

	req := httptest.NewRequest(http.MethodGet, "/categories", nil)
	req.Header.Set("Authorization", "Bearer good")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if entry := parseLogEntry(t, buf); entry.UserID != "user-1" {
		t.Errorf("expected user_id user-1 in log, got %q", entry.UserID)
	}
}

type resolverFunc func(ctx context.Context, token string) (string, error)

func (f resolverFunc) ResolveIdentity(ctx context.Context, token string) (string, error) {
	return f(ctx, token)
}
