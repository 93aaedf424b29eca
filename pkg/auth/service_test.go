package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

// mockJWKSClient records the token it was asked to validate.
type mockJWKSClient struct {
	claims *Claims
	err    error
	seen   string
}

func (m *mockJWKSClient) ValidateToken(tokenString string) (*Claims, error) {
	m.seen = tokenString
	if m.err != nil {
		return nil, m.err
	}
	return m.claims, nil
}

func (m *mockJWKSClient) Close() {}

func TestAuthService_ValidateRequest_Sources(t *testing.T) {
	claims := &Claims{}
	claims.Subject = "user-1"

	tests := []struct {
		name      string
		setup     func(r *http.Request)
		wantToken string
		wantErr   error
	}{
		{
			name:    "no credentials",
			setup:   func(r *http.Request) {},
			wantErr: ErrMissingAuthorization,
		},
		{
			name:      "bearer header",
			setup:     func(r *http.Request) { r.Header.Set("Authorization", "Bearer header-token") },
			wantToken: "header-token",
		},
		{
			name: "cookie wins over header",
			setup: func(r *http.Request) {
				r.AddCookie(&http.Cookie{Name: CookieName, Value: "cookie-token"})
				r.Header.Set("Authorization", "Bearer header-token")
			},
			wantToken: "cookie-token",
		},
		{
			name:    "basic scheme",
			setup:   func(r *http.Request) { r.Header.Set("Authorization", "Basic dXNlcjpwYXNz") },
			wantErr: ErrInvalidAuthFormat,
		},
		{
			name:    "bearer without token",
			setup:   func(r *http.Request) { r.Header.Set("Authorization", "Bearer") },
			wantErr: ErrInvalidAuthFormat,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			jwks := &mockJWKSClient{claims: claims}
			svc := NewAuthService(jwks, zap.NewNop())

			req := httptest.NewRequest(http.MethodGet, "/api/v1/editor_snippets/", nil)
			tt.setup(req)

			got, token, err := svc.ValidateRequest(req)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if token != tt.wantToken || jwks.seen != tt.wantToken {
				t.Errorf("expected token %q, got %q (validated %q)", tt.wantToken, token, jwks.seen)
			}
			if got.Subject != "user-1" {
				t.Errorf("expected subject 'user-1', got %q", got.Subject)
			}
		})
	}
}

func TestAuthService_ValidateRequest_InvalidToken(t *testing.T) {
	svc := NewAuthService(&mockJWKSClient{err: errors.New("bad signature")}, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer forged")

	if _, _, err := svc.ValidateRequest(req); err == nil {
		t.Error("expected validation error")
	}
}
