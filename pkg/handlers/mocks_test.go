package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ekaya-inc/query-estimator/pkg/auth"
	"github.com/ekaya-inc/query-estimator/pkg/estimator"
	"github.com/ekaya-inc/query-estimator/pkg/services"
)

// anonymous passes requests through without claims.
func anonymous(next http.HandlerFunc) http.HandlerFunc { return next }

// asUser attaches claims for the given subject.
func asUser(userID string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			claims := &auth.Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: userID}}
			next(w, r.WithContext(auth.WithClaims(r.Context(), claims, "test-token")))
		}
	}
}

type mockEstimatorService struct {
	result *estimator.EstimationResult
	err    error
	got    []services.EstimateRequest
}

func (m *mockEstimatorService) Estimate(ctx context.Context, req services.EstimateRequest) (*estimator.EstimationResult, error) {
	m.got = append(m.got, req)
	return m.result, m.err
}

type mockInsightsService struct {
	result *services.QueryInsights
	err    error

	sql, schema string
}

func (m *mockInsightsService) GetQueryMetadata(ctx context.Context, sql string, defaultSchema string) (*services.QueryInsights, error) {
	m.sql, m.schema = sql, defaultSchema
	return m.result, m.err
}

type mockSnippetService struct {
	stored  map[string][]json.RawMessage
	getErr  error
	saveErr error
}

func newMockSnippetService() *mockSnippetService {
	return &mockSnippetService{stored: map[string][]json.RawMessage{}}
}

func (m *mockSnippetService) Get(ctx context.Context, userID string) ([]json.RawMessage, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	if s, ok := m.stored[userID]; ok {
		return s, nil
	}
	return []json.RawMessage{}, nil
}

func (m *mockSnippetService) Save(ctx context.Context, userID string, snippets []json.RawMessage) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.stored[userID] = snippets
	return nil
}

type mockDirectory []services.DatabaseInfo

func (m mockDirectory) Get(ctx context.Context, id int64) (services.Database, error) {
	return nil, nil
}

func (m mockDirectory) List(ctx context.Context) []services.DatabaseInfo { return m }

// mockAuthService answers every request with fixed claims or a fixed error.
type mockAuthService struct {
	claims *auth.Claims
	err    error
}

func (m *mockAuthService) ValidateRequest(r *http.Request) (*auth.Claims, string, error) {
	return m.claims, "test-token", m.err
}

var (
	_ services.EstimatorService  = (*mockEstimatorService)(nil)
	_ services.InsightsService   = (*mockInsightsService)(nil)
	_ services.SnippetService    = (*mockSnippetService)(nil)
	_ services.DatabaseDirectory = mockDirectory(nil)
)
