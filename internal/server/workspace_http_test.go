package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/prometheus/client_golang/prometheus"
	entitlementdomain "github.com/smallbiznis/entitle/internal/entitlement/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeEntitlementService struct {
	lastWorkspace snowflake.ID
	lastFeature   string
	result        entitlementdomain.EntitlementResult
	err           error
}

func (f *fakeEntitlementService) Check(ctx context.Context, workspaceID snowflake.ID, featureCode string) (entitlementdomain.EntitlementResult, error) {
	f.lastWorkspace = workspaceID
	f.lastFeature = featureCode
	return f.result, f.err
}

func (f *fakeEntitlementService) CheckAndConsume(ctx context.Context, req entitlementdomain.ConsumeRequest) (entitlementdomain.EntitlementResult, error) {
	f.lastWorkspace = req.WorkspaceID
	f.lastFeature = req.FeatureCode
	return f.result, f.err
}

func (f *fakeEntitlementService) UsageSummary(ctx context.Context, workspaceID snowflake.ID) (map[string]entitlementdomain.EntitlementResult, error) {
	f.lastWorkspace = workspaceID
	return map[string]entitlementdomain.EntitlementResult{"sso": f.result}, f.err
}

func newTestServer(t *testing.T, entitlements entitlementdomain.Service) *Server {
	t.Helper()
	engine := NewEngine(zap.NewNop(), prometheus.NewRegistry())
	return NewServer(ServerParams{
		Gin:            engine,
		EntitlementSvc: entitlements,
	})
}

func TestCheckEntitlementEndpoint(t *testing.T) {
	fake := &fakeEntitlementService{
		result: entitlementdomain.EntitlementResult{
			Allowed: true,
			Limit:   10,
			Used:    4,
			Reason:  entitlementdomain.ReasonOK,
		},
	}
	srv := newTestServer(t, fake)

	req := httptest.NewRequest(http.MethodGet, "/v1/workspaces/12345/entitlements/social.accounts", nil)
	rec := httptest.NewRecorder()
	srv.Engine().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, snowflake.ID(12345), fake.lastWorkspace)
	assert.Equal(t, "social.accounts", fake.lastFeature)

	var body struct {
		Data entitlementdomain.EntitlementResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Data.Allowed)
	assert.Equal(t, entitlementdomain.ReasonOK, body.Data.Reason)
}

func TestCheckEntitlementInvalidWorkspace(t *testing.T) {
	srv := newTestServer(t, &fakeEntitlementService{})

	req := httptest.NewRequest(http.MethodGet, "/v1/workspaces/not-a-number/entitlements/sso", nil)
	rec := httptest.NewRecorder()
	srv.Engine().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheckEntitlementUnknownFeature(t *testing.T) {
	srv := newTestServer(t, &fakeEntitlementService{err: entitlementdomain.ErrUnknownFeature})

	req := httptest.NewRequest(http.MethodGet, "/v1/workspaces/12345/entitlements/ghost", nil)
	rec := httptest.NewRecorder()
	srv.Engine().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestConsumeEndpointReturnsDenialAsValue(t *testing.T) {
	fake := &fakeEntitlementService{
		result: entitlementdomain.EntitlementResult{
			Allowed: false,
			Limit:   10,
			Used:    10,
			Reason:  entitlementdomain.ReasonLimitReached,
		},
	}
	srv := newTestServer(t, fake)

	payload, err := json.Marshal(map[string]any{"feature_code": "ai.credits", "quantity": 1})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/v1/workspaces/12345/usage/consume", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Engine().ServeHTTP(rec, req)

	// Hitting the limit is a resolved answer, not an HTTP error.
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data entitlementdomain.EntitlementResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Data.Allowed)
	assert.Equal(t, entitlementdomain.ReasonLimitReached, body.Data.Reason)
}

func TestUsageSummaryEndpoint(t *testing.T) {
	fake := &fakeEntitlementService{
		result: entitlementdomain.EntitlementResult{Allowed: true, Reason: entitlementdomain.ReasonOK},
	}
	srv := newTestServer(t, fake)

	req := httptest.NewRequest(http.MethodGet, "/v1/workspaces/12345/usage", nil)
	rec := httptest.NewRecorder()
	srv.Engine().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data map[string]entitlementdomain.EntitlementResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Contains(t, body.Data, "sso")
	assert.True(t, body.Data["sso"].Allowed)
}
