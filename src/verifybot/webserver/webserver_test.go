package webserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fanhaven/purchasegate/src/verifybot/components/entitlement"
	"github.com/fanhaven/purchasegate/src/verifybot/components/storefront"
)

type stubVerifier struct {
	name string
}

func (s stubVerifier) Platform() string { return s.name }
func (s stubVerifier) Verify(ctx context.Context, email string) (storefront.VerificationResult, error) {
	return storefront.VerificationResult{}, nil
}

func testRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	registry := storefront.NewRegistry(stubVerifier{name: "gumroad"})
	mapper := entitlement.NewMapper(map[string]map[string]string{
		"gumroad": {"P1": "role-fan"},
	})
	return New(Config{JWTSecret: "test-secret", AdminKey: "admin-key"}, registry, mapper, nil)
}

func TestHealthz(t *testing.T) {
	router := testRouter()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthRejectsBadKey(t *testing.T) {
	router := testRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/auth", strings.NewReader(`{"key":"wrong"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestStatusRequiresToken(t *testing.T) {
	router := testRouter()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/status", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthThenMappings(t *testing.T) {
	router := testRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/auth", strings.NewReader(`{"key":"admin-key"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var auth struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &auth))
	require.NotEmpty(t, auth.Token)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/v1/admin/mappings", nil)
	req.Header.Set("Authorization", "Bearer "+auth.Token)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Platforms []struct {
			Platform string `json:"platform"`
			Products int    `json:"products"`
		} `json:"platforms"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Platforms, 1)
	assert.Equal(t, "gumroad", body.Platforms[0].Platform)
	assert.Equal(t, 1, body.Platforms[0].Products)
}
