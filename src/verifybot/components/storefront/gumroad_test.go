package storefront

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGumroadVerifyPaginates(t *testing.T) {
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		require.Equal(t, "/v2/sales", r.URL.Path)
		require.Equal(t, "Bearer sekrit", r.Header.Get("Authorization"))
		require.Equal(t, "buyer@example.com", r.URL.Query().Get("email"))

		page := gumroadSalesPage{Success: true}
		switch r.URL.Query().Get("page_key") {
		case "":
			page.Sales = []gumroadSale{{ProductID: "P1"}}
			page.NextPageKey = "k2"
		case "k2":
			page.Sales = []gumroadSale{{ProductID: "P2", CustomFields: map[string]string{"Discord": "Alice"}}}
		default:
			t.Fatalf("unexpected page key %q", r.URL.Query().Get("page_key"))
		}
		json.NewEncoder(w).Encode(page)
	}))
	defer srv.Close()

	g := NewGumroad("gumroad", srv.URL, "sekrit")
	result, err := g.Verify(context.Background(), "buyer@example.com")

	require.NoError(t, err)
	assert.Equal(t, 2, requests)
	assert.True(t, result.Verified)
	require.Len(t, result.Sales, 2)
	assert.Equal(t, SaleRecord{ProductID: "P1"}, result.Sales[0])
	// Field name matched case-insensitively, value kept verbatim.
	assert.Equal(t, SaleRecord{ProductID: "P2", ClaimedIdentity: "Alice"}, result.Sales[1])
}

func TestGumroadVerifyNoSales(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(gumroadSalesPage{Success: true})
	}))
	defer srv.Close()

	g := NewGumroad("gumroad", srv.URL, "sekrit")
	result, err := g.Verify(context.Background(), "nobody@example.com")

	require.NoError(t, err)
	assert.False(t, result.Verified)
	assert.Empty(t, result.Sales)
}

func TestGumroadVerifyAuthFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	g := NewGumroad("gumroad", srv.URL, "wrong")
	_, err := g.Verify(context.Background(), "buyer@example.com")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.Auth())
	assert.Equal(t, "gumroad", apiErr.Platform)
}

func TestGumroadVerifyServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	g := NewGumroad("gumroad", srv.URL, "sekrit")
	_, err := g.Verify(context.Background(), "buyer@example.com")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.False(t, apiErr.Auth())
}

func TestGumroadVerifyTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	g := NewGumroad("gumroad", srv.URL, "sekrit")
	_, err := g.Verify(context.Background(), "buyer@example.com")

	require.Error(t, err)
	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr))
}
