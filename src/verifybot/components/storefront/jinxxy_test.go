package storefront

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type jinxxyFixture struct {
	pages   [][]string             // order ids per listing page
	orders  map[string]jinxxyOrder // id -> detail
	failing map[string]bool        // ids whose detail fetch returns 500
}

func newJinxxyServer(t *testing.T, fx jinxxyFixture) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "sekrit", r.Header.Get("X-Api-Key"))

		if r.URL.Path == "/v1/orders" {
			pageIdx := 0
			if cursor := r.URL.Query().Get("cursor"); cursor != "" {
				fmt.Sscanf(cursor, "page-%d", &pageIdx)
			}
			var page jinxxyOrderPage
			for _, id := range fx.pages[pageIdx] {
				page.Results = append(page.Results, jinxxyOrderRef{ID: id})
			}
			if pageIdx+1 < len(fx.pages) {
				page.NextCursor = fmt.Sprintf("page-%d", pageIdx+1)
			}
			json.NewEncoder(w).Encode(page)
			return
		}

		id := r.URL.Path[len("/v1/orders/"):]
		if fx.failing[id] {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		order, ok := fx.orders[id]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(order)
	}))
}

func digitalOrder(productIDs ...string) jinxxyOrder {
	var order jinxxyOrder
	for _, id := range productIDs {
		order.OrderItems = append(order.OrderItems, jinxxyOrderItem{
			TargetType: deliverableItemType,
			TargetID:   id,
		})
	}
	return order
}

func TestJinxxyVerifyFlattensOrders(t *testing.T) {
	withTip := digitalOrder("P1")
	withTip.OrderItems = append(withTip.OrderItems, jinxxyOrderItem{TargetType: "TIP", TargetID: "ignored"})

	srv := newJinxxyServer(t, jinxxyFixture{
		pages: [][]string{{"o1", "o2"}},
		orders: map[string]jinxxyOrder{
			"o1": withTip,
			"o2": digitalOrder("P2"),
		},
	})
	defer srv.Close()

	j := NewJinxxy("jinxxy", srv.URL, "sekrit")
	result, err := j.Verify(context.Background(), "buyer@example.com")

	require.NoError(t, err)
	assert.True(t, result.Verified)
	require.Len(t, result.Sales, 2)
	assert.Equal(t, "P1", result.Sales[0].ProductID)
	assert.Equal(t, "P2", result.Sales[1].ProductID)
	// No attestation support on order-style storefronts.
	assert.Empty(t, result.Sales[0].ClaimedIdentity)
}

func TestJinxxyVerifyPartialDetailFailure(t *testing.T) {
	srv := newJinxxyServer(t, jinxxyFixture{
		pages:   [][]string{{"o1", "o2", "o3"}},
		failing: map[string]bool{"o2": true},
		orders: map[string]jinxxyOrder{
			"o1": digitalOrder("P1"),
			"o3": digitalOrder("P3"),
		},
	})
	defer srv.Close()

	j := NewJinxxy("jinxxy", srv.URL, "sekrit")
	result, err := j.Verify(context.Background(), "buyer@example.com")

	// One failed detail fetch skips that order, not the run.
	require.NoError(t, err)
	assert.True(t, result.Verified)
	require.Len(t, result.Sales, 2)
	assert.Equal(t, "P1", result.Sales[0].ProductID)
	assert.Equal(t, "P3", result.Sales[1].ProductID)
}

func TestJinxxyVerifyPaginatesOrders(t *testing.T) {
	srv := newJinxxyServer(t, jinxxyFixture{
		pages: [][]string{{"o1"}, {"o2"}},
		orders: map[string]jinxxyOrder{
			"o1": digitalOrder("P1"),
			"o2": digitalOrder("P2"),
		},
	})
	defer srv.Close()

	j := NewJinxxy("jinxxy", srv.URL, "sekrit")
	result, err := j.Verify(context.Background(), "buyer@example.com")

	require.NoError(t, err)
	require.Len(t, result.Sales, 2)
	assert.Equal(t, "P1", result.Sales[0].ProductID)
	assert.Equal(t, "P2", result.Sales[1].ProductID)
}

func TestJinxxyVerifyNoOrders(t *testing.T) {
	srv := newJinxxyServer(t, jinxxyFixture{pages: [][]string{{}}})
	defer srv.Close()

	j := NewJinxxy("jinxxy", srv.URL, "sekrit")
	result, err := j.Verify(context.Background(), "nobody@example.com")

	require.NoError(t, err)
	assert.False(t, result.Verified)
	assert.Empty(t, result.Sales)
}

func TestJinxxyVerifyListingAuthFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	j := NewJinxxy("jinxxy", srv.URL, "wrong")
	_, err := j.Verify(context.Background(), "buyer@example.com")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.Auth())
}
