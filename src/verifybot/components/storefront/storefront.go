package storefront

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

const defaultTimeout = 30 * time.Second

// Platform kinds, matching the platforms table.
const (
	KindFlat   = "flat"   // sales endpoint returns line items directly
	KindOrders = "orders" // order summaries require a detail fetch each
)

var ErrUnsupportedPlatform = errors.New("storefront: unsupported platform")

// SaleRecord is one purchase as reported by a storefront.
type SaleRecord struct {
	ProductID string
	// ClaimedIdentity is the identity tag the buyer supplied at checkout,
	// verbatim. Empty when the storefront collected none.
	ClaimedIdentity string
}

// VerificationResult is the outcome of one email lookup against a storefront.
// Verified is true exactly when at least one sale was found.
type VerificationResult struct {
	Verified bool
	Sales    []SaleRecord
}

// Verifier queries one storefront for sales matching an email.
type Verifier interface {
	Platform() string
	Verify(ctx context.Context, email string) (VerificationResult, error)
}

// APIError is a non-2xx response from a storefront API. It is always surfaced
// to the caller, never folded into a "no sale found" result.
type APIError struct {
	Platform string
	Status   int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API returned status %d", e.Platform, e.Status)
}

// Auth reports whether the storefront rejected our credentials.
func (e *APIError) Auth() bool {
	return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
}

func result(sales []SaleRecord) VerificationResult {
	return VerificationResult{Verified: len(sales) > 0, Sales: sales}
}
