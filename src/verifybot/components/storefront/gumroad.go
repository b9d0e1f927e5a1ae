package storefront

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// identityField is the checkout custom field buyers are asked to fill in with
// their Discord handle.
const identityField = "discord"

// Gumroad verifies purchases against a flat-style sales API: every page of
// the sales listing already carries the line items.
type Gumroad struct {
	name    string
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewGumroad(name, baseURL, apiKey string) *Gumroad {
	return &Gumroad{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: defaultTimeout},
	}
}

func (g *Gumroad) Platform() string { return g.name }

type gumroadSale struct {
	ProductID    string            `json:"product_id"`
	CustomFields map[string]string `json:"custom_fields"`
}

type gumroadSalesPage struct {
	Success     bool          `json:"success"`
	Sales       []gumroadSale `json:"sales"`
	NextPageKey string        `json:"next_page_key"`
}

// Verify walks every page of the sales listing for the email.
func (g *Gumroad) Verify(ctx context.Context, email string) (VerificationResult, error) {
	var sales []SaleRecord

	pageKey := ""
	for {
		page, err := g.fetchPage(ctx, email, pageKey)
		if err != nil {
			return VerificationResult{}, err
		}

		for _, sale := range page.Sales {
			sales = append(sales, SaleRecord{
				ProductID:       sale.ProductID,
				ClaimedIdentity: identityFrom(sale.CustomFields),
			})
		}

		if page.NextPageKey == "" {
			break
		}
		pageKey = page.NextPageKey
	}

	return result(sales), nil
}

func (g *Gumroad) fetchPage(ctx context.Context, email, pageKey string) (*gumroadSalesPage, error) {
	u, err := url.Parse(g.baseURL + "/v2/sales")
	if err != nil {
		return nil, fmt.Errorf("%s sales URL: %w", g.name, err)
	}

	q := u.Query()
	q.Set("email", email)
	if pageKey != "" {
		q.Set("page_key", pageKey)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s sales request: %w", g.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Platform: g.name, Status: resp.StatusCode}
	}

	var page gumroadSalesPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decode %s sales response: %w", g.name, err)
	}

	return &page, nil
}

// identityFrom extracts the attestation field, if the buyer filled one in.
// Field names are matched case-insensitively; the value is kept verbatim.
func identityFrom(fields map[string]string) string {
	for name, value := range fields {
		if strings.EqualFold(name, identityField) {
			return value
		}
	}
	return ""
}
