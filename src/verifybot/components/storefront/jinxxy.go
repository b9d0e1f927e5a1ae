package storefront

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/sync/errgroup"
)

// detailConcurrency bounds parallel order detail fetches so a buyer with many
// orders doesn't hammer the storefront API.
const detailConcurrency = 4

// deliverableItemType marks order items that are digital products; other item
// types (shipping, tips) carry no entitlement.
const deliverableItemType = "DIGITAL_PRODUCT"

// Jinxxy verifies purchases against an order-style API: the search endpoint
// returns order summaries, and every order needs a follow-up detail request
// to obtain its line items.
type Jinxxy struct {
	name    string
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewJinxxy(name, baseURL, apiKey string) *Jinxxy {
	return &Jinxxy{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: defaultTimeout},
	}
}

func (j *Jinxxy) Platform() string { return j.name }

type jinxxyOrderRef struct {
	ID string `json:"id"`
}

type jinxxyOrderPage struct {
	Results    []jinxxyOrderRef `json:"results"`
	NextCursor string           `json:"next_cursor"`
}

type jinxxyOrderItem struct {
	TargetType string `json:"target_type"`
	TargetID   string `json:"target_id"`
}

type jinxxyOrder struct {
	OrderItems []jinxxyOrderItem `json:"order_items"`
}

// Verify lists every order for the email, then expands each order's line
// items. A failed detail fetch is logged and that order skipped; the
// remaining orders' items are still returned.
func (j *Jinxxy) Verify(ctx context.Context, email string) (VerificationResult, error) {
	var orderIDs []string

	cursor := ""
	for {
		page, err := j.fetchOrders(ctx, email, cursor)
		if err != nil {
			return VerificationResult{}, err
		}

		for _, order := range page.Results {
			orderIDs = append(orderIDs, order.ID)
		}

		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}

	if len(orderIDs) == 0 {
		return result(nil), nil
	}

	// One slot per order keeps the listing order stable no matter which
	// detail fetch finishes first. A failed fetch never returns an error
	// from its goroutine, so siblings are not cancelled.
	slots := make([][]SaleRecord, len(orderIDs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(detailConcurrency)

	for i, orderID := range orderIDs {
		g.Go(func() error {
			order, err := j.fetchOrder(gctx, orderID)
			if err != nil {
				log.Printf("%s: failed to retrieve order %s: %v", j.name, orderID, err)
				return nil
			}

			var items []SaleRecord
			for _, item := range order.OrderItems {
				if item.TargetType != deliverableItemType {
					continue
				}
				items = append(items, SaleRecord{ProductID: item.TargetID})
			}
			slots[i] = items
			return nil
		})
	}
	_ = g.Wait()

	var sales []SaleRecord
	for _, items := range slots {
		sales = append(sales, items...)
	}

	return result(sales), nil
}

func (j *Jinxxy) fetchOrders(ctx context.Context, email, cursor string) (*jinxxyOrderPage, error) {
	u, err := url.Parse(j.baseURL + "/v1/orders")
	if err != nil {
		return nil, fmt.Errorf("%s orders URL: %w", j.name, err)
	}

	q := u.Query()
	q.Set("search_query", email)
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	u.RawQuery = q.Encode()

	var page jinxxyOrderPage
	if err := j.get(ctx, u.String(), &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (j *Jinxxy) fetchOrder(ctx context.Context, orderID string) (*jinxxyOrder, error) {
	var order jinxxyOrder
	if err := j.get(ctx, j.baseURL+"/v1/orders/"+url.PathEscape(orderID), &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (j *Jinxxy) get(ctx context.Context, rawurl string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawurl, nil)
	if err != nil {
		return err
	}
	req.Header.Set("X-Api-Key", j.apiKey)

	resp, err := j.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s request: %w", j.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &APIError{Platform: j.name, Status: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", j.name, err)
	}

	return nil
}
