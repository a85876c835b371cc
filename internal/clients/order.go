package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"gitlab.com/teranga/resolution/internal/cases"
)

// ErrOrderNotFound is returned when the order service has no such order line.
var ErrOrderNotFound = errors.New("order not found")

// OrderLine is the order service's view of one purchasable line. Amount is in
// minor currency units.
type OrderLine struct {
	OrderID     string     `json:"order_id"`
	BuyerID     string     `json:"buyer_id"`
	SellerID    string     `json:"seller_id"`
	Amount      int64      `json:"amount"`
	Delivered   bool       `json:"delivered"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
}

type OrderClient struct {
	baseURL string
	client  *http.Client
}

func NewOrderClient(baseURL string) *OrderClient {
	return &OrderClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

func (c *OrderClient) GetOrderLine(ctx context.Context, orderID string) (*OrderLine, error) {
	url := fmt.Sprintf("%s/orders/%s", c.baseURL, orderID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &cases.DownstreamError{Service: "order", Err: err}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, ErrOrderNotFound
	default:
		return nil, &cases.DownstreamError{
			Service: "order",
			Err:     fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	var line OrderLine
	if err := json.NewDecoder(resp.Body).Decode(&line); err != nil {
		return nil, &cases.DownstreamError{Service: "order", Err: err}
	}
	return &line, nil
}
