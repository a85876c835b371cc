package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"gitlab.com/teranga/resolution/internal/cases"
)

// RefundRequest instructs the payment service to move money back to the
// recipient. CaseID doubles as the idempotency key, so a retried refund is
// executed at most once.
type RefundRequest struct {
	CaseID      string `json:"case_id"`
	RecipientID string `json:"recipient_id"`
	Amount      int64  `json:"amount"`
}

type PaymentClient struct {
	baseURL     string
	client      *http.Client
	maxAttempts int
	backoff     time.Duration
}

func NewPaymentClient(baseURL string) *PaymentClient {
	return &PaymentClient{
		baseURL:     baseURL,
		client:      &http.Client{Timeout: 10 * time.Second},
		maxAttempts: 3,
		backoff:     500 * time.Millisecond,
	}
}

// ExecuteRefund posts the refund with exponential backoff. The case stays in
// its pre-refund state when all attempts fail, so the caller can retry later.
func (c *PaymentClient) ExecuteRefund(ctx context.Context, req RefundRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return err
	}

	var lastErr error
	delay := c.backoff
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return &cases.DownstreamError{Service: "payment", Err: ctx.Err()}
			}
			delay *= 2
		}

		lastErr = c.post(ctx, body)
		if lastErr == nil {
			return nil
		}
	}
	return &cases.DownstreamError{Service: "payment", Err: lastErr}
}

func (c *PaymentClient) post(ctx context.Context, body []byte) error {
	url := fmt.Sprintf("%s/refunds", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
