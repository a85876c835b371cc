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

// ScoringClient reports reputation adjustments to the seller scoring service.
// Adjustments are advisory; a failure never blocks a case transition.
type ScoringClient struct {
	baseURL string
	client  *http.Client
}

func NewScoringClient(baseURL string) *ScoringClient {
	return &ScoringClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

func (c *ScoringClient) AdjustReputation(ctx context.Context, partyID string, delta int, reason string) error {
	body, err := json.Marshal(map[string]any{
		"party_id": partyID,
		"delta":    delta,
		"reason":   reason,
	})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/reputation/adjust", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return &cases.DownstreamError{Service: "scoring", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &cases.DownstreamError{
			Service: "scoring",
			Err:     fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}
	return nil
}
