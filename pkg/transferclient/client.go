/**
 * @description
 * Client for the internal transfer API used to move payout funds to
 * partner bank accounts.
 */
package transferclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var ErrTransferRejected = errors.New("transfer rejected")

// Client is a client for the transfer API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a new transfer API client.
func NewClient(baseURL string, apiKey string) *Client {
	normalizedURL := strings.TrimSuffix(baseURL, "/")
	return &Client{
		baseURL:    normalizedURL,
		apiKey:     strings.TrimSpace(apiKey),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// InitiateTransfer asks the transfer API to move funds to a destination
// account and returns the provider's transfer reference.
func (c *Client) InitiateTransfer(ctx context.Context, amount decimal.Decimal, currency, destinationAccount, reference string) (string, error) {
	if destinationAccount == "" {
		return "", fmt.Errorf("destination account is required")
	}
	if c.apiKey == "" {
		return "", fmt.Errorf("transfer api key is not configured")
	}

	payload := map[string]interface{}{
		"amount":              amount.StringFixed(2),
		"currency":            currency,
		"destination_account": destinationAccount,
		"reference":           reference,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transfers", bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Internal-API-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnprocessableEntity {
		return "", ErrTransferRejected
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("transfer api returned status %d", resp.StatusCode)
	}

	var response struct {
		TransferID string `json:"transfer_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("failed to parse transfer response: %w", err)
	}
	if response.TransferID == "" {
		return "", fmt.Errorf("transfer api returned no transfer id")
	}

	return response.TransferID, nil
}
