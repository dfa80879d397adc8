// Package etherscan looks up verified contract ABIs from the chain explorer.
package etherscan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrNotVerified is returned when the explorer has no verified source for
	// the contract.
	ErrNotVerified = errors.New("contract source code not verified")

	// ErrRateLimited is returned when the explorer throttles the request.
	ErrRateLimited = errors.New("explorer rate limit reached")
)

// Client queries the Etherscan contract API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates an Etherscan client. The API key may be empty; lookups
// then run with the explorer's anonymous rate limits.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// ContractABI fetches the verified ABI for a contract address.
func (c *Client) ContractABI(ctx context.Context, address common.Address) (*abi.ABI, error) {
	params := url.Values{}
	params.Set("module", "contract")
	params.Set("action", "getabi")
	params.Set("address", address.Hex())
	if c.apiKey != "" {
		params.Set("apikey", c.apiKey)
	}

	endpoint := fmt.Sprintf("%s?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("explorer API error (status %d): %s", resp.StatusCode, string(body))
	}

	var result struct {
		Status  string `json:"status"`
		Message string `json:"message"`
		Result  string `json:"result"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if result.Status != "1" {
		lowered := strings.ToLower(result.Result)
		switch {
		case strings.Contains(lowered, "not verified"):
			return nil, ErrNotVerified
		case strings.Contains(lowered, "rate limit"):
			return nil, ErrRateLimited
		default:
			return nil, fmt.Errorf("explorer error: %s", result.Result)
		}
	}

	parsed, err := abi.JSON(strings.NewReader(result.Result))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ABI: %w", err)
	}

	return &parsed, nil
}
