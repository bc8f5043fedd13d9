package counterstake

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prophetmarkets/liquidityd/internal/domain"
)

// Client is the REST client for a Counterstake-style bridge witness API.
// It provides the bridged token directory and advisory output estimates
// for cross-chain transfers.
type Client struct {
	baseURL    string
	dstNetwork string
	httpClient *http.Client
}

var (
	_ domain.BridgeEstimator = (*Client)(nil)
	_ domain.TokenRegistry   = (*Client)(nil)
)

// NewClient creates a new bridge API client.
//
// baseURL is the witness API root, e.g. "https://counterstake.org/api".
// Estimates are always quoted toward the engine's home network.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		dstNetwork: domain.HomeNetwork,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// EstimateOutput asks the bridge how much of the destination asset the
// given source deposit would land as, net of stake and assistant reward.
// The figure is advisory pricing only; the bridge does not reserve it.
func (c *Client) EstimateOutput(ctx context.Context, req domain.EstimateRequest) (float64, error) {
	body := estimateRequest{
		Amount:           req.Amount,
		SrcNetwork:       req.SrcNetwork,
		SrcAsset:         req.SrcAsset,
		DstNetwork:       c.dstNetwork,
		DstAsset:         req.DstAsset,
		RecipientAddress: req.Recipient,
	}

	data, err := c.doPost(ctx, "/estimate", body)
	if err != nil {
		return 0, fmt.Errorf("counterstake: estimate output: %w", err)
	}

	var out float64
	if err := json.Unmarshal(data, &out); err != nil {
		return 0, fmt.Errorf("counterstake: decode estimate: %w", err)
	}

	return out, nil
}

// TokensByNetwork returns the bridged assets usable as funding sources,
// grouped by the network they are spent from. Only bridges whose imported
// side lives on the home network qualify.
func (c *Client) TokensByNetwork(ctx context.Context) (map[string][]domain.BridgeToken, error) {
	data, err := c.doGet(ctx, "/bridges")
	if err != nil {
		return nil, fmt.Errorf("counterstake: list bridges: %w", err)
	}

	var bridges []APIBridge
	if err := json.Unmarshal(data, &bridges); err != nil {
		return nil, fmt.Errorf("counterstake: decode bridges: %w", err)
	}

	tokens := make(map[string][]domain.BridgeToken)
	for i := range bridges {
		b := &bridges[i]
		if b.ForeignNetwork != c.dstNetwork {
			continue
		}
		tokens[b.HomeNetwork] = append(tokens[b.HomeNetwork], b.ToDomainToken())
	}

	return tokens, nil
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

func (c *Client) doGet(ctx context.Context, path string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	return c.do(req)
}

func (c *Client) doPost(ctx context.Context, path string, payload any) (json.RawMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	return c.do(req)
}

// do executes the request and unwraps the witness API envelope.
func (c *Client) do(req *http.Request) (json.RawMessage, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("status %d: %w", resp.StatusCode, domain.ErrRateLimited)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(body, 200))
	}

	var env apiEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Status != "success" {
		if env.Error != "" {
			return nil, fmt.Errorf("api error: %s", env.Error)
		}
		return nil, fmt.Errorf("api status %q", env.Status)
	}

	return env.Data, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
