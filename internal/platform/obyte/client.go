package obyte

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/prophetmarkets/liquidityd/internal/domain"
)

// Client is the REST client for an Obyte hub's AA endpoints. It resolves
// market definitions and live state-var snapshots.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

var _ domain.MarketSource = (*Client)(nil)

// NewClient creates a new hub API client.
//
// baseURL is the hub API root, e.g. "https://obyte.org/api".
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// MarketParams fetches the immutable definition params of a market AA.
func (c *Client) MarketParams(ctx context.Context, address string) (domain.MarketParams, error) {
	path := fmt.Sprintf("/aa/%s", url.PathEscape(address))

	body, err := c.doGet(ctx, path)
	if err != nil {
		return domain.MarketParams{}, fmt.Errorf("obyte: get market %s: %w", address, err)
	}

	var market APIMarket
	if err := json.Unmarshal(body, &market); err != nil {
		return domain.MarketParams{}, fmt.Errorf("obyte: decode market: %w", err)
	}
	if market.Address == "" {
		market.Address = address
	}

	return market.ToDomainParams(), nil
}

// MarketState fetches the AA's current state vars and extracts the
// supply/reserve snapshot.
func (c *Client) MarketState(ctx context.Context, address string) (domain.MarketState, error) {
	vars, err := c.StateVars(ctx, address)
	if err != nil {
		return domain.MarketState{}, err
	}
	return vars.ToDomainState(), nil
}

// StateVars fetches the full raw state-var map of an AA. The websocket
// subscriber uses it as the base for diff merging.
func (c *Client) StateVars(ctx context.Context, address string) (StateVars, error) {
	path := fmt.Sprintf("/aa/%s/state", url.PathEscape(address))

	body, err := c.doGet(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("obyte: get state vars %s: %w", address, err)
	}

	var vars StateVars
	if err := json.Unmarshal(body, &vars); err != nil {
		return nil, fmt.Errorf("obyte: decode state vars: %w", err)
	}

	return vars, nil
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

func (c *Client) doGet(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, domain.ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	return body, nil
}
