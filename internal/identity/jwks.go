// Package identity probes configured OIDC providers by fetching their
// published key sets. Token verification is out of scope here; a provider
// is considered reachable when its JWKS document parses and is non-empty.
package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gantryio/gantry/internal/config"
)

const fetchTimeout = 10 * time.Second

// Client fetches JWKS documents over HTTP.
type Client struct {
	httpClient *http.Client
}

// NewClient creates a JWKS client. A nil httpClient selects a default with
// a bounded timeout.
func NewClient(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: fetchTimeout}
	}
	return &Client{httpClient: httpClient}
}

type keySet struct {
	Keys []json.RawMessage `json:"keys"`
}

// FetchKeySet retrieves the provider's JWKS document and verifies it holds
// at least one key. The JWKS URL falls back to the issuer's conventional
// well-known location when not configured explicitly.
func (c *Client) FetchKeySet(ctx context.Context, p config.Provider) error {
	url := p.JWKSURL
	if url == "" {
		url = p.Issuer + "/.well-known/jwks.json"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("fetch jwks: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetch jwks: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch jwks: %s returned %d", url, resp.StatusCode)
	}

	var ks keySet
	if err := json.NewDecoder(resp.Body).Decode(&ks); err != nil {
		return fmt.Errorf("fetch jwks: decode %s: %w", url, err)
	}
	if len(ks.Keys) == 0 {
		return fmt.Errorf("fetch jwks: %s returned an empty key set", url)
	}
	return nil
}
