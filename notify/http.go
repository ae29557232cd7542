package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultExpoURL is the Expo push API endpoint.
const DefaultExpoURL = "https://exp.host/--/api/v2/push/send"

// ExpoGateway posts messages to the Expo push API.
type ExpoGateway struct {
	url    string
	client *http.Client
}

// NewExpoGateway creates a gateway posting to url, DefaultExpoURL if empty.
func NewExpoGateway(url string) *ExpoGateway {
	if url == "" {
		url = DefaultExpoURL
	}
	return &ExpoGateway{
		url: url,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (g *ExpoGateway) Send(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("expo: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("expo: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("expo: send: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("expo: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// RegistryAPI reads the tokens from the token registry HTTP API, using the
// admin key.
type RegistryAPI struct {
	url      string
	adminKey string
	client   *http.Client
}

// NewRegistryAPI creates a token source for the registry listing at url,
// e.g. "https://example.com/api/push-tokens".
func NewRegistryAPI(url, adminKey string) *RegistryAPI {
	return &RegistryAPI{
		url:      url,
		adminKey: adminKey,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (r *RegistryAPI) Tokens(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return nil, fmt.Errorf("registry: create request: %w", err)
	}
	req.Header.Set("X-Admin-Api-Key", r.adminKey)
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("registry: list: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("registry: unexpected status %d", resp.StatusCode)
	}

	var parsed struct {
		Tokens []struct {
			Token string `json:"token"`
		} `json:"tokens"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("registry: cannot parse tokens: %w", err)
	}
	ids := make([]string, 0, len(parsed.Tokens))
	for _, t := range parsed.Tokens {
		if t.Token != "" {
			ids = append(ids, t.Token)
		}
	}
	return ids, nil
}
