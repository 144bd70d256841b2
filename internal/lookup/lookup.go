// Package lookup resolves company registrations against the CNPJá public
// registry, with a read-through cache in front of the remote API.
package lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/linnemanlabs/sift/internal/remote"
	"github.com/linnemanlabs/sift/internal/triage"
)

const (
	defaultBaseURL = "https://api.cnpja.com"
	httpTimeout    = 15 * time.Second
)

// Client queries the registry API directly. Wrap it with Cached for
// read-through semantics.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// New creates a new registry client. baseURL defaults to the public
// endpoint when empty.
func New(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		client: &http.Client{
			Timeout:   httpTimeout,
			Transport: otelhttp.NewTransport(nil),
		},
	}
}

// Resolve fetches the registry record for a registration id.
func (c *Client) Resolve(ctx context.Context, registrationID string) (*triage.Company, error) {
	id := digitsOnly(registrationID)
	if id == "" {
		return nil, remote.Permanent(fmt.Errorf("lookup: empty registration id"))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/office/"+id, nil)
	if err != nil {
		return nil, fmt.Errorf("lookup: create request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("lookup: get: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 256<<10))
	if err != nil {
		return nil, fmt.Errorf("lookup: read response: %w", err)
	}

	switch {
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("lookup: status %d: %s", resp.StatusCode, trim(respBody))
	case resp.StatusCode == http.StatusNotFound:
		return nil, remote.Permanent(fmt.Errorf("lookup: registration %s not found", registrationID))
	case resp.StatusCode != http.StatusOK:
		return nil, remote.Permanent(fmt.Errorf("lookup: status %d: %s", resp.StatusCode, trim(respBody)))
	}

	var out struct {
		TaxID   string `json:"taxId"`
		Company struct {
			Name string `json:"name"`
		} `json:"company"`
		Status struct {
			Text string `json:"text"`
		} `json:"status"`
	}
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("lookup: decode response: %w", err)
	}

	return &triage.Company{
		RegistrationID: registrationID,
		LegalName:      out.Company.Name,
		Status:         out.Status.Text,
	}, nil
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func trim(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 256 {
		s = s[:256] + "..."
	}
	return s
}
