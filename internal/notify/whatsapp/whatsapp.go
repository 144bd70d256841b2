// Package whatsapp sends case notifications over WhatsApp via the Twilio
// Messages API. It implements triage.Notifier.
package whatsapp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/linnemanlabs/sift/internal/remote"
	"github.com/linnemanlabs/sift/internal/triage"
)

const (
	defaultBaseURL = "https://api.twilio.com"
	httpTimeout    = 15 * time.Second
	maxMessageLen  = 1600 // Twilio body limit
)

// Notifier sends WhatsApp messages through a Twilio account.
type Notifier struct {
	baseURL    string
	accountSID string
	authToken  string
	from       string // sender in whatsapp:+E164 form
	client     *http.Client
}

// New creates a new WhatsApp notifier. baseURL defaults to the public
// Twilio endpoint when empty; from is normalized to the whatsapp: prefix.
func New(baseURL, accountSID, authToken, from string) *Notifier {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Notifier{
		baseURL:    baseURL,
		accountSID: accountSID,
		authToken:  authToken,
		from:       normalize(from),
		client: &http.Client{
			Timeout:   httpTimeout,
			Transport: otelhttp.NewTransport(nil),
		},
	}
}

// Send posts one message to the recipient and returns the Twilio message
// SID on acceptance. Delivery confirmation is asynchronous and not awaited.
func (n *Notifier) Send(ctx context.Context, to triage.Recipient, message string) (string, error) {
	if to.Phone == "" {
		return "", remote.Permanent(fmt.Errorf("whatsapp: recipient has no phone"))
	}
	if len(message) > maxMessageLen {
		message = message[:maxMessageLen-3] + "..."
	}

	form := url.Values{}
	form.Set("From", n.from)
	form.Set("To", normalize(to.Phone))
	form.Set("Body", message)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", n.baseURL, n.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("whatsapp: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(n.accountSID, n.authToken)

	resp, err := n.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("whatsapp: post: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", fmt.Errorf("whatsapp: read response: %w", err)
	}

	switch {
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return "", fmt.Errorf("whatsapp: status %d: %s", resp.StatusCode, trim(respBody))
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return "", remote.Permanent(fmt.Errorf("whatsapp: status %d: %s", resp.StatusCode, trim(respBody)))
	}

	var out struct {
		SID string `json:"sid"`
	}
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", fmt.Errorf("whatsapp: decode response: %w", err)
	}
	return out.SID, nil
}

// normalize ensures the whatsapp: channel prefix Twilio expects.
func normalize(phone string) string {
	if phone == "" || strings.HasPrefix(phone, "whatsapp:") {
		return phone
	}
	return "whatsapp:" + phone
}

func trim(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 256 {
		s = s[:256] + "..."
	}
	return s
}
