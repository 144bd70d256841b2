// Package pipefy moves cases and writes fields on a Pipefy board via its
// GraphQL API. It implements triage.Board.
package pipefy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/linnemanlabs/sift/internal/remote"
)

const (
	defaultAPIURL = "https://api.pipefy.com/graphql"
	httpTimeout   = 30 * time.Second
)

// Client calls the Pipefy GraphQL API.
type Client struct {
	apiURL string
	token  string
	client *http.Client
}

// New creates a new Pipefy client. apiURL defaults to the public endpoint
// when empty.
func New(apiURL, token string) *Client {
	if apiURL == "" {
		apiURL = defaultAPIURL
	}
	return &Client{
		apiURL: apiURL,
		token:  token,
		client: &http.Client{
			Timeout:   httpTimeout,
			Transport: otelhttp.NewTransport(nil),
		},
	}
}

// MoveCase moves the card to the destination phase. Moving a card already
// in the destination phase is a no-op, so repeated calls converge.
func (c *Client) MoveCase(ctx context.Context, caseID, destination string) error {
	current, err := c.currentPhase(ctx, caseID)
	if err != nil {
		return err
	}
	if current == destination {
		return nil
	}

	const mutation = `mutation ($cardId: ID!, $phaseId: ID!) {
		moveCardToPhase(input: {card_id: $cardId, destination_phase_id: $phaseId}) {
			card { id current_phase { id } }
		}
	}`
	var out struct {
		MoveCardToPhase struct {
			Card struct {
				ID string `json:"id"`
			} `json:"card"`
		} `json:"moveCardToPhase"`
	}
	return c.do(ctx, mutation, map[string]any{"cardId": caseID, "phaseId": destination}, &out)
}

// UpdateField overwrites a card field value.
func (c *Client) UpdateField(ctx context.Context, caseID, fieldID, value string) error {
	const mutation = `mutation ($cardId: ID!, $fieldId: ID!, $value: [UndefinedInput]) {
		updateCardField(input: {card_id: $cardId, field_id: $fieldId, new_value: $value}) {
			success
		}
	}`
	var out struct {
		UpdateCardField struct {
			Success bool `json:"success"`
		} `json:"updateCardField"`
	}
	if err := c.do(ctx, mutation, map[string]any{"cardId": caseID, "fieldId": fieldID, "value": value}, &out); err != nil {
		return err
	}
	if !out.UpdateCardField.Success {
		return remote.Permanent(fmt.Errorf("pipefy: field %s update rejected for card %s", fieldID, caseID))
	}
	return nil
}

func (c *Client) currentPhase(ctx context.Context, caseID string) (string, error) {
	const query = `query ($cardId: ID!) {
		card(id: $cardId) { id current_phase { id name } }
	}`
	var out struct {
		Card struct {
			ID           string `json:"id"`
			CurrentPhase struct {
				ID   string `json:"id"`
				Name string `json:"name"`
			} `json:"current_phase"`
		} `json:"card"`
	}
	if err := c.do(ctx, query, map[string]any{"cardId": caseID}, &out); err != nil {
		return "", err
	}
	if out.Card.ID == "" {
		return "", remote.Permanent(fmt.Errorf("pipefy: card %s not found", caseID))
	}
	return out.Card.CurrentPhase.ID, nil
}

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphqlError struct {
	Message string `json:"message"`
}

func (c *Client) do(ctx context.Context, query string, variables map[string]any, out any) error {
	body, err := json.Marshal(graphqlRequest{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("pipefy: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("pipefy: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("pipefy: post: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("pipefy: read response: %w", err)
	}

	switch {
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("pipefy: status %d: %s", resp.StatusCode, trim(respBody))
	case resp.StatusCode != http.StatusOK:
		return remote.Permanent(fmt.Errorf("pipefy: status %d: %s", resp.StatusCode, trim(respBody)))
	}

	var envelope struct {
		Data   json.RawMessage `json:"data"`
		Errors []graphqlError  `json:"errors"`
	}
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return fmt.Errorf("pipefy: decode response: %w", err)
	}
	if len(envelope.Errors) > 0 {
		msgs := make([]string, len(envelope.Errors))
		for i, e := range envelope.Errors {
			msgs[i] = e.Message
		}
		return remote.Permanent(fmt.Errorf("pipefy: graphql: %s", strings.Join(msgs, "; ")))
	}
	if out != nil {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("pipefy: decode data: %w", err)
		}
	}
	return nil
}

func trim(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 256 {
		s = s[:256] + "..."
	}
	return s
}
