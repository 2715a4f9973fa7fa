// Package paystack talks to the Paystack transaction API and verifies its
// webhook signatures.
package paystack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ucmarket/backend/internal/config"
)

const (
	EventChargeSuccess = "charge.success"
	StatusSuccess      = "success"
)

var ErrProvider = errors.New("payment provider error")

type Client struct {
	secretKey   string
	baseURL     string
	callbackURL string
	httpClient  *http.Client
}

func NewClient(cfg config.PaystackConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		secretKey:   cfg.SecretKey,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		callbackURL: cfg.CallbackURL,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

// InitializeRequest starts a hosted checkout. Amount is in kobo.
type InitializeRequest struct {
	Email       string         `json:"email"`
	Amount      int64          `json:"amount"`
	Reference   string         `json:"reference,omitempty"`
	CallbackURL string         `json:"callback_url,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

type InitializeResponse struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

// Charge is the transaction object carried by webhooks and verify calls.
type Charge struct {
	ID        int64           `json:"id"`
	Status    string          `json:"status"`
	Reference string          `json:"reference"`
	Amount    int64           `json:"amount"`
	Currency  string          `json:"currency"`
	PaidAt    string          `json:"paid_at"`
	Customer  Customer        `json:"customer"`
	Metadata  json.RawMessage `json:"metadata"`
}

type Customer struct {
	Email string `json:"email"`
}

// MetadataString reads a metadata key as a string. Paystack sends metadata
// back as given, or as an empty string when none was attached.
func (c Charge) MetadataString(key string) string {
	if len(c.Metadata) == 0 {
		return ""
	}
	var m map[string]any
	if err := json.Unmarshal(c.Metadata, &m); err != nil {
		return ""
	}
	switch v := m[key].(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%v", v)
	}
	return ""
}

// Event is a webhook delivery.
type Event struct {
	Event string `json:"event"`
	Data  Charge `json:"data"`
}

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// InitializeTransaction creates a checkout session and returns its URL.
func (c *Client) InitializeTransaction(ctx context.Context, req InitializeRequest) (*InitializeResponse, error) {
	if req.CallbackURL == "" {
		req.CallbackURL = c.callbackURL
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	var out InitializeResponse
	if err := c.do(ctx, http.MethodPost, "/transaction/initialize", body, &out); err != nil {
		return nil, err
	}
	if out.AuthorizationURL == "" || out.Reference == "" {
		return nil, fmt.Errorf("%w: incomplete initialize response", ErrProvider)
	}

	log.Printf("[PAYSTACK] Initialized transaction %s", out.Reference)
	return &out, nil
}

// VerifyTransaction fetches the provider's view of a transaction.
func (c *Client) VerifyTransaction(ctx context.Context, reference string) (*Charge, error) {
	var out Charge
	if err := c.do(ctx, http.MethodGet, "/transaction/verify/"+url.PathEscape(reference), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("[PAYSTACK] %s %s failed: %v", method, path, err)
		return fmt.Errorf("%w: %v", ErrProvider, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&env); err != nil {
		log.Printf("[PAYSTACK] Failed to decode %s response: %v", path, err)
		return fmt.Errorf("%w: decode response: %v", ErrProvider, err)
	}

	if resp.StatusCode != http.StatusOK || !env.Status {
		log.Printf("[PAYSTACK] %s returned status %d: %s", path, resp.StatusCode, env.Message)
		return fmt.Errorf("%w: status %d: %s", ErrProvider, resp.StatusCode, env.Message)
	}

	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%w: decode data: %v", ErrProvider, err)
	}
	return nil
}
