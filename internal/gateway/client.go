package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"donation-gateway/internal/config"
	"donation-gateway/internal/domain"
)

type Status string

const (
	StatusSuccessful Status = "SUCCESSFUL"
	StatusFailed     Status = "FAILED"
	StatusPending    Status = "PENDING"
)

type SubmitRequest struct {
	Reference string
	Amount    float64
	Method    domain.PaymentMethod
	Provider  string
	Customer  domain.CustomerInfo
}

type SubmitResult struct {
	GatewayTxnID string
	RedirectURL  string
}

type Client interface {
	// Authenticate obtains (or refreshes) the short-lived provider token.
	Authenticate(ctx context.Context) error
	// SubmitPayment submits a payment keyed by the caller's reference.
	SubmitPayment(ctx context.Context, req SubmitRequest) (*SubmitResult, error)
	// QueryStatus looks a payment up by the provider's own transaction id.
	QueryStatus(ctx context.Context, gatewayTxnID string) (Status, error)
	// QueryStatusByReference looks a payment up by the idempotency reference
	// it was submitted under. domain.ErrNotFound means the provider has no
	// record of it, which is how an ambiguous submission is resolved.
	QueryStatusByReference(ctx context.Context, reference string) (Status, error)
}

type httpClient struct {
	cfg    config.GatewayConfig
	client *http.Client

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

func NewClient(cfg config.GatewayConfig) Client {
	return &httpClient{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

type tokenResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
}

func (c *httpClient) Authenticate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		return nil
	}

	body, _ := json.Marshal(map[string]string{
		"api_key":    c.cfg.APIKey,
		"api_secret": c.cfg.APISecret,
	})

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/v1/auth/token"), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrGatewayAuth, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrGatewayAuth, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: token endpoint returned %d", domain.ErrGatewayAuth, resp.StatusCode)
	}

	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return fmt.Errorf("%w: parse token: %v", domain.ErrGatewayAuth, err)
	}
	if tok.Token == "" {
		return fmt.Errorf("%w: empty token", domain.ErrGatewayAuth)
	}

	c.token = tok.Token
	c.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	return nil
}

func (c *httpClient) bearer() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

type submitResponse struct {
	TransactionID string `json:"transaction_id"`
	PaymentURL    string `json:"payment_url"`
	Message       string `json:"message"`
}

func (c *httpClient) SubmitPayment(ctx context.Context, sub SubmitRequest) (*SubmitResult, error) {
	// The return URL carries the reference so the presentation layer can
	// resume the flow after the customer comes back from the provider.
	returnURL := fmt.Sprintf("%s/donate/return?reference=%s",
		strings.TrimRight(c.cfg.CallbackBaseURL, "/"), url.QueryEscape(sub.Reference))

	body, _ := json.Marshal(map[string]any{
		"reference": sub.Reference,
		"amount":    sub.Amount,
		"method":    sub.Method,
		"provider":  sub.Provider,
		"customer": map[string]string{
			"name":  sub.Customer.Name,
			"email": sub.Customer.Email,
			"phone": sub.Customer.Phone,
		},
		"return_url": returnURL,
	})

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/v1/payments"), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.bearer())

	resp, err := c.client.Do(req)
	if err != nil {
		// Timeout or transport failure: the payment may or may not have
		// reached the provider. Reported distinctly from a rejection.
		return nil, fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
		var out submitResponse
		if err := json.Unmarshal(respBody, &out); err != nil {
			return nil, fmt.Errorf("%w: parse submit response: %v", domain.ErrGatewayUnavailable, err)
		}
		if out.TransactionID == "" {
			return nil, fmt.Errorf("%w: submit response missing transaction id", domain.ErrGatewayUnavailable)
		}
		return &SubmitResult{GatewayTxnID: out.TransactionID, RedirectURL: out.PaymentURL}, nil

	case resp.StatusCode == http.StatusUnauthorized:
		return nil, fmt.Errorf("%w: submit returned 401", domain.ErrGatewayAuth)

	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		var out submitResponse
		_ = json.Unmarshal(respBody, &out)
		return nil, fmt.Errorf("%w: %s", domain.ErrGatewayRejected, out.Message)

	default:
		return nil, fmt.Errorf("%w: submit returned %d", domain.ErrGatewayUnavailable, resp.StatusCode)
	}
}

type statusResponse struct {
	Status string `json:"status"`
}

func (c *httpClient) QueryStatus(ctx context.Context, gatewayTxnID string) (Status, error) {
	return c.queryStatus(ctx, c.endpoint("/v1/payments/"+url.PathEscape(gatewayTxnID)))
}

func (c *httpClient) QueryStatusByReference(ctx context.Context, reference string) (Status, error) {
	return c.queryStatus(ctx, c.endpoint("/v1/payments/by-reference/"+url.PathEscape(reference)))
}

func (c *httpClient) queryStatus(ctx context.Context, endpoint string) (Status, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.bearer())

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var out statusResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return "", fmt.Errorf("%w: parse status response: %v", domain.ErrGatewayUnavailable, err)
		}
		return mapProviderStatus(out.Status), nil
	case http.StatusNotFound:
		return "", domain.ErrNotFound
	case http.StatusUnauthorized:
		return "", fmt.Errorf("%w: status query returned 401", domain.ErrGatewayAuth)
	default:
		return "", fmt.Errorf("%w: status query returned %d", domain.ErrGatewayUnavailable, resp.StatusCode)
	}
}

// mapProviderStatus normalizes the provider's status vocabulary onto the
// three-way result the reconciler acts on. Anything unrecognized stays
// pending rather than guessing at a terminal outcome.
func mapProviderStatus(s string) Status {
	switch strings.ToUpper(s) {
	case "SUCCESSFUL", "SUCCESS", "COMPLETED", "PAID":
		return StatusSuccessful
	case "FAILED", "DECLINED", "CANCELLED", "REJECTED":
		return StatusFailed
	default:
		return StatusPending
	}
}

func (c *httpClient) endpoint(path string) string {
	return strings.TrimRight(c.cfg.BaseURL, "/") + path
}
