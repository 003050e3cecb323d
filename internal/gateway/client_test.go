package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"donation-gateway/internal/config"
	"donation-gateway/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(baseURL string) config.GatewayConfig {
	return config.GatewayConfig{
		BaseURL:         baseURL,
		APIKey:          "key",
		APISecret:       "secret",
		CallbackBaseURL: "https://donate.example.test",
		Timeout:         2 * time.Second,
	}
}

func tokenHandler(calls *atomic.Int32) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var creds map[string]string
		_ = json.NewDecoder(r.Body).Decode(&creds)
		if creds["api_key"] != "key" || creds["api_secret"] != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"token": "tok-123", "expires_in": 3600})
	}
}

func TestAuthenticateCachesToken(t *testing.T) {
	var tokenCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/auth/token", r.URL.Path)
		tokenHandler(&tokenCalls)(w, r)
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL))
	require.NoError(t, c.Authenticate(context.Background()))
	require.NoError(t, c.Authenticate(context.Background()))
	assert.Equal(t, int32(1), tokenCalls.Load(), "token must be cached until expiry")
}

func TestAuthenticateFailureIsAuthError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL))
	err := c.Authenticate(context.Background())
	require.ErrorIs(t, err, domain.ErrGatewayAuth)
}

func TestSubmitPaymentSuccess(t *testing.T) {
	var tokenCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/auth/token", tokenHandler(&tokenCalls))
	mux.HandleFunc("/v1/payments", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "DON-1", body["reference"])
		assert.Equal(t, 10.0, body["amount"])
		assert.Contains(t, body["return_url"], "reference=DON-1",
			"return URL must carry the reference so the flow can resume")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"transaction_id": "gtx-77",
			"payment_url":    "https://pay.example.test/checkout/DON-1",
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewClient(testConfig(srv.URL))
	require.NoError(t, c.Authenticate(context.Background()))

	result, err := c.SubmitPayment(context.Background(), SubmitRequest{
		Reference: "DON-1",
		Amount:    10,
		Method:    domain.MethodMobileMoney,
		Provider:  "mtn",
		Customer:  domain.CustomerInfo{Name: "Ada", Phone: "670000001"},
	})
	require.NoError(t, err)
	assert.Equal(t, "gtx-77", result.GatewayTxnID)
	assert.Equal(t, "https://pay.example.test/checkout/DON-1", result.RedirectURL)
}

func TestSubmitPaymentRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "insufficient funds"})
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL))
	_, err := c.SubmitPayment(context.Background(), SubmitRequest{Reference: "DON-2", Amount: 10})
	require.ErrorIs(t, err, domain.ErrGatewayRejected)
	assert.Contains(t, err.Error(), "insufficient funds")
}

func TestSubmitPaymentTimeoutIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.Timeout = 50 * time.Millisecond
	c := NewClient(cfg)

	_, err := c.SubmitPayment(context.Background(), SubmitRequest{Reference: "DON-3", Amount: 10})
	require.ErrorIs(t, err, domain.ErrGatewayUnavailable,
		"a timeout is ambiguous, never a rejection")
}

func TestSubmitPaymentServerErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL))
	_, err := c.SubmitPayment(context.Background(), SubmitRequest{Reference: "DON-4", Amount: 10})
	require.ErrorIs(t, err, domain.ErrGatewayUnavailable)
}

func TestQueryStatusMapsProviderVocabulary(t *testing.T) {
	tests := []struct {
		provider string
		want     Status
	}{
		{"SUCCESSFUL", StatusSuccessful},
		{"completed", StatusSuccessful},
		{"PAID", StatusSuccessful},
		{"FAILED", StatusFailed},
		{"declined", StatusFailed},
		{"CANCELLED", StatusFailed},
		{"PENDING", StatusPending},
		{"processing", StatusPending},
	}

	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/v1/payments/gtx-1", r.URL.Path)
				_ = json.NewEncoder(w).Encode(map[string]string{"status": tt.provider})
			}))
			defer srv.Close()

			c := NewClient(testConfig(srv.URL))
			status, err := c.QueryStatus(context.Background(), "gtx-1")
			require.NoError(t, err)
			assert.Equal(t, tt.want, status)
		})
	}
}

func TestQueryStatusByReferenceNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/payments/by-reference/DON-9", r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL))
	_, err := c.QueryStatusByReference(context.Background(), "DON-9")
	require.ErrorIs(t, err, domain.ErrNotFound,
		"no provider record is how an ambiguous submission stays resolvable")
}
