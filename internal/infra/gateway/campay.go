// File: internal/infra/gateway/campay.go
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"marketplace-forfait-service/internal/config"
	"marketplace-forfait-service/internal/domain"
	"marketplace-forfait-service/internal/domain/ports/adapter"
	"marketplace-forfait-service/internal/infra/metrics"
)

var _ adapter.PaymentGateway = (*CamPayClient)(nil)

// tokenRefreshSkew renews the cached bearer token this long before its actual
// expiry so an in-flight call never carries a token that dies mid-request.
const tokenRefreshSkew = 60 * time.Second

// CamPayClient implements adapter.PaymentGateway against the CamPay collection
// API. The bearer token is cached in memory behind a mutex and refreshed
// transparently; callers never see token plumbing.
type CamPayClient struct {
	baseURL  string
	username string
	password string
	client   *http.Client
	log      *zerolog.Logger

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

func NewCamPayClient(cfg config.GatewayConfig, logger *zerolog.Logger) *CamPayClient {
	gwLog := logger.With().Str("component", "CamPayClient").Logger()
	return &CamPayClient{
		baseURL:  cfg.BaseURL,
		username: cfg.AppUsername,
		password: cfg.AppPassword,
		client:   &http.Client{Timeout: cfg.Timeout},
		log:      &gwLog,
	}
}

func (c *CamPayClient) Name() string { return "campay" }

type tokenResponse struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"`
}

// getToken returns a valid bearer token, refreshing it only when the cached one
// is missing or about to expire.
func (c *CamPayClient) getToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExpiry.Add(-tokenRefreshSkew)) {
		return c.token, nil
	}

	body, _ := json.Marshal(map[string]string{
		"username": c.username,
		"password": c.password,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/token/", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		metrics.IncGatewayCall("token", "unavailable")
		return "", fmt.Errorf("%w: token: %v", domain.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 500 {
		metrics.IncGatewayCall("token", "unavailable")
		return "", fmt.Errorf("%w: token: http %d", domain.ErrGatewayUnavailable, resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.IncGatewayCall("token", "rejected")
		return "", fmt.Errorf("%w: token: http %d: %s", domain.ErrGatewayRejected, resp.StatusCode, string(raw))
	}

	var tr tokenResponse
	if err := json.Unmarshal(raw, &tr); err != nil {
		return "", fmt.Errorf("%w: token: decode: %v", domain.ErrGatewayUnavailable, err)
	}
	if tr.Token == "" {
		return "", fmt.Errorf("%w: token: empty token in response", domain.ErrGatewayRejected)
	}

	metrics.IncGatewayCall("token", "ok")
	c.token = tr.Token
	c.tokenExpiry = time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	return c.token, nil
}

type collectResponse struct {
	Reference string `json:"reference"`
	Status    string `json:"status"`
	Operator  string `json:"operator"`
	USSDCode  string `json:"ussd_code"`
}

func (c *CamPayClient) Collect(ctx context.Context, amount int64, currency, from, description, externalRef string) (*adapter.CollectResult, error) {
	payload := map[string]interface{}{
		"amount":             amount,
		"currency":           currency,
		"from":               from,
		"description":        description,
		"external_reference": externalRef,
	}
	raw, err := c.call(ctx, http.MethodPost, "/collect/", payload, "collect")
	if err != nil {
		return nil, err
	}

	var cr collectResponse
	if err := json.Unmarshal(raw, &cr); err != nil {
		return nil, fmt.Errorf("%w: collect: decode: %v", domain.ErrGatewayUnavailable, err)
	}
	if cr.Reference == "" {
		return nil, fmt.Errorf("%w: collect: no reference in response: %s", domain.ErrGatewayRejected, string(raw))
	}

	var snapshot map[string]interface{}
	_ = json.Unmarshal(raw, &snapshot)
	return &adapter.CollectResult{
		Reference: cr.Reference,
		RawStatus: cr.Status,
		Operator:  cr.Operator,
		USSDCode:  cr.USSDCode,
		Payload:   snapshot,
	}, nil
}

type transactionResponse struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

func (c *CamPayClient) QueryStatus(ctx context.Context, reference string) (*adapter.TransactionStatus, error) {
	raw, err := c.call(ctx, http.MethodGet, "/transaction/"+reference+"/", nil, "transaction")
	if err != nil {
		return nil, err
	}

	var tr transactionResponse
	if err := json.Unmarshal(raw, &tr); err != nil {
		return nil, fmt.Errorf("%w: transaction: decode: %v", domain.ErrGatewayUnavailable, err)
	}

	var snapshot map[string]interface{}
	_ = json.Unmarshal(raw, &snapshot)
	return &adapter.TransactionStatus{
		RawStatus: tr.Status,
		Reason:    tr.Reason,
		Payload:   snapshot,
	}, nil
}

// call performs one authenticated request and maps failures onto the domain
// error taxonomy: network/5xx -> ErrGatewayUnavailable, other non-2xx ->
// ErrGatewayRejected with the raw body preserved for support diagnosis.
func (c *CamPayClient) call(ctx context.Context, method, path string, payload interface{}, endpoint string) ([]byte, error) {
	token, err := c.getToken(ctx)
	if err != nil {
		return nil, err
	}

	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Token "+token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		metrics.IncGatewayCall(endpoint, "unavailable")
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrGatewayUnavailable, endpoint, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.IncGatewayCall(endpoint, "unavailable")
		return nil, fmt.Errorf("%w: %s: read body: %v", domain.ErrGatewayUnavailable, endpoint, err)
	}

	switch {
	case resp.StatusCode >= 500:
		metrics.IncGatewayCall(endpoint, "unavailable")
		return nil, fmt.Errorf("%w: %s: http %d", domain.ErrGatewayUnavailable, endpoint, resp.StatusCode)
	case resp.StatusCode == http.StatusUnauthorized:
		// Cached token revoked upstream; drop it so the next call re-authenticates.
		c.mu.Lock()
		c.token = ""
		c.mu.Unlock()
		metrics.IncGatewayCall(endpoint, "rejected")
		return nil, fmt.Errorf("%w: %s: http 401: %s", domain.ErrGatewayRejected, endpoint, string(raw))
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		metrics.IncGatewayCall(endpoint, "rejected")
		return nil, fmt.Errorf("%w: %s: http %d: %s", domain.ErrGatewayRejected, endpoint, resp.StatusCode, string(raw))
	}

	metrics.IncGatewayCall(endpoint, "ok")
	return raw, nil
}
