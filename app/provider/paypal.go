package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/savannahpay/ms-go-payment-gateway/app/types"
)

const (
	PayPalName = "paypal"

	paypalSandboxBaseURL    = "https://api-m.sandbox.paypal.com"
	paypalProductionBaseURL = "https://api-m.paypal.com"
)

type PayPalConfig struct {
	ClientID     string
	ClientSecret string
	Environment  string

	// BaseURL overrides the environment-derived base URL. Used in tests.
	BaseURL string

	ReturnURL string
	CancelURL string

	TokenSafetyMargin time.Duration
	HTTPTimeout       time.Duration
}

// PayPalProvider implements the hosted-checkout flow: Initiate creates an
// order and hands back an approval link for the caller to redirect the user
// to; completion is discovered later via Verify against the order-status
// endpoint.
type PayPalProvider struct {
	cfg    PayPalConfig
	client *http.Client
	tokens *tokenCache
}

func NewPayPalProvider(cfg PayPalConfig) *PayPalProvider {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = paypalSandboxBaseURL
		if strings.EqualFold(cfg.Environment, "production") {
			cfg.BaseURL = paypalProductionBaseURL
		}
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	p := &PayPalProvider{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
	p.tokens = newTokenCache(cfg.TokenSafetyMargin, p.exchangeToken)
	return p
}

func (p *PayPalProvider) Name() string {
	return PayPalName
}

func (p *PayPalProvider) Initiate(ctx context.Context, req *Request) (*Result, error) {
	token, err := p.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	order := map[string]any{
		"intent": "CAPTURE",
		"purchase_units": []map[string]any{
			{
				"amount": map[string]string{
					"currency_code": strings.ToUpper(req.Currency),
					"value":         fmt.Sprintf("%.2f", req.Amount),
				},
				"description": req.Description,
				"custom_id":   req.CustomerID,
			},
		},
	}
	if p.cfg.ReturnURL != "" || p.cfg.CancelURL != "" {
		order["application_context"] = map[string]string{
			"return_url": p.cfg.ReturnURL,
			"cancel_url": p.cfg.CancelURL,
		}
	}

	body, err := p.doJSON(ctx, http.MethodPost, "/v2/checkout/orders", token, order)
	if err != nil {
		return nil, err
	}

	var resp struct {
		ID     string `json:"id"`
		Status string `json:"status"`
		Links  []struct {
			Href string `json:"href"`
			Rel  string `json:"rel"`
		} `json:"links"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("paypal create order: malformed response: %w", err)
	}
	if strings.TrimSpace(resp.ID) == "" {
		return nil, fmt.Errorf("paypal create order: response missing order id")
	}

	result := &Result{
		Status:                types.PaymentStatusPending,
		ProviderTransactionID: resp.ID,
		ProviderName:          PayPalName,
		RawPayload:            body,
	}
	for _, link := range resp.Links {
		if link.Rel == "approve" {
			result.CheckoutURL = link.Href
			break
		}
	}
	return result, nil
}

func (p *PayPalProvider) Verify(ctx context.Context, providerTxID string) (*Result, error) {
	token, err := p.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	body, err := p.doJSON(ctx, http.MethodGet, "/v2/checkout/orders/"+url.PathEscape(providerTxID), token, nil)
	if err != nil {
		return nil, err
	}

	var resp struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("paypal get order: malformed response: %w", err)
	}

	result := &Result{
		ProviderTransactionID: providerTxID,
		ProviderName:          PayPalName,
		RawPayload:            body,
	}
	switch strings.ToUpper(resp.Status) {
	case "CREATED", "SAVED", "PAYER_ACTION_REQUIRED", "PENDING":
		result.Status = types.PaymentStatusPending
	case "APPROVED", "COMPLETED", "CAPTURED":
		result.Status = types.PaymentStatusCompleted
	default:
		// Voided, expired, declined and anything unrecognized.
		result.Status = types.PaymentStatusFailed
		result.ErrorKind = types.ErrorKindProviderError
		result.ErrorMessage = fmt.Sprintf("paypal order status %q", resp.Status)
	}
	return result, nil
}

func (p *PayPalProvider) exchangeToken(ctx context.Context) (string, time.Duration, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", 0, err
	}
	req.SetBasicAuth(p.cfg.ClientID, p.cfg.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", 0, err
	}
	if resp.StatusCode >= 400 {
		return "", 0, fmt.Errorf("paypal token request failed: status=%d body=%s", resp.StatusCode, string(body))
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", 0, err
	}
	if strings.TrimSpace(payload.AccessToken) == "" {
		return "", 0, fmt.Errorf("paypal token response missing access_token")
	}

	ttl := time.Duration(payload.ExpiresIn) * time.Second
	if ttl <= 0 {
		ttl = time.Hour
	}
	return payload.AccessToken, ttl, nil
}

func (p *PayPalProvider) doJSON(ctx context.Context, method, path, token string, payload any) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.cfg.BaseURL+path, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("paypal request failed: path=%s status=%d body=%s", path, resp.StatusCode, string(body))
	}
	return body, nil
}
