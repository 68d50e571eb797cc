package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/savannahpay/ms-go-payment-gateway/app/types"
)

const (
	CoinbaseName = "coinbase"

	coinbaseBaseURL    = "https://api.commerce.coinbase.com"
	coinbaseAPIVersion = "2018-03-22"
)

type CoinbaseConfig struct {
	APIKey string

	// BaseURL overrides the default API host. Used in tests.
	BaseURL string

	HTTPTimeout time.Duration
}

// CoinbaseProvider implements the crypto-charge flow: Initiate creates a
// fixed-price charge and returns its hosted payment URL; Verify inspects the
// charge timeline. The timeline never carries an explicit failure entry in
// this integration, so a charge that never confirms stays pending here and
// is failed by the caller's pending-timeout policy instead.
type CoinbaseProvider struct {
	cfg    CoinbaseConfig
	client *http.Client
}

func NewCoinbaseProvider(cfg CoinbaseConfig) *CoinbaseProvider {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = coinbaseBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &CoinbaseProvider{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

func (p *CoinbaseProvider) Name() string {
	return CoinbaseName
}

func (p *CoinbaseProvider) Initiate(ctx context.Context, req *Request) (*Result, error) {
	charge := map[string]any{
		"name":         chargeName(req),
		"description":  req.Description,
		"pricing_type": "fixed_price",
		"local_price": map[string]string{
			"amount":   strconv.FormatFloat(req.Amount, 'f', 2, 64),
			"currency": strings.ToUpper(req.Currency),
		},
		"metadata": map[string]string{
			"customer_id": req.CustomerID,
		},
	}

	body, err := p.doJSON(ctx, http.MethodPost, "/charges", charge)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Data struct {
			Code      string `json:"code"`
			HostedURL string `json:"hosted_url"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("coinbase create charge: malformed response: %w", err)
	}
	if strings.TrimSpace(resp.Data.Code) == "" {
		return nil, fmt.Errorf("coinbase create charge: response missing charge code")
	}

	return &Result{
		Status:                types.PaymentStatusPending,
		ProviderTransactionID: resp.Data.Code,
		ProviderName:          CoinbaseName,
		CheckoutURL:           resp.Data.HostedURL,
		RawPayload:            body,
	}, nil
}

func (p *CoinbaseProvider) Verify(ctx context.Context, providerTxID string) (*Result, error) {
	body, err := p.doJSON(ctx, http.MethodGet, "/charges/"+url.PathEscape(providerTxID), nil)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Data struct {
			Code     string `json:"code"`
			Timeline []struct {
				Status string `json:"status"`
			} `json:"timeline"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("coinbase get charge: malformed response: %w", err)
	}

	result := &Result{
		Status:                types.PaymentStatusPending,
		ProviderTransactionID: providerTxID,
		ProviderName:          CoinbaseName,
		RawPayload:            body,
	}
	for _, entry := range resp.Data.Timeline {
		switch strings.ToUpper(entry.Status) {
		case "COMPLETED", "CONFIRMED", "RESOLVED":
			result.Status = types.PaymentStatusCompleted
			return result, nil
		}
	}
	return result, nil
}

func (p *CoinbaseProvider) doJSON(ctx context.Context, method, path string, payload any) ([]byte, error) {
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
	req.Header.Set("X-CC-Api-Key", p.cfg.APIKey)
	req.Header.Set("X-CC-Version", coinbaseAPIVersion)
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
		return nil, fmt.Errorf("coinbase request failed: path=%s status=%d body=%s", path, resp.StatusCode, string(body))
	}
	return body, nil
}

func chargeName(req *Request) string {
	name := strings.TrimSpace(req.Description)
	if name == "" {
		return "payment"
	}
	if len(name) > 100 {
		name = name[:100]
	}
	return name
}
