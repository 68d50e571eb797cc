package provider

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/savannahpay/ms-go-payment-gateway/app/types"
)

const (
	MpesaName = "mpesa"

	mpesaSandboxBaseURL    = "https://sandbox.safaricom.co.ke"
	mpesaProductionBaseURL = "https://api.safaricom.co.ke"

	// Daraja signals "transaction still being processed" on the status query
	// with this error code and a 500 response.
	mpesaProcessingErrorCode = "500.001.1001"

	mpesaTimestampLayout = "20060102150405"
)

type MpesaConfig struct {
	ConsumerKey    string
	ConsumerSecret string
	ShortCode      string
	PassKey        string
	CallbackURL    string
	Environment    string

	// BaseURL overrides the environment-derived base URL. Used in tests.
	BaseURL string

	TokenSafetyMargin time.Duration
	HTTPTimeout       time.Duration
}

// MpesaProvider implements the STK push flow: Initiate triggers a prompt on
// the customer's handset and returns pending immediately; completion arrives
// later on the callback endpoint, or can be discovered via Verify.
type MpesaProvider struct {
	cfg    MpesaConfig
	client *http.Client
	tokens *tokenCache
}

func NewMpesaProvider(cfg MpesaConfig) *MpesaProvider {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = mpesaSandboxBaseURL
		if strings.EqualFold(cfg.Environment, "production") {
			cfg.BaseURL = mpesaProductionBaseURL
		}
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	p := &MpesaProvider{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
	p.tokens = newTokenCache(cfg.TokenSafetyMargin, p.exchangeToken)
	return p
}

func (p *MpesaProvider) Name() string {
	return MpesaName
}

func (p *MpesaProvider) Initiate(ctx context.Context, req *Request) (*Result, error) {
	phone := strings.TrimSpace(req.Metadata["phone_number"])
	if phone == "" {
		return failedResult(MpesaName, types.ErrorKindInvalidRequest, "metadata key phone_number is required"), nil
	}
	if !strings.EqualFold(req.Currency, "KES") {
		return failedResult(MpesaName, types.ErrorKindInvalidRequest, "mpesa supports KES only"), nil
	}

	token, err := p.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	// The password embeds the timestamp it was derived from; Daraja rejects
	// a reused pair, so both are regenerated per call.
	password, timestamp := p.password(time.Now())

	payload := map[string]any{
		"BusinessShortCode": p.cfg.ShortCode,
		"Password":          password,
		"Timestamp":         timestamp,
		"TransactionType":   "CustomerPayBillOnline",
		"Amount":            strconv.FormatInt(int64(math.Round(req.Amount)), 10),
		"PartyA":            phone,
		"PartyB":            p.cfg.ShortCode,
		"PhoneNumber":       phone,
		"CallBackURL":       p.cfg.CallbackURL,
		"AccountReference":  req.CustomerID,
		"TransactionDesc":   req.Description,
	}

	body, err := p.postJSON(ctx, "/mpesa/stkpush/v1/processrequest", token, payload)
	if err != nil {
		return nil, err
	}

	var resp struct {
		CheckoutRequestID   string `json:"CheckoutRequestID"`
		ResponseCode        string `json:"ResponseCode"`
		ResponseDescription string `json:"ResponseDescription"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("mpesa stk push: malformed response: %w", err)
	}
	if resp.ResponseCode != "0" {
		result := failedResult(MpesaName, types.ErrorKindProviderError, resp.ResponseDescription)
		result.RawPayload = body
		return result, nil
	}

	return &Result{
		Status:                types.PaymentStatusPending,
		ProviderTransactionID: resp.CheckoutRequestID,
		ProviderName:          MpesaName,
		RawPayload:            body,
	}, nil
}

func (p *MpesaProvider) Verify(ctx context.Context, providerTxID string) (*Result, error) {
	token, err := p.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	password, timestamp := p.password(time.Now())
	payload := map[string]any{
		"BusinessShortCode": p.cfg.ShortCode,
		"Password":          password,
		"Timestamp":         timestamp,
		"CheckoutRequestID": providerTxID,
	}

	body, err := p.postJSON(ctx, "/mpesa/stkpushquery/v1/query", token, payload)
	if err != nil {
		if pendingFromQueryError(err) {
			return &Result{
				Status:                types.PaymentStatusPending,
				ProviderTransactionID: providerTxID,
				ProviderName:          MpesaName,
			}, nil
		}
		return nil, err
	}

	var resp struct {
		ResultCode string `json:"ResultCode"`
		ResultDesc string `json:"ResultDesc"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("mpesa stk query: malformed response: %w", err)
	}

	result := &Result{
		ProviderTransactionID: providerTxID,
		ProviderName:          MpesaName,
		RawPayload:            body,
	}
	switch resp.ResultCode {
	case "0":
		result.Status = types.PaymentStatusCompleted
	case "":
		result.Status = types.PaymentStatusPending
	default:
		result.Status = types.PaymentStatusFailed
		result.ErrorKind = types.ErrorKindProviderError
		result.ErrorMessage = resp.ResultDesc
	}
	return result, nil
}

// ParseCallback normalizes the asynchronous STK callback body. ResultCode 0
// means the customer completed the prompt; anything else (cancel, timeout on
// the handset, insufficient funds) is a failure.
func (p *MpesaProvider) ParseCallback(payload []byte) (*CallbackEvent, error) {
	var body struct {
		Body struct {
			StkCallback struct {
				CheckoutRequestID string `json:"CheckoutRequestID"`
				ResultCode        int    `json:"ResultCode"`
				ResultDesc        string `json:"ResultDesc"`
			} `json:"stkCallback"`
		} `json:"Body"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, fmt.Errorf("mpesa callback: malformed payload: %w", err)
	}

	cb := body.Body.StkCallback
	if strings.TrimSpace(cb.CheckoutRequestID) == "" {
		return nil, fmt.Errorf("mpesa callback: missing CheckoutRequestID")
	}

	event := &CallbackEvent{
		ProviderTransactionID: cb.CheckoutRequestID,
		ResultCode:            strconv.Itoa(cb.ResultCode),
		Message:               cb.ResultDesc,
		Raw:                   payload,
	}
	if cb.ResultCode == 0 {
		event.Status = types.PaymentStatusCompleted
	} else {
		event.Status = types.PaymentStatusFailed
	}
	return event, nil
}

func (p *MpesaProvider) password(now time.Time) (password, timestamp string) {
	timestamp = now.Format(mpesaTimestampLayout)
	password = base64.StdEncoding.EncodeToString([]byte(p.cfg.ShortCode + p.cfg.PassKey + timestamp))
	return password, timestamp
}

func (p *MpesaProvider) exchangeToken(ctx context.Context) (string, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.BaseURL+"/oauth/v1/generate?grant_type=client_credentials", nil)
	if err != nil {
		return "", 0, err
	}
	req.SetBasicAuth(p.cfg.ConsumerKey, p.cfg.ConsumerSecret)

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
		return "", 0, fmt.Errorf("mpesa token request failed: status=%d body=%s", resp.StatusCode, string(body))
	}

	// Daraja returns expires_in as a JSON string; decode it leniently.
	var payload struct {
		AccessToken string          `json:"access_token"`
		ExpiresIn   json.RawMessage `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", 0, err
	}
	if strings.TrimSpace(payload.AccessToken) == "" {
		return "", 0, fmt.Errorf("mpesa token response missing access_token")
	}

	return payload.AccessToken, expirySeconds(payload.ExpiresIn), nil
}

func (p *MpesaProvider) postJSON(ctx context.Context, path, token string, payload map[string]any) ([]byte, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

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
		return nil, &mpesaAPIError{status: resp.StatusCode, body: body, path: path}
	}
	return body, nil
}

type mpesaAPIError struct {
	status int
	body   []byte
	path   string
}

func (e *mpesaAPIError) Error() string {
	return fmt.Sprintf("mpesa request failed: path=%s status=%d body=%s", e.path, e.status, string(e.body))
}

func pendingFromQueryError(err error) bool {
	apiErr, ok := err.(*mpesaAPIError)
	if !ok {
		return false
	}
	var payload struct {
		ErrorCode string `json:"errorCode"`
	}
	if json.Unmarshal(apiErr.body, &payload) != nil {
		return false
	}
	return payload.ErrorCode == mpesaProcessingErrorCode
}

func expirySeconds(raw json.RawMessage) time.Duration {
	trimmed := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	seconds, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil || seconds <= 0 {
		return time.Hour
	}
	return time.Duration(seconds) * time.Second
}
