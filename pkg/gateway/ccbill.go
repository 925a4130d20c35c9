package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const ccbillName = "ccbill"

// CCBillDriver talks to the CCBill REST gateway. It implements Driver,
// SubscriptionDriver and TokenInspector.
type CCBillDriver struct {
	BaseURL   string
	AccountID string
	AppKey    string
	client    *http.Client
}

func NewCCBillDriver(baseURL, accountID, appKey string) *CCBillDriver {
	if baseURL == "" {
		baseURL = "https://api.ccbill.com"
	}
	return &CCBillDriver{
		BaseURL:   baseURL,
		AccountID: accountID,
		AppKey:    appKey,
		client:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (d *CCBillDriver) Name() string { return ccbillName }

// post sends a JSON request and decodes the JSON response into a map.
// Transport failures surface as ErrGatewayUnavailable; 4xx/5xx application
// responses surface as RejectedError with the decoded body attached.
func (d *CCBillDriver) post(ctx context.Context, path string, body map[string]any) (map[string]any, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+d.AppKey)
	req.Header.Set("X-Account-Id", d.AccountID)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, Unavailable(ccbillName, err)
	}
	defer resp.Body.Close()

	raw := map[string]any{}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, Unavailable(ccbillName, err)
	}
	if len(data) > 0 {
		_ = json.Unmarshal(data, &raw)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		msg := fmt.Sprintf("http %d", resp.StatusCode)
		if m, ok := raw["message"].(string); ok && m != "" {
			msg = m
		}
		return nil, &RejectedError{Provider: ccbillName, Message: msg, Raw: raw}
	}
	return raw, nil
}

func str(raw map[string]any, key string) string {
	if v, ok := raw[key].(string); ok {
		return v
	}
	return ""
}

func cents(raw map[string]any, key string) int64 {
	switch v := raw[key].(type) {
	case float64:
		return int64(v)
	case json.Number:
		n, _ := v.Int64()
		return n
	}
	return 0
}

func (d *CCBillDriver) CreateIntent(ctx context.Context, req CreateIntentRequest) (IntentResponse, error) {
	raw, err := d.post(ctx, "/transactions/intents", map[string]any{
		"account_id":  d.AccountID,
		"amount":      req.AmountCents,
		"currency":    req.Currency,
		"description": req.Description,
		"token":       req.MethodToken,
		"metadata":    req.Metadata,
	})
	if err != nil {
		return IntentResponse{}, err
	}
	return IntentResponse{
		Provider:         ccbillName,
		ProviderIntentID: str(raw, "intent_id"),
		ClientSecret:     str(raw, "client_secret"),
		Status:           str(raw, "status"),
		Raw:              raw,
	}, nil
}

func (d *CCBillDriver) ConfirmIntent(ctx context.Context, providerIntentID string, opts map[string]any) (StatusResponse, error) {
	raw, err := d.post(ctx, "/transactions/intents/"+providerIntentID+"/confirm", opts)
	if err != nil {
		return StatusResponse{}, err
	}
	return StatusResponse{Status: str(raw, "status"), Raw: raw}, nil
}

func (d *CCBillDriver) CancelIntent(ctx context.Context, providerIntentID string, opts map[string]any) (StatusResponse, error) {
	raw, err := d.post(ctx, "/transactions/intents/"+providerIntentID+"/cancel", opts)
	if err != nil {
		return StatusResponse{}, err
	}
	return StatusResponse{Status: str(raw, "status"), Raw: raw}, nil
}

func (d *CCBillDriver) CapturePayment(ctx context.Context, req CaptureRequest) (CaptureResponse, error) {
	raw, err := d.post(ctx, "/transactions/intents/"+req.ProviderIntentID+"/capture", map[string]any{
		"amount":   req.AmountCents,
		"currency": req.Currency,
		"token":    req.MethodToken,
	})
	if err != nil {
		return CaptureResponse{}, err
	}
	amount := cents(raw, "amount")
	if amount == 0 {
		amount = req.AmountCents
	}
	return CaptureResponse{
		ProviderPaymentID: str(raw, "transaction_id"),
		AmountCents:       amount,
		Status:            str(raw, "status"),
		Raw:               raw,
	}, nil
}

func (d *CCBillDriver) RefundPayment(ctx context.Context, req RefundRequest) (RefundResponse, error) {
	raw, err := d.post(ctx, "/transactions/"+req.ProviderPaymentID+"/refund", map[string]any{
		"amount":   req.AmountCents,
		"currency": req.Currency,
		"reason":   req.Reason,
	})
	if err != nil {
		return RefundResponse{}, err
	}
	amount := cents(raw, "amount")
	if amount == 0 {
		amount = req.AmountCents
	}
	return RefundResponse{
		ProviderRefundID: str(raw, "refund_id"),
		AmountCents:      amount,
		Status:           str(raw, "status"),
		Raw:              raw,
	}, nil
}

func (d *CCBillDriver) CreateSubscription(ctx context.Context, req CreateSubscriptionRequest) (SubscriptionResponse, error) {
	raw, err := d.post(ctx, "/subscriptions", map[string]any{
		"account_id":     d.AccountID,
		"amount":         req.AmountCents,
		"currency":       req.Currency,
		"interval":       req.Interval,
		"interval_count": req.IntervalCount,
		"trial_days":     req.TrialDays,
		"token":          req.MethodToken,
	})
	if err != nil {
		return SubscriptionResponse{}, err
	}
	return SubscriptionResponse{
		Provider:               ccbillName,
		ProviderSubscriptionID: str(raw, "subscription_id"),
		Status:                 str(raw, "status"),
		Raw:                    raw,
	}, nil
}

func (d *CCBillDriver) CancelSubscription(ctx context.Context, providerSubscriptionID string, immediate bool) error {
	_, err := d.post(ctx, "/subscriptions/"+providerSubscriptionID+"/cancel", map[string]any{
		"immediate": immediate,
	})
	return err
}

func (d *CCBillDriver) ResumeSubscription(ctx context.Context, providerSubscriptionID string) error {
	_, err := d.post(ctx, "/subscriptions/"+providerSubscriptionID+"/resume", nil)
	return err
}

func (d *CCBillDriver) SwapSubscription(ctx context.Context, providerSubscriptionID string, req SwapSubscriptionRequest) (SubscriptionResponse, error) {
	raw, err := d.post(ctx, "/subscriptions/"+providerSubscriptionID+"/swap", map[string]any{
		"amount":         req.AmountCents,
		"currency":       req.Currency,
		"interval":       req.Interval,
		"interval_count": req.IntervalCount,
		"plan":           req.PlanRef,
	})
	if err != nil {
		return SubscriptionResponse{}, err
	}
	return SubscriptionResponse{
		Provider:               ccbillName,
		ProviderSubscriptionID: str(raw, "subscription_id"),
		Status:                 str(raw, "status"),
		Raw:                    raw,
	}, nil
}

func (d *CCBillDriver) TokenDetails(ctx context.Context, providerTokenID string) (CardDetails, error) {
	raw, err := d.post(ctx, "/payment-tokens/"+providerTokenID, nil)
	if err != nil {
		return CardDetails{}, err
	}
	return CardDetails{
		Brand:       str(raw, "card_brand"),
		LastFour:    str(raw, "last_four"),
		ExpMonth:    int(cents(raw, "exp_month")),
		ExpYear:     int(cents(raw, "exp_year")),
		Fingerprint: str(raw, "fingerprint"),
	}, nil
}
