package mpesa

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type (
	Config struct {
		BaseURL        string `json:"baseUrl" mapstructure:"base_url"`
		ConsumerKey    string `json:"consumerKey" mapstructure:"consumer_key"`
		ConsumerSecret string `json:"consumerSecret" mapstructure:"consumer_secret"`
		ShortCode      string `json:"shortCode" mapstructure:"short_code"`
		Passkey        string `json:"passkey" mapstructure:"passkey"`
		CallbackURL    string `json:"callbackUrl" mapstructure:"callback_url"`
		Timeout        time.Duration
	}

	// Daraja talks to the M-Pesa Daraja gateway: push-payment prompts
	// (STK push) and transaction status queries. One instance is
	// constructed at startup and shared.
	Daraja struct {
		shortCode   string
		passkey     string
		callbackURL string

		client *Client
	}
)

// PushRequest carries one push-payment prompt to the buyer's phone.
type PushRequest struct {
	Amount           decimal.Decimal `json:"amount"`
	Phone            string          `json:"phone"`
	AccountReference string          `json:"account_reference"`
	Description      string          `json:"description"`
}

// PushResponse is the gateway's acceptance of a push request. The two
// ids correlate the later callback with this payment attempt.
type PushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
}

// QueryResponse is the gateway's answer to a status probe for an
// earlier push request.
type QueryResponse struct {
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResultCode          string `json:"ResultCode"`
	ResultDesc          string `json:"ResultDesc"`
}

// New returns a connected Daraja instance with a background token
// refresher bound to ctx.
func New(ctx context.Context, cfg *Config) (*Daraja, error) {
	client := newClient(ctx, &ClientConfig{
		BaseURL:        cfg.BaseURL,
		ConsumerKey:    cfg.ConsumerKey,
		ConsumerSecret: cfg.ConsumerSecret,
		Timeout:        cfg.Timeout,
	})

	// Connect to the gateway. Get access token.
	token, err := client.connect(ctx)
	if err != nil {
		return nil, err
	}
	client.setAccessToken(token)

	// Notify access token expired.
	go client.notifyAccessTokenExpired(ctx)

	return &Daraja{
		shortCode:   cfg.ShortCode,
		passkey:     cfg.Passkey,
		callbackURL: cfg.CallbackURL,
		client:      client,
	}, nil
}

// STKPush pushes a payment prompt to the buyer's phone. A nil error
// guarantees both correlation ids are present in the response.
func (d *Daraja) STKPush(ctx context.Context, r *PushRequest) (*PushResponse, error) {
	ts := timestamp(time.Now())

	body, err := json.Marshal(map[string]any{
		"BusinessShortCode": d.shortCode,
		"Password":          password(d.shortCode, d.passkey, ts),
		"Timestamp":         ts,
		"TransactionType":   "CustomerPayBillOnline",
		"Amount":            r.Amount,
		"PartyA":            NormalizePhone(r.Phone),
		"PartyB":            d.shortCode,
		"PhoneNumber":       NormalizePhone(r.Phone),
		"CallBackURL":       d.callbackURL,
		"AccountReference":  r.AccountReference,
		"TransactionDesc":   r.Description,
	})
	if err != nil {
		return nil, fmt.Errorf("stkPush: json.Marshal: %w", err)
	}

	var reply PushResponse
	if err := d.client.postJSON(ctx, "/mpesa/stkpush/v1/processrequest", body, &reply); err != nil {
		return nil, fmt.Errorf("stkPush: %w", err)
	}
	if reply.ResponseCode != "0" {
		return nil, fmt.Errorf("stkPush: reply.ResponseCode: %s, reply.ResponseDescription: %s",
			reply.ResponseCode, reply.ResponseDescription)
	}
	if reply.CheckoutRequestID == "" {
		return nil, fmt.Errorf("stkPush: gateway accepted push without a checkout request id")
	}

	return &reply, nil
}

// QueryStatus probes the gateway for the outcome of an earlier push.
// Read-only: callers must not transition tickets from its answer, the
// callback remains authoritative.
func (d *Daraja) QueryStatus(ctx context.Context, checkoutRequestID string) (*QueryResponse, error) {
	ts := timestamp(time.Now())

	body, err := json.Marshal(map[string]any{
		"BusinessShortCode": d.shortCode,
		"Password":          password(d.shortCode, d.passkey, ts),
		"Timestamp":         ts,
		"CheckoutRequestID": checkoutRequestID,
	})
	if err != nil {
		return nil, fmt.Errorf("queryStatus: json.Marshal: %w", err)
	}

	var reply QueryResponse
	if err := d.client.postJSON(ctx, "/mpesa/stkpushquery/v1/query", body, &reply); err != nil {
		return nil, fmt.Errorf("queryStatus: %w", err)
	}

	return &reply, nil
}
