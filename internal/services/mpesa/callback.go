package mpesa

import (
	"encoding/json"
	"errors"
	"fmt"
)

// SuccessResultCode is the gateway result code denoting a completed
// payment. Any other value is a failure or cancellation.
const SuccessResultCode = 0

// CallbackResult is the reconciliation-relevant part of a gateway
// webhook. Raw keeps the complete payload for audit; nothing else in it
// is needed to resolve a ticket.
type CallbackResult struct {
	MerchantRequestID string
	CheckoutRequestID string
	ResultCode        int
	ResultDesc        string
	Raw               json.RawMessage
}

// Success reports whether the callback confirms the payment.
func (r *CallbackResult) Success() bool {
	return r.ResultCode == SuccessResultCode
}

// stkCallbackEnvelope is the provider-defined webhook envelope. Only the
// correlation id and result code are required; CallbackMetadata and any
// extra fields arrive and are preserved via Raw without being modeled.
type stkCallbackEnvelope struct {
	Body struct {
		StkCallback struct {
			MerchantRequestID string `json:"MerchantRequestID"`
			CheckoutRequestID string `json:"CheckoutRequestID"`
			ResultCode        int    `json:"ResultCode"`
			ResultDesc        string `json:"ResultDesc"`
		} `json:"stkCallback"`
	} `json:"Body"`
}

// ParseCallback extracts the correlation id and result code from a raw
// webhook payload. It is deliberately tolerant: unknown fields are
// ignored, but a payload without a checkout request id is malformed.
func ParseCallback(raw []byte) (*CallbackResult, error) {
	var env stkCallbackEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("parseCallback: json.Unmarshal: %w", err)
	}

	cb := env.Body.StkCallback
	if cb.CheckoutRequestID == "" {
		return nil, errors.New("parseCallback: missing CheckoutRequestID")
	}

	return &CallbackResult{
		MerchantRequestID: cb.MerchantRequestID,
		CheckoutRequestID: cb.CheckoutRequestID,
		ResultCode:        cb.ResultCode,
		ResultDesc:        cb.ResultDesc,
		Raw:               json.RawMessage(raw),
	}, nil
}
