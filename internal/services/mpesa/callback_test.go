package mpesa

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const successPayload = `{
	"Body": {
		"stkCallback": {
			"MerchantRequestID": "29115-34620561-1",
			"CheckoutRequestID": "ws_CO_191220191020363925",
			"ResultCode": 0,
			"ResultDesc": "The service request is processed successfully.",
			"CallbackMetadata": {
				"Item": [
					{"Name": "Amount", "Value": 1500.00},
					{"Name": "MpesaReceiptNumber", "Value": "NLJ7RT61SV"},
					{"Name": "PhoneNumber", "Value": 254712345678}
				]
			}
		}
	}
}`

const cancelPayload = `{
	"Body": {
		"stkCallback": {
			"MerchantRequestID": "29115-34620561-1",
			"CheckoutRequestID": "ws_CO_191220191020363925",
			"ResultCode": 1032,
			"ResultDesc": "Request cancelled by user"
		}
	}
}`

func TestParseCallbackSuccess(t *testing.T) {
	cb, err := ParseCallback([]byte(successPayload))
	require.NoError(t, err)

	assert.Equal(t, "ws_CO_191220191020363925", cb.CheckoutRequestID)
	assert.Equal(t, "29115-34620561-1", cb.MerchantRequestID)
	assert.Equal(t, 0, cb.ResultCode)
	assert.True(t, cb.Success())
	assert.JSONEq(t, successPayload, string(cb.Raw))
}

func TestParseCallbackCancellation(t *testing.T) {
	cb, err := ParseCallback([]byte(cancelPayload))
	require.NoError(t, err)

	assert.Equal(t, 1032, cb.ResultCode)
	assert.False(t, cb.Success())
}

func TestParseCallbackMalformed(t *testing.T) {
	_, err := ParseCallback([]byte(`not json`))
	assert.Error(t, err)
}

func TestParseCallbackMissingCheckoutID(t *testing.T) {
	_, err := ParseCallback([]byte(`{"Body":{"stkCallback":{"ResultCode":0}}}`))
	assert.Error(t, err)
}

func TestParseCallbackIgnoresUnknownFields(t *testing.T) {
	cb, err := ParseCallback([]byte(`{
		"Body": {
			"stkCallback": {
				"CheckoutRequestID": "ws_CO_1",
				"ResultCode": 0,
				"SomethingNew": {"nested": true}
			}
		},
		"Extra": "field"
	}`))
	require.NoError(t, err)
	assert.True(t, cb.Success())
}
