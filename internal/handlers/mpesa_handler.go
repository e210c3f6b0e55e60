package handlers

import (
	"io"
	"log/slog"

	"tikoyangu/internal/services"
	"tikoyangu/internal/services/mpesa"
	"tikoyangu/monitoring"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
)

type MpesaHandler struct {
	app        *pocketbase.PocketBase
	reconciler *services.Reconciler
	logger     *slog.Logger
}

func NewMpesaHandler(app *pocketbase.PocketBase, reconciler *services.Reconciler, logger *slog.Logger) *MpesaHandler {
	return &MpesaHandler{
		app:        app,
		reconciler: reconciler,
		logger:     logger,
	}
}

// callbackAck is the acknowledgement the gateway expects. It is always
// sent with HTTP 200, including for payloads we cannot use, because any
// other reply makes the gateway retry a delivery we can never process.
var callbackAck = map[string]any{
	"ResultCode": 0,
	"ResultDesc": "Success",
}

// Callback receives the gateway's payment result webhook.
func (h *MpesaHandler) Callback(e *core.RequestEvent) error {
	body, err := io.ReadAll(e.Request.Body)
	if err != nil {
		h.logger.Error("callback body read failed", "error", err)
		return e.JSON(200, callbackAck)
	}

	cb, err := mpesa.ParseCallback(body)
	if err != nil {
		monitoring.TrackCallback("malformed")
		h.logger.Warn("malformed payment callback", "error", err, "body", string(body))
		return e.JSON(200, callbackAck)
	}

	if _, err := h.reconciler.Reconcile(e.Request.Context(), cb); err != nil {
		// Logged and swallowed. Unknown ids stay unknown no matter how
		// often the gateway retries; transient store errors are caught
		// by the stale pending sweep.
		h.logger.Error("callback reconciliation failed",
			"checkout_request_id", cb.CheckoutRequestID,
			"result_code", cb.ResultCode,
			"error", err)
	}

	return e.JSON(200, callbackAck)
}
