package http

import (
	"io"
	"net/http"

	echo "github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"github.com/smsflow/smsflow/internal/reconciler"
)

// deliveryWebhookHandler ingests carrier delivery receipts, pushed singly
// or as a batch array. Unknown message ids are accepted and ignored.
func deliveryWebhookHandler(rec *reconciler.Reconciler) echo.HandlerFunc {
	return func(c echo.Context) error {
		body, err := io.ReadAll(c.Request().Body)
		if err != nil || len(body) == 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid webhook payload"})
		}

		receipts, err := reconciler.ParseReceipts(body)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid webhook payload"})
		}

		processed, err := rec.Process(c.Request().Context(), receipts)
		if err != nil {
			log.Errorf("delivery reconciliation failed: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "reconciliation failed"})
		}

		return c.JSON(http.StatusOK, map[string]any{
			"success":   true,
			"processed": processed,
		})
	}
}
