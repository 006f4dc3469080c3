package http

import (
	"net/http"

	echo "github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"github.com/smsflow/smsflow/internal/carrier"
	"github.com/smsflow/smsflow/internal/http/middleware"
	"github.com/smsflow/smsflow/internal/model"
	"github.com/smsflow/smsflow/internal/repository"
)

// statusLookupHandler serves the public status API: one sms_logs row keyed
// by provider message id.
func statusLookupHandler(logs repository.SmsLogsRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		accountID, ok := middleware.AccountIDFromCtx(c)
		if !ok || accountID <= 0 {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		}

		row, err := logs.GetByMessageID(c.Request().Context(), c.Param("message_id"))
		if err != nil {
			log.Errorf("status lookup failed: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
		}
		if row == nil || row.AccountID != accountID {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "not found"})
		}

		return c.JSON(http.StatusOK, row)
	}
}

// balanceHandler queries the Onbuka account balance through the signed
// balance endpoint.
func balanceHandler(carriers *carrier.Registry, settings repository.SettingsRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, ok := middleware.AccountIDFromCtx(c); !ok {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		}

		s, err := settings.Get(c.Request().Context())
		if err != nil {
			log.Errorf("load settings failed: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
		}
		if s == nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "provider settings not configured"})
		}

		onbuka, ok := carriers.Get(model.ProviderOnbuka).(*carrier.Onbuka)
		if !ok {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "balance unavailable"})
		}

		balance, gift, err := onbuka.Balance(c.Request().Context(), *s)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}

		return c.JSON(http.StatusOK, map[string]string{
			"balance": balance,
			"gift":    gift,
		})
	}
}
