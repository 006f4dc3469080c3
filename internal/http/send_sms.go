package http

import (
	"errors"
	"net/http"
	"strings"

	echo "github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"github.com/smsflow/smsflow/internal/gateway"
	"github.com/smsflow/smsflow/internal/http/middleware"
	"github.com/smsflow/smsflow/internal/model"
	"github.com/smsflow/smsflow/internal/util"
)

type sendReq struct {
	To         string `json:"to"` // one phone number, or comma-joined list
	Message    string `json:"message"`
	Provider   string `json:"provider"`
	SenderID   string `json:"sender_id"`
	CampaignID string `json:"campaign_id"`
}

type sendResp struct {
	Success    bool     `json:"success"`
	MessageIDs []string `json:"message_ids"`
	SentCount  int      `json:"sent_count"`
	Error      string   `json:"error,omitempty"`
}

func sendSMSHandler(gw *gateway.Gateway) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req sendReq
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}

		dests := util.SplitDestinations(req.To)
		req.Message = strings.TrimSpace(req.Message)
		if len(dests) == 0 || req.Message == "" {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}

		provider, ok := model.ParseProvider(req.Provider)
		if !ok {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "unknown provider"})
		}

		accountID, ok := middleware.AccountIDFromCtx(c)
		if !ok || accountID <= 0 {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		}

		res, err := gw.Send(c.Request().Context(), gateway.SendRequest{
			AccountID:  accountID,
			To:         dests,
			Message:    req.Message,
			Provider:   provider,
			SenderID:   strings.TrimSpace(req.SenderID),
			CampaignID: strings.TrimSpace(req.CampaignID),
		})
		if err != nil {
			if isConfigError(err) {
				return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
			}
			log.Errorf("send failed: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "send failed"})
		}

		return c.JSON(http.StatusOK, sendResp{
			Success:    res.Success,
			MessageIDs: res.MessageIDs,
			SentCount:  res.SentCount,
			Error:      res.Err,
		})
	}
}

func isConfigError(err error) bool {
	return errors.Is(err, gateway.ErrNoDestinations) ||
		errors.Is(err, gateway.ErrSettingsNotConfigured) ||
		errors.Is(err, gateway.ErrCredentialsMissing) ||
		errors.Is(err, gateway.ErrUnknownProvider)
}
