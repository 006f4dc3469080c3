package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	echo "github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"github.com/smsflow/smsflow/internal/campaign"
	"github.com/smsflow/smsflow/internal/http/middleware"
	"github.com/smsflow/smsflow/internal/model"
	"github.com/smsflow/smsflow/internal/util"
)

type createCampaignReq struct {
	Name     string   `json:"name"`
	Message  string   `json:"message"`
	Provider string   `json:"provider"`
	SenderID string   `json:"sender_id"`
	Phones   []string `json:"phones"`
}

func createCampaignHandler(svc *campaign.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		accountID, ok := middleware.AccountIDFromCtx(c)
		if !ok || accountID <= 0 {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		}

		var req createCampaignReq
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}

		req.Name = strings.TrimSpace(req.Name)
		req.Message = strings.TrimSpace(req.Message)
		if req.Name == "" || req.Message == "" {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "name and message required"})
		}

		provider, ok := model.ParseProvider(req.Provider)
		if !ok {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "unknown provider"})
		}

		phones := make([]string, 0, len(req.Phones))
		for _, p := range req.Phones {
			if n := util.NormalizePhone(p); n != "" {
				phones = append(phones, n)
			}
		}
		if len(phones) == 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "no recipients"})
		}

		created, err := svc.Create(c.Request().Context(), campaign.CreateParams{
			AccountID: accountID,
			Name:      req.Name,
			Message:   req.Message,
			SenderID:  strings.TrimSpace(req.SenderID),
			Provider:  provider,
			Phones:    phones,
		})
		if err != nil {
			log.Errorf("create campaign failed: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
		}

		return c.JSON(http.StatusCreated, created)
	}
}

func listCampaignsHandler(svc *campaign.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		accountID, ok := middleware.AccountIDFromCtx(c)
		if !ok || accountID <= 0 {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		}

		limit, offset := 50, 0
		if v := c.QueryParam("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
				limit = n
			}
		}
		if v := c.QueryParam("offset"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n >= 0 {
				offset = n
			}
		}

		campaigns, err := svc.List(c.Request().Context(), accountID, limit, offset)
		if err != nil {
			log.Errorf("list campaigns failed: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
		}

		return c.JSON(http.StatusOK, map[string]any{
			"count":   len(campaigns),
			"results": campaigns,
		})
	}
}

func getCampaignHandler(svc *campaign.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		accountID, ok := middleware.AccountIDFromCtx(c)
		if !ok || accountID <= 0 {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		}

		cmp, err := svc.Get(c.Request().Context(), c.Param("id"))
		if err != nil {
			log.Errorf("get campaign failed: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
		}
		if cmp == nil || cmp.AccountID != accountID {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "not found"})
		}

		return c.JSON(http.StatusOK, cmp)
	}
}

// campaignActionHandler serves the explicit state-machine actions:
// start, pause and resume.
func campaignActionHandler(svc *campaign.Service, action func(*campaign.Service) func(c echo.Context, id string) error) echo.HandlerFunc {
	apply := action(svc)
	return func(c echo.Context) error {
		accountID, ok := middleware.AccountIDFromCtx(c)
		if !ok || accountID <= 0 {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		}

		id := c.Param("id")
		if err := apply(c, id); err != nil {
			switch {
			case errors.Is(err, campaign.ErrNotFound):
				return c.JSON(http.StatusNotFound, map[string]string{"error": "not found"})
			case errors.Is(err, campaign.ErrInvalidTransition):
				return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
			default:
				log.Errorf("campaign action failed: %v", err)
				return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
			}
		}

		return c.JSON(http.StatusOK, map[string]bool{"success": true})
	}
}

func startAction(svc *campaign.Service) func(c echo.Context, id string) error {
	return func(c echo.Context, id string) error { return svc.Start(c.Request().Context(), id) }
}

func pauseAction(svc *campaign.Service) func(c echo.Context, id string) error {
	return func(c echo.Context, id string) error { return svc.Pause(c.Request().Context(), id) }
}

func resumeAction(svc *campaign.Service) func(c echo.Context, id string) error {
	return func(c echo.Context, id string) error { return svc.Resume(c.Request().Context(), id) }
}

// advanceCampaignHandler runs one bounded batch-dispatcher invocation.
func advanceCampaignHandler(adv *campaign.Advancer) echo.HandlerFunc {
	return func(c echo.Context) error {
		accountID, ok := middleware.AccountIDFromCtx(c)
		if !ok || accountID <= 0 {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		}

		outcome, err := adv.Advance(c.Request().Context(), c.Param("id"))
		if err != nil {
			switch {
			case errors.Is(err, campaign.ErrNotFound):
				return c.JSON(http.StatusNotFound, map[string]string{"error": "not found"})
			case errors.Is(err, campaign.ErrNotDispatchable):
				return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
			default:
				log.Errorf("advance campaign failed: %v", err)
				return c.JSON(http.StatusInternalServerError, map[string]string{"error": "advance failed"})
			}
		}

		return c.JSON(http.StatusOK, outcome)
	}
}
