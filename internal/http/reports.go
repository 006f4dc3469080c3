package http

import (
	"net/http"
	"strconv"
	"strings"

	echo "github.com/labstack/echo/v4"
	"github.com/smsflow/smsflow/internal/http/middleware"
	"github.com/smsflow/smsflow/internal/model"
	"github.com/smsflow/smsflow/internal/repository"
	"github.com/smsflow/smsflow/internal/util"
)

// listLogsHandler serves the cross-campaign send ledger from ClickHouse.
func listLogsHandler(chRepo repository.CHLogsRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		accountID, ok := middleware.AccountIDFromCtx(c)
		if !ok || accountID <= 0 {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		}

		limit := 100
		offset := 0
		if v := c.QueryParam("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
				limit = n
			}
		}
		if v := c.QueryParam("offset"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n >= 0 {
				offset = n
			}
		}

		var st model.SmsStatus
		if raw := strings.TrimSpace(c.QueryParam("status")); raw != "" {
			tmp := model.SmsStatus(raw)
			if tmp.Valid() {
				st = tmp
			}
		}

		phone := util.NormalizePhone(strings.TrimSpace(c.QueryParam("phone")))
		campaignID := strings.TrimSpace(c.QueryParam("campaign_id"))

		logs, err := chRepo.ListByAccount(
			c.Request().Context(),
			accountID,
			campaignID,
			phone,
			st,
			limit,
			offset,
		)
		if err != nil {
			c.Logger().Errorf("clickhouse list failed: %v", err)

			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "query failed"})
		}

		return c.JSON(http.StatusOK, map[string]any{
			"limit":   limit,
			"offset":  offset,
			"count":   len(logs),
			"results": logs,
		})
	}
}
