package http

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	echoMid "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/smsflow/smsflow/internal/campaign"
	"github.com/smsflow/smsflow/internal/carrier"
	"github.com/smsflow/smsflow/internal/config"
	"github.com/smsflow/smsflow/internal/gateway"
	"github.com/smsflow/smsflow/internal/http/middleware"
	"github.com/smsflow/smsflow/internal/metrics"
	"github.com/smsflow/smsflow/internal/reconciler"
	"github.com/smsflow/smsflow/internal/repository"
)

type Server struct{ e *echo.Echo }

func NewServer(cfg config.Config, mysqlDB, clickhouseDB *sqlx.DB, rds *redis.Client) *Server {
	// repos (MySQL)
	apiKeysRepo := repository.NewAPIKeysRepository(mysqlDB)
	settingsRepo := repository.NewSettingsRepository(mysqlDB)
	campaignsRepo := repository.NewCampaignsRepository(mysqlDB)
	recipientsRepo := repository.NewRecipientsRepository(mysqlDB)
	smsLogsRepo := repository.NewSmsLogsRepository(mysqlDB)
	outboxRepo := repository.NewOutboxRepository(mysqlDB)

	// repos (ClickHouse)
	chLogsRepo := repository.NewCHLogsRepository(clickhouseDB)

	// engine
	carriers := carrier.NewRegistry(cfg.Carriers)
	gw := gateway.New(carriers, settingsRepo, smsLogsRepo)
	campaignSvc := campaign.NewService(mysqlDB, campaignsRepo, recipientsRepo, outboxRepo)
	advancer := campaign.NewAdvancer(campaignsRepo, recipientsRepo, gw, cfg.Dispatcher)
	rec := reconciler.New(smsLogsRepo, recipientsRepo, campaignsRepo)

	// echo
	e := echo.New()
	e.HideBanner = true
	e.Use(echoMid.Recover(), echoMid.Logger())

	metrics.MustRegister(prometheus.DefaultRegisterer)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// health
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	// carrier-facing webhook, unauthenticated by design
	e.POST("/webhooks/delivery", deliveryWebhookHandler(rec))

	// middlewares
	authMW := middleware.APIKeyMiddleware(apiKeysRepo)
	rlMW := middleware.RateLimitMiddleware(middleware.RateLimitConfig{
		Redis:     rds,
		RPS:       cfg.RateLimit.RPS,
		KeyPrefix: "rl:acct:",
		Window:    time.Second,
	})

	// routes
	v1 := e.Group("/v1", authMW, rlMW)
	v1.POST("/sms/send", sendSMSHandler(gw))
	v1.GET("/sms/status/:message_id", statusLookupHandler(smsLogsRepo))
	v1.GET("/balance", balanceHandler(carriers, settingsRepo))
	v1.GET("/reports/messages", listLogsHandler(chLogsRepo))

	v1.POST("/campaigns", createCampaignHandler(campaignSvc))
	v1.GET("/campaigns", listCampaignsHandler(campaignSvc))
	v1.GET("/campaigns/:id", getCampaignHandler(campaignSvc))
	v1.POST("/campaigns/:id/start", campaignActionHandler(campaignSvc, startAction))
	v1.POST("/campaigns/:id/pause", campaignActionHandler(campaignSvc, pauseAction))
	v1.POST("/campaigns/:id/resume", campaignActionHandler(campaignSvc, resumeAction))
	v1.POST("/campaigns/:id/advance", advanceCampaignHandler(advancer))

	return &Server{e: e}
}

func (s *Server) Start(addr string) error {
	log.Printf("http: listening on %s", addr)
	return s.e.Start(addr)
}
func (s *Server) Shutdown(ctx context.Context) error { return s.e.Shutdown(ctx) }
