package worker

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/smsflow/smsflow/internal/campaign"
	"github.com/smsflow/smsflow/internal/carrier"
	"github.com/smsflow/smsflow/internal/config"
	"github.com/smsflow/smsflow/internal/db"
	"github.com/smsflow/smsflow/internal/gateway"
	"github.com/smsflow/smsflow/internal/kafka"
	"github.com/smsflow/smsflow/internal/logger"
	"github.com/smsflow/smsflow/internal/metrics"
	"github.com/smsflow/smsflow/internal/repository"
	"github.com/smsflow/smsflow/internal/worker"
	"github.com/spf13/cobra"
)

var campaignCmd = &cobra.Command{
	Use:   "campaign",
	Short: "Run campaign advance worker",
	RunE:  runCampaign,
}

func runCampaign(cmd *cobra.Command, args []string) error {
	// 1) load config
	cfgPath, _ := cmd.Root().PersistentFlags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger.Init(cfg.Log.Level)
	metrics.MustRegister(prometheus.DefaultRegisterer)

	// 2) DB connection (MySQL)
	dbx, err := db.NewMySQLConnection(cfg.MySQL.DSN, db.Options{
		MaxOpenConns:    cfg.MySQL.MaxOpenConns,
		MaxIdleConns:    cfg.MySQL.MaxIdleConns,
		ConnMaxLifetime: cfg.MySQL.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.MySQL.ConnMaxIdleTime,
		PingTimeout:     cfg.MySQL.PingTimeout,
	})
	if err != nil {
		return fmt.Errorf("mysql connect: %w", err)
	}
	defer dbx.Close()

	// 3) repositories
	campaignsRepo := repository.NewCampaignsRepository(dbx)
	recipientsRepo := repository.NewRecipientsRepository(dbx)
	smsLogsRepo := repository.NewSmsLogsRepository(dbx)
	settingsRepo := repository.NewSettingsRepository(dbx)
	outboxRepo := repository.NewOutboxRepository(dbx)

	// 4) dispatch engine
	carriers := carrier.NewRegistry(cfg.Carriers)
	gw := gateway.New(carriers, settingsRepo, smsLogsRepo)
	campaignSvc := campaign.NewService(dbx, campaignsRepo, recipientsRepo, outboxRepo)
	advancer := campaign.NewAdvancer(campaignsRepo, recipientsRepo, gw, cfg.Dispatcher)

	// 5) kafka consumer
	groupID := cfg.Kafka.GroupID
	if groupID == "" {
		groupID = "smsflow-campaign"
	}

	consumer := kafka.NewConsumerFromConfig(kafka.Config{
		Brokers:        cfg.Kafka.Brokers,
		Topic:          campaign.AdvanceTopic,
		GroupID:        groupID,
		MinBytes:       cfg.Kafka.MinBytes,
		MaxBytes:       cfg.Kafka.MaxBytes,
		CommitInterval: time.Duration(cfg.Kafka.CommitInterval) * time.Millisecond,
	})
	defer consumer.Close()

	w := worker.NewAdvanceWorker(consumer, campaignSvc, advancer)

	// 6) graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf(">> campaign worker started topic=%s group=%s pageSize=%d maxPages=%d",
		campaign.AdvanceTopic, groupID, cfg.Dispatcher.PageSize, cfg.Dispatcher.MaxPages)

	return w.Run(ctx)
}
