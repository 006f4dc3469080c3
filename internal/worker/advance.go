package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/smsflow/smsflow/internal/campaign"
	"github.com/smsflow/smsflow/internal/kafka"
	"github.com/smsflow/smsflow/internal/logger"
	"github.com/smsflow/smsflow/internal/model"
	"go.uber.org/zap"
)

// AdvanceWorker consumes campaign.advance envelopes and runs one bounded
// dispatcher invocation per envelope. Envelopes are processed one at a
// time: a campaign should have at most one invocation advancing it, and
// the dispatcher's pacing makes parallel consumption pointless anyway.
// A campaign still holding pending recipients after its bounded run is
// re-enqueued through the outbox, so progress survives restarts.
type AdvanceWorker struct {
	Consumer  *kafka.Consumer
	Campaigns *campaign.Service
	Advancer  *campaign.Advancer
}

func NewAdvanceWorker(consumer *kafka.Consumer, campaigns *campaign.Service, advancer *campaign.Advancer) *AdvanceWorker {
	return &AdvanceWorker{Consumer: consumer, Campaigns: campaigns, Advancer: advancer}
}

// Run blocks until ctx is cancelled.
func (w *AdvanceWorker) Run(ctx context.Context) error {
	for {
		m, err := w.Consumer.Fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.Log.Error("kafka fetch failed", zap.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(200 * time.Millisecond):
			}
			continue
		}

		w.processOne(ctx, m)
	}
}

func (w *AdvanceWorker) processOne(ctx context.Context, m kafka.Message) {
	var env model.AdvanceEnvelope
	if err := json.Unmarshal(m.Value, &env); err != nil || env.CampaignID == "" {
		// poison message: commit and skip
		logger.Log.Warn("bad advance envelope", zap.Error(err))
		_ = w.Consumer.Commit(ctx, m)
		return
	}

	outcome, err := w.Advancer.Advance(ctx, env.CampaignID)
	switch {
	case err == nil:
		logger.Log.Info("campaign advanced",
			zap.String("campaign_id", env.CampaignID),
			zap.String("status", outcome.Status),
			zap.Int("sent", outcome.Sent),
			zap.Int("failed", outcome.Failed),
		)
		if outcome.Status == campaign.StatusProcessing {
			if err := w.Campaigns.EnqueueAdvance(ctx, env.CampaignID); err != nil {
				logger.Log.Error("re-enqueue failed",
					zap.String("campaign_id", env.CampaignID), zap.Error(err))
			}
		}
	case errors.Is(err, campaign.ErrNotFound), errors.Is(err, campaign.ErrNotDispatchable):
		// deleted or paused since enqueue; nothing to do
		logger.Log.Info("campaign not advanced",
			zap.String("campaign_id", env.CampaignID), zap.Error(err))
	default:
		// Counters for the pages that did run were already flushed; the
		// remaining recipients are still pending and will be claimed by a
		// later enqueue.
		logger.Log.Error("campaign advance failed",
			zap.String("campaign_id", env.CampaignID), zap.Error(err))
	}

	// Always commit (at-least-once; pending-status claiming makes
	// re-delivery safe).
	if err := w.Consumer.Commit(ctx, m); err != nil {
		logger.Log.Error("kafka commit failed", zap.Error(err))
	}
}
