package campaign

import (
	"context"
	"fmt"
	"time"

	"github.com/smsflow/smsflow/internal/config"
	"github.com/smsflow/smsflow/internal/gateway"
	"github.com/smsflow/smsflow/internal/logger"
	"github.com/smsflow/smsflow/internal/metrics"
	"github.com/smsflow/smsflow/internal/model"
	"github.com/smsflow/smsflow/internal/repository"
	"go.uber.org/zap"
)

// Sender is the dispatch entry point the advancer drives, one call per
// page. Satisfied by *gateway.Gateway.
type Sender interface {
	Send(ctx context.Context, req gateway.SendRequest) (gateway.Result, error)
}

// Outcome reports one bounded dispatcher invocation.
type Outcome struct {
	Status string `json:"status"` // processing | completed
	Sent   int    `json:"sent"`
	Failed int    `json:"failed"`
}

const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
)

// Advancer is the batch dispatcher: it pages through a campaign's pending
// recipients, one gateway call per page, and applies each page's outcome.
// Invocations are stateless and re-entrant; recipients are claimed purely
// by their pending status, so re-running after a crash never double-sends.
type Advancer struct {
	campaigns  repository.CampaignsRepository
	recipients repository.RecipientsRepository
	gateway    Sender

	pageSize int
	maxPages int
	pageWait time.Duration
}

func NewAdvancer(
	campaigns repository.CampaignsRepository,
	recipients repository.RecipientsRepository,
	gw Sender,
	cfg config.DispatcherConfig,
) *Advancer {
	a := &Advancer{
		campaigns:  campaigns,
		recipients: recipients,
		gateway:    gw,
		pageSize:   cfg.PageSize,
		maxPages:   cfg.MaxPages,
		pageWait:   cfg.PageWait,
	}
	if a.pageSize <= 0 || a.pageSize > 100 {
		a.pageSize = 100 // carrier per-call ceiling
	}
	if a.maxPages <= 0 {
		a.maxPages = 10
	}
	if a.pageWait <= 0 {
		a.pageWait = 100 * time.Millisecond
	}
	return a
}

// Advance runs one bounded invocation for the campaign. A completed
// campaign is a benign no-op; draft, paused and failed campaigns are
// refused. Zero pending recipients at invocation start triggers the sole
// automatic transition, running -> completed.
func (a *Advancer) Advance(ctx context.Context, campaignID string) (Outcome, error) {
	c, err := a.campaigns.GetByID(ctx, campaignID)
	if err != nil {
		return Outcome{}, err
	}
	if c == nil {
		return Outcome{}, ErrNotFound
	}
	if c.Status == model.CampaignCompleted {
		return Outcome{Status: StatusCompleted}, nil
	}
	if !c.Status.Dispatchable() {
		return Outcome{}, fmt.Errorf("%w: status=%s", ErrNotDispatchable, c.Status)
	}

	senderID := ""
	if c.SenderID != nil {
		senderID = *c.SenderID
	}

	sent, failed := 0, 0
	for page := 0; page < a.maxPages; page++ {
		if page > 0 {
			// Pacing between pages keeps us under upstream rate ceilings.
			select {
			case <-ctx.Done():
				return a.flush(c.ID, sent, failed, ctx.Err())
			case <-time.After(a.pageWait):
			}
		}

		recips, err := a.recipients.PendingPage(ctx, c.ID, a.pageSize)
		if err != nil {
			return a.flush(c.ID, sent, failed, err)
		}
		if len(recips) == 0 {
			if page == 0 {
				if _, err := a.campaigns.TransitionStatus(ctx, nil, c.ID, model.CampaignRunning, model.CampaignCompleted); err != nil {
					return Outcome{}, err
				}
				return Outcome{Status: StatusCompleted}, nil
			}
			break
		}

		if err := a.dispatchPage(ctx, c, senderID, recips, &sent, &failed); err != nil {
			return a.flush(c.ID, sent, failed, err)
		}
	}

	return a.flush(c.ID, sent, failed, nil)
}

func (a *Advancer) dispatchPage(ctx context.Context, c *model.Campaign, senderID string, recips []model.CampaignRecipient, sent, failed *int) error {
	phones := make([]string, len(recips))
	ids := make([]string, len(recips))
	for i, r := range recips {
		phones[i] = r.Phone
		ids[i] = r.ID
	}

	res, err := a.gateway.Send(ctx, gateway.SendRequest{
		AccountID:  c.AccountID,
		To:         phones,
		Message:    c.Message,
		Provider:   c.Provider,
		SenderID:   senderID,
		CampaignID: c.ID,
	})

	if err != nil || !res.Success {
		// One page-level failure fails every recipient in the page with the
		// shared reason; no per-recipient retry inside this invocation.
		reason := res.Err
		if err != nil {
			reason = err.Error()
		}
		if reason == "" {
			reason = "send failed"
		}
		if merr := a.recipients.MarkPageFailed(ctx, ids, reason); merr != nil {
			return fmt.Errorf("mark page failed: %w", merr)
		}
		*failed += len(recips)
		metrics.CampaignPagesTotal.WithLabelValues("failed").Inc()
		logger.Log.Warn("campaign page failed",
			zap.String("campaign_id", c.ID),
			zap.Int("recipients", len(recips)),
			zap.String("reason", reason),
		)
		return nil
	}

	marks := make([]repository.SentMark, len(recips))
	for i, r := range recips {
		id := ""
		if i < len(res.MessageIDs) {
			id = res.MessageIDs[i]
		}
		marks[i] = repository.SentMark{RecipientID: r.ID, MessageID: id}
	}
	if err := a.recipients.MarkPageSent(ctx, marks); err != nil {
		return fmt.Errorf("mark page sent: %w", err)
	}
	*sent += len(recips)
	metrics.CampaignPagesTotal.WithLabelValues("sent").Inc()
	return nil
}

// flush applies this invocation's observed totals as atomic increments;
// re-deriving campaign-wide counts would be wrong under concurrent
// invocations.
func (a *Advancer) flush(campaignID string, sent, failed int, cause error) (Outcome, error) {
	if sent > 0 || failed > 0 {
		if err := a.campaigns.AddSendCounts(context.Background(), campaignID, sent, failed); err != nil {
			logger.Log.Error("campaign counter update failed",
				zap.String("campaign_id", campaignID),
				zap.Int("sent", sent), zap.Int("failed", failed),
				zap.Error(err),
			)
			if cause == nil {
				cause = err
			}
		}
	}
	return Outcome{Status: StatusProcessing, Sent: sent, Failed: failed}, cause
}
