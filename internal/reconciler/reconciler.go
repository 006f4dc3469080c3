package reconciler

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/smsflow/smsflow/internal/logger"
	"github.com/smsflow/smsflow/internal/metrics"
	"github.com/smsflow/smsflow/internal/model"
	"github.com/smsflow/smsflow/internal/repository"
	"go.uber.org/zap"
)

// Receipt is one upstream delivery report. Status "0" means delivered;
// any other code means failed, with the raw code kept for diagnostics.
type Receipt struct {
	MsgID  string `json:"msgId"`
	Status string `json:"status"`
}

// ParseReceipts accepts the two webhook payload shapes carriers push:
// a single receipt object or a batch array of them.
func ParseReceipts(body []byte) ([]Receipt, error) {
	var batch []Receipt
	if err := json.Unmarshal(body, &batch); err == nil {
		return batch, nil
	}

	var single Receipt
	if err := json.Unmarshal(body, &single); err != nil || single.MsgID == "" {
		return nil, fmt.Errorf("invalid webhook payload")
	}
	return []Receipt{single}, nil
}

// Reconciler maps asynchronous delivery receipts onto the send ledger,
// recipient rows and campaign counters. It has no ordering relationship
// with the dispatcher: receipts for unknown message ids are benign no-ops,
// and duplicate receipts never double-count (the sent-status guard makes
// the delivered_count bump idempotent per message id).
type Reconciler struct {
	logs       repository.SmsLogsRepository
	recipients repository.RecipientsRepository
	campaigns  repository.CampaignsRepository
}

func New(
	logs repository.SmsLogsRepository,
	recipients repository.RecipientsRepository,
	campaigns repository.CampaignsRepository,
) *Reconciler {
	return &Reconciler{logs: logs, recipients: recipients, campaigns: campaigns}
}

// Process applies a batch of receipts and returns how many were handled.
func (r *Reconciler) Process(ctx context.Context, receipts []Receipt) (int, error) {
	processed := 0
	for _, rc := range receipts {
		if rc.MsgID == "" {
			continue
		}
		if err := r.apply(ctx, rc); err != nil {
			return processed, err
		}
		processed++
	}
	return processed, nil
}

func (r *Reconciler) apply(ctx context.Context, rc Receipt) error {
	status := model.SmsStatusDelivered
	errMsg := ""
	if rc.Status != "0" {
		status = model.SmsStatusFailed
		errMsg = fmt.Sprintf("Delivery failed: %s", rc.Status)
	}

	logUpdated, err := r.logs.MarkDelivery(ctx, rc.MsgID, status, errMsg)
	if err != nil {
		return fmt.Errorf("mark log delivery: %w", err)
	}

	rec, err := r.recipients.FindByMessageID(ctx, rc.MsgID)
	if err != nil {
		return fmt.Errorf("find recipient: %w", err)
	}

	if rec == nil {
		if !logUpdated {
			// Receipts may race ahead of local writes or reference messages
			// this deployment never logged. Accept and ignore.
			metrics.ReceiptsTotal.WithLabelValues("unknown").Inc()
			return nil
		}
		metrics.ReceiptsTotal.WithLabelValues(status.String()).Inc()
		return nil
	}

	recUpdated, err := r.recipients.MarkDelivery(ctx, rec.ID, status, errMsg)
	if err != nil {
		return fmt.Errorf("mark recipient delivery: %w", err)
	}

	if recUpdated && status == model.SmsStatusDelivered && rec.CampaignID != "" {
		// Single atomic bump; many receipts for one campaign land
		// concurrently.
		if err := r.campaigns.IncrementDelivered(ctx, rec.CampaignID); err != nil {
			return fmt.Errorf("increment delivered: %w", err)
		}
	}

	metrics.ReceiptsTotal.WithLabelValues(status.String()).Inc()
	logger.Log.Debug("delivery receipt applied",
		zap.String("message_id", rc.MsgID),
		zap.String("status", status.String()),
		zap.Bool("recipient_updated", recUpdated),
	)
	return nil
}
