package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/smsflow/smsflow/internal/carrier"
	"github.com/smsflow/smsflow/internal/logger"
	"github.com/smsflow/smsflow/internal/metrics"
	"github.com/smsflow/smsflow/internal/model"
	"github.com/smsflow/smsflow/internal/repository"
	"github.com/smsflow/smsflow/internal/util"
	"go.uber.org/zap"
)

var (
	ErrNoDestinations        = errors.New("no destinations")
	ErrSettingsNotConfigured = errors.New("provider settings not configured")
	ErrCredentialsMissing    = errors.New("carrier credentials not configured")
	ErrUnknownProvider       = errors.New("unknown provider")
)

// SendRequest is one gateway invocation: one carrier call covering every
// destination, regardless of how many there are. Chunking into pages is
// the batch dispatcher's job, not the gateway's.
type SendRequest struct {
	AccountID  int64
	To         []string // normalized phone numbers, non-empty
	Message    string
	Provider   model.Provider // empty selects the configured default
	SenderID   string
	CampaignID string // optional campaign linkage for the ledger rows
}

// Result reports the aggregate outcome. MessageIDs is always aligned to
// and equal in length with the request's destination list.
type Result struct {
	Success    bool
	MessageIDs []string
	SentCount  int
	Err        string
}

// Gateway is the single dispatch entry point for one-off sends and
// campaign pages: resolve credentials, call the carrier adapter once, and
// write exactly one sms_logs row per destination.
type Gateway struct {
	carriers *carrier.Registry
	settings repository.SettingsRepository
	logs     repository.SmsLogsRepository
}

func New(carriers *carrier.Registry, settings repository.SettingsRepository, logs repository.SmsLogsRepository) *Gateway {
	return &Gateway{carriers: carriers, settings: settings, logs: logs}
}

// Send dispatches one carrier call. Configuration errors (missing settings
// or credentials, unknown carrier) surface as errors before any send or
// log write. Adapter failures are not errors: every destination is logged
// as failed with the shared reason and the failure is reported in Result.
func (g *Gateway) Send(ctx context.Context, req SendRequest) (Result, error) {
	if len(req.To) == 0 {
		return Result{}, ErrNoDestinations
	}

	settings, err := g.settings.Get(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("load provider settings: %w", err)
	}
	if settings == nil {
		return Result{}, ErrSettingsNotConfigured
	}

	provider := req.Provider
	if provider == "" {
		provider = settings.DefaultProvider
	}
	if provider == "" {
		provider = model.ProviderOnbuka
	}

	adapter := g.carriers.Get(provider)
	if adapter == nil {
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownProvider, provider)
	}
	if !settings.Configured(provider) {
		return Result{}, fmt.Errorf("%w: %s", ErrCredentialsMissing, provider)
	}

	res := adapter.Send(ctx, *settings, req.To, req.Message, req.SenderID)

	// One ledger row per destination, unconditionally, for auditability.
	logs := make([]model.SmsLog, 0, len(req.To))
	ids := make([]string, len(req.To))
	for i, phone := range req.To {
		l := model.SmsLog{
			ID:        util.NewID(),
			AccountID: req.AccountID,
			Phone:     phone,
			Message:   req.Message,
			Provider:  provider,
			Status:    model.SmsStatusFailed,
		}
		if req.CampaignID != "" {
			cid := req.CampaignID
			l.CampaignID = &cid
		}
		if res.Accepted {
			l.Status = model.SmsStatusSent
			if i < len(res.MessageIDs) && res.MessageIDs[i] != "" {
				id := res.MessageIDs[i]
				l.MessageID = &id
				ids[i] = id
			}
		} else {
			reason := res.Err
			l.ErrorMessage = &reason
		}
		logs = append(logs, l)
	}

	if err := g.logs.InsertBatch(ctx, logs); err != nil {
		// The carrier call already happened; losing ledger rows is worth an
		// error log but must not turn an accepted send into a failure.
		logger.Log.Error("sms_logs insert failed",
			zap.String("provider", provider.String()),
			zap.Int("destinations", len(req.To)),
			zap.Error(err),
		)
	}

	status := model.SmsStatusFailed
	sentCount := 0
	if res.Accepted {
		status = model.SmsStatusSent
		sentCount = len(req.To)
	}
	metrics.MessagesTotal.WithLabelValues(status.String(), provider.String()).Add(float64(len(req.To)))

	return Result{
		Success:    res.Accepted,
		MessageIDs: ids,
		SentCount:  sentCount,
		Err:        res.Err,
	}, nil
}
