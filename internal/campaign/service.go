package campaign

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/smsflow/smsflow/internal/model"
	"github.com/smsflow/smsflow/internal/repository"
	"github.com/smsflow/smsflow/internal/util"
)

// AdvanceTopic carries campaign.advance envelopes from the outbox relay to
// the campaign worker.
const AdvanceTopic = "campaign.advance"

var (
	ErrNotFound          = errors.New("campaign not found")
	ErrNoRecipients      = errors.New("campaign has no recipients")
	ErrInvalidTransition = errors.New("invalid campaign state transition")
	ErrNotDispatchable   = errors.New("campaign is not dispatchable")
)

// Service owns campaign authoring and the explicit state-machine actions
// (start, pause, resume). The only automatic transition, running ->
// completed, belongs to the Advancer.
type Service struct {
	db         *sqlx.DB
	campaigns  repository.CampaignsRepository
	recipients repository.RecipientsRepository
	outbox     repository.OutboxRepository
}

func NewService(
	db *sqlx.DB,
	campaigns repository.CampaignsRepository,
	recipients repository.RecipientsRepository,
	outbox repository.OutboxRepository,
) *Service {
	return &Service{db: db, campaigns: campaigns, recipients: recipients, outbox: outbox}
}

type CreateParams struct {
	AccountID int64
	Name      string
	Message   string
	SenderID  string
	Provider  model.Provider
	Phones    []string // normalized destinations, one recipient row each
}

// Create authors a draft campaign and its recipient rows in one
// transaction. TotalRecipients is fixed here and never recomputed.
func (s *Service) Create(ctx context.Context, p CreateParams) (*model.Campaign, error) {
	if len(p.Phones) == 0 {
		return nil, ErrNoRecipients
	}

	c := model.Campaign{
		ID:              util.NewID(),
		AccountID:       p.AccountID,
		Name:            p.Name,
		Message:         p.Message,
		Provider:        p.Provider,
		Status:          model.CampaignDraft,
		TotalRecipients: len(p.Phones),
	}
	if p.SenderID != "" {
		sid := p.SenderID
		c.SenderID = &sid
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.campaigns.Insert(ctx, tx, c); err != nil {
		return nil, fmt.Errorf("insert campaign: %w", err)
	}
	if err := s.recipients.BulkInsert(ctx, tx, c.ID, p.Phones); err != nil {
		return nil, fmt.Errorf("insert recipients: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Service) Get(ctx context.Context, id string) (*model.Campaign, error) {
	return s.campaigns.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, accountID int64, limit, offset int) ([]model.Campaign, error) {
	return s.campaigns.ListByAccount(ctx, accountID, limit, offset)
}

// Start moves a draft campaign to running and enqueues the first advance,
// atomically. started_at is stamped by the transition.
func (s *Service) Start(ctx context.Context, id string) error {
	return s.transitionAndEnqueue(ctx, id, model.CampaignDraft, model.CampaignRunning, true)
}

// Pause stops further dispatcher invocations. In-flight pages of an
// already running invocation are not cancelled.
func (s *Service) Pause(ctx context.Context, id string) error {
	return s.transitionAndEnqueue(ctx, id, model.CampaignRunning, model.CampaignPaused, false)
}

// Resume re-runs a paused campaign from wherever the recipients' pending
// statuses left off. started_at is unchanged.
func (s *Service) Resume(ctx context.Context, id string) error {
	return s.transitionAndEnqueue(ctx, id, model.CampaignPaused, model.CampaignRunning, true)
}

func (s *Service) transitionAndEnqueue(ctx context.Context, id string, from, to model.CampaignStatus, enqueue bool) error {
	c, err := s.campaigns.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if c == nil {
		return ErrNotFound
	}
	if c.Status != from || !from.CanTransitionTo(to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, c.Status, to)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	changed, err := s.campaigns.TransitionStatus(ctx, tx, id, from, to)
	if err != nil {
		return err
	}
	if !changed {
		// Lost the compare-and-set race to a concurrent action.
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}

	if enqueue {
		if err := s.enqueueAdvance(ctx, tx, id); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// EnqueueAdvance requests one more bounded dispatcher invocation for the
// campaign through the outbox relay.
func (s *Service) EnqueueAdvance(ctx context.Context, id string) error {
	return s.enqueueAdvance(ctx, nil, id)
}

func (s *Service) enqueueAdvance(ctx context.Context, tx *sqlx.Tx, id string) error {
	payload, err := json.Marshal(model.AdvanceEnvelope{CampaignID: id})
	if err != nil {
		return fmt.Errorf("marshal advance envelope: %w", err)
	}
	return s.outbox.Insert(ctx, tx, "campaign", id, AdvanceTopic, payload)
}
