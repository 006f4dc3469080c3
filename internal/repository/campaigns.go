package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/smsflow/smsflow/internal/model"
)

// CampaignsRepository persists campaigns. All counter mutations are atomic
// in-place increments so concurrent dispatcher and reconciler invocations
// never overwrite each other.
type CampaignsRepository interface {
	Insert(ctx context.Context, tx *sqlx.Tx, c model.Campaign) error
	GetByID(ctx context.Context, id string) (*model.Campaign, error)
	ListByAccount(ctx context.Context, accountID int64, limit, offset int) ([]model.Campaign, error)

	// TransitionStatus applies one state-machine edge with a compare-and-set
	// on the current status. It stamps started_at on draft->running and
	// completed_at on running->completed. Returns false when the row was not
	// in the expected from state.
	TransitionStatus(ctx context.Context, tx *sqlx.Tx, id string, from, to model.CampaignStatus) (bool, error)

	// AddSendCounts bumps sent_count/failed_count by the totals observed in
	// one dispatcher invocation.
	AddSendCounts(ctx context.Context, id string, sent, failed int) error

	// IncrementDelivered bumps delivered_count by exactly one.
	IncrementDelivered(ctx context.Context, id string) error
}

type CampaignsRepositoryImpl struct {
	db *sqlx.DB
}

func NewCampaignsRepository(db *sqlx.DB) *CampaignsRepositoryImpl {
	return &CampaignsRepositoryImpl{db: db}
}

var _ CampaignsRepository = (*CampaignsRepositoryImpl)(nil)

func (r *CampaignsRepositoryImpl) Insert(ctx context.Context, tx *sqlx.Tx, c model.Campaign) error {
	const q = `
		INSERT INTO campaigns
		    (id, account_id, name, message, sender_id, provider, status,
		     total_recipients, sent_count, delivered_count, failed_count,
		     scheduled_at, created_at, updated_at)
		VALUES
		    (?, ?, ?, ?, ?, ?, ?, ?, 0, 0, 0, ?, NOW(), NOW())
	`
	return withTx(ctx, r.db, tx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, q,
			c.ID, c.AccountID, c.Name, c.Message, c.SenderID, c.Provider.String(),
			c.Status.String(), c.TotalRecipients, c.ScheduledAt,
		)
		return err
	})
}

func (r *CampaignsRepositoryImpl) GetByID(ctx context.Context, id string) (*model.Campaign, error) {
	var c model.Campaign
	err := r.db.GetContext(ctx, &c, `
		SELECT id, account_id, name, message, sender_id, provider, status,
		       total_recipients, sent_count, delivered_count, failed_count,
		       scheduled_at, started_at, completed_at, created_at, updated_at
		  FROM campaigns
		 WHERE id = ? LIMIT 1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CampaignsRepositoryImpl) ListByAccount(ctx context.Context, accountID int64, limit, offset int) ([]model.Campaign, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var rows []model.Campaign
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, account_id, name, message, sender_id, provider, status,
		       total_recipients, sent_count, delivered_count, failed_count,
		       scheduled_at, started_at, completed_at, created_at, updated_at
		  FROM campaigns
		 WHERE account_id = ?
		 ORDER BY created_at DESC
		 LIMIT ? OFFSET ?
	`, accountID, limit, offset)
	return rows, err
}

func (r *CampaignsRepositoryImpl) TransitionStatus(ctx context.Context, tx *sqlx.Tx, id string, from, to model.CampaignStatus) (bool, error) {
	q := `UPDATE campaigns SET status = ?, updated_at = NOW()`
	if from == model.CampaignDraft && to == model.CampaignRunning {
		q += `, started_at = NOW()`
	}
	if to == model.CampaignCompleted {
		q += `, completed_at = NOW()`
	}
	q += ` WHERE id = ? AND status = ?`

	var changed bool
	err := withTx(ctx, r.db, tx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, q, to.String(), id, from.String())
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		changed = n == 1
		return err
	})
	return changed, err
}

func (r *CampaignsRepositoryImpl) AddSendCounts(ctx context.Context, id string, sent, failed int) error {
	if sent == 0 && failed == 0 {
		return nil
	}
	_, err := r.db.ExecContext(ctx, `
		UPDATE campaigns
		   SET sent_count = sent_count + ?,
		       failed_count = failed_count + ?,
		       updated_at = NOW()
		 WHERE id = ?
	`, sent, failed, id)
	return err
}

func (r *CampaignsRepositoryImpl) IncrementDelivered(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE campaigns
		   SET delivered_count = delivered_count + 1,
		       updated_at = NOW()
		 WHERE id = ?
	`, id)
	return err
}
