package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/smsflow/smsflow/internal/model"
	"github.com/smsflow/smsflow/internal/util"
)

// SentMark pairs a recipient with the provider message id its page's
// carrier call returned.
type SentMark struct {
	RecipientID string
	MessageID   string
}

// RecipientsRepository persists campaign_recipients. Every status mutation
// is guarded by the row's current status, so a recipient only ever moves
// forward (pending -> sent -> {delivered|failed}) and re-running a
// dispatcher invocation cannot double-claim a row.
type RecipientsRepository interface {
	BulkInsert(ctx context.Context, tx *sqlx.Tx, campaignID string, phones []string) error
	PendingPage(ctx context.Context, campaignID string, limit int) ([]model.CampaignRecipient, error)
	MarkPageSent(ctx context.Context, marks []SentMark) error
	MarkPageFailed(ctx context.Context, ids []string, reason string) error
	FindByMessageID(ctx context.Context, messageID string) (*model.CampaignRecipient, error)

	// MarkDelivery advances one sent recipient to delivered or failed.
	// Returns false when the row was not in sent state (duplicate or
	// out-of-order receipt), in which case nothing changed.
	MarkDelivery(ctx context.Context, recipientID string, status model.SmsStatus, errMsg string) (bool, error)
}

type RecipientsRepositoryImpl struct {
	db *sqlx.DB
}

func NewRecipientsRepository(db *sqlx.DB) *RecipientsRepositoryImpl {
	return &RecipientsRepositoryImpl{db: db}
}

var _ RecipientsRepository = (*RecipientsRepositoryImpl)(nil)

// BulkInsert creates one pending row per destination in a single statement.
func (r *RecipientsRepositoryImpl) BulkInsert(ctx context.Context, tx *sqlx.Tx, campaignID string, phones []string) error {
	if len(phones) == 0 {
		return nil
	}

	var sb strings.Builder
	args := make([]any, 0, len(phones)*3)

	sb.WriteString(`INSERT INTO campaign_recipients (id, campaign_id, phone, status) VALUES `)
	for i, phone := range phones {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString("(?, ?, ?, 'pending')")
		args = append(args, util.NewID(), campaignID, phone)
	}

	return withTx(ctx, r.db, tx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, sb.String(), args...)
		return err
	})
}

func (r *RecipientsRepositoryImpl) PendingPage(ctx context.Context, campaignID string, limit int) ([]model.CampaignRecipient, error) {
	if limit <= 0 {
		limit = 100
	}

	var rows []model.CampaignRecipient
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, campaign_id, contact_id, phone, status, message_id,
		       sent_at, delivered_at, error_message
		  FROM campaign_recipients
		 WHERE campaign_id = ? AND status = 'pending'
		 ORDER BY id
		 LIMIT ?
	`, campaignID, limit)
	return rows, err
}

// MarkPageSent stamps each recipient with its aligned message id. Per-row
// updates run inside one transaction; the pending guard makes a row
// claimed by a concurrent invocation a silent no-op.
func (r *RecipientsRepositoryImpl) MarkPageSent(ctx context.Context, marks []SentMark) error {
	if len(marks) == 0 {
		return nil
	}
	const q = `
		UPDATE campaign_recipients
		   SET status = 'sent', message_id = NULLIF(?, ''), sent_at = NOW()
		 WHERE id = ? AND status = 'pending'
	`
	return withTx(ctx, r.db, nil, func(tx *sqlx.Tx) error {
		for _, m := range marks {
			if _, err := tx.ExecContext(ctx, q, m.MessageID, m.RecipientID); err != nil {
				return err
			}
		}
		return nil
	})
}

// MarkPageFailed fails every recipient of a page with the shared adapter
// error, in a single statement.
func (r *RecipientsRepositoryImpl) MarkPageFailed(ctx context.Context, ids []string, reason string) error {
	if len(ids) == 0 {
		return nil
	}
	const base = `
		UPDATE campaign_recipients
		   SET status = 'failed', error_message = ?
		 WHERE id IN (?) AND status = 'pending'
	`
	query, args, err := sqlx.In(base, reason, ids)
	if err != nil {
		return err
	}
	query = r.db.Rebind(query)

	_, err = r.db.ExecContext(ctx, query, args...)
	return err
}

func (r *RecipientsRepositoryImpl) FindByMessageID(ctx context.Context, messageID string) (*model.CampaignRecipient, error) {
	var rec model.CampaignRecipient
	err := r.db.GetContext(ctx, &rec, `
		SELECT id, campaign_id, contact_id, phone, status, message_id,
		       sent_at, delivered_at, error_message
		  FROM campaign_recipients
		 WHERE message_id = ? LIMIT 1
	`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *RecipientsRepositoryImpl) MarkDelivery(ctx context.Context, recipientID string, status model.SmsStatus, errMsg string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE campaign_recipients
		   SET status = ?,
		       delivered_at = IF(? = 'delivered', NOW(), delivered_at),
		       error_message = NULLIF(?, '')
		 WHERE id = ? AND status = 'sent'
	`, status.String(), status.String(), errMsg, recipientID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}
