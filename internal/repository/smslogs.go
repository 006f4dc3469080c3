package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/smsflow/smsflow/internal/model"
)

// SmsLogsRepository persists the durable send ledger. Rows are append-only
// at creation; only delivery reconciliation updates them afterwards.
type SmsLogsRepository interface {
	InsertBatch(ctx context.Context, logs []model.SmsLog) error
	GetByMessageID(ctx context.Context, messageID string) (*model.SmsLog, error)

	// MarkDelivery advances one sent log row to delivered or failed.
	// Returns false when no sent row matched the message id.
	MarkDelivery(ctx context.Context, messageID string, status model.SmsStatus, errMsg string) (bool, error)
}

type SmsLogsRepositoryImpl struct {
	db *sqlx.DB
}

func NewSmsLogsRepository(db *sqlx.DB) *SmsLogsRepositoryImpl {
	return &SmsLogsRepositoryImpl{db: db}
}

var _ SmsLogsRepository = (*SmsLogsRepositoryImpl)(nil)

// InsertBatch writes one ledger row per destination in a single statement.
func (r *SmsLogsRepositoryImpl) InsertBatch(ctx context.Context, logs []model.SmsLog) error {
	if len(logs) == 0 {
		return nil
	}

	var sb strings.Builder
	args := make([]any, 0, len(logs)*9)

	sb.WriteString(`
		INSERT INTO sms_logs
		    (id, account_id, campaign_id, phone, message, provider,
		     message_id, status, error_message, sent_at)
		VALUES `)
	for i, l := range logs {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString("(?, ?, ?, ?, ?, ?, ?, ?, ?, NOW())")
		args = append(args,
			l.ID, l.AccountID, l.CampaignID, l.Phone, l.Message,
			l.Provider.String(), l.MessageID, l.Status.String(), l.ErrorMessage,
		)
	}

	return withTx(ctx, r.db, nil, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, sb.String(), args...)
		return err
	})
}

func (r *SmsLogsRepositoryImpl) GetByMessageID(ctx context.Context, messageID string) (*model.SmsLog, error) {
	var l model.SmsLog
	err := r.db.GetContext(ctx, &l, `
		SELECT id, account_id, campaign_id, phone, message, provider,
		       message_id, status, error_message, sent_at, delivered_at
		  FROM sms_logs
		 WHERE message_id = ? LIMIT 1
	`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *SmsLogsRepositoryImpl) MarkDelivery(ctx context.Context, messageID string, status model.SmsStatus, errMsg string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE sms_logs
		   SET status = ?,
		       delivered_at = IF(? = 'delivered', NOW(), delivered_at),
		       error_message = NULLIF(?, '')
		 WHERE message_id = ? AND status = 'sent'
	`, status.String(), status.String(), errMsg, messageID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}
