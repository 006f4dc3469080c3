package repository

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/smsflow/smsflow/internal/model"
)

// CHLogsRepository lists the send ledger from ClickHouse (replicated
// sms_logs, final view) for cross-campaign reporting.
type CHLogsRepository interface {
	ListByAccount(ctx context.Context, accountID int64, campaignID, phone string, status model.SmsStatus, limit, offset int) ([]model.SmsLog, error)
}

type chLogsRepository struct {
	ch *sqlx.DB // ClickHouse connection
}

func NewCHLogsRepository(ch *sqlx.DB) CHLogsRepository {
	return &chLogsRepository{ch: ch}
}

func (r *chLogsRepository) ListByAccount(ctx context.Context, accountID int64, campaignID, phone string, status model.SmsStatus, limit, offset int) ([]model.SmsLog, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	q := `
		SELECT id, account_id, campaign_id, phone, message, provider,
		       message_id, status, error_message, sent_at, delivered_at
		FROM smsflow.sms_logs_latest
		WHERE account_id = ?
	`
	args := []any{accountID}

	if campaignID != "" {
		q += " AND campaign_id = ?"
		args = append(args, campaignID)
	}
	if status != "" {
		q += " AND status = ?"
		args = append(args, status.String())
	}
	if phone != "" {
		q += " AND phone = ?"
		args = append(args, phone)
	}

	q += " ORDER BY sent_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	var rows []model.SmsLog
	if err := r.ch.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, err
	}
	return rows, nil
}
