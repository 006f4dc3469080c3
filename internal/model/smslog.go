package model

import "time"

// SmsLog is the durable send ledger: one row per individual send attempt,
// with or without a campaign. Append-only at creation; only the delivery
// reconciler updates it afterwards.
type SmsLog struct {
	ID           string     `db:"id" json:"id"`
	AccountID    int64      `db:"account_id" json:"account_id"`
	CampaignID   *string    `db:"campaign_id" json:"campaign_id,omitempty"`
	Phone        string     `db:"phone" json:"phone"`
	Message      string     `db:"message" json:"message"`
	Provider     Provider   `db:"provider" json:"provider"`
	MessageID    *string    `db:"message_id" json:"message_id,omitempty"`
	Status       SmsStatus  `db:"status" json:"status"`
	ErrorMessage *string    `db:"error_message" json:"error_message,omitempty"`
	SentAt       time.Time  `db:"sent_at" json:"sent_at"`
	DeliveredAt  *time.Time `db:"delivered_at" json:"delivered_at,omitempty"`
}
