package model

import "time"

// CampaignRecipient is one (campaign, phone) pair tracked through the
// send/delivery lifecycle. MessageID is set once an upstream accepts the
// send and is unique per carrier from then on.
type CampaignRecipient struct {
	ID           string     `db:"id" json:"id"`
	CampaignID   string     `db:"campaign_id" json:"campaign_id"`
	ContactID    *string    `db:"contact_id" json:"contact_id,omitempty"`
	Phone        string     `db:"phone" json:"phone"`
	Status       SmsStatus  `db:"status" json:"status"`
	MessageID    *string    `db:"message_id" json:"message_id,omitempty"`
	SentAt       *time.Time `db:"sent_at" json:"sent_at,omitempty"`
	DeliveredAt  *time.Time `db:"delivered_at" json:"delivered_at,omitempty"`
	ErrorMessage *string    `db:"error_message" json:"error_message,omitempty"`
}
