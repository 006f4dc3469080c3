package model

import "time"

// Campaign is a bulk-send job over a fixed recipient list.
// Invariants: sent_count + failed_count <= total_recipients and
// delivered_count <= sent_count at all times. Counters are mutated only
// through atomic increments, never read-modify-write.
type Campaign struct {
	ID              string         `db:"id" json:"id"`
	AccountID       int64          `db:"account_id" json:"account_id"`
	Name            string         `db:"name" json:"name"`
	Message         string         `db:"message" json:"message"`
	SenderID        *string        `db:"sender_id" json:"sender_id,omitempty"`
	Provider        Provider       `db:"provider" json:"provider"`
	Status          CampaignStatus `db:"status" json:"status"`
	TotalRecipients int            `db:"total_recipients" json:"total_recipients"`
	SentCount       int            `db:"sent_count" json:"sent_count"`
	DeliveredCount  int            `db:"delivered_count" json:"delivered_count"`
	FailedCount     int            `db:"failed_count" json:"failed_count"`
	ScheduledAt     *time.Time     `db:"scheduled_at" json:"scheduled_at,omitempty"`
	StartedAt       *time.Time     `db:"started_at" json:"started_at,omitempty"`
	CompletedAt     *time.Time     `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updated_at"`
}
