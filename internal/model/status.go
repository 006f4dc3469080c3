package model

// SmsStatus is the shared status vocabulary for sms_logs and
// campaign_recipients rows. A row only moves forward:
// pending -> sent -> {delivered|failed}; delivered may overwrite sent.
type SmsStatus string

const (
	SmsStatusPending   SmsStatus = "pending"
	SmsStatusSent      SmsStatus = "sent"
	SmsStatusDelivered SmsStatus = "delivered"
	SmsStatusFailed    SmsStatus = "failed"
	SmsStatusRejected  SmsStatus = "rejected"
)

func (s SmsStatus) String() string { return string(s) }

func (s SmsStatus) Valid() bool {
	switch s {
	case SmsStatusPending, SmsStatusSent, SmsStatusDelivered, SmsStatusFailed, SmsStatusRejected:
		return true
	}
	return false
}

type CampaignStatus string

const (
	CampaignDraft     CampaignStatus = "draft"
	CampaignRunning   CampaignStatus = "running"
	CampaignPaused    CampaignStatus = "paused"
	CampaignCompleted CampaignStatus = "completed"
	CampaignFailed    CampaignStatus = "failed"
)

func (s CampaignStatus) String() string { return string(s) }

func (s CampaignStatus) Valid() bool {
	switch s {
	case CampaignDraft, CampaignRunning, CampaignPaused, CampaignCompleted, CampaignFailed:
		return true
	}
	return false
}

// CanTransitionTo encodes the campaign lifecycle:
// draft -> running -> {paused <-> running} -> completed, any -> failed.
func (s CampaignStatus) CanTransitionTo(to CampaignStatus) bool {
	if to == CampaignFailed {
		return s != CampaignFailed
	}
	switch s {
	case CampaignDraft:
		return to == CampaignRunning
	case CampaignRunning:
		return to == CampaignPaused || to == CampaignCompleted
	case CampaignPaused:
		return to == CampaignRunning
	}
	return false
}

// Dispatchable reports whether the batch dispatcher may process a
// campaign in this state.
func (s CampaignStatus) Dispatchable() bool { return s == CampaignRunning }
