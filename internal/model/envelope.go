package model

// AdvanceEnvelope is the payload published to Kafka (via Debezium outbox
// SMT) asking the campaign worker to advance one campaign by one bounded
// dispatcher invocation.
type AdvanceEnvelope struct {
	CampaignID string `json:"campaign_id"`
}
