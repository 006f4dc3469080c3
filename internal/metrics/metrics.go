package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	MessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smsflow_messages_total",
			Help: "Send attempts by outcome and carrier",
		},
		[]string{"status", "provider"}, // sent|failed , onbuka|eims_1|...
	)

	ReceiptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smsflow_delivery_receipts_total",
			Help: "Delivery receipts by resolved outcome",
		},
		[]string{"result"}, // delivered|failed|unknown
	)

	CampaignPagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smsflow_campaign_pages_total",
			Help: "Dispatcher pages processed by outcome",
		},
		[]string{"outcome"}, // sent|failed
	)
)

func MustRegister(r prometheus.Registerer) {
	r.MustRegister(
		MessagesTotal,
		ReceiptsTotal,
		CampaignPagesTotal,
	)
}
