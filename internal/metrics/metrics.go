package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "petdesk"

// Metrics holds the Prometheus collectors for the API and worker. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	HTTPRequests        *prometheus.CounterVec
	HTTPDuration        *prometheus.HistogramVec
	CampaignDispatches  *prometheus.CounterVec
	CampaignRecipients  prometheus.Counter
	InvoiceSubmissions  *prometheus.CounterVec
	Recalculations      *prometheus.CounterVec
	CalendarSyncEvents  *prometheus.CounterVec
	RealtimeSubscribers prometheus.Gauge
}

// New registers the collectors with reg. Pass prometheus.DefaultRegisterer
// in main and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests by route pattern, method and status.",
		}, []string{"route", "method", "status"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		CampaignDispatches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "campaign",
			Name:      "dispatches_total",
			Help:      "Campaign webhook dispatches by result.",
		}, []string{"result"}), // result: sent, rejected, error
		CampaignRecipients: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "campaign",
			Name:      "recipients_total",
			Help:      "Recipients handed to the workflow engine.",
		}),
		InvoiceSubmissions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fiscal",
			Name:      "submissions_total",
			Help:      "Fiscal provider calls by action and result.",
		}, []string{"action", "result"}),
		Recalculations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "segmentation",
			Name:      "recalculations_total",
			Help:      "Client segment recalculations by trigger.",
		}, []string{"trigger"}), // trigger: threshold, manual, worker
		CalendarSyncEvents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "calendar",
			Name:      "sync_events_total",
			Help:      "Inbound calendar sync events by outcome.",
		}, []string{"outcome"}),
		RealtimeSubscribers: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "subscribers",
			Help:      "Open server-sent event streams.",
		}),
	}
}

func (m *Metrics) Dispatch(result string, recipients int) {
	if m == nil {
		return
	}
	m.CampaignDispatches.WithLabelValues(result).Inc()
	if result == "sent" {
		m.CampaignRecipients.Add(float64(recipients))
	}
}

func (m *Metrics) Invoice(action, result string) {
	if m == nil {
		return
	}
	m.InvoiceSubmissions.WithLabelValues(action, result).Inc()
}

func (m *Metrics) Recalculation(trigger string) {
	if m == nil {
		return
	}
	m.Recalculations.WithLabelValues(trigger).Inc()
}

func (m *Metrics) CalendarSync(outcome string) {
	if m == nil {
		return
	}
	m.CalendarSyncEvents.WithLabelValues(outcome).Inc()
}

func (m *Metrics) SubscriberDelta(d float64) {
	if m == nil {
		return
	}
	m.RealtimeSubscribers.Add(d)
}
