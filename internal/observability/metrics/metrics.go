package metrics

import "github.com/prometheus/client_golang/prometheus"

// ConversationMetrics exposes counters/histograms for the messaging pipeline.
// A nil receiver is a no-op, so wiring metrics stays optional in tests.
type ConversationMetrics struct {
	inboundTotal   *prometheus.CounterVec
	outboundTotal  *prometheus.CounterVec
	qualifiedTotal prometheus.Counter
	llmCallsTotal  *prometheus.CounterVec
	turnLatency    prometheus.Histogram
	notifyTotal    *prometheus.CounterVec
}

// NewConversationMetrics registers the collectors. Pass nil to use the
// default registerer.
func NewConversationMetrics(reg prometheus.Registerer) *ConversationMetrics {
	m := &ConversationMetrics{
		inboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "seguroja",
			Subsystem: "conversation",
			Name:      "inbound_total",
			Help:      "Inbound WhatsApp messages by outcome",
		}, []string{"status"}),
		outboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "seguroja",
			Subsystem: "conversation",
			Name:      "outbound_total",
			Help:      "Outbound WhatsApp messages by kind",
		}, []string{"kind"}),
		qualifiedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "seguroja",
			Subsystem: "leads",
			Name:      "qualified_total",
			Help:      "Leads handed off to a broker",
		}),
		llmCallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "seguroja",
			Subsystem: "conversation",
			Name:      "llm_calls_total",
			Help:      "Language model calls by operation and status",
		}, []string{"operation", "status"}),
		turnLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "seguroja",
			Subsystem: "conversation",
			Name:      "turn_latency_seconds",
			Help:      "End-to-end latency of one inbound turn",
			Buckets:   prometheus.DefBuckets,
		}),
		notifyTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "seguroja",
			Subsystem: "notify",
			Name:      "handoff_total",
			Help:      "Hand-off notifications by channel and status",
		}, []string{"channel", "status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.inboundTotal, m.outboundTotal, m.qualifiedTotal, m.llmCallsTotal, m.turnLatency, m.notifyTotal)
	return m
}

func (m *ConversationMetrics) ObserveInbound(status string) {
	if m == nil {
		return
	}
	m.inboundTotal.WithLabelValues(status).Inc()
}

func (m *ConversationMetrics) ObserveOutbound(kind string) {
	if m == nil {
		return
	}
	m.outboundTotal.WithLabelValues(kind).Inc()
}

func (m *ConversationMetrics) ObserveQualified() {
	if m == nil {
		return
	}
	m.qualifiedTotal.Inc()
}

func (m *ConversationMetrics) ObserveLLMCall(operation, status string) {
	if m == nil {
		return
	}
	m.llmCallsTotal.WithLabelValues(operation, status).Inc()
}

func (m *ConversationMetrics) ObserveTurnLatency(seconds float64) {
	if m == nil {
		return
	}
	m.turnLatency.Observe(seconds)
}

func (m *ConversationMetrics) ObserveNotify(channel, status string) {
	if m == nil {
		return
	}
	m.notifyTotal.WithLabelValues(channel, status).Inc()
}
