package scheduler

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	outcomes     *prometheus.CounterVec
	scans        prometheus.Counter
	scanDuration prometheus.Histogram
	sendDuration *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "slotbook",
			Subsystem: "reminders",
			Name:      "outcomes_total",
			Help:      "Reminder outcomes by slot, channel and state.",
		}, []string{"slot", "channel", "state"}),
		scans: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "slotbook",
			Subsystem: "reminders",
			Name:      "scans_total",
			Help:      "Completed scheduler scans.",
		}),
		scanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "slotbook",
			Subsystem: "reminders",
			Name:      "scan_duration_seconds",
			Help:      "Time spent in one scan including dispatch.",
			Buckets:   prometheus.DefBuckets,
		}),
		sendDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "slotbook",
			Subsystem: "reminders",
			Name:      "send_duration_seconds",
			Help:      "Provider send latency by channel.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"channel"}),
	}
	reg.MustRegister(m.outcomes, m.scans, m.scanDuration, m.sendDuration)
	return m
}

func (m *Metrics) outcome(a attempt, state string) {
	m.outcomes.WithLabelValues(string(a.key.Slot), string(a.key.Channel), state).Inc()
}

func (m *Metrics) scanned(start time.Time) {
	m.scans.Inc()
	m.scanDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) sent(channel string, start time.Time) {
	m.sendDuration.WithLabelValues(channel).Observe(time.Since(start).Seconds())
}
