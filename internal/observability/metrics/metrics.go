package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DashboardMetrics exposes counters/histograms for watchlist and outreach flows.
type DashboardMetrics struct {
	watchlistLoads  *prometheus.CounterVec
	watchlistSize   prometheus.Histogram
	outreachTotal   *prometheus.CounterVec
	outreachLatency *prometheus.HistogramVec
	guardRejections *prometheus.CounterVec
	progressPolls   *prometheus.CounterVec
}

func NewDashboardMetrics(reg prometheus.Registerer) *DashboardMetrics {
	m := &DashboardMetrics{
		watchlistLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gymguard",
			Subsystem: "watchlist",
			Name:      "loads_total",
			Help:      "Total watchlist loads by outcome",
		}, []string{"status"}),
		watchlistSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "gymguard",
			Subsystem: "watchlist",
			Name:      "eligible_members",
			Help:      "Number of eligible members per watchlist load",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250, 500},
		}),
		outreachTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gymguard",
			Subsystem: "outreach",
			Name:      "actions_total",
			Help:      "Total outreach actions by kind and outcome",
		}, []string{"action", "status"}),
		outreachLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "gymguard",
			Subsystem: "outreach",
			Name:      "action_latency_seconds",
			Help:      "Latency of outreach API calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"action"}),
		guardRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gymguard",
			Subsystem: "outreach",
			Name:      "inflight_rejections_total",
			Help:      "Outreach actions rejected because another was in flight",
		}, []string{"action"}),
		progressPolls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gymguard",
			Subsystem: "campaigns",
			Name:      "progress_polls_total",
			Help:      "Campaign progress snapshots by outcome",
		}, []string{"status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.watchlistLoads, m.watchlistSize, m.outreachTotal, m.outreachLatency, m.guardRejections, m.progressPolls)
	return m
}

// ObserveWatchlistLoad records a load; a failed load counts zero members.
func (m *DashboardMetrics) ObserveWatchlistLoad(err error, eligible int) {
	if m == nil {
		return
	}
	m.watchlistLoads.WithLabelValues(statusLabel(err)).Inc()
	if err == nil {
		m.watchlistSize.Observe(float64(eligible))
	}
}

func (m *DashboardMetrics) ObserveOutreach(action string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.outreachTotal.WithLabelValues(action, statusLabel(err)).Inc()
	m.outreachLatency.WithLabelValues(action).Observe(elapsed.Seconds())
}

func (m *DashboardMetrics) ObserveInFlightRejection(action string) {
	if m == nil {
		return
	}
	m.guardRejections.WithLabelValues(action).Inc()
}

func (m *DashboardMetrics) ObserveProgressPoll(err error) {
	if m == nil {
		return
	}
	m.progressPolls.WithLabelValues(statusLabel(err)).Inc()
}

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
