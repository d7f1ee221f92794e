package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			if labelsMatch(metric, labels) {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func labelsMatch(metric *dto.Metric, want map[string]string) bool {
	matched := 0
	for _, lp := range metric.GetLabel() {
		if v, ok := want[lp.GetName()]; ok && v == lp.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}

func TestDashboardMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewDashboardMetrics(reg)

	m.ObserveWatchlistLoad(nil, 3)
	m.ObserveWatchlistLoad(errors.New("db down"), 0)
	m.ObserveOutreach("send_sms", nil, 120*time.Millisecond)
	m.ObserveOutreach("send_sms", errors.New("502"), time.Second)
	m.ObserveInFlightRejection("start_mass")
	m.ObserveProgressPoll(nil)

	if got := counterValue(t, reg, "gymguard_watchlist_loads_total", map[string]string{"status": "error"}); got != 1 {
		t.Fatalf("expected 1 failed load, got %v", got)
	}
	if got := counterValue(t, reg, "gymguard_outreach_actions_total", map[string]string{"action": "send_sms", "status": "ok"}); got != 1 {
		t.Fatalf("expected 1 successful send, got %v", got)
	}
	if got := counterValue(t, reg, "gymguard_outreach_inflight_rejections_total", map[string]string{"action": "start_mass"}); got != 1 {
		t.Fatalf("expected 1 rejection, got %v", got)
	}
	if got := counterValue(t, reg, "gymguard_campaigns_progress_polls_total", map[string]string{"status": "ok"}); got != 1 {
		t.Fatalf("expected 1 poll, got %v", got)
	}
}

func TestDashboardMetricsNilSafe(t *testing.T) {
	var m *DashboardMetrics
	m.ObserveWatchlistLoad(nil, 1)
	m.ObserveOutreach("send_sms", nil, time.Millisecond)
	m.ObserveInFlightRejection("send_sms")
	m.ObserveProgressPoll(nil)
}
