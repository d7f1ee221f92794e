package campaigns

import (
	"context"
	"errors"
	"time"

	"github.com/wolfman30/gymguard-dashboard/internal/observability/metrics"
	"github.com/wolfman30/gymguard-dashboard/pkg/logging"
)

// DefaultPollInterval matches the progress page refresh rate.
const DefaultPollInterval = 3 * time.Second

// ErrStopPolling may be returned by an emit func to end Run cleanly.
var ErrStopPolling = errors.New("campaigns: stop polling")

// Source produces progress snapshots.
type Source interface {
	Snapshot(ctx context.Context, gymID, campaignID string) (*Snapshot, error)
}

// Poller re-reads a campaign on a fixed interval. Ticks do not wait on
// query latency; a slow read simply drops the ticks it overlaps.
type Poller struct {
	source   Source
	interval time.Duration
	metrics  *metrics.DashboardMetrics
	logger   *logging.Logger
}

func NewPoller(source Source, interval time.Duration, m *metrics.DashboardMetrics, logger *logging.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Poller{source: source, interval: interval, metrics: m, logger: logger}
}

// Run emits a snapshot now and then once per interval until ctx is done,
// emit returns an error, or the campaign disappears. Transient read
// errors are logged and skipped.
func (p *Poller) Run(ctx context.Context, gymID, campaignID string, emit func(*Snapshot) error) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		if err := p.poll(ctx, gymID, campaignID, emit); err != nil {
			if errors.Is(err, ErrStopPolling) {
				return nil
			}
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (p *Poller) poll(ctx context.Context, gymID, campaignID string, emit func(*Snapshot) error) error {
	snap, err := p.source.Snapshot(ctx, gymID, campaignID)
	p.metrics.ObserveProgressPoll(err)
	switch {
	case errors.Is(err, ErrCampaignNotFound):
		return err
	case err != nil:
		if ctx.Err() != nil {
			return ctx.Err()
		}
		p.logger.Warn("campaigns: progress poll failed", "campaign_id", campaignID, "error", err)
		return nil
	}
	return emit(snap)
}
