package activity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// DailyMetricsLimit caps the daily metrics table.
const DailyMetricsLimit = 30

// SkippedOptedOut is the recipient status for members skipped because they opted out.
const SkippedOptedOut = "skipped_opted_out"

// DeliveryHealth counts outcomes recorded by the outreach worker.
type DeliveryHealth struct {
	TotalSent     int `json:"total_sent"`
	TotalFailed   int `json:"total_failed"`
	TotalRetrying int `json:"total_retrying"`
	DeadLetters   int `json:"dlq_count"`
	OptOutSkips   int `json:"opt_out_skips"`
}

// DailyMetric is one gym_daily_metrics row.
type DailyMetric struct {
	ID                   string    `json:"id"`
	MetricDate           time.Time `json:"metric_date"`
	HighRiskCount        int       `json:"high_risk_count"`
	ContactedLast1dCount int       `json:"contacted_last_1d_count"`
	SMSSentCount         int       `json:"sms_sent_count"`
	EmailSentCount       int       `json:"email_sent_count"`
	EmailOpenCount       int       `json:"email_open_count"`
	EmailClickCount      int       `json:"email_click_count"`
	SMSClickCount        int       `json:"sms_click_count"`
}

// Clicks sums SMS and email clicks.
func (m DailyMetric) Clicks() int {
	return m.SMSClickCount + m.EmailClickCount
}

// Effectiveness is one gym_outreach_effectiveness_daily row.
type Effectiveness struct {
	MetricDate        time.Time `json:"metric_date"`
	ContactsCount     int       `json:"contacts_count"`
	MeasuredCount     int       `json:"measured_count"`
	AvgDelta7d        *float64  `json:"avg_delta_7d"`
	ImprovedPercent7d *float64  `json:"improved_percent_7d"`
}

// DeliveryHealth counts sent, failed and retrying sends, dead letters, and
// recipients skipped for opt-out. Retrying means still pending or queued
// after at least one attempt.
func (s *Store) DeliveryHealth(ctx context.Context, gymID string) (DeliveryHealth, error) {
	var h DeliveryHealth
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT count(*) FROM message_sends WHERE gym_id = $1 AND final_status = 'sent'),
			(SELECT count(*) FROM message_sends WHERE gym_id = $1 AND final_status = 'failed'),
			(SELECT count(*) FROM message_sends WHERE gym_id = $1
				AND final_status IN ('pending', 'queued') AND attempt_count > 0),
			(SELECT count(*) FROM dead_letter_messages WHERE gym_id = $1),
			(SELECT count(*) FROM campaign_recipients cr
				JOIN campaigns c ON c.id = cr.campaign_id
				WHERE c.gym_id = $1 AND cr.status = $2)
	`, gymID, SkippedOptedOut).Scan(&h.TotalSent, &h.TotalFailed, &h.TotalRetrying, &h.DeadLetters, &h.OptOutSkips)
	if err != nil {
		return DeliveryHealth{}, fmt.Errorf("activity: delivery health: %w", err)
	}
	return h, nil
}

// DailyMetrics returns up to DailyMetricsLimit days, newest first.
func (s *Store) DailyMetrics(ctx context.Context, gymID string) ([]DailyMetric, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, metric_date, high_risk_count, contacted_last_1d_count, sms_sent_count,
			email_sent_count, email_open_count, email_click_count, sms_click_count
		FROM gym_daily_metrics
		WHERE gym_id = $1
		ORDER BY metric_date DESC
		LIMIT %d`, DailyMetricsLimit), gymID)
	if err != nil {
		return nil, fmt.Errorf("activity: query daily metrics: %w", err)
	}
	defer rows.Close()

	out := make([]DailyMetric, 0)
	for rows.Next() {
		var m DailyMetric
		if err := rows.Scan(&m.ID, &m.MetricDate, &m.HighRiskCount, &m.ContactedLast1dCount, &m.SMSSentCount,
			&m.EmailSentCount, &m.EmailOpenCount, &m.EmailClickCount, &m.SMSClickCount); err != nil {
			return nil, fmt.Errorf("activity: scan daily metric: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// LatestEffectiveness returns the newest effectiveness row, or nil when the
// gym has none yet.
func (s *Store) LatestEffectiveness(ctx context.Context, gymID string) (*Effectiveness, error) {
	var (
		e               Effectiveness
		delta, improved sql.NullFloat64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT metric_date, contacts_count, measured_count, avg_delta_7d, improved_percent_7d
		FROM gym_outreach_effectiveness_daily
		WHERE gym_id = $1
		ORDER BY metric_date DESC
		LIMIT 1
	`, gymID).Scan(&e.MetricDate, &e.ContactsCount, &e.MeasuredCount, &delta, &improved)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("activity: latest effectiveness: %w", err)
	}
	if delta.Valid {
		e.AvgDelta7d = &delta.Float64
	}
	if improved.Valid {
		e.ImprovedPercent7d = &improved.Float64
	}
	return &e, nil
}
