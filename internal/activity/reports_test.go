package activity

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/gymguard-dashboard/pkg/logging"
)

var dailyColumns = []string{
	"id", "metric_date", "high_risk_count", "contacted_last_1d_count", "sms_sent_count",
	"email_sent_count", "email_open_count", "email_click_count", "sms_click_count",
}

var effectivenessColumns = []string{"metric_date", "contacts_count", "measured_count", "avg_delta_7d", "improved_percent_7d"}

func TestDeliveryHealthCounts(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`FROM message_sends WHERE gym_id = \$1 AND final_status = 'sent'`).
		WithArgs("gym-1", SkippedOptedOut).
		WillReturnRows(sqlmock.NewRows([]string{"sent", "failed", "retrying", "dlq", "skipped"}).
			AddRow(42, 3, 2, 1, 5))

	stats, err := NewStore(db).DeliveryHealth(context.Background(), "gym-1")
	require.NoError(t, err)
	assert.Equal(t, DeliveryHealth{TotalSent: 42, TotalFailed: 3, TotalRetrying: 2, DeadLetters: 1, OptOutSkips: 5}, stats)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDailyMetricsNewestFirst(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`FROM gym_daily_metrics\s+WHERE gym_id = \$1\s+ORDER BY metric_date DESC\s+LIMIT 30`).
		WithArgs("gym-1").
		WillReturnRows(sqlmock.NewRows(dailyColumns).
			AddRow("d2", day, 7, 3, 3, 1, 1, 2, 4).
			AddRow("d1", day.AddDate(0, 0, -1), 9, 0, 0, 0, 0, 0, 0))

	metrics, err := NewStore(db).DailyMetrics(context.Background(), "gym-1")
	require.NoError(t, err)
	require.Len(t, metrics, 2)
	assert.Equal(t, 7, metrics[0].HighRiskCount)
	assert.Equal(t, 6, metrics[0].Clicks())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLatestEffectivenessAbsent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`FROM gym_outreach_effectiveness_daily`).
		WithArgs("gym-1").
		WillReturnRows(sqlmock.NewRows(effectivenessColumns))

	e, err := NewStore(db).LatestEffectiveness(context.Background(), "gym-1")
	require.NoError(t, err)
	assert.Nil(t, e)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHealthReportRoute(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	h := NewHandler(NewStore(db), staticGyms("gym-2"), time.Hour, logging.NewWithWriter("error", io.Discard))
	mock.ExpectQuery(`FROM dead_letter_messages WHERE gym_id = \$1`).
		WithArgs("gym-2", SkippedOptedOut).
		WillReturnRows(sqlmock.NewRows([]string{"sent", "failed", "retrying", "dlq", "skipped"}).
			AddRow(0, 0, 0, 0, 0))

	rec := serve(t, h, "/reports/health", true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"total_sent":0,"total_failed":0,"total_retrying":0,"dlq_count":0,"opt_out_skips":0}`, rec.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, http.StatusUnauthorized, serve(t, h, "/reports/health", false).Code)
}

func TestDailyReportRoute(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	h := NewHandler(NewStore(db), staticGyms("gym-1"), time.Hour, logging.NewWithWriter("error", io.Discard))
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`FROM gym_daily_metrics`).
		WithArgs("gym-1").
		WillReturnRows(sqlmock.NewRows(dailyColumns).AddRow("d1", day, 5, 2, 2, 0, 0, 1, 2))
	mock.ExpectQuery(`FROM gym_outreach_effectiveness_daily`).
		WithArgs("gym-1").
		WillReturnRows(sqlmock.NewRows(effectivenessColumns).AddRow(day, 12, 8, -4.5, nil))

	rec := serve(t, h, "/reports/daily", true)
	require.Equal(t, http.StatusOK, rec.Code)
	var report DailyReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	require.Len(t, report.Metrics, 1)
	assert.Equal(t, 5, report.Latest.HighRiskCount)
	assert.Equal(t, 3, report.LatestClicks)
	require.NotNil(t, report.Effectiveness)
	assert.Equal(t, 8, report.Effectiveness.MeasuredCount)
	require.NotNil(t, report.Effectiveness.AvgDelta7d)
	assert.InDelta(t, -4.5, *report.Effectiveness.AvgDelta7d, 0.001)
	assert.Nil(t, report.Effectiveness.ImprovedPercent7d)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDailyReportEmptyStillRenders(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	h := NewHandler(NewStore(db), staticGyms("gym-1"), time.Hour, logging.NewWithWriter("error", io.Discard))
	mock.ExpectQuery(`FROM gym_daily_metrics`).WithArgs("gym-1").WillReturnRows(sqlmock.NewRows(dailyColumns))
	mock.ExpectQuery(`FROM gym_outreach_effectiveness_daily`).WithArgs("gym-1").WillReturnError(errors.New("relation does not exist"))

	rec := serve(t, h, "/reports/daily", true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{
		"metrics": [],
		"latest": {"id":"","metric_date":"0001-01-01T00:00:00Z","high_risk_count":0,"contacted_last_1d_count":0,
			"sms_sent_count":0,"email_sent_count":0,"email_open_count":0,"email_click_count":0,"sms_click_count":0},
		"latest_clicks": 0,
		"effectiveness": null
	}`, rec.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}
