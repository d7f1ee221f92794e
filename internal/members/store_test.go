package members

import (
	"context"
	"errors"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"
)

var memberCols = []string{"id", "member_id", "first_name", "last_name", "last_churn_score", "last_score_date",
	"is_high_risk", "last_contacted_at", "sms_opted_out", "gym_id", "email", "phone"}

func TestStoreListWatchlist(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	contacted := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	phone := "+15550001111"
	rows := pgxmock.NewRows(memberCols).
		AddRow("1", "m1", "High", "Risk", score(95), nil, true, nil, false, "gym-1", nil, &phone).
		AddRow("2", "m2", "Med", "Risk", score(65), nil, true, &contacted, false, "gym-1", nil, nil).
		AddRow("3", "m3", "No", "Score", nil, nil, true, nil, true, "gym-1", nil, nil)

	cutoff := time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`FROM members\s+WHERE gym_id = \$1\s+AND is_high_risk = true`).
		WithArgs("gym-1", cutoff).
		WillReturnRows(rows)

	got, err := NewStore(mock).ListWatchlist(context.Background(), "gym-1", cutoff)
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Equal(t, "m1", got[0].MemberID)
	require.Equal(t, 95.0, *got[0].LastChurnScore)
	require.Equal(t, phone, *got[0].Phone)
	require.Nil(t, got[0].LastContactedAt)
	require.Equal(t, contacted, *got[1].LastContactedAt)
	require.Nil(t, got[2].LastChurnScore)
	require.True(t, got[2].SMSOptedOut)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreListWatchlistQueryError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("FROM members").WillReturnError(errors.New("connection reset"))

	_, err = NewStore(mock).ListWatchlist(context.Background(), "gym-1", time.Now())
	require.ErrorContains(t, err, "members: list watchlist")
}

func TestStoreGetByMemberIDNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("FROM members").
		WithArgs("gym-1", "missing").
		WillReturnRows(pgxmock.NewRows(memberCols))

	_, err = NewStore(mock).GetByMemberID(context.Background(), "gym-1", "missing")
	require.ErrorIs(t, err, ErrMemberNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreGetByMemberID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("FROM members").
		WithArgs("gym-1", "m1").
		WillReturnRows(pgxmock.NewRows(memberCols).
			AddRow("1", "m1", "High", "Risk", score(95), nil, true, nil, false, "gym-1", nil, nil))

	m, err := NewStore(mock).GetByMemberID(context.Background(), "gym-1", "m1")
	require.NoError(t, err)
	require.Equal(t, "High Risk", m.FullName())
}

func TestStoreScoreHistory(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("FROM member_score_history").
		WithArgs("gym-1", "m1", HistoryLimit).
		WillReturnRows(pgxmock.NewRows([]string{"id", "churn_score", "score_date"}).
			AddRow("h2", 81.5, day0).
			AddRow("h1", 77.0, day0.AddDate(0, 0, -1)))

	history, err := NewStore(mock).ScoreHistory(context.Background(), "gym-1", "m1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, TrendRising, TrendOf(history))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreListRosterOrders(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`FROM members\s+WHERE gym_id = \$1\s+ORDER BY last_name ASC, first_name ASC, id ASC`).
		WithArgs("gym-1").
		WillReturnRows(pgxmock.NewRows(memberCols).
			AddRow("2", "m2", "Ana", "Alvarez", nil, nil, false, nil, false, "gym-1", nil, nil).
			AddRow("1", "m1", "Zed", "Zimmer", score(80), nil, true, nil, false, "gym-1", nil, nil))
	mock.ExpectQuery(`ORDER BY last_churn_score DESC NULLS LAST, id ASC`).
		WithArgs("gym-2").
		WillReturnRows(pgxmock.NewRows(memberCols))

	store := NewStore(mock)
	got, err := store.ListRoster(context.Background(), "gym-1", ByLastName)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "Alvarez", got[0].LastName)
	require.False(t, got[0].IsHighRisk)

	got, err = store.ListRoster(context.Background(), "gym-2", ByRisk)
	require.NoError(t, err)
	require.Empty(t, got)
	require.NoError(t, mock.ExpectationsWereMet())
}
