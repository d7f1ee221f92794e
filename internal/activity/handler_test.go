package activity

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/gymguard-dashboard/internal/tenancy"
	"github.com/wolfman30/gymguard-dashboard/pkg/logging"
)

type staticGyms string

func (s staticGyms) ResolveGym(context.Context, string, string) (string, error) {
	return string(s), nil
}

func serve(t *testing.T, h *Handler, path string, withSession bool) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if withSession {
		req = req.WithContext(tenancy.WithSession(req.Context(), tenancy.Session{UserID: "user-1", AccessToken: "tok"}))
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestContactedUsesWindow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	h := NewHandler(NewStore(db), staticGyms("gym-1"), 24*time.Hour, logging.NewWithWriter("error", io.Discard))
	h.now = func() time.Time { return ts }

	mock.ExpectQuery(`FROM contacted_log`).
		WithArgs("gym-1", ts.Add(-24*time.Hour)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "member_id", "channel", "message_body", "sent_at"}).
			AddRow("c1", "M-1", "sms", "hello", ts))

	rec := serve(t, h, "/contacted", true)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Entries []ContactEntry `json:"entries"`
		Count   int            `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivityFilterPassesActions(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	h := NewHandler(NewStore(db), staticGyms("gym-1"), 0, logging.NewWithWriter("error", io.Discard))
	mock.ExpectQuery(`AND action = ANY`).
		WithArgs("gym-1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "gym_id", "user_id", "action", "entity_type", "entity_id", "metadata", "created_at"}))

	rec := serve(t, h, "/activity?action=send_sms,start_mass_campaign", true)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivityRequiresSession(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	h := NewHandler(NewStore(db), staticGyms("gym-1"), 0, nil)
	rec := serve(t, h, "/reports/failures", false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
