package activity

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/gymguard-dashboard/internal/accounts"
	"github.com/wolfman30/gymguard-dashboard/internal/tenancy"
	"github.com/wolfman30/gymguard-dashboard/pkg/logging"
)

// GymResolver maps the caller onto the gym a request acts on.
type GymResolver interface {
	ResolveGym(ctx context.Context, userID, target string) (string, error)
}

// Handler exposes the activity reports.
type Handler struct {
	store  *Store
	gyms   GymResolver
	window time.Duration
	now    func() time.Time
	logger *logging.Logger
}

// NewHandler builds the handler; window is how far back /contacted looks.
func NewHandler(store *Store, gyms GymResolver, window time.Duration, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	if window <= 0 {
		window = 24 * time.Hour
	}
	return &Handler{store: store, gyms: gyms, window: window, now: time.Now, logger: logger}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/activity", h.listAudit)
	r.Get("/contacted", h.listContacted)
	r.Get("/reports/failures", h.listFailures)
	r.Get("/reports/health", h.deliveryHealth)
	r.Get("/reports/daily", h.dailyReport)
}

func (h *Handler) gym(w http.ResponseWriter, r *http.Request) (string, bool) {
	session, ok := tenancy.SessionFromContext(r.Context())
	if !ok {
		writeDetail(w, http.StatusUnauthorized, "authentication required")
		return "", false
	}
	gymID, err := h.gyms.ResolveGym(r.Context(), session.UserID, session.TargetGymID)
	if errors.Is(err, accounts.ErrProfileNotFound) {
		writeDetail(w, http.StatusForbidden, "no gym profile for this user")
		return "", false
	}
	if err != nil {
		h.logger.Error("activity handler: resolve gym", "error", err)
		writeDetail(w, http.StatusInternalServerError, "internal error")
		return "", false
	}
	return gymID, true
}

func (h *Handler) listAudit(w http.ResponseWriter, r *http.Request) {
	gymID, ok := h.gym(w, r)
	if !ok {
		return
	}
	var actions []string
	if raw := r.URL.Query().Get("action"); raw != "" {
		actions = strings.Split(raw, ",")
	}
	entries, err := h.store.AuditLog(r.Context(), gymID, actions)
	if err != nil {
		h.logger.Error("activity handler: audit log", "error", err)
		writeDetail(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeList(w, "entries", entries, len(entries))
}

func (h *Handler) listContacted(w http.ResponseWriter, r *http.Request) {
	gymID, ok := h.gym(w, r)
	if !ok {
		return
	}
	entries, err := h.store.ContactedSince(r.Context(), gymID, h.now().Add(-h.window))
	if err != nil {
		h.logger.Error("activity handler: contacted log", "error", err)
		writeDetail(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeList(w, "entries", entries, len(entries))
}

func (h *Handler) listFailures(w http.ResponseWriter, r *http.Request) {
	gymID, ok := h.gym(w, r)
	if !ok {
		return
	}
	failures, err := h.store.DeadLetters(r.Context(), gymID)
	if err != nil {
		h.logger.Error("activity handler: dead letters", "error", err)
		writeDetail(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeList(w, "failures", failures, len(failures))
}

func (h *Handler) deliveryHealth(w http.ResponseWriter, r *http.Request) {
	gymID, ok := h.gym(w, r)
	if !ok {
		return
	}
	stats, err := h.store.DeliveryHealth(r.Context(), gymID)
	if err != nil {
		h.logger.Error("activity handler: delivery health", "error", err)
		writeDetail(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, stats)
}

// DailyReport is the reports page: recent daily metrics, the newest day as
// headline, and the latest outreach effectiveness. Latest is zeroed when no
// metrics exist yet.
type DailyReport struct {
	Metrics       []DailyMetric  `json:"metrics"`
	Latest        DailyMetric    `json:"latest"`
	LatestClicks  int            `json:"latest_clicks"`
	Effectiveness *Effectiveness `json:"effectiveness"`
}

func (h *Handler) dailyReport(w http.ResponseWriter, r *http.Request) {
	gymID, ok := h.gym(w, r)
	if !ok {
		return
	}
	metrics, err := h.store.DailyMetrics(r.Context(), gymID)
	if err != nil {
		h.logger.Error("activity handler: daily metrics", "error", err)
		writeDetail(w, http.StatusInternalServerError, "internal error")
		return
	}
	report := DailyReport{Metrics: metrics}
	if len(metrics) > 0 {
		report.Latest = metrics[0]
		report.LatestClicks = metrics[0].Clicks()
	}
	// Effectiveness is secondary; the metrics table still renders without it.
	report.Effectiveness, err = h.store.LatestEffectiveness(r.Context(), gymID)
	if err != nil {
		h.logger.Warn("activity handler: outreach effectiveness", "error", err)
		report.Effectiveness = nil
	}
	writeJSON(w, report)
}

func writeJSON(w http.ResponseWriter, body any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}

func writeList(w http.ResponseWriter, key string, items any, count int) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		key:     items,
		"count": count,
	})
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}
