package members

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/gymguard-dashboard/internal/accounts"
	"github.com/wolfman30/gymguard-dashboard/internal/tenancy"
	"github.com/wolfman30/gymguard-dashboard/pkg/logging"
)

// Reader is the subset of Store the directory and detail pages need.
type Reader interface {
	ListRoster(ctx context.Context, gymID string, order RosterOrder) ([]Member, error)
	GetByMemberID(ctx context.Context, gymID, memberID string) (*Member, error)
	ScoreHistory(ctx context.Context, gymID, memberID string) ([]ScorePoint, error)
}

// GymResolver maps the caller onto the gym a request acts on.
type GymResolver interface {
	ResolveGym(ctx context.Context, userID, target string) (string, error)
}

// Detail is the member page: row, risk presentation and score history.
type Detail struct {
	Member  Member       `json:"member"`
	Risk    RiskView     `json:"risk"`
	History []ScorePoint `json:"history"`
	Trend   Trend        `json:"trend"`
}

// Handler serves the member directory and detail pages.
type Handler struct {
	reader Reader
	gyms   GymResolver
	logger *logging.Logger
}

func NewHandler(reader Reader, gyms GymResolver, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{reader: reader, gyms: gyms, logger: logger}
}

// RegisterRoutes mounts member endpoints. Expected under /members.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.listRoster)
	r.Get("/{memberID}", h.getDetail)
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
		h.logger.Error("members handler: resolve gym", "error", err)
		writeDetail(w, http.StatusInternalServerError, "internal error")
		return "", false
	}
	return gymID, true
}

// Roster is the member directory, sorted by last name.
type Roster struct {
	Members []Member `json:"members"`
	Count   int      `json:"count"`
}

func (h *Handler) listRoster(w http.ResponseWriter, r *http.Request) {
	gymID, ok := h.gym(w, r)
	if !ok {
		return
	}
	list, err := h.reader.ListRoster(r.Context(), gymID, ByLastName)
	if err != nil {
		h.logger.Error("members handler: list roster", "error", err)
		writeDetail(w, http.StatusInternalServerError, "internal error")
		return
	}
	if list == nil {
		list = []Member{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(Roster{Members: list, Count: len(list)})
}

func (h *Handler) getDetail(w http.ResponseWriter, r *http.Request) {
	gymID, ok := h.gym(w, r)
	if !ok {
		return
	}

	memberID := chi.URLParam(r, "memberID")
	m, err := h.reader.GetByMemberID(r.Context(), gymID, memberID)
	if errors.Is(err, ErrMemberNotFound) {
		writeDetail(w, http.StatusNotFound, "Member not found.")
		return
	}
	if err != nil {
		h.logger.Error("members handler: get member", "member_id", memberID, "error", err)
		writeDetail(w, http.StatusInternalServerError, "internal error")
		return
	}

	history, err := h.reader.ScoreHistory(r.Context(), gymID, memberID)
	if err != nil {
		h.logger.Error("members handler: score history", "member_id", memberID, "error", err)
		history = nil
	}
	if history == nil {
		history = []ScorePoint{}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(Detail{
		Member:  *m,
		Risk:    ViewFor(m.LastChurnScore),
		History: history,
		Trend:   TrendOf(history),
	})
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}
