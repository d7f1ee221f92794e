// Package admin serves the support views that let an admin browse every gym
// and inspect one gym's roster before switching into it.
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/gymguard-dashboard/internal/accounts"
	"github.com/wolfman30/gymguard-dashboard/internal/members"
	"github.com/wolfman30/gymguard-dashboard/internal/tenancy"
	"github.com/wolfman30/gymguard-dashboard/pkg/logging"
)

// Accounts is the subset of accounts.Store the admin views need.
type Accounts interface {
	GetProfile(ctx context.Context, userID string) (*accounts.Profile, error)
	ListGyms(ctx context.Context) ([]accounts.Gym, error)
	GetGym(ctx context.Context, gymID string) (*accounts.Gym, error)
}

// Roster lists a gym's members.
type Roster interface {
	ListRoster(ctx context.Context, gymID string, order members.RosterOrder) ([]members.Member, error)
}

// GymList is the all-gyms page.
type GymList struct {
	Gyms  []accounts.Gym `json:"gyms"`
	Count int            `json:"count"`
}

// MemberRow is a roster member with its risk presentation.
type MemberRow struct {
	members.Member
	Risk members.RiskView `json:"risk"`
}

// GymRoster is one gym's members, highest risk first.
type GymRoster struct {
	Gym     accounts.Gym `json:"gym"`
	Members []MemberRow  `json:"members"`
	Count   int          `json:"count"`
}

type Handler struct {
	accounts Accounts
	roster   Roster
	logger   *logging.Logger
}

func NewHandler(accts Accounts, roster Roster, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{accounts: accts, roster: roster, logger: logger}
}

// RegisterRoutes mounts admin endpoints. Expected under /admin.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Use(h.requireAdmin)
	r.Get("/gyms", h.listGyms)
	r.Get("/gyms/{gymID}/members", h.gymMembers)
}

func (h *Handler) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, ok := tenancy.SessionFromContext(r.Context())
		if !ok {
			writeDetail(w, http.StatusUnauthorized, "authentication required")
			return
		}
		profile, err := h.accounts.GetProfile(r.Context(), session.UserID)
		if errors.Is(err, accounts.ErrProfileNotFound) {
			writeDetail(w, http.StatusForbidden, "no gym profile for this user")
			return
		}
		if err != nil {
			h.logger.Error("admin handler: load profile", "error", err)
			writeDetail(w, http.StatusInternalServerError, "internal error")
			return
		}
		if !profile.IsAdmin() {
			writeDetail(w, http.StatusForbidden, "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) listGyms(w http.ResponseWriter, r *http.Request) {
	gyms, err := h.accounts.ListGyms(r.Context())
	if err != nil {
		h.logger.Error("admin handler: list gyms", "error", err)
		writeDetail(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, GymList{Gyms: gyms, Count: len(gyms)})
}

func (h *Handler) gymMembers(w http.ResponseWriter, r *http.Request) {
	gymID := chi.URLParam(r, "gymID")
	gym, err := h.accounts.GetGym(r.Context(), gymID)
	if errors.Is(err, accounts.ErrGymNotFound) {
		writeDetail(w, http.StatusNotFound, "Gym not found.")
		return
	}
	if err != nil {
		h.logger.Error("admin handler: get gym", "gym_id", gymID, "error", err)
		writeDetail(w, http.StatusInternalServerError, "internal error")
		return
	}
	list, err := h.roster.ListRoster(r.Context(), gymID, members.ByRisk)
	if err != nil {
		h.logger.Error("admin handler: gym roster", "gym_id", gymID, "error", err)
		writeDetail(w, http.StatusInternalServerError, "internal error")
		return
	}
	rows := make([]MemberRow, 0, len(list))
	for _, m := range list {
		rows = append(rows, MemberRow{Member: m, Risk: members.ViewFor(m.LastChurnScore)})
	}
	writeJSON(w, GymRoster{Gym: *gym, Members: rows, Count: len(rows)})
}

func writeJSON(w http.ResponseWriter, body any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}
