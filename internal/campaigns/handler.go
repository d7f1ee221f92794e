package campaigns

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"golang.org/x/net/websocket"

	"github.com/wolfman30/gymguard-dashboard/internal/accounts"
	"github.com/wolfman30/gymguard-dashboard/internal/tenancy"
	"github.com/wolfman30/gymguard-dashboard/pkg/logging"
)

// GymResolver maps the caller onto the gym a request acts on.
type GymResolver interface {
	ResolveGym(ctx context.Context, userID, target string) (string, error)
}

// Handler serves campaign progress as JSON and as a websocket stream.
type Handler struct {
	source Source
	poller *Poller
	gyms   GymResolver
	logger *logging.Logger
}

func NewHandler(source Source, poller *Poller, gyms GymResolver, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{source: source, poller: poller, gyms: gyms, logger: logger}
}

// RegisterRoutes mounts progress endpoints. Expected under /campaigns.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/{campaignID}/progress", h.getProgress)
	r.Get("/{campaignID}/progress/ws", h.streamProgress)
}

// StreamMessage is one frame on the progress websocket.
type StreamMessage struct {
	Type     string    `json:"type"`
	Snapshot *Snapshot `json:"snapshot,omitempty"`
	Detail   string    `json:"detail,omitempty"`
}

func (h *Handler) resolve(w http.ResponseWriter, r *http.Request) (string, bool) {
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
		h.logger.Error("campaigns handler: resolve gym", "error", err)
		writeDetail(w, http.StatusInternalServerError, "internal error")
		return "", false
	}
	return gymID, true
}

func (h *Handler) getProgress(w http.ResponseWriter, r *http.Request) {
	gymID, ok := h.resolve(w, r)
	if !ok {
		return
	}
	snap, err := h.source.Snapshot(r.Context(), gymID, chi.URLParam(r, "campaignID"))
	if errors.Is(err, ErrCampaignNotFound) {
		writeDetail(w, http.StatusNotFound, "Campaign not found.")
		return
	}
	if err != nil {
		h.logger.Error("campaigns handler: snapshot", "error", err)
		writeDetail(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(snap)
}

// streamProgress pushes a snapshot per poll until the campaign is done or
// the client goes away.
func (h *Handler) streamProgress(w http.ResponseWriter, r *http.Request) {
	gymID, ok := h.resolve(w, r)
	if !ok {
		return
	}
	campaignID := chi.URLParam(r, "campaignID")
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveWS(conn, r.Context(), gymID, campaignID)
	}).ServeHTTP(w, r)
}

func (h *Handler) serveWS(conn *websocket.Conn, parent context.Context, gymID, campaignID string) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	// Any inbound frame or read error (client close) tears the poller down.
	go func() {
		defer cancel()
		var discard json.RawMessage
		for {
			if err := websocket.JSON.Receive(conn, &discard); err != nil {
				return
			}
		}
	}()

	err := h.poller.Run(ctx, gymID, campaignID, func(s *Snapshot) error {
		if err := websocket.JSON.Send(conn, StreamMessage{Type: "progress", Snapshot: s}); err != nil {
			return err
		}
		if s.Done {
			return ErrStopPolling
		}
		return nil
	})
	switch {
	case errors.Is(err, ErrCampaignNotFound):
		_ = websocket.JSON.Send(conn, StreamMessage{Type: "error", Detail: "Campaign not found."})
	case err != nil && ctx.Err() == nil:
		h.logger.Warn("campaigns: progress stream ended", "campaign_id", campaignID, "error", err)
	default:
		_ = websocket.JSON.Send(conn, StreamMessage{Type: "done"})
	}
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}
