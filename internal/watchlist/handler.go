package watchlist

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/gymguard-dashboard/internal/accounts"
	"github.com/wolfman30/gymguard-dashboard/internal/compliance"
	"github.com/wolfman30/gymguard-dashboard/internal/members"
	"github.com/wolfman30/gymguard-dashboard/internal/outreach"
	"github.com/wolfman30/gymguard-dashboard/internal/tenancy"
	"github.com/wolfman30/gymguard-dashboard/pkg/logging"
)

// Handler exposes the watchlist view and its actions over HTTP.
type Handler struct {
	views  *Registry
	logger *logging.Logger
}

func NewHandler(views *Registry, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{views: views, logger: logger}
}

// RegisterRoutes mounts watchlist endpoints. Expected under /watchlist.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.getView)
	r.Post("/refresh", h.refresh)

	r.Post("/compose", h.selectMember)
	r.Put("/compose", h.editDraft)
	r.Delete("/compose", h.cancelCompose)
	r.Post("/compose/send", h.sendSingle)

	r.Post("/mass", h.requestMass)
	r.Delete("/mass", h.cancelMass)
	r.Post("/mass/confirm", h.confirmMass)
}

func (h *Handler) view(w http.ResponseWriter, r *http.Request) (*ViewModel, bool) {
	session, ok := tenancy.SessionFromContext(r.Context())
	if !ok {
		h.writeError(w, ErrUnauthenticated)
		return nil, false
	}
	vm, err := h.views.Get(r.Context(), session)
	if err != nil {
		h.writeError(w, err)
		return nil, false
	}
	return vm, true
}

func (h *Handler) getView(w http.ResponseWriter, r *http.Request) {
	vm, ok := h.view(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, vm.View())
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	vm, ok := h.view(w, r)
	if !ok {
		return
	}
	if err := vm.Load(r.Context()); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, vm.View())
}

type selectRequest struct {
	MemberID string `json:"member_id"`
}

func (h *Handler) selectMember(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.MemberID == "" {
		writeDetail(w, http.StatusBadRequest, "member_id is required")
		return
	}
	vm, ok := h.view(w, r)
	if !ok {
		return
	}
	compose, err := vm.Select(req.MemberID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, compose)
}

type draftRequest struct {
	MessageBody string `json:"message_body"`
}

func (h *Handler) editDraft(w http.ResponseWriter, r *http.Request) {
	var req draftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	vm, ok := h.view(w, r)
	if !ok {
		return
	}
	compose, err := vm.EditDraft(req.MessageBody)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, compose)
}

func (h *Handler) cancelCompose(w http.ResponseWriter, r *http.Request) {
	vm, ok := h.view(w, r)
	if !ok {
		return
	}
	if err := vm.Cancel(); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, vm.View())
}

func (h *Handler) sendSingle(w http.ResponseWriter, r *http.Request) {
	vm, ok := h.view(w, r)
	if !ok {
		return
	}
	if err := vm.Confirm(r.Context()); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, vm.View())
}

func (h *Handler) requestMass(w http.ResponseWriter, r *http.Request) {
	vm, ok := h.view(w, r)
	if !ok {
		return
	}
	mass, err := vm.RequestMassSend()
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mass)
}

func (h *Handler) cancelMass(w http.ResponseWriter, r *http.Request) {
	vm, ok := h.view(w, r)
	if !ok {
		return
	}
	if err := vm.CancelMassSend(); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, vm.View())
}

func (h *Handler) confirmMass(w http.ResponseWriter, r *http.Request) {
	// The body is optional; an empty one, chunked or not, means the default template.
	var req draftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeDetail(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	vm, ok := h.view(w, r)
	if !ok {
		return
	}
	result, err := vm.ConfirmMassSend(r.Context(), req.MessageBody)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// writeError maps view model errors onto status codes with a {detail} body.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var actionErr *ActionError
	switch {
	case errors.As(err, &actionErr):
		writeDetail(w, http.StatusBadGateway, actionErr.Message)
	case errors.Is(err, ErrUnauthenticated):
		writeDetail(w, http.StatusUnauthorized, "authentication required")
	case errors.Is(err, accounts.ErrProfileNotFound):
		writeDetail(w, http.StatusForbidden, "no gym profile for this user")
	case errors.Is(err, members.ErrMemberNotFound):
		writeDetail(w, http.StatusNotFound, "member not found on watchlist")
	case errors.Is(err, ErrActionInFlight),
		errors.Is(err, ErrNotComposing),
		errors.Is(err, ErrNoMassPending),
		errors.Is(err, ErrNotInitialized):
		writeDetail(w, http.StatusConflict, err.Error())
	case errors.Is(err, outreach.ErrNoEligibleMembers):
		writeDetail(w, http.StatusUnprocessableEntity, "No eligible members found for outreach.")
	case errors.Is(err, ErrOptedOut),
		errors.Is(err, compliance.ErrEmptyTemplate),
		errors.Is(err, compliance.ErrMissingOptOut),
		errors.Is(err, compliance.ErrTemplateTooLong):
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
	default:
		h.logger.Error("watchlist handler: unexpected error", "error", err)
		writeDetail(w, http.StatusInternalServerError, "internal error")
	}
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
