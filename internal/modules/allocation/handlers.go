package allocation

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/portfolio-advisor/internal/domain"
)

// Handler handles allocation target HTTP requests
type Handler struct {
	service *Service
	log     zerolog.Logger
}

// NewHandler creates a new allocation handler
func NewHandler(service *Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "allocation").Logger(),
	}
}

// RegisterRoutes mounts allocation target routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/targets", func(r chi.Router) {
		r.Get("/", h.handleGetTargets)
		r.Put("/{ticker}", h.handleSetTarget)
		r.Delete("/{ticker}", h.handleDeleteTarget)
	})
}

func (h *Handler) handleGetTargets(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.GetTargets(userID(r))
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, resp)
}

type setTargetRequest struct {
	TargetPct decimal.Decimal `json:"target_percentage"`
}

func (h *Handler) handleSetTarget(w http.ResponseWriter, r *http.Request) {
	var req setTargetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	target := domain.AllocationTarget{
		Ticker:    chi.URLParam(r, "ticker"),
		TargetPct: req.TargetPct,
	}

	if err := h.service.SetTarget(userID(r), target); err != nil {
		switch {
		case domain.IsValidation(err):
			h.writeError(w, http.StatusBadRequest, err.Error())
		case domain.IsNotFound(err):
			h.writeError(w, http.StatusNotFound, err.Error())
		default:
			h.writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleDeleteTarget(w http.ResponseWriter, r *http.Request) {
	if err := h.service.RemoveTarget(userID(r), chi.URLParam(r, "ticker")); err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func userID(r *http.Request) string {
	if id := r.Header.Get("X-User-ID"); id != "" {
		return id
	}
	return "default"
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes an error response
func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{
		"error": message,
	})
}
