package universe

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/portfolio-advisor/internal/domain"
)

// Handler handles security catalog HTTP requests
type Handler struct {
	service *Service
	log     zerolog.Logger
}

// NewHandler creates a new universe handler
func NewHandler(service *Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "universe").Logger(),
	}
}

// RegisterRoutes mounts security catalog routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/securities", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Post("/", h.handleAdd)
		r.Get("/search", h.handleSearch)
		r.Get("/{ticker}", h.handleGet)
		r.Get("/{ticker}/history", h.handleHistory)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"

	securities, err := h.service.Securities(activeOnly)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if securities == nil {
		securities = []domain.Security{}
	}
	h.writeJSON(w, http.StatusOK, securities)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	sec, err := h.service.GetSecurity(chi.URLParam(r, "ticker"))
	if err != nil {
		if domain.IsNotFound(err) {
			h.writeError(w, http.StatusNotFound, err.Error())
			return
		}
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, sec)
}

func (h *Handler) handleAdd(w http.ResponseWriter, r *http.Request) {
	var sec domain.Security
	if err := json.NewDecoder(r.Body).Decode(&sec); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := h.service.AddSecurity(sec); err != nil {
		if domain.IsValidation(err) {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.WriteHeader(http.StatusCreated)
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter q is required")
		return
	}

	results, err := h.service.Search(r.Context(), query)
	if err != nil {
		h.writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	if results == nil {
		results = []domain.Security{}
	}
	h.writeJSON(w, http.StatusOK, results)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	period := r.URL.Query().Get("period")
	if period == "" {
		period = "1Y"
	}

	points, err := h.service.GetHistoricalPrices(r.Context(), chi.URLParam(r, "ticker"), period)
	if err != nil {
		if domain.IsValidation(err) {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	if points == nil {
		points = []domain.PricePoint{}
	}
	h.writeJSON(w, http.StatusOK, points)
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
