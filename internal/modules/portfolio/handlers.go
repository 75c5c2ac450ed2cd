package portfolio

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/portfolio-advisor/internal/domain"
)

// defaultHistoryLimit caps the snapshot history response when the caller
// does not ask for a specific window. Roughly a year of daily snapshots.
const defaultHistoryLimit = 365

// Handler handles portfolio and transaction HTTP requests
type Handler struct {
	service *Service
	log     zerolog.Logger
}

// NewHandler creates a new portfolio handler
func NewHandler(service *Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "portfolio").Logger(),
	}
}

// RegisterRoutes mounts portfolio and transaction routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/portfolio", func(r chi.Router) {
		r.Get("/positions", h.handleGetPositions)
		r.Get("/history", h.handleGetHistory)
	})
	r.Route("/transactions", func(r chi.Router) {
		r.Get("/", h.handleListTransactions)
		r.Post("/", h.handleCreateTransaction)
		r.Delete("/{id}", h.handleDeleteTransaction)
	})
}

// transactionRequest is the wire shape for creating a transaction.
type transactionRequest struct {
	Ticker      string           `json:"ticker"`
	Type        string           `json:"type"`
	Date        string           `json:"date"` // YYYY-MM-DD or RFC3339
	Quantity    decimal.Decimal  `json:"shares_quantity"`
	Price       decimal.Decimal  `json:"share_price"`
	Fees        decimal.Decimal  `json:"fees"`
	Tax         decimal.Decimal  `json:"tax"`
	TotalAmount *decimal.Decimal `json:"total_amount,omitempty"`
}

func (h *Handler) handleGetPositions(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.GetPositions(r.Context(), userID(r))
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, view)
}

func (h *Handler) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	var transactions []domain.Transaction
	var err error

	if ticker := r.URL.Query().Get("ticker"); ticker != "" {
		transactions, err = h.service.GetTransactionsByTicker(userID(r), ticker)
	} else {
		transactions, err = h.service.GetTransactions(userID(r))
	}
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if transactions == nil {
		transactions = []domain.Transaction{}
	}
	h.writeJSON(w, http.StatusOK, transactions)
}

func (h *Handler) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			h.writeError(w, http.StatusBadRequest, "invalid limit: "+raw)
			return
		}
		limit = parsed
	}

	snapshots, err := h.service.GetValueHistory(userID(r), limit)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if snapshots == nil {
		snapshots = []domain.PortfolioSnapshot{}
	}
	h.writeJSON(w, http.StatusOK, snapshots)
}

func (h *Handler) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	date, err := parseDate(req.Date)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid date: "+req.Date)
		return
	}

	tx := domain.Transaction{
		Ticker:      req.Ticker,
		Type:        domain.TransactionType(req.Type),
		Date:        date,
		Quantity:    req.Quantity,
		Price:       req.Price,
		Fees:        req.Fees,
		Tax:         req.Tax,
		TotalAmount: req.TotalAmount,
	}

	created, err := h.service.RecordTransaction(userID(r), tx)
	if err != nil {
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

	h.writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.service.DeleteTransaction(userID(r), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			h.writeError(w, http.StatusNotFound, "transaction not found")
			return
		}
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// userID extracts the caller identity. Defaulting for unauthenticated callers
// is a policy of this HTTP layer, not of the engines underneath.
func userID(r *http.Request) string {
	if id := r.Header.Get("X-User-ID"); id != "" {
		return id
	}
	return "default"
}

func parseDate(value string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, value)
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
