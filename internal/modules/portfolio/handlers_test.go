package portfolio

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/portfolio-advisor/internal/domain"
)

type stubTargets struct{}

func (stubTargets) GetByUser(string) ([]domain.AllocationTarget, error) { return nil, nil }

type stubCatalog struct{}

func (stubCatalog) Exists(string) (bool, error) { return true, nil }

type stubPrices struct{}

func (stubPrices) GetCurrentPrices(context.Context, []string) (map[string]decimal.Decimal, error) {
	return map[string]decimal.Decimal{}, nil
}

func newTestHandler(t *testing.T) (*Handler, *TransactionRepository, *SnapshotRepository) {
	t.Helper()

	db := testDB(t)
	txRepo := NewTransactionRepository(db.Conn(), zerolog.Nop())
	snapRepo := NewSnapshotRepository(db.Conn(), zerolog.Nop())

	svc := NewService(txRepo, snapRepo, stubTargets{}, stubCatalog{}, stubPrices{}, zerolog.Nop())
	return NewHandler(svc, zerolog.Nop()), txRepo, snapRepo
}

func serveRequest(h *Handler, method, target string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	h.RegisterRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestHandleListTransactions_TickerFilter(t *testing.T) {
	h, txRepo, _ := newTestHandler(t)

	for _, ticker := range []string{"AAPL", "MSFT", "AAPL"} {
		tx := storedTx(ticker, 1)
		tx.UserID = "default"
		_, err := txRepo.Create(tx)
		require.NoError(t, err)
	}

	rec := serveRequest(h, http.MethodGet, "/transactions/?ticker=aapl")
	require.Equal(t, http.StatusOK, rec.Code)

	var got []domain.Transaction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))

	// Case-insensitive ticker filter.
	require.Len(t, got, 2)
	for _, tx := range got {
		assert.Equal(t, "AAPL", tx.Ticker)
	}
}

func TestHandleGetHistory(t *testing.T) {
	h, _, snapRepo := newTestHandler(t)

	for _, date := range []string{"2026-03-01", "2026-03-02", "2026-03-03"} {
		require.NoError(t, snapRepo.Save(domain.PortfolioSnapshot{
			UserID:     "default",
			Date:       date,
			TotalValue: decimal.NewFromInt(1000),
			CostBasis:  decimal.NewFromInt(900),
		}))
	}

	rec := serveRequest(h, http.MethodGet, "/portfolio/history?limit=2")
	require.Equal(t, http.StatusOK, rec.Code)

	var got []domain.PortfolioSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))

	require.Len(t, got, 2)
	assert.Equal(t, "2026-03-03", got[0].Date)
	assert.Equal(t, "2026-03-02", got[1].Date)
}

func TestHandleGetHistory_InvalidLimit(t *testing.T) {
	h, _, _ := newTestHandler(t)

	rec := serveRequest(h, http.MethodGet, "/portfolio/history?limit=zero")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
