package portfolio

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/portfolio-advisor/internal/database"
	"github.com/aristath/portfolio-advisor/internal/domain"
)

func testDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.Migrate())
	return db
}

func storedTx(ticker string, day int) domain.Transaction {
	return domain.Transaction{
		Ticker:   ticker,
		Type:     domain.TransactionBuy,
		Date:     time.Date(2026, 3, day, 0, 0, 0, 0, time.UTC),
		Quantity: decimal.NewFromInt(10),
		Price:    decimal.NewFromInt(100),
		Fees:     decimal.Zero,
		Tax:      decimal.Zero,
	}
}

func TestTransactionRepository_GetByUserAndTicker(t *testing.T) {
	repo := NewTransactionRepository(testDB(t).Conn(), zerolog.Nop())

	for i, tx := range []domain.Transaction{
		storedTx("AAPL", 3),
		storedTx("MSFT", 1),
		storedTx("AAPL", 1),
	} {
		tx.UserID = "alice"
		_, err := repo.Create(tx)
		require.NoError(t, err, "transaction %d", i)
	}
	other := storedTx("AAPL", 2)
	other.UserID = "bob"
	_, err := repo.Create(other)
	require.NoError(t, err)

	got, err := repo.GetByUserAndTicker("alice", "AAPL")
	require.NoError(t, err)

	require.Len(t, got, 2)
	// Oldest first, and scoped to the requesting user.
	assert.Equal(t, 1, got[0].Date.Day())
	assert.Equal(t, 3, got[1].Date.Day())
	for _, tx := range got {
		assert.Equal(t, "alice", tx.UserID)
		assert.Equal(t, "AAPL", tx.Ticker)
	}

	empty, err := repo.GetByUserAndTicker("alice", "TSLA")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestSnapshotRepository_SaveAndGetByUser(t *testing.T) {
	repo := NewSnapshotRepository(testDB(t).Conn(), zerolog.Nop())

	for _, snap := range []domain.PortfolioSnapshot{
		{UserID: "alice", Date: "2026-03-01", TotalValue: decimal.NewFromInt(1000), CostBasis: decimal.NewFromInt(900), PositionCount: 2},
		{UserID: "alice", Date: "2026-03-02", TotalValue: decimal.NewFromInt(1100), CostBasis: decimal.NewFromInt(900), PositionCount: 2},
		{UserID: "alice", Date: "2026-03-03", TotalValue: decimal.NewFromInt(1050), CostBasis: decimal.NewFromInt(900), PositionCount: 2},
		{UserID: "bob", Date: "2026-03-02", TotalValue: decimal.NewFromInt(50), CostBasis: decimal.NewFromInt(40), PositionCount: 1},
	} {
		require.NoError(t, repo.Save(snap))
	}

	got, err := repo.GetByUser("alice", 2)
	require.NoError(t, err)

	// Newest first, capped at limit, scoped to the user.
	require.Len(t, got, 2)
	assert.Equal(t, "2026-03-03", got[0].Date)
	assert.Equal(t, "2026-03-02", got[1].Date)
	assert.True(t, got[0].TotalValue.Equal(decimal.NewFromInt(1050)))
}

func TestSnapshotRepository_SaveOverwritesSameDay(t *testing.T) {
	repo := NewSnapshotRepository(testDB(t).Conn(), zerolog.Nop())

	first := domain.PortfolioSnapshot{UserID: "alice", Date: "2026-03-01", TotalValue: decimal.NewFromInt(1000), CostBasis: decimal.NewFromInt(900), PositionCount: 2}
	require.NoError(t, repo.Save(first))

	second := first
	second.TotalValue = decimal.NewFromInt(1250)
	second.PositionCount = 3
	require.NoError(t, repo.Save(second))

	got, err := repo.GetByUser("alice", 10)
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.True(t, got[0].TotalValue.Equal(decimal.NewFromInt(1250)))
	assert.Equal(t, 3, got[0].PositionCount)
}
