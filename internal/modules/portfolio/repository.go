package portfolio

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/portfolio-advisor/internal/domain"
)

// TransactionRepository persists transaction records in SQLite.
type TransactionRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *sql.DB, log zerolog.Logger) *TransactionRepository {
	return &TransactionRepository{
		db:  db,
		log: log.With().Str("repository", "transactions").Logger(),
	}
}

// Create inserts a new transaction. The ID is assigned here; records are
// immutable once stored.
func (r *TransactionRepository) Create(tx domain.Transaction) (domain.Transaction, error) {
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}

	var totalAmount sql.NullString
	if tx.TotalAmount != nil {
		totalAmount = sql.NullString{String: tx.TotalAmount.String(), Valid: true}
	}

	_, err := r.db.Exec(`
		INSERT INTO transactions (id, user_id, ticker, type, date, quantity, price, fees, tax, total_amount, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		tx.ID, tx.UserID, tx.Ticker, string(tx.Type), tx.Date.UTC().Format(time.RFC3339),
		tx.Quantity.String(), tx.Price.String(), tx.Fees.String(), tx.Tax.String(),
		totalAmount, tx.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("failed to insert transaction: %w", err)
	}

	return tx, nil
}

// GetByUser returns all transactions for a user, oldest first. Callers must
// not rely on this ordering; the cost basis engine re-sorts internally.
func (r *TransactionRepository) GetByUser(userID string) ([]domain.Transaction, error) {
	return r.query(`
		SELECT id, user_id, ticker, type, date, quantity, price, fees, tax, total_amount, created_at
		FROM transactions
		WHERE user_id = ?
		ORDER BY date ASC
	`, userID)
}

// GetByUserAndTicker returns all transactions for one holding.
func (r *TransactionRepository) GetByUserAndTicker(userID, ticker string) ([]domain.Transaction, error) {
	return r.query(`
		SELECT id, user_id, ticker, type, date, quantity, price, fees, tax, total_amount, created_at
		FROM transactions
		WHERE user_id = ? AND ticker = ?
		ORDER BY date ASC
	`, userID, ticker)
}

// DistinctUsers returns every user with at least one transaction. Used by
// the snapshot job to know whose portfolios to summarize.
func (r *TransactionRepository) DistinctUsers() ([]string, error) {
	rows, err := r.db.Query(`SELECT DISTINCT user_id FROM transactions ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		users = append(users, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return users, nil
}

// Delete removes a transaction by ID.
func (r *TransactionRepository) Delete(userID, id string) error {
	result, err := r.db.Exec(`DELETE FROM transactions WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	return nil
}

func (r *TransactionRepository) query(query string, args ...interface{}) ([]domain.Transaction, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var transactions []domain.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return transactions, nil
}

func scanTransaction(rows *sql.Rows) (domain.Transaction, error) {
	var (
		tx                         domain.Transaction
		txType, date, createdAt    string
		quantity, price, fees, tax string
		totalAmount                sql.NullString
	)

	err := rows.Scan(&tx.ID, &tx.UserID, &tx.Ticker, &txType, &date,
		&quantity, &price, &fees, &tax, &totalAmount, &createdAt)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("failed to scan transaction: %w", err)
	}

	tx.Type = domain.TransactionType(txType)

	if tx.Date, err = time.Parse(time.RFC3339, date); err != nil {
		return domain.Transaction{}, fmt.Errorf("invalid transaction date %q: %w", date, err)
	}
	if tx.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return domain.Transaction{}, fmt.Errorf("invalid created_at %q: %w", createdAt, err)
	}

	// Decimals are stored as text to avoid float drift.
	if tx.Quantity, err = decimal.NewFromString(quantity); err != nil {
		return domain.Transaction{}, fmt.Errorf("invalid quantity %q: %w", quantity, err)
	}
	if tx.Price, err = decimal.NewFromString(price); err != nil {
		return domain.Transaction{}, fmt.Errorf("invalid price %q: %w", price, err)
	}
	if tx.Fees, err = decimal.NewFromString(fees); err != nil {
		return domain.Transaction{}, fmt.Errorf("invalid fees %q: %w", fees, err)
	}
	if tx.Tax, err = decimal.NewFromString(tax); err != nil {
		return domain.Transaction{}, fmt.Errorf("invalid tax %q: %w", tax, err)
	}
	if totalAmount.Valid {
		amount, err := decimal.NewFromString(totalAmount.String)
		if err != nil {
			return domain.Transaction{}, fmt.Errorf("invalid total_amount %q: %w", totalAmount.String, err)
		}
		tx.TotalAmount = &amount
	}

	return tx, nil
}
