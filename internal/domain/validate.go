package domain

import "strings"

// Validate checks transaction preconditions before the record is accepted.
// It never mutates derived state; engines may assume a validated record.
func (t *Transaction) Validate() error {
	if strings.TrimSpace(t.Ticker) == "" {
		return &ValidationError{Field: "ticker", Reason: "cannot be empty"}
	}

	switch t.Type {
	case TransactionBuy, TransactionSell:
		if !t.Quantity.IsPositive() {
			return &ValidationError{Field: "shares_quantity", Reason: "must be positive"}
		}
		if t.Price.IsNegative() {
			return &ValidationError{Field: "share_price", Reason: "cannot be negative"}
		}
	case TransactionSplit:
		if !t.Quantity.IsPositive() {
			return &ValidationError{Field: "shares_quantity", Reason: "split ratio must be positive"}
		}
		if !t.Price.IsZero() {
			return &ValidationError{Field: "share_price", Reason: "must be zero for splits"}
		}
	case TransactionDividend:
		if t.Price.IsNegative() {
			return &ValidationError{Field: "share_price", Reason: "dividend per share cannot be negative"}
		}
	default:
		return &ValidationError{Field: "type", Reason: "unknown transaction type"}
	}

	if t.Fees.IsNegative() {
		return &ValidationError{Field: "fees", Reason: "cannot be negative"}
	}
	if t.Tax.IsNegative() {
		return &ValidationError{Field: "tax", Reason: "cannot be negative"}
	}

	t.Ticker = strings.ToUpper(strings.TrimSpace(t.Ticker))
	return nil
}
