package store

import (
	"context"
	"database/sql"
	"time"
)

type TransactionEntry struct {
	UserID     string
	PaddleID   string
	EventType  string
	Amount     string
	Currency   string
	Status     string
	OccurredAt *time.Time
}

// InsertTransaction appends a ledger row. Entries are never updated or
// deleted; the ledger is the audit trail for webhook deliveries.
func (s *Store) InsertTransaction(ctx context.Context, e TransactionEntry) error {
	var userID sql.NullString
	if e.UserID != "" {
		userID = sql.NullString{String: e.UserID, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions (user_id, paddle_id, event_type, amount, currency, status, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, userID, e.PaddleID, e.EventType, e.Amount, e.Currency, e.Status, e.OccurredAt)
	return Error.Wrap(err)
}
