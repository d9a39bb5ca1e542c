package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/plaenen/bidibip/pkg/modules/quote"
)

// QuoteStore is a SQLite implementation of quote.Store.
type QuoteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewQuoteStore wraps an opened and migrated database.
func NewQuoteStore(db *sql.DB) *QuoteStore {
	return &QuoteStore{db: db, now: time.Now}
}

// List implements quote.Store. Quotes come back in insertion order.
func (s *QuoteStore) List(ctx context.Context, userID string) ([]quote.Quote, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT message_id, text FROM quotes
		WHERE user_id = ?
		ORDER BY created_at, rowid
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query quotes: %w", err)
	}
	defer rows.Close()

	var quotes []quote.Quote
	for rows.Next() {
		var q quote.Quote
		if err := rows.Scan(&q.ID, &q.Text); err != nil {
			return nil, fmt.Errorf("scan quote: %w", err)
		}
		quotes = append(quotes, q)
	}
	return quotes, rows.Err()
}

// Append implements quote.Store.
func (s *QuoteStore) Append(ctx context.Context, userID string, q quote.Quote) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO quotes (user_id, message_id, text, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id, message_id) DO NOTHING
	`, userID, q.ID, q.Text, s.now().UnixNano())
	if err != nil {
		return false, fmt.Errorf("insert quote: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert quote: %w", err)
	}
	return n == 1, nil
}

// Users implements quote.Store.
func (s *QuoteStore) Users(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT user_id FROM quotes ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("query quoted users: %w", err)
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, id)
	}
	return users, rows.Err()
}

var _ quote.Store = (*QuoteStore)(nil)
