package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DuplicateReviewWindow is how long a client must wait before reviewing the
// same book again from the same network address.
const DuplicateReviewWindow = 24 * time.Hour

// ErrDuplicateReview is returned when the same network address reviews the
// same book twice within DuplicateReviewWindow.
var ErrDuplicateReview = errors.New("duplicate review within window")

// CreateReview stores a review after checking the duplicate-submission
// window. The IP-keyed window is a weak anti-abuse signal, kept as-is.
func (s *Store) CreateReview(ctx context.Context, r *Review) error {
	dup, err := s.hasRecentReview(ctx, r.BookID, r.ClientIP)
	if err != nil {
		return err
	}
	if dup {
		return ErrDuplicateReview
	}

	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO reviews (id, book_id, reviewer, rating, text, client_ip)
		VALUES (?, ?, ?, ?, ?, ?)
	`, r.ID, r.BookID, r.Reviewer, r.Rating, r.Text, r.ClientIP)
	if err != nil {
		return fmt.Errorf("insert review: %w", err)
	}
	return nil
}

// ListReviews returns the reviews for a book, newest first.
func (s *Store) ListReviews(ctx context.Context, bookID string, limit, offset int) ([]Review, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, book_id, reviewer, rating, text, created_at
		FROM reviews
		WHERE book_id = ?
		ORDER BY created_at DESC LIMIT ? OFFSET ?
	`, bookID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var reviews []Review
	for rows.Next() {
		var r Review
		if err := rows.Scan(&r.ID, &r.BookID, &r.Reviewer, &r.Rating, &r.Text, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan review row: %w", err)
		}
		reviews = append(reviews, r)
	}
	return reviews, rows.Err()
}

func (s *Store) hasRecentReview(ctx context.Context, bookID, clientIP string) (bool, error) {
	cutoff := time.Now().UTC().Add(-DuplicateReviewWindow)
	var exists int
	err := s.db.QueryRowContext(ctx, `
		SELECT 1 FROM reviews
		WHERE book_id = ? AND client_ip = ? AND created_at > ?
		LIMIT 1
	`, bookID, clientIP, cutoff).Scan(&exists)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return false, fmt.Errorf("check duplicate review: %w", err)
}
