package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a book cannot be found by id.
var ErrNotFound = errors.New("book not found")

// Store wraps the catalog SQLite database.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS books (
	id TEXT PRIMARY KEY NOT NULL,
	title TEXT NOT NULL,
	author TEXT NOT NULL DEFAULT '',
	summary TEXT NOT NULL DEFAULT '',
	cover_url TEXT NOT NULL DEFAULT '',
	genre TEXT NOT NULL DEFAULT '',
	mood TEXT NOT NULL DEFAULT '',
	trope TEXT NOT NULL DEFAULT '',
	heat_level TEXT NOT NULL DEFAULT '',
	source TEXT NOT NULL DEFAULT '',
	publication_year INTEGER NOT NULL DEFAULT 0,
	publisher TEXT NOT NULL DEFAULT '',
	page_count INTEGER NOT NULL DEFAULT 0,
	isbn TEXT NOT NULL DEFAULT '',
	isbn13 TEXT NOT NULL DEFAULT '',
	rating REAL NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_books_trope ON books(trope);
CREATE INDEX IF NOT EXISTS idx_books_mood ON books(mood);
CREATE INDEX IF NOT EXISTS idx_books_genre ON books(genre);
CREATE INDEX IF NOT EXISTS idx_books_source ON books(source);

CREATE TABLE IF NOT EXISTS enrichment_attempts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	book_id TEXT NOT NULL REFERENCES books(id),
	status TEXT NOT NULL,
	fields_updated TEXT NOT NULL DEFAULT '',
	source TEXT NOT NULL DEFAULT '',
	error_message TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_attempts_book ON enrichment_attempts(book_id);

CREATE TABLE IF NOT EXISTS reviews (
	id TEXT PRIMARY KEY NOT NULL,
	book_id TEXT NOT NULL REFERENCES books(id),
	reviewer TEXT NOT NULL DEFAULT '',
	rating INTEGER NOT NULL,
	text TEXT NOT NULL DEFAULT '',
	client_ip TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_reviews_book ON reviews(book_id);
CREATE INDEX IF NOT EXISTS idx_reviews_ip ON reviews(book_id, client_ip, created_at);
`

// Open opens (or creates) the catalog database at dbPath and runs migrations.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	if err := db.Ping(); err != nil {
		closeErr := db.Close()
		return nil, errors.Join(fmt.Errorf("failed to connect to catalog database: %w", err), closeErr)
	}

	if _, err := db.Exec(schema); err != nil {
		closeErr := db.Close()
		return nil, errors.Join(fmt.Errorf("failed to migrate catalog schema: %w", err), closeErr)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

const bookColumns = `id, title, author, summary, cover_url, genre, mood, trope,
	heat_level, source, publication_year, publisher, page_count, isbn, isbn13,
	rating, created_at, updated_at`

func scanBook(row interface{ Scan(...any) error }) (*Book, error) {
	var b Book
	err := row.Scan(&b.ID, &b.Title, &b.Author, &b.Summary, &b.CoverURL,
		&b.Genre, &b.Mood, &b.Trope, &b.HeatLevel, &b.Source,
		&b.PublicationYear, &b.Publisher, &b.PageCount, &b.ISBN, &b.ISBN13,
		&b.Rating, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// CreateBook inserts a new book. A missing ID is generated.
func (s *Store) CreateBook(ctx context.Context, b *Book) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO books (id, title, author, summary, cover_url, genre, mood,
			trope, heat_level, source, publication_year, publisher, page_count,
			isbn, isbn13, rating)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, b.ID, b.Title, b.Author, b.Summary, b.CoverURL, b.Genre, b.Mood,
		b.Trope, b.HeatLevel, b.Source, b.PublicationYear, b.Publisher,
		b.PageCount, b.ISBN, b.ISBN13, b.Rating)
	if err != nil {
		return fmt.Errorf("insert book: %w", err)
	}
	return nil
}

// UpdateBook writes the mutable fields of b back to the catalog.
func (s *Store) UpdateBook(ctx context.Context, b *Book) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE books
		SET title = ?, author = ?, summary = ?, cover_url = ?, genre = ?,
			mood = ?, trope = ?, heat_level = ?, source = ?,
			publication_year = ?, publisher = ?, page_count = ?, isbn = ?,
			isbn13 = ?, rating = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, b.Title, b.Author, b.Summary, b.CoverURL, b.Genre, b.Mood, b.Trope,
		b.HeatLevel, b.Source, b.PublicationYear, b.Publisher, b.PageCount,
		b.ISBN, b.ISBN13, b.Rating, b.ID)
	if err != nil {
		return fmt.Errorf("update book: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetBook returns the book with the given id, or ErrNotFound.
func (s *Store) GetBook(ctx context.Context, id string) (*Book, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+bookColumns+` FROM books WHERE id = ?`, id)
	b, err := scanBook(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan book: %w", err)
	}
	return b, nil
}

// FindByTitleAuthor returns a book matching title (and author when given),
// case-insensitively, or nil when no match exists.
func (s *Store) FindByTitleAuthor(ctx context.Context, title, author string) (*Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books WHERE title = ? COLLATE NOCASE`
	args := []any{title}
	if author != "" {
		query += ` AND author = ? COLLATE NOCASE`
		args = append(args, author)
	}
	row := s.db.QueryRowContext(ctx, query+` LIMIT 1`, args...)
	b, err := scanBook(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan book: %w", err)
	}
	return b, nil
}

// Filter narrows a catalog listing. Empty fields are ignored.
type Filter struct {
	Genre     string
	Mood      string
	Trope     string
	HeatLevel string
	Limit     int
	Offset    int
}

// ListBooks returns catalog records matching the filter, newest first.
func (s *Store) ListBooks(ctx context.Context, f Filter) ([]Book, error) {
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 20
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	var conds []string
	var args []any
	for col, val := range map[string]string{
		"genre": f.Genre, "mood": f.Mood, "trope": f.Trope, "heat_level": f.HeatLevel,
	} {
		if val != "" {
			conds = append(conds, col+" = ?")
			args = append(args, val)
		}
	}

	query := `SELECT ` + bookColumns + ` FROM books`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY created_at DESC LIMIT ? OFFSET ?`
	args = append(args, f.Limit, f.Offset)

	return s.queryBooks(ctx, query, args...)
}

// ListEnrichmentBatch returns one page of the catalog in stable creation
// order. Eligibility is decided per record by the orchestrator, so a caller
// paging with an advancing offset visits every book exactly once.
func (s *Store) ListEnrichmentBatch(ctx context.Context, limit, offset int) ([]Book, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.queryBooks(ctx, `
		SELECT `+bookColumns+` FROM books
		ORDER BY created_at ASC, id ASC LIMIT ? OFFSET ?
	`, limit, offset)
}

// CandidatesByTrope returns books sharing the trope, excluding excludeID.
func (s *Store) CandidatesByTrope(ctx context.Context, trope, excludeID string, limit int) ([]Book, error) {
	return s.queryBooks(ctx, `
		SELECT `+bookColumns+` FROM books
		WHERE trope = ? AND trope != '' AND id != ?
		ORDER BY rating DESC, created_at DESC LIMIT ?
	`, trope, excludeID, limit)
}

// CandidatesByMoodAndHeat returns books sharing both mood and heat level.
func (s *Store) CandidatesByMoodAndHeat(ctx context.Context, mood, heat, excludeID string, limit int) ([]Book, error) {
	return s.queryBooks(ctx, `
		SELECT `+bookColumns+` FROM books
		WHERE mood = ? AND mood != '' AND heat_level = ? AND id != ?
		ORDER BY rating DESC, created_at DESC LIMIT ?
	`, mood, heat, excludeID, limit)
}

// CandidatesByGenre returns books sharing the genre.
func (s *Store) CandidatesByGenre(ctx context.Context, genre, excludeID string, limit int) ([]Book, error) {
	return s.queryBooks(ctx, `
		SELECT `+bookColumns+` FROM books
		WHERE genre = ? AND genre != '' AND id != ?
		ORDER BY rating DESC, created_at DESC LIMIT ?
	`, genre, excludeID, limit)
}

// CandidatesByAny is the last-resort OR query across mood, trope and genre.
func (s *Store) CandidatesByAny(ctx context.Context, mood, trope, genre, excludeID string, limit int) ([]Book, error) {
	return s.queryBooks(ctx, `
		SELECT `+bookColumns+` FROM books
		WHERE id != ? AND (
			(mood = ? AND mood != '') OR
			(trope = ? AND trope != '') OR
			(genre = ? AND genre != '')
		)
		ORDER BY rating DESC, created_at DESC LIMIT ?
	`, excludeID, mood, trope, genre, limit)
}

// CandidatesByCategory serves genre and mood recommendation contexts with a
// single direct-match query.
func (s *Store) CandidatesByCategory(ctx context.Context, kind, value string, limit int) ([]Book, error) {
	var col string
	switch kind {
	case "genre":
		col = "genre"
	case "mood":
		col = "mood"
	case "trope":
		col = "trope"
	default:
		return nil, fmt.Errorf("unknown category kind: %s", kind)
	}
	return s.queryBooks(ctx, `
		SELECT `+bookColumns+` FROM books
		WHERE `+col+` = ?
		ORDER BY rating DESC, created_at DESC LIMIT ?
	`, value, limit)
}

// ListMissingCategories returns books lacking a mood or trope assignment,
// for admin recategorization.
func (s *Store) ListMissingCategories(ctx context.Context, limit int) ([]Book, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.queryBooks(ctx, `
		SELECT `+bookColumns+` FROM books
		WHERE mood = '' OR trope = ''
		ORDER BY created_at ASC LIMIT ?
	`, limit)
}

func (s *Store) queryBooks(ctx context.Context, query string, args ...any) ([]Book, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query books: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var books []Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("scan book row: %w", err)
		}
		books = append(books, *b)
	}
	return books, rows.Err()
}

// LogAttempt appends an enrichment attempt row. Attempt rows are immutable
// after creation and exist for observability only.
func (s *Store) LogAttempt(ctx context.Context, a *EnrichmentAttempt) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO enrichment_attempts (book_id, status, fields_updated, source, error_message)
		VALUES (?, ?, ?, ?, ?)
	`, a.BookID, a.Status, strings.Join(a.FieldsUpdated, ","), a.Source, a.ErrorMessage)
	if err != nil {
		return fmt.Errorf("insert enrichment attempt: %w", err)
	}
	return nil
}

// ListAttempts returns the attempt log for a book, newest first.
func (s *Store) ListAttempts(ctx context.Context, bookID string, limit int) ([]EnrichmentAttempt, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, book_id, status, fields_updated, source, error_message, created_at
		FROM enrichment_attempts
		WHERE book_id = ?
		ORDER BY created_at DESC LIMIT ?
	`, bookID, limit)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var attempts []EnrichmentAttempt
	for rows.Next() {
		var a EnrichmentAttempt
		var fields string
		if err := rows.Scan(&a.ID, &a.BookID, &a.Status, &fields, &a.Source, &a.ErrorMessage, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan attempt row: %w", err)
		}
		if fields != "" {
			a.FieldsUpdated = strings.Split(fields, ",")
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}
