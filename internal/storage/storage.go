// internal/storage/storage.go
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"portfolio/internal/models"
)

var ErrNotFound = errors.New("not found")

const photoColumns = `id, title, category, description, frame_size, watermarked, file_name, download_url, created_at`

// Storage keeps the "photos" collection and the admin users in Postgres.
type Storage struct {
	pool *pgxpool.Pool
}

func NewStorage(ctx context.Context, dsn string) (*Storage, error) {
	const op = "storage.NewStorage"

	if err := runMigrations(dsn); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{pool: pool}, nil
}

func (s *Storage) Close() {
	s.pool.Close()
}

func scanPhoto(row pgx.Row) (models.PhotoDocument, error) {
	var (
		doc      models.PhotoDocument
		category string
		size     string
	)
	err := row.Scan(&doc.ID, &doc.Title, &category, &doc.Description, &size,
		&doc.Watermarked, &doc.FileName, &doc.DownloadURL, &doc.CreatedAt)
	doc.Category = models.Category(category)
	doc.FrameSize = models.FrameSize(size)
	return doc, err
}

// ListPhotos returns the whole collection, newest first.
func (s *Storage) ListPhotos(ctx context.Context) ([]models.PhotoDocument, error) {
	const op = "storage.ListPhotos"

	rows, err := s.pool.Query(ctx, `SELECT `+photoColumns+` FROM photos ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	docs := make([]models.PhotoDocument, 0)
	for rows.Next() {
		doc, err := scanPhoto(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return docs, nil
}

func (s *Storage) GetPhoto(ctx context.Context, id string) (*models.PhotoDocument, error) {
	const op = "storage.GetPhoto"

	doc, err := scanPhoto(s.pool.QueryRow(ctx, `SELECT `+photoColumns+` FROM photos WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &doc, nil
}

// AddPhoto inserts doc, assigning an id and creation time when they are unset.
func (s *Storage) AddPhoto(ctx context.Context, doc *models.PhotoDocument) error {
	const op = "storage.AddPhoto"

	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO photos (`+photoColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		doc.ID, doc.Title, string(doc.Category), doc.Description, string(doc.FrameSize),
		doc.Watermarked, doc.FileName, doc.DownloadURL, doc.CreatedAt)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// UpdatePhoto applies the non-nil fields of upd. There is no version check:
// the last write wins.
func (s *Storage) UpdatePhoto(ctx context.Context, id string, upd models.PhotoUpdate) (*models.PhotoDocument, error) {
	const op = "storage.UpdatePhoto"

	var category, size *string
	if upd.Category != nil {
		v := string(*upd.Category)
		category = &v
	}
	if upd.FrameSize != nil {
		v := string(*upd.FrameSize)
		size = &v
	}

	doc, err := scanPhoto(s.pool.QueryRow(ctx,
		`UPDATE photos SET
			title = COALESCE($2, title),
			category = COALESCE($3, category),
			description = COALESCE($4, description),
			frame_size = COALESCE($5, frame_size),
			watermarked = COALESCE($6, watermarked)
		 WHERE id = $1
		 RETURNING `+photoColumns,
		id, upd.Title, category, upd.Description, size, upd.Watermarked))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &doc, nil
}

func (s *Storage) DeletePhoto(ctx context.Context, id string) error {
	const op = "storage.DeletePhoto"

	tag, err := s.pool.Exec(ctx, `DELETE FROM photos WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}

func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const op = "storage.GetUserByEmail"

	var u models.User
	err := s.pool.QueryRow(ctx, `SELECT id, email, password_hash FROM users WHERE email = $1`, email).
		Scan(&u.ID, &u.Email, &u.PasswordHash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &u, nil
}

// UpsertUser creates the user or replaces its password hash.
func (s *Storage) UpsertUser(ctx context.Context, email, passwordHash string) (*models.User, error) {
	const op = "storage.UpsertUser"

	var u models.User
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (id, email, password_hash) VALUES ($1, $2, $3)
		 ON CONFLICT (email) DO UPDATE SET password_hash = EXCLUDED.password_hash
		 RETURNING id, email, password_hash`,
		uuid.NewString(), email, passwordHash).Scan(&u.ID, &u.Email, &u.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &u, nil
}
