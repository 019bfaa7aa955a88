package data

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// AuthorRepository handles database operations for authors.
type AuthorRepository struct {
	DB *sqlx.DB
}

// NewAuthorRepository creates a new AuthorRepository.
func NewAuthorRepository(db *sqlx.DB) *AuthorRepository {
	return &AuthorRepository{DB: db}
}

// ListAll returns every author ordered by name.
func (r *AuthorRepository) ListAll(ctx context.Context) ([]*Author, error) {
	var authors []*Author
	if err := r.DB.SelectContext(ctx, &authors, `SELECT id, name FROM authors ORDER BY name`); err != nil {
		return nil, fmt.Errorf("failed to list authors: %w", err)
	}
	return authors, nil
}

// Save creates a new author and returns its ID.
func (r *AuthorRepository) Save(ctx context.Context, author *Author) (int64, error) {
	res, err := r.DB.NamedExecContext(ctx, `INSERT INTO authors (name) VALUES (:name)`, author)
	if err != nil {
		return 0, fmt.Errorf("failed to insert author: %w", err)
	}
	return res.LastInsertId()
}
