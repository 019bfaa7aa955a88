package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// CategoryRepository handles database operations for SEO categories.
type CategoryRepository struct {
	DB *sqlx.DB
}

// NewCategoryRepository creates a new CategoryRepository.
func NewCategoryRepository(db *sqlx.DB) *CategoryRepository {
	return &CategoryRepository{DB: db}
}

// ListActive returns the active categories in display order.
func (r *CategoryRepository) ListActive(ctx context.Context) ([]*Category, error) {
	var categories []*Category
	query := `SELECT id, title, slug, is_active, order_index FROM seo_categories WHERE is_active = ? ORDER BY order_index, title`
	if err := r.DB.SelectContext(ctx, &categories, query, true); err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

// Save creates a new category and returns its ID.
func (r *CategoryRepository) Save(ctx context.Context, category *Category) (int64, error) {
	query := `INSERT INTO seo_categories (title, slug, is_active, order_index) VALUES (:title, :slug, :is_active, :order_index)`
	res, err := r.DB.NamedExecContext(ctx, query, category)
	if err != nil {
		if isDuplicate(err) {
			return 0, fmt.Errorf("category %q: %w", category.Slug, ErrDuplicate)
		}
		return 0, fmt.Errorf("failed to insert category: %w", err)
	}
	return res.LastInsertId()
}

// GetByID finds a category by its ID.
func (r *CategoryRepository) GetByID(ctx context.Context, id int64) (*Category, error) {
	var category Category
	query := `SELECT id, title, slug, is_active, order_index FROM seo_categories WHERE id = ?`
	if err := r.DB.GetContext(ctx, &category, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return &category, nil
}
