package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

const articleColumns = `id, title, slug, content, icon, category_id, author_id, status,
	meta_title, meta_description, focus_keyword, read_time, excerpt,
	auto_saved_content, auto_saved_at, created_at, updated_at, published_at`

// ArticleRepository handles database operations for articles, their summary
// points and their version history.
type ArticleRepository struct {
	db *sqlx.DB
	tm *TransactionManager
}

// NewArticleRepository creates a new ArticleRepository.
func NewArticleRepository(db *sqlx.DB) *ArticleRepository {
	return &ArticleRepository{db: db, tm: NewTransactionManager(db)}
}

// GetByID retrieves an article by its ID.
func (r *ArticleRepository) GetByID(ctx context.Context, id int64) (*Article, error) {
	var a Article
	query := `SELECT ` + articleColumns + ` FROM articles WHERE id = ?`
	if err := sqlx.GetContext(ctx, executor(ctx, r.db), &a, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get article by id: %w", err)
	}
	return &a, nil
}

// Create inserts a new article and returns its ID.
func (r *ArticleRepository) Create(ctx context.Context, a *Article) (int64, error) {
	query := `INSERT INTO articles (title, slug, content, icon, category_id, author_id, status,
		meta_title, meta_description, focus_keyword, read_time, excerpt, created_at, updated_at, published_at)
		VALUES (:title, :slug, :content, :icon, :category_id, :author_id, :status,
		:meta_title, :meta_description, :focus_keyword, :read_time, :excerpt, :created_at, :updated_at, :published_at)`
	res, err := sqlx.NamedExecContext(ctx, executor(ctx, r.db), query, a)
	if err != nil {
		if isDuplicate(err) {
			return 0, fmt.Errorf("slug %q: %w", a.Slug, ErrDuplicate)
		}
		return 0, fmt.Errorf("failed to insert article: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get inserted article id: %w", err)
	}
	return id, nil
}

// Update overwrites the editable columns of an existing article. The
// autosave columns are left alone.
func (r *ArticleRepository) Update(ctx context.Context, a *Article) error {
	query := `UPDATE articles SET title = :title, slug = :slug, content = :content, icon = :icon,
		category_id = :category_id, author_id = :author_id, status = :status,
		meta_title = :meta_title, meta_description = :meta_description, focus_keyword = :focus_keyword,
		read_time = :read_time, excerpt = :excerpt, updated_at = :updated_at, published_at = :published_at
		WHERE id = :id`
	result, err := sqlx.NamedExecContext(ctx, executor(ctx, r.db), query, a)
	if err != nil {
		if isDuplicate(err) {
			return fmt.Errorf("slug %q: %w", a.Slug, ErrDuplicate)
		}
		return fmt.Errorf("failed to update article: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveAutosave stores a recovery copy of the body. Status and updated_at are
// not touched.
func (r *ArticleRepository) SaveAutosave(ctx context.Context, id int64, content string, at time.Time) error {
	query := `UPDATE articles SET auto_saved_content = ?, auto_saved_at = ? WHERE id = ?`
	result, err := r.db.ExecContext(ctx, query, content, at, id)
	if err != nil {
		return fmt.Errorf("failed to save autosave content: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListSummaryPoints returns the points of an article in display order.
func (r *ArticleRepository) ListSummaryPoints(ctx context.Context, articleID int64) ([]*SummaryPoint, error) {
	var points []*SummaryPoint
	query := `SELECT id, article_id, point_text, order_index FROM article_summary_points WHERE article_id = ? ORDER BY order_index`
	if err := sqlx.SelectContext(ctx, executor(ctx, r.db), &points, query, articleID); err != nil {
		return nil, fmt.Errorf("failed to list summary points: %w", err)
	}
	return points, nil
}

// ReplaceSummaryPoints swaps all points of an article for points in one
// transaction. The slice position becomes the order index.
func (r *ArticleRepository) ReplaceSummaryPoints(ctx context.Context, articleID int64, points []string) error {
	return r.tm.WithTransaction(ctx, func(ctx context.Context) error {
		ex := executor(ctx, r.db)
		if _, err := ex.ExecContext(ctx, `DELETE FROM article_summary_points WHERE article_id = ?`, articleID); err != nil {
			return fmt.Errorf("failed to delete summary points: %w", err)
		}
		for i, text := range points {
			query := `INSERT INTO article_summary_points (article_id, point_text, order_index) VALUES (?, ?, ?)`
			if _, err := ex.ExecContext(ctx, query, articleID, text, i); err != nil {
				return fmt.Errorf("failed to insert summary point %d: %w", i, err)
			}
		}
		return nil
	})
}

// AppendVersion adds an entry to the content history.
func (r *ArticleRepository) AppendVersion(ctx context.Context, v *ContentVersion) error {
	query := `INSERT INTO content_versions (article_id, title, content, author_id, created_by, created_at)
		VALUES (:article_id, :title, :content, :author_id, :created_by, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, executor(ctx, r.db), query, v); err != nil {
		return fmt.Errorf("failed to append content version: %w", err)
	}
	return nil
}

// ListVersions returns the history of an article, newest first.
func (r *ArticleRepository) ListVersions(ctx context.Context, articleID int64) ([]*ContentVersion, error) {
	var versions []*ContentVersion
	query := `SELECT id, article_id, title, content, author_id, created_by, created_at
		FROM content_versions WHERE article_id = ? ORDER BY id DESC`
	if err := sqlx.SelectContext(ctx, executor(ctx, r.db), &versions, query, articleID); err != nil {
		return nil, fmt.Errorf("failed to list content versions: %w", err)
	}
	return versions, nil
}
