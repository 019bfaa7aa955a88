package data

import (
	"time"
)

// Article is a row of the articles table.
type Article struct {
	ID               int64      `db:"id"`
	Title            string     `db:"title"`
	Slug             string     `db:"slug"`
	Content          string     `db:"content"`
	Icon             string     `db:"icon"`
	CategoryID       *int64     `db:"category_id"`
	AuthorID         *int64     `db:"author_id"`
	Status           string     `db:"status"`
	MetaTitle        string     `db:"meta_title"`
	MetaDescription  string     `db:"meta_description"`
	FocusKeyword     string     `db:"focus_keyword"`
	ReadTime         int        `db:"read_time"`
	Excerpt          string     `db:"excerpt"`
	AutoSavedContent *string    `db:"auto_saved_content"`
	AutoSavedAt      *time.Time `db:"auto_saved_at"`
	CreatedAt        time.Time  `db:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at"`
	PublishedAt      *time.Time `db:"published_at"`
}

// SummaryPoint is one key takeaway of an article.
type SummaryPoint struct {
	ID         int64  `db:"id"`
	ArticleID  int64  `db:"article_id"`
	PointText  string `db:"point_text"`
	OrderIndex int    `db:"order_index"`
}

// ContentVersion is an append-only history entry of an article.
type ContentVersion struct {
	ID        int64     `db:"id"`
	ArticleID int64     `db:"article_id"`
	Title     string    `db:"title"`
	Content   string    `db:"content"`
	AuthorID  *int64    `db:"author_id"`
	CreatedBy string    `db:"created_by"`
	CreatedAt time.Time `db:"created_at"`
}

// Category is an SEO category articles are filed under.
type Category struct {
	ID         int64  `db:"id"`
	Title      string `db:"title"`
	Slug       string `db:"slug"`
	IsActive   bool   `db:"is_active"`
	OrderIndex int    `db:"order_index"`
}

// Author is a byline.
type Author struct {
	ID   int64  `db:"id"`
	Name string `db:"name"`
}
