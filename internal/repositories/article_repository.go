package repositories

import (
	"context"

	"cms/internal/models"
)

// Associations carries optional tag and category name lists for a write.
// A nil list leaves the existing set untouched; a non-nil list, even an
// empty one, replaces it.
type Associations struct {
	Tags       *[]string
	Categories *[]string
}

// ArticleRepository defines the interface for article data access.
type ArticleRepository interface {
	List(ctx context.Context, scope AccessScope) ([]models.Article, error)
	GetBySlug(ctx context.Context, slug string, scope AccessScope) (*models.Article, error)
	// Create persists the article with a fresh slug and its associations atomically.
	Create(ctx context.Context, article *models.Article, assoc Associations) error
	// Update applies the column changes and association replacements atomically.
	Update(ctx context.Context, id string, changes map[string]interface{}, assoc Associations) error
	Delete(ctx context.Context, id string) error
}
