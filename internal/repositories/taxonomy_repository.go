package repositories

import (
	"context"

	"cms/internal/models"
)

// TaxonomyRepository resolves and lists tags and categories.
type TaxonomyRepository interface {
	ListTags(ctx context.Context) ([]models.Tag, error)
	ListCategories(ctx context.Context) ([]models.Category, error)
	// ResolveTags returns one row per distinct name, creating missing rows.
	ResolveTags(ctx context.Context, names []string) ([]models.Tag, error)
	// ResolveCategories is ResolveTags for categories.
	ResolveCategories(ctx context.Context, names []string) ([]models.Category, error)
}
