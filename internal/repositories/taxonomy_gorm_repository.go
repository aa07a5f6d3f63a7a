package repositories

import (
	"context"
	"fmt"

	"cms/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// namedEntity is satisfied by *models.Tag and *models.Category.
type namedEntity[T any] interface {
	*T
	EntityID() string
	Assign(id, name string)
}

// GORMTaxonomyRepository is a GORM implementation of TaxonomyRepository.
// When built on a transaction handle, resolution joins that transaction.
type GORMTaxonomyRepository struct {
	db *gorm.DB
}

// NewGORMTaxonomyRepository creates a new instance of GORMTaxonomyRepository.
func NewGORMTaxonomyRepository(db *gorm.DB) *GORMTaxonomyRepository {
	return &GORMTaxonomyRepository{
		db: db,
	}
}

// ListTags returns every tag ordered by name.
func (r *GORMTaxonomyRepository) ListTags(ctx context.Context) ([]models.Tag, error) {
	var tags []models.Tag
	if err := r.db.WithContext(ctx).Order("name").Find(&tags).Error; err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	return tags, nil
}

// ListCategories returns every category ordered by name.
func (r *GORMTaxonomyRepository) ListCategories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	if err := r.db.WithContext(ctx).Order("name").Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

// ResolveTags maps names to tag rows, inserting the ones that do not exist yet.
func (r *GORMTaxonomyRepository) ResolveTags(ctx context.Context, names []string) ([]models.Tag, error) {
	return resolveNames[models.Tag](r.db.WithContext(ctx), names)
}

// ResolveCategories maps names to category rows, inserting the ones that do not exist yet.
func (r *GORMTaxonomyRepository) ResolveCategories(ctx context.Context, names []string) ([]models.Category, error) {
	return resolveNames[models.Category](r.db.WithContext(ctx), names)
}

// resolveNames inserts each distinct name and falls back to reading the
// existing row when the unique index on name rejects the insert. Each insert
// runs in its own savepoint so a rejected insert does not abort the caller's
// transaction.
func resolveNames[T any, P namedEntity[T]](db *gorm.DB, names []string) ([]T, error) {
	seen := make(map[string]struct{}, len(names))
	resolved := make([]T, 0, len(names))

	for _, name := range names {
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}

		var row T
		P(&row).Assign(uuid.New().String(), name)

		err := db.Transaction(func(sp *gorm.DB) error {
			return sp.Create(P(&row)).Error
		})
		if err != nil {
			if !IsUniqueViolation(err) {
				return nil, fmt.Errorf("failed to create %q: %w", name, err)
			}
			var existing T
			if err := db.Where("name = ?", name).First(P(&existing)).Error; err != nil {
				return nil, fmt.Errorf("failed to read existing %q after conflict: %w", name, err)
			}
			row = existing
		}
		resolved = append(resolved, row)
	}
	return resolved, nil
}
