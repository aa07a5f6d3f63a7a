package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cms/internal/models"
	"cms/pkg/slug"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GORMArticleRepository is a GORM implementation of ArticleRepository.
type GORMArticleRepository struct {
	db *gorm.DB
}

// NewGORMArticleRepository creates a new instance of GORMArticleRepository.
func NewGORMArticleRepository(db *gorm.DB) *GORMArticleRepository {
	return &GORMArticleRepository{
		db: db,
	}
}

func withRelations(db *gorm.DB) *gorm.DB {
	return db.Preload("Author").
		Preload("Tags", func(db *gorm.DB) *gorm.DB { return db.Order("tags.name") }).
		Preload("Categories", func(db *gorm.DB) *gorm.DB { return db.Order("categories.name") })
}

// List returns the articles visible under scope, newest first.
func (r *GORMArticleRepository) List(ctx context.Context, scope AccessScope) ([]models.Article, error) {
	var articles []models.Article
	err := r.db.WithContext(ctx).
		Scopes(scope.Visible, withRelations).
		Order("articles.created_at DESC").
		Find(&articles).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list articles: %w", err)
	}
	return articles, nil
}

// GetBySlug returns the article with slug if it is visible under scope.
// Invisible and missing articles both yield ErrNotFound.
func (r *GORMArticleRepository) GetBySlug(ctx context.Context, slug string, scope AccessScope) (*models.Article, error) {
	var article models.Article
	err := r.db.WithContext(ctx).
		Scopes(scope.Visible, withRelations).
		Where("articles.slug = ?", slug).
		First(&article).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get article by slug %s: %w", slug, err)
	}
	return &article, nil
}

// Create inserts the article row, resolves its tags and categories and
// attaches them, all in one transaction.
func (r *GORMArticleRepository) Create(ctx context.Context, article *models.Article, assoc Associations) error {
	if article.ID == "" {
		article.ID = uuid.New().String()
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		s, err := uniqueSlug(tx, slug.Make(article.Title))
		if err != nil {
			return err
		}
		article.Slug = s

		if err := tx.Omit(clause.Associations).Create(article).Error; err != nil {
			return fmt.Errorf("failed to create article: %w", err)
		}
		return replaceAssociations(ctx, tx, article.ID, assoc)
	})
	if err != nil {
		article.Slug = ""
		return err
	}
	return nil
}

// Update writes changes to the article columns and replaces whichever
// association sets are present, in one transaction.
func (r *GORMArticleRepository) Update(ctx context.Context, id string, changes map[string]interface{}, assoc Associations) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		values := make(map[string]interface{}, len(changes)+1)
		for k, v := range changes {
			values[k] = v
		}
		values["updated_at"] = time.Now()

		res := tx.Model(&models.Article{}).Where("id = ?", id).Updates(values)
		if res.Error != nil {
			return fmt.Errorf("failed to update article: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return replaceAssociations(ctx, tx, id, assoc)
	})
}

// Delete removes the article and its association rows.
func (r *GORMArticleRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := deleteArticleRows(tx, []string{id}); err != nil {
			return err
		}
		res := tx.Delete(&models.Article{}, "id = ?", id)
		if res.Error != nil {
			return fmt.Errorf("failed to delete article: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// deleteArticleRows clears the join rows of the given articles.
func deleteArticleRows(tx *gorm.DB, ids []string) error {
	if err := tx.Where("article_id IN ?", ids).Delete(&models.ArticleTag{}).Error; err != nil {
		return fmt.Errorf("failed to delete article tags: %w", err)
	}
	if err := tx.Where("article_id IN ?", ids).Delete(&models.ArticleCategory{}).Error; err != nil {
		return fmt.Errorf("failed to delete article categories: %w", err)
	}
	return nil
}

// replaceAssociations clears and repopulates each association kind that is
// present. Names are resolved inside tx so new rows roll back with it.
func replaceAssociations(ctx context.Context, tx *gorm.DB, articleID string, assoc Associations) error {
	taxonomy := NewGORMTaxonomyRepository(tx)

	if assoc.Tags != nil {
		if err := tx.Where("article_id = ?", articleID).Delete(&models.ArticleTag{}).Error; err != nil {
			return fmt.Errorf("failed to clear article tags: %w", err)
		}
		tags, err := taxonomy.ResolveTags(ctx, *assoc.Tags)
		if err != nil {
			return fmt.Errorf("failed to resolve tags: %w", err)
		}
		if len(tags) > 0 {
			links := make([]models.ArticleTag, 0, len(tags))
			for i := range tags {
				links = append(links, models.ArticleTag{ArticleID: articleID, TagID: tags[i].EntityID()})
			}
			if err := tx.Create(&links).Error; err != nil {
				return fmt.Errorf("failed to attach tags: %w", err)
			}
		}
	}

	if assoc.Categories != nil {
		if err := tx.Where("article_id = ?", articleID).Delete(&models.ArticleCategory{}).Error; err != nil {
			return fmt.Errorf("failed to clear article categories: %w", err)
		}
		categories, err := taxonomy.ResolveCategories(ctx, *assoc.Categories)
		if err != nil {
			return fmt.Errorf("failed to resolve categories: %w", err)
		}
		if len(categories) > 0 {
			links := make([]models.ArticleCategory, 0, len(categories))
			for i := range categories {
				links = append(links, models.ArticleCategory{ArticleID: articleID, CategoryID: categories[i].EntityID()})
			}
			if err := tx.Create(&links).Error; err != nil {
				return fmt.Errorf("failed to attach categories: %w", err)
			}
		}
	}
	return nil
}

// uniqueSlug returns base, or base-N for the smallest N >= 2 not yet taken.
func uniqueSlug(tx *gorm.DB, base string) (string, error) {
	candidate := base
	for n := 2; ; n++ {
		var count int64
		if err := tx.Model(&models.Article{}).Where("slug = ?", candidate).Count(&count).Error; err != nil {
			return "", fmt.Errorf("failed to check slug %s: %w", candidate, err)
		}
		if count == 0 {
			return candidate, nil
		}
		candidate = slug.WithSuffix(base, n)
	}
}
