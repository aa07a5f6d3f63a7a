package repositories_test

import (
	"context"
	"errors"
	"testing"

	"cms/internal/database/databasetest"
	"cms/internal/models"
	"cms/internal/repositories"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedUser(t *testing.T, db *gorm.DB, nickname string, staff bool) *models.User {
	t.Helper()
	user := &models.User{
		ID:       uuid.NewString(),
		Email:    nickname + "@example.com",
		Nickname: nickname,
		Password: "hash",
		IsActive: true,
		IsStaff:  staff,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func names(list ...string) *[]string {
	return &list
}

func tagNames(article *models.Article) []string {
	out := make([]string, 0, len(article.Tags))
	for _, tag := range article.Tags {
		out = append(out, tag.Name)
	}
	return out
}

func categoryNames(article *models.Article) []string {
	out := make([]string, 0, len(article.Categories))
	for _, category := range article.Categories {
		out = append(out, category.Name)
	}
	return out
}

func TestArticleRepository_CreateWithAssociations(t *testing.T) {
	db := databasetest.New(t)
	repo := repositories.NewGORMArticleRepository(db)
	ctx := context.Background()
	author := seedUser(t, db, "author01", false)

	article := &models.Article{AuthorID: author.ID, Title: "Hello World", Content: "<p>x</p>", IsPublic: true}
	err := repo.Create(ctx, article, repositories.Associations{
		Tags:       names("go", "db", "go"),
		Categories: names("news"),
	})
	require.NoError(t, err)
	assert.Equal(t, "hello-world", article.Slug)

	got, err := repo.GetBySlug(ctx, "hello-world", repositories.ScopeFor(author))
	require.NoError(t, err)
	assert.Equal(t, []string{"db", "go"}, tagNames(got))
	assert.Equal(t, []string{"news"}, categoryNames(got))
	assert.Equal(t, "author01", got.Author.Nickname)
}

func TestArticleRepository_CreateAssignsUniqueSlugs(t *testing.T) {
	db := databasetest.New(t)
	repo := repositories.NewGORMArticleRepository(db)
	ctx := context.Background()
	author := seedUser(t, db, "author01", false)

	var slugs []string
	for i := 0; i < 3; i++ {
		article := &models.Article{AuthorID: author.ID, Title: "Same Title", Content: "c"}
		require.NoError(t, repo.Create(ctx, article, repositories.Associations{}))
		slugs = append(slugs, article.Slug)
	}
	assert.Equal(t, []string{"same-title", "same-title-2", "same-title-3"}, slugs)
}

func TestArticleRepository_UpdateReplacesOnlyPresentAssociations(t *testing.T) {
	db := databasetest.New(t)
	repo := repositories.NewGORMArticleRepository(db)
	ctx := context.Background()
	author := seedUser(t, db, "author01", false)
	scope := repositories.ScopeFor(author)

	article := &models.Article{AuthorID: author.ID, Title: "Post", Content: "c"}
	require.NoError(t, repo.Create(ctx, article, repositories.Associations{
		Tags:       names("a", "b"),
		Categories: names("x"),
	}))

	// Absent lists are untouched.
	require.NoError(t, repo.Update(ctx, article.ID, map[string]interface{}{"title": "Renamed"}, repositories.Associations{}))
	got, err := repo.GetBySlug(ctx, article.Slug, scope)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Title)
	assert.Equal(t, "post", got.Slug)
	assert.Equal(t, []string{"a", "b"}, tagNames(got))
	assert.Equal(t, []string{"x"}, categoryNames(got))

	// A present list replaces the set.
	require.NoError(t, repo.Update(ctx, article.ID, nil, repositories.Associations{
		Tags:       names("c"),
		Categories: names("y", "z"),
	}))
	got, err = repo.GetBySlug(ctx, article.Slug, scope)
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, tagNames(got))
	assert.Equal(t, []string{"y", "z"}, categoryNames(got))

	// An empty list clears it.
	require.NoError(t, repo.Update(ctx, article.ID, nil, repositories.Associations{Tags: names()}))
	got, err = repo.GetBySlug(ctx, article.Slug, scope)
	require.NoError(t, err)
	assert.Empty(t, got.Tags)
	assert.Equal(t, []string{"y", "z"}, categoryNames(got))

	// Tags stay in the shared vocabulary after being detached.
	var count int64
	require.NoError(t, db.Model(&models.Tag{}).Count(&count).Error)
	assert.EqualValues(t, 3, count)
}

func TestArticleRepository_UpdateMissingArticle(t *testing.T) {
	db := databasetest.New(t)
	repo := repositories.NewGORMArticleRepository(db)

	err := repo.Update(context.Background(), "missing", map[string]interface{}{"title": "x"}, repositories.Associations{})
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestArticleRepository_CreateRollsBackWhenAttachFails(t *testing.T) {
	db := databasetest.New(t)
	repo := repositories.NewGORMArticleRepository(db)
	ctx := context.Background()
	author := seedUser(t, db, "author01", false)

	require.NoError(t, db.Callback().Create().Before("gorm:create").Register("test:fail_categories", func(tx *gorm.DB) {
		if tx.Statement.Table == "article_categories" {
			tx.AddError(errors.New("attach failed"))
		}
	}))

	article := &models.Article{AuthorID: author.ID, Title: "Doomed", Content: "c"}
	err := repo.Create(ctx, article, repositories.Associations{
		Tags:       names("fresh"),
		Categories: names("news"),
	})
	require.Error(t, err)
	assert.Empty(t, article.Slug)

	var articles, tags, links int64
	require.NoError(t, db.Model(&models.Article{}).Count(&articles).Error)
	require.NoError(t, db.Model(&models.Tag{}).Count(&tags).Error)
	require.NoError(t, db.Model(&models.ArticleTag{}).Count(&links).Error)
	assert.Zero(t, articles)
	assert.Zero(t, tags)
	assert.Zero(t, links)
}

func TestArticleRepository_UpdateRollsBackWhenAttachFails(t *testing.T) {
	db := databasetest.New(t)
	repo := repositories.NewGORMArticleRepository(db)
	ctx := context.Background()
	author := seedUser(t, db, "author01", false)

	article := &models.Article{AuthorID: author.ID, Title: "Stable", Content: "c"}
	require.NoError(t, repo.Create(ctx, article, repositories.Associations{
		Tags:       names("keep"),
		Categories: names("keep"),
	}))

	require.NoError(t, db.Callback().Create().Before("gorm:create").Register("test:fail_categories", func(tx *gorm.DB) {
		if tx.Statement.Table == "article_categories" {
			tx.AddError(errors.New("attach failed"))
		}
	}))

	err := repo.Update(ctx, article.ID, map[string]interface{}{"title": "Changed"}, repositories.Associations{
		Tags:       names("other"),
		Categories: names("other"),
	})
	require.Error(t, err)

	got, err := repo.GetBySlug(ctx, article.Slug, repositories.ScopeFor(author))
	require.NoError(t, err)
	assert.Equal(t, "Stable", got.Title)
	assert.Equal(t, []string{"keep"}, tagNames(got))
	assert.Equal(t, []string{"keep"}, categoryNames(got))
}

func TestArticleRepository_VisibilityScope(t *testing.T) {
	db := databasetest.New(t)
	repo := repositories.NewGORMArticleRepository(db)
	ctx := context.Background()
	alice := seedUser(t, db, "alice001", false)
	bob := seedUser(t, db, "bob00001", false)
	staff := seedUser(t, db, "staff001", true)

	public := &models.Article{AuthorID: alice.ID, Title: "Public", Content: "c", IsPublic: true}
	draft := &models.Article{AuthorID: alice.ID, Title: "Draft", Content: "c"}
	require.NoError(t, repo.Create(ctx, public, repositories.Associations{}))
	require.NoError(t, repo.Create(ctx, draft, repositories.Associations{}))

	list, err := repo.List(ctx, repositories.ScopeFor(alice))
	require.NoError(t, err)
	assert.Len(t, list, 2)

	list, err = repo.List(ctx, repositories.ScopeFor(bob))
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "public", list[0].Slug)

	list, err = repo.List(ctx, repositories.ScopeFor(staff))
	require.NoError(t, err)
	assert.Len(t, list, 2)

	_, err = repo.GetBySlug(ctx, "draft", repositories.ScopeFor(bob))
	assert.ErrorIs(t, err, repositories.ErrNotFound)

	got, err := repo.GetBySlug(ctx, "draft", repositories.ScopeFor(staff))
	require.NoError(t, err)
	assert.Equal(t, "Draft", got.Title)
}

func TestArticleRepository_Delete(t *testing.T) {
	db := databasetest.New(t)
	repo := repositories.NewGORMArticleRepository(db)
	ctx := context.Background()
	author := seedUser(t, db, "author01", false)

	article := &models.Article{AuthorID: author.ID, Title: "Gone", Content: "c"}
	require.NoError(t, repo.Create(ctx, article, repositories.Associations{Tags: names("t")}))

	require.NoError(t, repo.Delete(ctx, article.ID))
	_, err := repo.GetBySlug(ctx, "gone", repositories.ScopeFor(author))
	assert.ErrorIs(t, err, repositories.ErrNotFound)

	var links int64
	require.NoError(t, db.Model(&models.ArticleTag{}).Count(&links).Error)
	assert.Zero(t, links)

	assert.ErrorIs(t, repo.Delete(ctx, article.ID), repositories.ErrNotFound)
}

func TestAccessScope_CanEdit(t *testing.T) {
	article := &models.Article{AuthorID: "u1"}

	assert.True(t, repositories.AccessScope{UserID: "u1"}.CanEdit(article))
	assert.False(t, repositories.AccessScope{UserID: "u2"}.CanEdit(article))
	assert.True(t, repositories.AccessScope{UserID: "u2", IsStaff: true}.CanEdit(article))
	assert.False(t, repositories.AccessScope{}.CanEdit(article))
}
