package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"cms/internal/dto"
	"cms/internal/models"
	"cms/internal/repositories"
	"cms/internal/storage"
	"cms/pkg/sanitizer"
)

const unsupportedImageMsg = "Upload a valid image. Allowed extensions: jpg, jpeg, png."

// ArticleService handles business logic related to articles.
type ArticleService struct {
	repo      repositories.ArticleRepository
	images    storage.Store
	publisher EventPublisher
	sanitizer *sanitizer.Sanitizer
}

// NewArticleService creates a new ArticleService. publisher may be nil.
func NewArticleService(repo repositories.ArticleRepository, images storage.Store, publisher EventPublisher) *ArticleService {
	return &ArticleService{
		repo:      repo,
		images:    images,
		publisher: publisher,
		sanitizer: sanitizer.New(),
	}
}

// ListArticles returns every article the caller may read.
func (s *ArticleService) ListArticles(ctx context.Context, caller *models.User) ([]dto.ArticleResponse, error) {
	if caller == nil {
		return nil, ErrUnauthenticated
	}
	articles, err := s.repo.List(ctx, repositories.ScopeFor(caller))
	if err != nil {
		return nil, err
	}
	out := make([]dto.ArticleResponse, 0, len(articles))
	for i := range articles {
		resp, err := dto.NewArticleResponse(&articles[i])
		if err != nil {
			return nil, fmt.Errorf("failed to map article %s: %w", articles[i].Slug, err)
		}
		out = append(out, *resp)
	}
	return out, nil
}

// GetArticle returns one article by slug. Articles hidden from the caller
// are reported as not found.
func (s *ArticleService) GetArticle(ctx context.Context, caller *models.User, slug string) (*dto.ArticleResponse, error) {
	if caller == nil {
		return nil, ErrUnauthenticated
	}
	article, err := s.visible(ctx, caller, slug)
	if err != nil {
		return nil, err
	}
	return dto.NewArticleResponse(article)
}

// CreateArticle validates the request, stores the optional image and
// persists the article with its tags and categories in one transaction.
// The author is always the caller.
func (s *ArticleService) CreateArticle(ctx context.Context, caller *models.User, req dto.CreateArticleRequest, image *dto.ImageUpload) (*dto.ArticleResponse, error) {
	if caller == nil {
		return nil, ErrUnauthenticated
	}

	verr := &ValidationError{}
	validateStruct(req, verr)
	tags := cleanNames("tags", payloadNames(req.Tags), maxTagName, verr)
	categories := cleanNames("categories", payloadNames(req.Categories), maxCategoryName, verr)
	content := s.sanitizer.Content(req.Content)
	if content == "" && req.Content != "" {
		verr.add("content", "This field is required.")
	}
	if image != nil && storage.ValidateImageName(image.Filename) != nil {
		verr.add("image_main", unsupportedImageMsg)
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}

	article := &models.Article{
		AuthorID:  caller.ID,
		Title:     req.Title,
		Excerpt:   req.Excerpt,
		Content:   content,
		SourceURL: nonEmpty(req.SourceURL),
		IsPublic:  req.IsPublic,
	}

	imageRef, err := s.saveImage(ctx, image)
	if err != nil {
		return nil, err
	}
	article.ImageMain = imageRef

	assoc := repositories.Associations{Tags: &tags, Categories: &categories}
	if err := s.repo.Create(ctx, article, assoc); err != nil {
		s.removeImage(ctx, imageRef)
		return nil, fmt.Errorf("failed to create article: %w", err)
	}

	created, err := s.repo.GetBySlug(ctx, article.Slug, repositories.ScopeFor(caller))
	if err != nil {
		return nil, fmt.Errorf("failed to reload article %s: %w", article.Slug, err)
	}
	publishArticleEvent(s.publisher, s.event(EventArticleCreated, created, caller))
	return dto.NewArticleResponse(created)
}

// UpdateArticle applies a partial (or, when full is set, complete) update.
// Only the author or staff may update. Present tag or category lists
// replace the existing set; absent lists leave it untouched.
func (s *ArticleService) UpdateArticle(ctx context.Context, caller *models.User, slug string, req dto.UpdateArticleRequest, image *dto.ImageUpload, full bool) (*dto.ArticleResponse, error) {
	if caller == nil {
		return nil, ErrUnauthenticated
	}
	existing, err := s.editable(ctx, caller, slug)
	if err != nil {
		return nil, err
	}

	verr := &ValidationError{}
	validateStruct(req, verr)
	if full {
		if req.Title == nil {
			verr.add("title", "This field is required.")
		}
		if req.Content == nil {
			verr.add("content", "This field is required.")
		}
	}

	changes := make(map[string]interface{})
	if req.Title != nil {
		changes["title"] = *req.Title
	}
	if req.Excerpt != nil {
		changes["excerpt"] = *req.Excerpt
	}
	if req.Content != nil {
		content := s.sanitizer.Content(*req.Content)
		if content == "" {
			verr.add("content", "This field is required.")
		}
		changes["content"] = content
	}
	if req.SourceURL != nil {
		changes["source_url"] = nonEmpty(req.SourceURL)
	}
	if req.IsPublic != nil {
		changes["is_public"] = *req.IsPublic
	}

	var assoc repositories.Associations
	if req.Tags != nil {
		tags := cleanNames("tags", payloadNames(*req.Tags), maxTagName, verr)
		assoc.Tags = &tags
	}
	if req.Categories != nil {
		categories := cleanNames("categories", payloadNames(*req.Categories), maxCategoryName, verr)
		assoc.Categories = &categories
	}
	if image != nil && storage.ValidateImageName(image.Filename) != nil {
		verr.add("image_main", unsupportedImageMsg)
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}

	imageRef, err := s.saveImage(ctx, image)
	if err != nil {
		return nil, err
	}
	if imageRef != nil {
		changes["image_main"] = imageRef
	}

	if err := s.repo.Update(ctx, existing.ID, changes, assoc); err != nil {
		s.removeImage(ctx, imageRef)
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrArticleNotFound
		}
		return nil, fmt.Errorf("failed to update article %s: %w", slug, err)
	}
	if imageRef != nil {
		s.removeImage(ctx, existing.ImageMain)
	}

	updated, err := s.repo.GetBySlug(ctx, existing.Slug, repositories.ScopeFor(caller))
	if err != nil {
		return nil, fmt.Errorf("failed to reload article %s: %w", existing.Slug, err)
	}
	publishArticleEvent(s.publisher, s.event(EventArticleUpdated, updated, caller))
	return dto.NewArticleResponse(updated)
}

// DeleteArticle removes an article. Only the author or staff may delete.
func (s *ArticleService) DeleteArticle(ctx context.Context, caller *models.User, slug string) error {
	if caller == nil {
		return ErrUnauthenticated
	}
	existing, err := s.editable(ctx, caller, slug)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, existing.ID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrArticleNotFound
		}
		return fmt.Errorf("failed to delete article %s: %w", slug, err)
	}
	s.removeImage(ctx, existing.ImageMain)
	publishArticleEvent(s.publisher, s.event(EventArticleDeleted, existing, caller))
	return nil
}

func (s *ArticleService) visible(ctx context.Context, caller *models.User, slug string) (*models.Article, error) {
	article, err := s.repo.GetBySlug(ctx, slug, repositories.ScopeFor(caller))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrArticleNotFound
		}
		return nil, err
	}
	return article, nil
}

// editable loads an article the caller can see and checks write permission.
func (s *ArticleService) editable(ctx context.Context, caller *models.User, slug string) (*models.Article, error) {
	article, err := s.visible(ctx, caller, slug)
	if err != nil {
		return nil, err
	}
	if !repositories.ScopeFor(caller).CanEdit(article) {
		return nil, ErrForbidden
	}
	return article, nil
}

func (s *ArticleService) saveImage(ctx context.Context, image *dto.ImageUpload) (*string, error) {
	if image == nil {
		return nil, nil
	}
	if s.images == nil {
		return nil, errors.New("image storage is not configured")
	}
	ref, err := s.images.Save(ctx, storage.ImageKey(image.Filename), image.Reader, image.Size, image.ContentType)
	if err != nil {
		return nil, fmt.Errorf("failed to store image: %w", err)
	}
	return &ref, nil
}

func (s *ArticleService) removeImage(ctx context.Context, ref *string) {
	if ref == nil || s.images == nil {
		return
	}
	if err := s.images.Remove(ctx, *ref); err != nil {
		slog.WarnContext(ctx, "failed to remove image", "ref", *ref, "err", err)
	}
}

func (s *ArticleService) event(name string, article *models.Article, caller *models.User) ArticleEvent {
	return ArticleEvent{
		Event:      name,
		Slug:       article.Slug,
		AuthorID:   article.AuthorID,
		ActorID:    caller.ID,
		OccurredAt: time.Now().UTC(),
	}
}

func payloadNames(payload []dto.NamePayload) []string {
	names := make([]string, len(payload))
	for i, p := range payload {
		names[i] = p.Name
	}
	return names
}

func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
