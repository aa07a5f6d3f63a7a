package dto

import (
	"io"
	"time"

	"cms/internal/models"

	"github.com/jinzhu/copier"
)

// NamePayload is the {name} shape used for tags and categories on the wire.
type NamePayload struct {
	Name string `json:"name" validate:"required"`
}

// CreateArticleRequest is the body accepted when creating an article.
// There is no author field: the author is the authenticated caller.
type CreateArticleRequest struct {
	Title      string        `json:"title" validate:"required,max=255"`
	Excerpt    string        `json:"excerpt" validate:"max=255"`
	Content    string        `json:"content" validate:"required"`
	SourceURL  *string       `json:"source_url" validate:"omitempty,url,max=200"`
	IsPublic   bool          `json:"is_public"`
	Tags       []NamePayload `json:"tags" validate:"dive"`
	Categories []NamePayload `json:"categories" validate:"dive"`
}

// UpdateArticleRequest is the body accepted when updating an article.
// Nil fields are left untouched. A non-nil Tags or Categories replaces the
// whole set, so an empty list clears it.
type UpdateArticleRequest struct {
	Title      *string        `json:"title" validate:"omitempty,min=1,max=255"`
	Excerpt    *string        `json:"excerpt" validate:"omitempty,max=255"`
	Content    *string        `json:"content" validate:"omitempty,min=1"`
	SourceURL  *string        `json:"source_url" validate:"omitempty,url,max=200"`
	IsPublic   *bool          `json:"is_public"`
	Tags       *[]NamePayload `json:"tags" validate:"omitempty,dive"`
	Categories *[]NamePayload `json:"categories" validate:"omitempty,dive"`
}

// ImageUpload is an uploaded main image travelling alongside a write.
type ImageUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Reader      io.Reader
}

// ArticleResponse is the read shape of an article.
type ArticleResponse struct {
	AuthorNickname string        `json:"author_nickname"`
	Title          string        `json:"title"`
	Excerpt        string        `json:"excerpt"`
	SourceURL      *string       `json:"source_url"`
	ImageMain      *string       `json:"image_main"`
	Slug           string        `json:"slug"`
	Content        string        `json:"content"`
	IsPublic       bool          `json:"is_public"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
	Tags           []NamePayload `json:"tags"`
	Categories     []NamePayload `json:"categories"`
}

// NewArticleResponse maps an article, with author and associations loaded,
// to its read shape.
func NewArticleResponse(article *models.Article) (*ArticleResponse, error) {
	resp := &ArticleResponse{}
	if err := copier.Copy(resp, article); err != nil {
		return nil, err
	}
	resp.AuthorNickname = article.Author.Nickname
	if resp.Tags == nil {
		resp.Tags = []NamePayload{}
	}
	if resp.Categories == nil {
		resp.Categories = []NamePayload{}
	}
	return resp, nil
}

// NamesOf maps tags or categories to their {name} shape.
func NamesOf[T any](rows []T) ([]NamePayload, error) {
	out := make([]NamePayload, 0, len(rows))
	if err := copier.Copy(&out, &rows); err != nil {
		return nil, err
	}
	return out, nil
}
