package handlers

import (
	"fmt"
	"mime/multipart"
	"strconv"
	"strings"

	"cms/internal/dto"
	"cms/internal/middleware"
	"cms/internal/services"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
)

const imageField = "image_main"

// ArticleHandler handles HTTP requests for articles.
type ArticleHandler struct {
	service *services.ArticleService
}

// NewArticleHandler creates a new ArticleHandler.
func NewArticleHandler(service *services.ArticleService) *ArticleHandler {
	return &ArticleHandler{
		service: service,
	}
}

// RegisterRoutes registers the article routes. router must already require authentication.
func (h *ArticleHandler) RegisterRoutes(router fiber.Router) {
	articleRoutes := router.Group("/articles")
	articleRoutes.Get("/", h.HandleListArticles)
	articleRoutes.Get("/:slug", h.HandleGetArticle)
	articleRoutes.Post("/", h.HandleCreateArticle)
	articleRoutes.Put("/:slug", h.HandleUpdateArticle)
	articleRoutes.Patch("/:slug", h.HandleUpdateArticle)
	articleRoutes.Delete("/:slug", h.HandleDeleteArticle)
}

// HandleListArticles lists the articles visible to the caller.
func (h *ArticleHandler) HandleListArticles(c *fiber.Ctx) error {
	articles, err := h.service.ListArticles(c.UserContext(), middleware.CurrentUser(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(articles)
}

// HandleGetArticle retrieves a single article by slug.
func (h *ArticleHandler) HandleGetArticle(c *fiber.Ctx) error {
	article, err := h.service.GetArticle(c.UserContext(), middleware.CurrentUser(c), c.Params("slug"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(article)
}

// HandleCreateArticle creates an article authored by the caller.
func (h *ArticleHandler) HandleCreateArticle(c *fiber.Ctx) error {
	var req dto.CreateArticleRequest
	image, closeImage, err := parseArticleBody(c, &req)
	if err != nil {
		return badBody(c, err)
	}
	defer closeImage()

	article, err := h.service.CreateArticle(c.UserContext(), middleware.CurrentUser(c), req, image)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(article)
}

// HandleUpdateArticle updates an article. PUT is a full update, PATCH a partial one.
func (h *ArticleHandler) HandleUpdateArticle(c *fiber.Ctx) error {
	var req dto.UpdateArticleRequest
	image, closeImage, err := parseArticleBody(c, &req)
	if err != nil {
		return badBody(c, err)
	}
	defer closeImage()

	full := c.Method() == fiber.MethodPut
	article, err := h.service.UpdateArticle(c.UserContext(), middleware.CurrentUser(c), c.Params("slug"), req, image, full)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(article)
}

// HandleDeleteArticle deletes an article.
func (h *ArticleHandler) HandleDeleteArticle(c *fiber.Ctx) error {
	if err := h.service.DeleteArticle(c.UserContext(), middleware.CurrentUser(c), c.Params("slug")); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// parseArticleBody decodes a JSON or multipart body into out. For multipart
// bodies, tags and categories are JSON arrays in form fields and the image
// is read from the image_main file field. The returned func closes the image.
func parseArticleBody(c *fiber.Ctx, out interface{}) (*dto.ImageUpload, func(), error) {
	noop := func() {}
	if !strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		if err := c.BodyParser(out); err != nil {
			return nil, noop, err
		}
		return nil, noop, nil
	}

	form, err := c.MultipartForm()
	if err != nil {
		return nil, noop, err
	}
	body, err := formToJSON(form)
	if err != nil {
		return nil, noop, err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return nil, noop, err
	}

	files := form.File[imageField]
	if len(files) == 0 {
		return nil, noop, nil
	}
	fh := files[0]
	f, err := fh.Open()
	if err != nil {
		return nil, noop, fmt.Errorf("failed to open %s: %w", imageField, err)
	}
	image := &dto.ImageUpload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get(fiber.HeaderContentType),
		Size:        fh.Size,
		Reader:      f,
	}
	return image, func() { f.Close() }, nil
}

// formToJSON turns multipart values into a JSON object so one decoder
// handles both body kinds and absent fields stay absent.
func formToJSON(form *multipart.Form) ([]byte, error) {
	obj := make(map[string]json.RawMessage, len(form.Value))
	for key, values := range form.Value {
		if len(values) == 0 {
			continue
		}
		v := values[0]
		switch key {
		case "tags", "categories":
			if strings.TrimSpace(v) == "" {
				v = "[]"
			}
			if !json.Valid([]byte(v)) {
				return nil, fmt.Errorf("%s must be a JSON array of {\"name\": ...} objects", key)
			}
			obj[key] = json.RawMessage(v)
		case "is_public":
			b, err := strconv.ParseBool(v)
			if err != nil {
				return nil, fmt.Errorf("is_public must be a boolean: %w", err)
			}
			obj[key] = json.RawMessage(strconv.FormatBool(b))
		default:
			raw, err := json.Marshal(v)
			if err != nil {
				return nil, err
			}
			obj[key] = raw
		}
	}
	return json.Marshal(obj)
}
