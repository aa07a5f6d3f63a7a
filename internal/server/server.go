package server

import (
	"errors"
	"time"

	"cms/internal/config"
	"cms/internal/handlers"
	"cms/internal/middleware"
	"cms/internal/repositories"
	"cms/internal/services"
	"cms/internal/storage"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"gorm.io/gorm"
)

const bodyLimit = 10 * 1024 * 1024

// Services bundles the business services the HTTP layer depends on.
type Services struct {
	Auth     *services.AuthService
	Articles *services.ArticleService
	Taxonomy *services.TaxonomyService
}

// NewServices wires repositories and services on top of db. publisher may be nil.
func NewServices(db *gorm.DB, images storage.Store, publisher services.EventPublisher, jwtCfg config.JWTConfig) Services {
	userRepo := repositories.NewGORMUserRepository(db)
	articleRepo := repositories.NewGORMArticleRepository(db)
	taxonomyRepo := repositories.NewGORMTaxonomyRepository(db)

	return Services{
		Auth:     services.NewAuthService(userRepo, jwtCfg.Secret, jwtCfg.Duration),
		Articles: services.NewArticleService(articleRepo, images, publisher),
		Taxonomy: services.NewTaxonomyService(taxonomyRepo),
	}
}

// New builds the Fiber application with every route registered.
func New(svc Services) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "cms",
		BodyLimit:    bodyLimit,
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
		ErrorHandler: errorHandler,
	})

	app.Use(recover.New())
	app.Use(logger.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	apiV1 := app.Group("/api/v1")

	authHandler := handlers.NewAuthHandler(svc.Auth)
	authHandler.RegisterRoutes(apiV1)
	handlers.NewTaxonomyHandler(svc.Taxonomy).RegisterRoutes(apiV1)

	protected := apiV1.Group("", middleware.AuthRequired(svc.Auth))
	handlers.NewArticleHandler(svc.Articles).RegisterRoutes(protected)
	authHandler.RegisterAccountRoutes(protected)

	return app
}

// errorHandler renders errors that escape handlers, such as unknown routes.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var ferr *fiber.Error
	if errors.As(err, &ferr) {
		code = ferr.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"message": err.Error(),
	})
}
