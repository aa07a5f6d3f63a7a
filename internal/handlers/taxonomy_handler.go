package handlers

import (
	"cms/internal/services"

	"github.com/gofiber/fiber/v2"
)

// TaxonomyHandler serves the tag and category listings.
type TaxonomyHandler struct {
	service *services.TaxonomyService
}

// NewTaxonomyHandler creates a new TaxonomyHandler.
func NewTaxonomyHandler(service *services.TaxonomyService) *TaxonomyHandler {
	return &TaxonomyHandler{
		service: service,
	}
}

// RegisterRoutes registers the read-only taxonomy routes.
func (h *TaxonomyHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/tags", h.HandleListTags)
	router.Get("/categories", h.HandleListCategories)
}

// HandleListTags lists every tag.
func (h *TaxonomyHandler) HandleListTags(c *fiber.Ctx) error {
	tags, err := h.service.ListTags(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(tags)
}

// HandleListCategories lists every category.
func (h *TaxonomyHandler) HandleListCategories(c *fiber.Ctx) error {
	categories, err := h.service.ListCategories(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(categories)
}
