package services

import (
	"context"

	"cms/internal/dto"
	"cms/internal/repositories"
)

// TaxonomyService exposes the read-only tag and category listings.
type TaxonomyService struct {
	repo repositories.TaxonomyRepository
}

// NewTaxonomyService creates a new TaxonomyService.
func NewTaxonomyService(repo repositories.TaxonomyRepository) *TaxonomyService {
	return &TaxonomyService{
		repo: repo,
	}
}

// ListTags retrieves all tags.
func (s *TaxonomyService) ListTags(ctx context.Context) ([]dto.NamePayload, error) {
	tags, err := s.repo.ListTags(ctx)
	if err != nil {
		return nil, err
	}
	return dto.NamesOf(tags)
}

// ListCategories retrieves all categories.
func (s *TaxonomyService) ListCategories(ctx context.Context) ([]dto.NamePayload, error) {
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	return dto.NamesOf(categories)
}
