package repositories

import (
	"context"

	"cms/internal/models"
)

// UserRepository defines the interface for user data access.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByNickname(ctx context.Context, nickname string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	// Delete removes the user together with all of their articles.
	Delete(ctx context.Context, id string) error
}
