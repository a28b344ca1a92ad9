package repository

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/shopvault/internal/model"
)

// UserRepository provides access to credential records. Uniqueness of
// username/phone within a shop is enforced by the auth layer, not here;
// the store indexes are non-unique.
type UserRepository interface {
	// Create inserts a new user.
	Create(ctx context.Context, u *model.User) error

	// GetByID loads a user by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)

	// ListByShop loads all users of a shop, including soft-deleted ones.
	ListByShop(ctx context.Context, shopID uuid.UUID) ([]model.User, error)
}
