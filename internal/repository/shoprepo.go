// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/shopvault/internal/model"
)

// ShopRepository provides access to shop metadata (plaintext).
type ShopRepository interface {
	// CreateWithOwner persists a shop and its owner user atomically: both
	// become visible or neither does.
	CreateWithOwner(ctx context.Context, shop *model.Shop, owner *model.User) error

	// GetByID loads a shop by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Shop, error)

	// GetByCode loads a shop by its unique code (exact match).
	GetByCode(ctx context.Context, code string) (*model.Shop, error)
}
