package repository

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/shopvault/internal/model"
)

// RecordRepository provides access to encrypted business records. The store
// never sees plaintext: records arrive and leave as opaque envelopes.
type RecordRepository interface {
	// Put upserts an envelope by id. Soft deletes go through Put, not Delete.
	Put(ctx context.Context, c Collection, rec *model.EncryptedRecord) error

	// Get loads a single envelope by id.
	Get(ctx context.Context, c Collection, id uuid.UUID) (*model.EncryptedRecord, error)

	// ListByShop loads every envelope of a collection for one shop.
	ListByShop(ctx context.Context, c Collection, shopID uuid.UUID) ([]model.EncryptedRecord, error)

	// Delete physically removes an envelope. Rarely used.
	Delete(ctx context.Context, c Collection, id uuid.UUID) error
}
