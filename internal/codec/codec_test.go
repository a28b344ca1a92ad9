package codec

import (
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/and161185/shopvault/internal/crypto"
	"github.com/and161185/shopvault/internal/errs"
	"github.com/and161185/shopvault/internal/model"
)

func TestSealOpen_Item(t *testing.T) {
	t.Parallel()
	key, err := crypto.GenerateDataKey()
	require.NoError(t, err)

	now := time.Now().UTC().Truncate(time.Second)
	item := model.Item{
		Base: model.Base{
			ID:        uuid.Must(uuid.NewV4()),
			ShopID:    uuid.Must(uuid.NewV4()),
			CreatedAt: now,
			UpdatedAt: now,
		},
		Name:         "Espresso Cup",
		SKU:          "CUP-01",
		Quantity:     12,
		MinQuantity:  3,
		Unit:         "pcs",
		CostPrice:    decimal.NewFromInt(150),
		SellingPrice: decimal.NewFromInt(400),
	}

	rec, err := Seal(item, item.ID, item.ShopID, key)
	require.NoError(t, err)
	require.Equal(t, item.ID, rec.ID)
	require.Equal(t, item.ShopID, rec.ShopID)
	require.NotContains(t, rec.Ciphertext, "Espresso")

	got, err := Open[model.Item](rec, key)
	require.NoError(t, err)
	require.Equal(t, item.Name, got.Name)
	require.Equal(t, item.ID, got.ID)
	require.True(t, item.SellingPrice.Equal(got.SellingPrice))
	require.True(t, got.CreatedAt.Equal(now))
}

func TestOpen_WrongKey(t *testing.T) {
	t.Parallel()
	key, err := crypto.GenerateDataKey()
	require.NoError(t, err)
	other, err := crypto.GenerateDataKey()
	require.NoError(t, err)

	id := uuid.Must(uuid.NewV4())
	rec, err := Seal(model.Category{Base: model.Base{ID: id}}, id, id, key)
	require.NoError(t, err)

	_, err = Open[model.Category](rec, other)
	require.ErrorIs(t, err, errs.ErrIntegrity)
}
