package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"

	"github.com/and161185/shopvault/internal/errs"
	"github.com/and161185/shopvault/internal/migrate"
	"github.com/and161185/shopvault/internal/model"
	"github.com/and161185/shopvault/internal/repository"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	ctx := context.Background()
	db, err := Open(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, migrate.Up(ctx, db.SQL))
	return db
}

func newShopAndOwner(t *testing.T) (*model.Shop, *model.User) {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Second)
	shopID := uuid.Must(uuid.NewV4())
	ownerID := uuid.Must(uuid.NewV4())
	shop := &model.Shop{
		ID:        shopID,
		Name:      "Acme Store",
		Code:      "ACMESTORE",
		OwnerID:   ownerID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	owner := &model.User{
		ID:         ownerID,
		ShopID:     shopID,
		Username:   "jane",
		Role:       model.RoleOwner,
		AuthSalt:   []byte("authsalt"),
		PwdHash:    []byte("pwdhash"),
		KekSalt:    []byte("keksalt"),
		WrappedDEK: "d3JhcHBlZA==",
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	return shop, owner
}

func TestMigrate_Idempotent(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	// a second run must be a no-op, not a failure
	require.NoError(t, migrate.Up(context.Background(), db.SQL))
}

func TestShopRepo_CreateWithOwner_AndLookups(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	shops := NewShopRepo(db)
	users := NewUserRepo(db)
	ctx := context.Background()

	shop, owner := newShopAndOwner(t)
	require.NoError(t, shops.CreateWithOwner(ctx, shop, owner))

	byCode, err := shops.GetByCode(ctx, "ACMESTORE")
	require.NoError(t, err)
	require.Equal(t, shop.ID, byCode.ID)
	require.Equal(t, shop.OwnerID, byCode.OwnerID)

	byID, err := shops.GetByID(ctx, shop.ID)
	require.NoError(t, err)
	require.Equal(t, "Acme Store", byID.Name)

	_, err = shops.GetByCode(ctx, "NOPE")
	require.ErrorIs(t, err, errs.ErrNotFound)

	u, err := users.GetByID(ctx, owner.ID)
	require.NoError(t, err)
	require.Equal(t, "jane", u.Username)
	require.Equal(t, model.RoleOwner, u.Role)
	require.Equal(t, owner.WrappedDEK, u.WrappedDEK)
	require.Nil(t, u.DeletedAt)
}

func TestShopRepo_CreateWithOwner_Atomic(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	shops := NewShopRepo(db)
	users := NewUserRepo(db)
	ctx := context.Background()

	shop, owner := newShopAndOwner(t)
	// pre-existing user with the same id forces the second insert to fail
	clash := *owner
	clash.ShopID = uuid.Must(uuid.NewV4())
	require.NoError(t, users.Create(ctx, &clash))

	err := shops.CreateWithOwner(ctx, shop, owner)
	require.Error(t, err)

	// neither the shop nor a second user row may be visible
	_, err = shops.GetByCode(ctx, shop.Code)
	require.ErrorIs(t, err, errs.ErrNotFound)
	list, err := users.ListByShop(ctx, shop.ID)
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestShopRepo_CodeUnique(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	shops := NewShopRepo(db)
	ctx := context.Background()

	shop, owner := newShopAndOwner(t)
	require.NoError(t, shops.CreateWithOwner(ctx, shop, owner))

	dup, dupOwner := newShopAndOwner(t)
	dup.Code = shop.Code
	err := shops.CreateWithOwner(ctx, dup, dupOwner)
	require.ErrorIs(t, err, errs.ErrAlreadyExists)
}

func TestUserRepo_ListByShop(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	shops := NewShopRepo(db)
	users := NewUserRepo(db)
	ctx := context.Background()

	shop, owner := newShopAndOwner(t)
	require.NoError(t, shops.CreateWithOwner(ctx, shop, owner))

	emp := *owner
	emp.ID = uuid.Must(uuid.NewV4())
	emp.Username = "bob"
	emp.Role = model.RoleCashier
	require.NoError(t, users.Create(ctx, &emp))

	list, err := users.ListByShop(ctx, shop.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)

	other, err := users.ListByShop(ctx, uuid.Must(uuid.NewV4()))
	require.NoError(t, err)
	require.Empty(t, other)
}

func TestRecordRepo_PutGetListDelete(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	records := NewRecordRepo(db)
	ctx := context.Background()

	shopID := uuid.Must(uuid.NewV4())
	rec := &model.EncryptedRecord{
		ID:         uuid.Must(uuid.NewV4()),
		ShopID:     shopID,
		Ciphertext: "b3BhcXVl",
	}
	require.NoError(t, records.Put(ctx, repository.Items, rec))

	got, err := records.Get(ctx, repository.Items, rec.ID)
	require.NoError(t, err)
	require.Equal(t, rec.Ciphertext, got.Ciphertext)

	// upsert replaces the ciphertext under the same id
	rec.Ciphertext = "bmV3ZXI="
	require.NoError(t, records.Put(ctx, repository.Items, rec))
	got, err = records.Get(ctx, repository.Items, rec.ID)
	require.NoError(t, err)
	require.Equal(t, "bmV3ZXI=", got.Ciphertext)

	// same id in a different collection is a distinct record
	_, err = records.Get(ctx, repository.Categories, rec.ID)
	require.ErrorIs(t, err, errs.ErrNotFound)

	list, err := records.ListByShop(ctx, repository.Items, shopID)
	require.NoError(t, err)
	require.Len(t, list, 1)

	otherShop, err := records.ListByShop(ctx, repository.Items, uuid.Must(uuid.NewV4()))
	require.NoError(t, err)
	require.Empty(t, otherShop)

	require.NoError(t, records.Delete(ctx, repository.Items, rec.ID))
	require.ErrorIs(t, records.Delete(ctx, repository.Items, rec.ID), errs.ErrNotFound)
	_, err = records.Get(ctx, repository.Items, rec.ID)
	require.ErrorIs(t, err, errs.ErrNotFound)
}
