package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/gofrs/uuid/v5"
	sqlite3 "modernc.org/sqlite"

	"github.com/and161185/shopvault/internal/errs"
	"github.com/and161185/shopvault/internal/model"
)

// ShopRepo implements repository.ShopRepository.
type ShopRepo struct{ db *DB }

// NewShopRepo constructs a shop repository.
func NewShopRepo(db *DB) *ShopRepo { return &ShopRepo{db: db} }

// CreateWithOwner inserts shop and owner in one transaction so a shop can
// never exist without its owner credential record, or vice versa.
func (r *ShopRepo) CreateWithOwner(ctx context.Context, shop *model.Shop, owner *model.User) (err error) {
	tx, err := r.db.SQL.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()

	const insShop = `
INSERT INTO shops (id, name, code, owner_id, location, phone, email, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err = tx.ExecContext(ctx, insShop,
		shop.ID.String(), shop.Name, shop.Code, shop.OwnerID.String(),
		shop.Location, shop.Phone, shop.Email, shop.CreatedAt, shop.UpdatedAt,
	); err != nil {
		if isUniqueViolation(err) {
			err = errs.ErrAlreadyExists
		}
		return err
	}

	const insUser = `
INSERT INTO users (id, shop_id, username, phone, full_name, role,
                   auth_salt, pwd_hash, kek_salt, wrapped_dek, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = tx.ExecContext(ctx, insUser,
		owner.ID.String(), owner.ShopID.String(), owner.Username, owner.Phone,
		owner.FullName, string(owner.Role),
		owner.AuthSalt, owner.PwdHash, owner.KekSalt, owner.WrappedDEK,
		owner.CreatedAt, owner.UpdatedAt,
	)
	return err
}

// GetByID selects a shop by ID.
func (r *ShopRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Shop, error) {
	const q = `
SELECT id, name, code, owner_id, location, phone, email, created_at, updated_at
FROM shops WHERE id = ?`
	return r.scanShop(r.db.SQL.QueryRowContext(ctx, q, id.String()))
}

// GetByCode selects a shop by its unique code.
func (r *ShopRepo) GetByCode(ctx context.Context, code string) (*model.Shop, error) {
	const q = `
SELECT id, name, code, owner_id, location, phone, email, created_at, updated_at
FROM shops WHERE code = ?`
	return r.scanShop(r.db.SQL.QueryRowContext(ctx, q, code))
}

func (r *ShopRepo) scanShop(row *sql.Row) (*model.Shop, error) {
	var (
		s           model.Shop
		id, ownerID string
	)
	err := row.Scan(&id, &s.Name, &s.Code, &ownerID, &s.Location, &s.Phone, &s.Email, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	if s.ID, err = uuid.FromString(id); err != nil {
		return nil, err
	}
	if s.OwnerID, err = uuid.FromString(ownerID); err != nil {
		return nil, err
	}
	return &s, nil
}

// isUniqueViolation reports whether the error is a unique or primary key
// constraint violation.
func isUniqueViolation(err error) bool {
	var se *sqlite3.Error
	if !errors.As(err, &se) {
		return false
	}
	// SQLITE_CONSTRAINT_PRIMARYKEY / SQLITE_CONSTRAINT_UNIQUE
	return se.Code() == 1555 || se.Code() == 2067
}
