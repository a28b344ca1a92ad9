package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/shopvault/internal/errs"
	"github.com/and161185/shopvault/internal/model"
)

// UserRepo implements repository.UserRepository.
type UserRepo struct{ db *DB }

// NewUserRepo constructs a user repository.
func NewUserRepo(db *DB) *UserRepo { return &UserRepo{db: db} }

const userCols = `id, shop_id, username, phone, full_name, role,
auth_salt, pwd_hash, kek_salt, wrapped_dek, created_at, updated_at, deleted_at`

// Create inserts a new user row.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	const q = `
INSERT INTO users (id, shop_id, username, phone, full_name, role,
                   auth_salt, pwd_hash, kek_salt, wrapped_dek, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.SQL.ExecContext(ctx, q,
		u.ID.String(), u.ShopID.String(), u.Username, u.Phone, u.FullName, string(u.Role),
		u.AuthSalt, u.PwdHash, u.KekSalt, u.WrappedDEK, u.CreatedAt, u.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

// GetByID selects a user by ID.
func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	const q = `SELECT ` + userCols + ` FROM users WHERE id = ?`
	rows, err := r.db.SQL.QueryContext(ctx, q, id.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, errs.ErrNotFound
	}
	u, err := scanUser(rows)
	if err != nil {
		return nil, err
	}
	return u, rows.Err()
}

// ListByShop selects all users of a shop via the shop_id index.
func (r *UserRepo) ListByShop(ctx context.Context, shopID uuid.UUID) ([]model.User, error) {
	const q = `SELECT ` + userCols + ` FROM users WHERE shop_id = ?`
	rows, err := r.db.SQL.QueryContext(ctx, q, shopID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

func scanUser(rows *sql.Rows) (*model.User, error) {
	var (
		u          model.User
		id, shopID string
		role       string
		deletedAt  sql.NullTime
	)
	err := rows.Scan(&id, &shopID, &u.Username, &u.Phone, &u.FullName, &role,
		&u.AuthSalt, &u.PwdHash, &u.KekSalt, &u.WrappedDEK,
		&u.CreatedAt, &u.UpdatedAt, &deletedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	if u.ID, err = uuid.FromString(id); err != nil {
		return nil, err
	}
	if u.ShopID, err = uuid.FromString(shopID); err != nil {
		return nil, err
	}
	u.Role = model.Role(role)
	if deletedAt.Valid {
		t := deletedAt.Time.UTC()
		u.DeletedAt = &t
	}
	return &u, nil
}
