package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/shopvault/internal/errs"
	"github.com/and161185/shopvault/internal/model"
	"github.com/and161185/shopvault/internal/repository"
)

// RecordRepo implements repository.RecordRepository over a single table of
// opaque envelopes, keyed by (collection, id) and indexed by shop for
// tenant-scoped retrieval.
type RecordRepo struct{ db *DB }

// NewRecordRepo constructs a record repository.
func NewRecordRepo(db *DB) *RecordRepo { return &RecordRepo{db: db} }

// Put upserts an envelope by id. Writes are atomic per record.
func (r *RecordRepo) Put(ctx context.Context, c repository.Collection, rec *model.EncryptedRecord) error {
	if !c.Valid() {
		return errs.ErrNotFound
	}
	const q = `
INSERT INTO records (collection, id, shop_id, ciphertext)
VALUES (?, ?, ?, ?)
ON CONFLICT (collection, id) DO UPDATE SET shop_id = excluded.shop_id, ciphertext = excluded.ciphertext`
	_, err := r.db.SQL.ExecContext(ctx, q, string(c), rec.ID.String(), rec.ShopID.String(), rec.Ciphertext)
	return err
}

// Get selects a single envelope by id.
func (r *RecordRepo) Get(ctx context.Context, c repository.Collection, id uuid.UUID) (*model.EncryptedRecord, error) {
	if !c.Valid() {
		return nil, errs.ErrNotFound
	}
	const q = `SELECT id, shop_id, ciphertext FROM records WHERE collection = ? AND id = ?`
	row := r.db.SQL.QueryRowContext(ctx, q, string(c), id.String())

	var rid, shopID string
	var rec model.EncryptedRecord
	if err := row.Scan(&rid, &shopID, &rec.Ciphertext); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	var err error
	if rec.ID, err = uuid.FromString(rid); err != nil {
		return nil, err
	}
	if rec.ShopID, err = uuid.FromString(shopID); err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListByShop selects all envelopes of a collection for one shop via the
// (collection, shop_id) index.
func (r *RecordRepo) ListByShop(ctx context.Context, c repository.Collection, shopID uuid.UUID) ([]model.EncryptedRecord, error) {
	if !c.Valid() {
		return nil, errs.ErrNotFound
	}
	const q = `SELECT id, shop_id, ciphertext FROM records WHERE collection = ? AND shop_id = ?`
	rows, err := r.db.SQL.QueryContext(ctx, q, string(c), shopID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.EncryptedRecord
	for rows.Next() {
		var rid, sid string
		var rec model.EncryptedRecord
		if err := rows.Scan(&rid, &sid, &rec.Ciphertext); err != nil {
			return nil, err
		}
		if rec.ID, err = uuid.FromString(rid); err != nil {
			return nil, err
		}
		if rec.ShopID, err = uuid.FromString(sid); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Delete physically removes an envelope. Business records prefer soft delete
// via Put; this exists for completeness.
func (r *RecordRepo) Delete(ctx context.Context, c repository.Collection, id uuid.UUID) error {
	if !c.Valid() {
		return errs.ErrNotFound
	}
	const q = `DELETE FROM records WHERE collection = ? AND id = ?`
	res, err := r.db.SQL.ExecContext(ctx, q, string(c), id.String())
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errs.ErrNotFound
	}
	return nil
}
