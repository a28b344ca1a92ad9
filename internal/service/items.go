package service

import (
	"context"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/and161185/shopvault/internal/errs"
	"github.com/and161185/shopvault/internal/model"
	"github.com/and161185/shopvault/internal/repository"
)

// ItemInput carries the caller-settable item fields.
type ItemInput struct {
	Name         string
	SKU          string
	Barcode      string
	Description  string
	CategoryID   uuid.UUID
	LocationID   uuid.UUID
	Quantity     int64
	MinQuantity  int64
	Unit         string
	CostPrice    decimal.Decimal
	SellingPrice decimal.Decimal
	CustomFields map[string]string
}

// ItemUpdate carries partial item fields; nil means "leave unchanged".
type ItemUpdate struct {
	Name         *string
	SKU          *string
	Barcode      *string
	Description  *string
	CategoryID   *uuid.UUID
	LocationID   *uuid.UUID
	Quantity     *int64
	MinQuantity  *int64
	Unit         *string
	CostPrice    *decimal.Decimal
	SellingPrice *decimal.Decimal
}

// CreateItem creates an item and appends the initial "add" stock transaction.
// Creation may also raise a low-stock alert when the starting quantity is
// already at or below the minimum.
func (s *DataService) CreateItem(ctx context.Context, in ItemInput) (model.Item, error) {
	if !s.sess.SignedIn() {
		return model.Item{}, errs.ErrKeyUnavailable
	}
	base, err := s.newBase()
	if err != nil {
		return model.Item{}, err
	}
	item := model.Item{
		Base:         base,
		Name:         in.Name,
		SKU:          in.SKU,
		Barcode:      in.Barcode,
		Description:  in.Description,
		CategoryID:   in.CategoryID,
		LocationID:   in.LocationID,
		Quantity:     in.Quantity,
		MinQuantity:  in.MinQuantity,
		Unit:         in.Unit,
		CostPrice:    in.CostPrice,
		SellingPrice: in.SellingPrice,
		CustomFields: in.CustomFields,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.save(ctx, repository.Items, item.ID, item); err != nil {
		return model.Item{}, err
	}
	s.st.items = append(s.st.items, item)

	if _, err := s.appendTransaction(ctx, model.Transaction{
		ItemID:       item.ID,
		Type:         model.TxAdd,
		Quantity:     item.Quantity,
		ToLocationID: item.LocationID,
		Reason:       "Initial creation",
	}); err != nil {
		return model.Item{}, err
	}
	s.checkLowStock(ctx, item)
	return item, nil
}

// UpdateItem merges partial fields into the item and persists it.
func (s *DataService) UpdateItem(ctx context.Context, id uuid.UUID, upd ItemUpdate) (model.Item, error) {
	if !s.sess.SignedIn() {
		return model.Item{}, errs.ErrKeyUnavailable
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i := range s.st.items {
		if s.st.items[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return model.Item{}, errs.ErrNotFound
	}

	item := s.st.items[idx]
	applyItemUpdate(&item, upd)
	item.UpdatedAt = time.Now().UTC()

	if err := s.save(ctx, repository.Items, item.ID, item); err != nil {
		return model.Item{}, err
	}
	s.st.items[idx] = item
	s.checkLowStock(ctx, item)
	return item, nil
}

// DeleteItem soft-deletes: the record stays in the store with deletedAt set.
func (s *DataService) DeleteItem(ctx context.Context, id uuid.UUID) error {
	if !s.sess.SignedIn() {
		return errs.ErrKeyUnavailable
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.softDeleteItem(ctx, id)
}

func (s *DataService) softDeleteItem(ctx context.Context, id uuid.UUID) error {
	for i := range s.st.items {
		if s.st.items[i].ID != id {
			continue
		}
		item := s.st.items[i]
		now := time.Now().UTC()
		item.DeletedAt = &now
		item.UpdatedAt = now
		if err := s.save(ctx, repository.Items, item.ID, item); err != nil {
			return err
		}
		s.st.items[i] = item
		return nil
	}
	return errs.ErrNotFound
}

func applyItemUpdate(item *model.Item, upd ItemUpdate) {
	if upd.Name != nil {
		item.Name = *upd.Name
	}
	if upd.SKU != nil {
		item.SKU = *upd.SKU
	}
	if upd.Barcode != nil {
		item.Barcode = *upd.Barcode
	}
	if upd.Description != nil {
		item.Description = *upd.Description
	}
	if upd.CategoryID != nil {
		item.CategoryID = *upd.CategoryID
	}
	if upd.LocationID != nil {
		item.LocationID = *upd.LocationID
	}
	if upd.Quantity != nil {
		item.Quantity = *upd.Quantity
	}
	if upd.MinQuantity != nil {
		item.MinQuantity = *upd.MinQuantity
	}
	if upd.Unit != nil {
		item.Unit = *upd.Unit
	}
	if upd.CostPrice != nil {
		item.CostPrice = *upd.CostPrice
	}
	if upd.SellingPrice != nil {
		item.SellingPrice = *upd.SellingPrice
	}
}

// checkLowStock raises an unread low-stock alert unless one is already
// pending for the item. Alert persistence is best-effort: stock state is
// already durable when this runs. Caller holds s.mu.
func (s *DataService) checkLowStock(ctx context.Context, item model.Item) {
	if item.DeletedAt != nil || item.MinQuantity <= 0 || item.Quantity > item.MinQuantity {
		return
	}
	for _, a := range s.st.alerts {
		if a.Type == model.AlertLowStock && a.ItemID == item.ID && !a.IsRead {
			return
		}
	}
	base, err := s.newBase()
	if err != nil {
		s.log.Error("low-stock alert id", zap.Error(err))
		return
	}
	alert := model.Alert{
		Base:     base,
		ItemID:   item.ID,
		Type:     model.AlertLowStock,
		Severity: model.SeverityInfo,
		Message:  fmt.Sprintf("%s is low on stock (%d %s left)", item.Name, item.Quantity, item.Unit),
	}
	if err := s.save(ctx, repository.Alerts, alert.ID, alert); err != nil {
		s.log.Error("low-stock alert write", zap.Error(err))
		return
	}
	s.st.alerts = append(s.st.alerts, alert)
}

// MarkAlertRead flags an alert as read.
func (s *DataService) MarkAlertRead(ctx context.Context, id uuid.UUID) error {
	if !s.sess.SignedIn() {
		return errs.ErrKeyUnavailable
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.st.alerts {
		if s.st.alerts[i].ID != id {
			continue
		}
		alert := s.st.alerts[i]
		alert.IsRead = true
		alert.UpdatedAt = time.Now().UTC()
		if err := s.save(ctx, repository.Alerts, alert.ID, alert); err != nil {
			return err
		}
		s.st.alerts[i] = alert
		return nil
	}
	return errs.ErrNotFound
}

// CategoryInput carries the caller-settable category fields.
type CategoryInput struct {
	Name        string
	ParentID    uuid.UUID
	Description string
}

// CreateCategory creates a category.
func (s *DataService) CreateCategory(ctx context.Context, in CategoryInput) (model.Category, error) {
	if !s.sess.SignedIn() {
		return model.Category{}, errs.ErrKeyUnavailable
	}
	base, err := s.newBase()
	if err != nil {
		return model.Category{}, err
	}
	cat := model.Category{Base: base, Name: in.Name, ParentID: in.ParentID, Description: in.Description}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.save(ctx, repository.Categories, cat.ID, cat); err != nil {
		return model.Category{}, err
	}
	s.st.categories = append(s.st.categories, cat)
	return cat, nil
}

// UpdateCategory replaces the mutable category fields.
func (s *DataService) UpdateCategory(ctx context.Context, id uuid.UUID, in CategoryInput) (model.Category, error) {
	if !s.sess.SignedIn() {
		return model.Category{}, errs.ErrKeyUnavailable
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.st.categories {
		if s.st.categories[i].ID != id {
			continue
		}
		cat := s.st.categories[i]
		cat.Name = in.Name
		cat.ParentID = in.ParentID
		cat.Description = in.Description
		cat.UpdatedAt = time.Now().UTC()
		if err := s.save(ctx, repository.Categories, cat.ID, cat); err != nil {
			return model.Category{}, err
		}
		s.st.categories[i] = cat
		return cat, nil
	}
	return model.Category{}, errs.ErrNotFound
}

// DeleteCategory soft-deletes a category. Items referencing it keep their
// dangling categoryId; readers tolerate that.
func (s *DataService) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	if !s.sess.SignedIn() {
		return errs.ErrKeyUnavailable
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.st.categories {
		if s.st.categories[i].ID != id {
			continue
		}
		cat := s.st.categories[i]
		now := time.Now().UTC()
		cat.DeletedAt = &now
		cat.UpdatedAt = now
		if err := s.save(ctx, repository.Categories, cat.ID, cat); err != nil {
			return err
		}
		s.st.categories[i] = cat
		return nil
	}
	return errs.ErrNotFound
}

// LocationInput carries the caller-settable location fields.
type LocationInput struct {
	Name        string
	ParentID    uuid.UUID
	Description string
	Address     string
}

// CreateLocation creates a storage location.
func (s *DataService) CreateLocation(ctx context.Context, in LocationInput) (model.Location, error) {
	if !s.sess.SignedIn() {
		return model.Location{}, errs.ErrKeyUnavailable
	}
	base, err := s.newBase()
	if err != nil {
		return model.Location{}, err
	}
	loc := model.Location{Base: base, Name: in.Name, ParentID: in.ParentID, Description: in.Description, Address: in.Address}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.save(ctx, repository.Locations, loc.ID, loc); err != nil {
		return model.Location{}, err
	}
	s.st.locations = append(s.st.locations, loc)
	return loc, nil
}

// UpdateLocation replaces the mutable location fields.
func (s *DataService) UpdateLocation(ctx context.Context, id uuid.UUID, in LocationInput) (model.Location, error) {
	if !s.sess.SignedIn() {
		return model.Location{}, errs.ErrKeyUnavailable
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.st.locations {
		if s.st.locations[i].ID != id {
			continue
		}
		loc := s.st.locations[i]
		loc.Name = in.Name
		loc.ParentID = in.ParentID
		loc.Description = in.Description
		loc.Address = in.Address
		loc.UpdatedAt = time.Now().UTC()
		if err := s.save(ctx, repository.Locations, loc.ID, loc); err != nil {
			return model.Location{}, err
		}
		s.st.locations[i] = loc
		return loc, nil
	}
	return model.Location{}, errs.ErrNotFound
}

// DeleteLocation soft-deletes a location.
func (s *DataService) DeleteLocation(ctx context.Context, id uuid.UUID) error {
	if !s.sess.SignedIn() {
		return errs.ErrKeyUnavailable
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.st.locations {
		if s.st.locations[i].ID != id {
			continue
		}
		loc := s.st.locations[i]
		now := time.Now().UTC()
		loc.DeletedAt = &now
		loc.UpdatedAt = now
		if err := s.save(ctx, repository.Locations, loc.ID, loc); err != nil {
			return err
		}
		s.st.locations[i] = loc
		return nil
	}
	return errs.ErrNotFound
}

// TransactionInput carries the caller-settable stock movement fields.
type TransactionInput struct {
	ItemID         uuid.UUID
	Type           model.TransactionType
	Quantity       int64
	FromLocationID uuid.UUID
	ToLocationID   uuid.UUID
	Reason         string
	Notes          string
}

// AddTransaction appends a stock movement. Transactions are append-only and
// are never updated or deleted.
func (s *DataService) AddTransaction(ctx context.Context, in TransactionInput) (model.Transaction, error) {
	if !s.sess.SignedIn() {
		return model.Transaction{}, errs.ErrKeyUnavailable
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendTransaction(ctx, model.Transaction{
		ItemID:         in.ItemID,
		Type:           in.Type,
		Quantity:       in.Quantity,
		FromLocationID: in.FromLocationID,
		ToLocationID:   in.ToLocationID,
		Reason:         in.Reason,
		Notes:          in.Notes,
	})
}

// appendTransaction persists and prepends a transaction. Caller holds s.mu.
func (s *DataService) appendTransaction(ctx context.Context, tx model.Transaction) (model.Transaction, error) {
	base, err := s.newBase()
	if err != nil {
		return model.Transaction{}, err
	}
	tx.Base = base
	tx.UserID = s.sess.UserID()
	if err := s.save(ctx, repository.Transactions, tx.ID, tx); err != nil {
		return model.Transaction{}, err
	}
	s.st.transactions = append([]model.Transaction{tx}, s.st.transactions...)
	return tx, nil
}
