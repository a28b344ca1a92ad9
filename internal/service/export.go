package service

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/shopvault/internal/errs"
	"github.com/and161185/shopvault/internal/model"
)

// Snapshot is the full-shop export shape: every decrypted business record.
// It is a read-only projection of already-decrypted in-memory state and
// never touches the crypto layer.
type Snapshot struct {
	Shop          model.Shop           `json:"shop"`
	Items         []model.Item         `json:"items"`
	Categories    []model.Category     `json:"categories"`
	Locations     []model.Location     `json:"locations"`
	Transactions  []model.Transaction  `json:"transactions"`
	Alerts        []model.Alert        `json:"alerts"`
	Shifts        []model.Shift        `json:"shifts"`
	Sales         []model.Sale         `json:"sales"`
	Activities    []model.Activity     `json:"activities"`
	ShiftRequests []model.ShiftRequest `json:"shiftRequests"`
	LeaveRequests []model.LeaveRequest `json:"leaveRequests"`
}

// ExportJSON writes the full decrypted shop snapshot. A stolen export is
// plaintext; the threat model covers data at rest, not what the operator
// chooses to export.
func (s *DataService) ExportJSON(w io.Writer) error {
	if !s.sess.SignedIn() {
		return errs.ErrKeyUnavailable
	}

	s.mu.Lock()
	snap := Snapshot{
		Shop:          s.sess.Shop(),
		Items:         append([]model.Item(nil), s.st.items...),
		Categories:    append([]model.Category(nil), s.st.categories...),
		Locations:     append([]model.Location(nil), s.st.locations...),
		Transactions:  append([]model.Transaction(nil), s.st.transactions...),
		Alerts:        append([]model.Alert(nil), s.st.alerts...),
		Shifts:        append([]model.Shift(nil), s.st.shifts...),
		Sales:         append([]model.Sale(nil), s.st.sales...),
		Activities:    append([]model.Activity(nil), s.st.activities...),
		ShiftRequests: append([]model.ShiftRequest(nil), s.st.shiftRequests...),
		LeaveRequests: append([]model.LeaveRequest(nil), s.st.leaveRequests...),
	}
	s.mu.Unlock()

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}

// ExportItemsCSV writes a flattened view of the active items.
func (s *DataService) ExportItemsCSV(w io.Writer) error {
	if !s.sess.SignedIn() {
		return errs.ErrKeyUnavailable
	}

	s.mu.Lock()
	items := make([]model.Item, 0, len(s.st.items))
	for _, it := range s.st.items {
		if it.DeletedAt == nil {
			items = append(items, it)
		}
	}
	catNames := make(map[uuid.UUID]string, len(s.st.categories))
	for _, c := range s.st.categories {
		catNames[c.ID] = c.Name
	}
	s.mu.Unlock()

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"id", "name", "sku", "quantity", "cost", "price", "category"}); err != nil {
		return err
	}
	for _, it := range items {
		// dangling categoryId exports as an empty name
		row := []string{
			it.ID.String(),
			it.Name,
			it.SKU,
			strconv.FormatInt(it.Quantity, 10),
			it.CostPrice.String(),
			it.SellingPrice.String(),
			catNames[it.CategoryID],
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
