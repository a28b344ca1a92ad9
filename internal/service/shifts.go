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

// StartShift opens a cash-drawer shift for the acting user. A user has at
// most one open shift at a time.
func (s *DataService) StartShift(ctx context.Context, openingCash decimal.Decimal) (model.Shift, error) {
	if !s.sess.SignedIn() {
		return model.Shift{}, errs.ErrKeyUnavailable
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.openShiftLocked(s.sess.UserID()); ok {
		return model.Shift{}, errs.ErrShiftOpen
	}

	base, err := s.newBase()
	if err != nil {
		return model.Shift{}, err
	}
	shift := model.Shift{
		Base:        base,
		UserID:      s.sess.UserID(),
		Status:      model.ShiftOpen,
		OpeningCash: openingCash,
		OpenedAt:    base.CreatedAt,
	}
	if err := s.save(ctx, repository.Shifts, shift.ID, shift); err != nil {
		return model.Shift{}, err
	}
	s.st.shifts = append([]model.Shift{shift}, s.st.shifts...)
	return shift, nil
}

// EndShift closes the acting user's open shift and computes
//
//	variance = closingCash - (openingCash + sum of cash-method sales)
//
// A |variance| above the threshold raises a high-severity alert.
func (s *DataService) EndShift(ctx context.Context, closingCash decimal.Decimal, notes string) (model.Shift, error) {
	if !s.sess.SignedIn() {
		return model.Shift{}, errs.ErrKeyUnavailable
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.openShiftLocked(s.sess.UserID())
	if !ok {
		return model.Shift{}, errs.ErrNoOpenShift
	}

	shift := s.st.shifts[idx]
	cashSales := decimal.Zero
	for _, sale := range s.st.sales {
		if sale.ShiftID == shift.ID && sale.PaymentMethod == model.PayCash {
			cashSales = cashSales.Add(sale.Total)
		}
	}

	now := time.Now().UTC()
	shift.Status = model.ShiftClosed
	shift.ClosingCash = closingCash
	shift.Variance = closingCash.Sub(shift.OpeningCash.Add(cashSales))
	shift.Notes = notes
	shift.ClosedAt = &now
	shift.UpdatedAt = now

	if err := s.save(ctx, repository.Shifts, shift.ID, shift); err != nil {
		return model.Shift{}, err
	}
	s.st.shifts[idx] = shift

	if shift.Variance.Abs().GreaterThan(s.varianceThreshold) {
		s.raiseVarianceAlert(ctx, shift)
	}
	return shift, nil
}

// openShiftLocked finds the user's open shift. Caller holds s.mu.
func (s *DataService) openShiftLocked(userID uuid.UUID) (int, bool) {
	for i := range s.st.shifts {
		if s.st.shifts[i].UserID == userID && s.st.shifts[i].Status == model.ShiftOpen {
			return i, true
		}
	}
	return -1, false
}

// raiseVarianceAlert persists a high-severity cash-variance alert.
// Best-effort: the shift itself is already durable. Caller holds s.mu.
func (s *DataService) raiseVarianceAlert(ctx context.Context, shift model.Shift) {
	base, err := s.newBase()
	if err != nil {
		s.log.Error("variance alert id", zap.Error(err))
		return
	}
	alert := model.Alert{
		Base:     base,
		ShiftID:  shift.ID,
		Type:     model.AlertCashVariance,
		Severity: model.SeverityHigh,
		Message:  fmt.Sprintf("cash variance of %s on shift close", shift.Variance.String()),
	}
	if err := s.save(ctx, repository.Alerts, alert.ID, alert); err != nil {
		s.log.Error("variance alert write", zap.Error(err))
		return
	}
	s.st.alerts = append(s.st.alerts, alert)
}

// SaleLine is one requested line of a sale.
type SaleLine struct {
	ItemID   uuid.UUID
	Quantity int64
}

// SaleInput carries a POS sale request.
type SaleInput struct {
	Lines         []SaleLine
	PaymentMethod model.PaymentMethod
}

// RecordSale records a sale against the acting user's open shift: builds the
// priced lines from current items, decrements stock, appends a "remove"
// transaction per line and persists the sale. Selling requires an open shift
// so cash sales can be reconciled at shift close.
func (s *DataService) RecordSale(ctx context.Context, in SaleInput) (model.Sale, error) {
	if !s.sess.SignedIn() {
		return model.Sale{}, errs.ErrKeyUnavailable
	}
	if len(in.Lines) == 0 {
		return model.Sale{}, fmt.Errorf("validation: empty sale")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	shiftIdx, ok := s.openShiftLocked(s.sess.UserID())
	if !ok {
		return model.Sale{}, errs.ErrNoOpenShift
	}
	shift := s.st.shifts[shiftIdx]

	total := decimal.Zero
	saleItems := make([]model.SaleItem, 0, len(in.Lines))
	updated := make(map[int]model.Item, len(in.Lines))
	for i, line := range in.Lines {
		if line.Quantity <= 0 {
			return model.Sale{}, fmt.Errorf("validation: line[%d] non-positive quantity", i)
		}
		idx := -1
		for j := range s.st.items {
			if s.st.items[j].ID == line.ItemID && s.st.items[j].DeletedAt == nil {
				idx = j
				break
			}
		}
		if idx < 0 {
			return model.Sale{}, fmt.Errorf("line[%d]: %w", i, errs.ErrNotFound)
		}
		item := s.st.items[idx]
		if prev, ok := updated[idx]; ok {
			item = prev
		}
		item.Quantity -= line.Quantity
		item.UpdatedAt = time.Now().UTC()
		updated[idx] = item

		subtotal := item.SellingPrice.Mul(decimal.NewFromInt(line.Quantity))
		saleItems = append(saleItems, model.SaleItem{
			ItemID:    item.ID,
			Name:      item.Name,
			Quantity:  line.Quantity,
			UnitPrice: item.SellingPrice,
			Subtotal:  subtotal,
		})
		total = total.Add(subtotal)
	}

	base, err := s.newBase()
	if err != nil {
		return model.Sale{}, err
	}
	sale := model.Sale{
		Base:          base,
		ShiftID:       shift.ID,
		UserID:        s.sess.UserID(),
		Items:         saleItems,
		Total:         total,
		PaymentMethod: in.PaymentMethod,
	}
	if err := s.save(ctx, repository.Sales, sale.ID, sale); err != nil {
		return model.Sale{}, err
	}
	s.st.sales = append([]model.Sale{sale}, s.st.sales...)

	for idx, item := range updated {
		if err := s.save(ctx, repository.Items, item.ID, item); err != nil {
			return model.Sale{}, err
		}
		s.st.items[idx] = item
	}
	for _, line := range saleItems {
		if _, err := s.appendTransaction(ctx, model.Transaction{
			ItemID:   line.ItemID,
			Type:     model.TxRemove,
			Quantity: line.Quantity,
			Reason:   "Sale",
			Notes:    "sale " + sale.ID.String(),
		}); err != nil {
			return model.Sale{}, err
		}
	}
	for _, item := range updated {
		s.checkLowStock(ctx, item)
	}
	return sale, nil
}
