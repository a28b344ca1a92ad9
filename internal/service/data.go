package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/and161185/shopvault/internal/codec"
	"github.com/and161185/shopvault/internal/errs"
	"github.com/and161185/shopvault/internal/model"
	"github.com/and161185/shopvault/internal/repository"
)

// DataService is the shop-scoped domain repository: typed CRUD over business
// records, encrypting on write and bulk-decrypting on load. One instance
// serves one session; its in-memory working set is the UI-visible state.
//
// Mutations are serialized by a mutex and the durable write happens before
// the in-memory state is touched, so a failed write never leaves the two
// views inconsistent. Two sessions updating the same record id remain
// last-writer-wins; there is no version token.
type DataService struct {
	records repository.RecordRepository
	sess    *Session
	log     *zap.Logger

	// varianceThreshold is in currency minor units; |variance| above it on
	// shift close raises a high-severity alert.
	varianceThreshold decimal.Decimal

	mu sync.Mutex
	st state
}

type state struct {
	items         []model.Item
	categories    []model.Category
	locations     []model.Location
	transactions  []model.Transaction
	alerts        []model.Alert
	shifts        []model.Shift
	sales         []model.Sale
	activities    []model.Activity
	shiftRequests []model.ShiftRequest
	leaveRequests []model.LeaveRequest
}

// DataOptions tunes the domain repository.
type DataOptions struct {
	// VarianceThreshold overrides the default of 1000 minor units.
	VarianceThreshold decimal.Decimal
}

// NewDataService constructs the domain repository for one signed-in session.
func NewDataService(records repository.RecordRepository, sess *Session, log *zap.Logger, opts DataOptions) *DataService {
	threshold := opts.VarianceThreshold
	if threshold.IsZero() {
		threshold = decimal.NewFromInt(1000)
	}
	return &DataService{
		records:           records,
		sess:              sess,
		log:               log,
		varianceThreshold: threshold,
	}
}

// LoadAll fetches every business collection of the shop and decrypts it into
// the working set. A record that fails to decrypt is logged and dropped; one
// corrupted record never prevents the rest of the shop's data from loading.
func (s *DataService) LoadAll(ctx context.Context) error {
	if !s.sess.SignedIn() {
		return errs.ErrKeyUnavailable
	}

	var st state
	var err error
	if st.items, err = decryptAll[model.Item](ctx, s, repository.Items); err != nil {
		return err
	}
	if st.categories, err = decryptAll[model.Category](ctx, s, repository.Categories); err != nil {
		return err
	}
	if st.locations, err = decryptAll[model.Location](ctx, s, repository.Locations); err != nil {
		return err
	}
	if st.transactions, err = decryptAll[model.Transaction](ctx, s, repository.Transactions); err != nil {
		return err
	}
	if st.alerts, err = decryptAll[model.Alert](ctx, s, repository.Alerts); err != nil {
		return err
	}
	if st.shifts, err = decryptAll[model.Shift](ctx, s, repository.Shifts); err != nil {
		return err
	}
	if st.sales, err = decryptAll[model.Sale](ctx, s, repository.Sales); err != nil {
		return err
	}
	if st.activities, err = decryptAll[model.Activity](ctx, s, repository.Activities); err != nil {
		return err
	}
	if st.shiftRequests, err = decryptAll[model.ShiftRequest](ctx, s, repository.ShiftRequests); err != nil {
		return err
	}
	if st.leaveRequests, err = decryptAll[model.LeaveRequest](ctx, s, repository.LeaveRequests); err != nil {
		return err
	}

	sortByCreatedDesc(st.transactions, func(t model.Transaction) time.Time { return t.CreatedAt })
	sortByCreatedDesc(st.shifts, func(sh model.Shift) time.Time { return sh.CreatedAt })
	sortByCreatedDesc(st.sales, func(sl model.Sale) time.Time { return sl.CreatedAt })
	sortByCreatedDesc(st.activities, func(a model.Activity) time.Time { return a.CreatedAt })
	sortByCreatedDesc(st.shiftRequests, func(r model.ShiftRequest) time.Time { return r.CreatedAt })
	sortByCreatedDesc(st.leaveRequests, func(r model.LeaveRequest) time.Time { return r.CreatedAt })

	s.mu.Lock()
	s.st = st
	s.mu.Unlock()
	return nil
}

// decryptAll loads one collection and decrypts each envelope independently,
// skipping the ones that fail authentication.
func decryptAll[T any](ctx context.Context, s *DataService, c repository.Collection) ([]T, error) {
	envs, err := s.records.ListByShop(ctx, c, s.sess.ShopID())
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", c, err)
	}
	out := make([]T, 0, len(envs))
	for _, env := range envs {
		v, err := codec.Open[T](env, s.sess.key())
		if err != nil {
			s.log.Warn("skipping undecryptable record",
				zap.String("collection", string(c)),
				zap.String("id", env.ID.String()),
				zap.Error(err),
			)
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

func sortByCreatedDesc[T any](xs []T, created func(T) time.Time) {
	sort.SliceStable(xs, func(i, j int) bool { return created(xs[i]).After(created(xs[j])) })
}

// save seals a domain object into its envelope and upserts it.
func (s *DataService) save(ctx context.Context, c repository.Collection, id uuid.UUID, v any) error {
	rec, err := codec.Seal(v, id, s.sess.ShopID(), s.sess.key())
	if err != nil {
		return err
	}
	return s.records.Put(ctx, c, &rec)
}

func (s *DataService) newBase() (model.Base, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return model.Base{}, err
	}
	now := time.Now().UTC()
	return model.Base{ID: id, ShopID: s.sess.ShopID(), CreatedAt: now, UpdatedAt: now}, nil
}

// Accessors return copies of the working set.

// Items returns all items, including soft-deleted ones.
func (s *DataService) Items() []model.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Item(nil), s.st.items...)
}

// ActiveItems returns items that are not soft-deleted.
func (s *DataService) ActiveItems() []model.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Item, 0, len(s.st.items))
	for _, it := range s.st.items {
		if it.DeletedAt == nil {
			out = append(out, it)
		}
	}
	return out
}

// Categories returns all categories.
func (s *DataService) Categories() []model.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Category(nil), s.st.categories...)
}

// Locations returns all locations.
func (s *DataService) Locations() []model.Location {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Location(nil), s.st.locations...)
}

// Transactions returns stock movements, newest first.
func (s *DataService) Transactions() []model.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Transaction(nil), s.st.transactions...)
}

// Alerts returns alerts.
func (s *DataService) Alerts() []model.Alert {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Alert(nil), s.st.alerts...)
}

// Shifts returns shifts, newest first.
func (s *DataService) Shifts() []model.Shift {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Shift(nil), s.st.shifts...)
}

// Sales returns sales, newest first.
func (s *DataService) Sales() []model.Sale {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Sale(nil), s.st.sales...)
}

// Activities returns audit activities, newest first.
func (s *DataService) Activities() []model.Activity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Activity(nil), s.st.activities...)
}

// ShiftRequests returns shift requests, newest first.
func (s *DataService) ShiftRequests() []model.ShiftRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.ShiftRequest(nil), s.st.shiftRequests...)
}

// LeaveRequests returns leave requests, newest first.
func (s *DataService) LeaveRequests() []model.LeaveRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.LeaveRequest(nil), s.st.leaveRequests...)
}
