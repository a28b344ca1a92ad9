package service

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/shopvault/internal/errs"
	"github.com/and161185/shopvault/internal/model"
	"github.com/and161185/shopvault/internal/repository"
)

// CreateShiftRequest files a pending shift-change request for the acting user.
func (s *DataService) CreateShiftRequest(ctx context.Context, date time.Time, reason string) (model.ShiftRequest, error) {
	if !s.sess.SignedIn() {
		return model.ShiftRequest{}, errs.ErrKeyUnavailable
	}
	base, err := s.newBase()
	if err != nil {
		return model.ShiftRequest{}, err
	}
	req := model.ShiftRequest{
		Base:   base,
		UserID: s.sess.UserID(),
		Date:   date,
		Reason: reason,
		Status: model.RequestPending,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.save(ctx, repository.ShiftRequests, req.ID, req); err != nil {
		return model.ShiftRequest{}, err
	}
	s.st.shiftRequests = append([]model.ShiftRequest{req}, s.st.shiftRequests...)
	return req, nil
}

// ResolveShiftRequest moves a pending request to approved or rejected.
// Owner or manager only; the role is re-checked here rather than trusted
// from the calling layer.
func (s *DataService) ResolveShiftRequest(ctx context.Context, id uuid.UUID, approve bool) (model.ShiftRequest, error) {
	if !s.sess.SignedIn() {
		return model.ShiftRequest{}, errs.ErrKeyUnavailable
	}
	if !s.sess.Role().CanResolveRequests() {
		return model.ShiftRequest{}, errs.ErrPermissionDenied
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.st.shiftRequests {
		if s.st.shiftRequests[i].ID != id {
			continue
		}
		req := s.st.shiftRequests[i]
		if req.Status != model.RequestPending {
			return model.ShiftRequest{}, errs.ErrAlreadyExists
		}
		req.Status = model.RequestRejected
		if approve {
			req.Status = model.RequestApproved
		}
		req.ResolvedBy = s.sess.UserID()
		req.UpdatedAt = time.Now().UTC()
		if err := s.save(ctx, repository.ShiftRequests, req.ID, req); err != nil {
			return model.ShiftRequest{}, err
		}
		s.st.shiftRequests[i] = req
		return req, nil
	}
	return model.ShiftRequest{}, errs.ErrNotFound
}

// CreateLeaveRequest files a pending leave request for the acting user.
func (s *DataService) CreateLeaveRequest(ctx context.Context, from, to time.Time, reason string) (model.LeaveRequest, error) {
	if !s.sess.SignedIn() {
		return model.LeaveRequest{}, errs.ErrKeyUnavailable
	}
	base, err := s.newBase()
	if err != nil {
		return model.LeaveRequest{}, err
	}
	req := model.LeaveRequest{
		Base:   base,
		UserID: s.sess.UserID(),
		From:   from,
		To:     to,
		Reason: reason,
		Status: model.RequestPending,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.save(ctx, repository.LeaveRequests, req.ID, req); err != nil {
		return model.LeaveRequest{}, err
	}
	s.st.leaveRequests = append([]model.LeaveRequest{req}, s.st.leaveRequests...)
	return req, nil
}

// ResolveLeaveRequest moves a pending request to approved or rejected.
// Owner or manager only.
func (s *DataService) ResolveLeaveRequest(ctx context.Context, id uuid.UUID, approve bool) (model.LeaveRequest, error) {
	if !s.sess.SignedIn() {
		return model.LeaveRequest{}, errs.ErrKeyUnavailable
	}
	if !s.sess.Role().CanResolveRequests() {
		return model.LeaveRequest{}, errs.ErrPermissionDenied
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.st.leaveRequests {
		if s.st.leaveRequests[i].ID != id {
			continue
		}
		req := s.st.leaveRequests[i]
		if req.Status != model.RequestPending {
			return model.LeaveRequest{}, errs.ErrAlreadyExists
		}
		req.Status = model.RequestRejected
		if approve {
			req.Status = model.RequestApproved
		}
		req.ResolvedBy = s.sess.UserID()
		req.UpdatedAt = time.Now().UTC()
		if err := s.save(ctx, repository.LeaveRequests, req.ID, req); err != nil {
			return model.LeaveRequest{}, err
		}
		s.st.leaveRequests[i] = req
		return req, nil
	}
	return model.LeaveRequest{}, errs.ErrNotFound
}
