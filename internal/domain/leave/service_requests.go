package leave

import (
	"context"
	"errors"
	"fmt"
	"time"

	"leavehr/internal/domain/auth"
	"leavehr/internal/domain/notifications"
)

// CreateRequest validates the range, reserves the days against the start
// year's balance and stores the request in one transaction. Types that do not
// require approval are approved on the spot and consume the days directly.
func (s *Service) CreateRequest(ctx context.Context, user auth.UserContext, in CreateInput) (LeaveRequest, error) {
	ownID, err := s.EmployeeIDForUser(ctx, user.UserID)
	if err != nil && !errors.Is(err, ErrEmployeeNotFound) {
		return LeaveRequest{}, err
	}
	if in.EmployeeID == "" {
		if ownID == "" {
			return LeaveRequest{}, ErrEmployeeNotFound
		}
		in.EmployeeID = ownID
	}
	if in.EmployeeID != ownID && !user.IsPrivileged() {
		return LeaveRequest{}, ErrForbidden
	}
	if in.StartDate.IsZero() || in.EndDate.IsZero() || in.LeaveTypeID == "" {
		return LeaveRequest{}, fmt.Errorf("%w: leave type, start and end date are required", ErrInvalidInput)
	}
	start, end := DateOnly(in.StartDate), DateOnly(in.EndDate)

	var created LeaveRequest
	err = s.Store.WithTx(ctx, func(tx TxStore) error {
		emp, err := tx.LockEmployee(ctx, in.EmployeeID)
		if err != nil {
			return err
		}
		if !emp.Active {
			return ErrInactiveEmployee
		}
		lt, err := tx.GetType(ctx, in.LeaveTypeID)
		if err != nil {
			return err
		}
		if !lt.Active {
			return ErrInactiveLeaveType
		}
		balance, err := ensureBalance(ctx, tx, in.EmployeeID, lt, start.Year())
		if err != nil {
			return err
		}
		days, err := s.validate(ctx, tx, in.EmployeeID, lt, start, end, balance.Used)
		if err != nil {
			return err
		}
		if available := balance.Available(); available.LessThan(days) {
			return &InsufficientBalanceError{Available: available, Requested: days}
		}

		req := LeaveRequest{
			EmployeeID:  in.EmployeeID,
			LeaveTypeID: lt.ID,
			StartDate:   start,
			EndDate:     end,
			Days:        days,
			Status:      StatusPending,
			Reason:      in.Reason,
		}
		if lt.RequiresApproval {
			balance.Pending = balance.Pending.Add(days)
		} else {
			now := s.now()
			req.Status = StatusApproved
			req.ApprovedBy = systemApprover
			req.ApprovalDate = &now
			balance.Used = balance.Used.Add(days)
		}
		if err := tx.InsertRequest(ctx, &req); err != nil {
			return err
		}
		if err := tx.UpdateBalance(ctx, &balance); err != nil {
			return err
		}
		created = req
		return nil
	})
	if err != nil {
		return LeaveRequest{}, err
	}

	s.record(ctx, user.UserID, AuditLeaveRequested, "leave_request", created.ID, nil, created)
	period := describePeriod(created)
	if created.Status == StatusPending {
		s.notifyApprovers(ctx, created.EmployeeID, notifications.TypeLeaveSubmitted, "Leave request submitted",
			fmt.Sprintf("A leave request for %s is awaiting a decision.", period))
	} else {
		s.notifyEmployee(ctx, created.EmployeeID, notifications.TypeLeaveApproved, "Leave approved",
			fmt.Sprintf("Your leave for %s was approved automatically.", period))
	}
	return created, nil
}

func (s *Service) ApproveRequest(ctx context.Context, user auth.UserContext, requestID, comments string) (LeaveRequest, error) {
	return s.decide(ctx, user, requestID, comments, StatusApproved)
}

func (s *Service) RejectRequest(ctx context.Context, user auth.UserContext, requestID, comments string) (LeaveRequest, error) {
	return s.decide(ctx, user, requestID, comments, StatusRejected)
}

func (s *Service) decide(ctx context.Context, user auth.UserContext, requestID, comments, outcome string) (LeaveRequest, error) {
	if !user.IsApprover() {
		return LeaveRequest{}, ErrForbidden
	}
	current, err := s.Store.GetRequest(ctx, requestID)
	if err != nil {
		return LeaveRequest{}, err
	}
	if err := s.authorizeDecision(ctx, user, current.EmployeeID); err != nil {
		return LeaveRequest{}, err
	}

	var before, after LeaveRequest
	err = s.Store.WithTx(ctx, func(tx TxStore) error {
		if _, err := tx.LockEmployee(ctx, current.EmployeeID); err != nil {
			return err
		}
		req, err := tx.GetRequestForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if req.Status != StatusPending {
			return fmt.Errorf("%w: request is %s", ErrInvalidState, req.Status)
		}
		before = req
		balance, err := releasePending(ctx, tx, req)
		if err != nil {
			return err
		}
		if outcome == StatusApproved {
			balance.Used = balance.Used.Add(req.Days)
		}
		now := s.now()
		req.Status = outcome
		req.ApprovedBy = user.UserID
		req.ApprovalDate = &now
		req.Comments = comments
		if err := tx.UpdateRequest(ctx, &req); err != nil {
			return err
		}
		if err := tx.UpdateBalance(ctx, &balance); err != nil {
			return err
		}
		after = req
		return nil
	})
	if err != nil {
		return LeaveRequest{}, err
	}

	period := describePeriod(after)
	if outcome == StatusApproved {
		s.record(ctx, user.UserID, AuditLeaveApproved, "leave_request", after.ID, before, after)
		s.notifyEmployee(ctx, after.EmployeeID, notifications.TypeLeaveApproved, "Leave approved",
			fmt.Sprintf("Your leave for %s was approved.", period))
	} else {
		s.record(ctx, user.UserID, AuditLeaveRejected, "leave_request", after.ID, before, after)
		s.notifyEmployee(ctx, after.EmployeeID, notifications.TypeLeaveRejected, "Leave rejected",
			fmt.Sprintf("Your leave for %s was rejected.", period))
	}
	return after, nil
}

// authorizeDecision blocks self-approval and limits managers to their direct reports.
func (s *Service) authorizeDecision(ctx context.Context, user auth.UserContext, employeeID string) error {
	ownID, err := s.EmployeeIDForUser(ctx, user.UserID)
	if err != nil && !errors.Is(err, ErrEmployeeNotFound) {
		return err
	}
	if ownID != "" && ownID == employeeID {
		return ErrForbidden
	}
	if user.IsPrivileged() {
		return nil
	}
	manages, err := s.Directory.ManagesEmployee(ctx, user.UserID, employeeID)
	if err != nil {
		return err
	}
	if !manages {
		return ErrForbidden
	}
	return nil
}

// CancelRequest withdraws the caller's own pending request.
func (s *Service) CancelRequest(ctx context.Context, user auth.UserContext, requestID string) (LeaveRequest, error) {
	current, err := s.Store.GetRequest(ctx, requestID)
	if err != nil {
		return LeaveRequest{}, err
	}
	ownID, err := s.EmployeeIDForUser(ctx, user.UserID)
	if errors.Is(err, ErrEmployeeNotFound) {
		return LeaveRequest{}, ErrForbidden
	}
	if err != nil {
		return LeaveRequest{}, err
	}
	if ownID != current.EmployeeID {
		return LeaveRequest{}, ErrForbidden
	}

	var before, after LeaveRequest
	err = s.Store.WithTx(ctx, func(tx TxStore) error {
		if _, err := tx.LockEmployee(ctx, current.EmployeeID); err != nil {
			return err
		}
		req, err := tx.GetRequestForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if req.Status != StatusPending {
			return fmt.Errorf("%w: request is %s", ErrInvalidState, req.Status)
		}
		before = req
		balance, err := releasePending(ctx, tx, req)
		if err != nil {
			return err
		}
		req.Status = StatusCancelled
		if err := tx.UpdateRequest(ctx, &req); err != nil {
			return err
		}
		if err := tx.UpdateBalance(ctx, &balance); err != nil {
			return err
		}
		after = req
		return nil
	})
	if err != nil {
		return LeaveRequest{}, err
	}

	s.record(ctx, user.UserID, AuditLeaveCancelled, "leave_request", after.ID, before, after)
	s.notifyApprovers(ctx, after.EmployeeID, notifications.TypeLeaveCancelled, "Leave request cancelled",
		fmt.Sprintf("The leave request for %s was cancelled.", describePeriod(after)))
	return after, nil
}

// releasePending takes the request's days back out of its balance's pending column.
func releasePending(ctx context.Context, tx TxStore, req LeaveRequest) (Balance, error) {
	balance, err := tx.GetBalanceForUpdate(ctx, req.EmployeeID, req.LeaveTypeID, DateOnly(req.StartDate).Year())
	if err != nil {
		return Balance{}, err
	}
	if balance.Pending.LessThan(req.Days) {
		return Balance{}, fmt.Errorf("%w: pending %s is below request days %s", ErrInvalidState, balance.Pending, req.Days)
	}
	balance.Pending = balance.Pending.Sub(req.Days)
	return balance, nil
}

func describePeriod(req LeaveRequest) string {
	start, end := req.StartDate.Format(time.DateOnly), req.EndDate.Format(time.DateOnly)
	if start == end {
		return start
	}
	return start + " to " + end
}
