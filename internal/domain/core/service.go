package core

import (
	"context"
	"errors"
	"strings"

	"leavehr/internal/domain/auth"
)

var ErrInvalidPin = errors.New("pin must be 4 to 8 digits")

type Service struct {
	store StoreAPI
}

func NewService(store StoreAPI) *Service {
	return &Service{store: store}
}

func (s *Service) Store() StoreAPI {
	return s.store
}

func (s *Service) GetEmployee(ctx context.Context, employeeID string) (Employee, error) {
	return s.store.GetEmployee(ctx, employeeID)
}

func (s *Service) ListEmployees(ctx context.Context) ([]Employee, error) {
	return s.store.ListEmployees(ctx)
}

func (s *Service) CreateEmployee(ctx context.Context, emp Employee) (string, error) {
	return s.store.CreateEmployee(ctx, emp)
}

func (s *Service) EmployeeIDByUserID(ctx context.Context, userID string) (string, error) {
	emp, err := s.store.GetEmployeeByUserID(ctx, userID)
	if err != nil {
		return "", err
	}
	return emp.ID, nil
}

func (s *Service) UserIDForEmployee(ctx context.Context, employeeID string) (string, error) {
	emp, err := s.store.GetEmployee(ctx, employeeID)
	if err != nil {
		return "", err
	}
	return emp.UserID, nil
}

func (s *Service) ApproverUserIDs(ctx context.Context, employeeID string) ([]string, error) {
	return s.store.ApproverUserIDs(ctx, employeeID)
}

// ManagesEmployee reports whether the user is the direct manager of employeeID.
func (s *Service) ManagesEmployee(ctx context.Context, managerUserID, employeeID string) (bool, error) {
	manager, err := s.store.GetEmployeeByUserID(ctx, managerUserID)
	if errors.Is(err, ErrEmployeeNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return s.store.IsManagerOf(ctx, manager.ID, employeeID)
}

// CanAccessEmployee allows the employee themself, their manager, and HR/admin.
func (s *Service) CanAccessEmployee(ctx context.Context, user auth.UserContext, employeeID string) (bool, error) {
	if user.IsPrivileged() {
		return true, nil
	}
	self, err := s.store.GetEmployeeByUserID(ctx, user.UserID)
	if errors.Is(err, ErrEmployeeNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if self.ID == employeeID {
		return true, nil
	}
	if user.RoleName != auth.RoleManager {
		return false, nil
	}
	return s.store.IsManagerOf(ctx, self.ID, employeeID)
}

func (s *Service) SetPin(ctx context.Context, employeeID, pin string) error {
	pin = strings.TrimSpace(pin)
	if len(pin) < 4 || len(pin) > 8 || strings.Trim(pin, "0123456789") != "" {
		return ErrInvalidPin
	}
	hash, err := auth.HashSecret(pin)
	if err != nil {
		return err
	}
	return s.store.SetPinHash(ctx, employeeID, hash)
}
