package core

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"leavehr/internal/domain/auth"
	"leavehr/internal/platform/querier"
)

// TemplateSealer protects fingerprint templates at rest.
type TemplateSealer interface {
	Seal(plain string) (string, error)
	Open(value string) (string, error)
}

type Store struct {
	DB        querier.Querier
	Templates TemplateSealer
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

const employeeColumns = `id::text, COALESCE(user_id, ''), COALESCE(manager_id::text, ''), first_name, last_name, email, role, active,
           fingerprint_enrolled, COALESCE(fingerprint_template, ''), enrollment_date, COALESCE(pin_hash, ''), created_at`

func (s *Store) scanEmployee(row pgx.Row) (Employee, error) {
	var emp Employee
	err := row.Scan(
		&emp.ID, &emp.UserID, &emp.ManagerID, &emp.FirstName, &emp.LastName, &emp.Email, &emp.Role, &emp.Active,
		&emp.FingerprintEnrolled, &emp.FingerprintTemplate, &emp.EnrollmentDate, &emp.PinHash, &emp.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Employee{}, ErrEmployeeNotFound
	}
	if err != nil || s.Templates == nil || emp.FingerprintTemplate == "" {
		return emp, err
	}
	emp.FingerprintTemplate, err = s.Templates.Open(emp.FingerprintTemplate)
	return emp, err
}

func (s *Store) GetEmployee(ctx context.Context, employeeID string) (Employee, error) {
	return s.scanEmployee(s.DB.QueryRow(ctx, `
    SELECT `+employeeColumns+`
    FROM employees
    WHERE id::text = $1
  `, employeeID))
}

func (s *Store) GetEmployeeByUserID(ctx context.Context, userID string) (Employee, error) {
	return s.scanEmployee(s.DB.QueryRow(ctx, `
    SELECT `+employeeColumns+`
    FROM employees
    WHERE user_id = $1
  `, userID))
}

func (s *Store) listWhere(ctx context.Context, where, orderBy string) ([]Employee, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT `+employeeColumns+`
    FROM employees
    `+where+`
    ORDER BY `+orderBy)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Employee
	for rows.Next() {
		emp, err := s.scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, emp)
	}
	return out, rows.Err()
}

func (s *Store) ListEmployees(ctx context.Context) ([]Employee, error) {
	return s.listWhere(ctx, "", "created_at, id")
}

// ListEnrolled returns match candidates, earliest enrollment first.
func (s *Store) ListEnrolled(ctx context.Context) ([]Employee, error) {
	return s.listWhere(ctx, "WHERE active AND fingerprint_enrolled AND fingerprint_template IS NOT NULL",
		"enrollment_date, created_at, id")
}

func (s *Store) CreateEmployee(ctx context.Context, emp Employee) (string, error) {
	if emp.Role == "" {
		emp.Role = auth.RoleEmployee
	}
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO employees (user_id, manager_id, first_name, last_name, email, role, active)
    VALUES ($1,$2,$3,$4,$5,$6,$7)
    RETURNING id::text
  `, nullIfEmpty(emp.UserID), nullIfEmpty(emp.ManagerID), emp.FirstName, emp.LastName, emp.Email, emp.Role, emp.Active).Scan(&id)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return "", ErrDuplicateUser
	}
	return id, err
}

func (s *Store) IsManagerOf(ctx context.Context, managerEmployeeID, employeeID string) (bool, error) {
	var count int
	err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1)
    FROM employees
    WHERE id::text = $1 AND manager_id::text = $2
  `, employeeID, managerEmployeeID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Store) ApproverUserIDs(ctx context.Context, employeeID string) ([]string, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT DISTINCT u.user_id
    FROM employees u
    WHERE u.user_id IS NOT NULL AND u.active AND (
      u.id = (SELECT manager_id FROM employees WHERE id::text = $1)
      OR u.role IN ($2, $3)
    )
  `, employeeID, auth.RoleHR, auth.RoleAdmin)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// EnrollFingerprint stores a first template. The write only lands while the
// employee is unenrolled, so concurrent enrollments admit one.
func (s *Store) EnrollFingerprint(ctx context.Context, employeeID, template string, enrolledAt time.Time) error {
	template, err := s.seal(template)
	if err != nil {
		return err
	}
	tag, err := s.DB.Exec(ctx, `
    UPDATE employees
    SET fingerprint_enrolled = TRUE, fingerprint_template = $2, enrollment_date = $3, updated_at = now()
    WHERE id::text = $1 AND NOT fingerprint_enrolled
  `, employeeID, template, enrolledAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	var exists bool
	if err := s.DB.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM employees WHERE id::text = $1)`, employeeID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrEmployeeNotFound
	}
	return ErrAlreadyEnrolled
}

func (s *Store) seal(template string) (string, error) {
	if s.Templates == nil {
		return template, nil
	}
	return s.Templates.Seal(template)
}

func (s *Store) SaveFingerprint(ctx context.Context, employeeID, template string, enrolledAt time.Time) error {
	template, err := s.seal(template)
	if err != nil {
		return err
	}
	tag, err := s.DB.Exec(ctx, `
    UPDATE employees
    SET fingerprint_enrolled = TRUE, fingerprint_template = $2, enrollment_date = $3, updated_at = now()
    WHERE id::text = $1
  `, employeeID, template, enrolledAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrEmployeeNotFound
	}
	return nil
}

func (s *Store) ClearFingerprint(ctx context.Context, employeeID string) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE employees
    SET fingerprint_enrolled = FALSE, fingerprint_template = NULL, enrollment_date = NULL, updated_at = now()
    WHERE id::text = $1
  `, employeeID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrEmployeeNotFound
	}
	return nil
}

func (s *Store) SetPinHash(ctx context.Context, employeeID, hash string) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE employees SET pin_hash = $2, updated_at = now()
    WHERE id::text = $1
  `, employeeID, hash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrEmployeeNotFound
	}
	return nil
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}
