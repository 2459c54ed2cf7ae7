package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"leavehr/internal/domain/core"
	"leavehr/internal/platform/querier"
)

// Store persists attendance rows. Captured templates are sealed on write and
// never read back for matching.
type Store struct {
	DB        querier.Querier
	Templates core.TemplateSealer
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

type pgTx struct {
	tx        pgx.Tx
	templates core.TemplateSealer
}

func (t *pgTx) seal(template string) (string, error) {
	if t.templates == nil {
		return template, nil
	}
	return t.templates.Seal(template)
}

func (s *Store) WithTx(ctx context.Context, fn func(tx TxStore) error) error {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return err
	}
	if err := fn(&pgTx{tx: tx, templates: s.Templates}); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			slog.Warn("attendance transaction rollback failed", "err", rbErr)
		}
		return err
	}
	return tx.Commit(ctx)
}

const recordColumns = `id::text, employee_id::text, date, status, check_in_time, check_out_time, verification_method,
           COALESCE(fingerprint_template, ''), confidence_score, notes, created_at, updated_at`

func scanRecord(row pgx.Row) (Record, error) {
	var r Record
	err := row.Scan(&r.ID, &r.EmployeeID, &r.Date, &r.Status, &r.CheckInTime, &r.CheckOutTime, &r.VerificationMethod,
		&r.FingerprintTemplate, &r.ConfidenceScore, &r.Notes, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	return r, err
}

func (s *Store) GetRecord(ctx context.Context, recordID string) (Record, error) {
	return scanRecord(s.DB.QueryRow(ctx, `
    SELECT `+recordColumns+`
    FROM attendance
    WHERE id::text = $1
  `, recordID))
}

func (s *Store) ListRecords(ctx context.Context, filter Filter) ([]Record, error) {
	query := `
    SELECT ` + recordColumns + `
    FROM attendance
    WHERE 1=1`
	args := []any{}
	if filter.EmployeeID != "" {
		args = append(args, filter.EmployeeID)
		query += fmt.Sprintf(" AND employee_id::text = $%d", len(args))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		query += fmt.Sprintf(" AND date >= $%d", len(args))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		query += fmt.Sprintf(" AND date <= $%d", len(args))
	}
	args = append(args, filter.Limit, filter.Offset)
	query += fmt.Sprintf(" ORDER BY date DESC, created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (t *pgTx) LockEmployee(ctx context.Context, employeeID string) error {
	var id string
	err := t.tx.QueryRow(ctx, "SELECT id::text FROM employees WHERE id::text = $1 FOR UPDATE", employeeID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrEmployeeNotFound
	}
	return err
}

func (t *pgTx) GetForDate(ctx context.Context, employeeID string, date time.Time) (Record, error) {
	return scanRecord(t.tx.QueryRow(ctx, `
    SELECT `+recordColumns+`
    FROM attendance
    WHERE employee_id::text = $1 AND date = $2
    FOR UPDATE
  `, employeeID, date))
}

func (t *pgTx) Insert(ctx context.Context, rec *Record) error {
	template, err := t.seal(rec.FingerprintTemplate)
	if err != nil {
		return err
	}
	err = t.tx.QueryRow(ctx, `
    INSERT INTO attendance (employee_id, date, status, check_in_time, check_out_time, verification_method, fingerprint_template, confidence_score, notes)
    VALUES ($1::uuid,$2,$3,$4,$5,$6,NULLIF($7, ''),$8,$9)
    RETURNING id::text, created_at, updated_at
  `, rec.EmployeeID, rec.Date, rec.Status, rec.CheckInTime, rec.CheckOutTime, rec.VerificationMethod,
		template, rec.ConfidenceScore, rec.Notes).Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrAlreadyRecorded
	}
	return err
}

func (t *pgTx) Update(ctx context.Context, rec *Record) error {
	template, err := t.seal(rec.FingerprintTemplate)
	if err != nil {
		return err
	}
	tag, err := t.tx.Exec(ctx, `
    UPDATE attendance
    SET status = $2, check_in_time = $3, check_out_time = $4, verification_method = $5,
        fingerprint_template = NULLIF($6, ''), confidence_score = $7, notes = $8, updated_at = now()
    WHERE id::text = $1
  `, rec.ID, rec.Status, rec.CheckInTime, rec.CheckOutTime, rec.VerificationMethod, template, rec.ConfidenceScore, rec.Notes)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
