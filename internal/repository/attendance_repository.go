package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/fviete/attendance-api/internal/models"
)

// AttendanceRepository persists attendance facts. The ledger holds at most
// one fact per (student, date, shift); that invariant is kept by the
// lookup-before-insert performed here inside a transaction, not by a schema
// constraint.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

const factColumns = `id, student_id, date, shift, present, to_char(time_of_day, 'HH24:MI:SS') AS time_of_day, method, recorded_by, created_at, updated_at`

// FindByKey returns the fact for the triple, or sql.ErrNoRows.
func (r *AttendanceRepository) FindByKey(ctx context.Context, studentID string, date time.Time, shift models.Shift) (*models.AttendanceFact, error) {
	query := fmt.Sprintf("SELECT %s FROM attendance_facts WHERE student_id = $1 AND date = $2 AND shift = $3", factColumns)
	var fact models.AttendanceFact
	if err := r.db.GetContext(ctx, &fact, query, studentID, date, shift); err != nil {
		return nil, err
	}
	return &fact, nil
}

// Upsert stores a single fact, overwriting any existing fact for the same
// triple. Returns the stored fact and whether it was newly created.
func (r *AttendanceRepository) Upsert(ctx context.Context, fact *models.AttendanceFact) (*models.AttendanceFact, bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("begin upsert attendance: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	created, err := upsertFactTx(ctx, tx, fact, time.Now().UTC())
	if err != nil {
		return nil, false, err
	}
	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("commit upsert attendance: %w", err)
	}
	committed = true
	return fact, created, nil
}

// UpsertBatch stores all facts in one transaction; any failure rolls back
// the whole batch.
func (r *AttendanceRepository) UpsertBatch(ctx context.Context, facts []models.AttendanceFact) error {
	if len(facts) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin attendance batch: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	for i := range facts {
		if _, err := upsertFactTx(ctx, tx, &facts[i], now); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit attendance batch: %w", err)
	}
	committed = true
	return nil
}

func upsertFactTx(ctx context.Context, tx *sqlx.Tx, fact *models.AttendanceFact, now time.Time) (bool, error) {
	var existingID string
	err := tx.GetContext(ctx, &existingID,
		"SELECT id FROM attendance_facts WHERE student_id = $1 AND date = $2 AND shift = $3",
		fact.StudentID, fact.Date, fact.Shift)
	switch {
	case err == nil:
		fact.ID = existingID
		fact.UpdatedAt = now
		const update = `UPDATE attendance_facts
            SET present = $2, time_of_day = $3, method = $4, recorded_by = $5, updated_at = $6
            WHERE id = $1`
		if _, err := tx.ExecContext(ctx, update, fact.ID, fact.Present, fact.TimeOfDay, fact.Method, fact.RecordedBy, fact.UpdatedAt); err != nil {
			return false, fmt.Errorf("update attendance fact: %w", err)
		}
		return false, nil
	case err == sql.ErrNoRows:
		if fact.ID == "" {
			fact.ID = uuid.NewString()
		}
		fact.CreatedAt = now
		fact.UpdatedAt = now
		const insert = `INSERT INTO attendance_facts (id, student_id, date, shift, present, time_of_day, method, recorded_by, created_at, updated_at)
            VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
		if _, err := tx.ExecContext(ctx, insert, fact.ID, fact.StudentID, fact.Date, fact.Shift, fact.Present, fact.TimeOfDay, fact.Method, fact.RecordedBy, fact.CreatedAt, fact.UpdatedAt); err != nil {
			return false, fmt.Errorf("insert attendance fact: %w", err)
		}
		return true, nil
	default:
		return false, fmt.Errorf("lookup attendance fact: %w", err)
	}
}

// ListFacts returns the facts for the given students on a date. An empty
// shift matches both shifts.
func (r *AttendanceRepository) ListFacts(ctx context.Context, studentIDs []string, date time.Time, shift models.Shift) ([]models.AttendanceFact, error) {
	if len(studentIDs) == 0 {
		return nil, nil
	}
	base := fmt.Sprintf("SELECT %s FROM attendance_facts WHERE date = ? AND student_id IN (?)", factColumns)
	args := []interface{}{date, studentIDs}
	if shift != "" {
		base += " AND shift = ?"
		args = append(args, shift)
	}
	base += " ORDER BY updated_at ASC"

	query, inArgs, err := sqlx.In(base, args...)
	if err != nil {
		return nil, fmt.Errorf("list attendance facts: %w", err)
	}
	var facts []models.AttendanceFact
	if err := r.db.SelectContext(ctx, &facts, r.db.Rebind(query), inArgs...); err != nil {
		return nil, fmt.Errorf("list attendance facts: %w", err)
	}
	return facts, nil
}
