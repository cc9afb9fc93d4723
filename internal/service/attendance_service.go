package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/fviete/attendance-api/internal/models"
	appErrors "github.com/fviete/attendance-api/pkg/errors"
)

type attendanceRepository interface {
	FindByKey(ctx context.Context, studentID string, date time.Time, shift models.Shift) (*models.AttendanceFact, error)
	Upsert(ctx context.Context, fact *models.AttendanceFact) (*models.AttendanceFact, bool, error)
	UpsertBatch(ctx context.Context, facts []models.AttendanceFact) error
	ListFacts(ctx context.Context, studentIDs []string, date time.Time, shift models.Shift) ([]models.AttendanceFact, error)
}

type attendanceStudentRepository interface {
	FindByCode(ctx context.Context, code string) (*models.Student, error)
}

// AttendanceService turns incoming observations into stored attendance
// facts: it decides per (student, date, shift) triple whether to create or
// overwrite, applying last-write-wins.
type AttendanceService struct {
	repo      attendanceRepository
	students  attendanceStudentRepository
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewAttendanceService constructs the attendance service.
func NewAttendanceService(repo attendanceRepository, students attendanceStudentRepository, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	registerAttendanceValidators(validate)
	return &AttendanceService{repo: repo, students: students, validator: validate, logger: logger, now: time.Now}
}

func registerAttendanceValidators(v *validator.Validate) {
	_ = v.RegisterValidation("shift", func(fl validator.FieldLevel) bool {
		return models.Shift(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("attendance_method", func(fl validator.FieldLevel) bool {
		return models.Method(fl.Field().String()).Valid()
	})
}

// Observation is one row of a manual attendance submission. A blank
// student id means the row is skipped.
type Observation struct {
	StudentID string `json:"student_id"`
	Present   bool   `json:"present"`
	Time      string `json:"time,omitempty"`
}

// SubmitBatchRequest is the manual attendance submission payload.
type SubmitBatchRequest struct {
	Date         string        `json:"date" validate:"required"`
	Shift        string        `json:"shift" validate:"required,shift"`
	Method       string        `json:"method" validate:"omitempty,attendance_method"`
	Observations []Observation `json:"observations" validate:"required,min=1"`
}

// BatchResult reports how many observations were processed.
type BatchResult struct {
	Saved int `json:"saved"`
}

// ScanRequest records one decoded QR code.
type ScanRequest struct {
	Code  string `json:"code" validate:"required"`
	Date  string `json:"date" validate:"required"`
	Shift string `json:"shift" validate:"required,shift"`
}

// ScanResult reports the outcome of a scan, distinguishing a fresh record
// from a repeat of an already-present student.
type ScanResult struct {
	StudentCode     string `json:"student_code"`
	StudentName     string `json:"student_name"`
	AlreadyRecorded bool   `json:"already_recorded"`
}

// SubmitBatch merges a list of observations into the ledger for one
// date/shift. The whole batch commits or rolls back together.
func (s *AttendanceService) SubmitBatch(ctx context.Context, req SubmitBatchRequest, staffID string) (*BatchResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date format, expected YYYY-MM-DD")
	}

	method := models.Method(req.Method)
	if method == "" {
		method = models.MethodManual
	}

	facts := make([]models.AttendanceFact, 0, len(req.Observations))
	for _, obs := range req.Observations {
		if obs.StudentID == "" {
			continue
		}
		facts = append(facts, models.AttendanceFact{
			StudentID:  obs.StudentID,
			Date:       date,
			Shift:      models.Shift(req.Shift),
			Present:    obs.Present,
			TimeOfDay:  parseTimeOfDay(obs.Time, obs.Present),
			Method:     method,
			RecordedBy: staffID,
		})
	}

	if err := s.repo.UpsertBatch(ctx, facts); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save attendance")
	}

	s.logger.Info("attendance batch saved",
		zap.String("date", req.Date),
		zap.String("shift", req.Shift),
		zap.Int("saved", len(facts)))
	return &BatchResult{Saved: len(facts)}, nil
}

// RecordScan marks one student present from a decoded QR code. Scanning a
// student who is already present is a no-op success.
func (s *AttendanceService) RecordScan(ctx context.Context, req ScanRequest, staffID string) (*ScanResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid scan payload")
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date format, expected YYYY-MM-DD")
	}

	student, err := s.students.FindByCode(ctx, req.Code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("no student with code %s", req.Code))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve student")
	}

	shift := models.Shift(req.Shift)
	existing, err := s.repo.FindByKey(ctx, student.ID, date, shift)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up attendance")
	}
	name := student.LastName + " " + student.FirstName
	if existing != nil && existing.Present {
		return &ScanResult{StudentCode: student.Code, StudentName: name, AlreadyRecorded: true}, nil
	}

	scanTime := s.now().Format("15:04:05")
	fact := &models.AttendanceFact{
		StudentID:  student.ID,
		Date:       date,
		Shift:      shift,
		Present:    true,
		TimeOfDay:  &scanTime,
		Method:     models.MethodQR,
		RecordedBy: staffID,
	}
	if _, _, err := s.repo.Upsert(ctx, fact); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record scan")
	}

	s.logger.Info("qr scan recorded", zap.String("code", student.Code), zap.String("shift", req.Shift))
	return &ScanResult{StudentCode: student.Code, StudentName: name, AlreadyRecorded: false}, nil
}

// parseTimeOfDay leniently parses a wall-clock time. Absent students carry
// no time, and an unparsable value degrades to no time rather than failing
// the row.
func parseTimeOfDay(raw string, present bool) *string {
	if !present || raw == "" {
		return nil
	}
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, raw); err == nil {
			formatted := t.Format("15:04:05")
			return &formatted
		}
	}
	return nil
}
