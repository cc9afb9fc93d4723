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
	"github.com/fviete/attendance-api/pkg/qr"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	FindByCode(ctx context.Context, code string) (*models.Student, error)
	Create(ctx context.Context, student *models.Student) error
	Delete(ctx context.Context, id string) (bool, error)
	DeleteMany(ctx context.Context, ids []string) (int64, error)
}

// StudentEntry is one student in a batch registration request.
type StudentEntry struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	DNI       string `json:"dni"`
	BirthDate string `json:"birth_date"`
	Section   string `json:"section"`
}

// CreateStudentsRequest registers a batch of students in one grade.
type CreateStudentsRequest struct {
	Grade    string         `json:"grade" validate:"required"`
	Students []StudentEntry `json:"students" validate:"required,min=1"`
}

// CreateStudentsResult summarises a batch registration.
type CreateStudentsResult struct {
	Added  int      `json:"added"`
	Errors []string `json:"errors"`
}

// StudentService handles the student directory use-cases.
type StudentService struct {
	repo      studentRepository
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewStudentService constructs the student service.
func NewStudentService(repo studentRepository, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, validator: validate, logger: logger, now: time.Now}
}

// List returns students, optionally restricted to one grade.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, error) {
	students, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	return students, nil
}

// Get returns one student by id.
func (s *StudentService) Get(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// CreateBatch registers the given students under one grade. Rows are
// committed independently; failures are collected and reported alongside
// the count of added students.
func (s *StudentService) CreateBatch(ctx context.Context, req CreateStudentsRequest) (*CreateStudentsResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}

	result := &CreateStudentsResult{Errors: []string{}}
	baseMillis := s.now().UnixMilli()
	for i, entry := range req.Students {
		if entry.FirstName == "" || entry.LastName == "" {
			continue
		}

		var birthDate *time.Time
		if entry.BirthDate != "" {
			if parsed, err := time.Parse("2006-01-02", entry.BirthDate); err == nil {
				birthDate = &parsed
			}
		}

		section := entry.Section
		if section == "" {
			section = "A"
		}

		student := &models.Student{
			Code:      buildStudentCode(req.Grade, entry.DNI, entry.FirstName, baseMillis+int64(i)),
			FirstName: entry.FirstName,
			LastName:  entry.LastName,
			DNI:       optionalString(entry.DNI),
			BirthDate: birthDate,
			Grade:     req.Grade,
			Section:   section,
			Active:    true,
		}
		if err := s.repo.Create(ctx, student); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s %s: %v", entry.FirstName, entry.LastName, err))
			continue
		}
		result.Added++
	}

	s.logger.Info("students registered",
		zap.String("grade", req.Grade),
		zap.Int("added", result.Added),
		zap.Int("errors", len(result.Errors)))
	return result, nil
}

// Delete removes one student and, through the schema cascade, every
// attendance fact that references it.
func (s *StudentService) Delete(ctx context.Context, id string) error {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete student")
	}
	if !deleted {
		return appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	return nil
}

// DeleteMany removes every student in the id set and reports how many.
func (s *StudentService) DeleteMany(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "a list of student ids is required")
	}
	deleted, err := s.repo.DeleteMany(ctx, ids)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete students")
	}
	return deleted, nil
}

// QRCode renders the student's code as a PNG for credential cards.
func (s *StudentService) QRCode(ctx context.Context, id string, size int) ([]byte, error) {
	student, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	png, err := qr.PNG(student.Code, size)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render qr code")
	}
	return png, nil
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
