package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fviete/attendance-api/internal/models"
	appErrors "github.com/fviete/attendance-api/pkg/errors"
)

type mockAttendanceRepo struct {
	existing    *models.AttendanceFact
	findErr     error
	upserted    []models.AttendanceFact
	batches     [][]models.AttendanceFact
	upsertErr   error
	listedFacts []models.AttendanceFact
}

func (m *mockAttendanceRepo) FindByKey(ctx context.Context, studentID string, date time.Time, shift models.Shift) (*models.AttendanceFact, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	if m.existing == nil {
		return nil, sql.ErrNoRows
	}
	return m.existing, nil
}

func (m *mockAttendanceRepo) Upsert(ctx context.Context, fact *models.AttendanceFact) (*models.AttendanceFact, bool, error) {
	if m.upsertErr != nil {
		return nil, false, m.upsertErr
	}
	m.upserted = append(m.upserted, *fact)
	return fact, m.existing == nil, nil
}

func (m *mockAttendanceRepo) UpsertBatch(ctx context.Context, facts []models.AttendanceFact) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.batches = append(m.batches, facts)
	return nil
}

func (m *mockAttendanceRepo) ListFacts(ctx context.Context, studentIDs []string, date time.Time, shift models.Shift) ([]models.AttendanceFact, error) {
	return m.listedFacts, nil
}

type mockScanStudentRepo struct {
	student *models.Student
}

func (m *mockScanStudentRepo) FindByCode(ctx context.Context, code string) (*models.Student, error) {
	if m.student == nil || m.student.Code != code {
		return nil, sql.ErrNoRows
	}
	return m.student, nil
}

func newTestAttendanceService(repo *mockAttendanceRepo, students *mockScanStudentRepo) *AttendanceService {
	svc := NewAttendanceService(repo, students, validator.New(), zap.NewNop())
	svc.now = func() time.Time { return time.Date(2025, 3, 10, 7, 45, 30, 0, time.UTC) }
	return svc
}

func TestSubmitBatchSavesObservations(t *testing.T) {
	repo := &mockAttendanceRepo{}
	svc := newTestAttendanceService(repo, &mockScanStudentRepo{})

	result, err := svc.SubmitBatch(context.Background(), SubmitBatchRequest{
		Date:  "2025-03-10",
		Shift: "morning",
		Observations: []Observation{
			{StudentID: "s1", Present: true, Time: "07:30"},
			{StudentID: "s2", Present: false},
		},
	}, "staff-1")
	require.NoError(t, err)
	assert.Equal(t, 2, result.Saved)

	require.Len(t, repo.batches, 1)
	facts := repo.batches[0]
	require.Len(t, facts, 2)
	assert.Equal(t, models.MethodManual, facts[0].Method)
	assert.Equal(t, "staff-1", facts[0].RecordedBy)
	require.NotNil(t, facts[0].TimeOfDay)
	assert.Equal(t, "07:30:00", *facts[0].TimeOfDay)
	assert.Nil(t, facts[1].TimeOfDay)
}

func TestSubmitBatchSkipsBlankStudentIDs(t *testing.T) {
	repo := &mockAttendanceRepo{}
	svc := newTestAttendanceService(repo, &mockScanStudentRepo{})

	result, err := svc.SubmitBatch(context.Background(), SubmitBatchRequest{
		Date:  "2025-03-10",
		Shift: "afternoon",
		Observations: []Observation{
			{StudentID: "", Present: true},
			{StudentID: "s2", Present: true},
		},
	}, "staff-1")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Saved)
	require.Len(t, repo.batches, 1)
	assert.Len(t, repo.batches[0], 1)
}

func TestSubmitBatchRejectsInvalidShift(t *testing.T) {
	svc := newTestAttendanceService(&mockAttendanceRepo{}, &mockScanStudentRepo{})

	_, err := svc.SubmitBatch(context.Background(), SubmitBatchRequest{
		Date:         "2025-03-10",
		Shift:        "evening",
		Observations: []Observation{{StudentID: "s1", Present: true}},
	}, "staff-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSubmitBatchRejectsBadDate(t *testing.T) {
	svc := newTestAttendanceService(&mockAttendanceRepo{}, &mockScanStudentRepo{})

	_, err := svc.SubmitBatch(context.Background(), SubmitBatchRequest{
		Date:         "10-03-2025",
		Shift:        "morning",
		Observations: []Observation{{StudentID: "s1", Present: true}},
	}, "staff-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSubmitBatchUnparsableTimeDegradesToNil(t *testing.T) {
	repo := &mockAttendanceRepo{}
	svc := newTestAttendanceService(repo, &mockScanStudentRepo{})

	_, err := svc.SubmitBatch(context.Background(), SubmitBatchRequest{
		Date:         "2025-03-10",
		Shift:        "morning",
		Observations: []Observation{{StudentID: "s1", Present: true, Time: "half past seven"}},
	}, "staff-1")
	require.NoError(t, err)
	require.Len(t, repo.batches, 1)
	assert.Nil(t, repo.batches[0][0].TimeOfDay)
}

func TestRecordScanMarksStudentPresent(t *testing.T) {
	repo := &mockAttendanceRepo{}
	students := &mockScanStudentRepo{student: &models.Student{
		ID: "s1", Code: "1RO-12345678-100", FirstName: "Ana", LastName: "Quispe",
	}}
	svc := newTestAttendanceService(repo, students)

	result, err := svc.RecordScan(context.Background(), ScanRequest{
		Code: "1RO-12345678-100", Date: "2025-03-10", Shift: "morning",
	}, "staff-1")
	require.NoError(t, err)
	assert.False(t, result.AlreadyRecorded)
	assert.Equal(t, "Quispe Ana", result.StudentName)

	require.Len(t, repo.upserted, 1)
	fact := repo.upserted[0]
	assert.True(t, fact.Present)
	assert.Equal(t, models.MethodQR, fact.Method)
	require.NotNil(t, fact.TimeOfDay)
	assert.Equal(t, "07:45:30", *fact.TimeOfDay)
}

func TestRecordScanRepeatIsNoOp(t *testing.T) {
	repo := &mockAttendanceRepo{existing: &models.AttendanceFact{
		StudentID: "s1", Present: true, Method: models.MethodQR,
	}}
	students := &mockScanStudentRepo{student: &models.Student{
		ID: "s1", Code: "1RO-12345678-100", FirstName: "Ana", LastName: "Quispe",
	}}
	svc := newTestAttendanceService(repo, students)

	result, err := svc.RecordScan(context.Background(), ScanRequest{
		Code: "1RO-12345678-100", Date: "2025-03-10", Shift: "morning",
	}, "staff-1")
	require.NoError(t, err)
	assert.True(t, result.AlreadyRecorded)
	assert.Empty(t, repo.upserted)
}

func TestRecordScanUnknownCode(t *testing.T) {
	svc := newTestAttendanceService(&mockAttendanceRepo{}, &mockScanStudentRepo{})

	_, err := svc.RecordScan(context.Background(), ScanRequest{
		Code: "NOPE", Date: "2025-03-10", Shift: "morning",
	}, "staff-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestRecordScanOverwritesAbsentFact(t *testing.T) {
	// A student previously marked absent gets promoted to present by a scan.
	repo := &mockAttendanceRepo{existing: &models.AttendanceFact{
		StudentID: "s1", Present: false, Method: models.MethodManual,
	}}
	students := &mockScanStudentRepo{student: &models.Student{
		ID: "s1", Code: "1RO-12345678-100", FirstName: "Ana", LastName: "Quispe",
	}}
	svc := newTestAttendanceService(repo, students)

	result, err := svc.RecordScan(context.Background(), ScanRequest{
		Code: "1RO-12345678-100", Date: "2025-03-10", Shift: "morning",
	}, "staff-1")
	require.NoError(t, err)
	assert.False(t, result.AlreadyRecorded)
	require.Len(t, repo.upserted, 1)
	assert.True(t, repo.upserted[0].Present)
}

func TestParseTimeOfDay(t *testing.T) {
	got := parseTimeOfDay("07:30", true)
	require.NotNil(t, got)
	assert.Equal(t, "07:30:00", *got)

	got = parseTimeOfDay("07:30:15", true)
	require.NotNil(t, got)
	assert.Equal(t, "07:30:15", *got)

	assert.Nil(t, parseTimeOfDay("07:30", false))
	assert.Nil(t, parseTimeOfDay("", true))
	assert.Nil(t, parseTimeOfDay("not a time", true))
}
