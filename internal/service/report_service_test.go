package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fviete/attendance-api/internal/models"
	appErrors "github.com/fviete/attendance-api/pkg/errors"
)

type fakeReportCache struct {
	values map[string]string
	sets   int
}

func (f *fakeReportCache) Get(ctx context.Context, key string) *redis.StringCmd {
	if val, ok := f.values[key]; ok {
		return redis.NewStringResult(val, nil)
	}
	return redis.NewStringResult("", redis.Nil)
}

func (f *fakeReportCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	if f.values == nil {
		f.values = make(map[string]string)
	}
	switch v := value.(type) {
	case []byte:
		f.values[key] = string(v)
	case string:
		f.values[key] = v
	}
	f.sets++
	return redis.NewStatusResult("OK", nil)
}

func timeOfDay(s string) *string { return &s }

func reportFixtures() (*mockStudentRepo, *mockAttendanceRepo) {
	students := &mockStudentRepo{students: []models.Student{
		{ID: "s1", Code: "1RO-1-1", FirstName: "Ana", LastName: "Flores", Grade: "1ro"},
		{ID: "s2", Code: "1RO-2-2", FirstName: "Luis", LastName: "Mamani", Grade: "1ro"},
		{ID: "s3", Code: "1RO-3-3", FirstName: "Rosa", LastName: "Quispe", Grade: "1ro"},
		{ID: "s4", Code: "1RO-4-4", FirstName: "Juan", LastName: "Torres", Grade: "1ro"},
		{ID: "s5", Code: "1RO-5-5", FirstName: "Eva", LastName: "Vargas", Grade: "1ro"},
	}}
	facts := &mockAttendanceRepo{listedFacts: []models.AttendanceFact{
		{StudentID: "s1", Present: true, TimeOfDay: timeOfDay("07:31:00"), Method: models.MethodQR},
		{StudentID: "s3", Present: false, Method: models.MethodManual},
	}}
	return students, facts
}

func TestReportIncludesUnrecordedStudents(t *testing.T) {
	students, facts := reportFixtures()
	svc := NewReportService(students, facts, nil, ReportCacheConfig{}, zap.NewNop())

	rows, err := svc.Report(context.Background(), "1ro", "2025-03-10", "morning")
	require.NoError(t, err)
	require.Len(t, rows, 5)

	assert.True(t, rows[0].Present)
	assert.Equal(t, "07:31:00", rows[0].TimeOfDay)
	assert.Equal(t, "qr", rows[0].Method)

	// Recorded absence keeps its method; never-marked students do not.
	assert.False(t, rows[2].Present)
	assert.Equal(t, "manual", rows[2].Method)

	for _, i := range []int{1, 3, 4} {
		assert.False(t, rows[i].Present)
		assert.Empty(t, rows[i].TimeOfDay)
		assert.Equal(t, "unrecorded", rows[i].Method)
	}
}

func TestRowsLeaveUnmarkedMethodEmpty(t *testing.T) {
	students, facts := reportFixtures()
	svc := NewReportService(students, facts, nil, ReportCacheConfig{}, zap.NewNop())

	rows, err := svc.Rows(context.Background(), "1ro", "2025-03-10", "morning")
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Empty(t, rows[1].Method)
	assert.Equal(t, "qr", rows[0].Method)
}

func TestReportValidatesInput(t *testing.T) {
	students, facts := reportFixtures()
	svc := NewReportService(students, facts, nil, ReportCacheConfig{}, zap.NewNop())

	_, err := svc.Report(context.Background(), "", "2025-03-10", "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.Report(context.Background(), "1ro", "10/03/2025", "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.Report(context.Background(), "1ro", "2025-03-10", "night")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestReportUsesCacheOnRepeat(t *testing.T) {
	students, facts := reportFixtures()
	cache := &fakeReportCache{}
	svc := NewReportService(students, facts, cache, ReportCacheConfig{Enabled: true, TTL: time.Minute}, zap.NewNop())

	first, err := svc.Report(context.Background(), "1ro", "2025-03-10", "morning")
	require.NoError(t, err)
	assert.Equal(t, 1, cache.sets)

	// Change the underlying data; the cached projection must still be served.
	facts.listedFacts = nil
	second, err := svc.Report(context.Background(), "1ro", "2025-03-10", "morning")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, cache.sets)
}

func TestExportReportCSV(t *testing.T) {
	students, facts := reportFixtures()
	svc := NewReportService(students, facts, nil, ReportCacheConfig{}, zap.NewNop())

	data, contentType, filename, err := svc.ExportReport(context.Background(), "1ro", "2025-03-10", "morning", "csv")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", contentType)
	assert.Equal(t, "attendance_1ro_2025-03-10.csv", filename)

	body := string(data)
	assert.True(t, strings.Contains(body, "Code"))
	assert.True(t, strings.Contains(body, "Flores"))
	assert.True(t, strings.Contains(body, "unrecorded"))
}

func TestExportReportPDF(t *testing.T) {
	students, facts := reportFixtures()
	svc := NewReportService(students, facts, nil, ReportCacheConfig{}, zap.NewNop())

	data, contentType, filename, err := svc.ExportReport(context.Background(), "1ro", "2025-03-10", "", "pdf")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", contentType)
	assert.Equal(t, "attendance_1ro_2025-03-10.pdf", filename)
	assert.True(t, strings.HasPrefix(string(data), "%PDF"))
}

func TestExportReportRejectsUnknownFormat(t *testing.T) {
	students, facts := reportFixtures()
	svc := NewReportService(students, facts, nil, ReportCacheConfig{}, zap.NewNop())

	_, _, _, err := svc.ExportReport(context.Background(), "1ro", "2025-03-10", "", "xlsx")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
