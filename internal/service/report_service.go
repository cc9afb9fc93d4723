package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fviete/attendance-api/internal/models"
	appErrors "github.com/fviete/attendance-api/pkg/errors"
	"github.com/fviete/attendance-api/pkg/export"
)

// methodUnrecorded marks report rows for students without a fact. Distinct
// from an explicit absence, which carries the method that recorded it.
const methodUnrecorded = "unrecorded"

type reportStudentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, error)
}

type reportFactRepository interface {
	ListFacts(ctx context.Context, studentIDs []string, date time.Time, shift models.Shift) ([]models.AttendanceFact, error)
}

type reportCache interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// ReportCacheConfig tunes the optional read-side cache.
type ReportCacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

// ReportService is the read-side projection of the ledger: one row per
// active student in a grade, with students missing a fact defaulting to
// not-marked rather than being dropped.
type ReportService struct {
	students reportStudentRepository
	facts    reportFactRepository
	cache    reportCache
	cacheCfg ReportCacheConfig
	logger   *zap.Logger
}

// NewReportService constructs the report service. cache may be nil.
func NewReportService(students reportStudentRepository, facts reportFactRepository, cache reportCache, cacheCfg ReportCacheConfig, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{students: students, facts: facts, cache: cache, cacheCfg: cacheCfg, logger: logger}
}

// Rows projects the grade for the marking UI; unmarked students carry an
// empty method.
func (s *ReportService) Rows(ctx context.Context, grade, dateStr, shiftStr string) ([]models.AttendanceRow, error) {
	return s.project(ctx, grade, dateStr, shiftStr, "")
}

// Report projects the grade for reporting; unmarked students are labelled
// explicitly. Results may be served from cache for a short TTL.
func (s *ReportService) Report(ctx context.Context, grade, dateStr, shiftStr string) ([]models.AttendanceRow, error) {
	key := fmt.Sprintf("report:%s:%s:%s", grade, dateStr, shiftStr)
	if s.cacheEnabled() {
		if cached, err := s.cache.Get(ctx, key).Result(); err == nil {
			var rows []models.AttendanceRow
			if err := json.Unmarshal([]byte(cached), &rows); err == nil {
				return rows, nil
			}
		}
	}

	rows, err := s.project(ctx, grade, dateStr, shiftStr, methodUnrecorded)
	if err != nil {
		return nil, err
	}

	if s.cacheEnabled() {
		if payload, err := json.Marshal(rows); err == nil {
			if err := s.cache.Set(ctx, key, payload, s.cacheCfg.TTL).Err(); err != nil {
				s.logger.Warn("failed to cache report", zap.Error(err))
			}
		}
	}
	return rows, nil
}

// ExportReport renders the report rows as a downloadable file.
func (s *ReportService) ExportReport(ctx context.Context, grade, dateStr, shiftStr, format string) ([]byte, string, string, error) {
	rows, err := s.Report(ctx, grade, dateStr, shiftStr)
	if err != nil {
		return nil, "", "", err
	}

	table := export.Table{
		Title:   fmt.Sprintf("Attendance %s %s", grade, dateStr),
		Columns: []string{"Code", "Last Name", "First Name", "DNI", "Present", "Time", "Method"},
	}
	for _, row := range rows {
		present := "no"
		if row.Present {
			present = "yes"
		}
		dni := ""
		if row.DNI != nil {
			dni = *row.DNI
		}
		table.Rows = append(table.Rows, []string{row.Code, row.LastName, row.FirstName, dni, present, row.TimeOfDay, row.Method})
	}

	name := fmt.Sprintf("attendance_%s_%s", grade, dateStr)
	switch format {
	case "pdf":
		data, err := export.RenderPDF(table)
		if err != nil {
			return nil, "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return data, "application/pdf", name + ".pdf", nil
	case "", "csv":
		data, err := export.RenderCSV(table)
		if err != nil {
			return nil, "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return data, "text/csv", name + ".csv", nil
	default:
		return nil, "", "", appErrors.Clone(appErrors.ErrValidation, "unsupported export format, expected csv or pdf")
	}
}

func (s *ReportService) project(ctx context.Context, grade, dateStr, shiftStr, missingMethod string) ([]models.AttendanceRow, error) {
	if grade == "" || dateStr == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "grade and date are required")
	}
	date, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date format, expected YYYY-MM-DD")
	}
	shift := models.Shift(shiftStr)
	if shiftStr != "" && !shift.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid shift, expected morning or afternoon")
	}

	active := true
	students, err := s.students.List(ctx, models.StudentFilter{Grade: grade, Active: &active})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}

	ids := make([]string, len(students))
	for i, st := range students {
		ids[i] = st.ID
	}
	facts, err := s.facts.ListFacts(ctx, ids, date, shift)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance")
	}

	// Facts come ordered by update time, so with an unset shift the most
	// recent write per student wins.
	factsByStudent := make(map[string]models.AttendanceFact, len(facts))
	for _, fact := range facts {
		factsByStudent[fact.StudentID] = fact
	}

	rows := make([]models.AttendanceRow, 0, len(students))
	for _, st := range students {
		row := models.AttendanceRow{
			StudentID: st.ID,
			Code:      st.Code,
			FirstName: st.FirstName,
			LastName:  st.LastName,
			DNI:       st.DNI,
			Grade:     st.Grade,
			Present:   false,
			TimeOfDay: "",
			Method:    missingMethod,
		}
		if fact, ok := factsByStudent[st.ID]; ok {
			row.Present = fact.Present
			if fact.TimeOfDay != nil {
				row.TimeOfDay = *fact.TimeOfDay
			}
			row.Method = string(fact.Method)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (s *ReportService) cacheEnabled() bool {
	return s.cacheCfg.Enabled && s.cache != nil
}
