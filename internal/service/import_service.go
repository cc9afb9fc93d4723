package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/fviete/attendance-api/internal/models"
	appErrors "github.com/fviete/attendance-api/pkg/errors"
)

// ImportService ingests student rosters from spreadsheet exports. Columns
// are located by substring heuristics over normalized headers, so files
// produced by hand in different languages and accents still import.
type ImportService struct {
	repo   studentRepository
	logger *zap.Logger
	now    func() time.Time
}

// NewImportService constructs the import service.
func NewImportService(repo studentRepository, logger *zap.Logger) *ImportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImportService{repo: repo, logger: logger, now: time.Now}
}

// ImportResult summarises one roster import. Errors carries hard per-row
// failures and soft warnings alike; callers render them as one list.
type ImportResult struct {
	Added  int      `json:"added"`
	Errors []string `json:"errors"`
}

type rosterColumns struct {
	firstName int
	lastName  int
	dni       int
	birthDate int
	grade     int
	section   int
}

// ImportCSV reads a roster file and registers each valid row as a student.
// Rows are committed independently: a failing row is recorded and skipped,
// the rest of the file still imports.
func (s *ImportService) ImportCSV(ctx context.Context, file io.Reader, defaultGrade string) (*ImportResult, error) {
	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "could not read the file header")
	}

	cols := detectColumns(header)
	if cols.firstName < 0 || cols.lastName < 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "the file must have name and surname columns")
	}

	result := &ImportResult{Errors: []string{}}
	baseMillis := s.now().UnixMilli()
	for rowIndex := 0; ; rowIndex++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: unreadable line", rowIndex+2))
			continue
		}

		firstName := strings.TrimSpace(cellAt(row, cols.firstName))
		lastName := strings.TrimSpace(cellAt(row, cols.lastName))
		if firstName == "" || lastName == "" {
			continue
		}

		dni := strings.TrimSpace(cellAt(row, cols.dni))

		var birthDate *time.Time
		if raw := strings.TrimSpace(cellAt(row, cols.birthDate)); raw != "" {
			if parsed, ok := parseLenientDate(raw); ok {
				birthDate = &parsed
			} else {
				result.Errors = append(result.Errors, fmt.Sprintf("%s %s: birth date %q has an invalid format", firstName, lastName, raw))
			}
		}

		grade := strings.TrimSpace(cellAt(row, cols.grade))
		if grade == "" {
			grade = defaultGrade
		}
		section := strings.TrimSpace(cellAt(row, cols.section))
		if section == "" {
			section = "A"
		}

		student := &models.Student{
			Code:      buildStudentCode(grade, dni, firstName, baseMillis+int64(rowIndex)),
			FirstName: firstName,
			LastName:  lastName,
			DNI:       optionalString(dni),
			BirthDate: birthDate,
			Grade:     grade,
			Section:   section,
			Active:    true,
		}
		if err := s.repo.Create(ctx, student); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s %s: %v", firstName, lastName, err))
			continue
		}
		result.Added++
	}

	s.logger.Info("roster imported",
		zap.Int("added", result.Added),
		zap.Int("errors", len(result.Errors)))
	return result, nil
}

func cellAt(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func detectColumns(header []string) rosterColumns {
	normalized := make([]string, len(header))
	for i, h := range header {
		normalized[i] = normalizeHeader(h)
	}

	cols := rosterColumns{firstName: -1, lastName: -1, dni: -1, birthDate: -1, grade: -1, section: -1}

	// Surname first: "surname" and "last_name" would otherwise also match
	// the name tokens.
	cols.lastName = findColumn(normalized, []string{"apellido", "surname", "last_name"}, -1)
	cols.firstName = findColumn(normalized, []string{"nombre", "name"}, cols.lastName)
	cols.dni = findColumn(normalized, []string{"dni"}, -1)
	cols.grade = findColumn(normalized, []string{"grado", "grade"}, -1)
	cols.section = findColumn(normalized, []string{"seccion", "section"}, -1)

	for i, h := range normalized {
		dateLike := strings.Contains(h, "fecha") || strings.Contains(h, "date")
		birthLike := strings.Contains(h, "nac") || strings.Contains(h, "birth")
		if dateLike && birthLike {
			cols.birthDate = i
			break
		}
	}

	return cols
}

func findColumn(headers []string, tokens []string, exclude int) int {
	for i, h := range headers {
		if i == exclude {
			continue
		}
		for _, token := range tokens {
			if strings.Contains(h, token) {
				return i
			}
		}
	}
	return -1
}

// normalizeHeader lowers, trims, strips accents, and maps separators to
// underscores so that "Fecha de Nacimiento" and "fecha_nacimiento" match
// the same tokens.
func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))

	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if folded, _, err := transform.String(fold, h); err == nil {
		h = folded
	}

	h = strings.ReplaceAll(h, " ", "_")
	h = strings.ReplaceAll(h, "-", "_")
	return h
}

var lenientDateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"2006/01/02",
	"02-01-2006",
}

func parseLenientDate(raw string) (time.Time, bool) {
	for _, layout := range lenientDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
