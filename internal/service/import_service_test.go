package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appErrors "github.com/fviete/attendance-api/pkg/errors"
)

func TestImportCSVSpanishHeaders(t *testing.T) {
	repo := &mockStudentRepo{}
	svc := NewImportService(repo, zap.NewNop())

	file := strings.NewReader(
		"Nombres,Apellidos,DNI,Grado,Sección,Fecha de Nacimiento\n" +
			"Ana,Quispe,12345678,1ro,B,2015-04-02\n" +
			"Luis,Mamani,,,,\n")

	result, err := svc.ImportCSV(context.Background(), file, "2do")
	require.NoError(t, err)
	assert.Equal(t, 2, result.Added)
	assert.Empty(t, result.Errors)

	require.Len(t, repo.created, 2)
	ana := repo.created[0]
	assert.Equal(t, "Ana", ana.FirstName)
	assert.Equal(t, "Quispe", ana.LastName)
	assert.Equal(t, "1ro", ana.Grade)
	assert.Equal(t, "B", ana.Section)
	require.NotNil(t, ana.DNI)
	assert.Equal(t, "12345678", *ana.DNI)
	require.NotNil(t, ana.BirthDate)

	// Blank cells fall back to the default grade and section.
	luis := repo.created[1]
	assert.Equal(t, "2do", luis.Grade)
	assert.Equal(t, "A", luis.Section)
	assert.Nil(t, luis.DNI)
	assert.Nil(t, luis.BirthDate)
}

func TestImportCSVEnglishHeaders(t *testing.T) {
	repo := &mockStudentRepo{}
	svc := NewImportService(repo, zap.NewNop())

	file := strings.NewReader(
		"last_name,name,dni,grade,section,birth date\n" +
			"Quispe,Ana,12345678,1ro,A,02/01/2015\n")

	result, err := svc.ImportCSV(context.Background(), file, "")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Added)
	require.Len(t, repo.created, 1)
	assert.Equal(t, "Ana", repo.created[0].FirstName)
	assert.Equal(t, "Quispe", repo.created[0].LastName)
	require.NotNil(t, repo.created[0].BirthDate)
}

func TestImportCSVMissingSurnameColumn(t *testing.T) {
	svc := NewImportService(&mockStudentRepo{}, zap.NewNop())

	file := strings.NewReader("Nombres,DNI\nAna,12345678\n")
	_, err := svc.ImportCSV(context.Background(), file, "1ro")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "name and surname")
}

func TestImportCSVSkipsRowsWithoutNames(t *testing.T) {
	repo := &mockStudentRepo{}
	svc := NewImportService(repo, zap.NewNop())

	file := strings.NewReader(
		"Nombres,Apellidos\n" +
			",Quispe\n" +
			"Luis,\n" +
			"Rosa,Flores\n")

	result, err := svc.ImportCSV(context.Background(), file, "1ro")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Added)
	assert.Empty(t, result.Errors)
	require.Len(t, repo.created, 1)
	assert.Equal(t, "Rosa", repo.created[0].FirstName)
}

func TestImportCSVBadBirthDateStillImportsRow(t *testing.T) {
	repo := &mockStudentRepo{}
	svc := NewImportService(repo, zap.NewNop())

	file := strings.NewReader(
		"Nombres,Apellidos,Fecha de Nacimiento\n" +
			"Ana,Quispe,April 2nd 2015\n")

	result, err := svc.ImportCSV(context.Background(), file, "1ro")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Added)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "birth date")
	require.Len(t, repo.created, 1)
	assert.Nil(t, repo.created[0].BirthDate)
}

func TestImportCSVCollectsRowFailures(t *testing.T) {
	repo := &mockStudentRepo{createErr: map[string]error{"Luis": errors.New("insert failed")}}
	svc := NewImportService(repo, zap.NewNop())

	file := strings.NewReader(
		"Nombres,Apellidos\n" +
			"Ana,Quispe\n" +
			"Luis,Mamani\n")

	result, err := svc.ImportCSV(context.Background(), file, "1ro")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Added)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "Luis Mamani")
}

func TestImportCSVIdenticalRowsGetDistinctCodes(t *testing.T) {
	repo := &mockStudentRepo{}
	svc := NewImportService(repo, zap.NewNop())

	file := strings.NewReader(
		"Nombres,Apellidos\n" +
			"Ana,Quispe\n" +
			"Ana,Quispe\n")

	result, err := svc.ImportCSV(context.Background(), file, "1ro")
	require.NoError(t, err)
	assert.Equal(t, 2, result.Added)
	require.Len(t, repo.created, 2)
	assert.NotEqual(t, repo.created[0].Code, repo.created[1].Code)
}

func TestDetectColumnsNormalizesAccents(t *testing.T) {
	cols := detectColumns([]string{"NOMBRES", "Apellidos Paternos", "Sección", "Grado", "Fecha-de-Nacimiento", "DNI"})
	assert.Equal(t, 0, cols.firstName)
	assert.Equal(t, 1, cols.lastName)
	assert.Equal(t, 2, cols.section)
	assert.Equal(t, 3, cols.grade)
	assert.Equal(t, 4, cols.birthDate)
	assert.Equal(t, 5, cols.dni)
}

func TestNormalizeHeader(t *testing.T) {
	assert.Equal(t, "fecha_de_nacimiento", normalizeHeader(" Fecha de Nacimiento "))
	assert.Equal(t, "seccion", normalizeHeader("Sección"))
	assert.Equal(t, "last_name", normalizeHeader("Last-Name"))
}
