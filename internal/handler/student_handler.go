package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/fviete/attendance-api/internal/models"
	"github.com/fviete/attendance-api/internal/service"
	appErrors "github.com/fviete/attendance-api/pkg/errors"
	"github.com/fviete/attendance-api/pkg/response"
)

// StudentHandler wires HTTP endpoints to the student service.
type StudentHandler struct {
	service *service.StudentService
}

// NewStudentHandler creates a new handler.
func NewStudentHandler(svc *service.StudentService) *StudentHandler {
	return &StudentHandler{service: svc}
}

// List godoc
// @Summary List students
// @Description List students, optionally filtered by grade
// @Tags Students
// @Produce json
// @Param grade query string false "Grade filter"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /students [get]
func (h *StudentHandler) List(c *gin.Context) {
	filter := models.StudentFilter{Grade: c.Query("grade")}
	active := true
	filter.Active = &active

	students, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, students, map[string]interface{}{"count": len(students)})
}

// Get godoc
// @Summary Get student
// @Description Fetch one student by id
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id} [get]
func (h *StudentHandler) Get(c *gin.Context) {
	student, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, student)
}

// Create godoc
// @Summary Register students
// @Description Register a batch of students in one grade
// @Tags Students
// @Accept json
// @Produce json
// @Param payload body service.CreateStudentsRequest true "Students payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /students [post]
func (h *StudentHandler) Create(c *gin.Context) {
	var req service.CreateStudentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid students payload"))
		return
	}

	result, err := h.service.CreateBatch(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// Delete godoc
// @Summary Delete student
// @Description Remove one student and its attendance records
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id} [delete]
func (h *StudentHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// BulkDelete godoc
// @Summary Delete students
// @Description Remove a set of students by id
// @Tags Students
// @Accept json
// @Produce json
// @Param payload body object true "Student ids"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /students/bulk-delete [post]
func (h *StudentHandler) BulkDelete(c *gin.Context) {
	var payload struct {
		IDs []string `json:"ids" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "a list of student ids is required"))
		return
	}

	deleted, err := h.service.DeleteMany(c.Request.Context(), payload.IDs)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, gin.H{"deleted": deleted})
}

// QRCode godoc
// @Summary Student QR code
// @Description Render the student's code as a PNG image
// @Tags Students
// @Produce png
// @Param id path string true "Student ID"
// @Param size query int false "Image size in pixels"
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Router /students/{id}/qrcode [get]
func (h *StudentHandler) QRCode(c *gin.Context) {
	size, _ := strconv.Atoi(c.Query("size"))

	png, err := h.service.QRCode(c.Request.Context(), c.Param("id"), size)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Data(http.StatusOK, "image/png", png)
}
