package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fviete/attendance-api/internal/service"
	appErrors "github.com/fviete/attendance-api/pkg/errors"
	"github.com/fviete/attendance-api/pkg/response"
)

// AttendanceHandler wires HTTP endpoints to the attendance services.
type AttendanceHandler struct {
	service *service.AttendanceService
	reports *service.ReportService
	metrics *service.MetricsService
}

// NewAttendanceHandler creates a new handler. metrics may be nil.
func NewAttendanceHandler(svc *service.AttendanceService, reports *service.ReportService, metrics *service.MetricsService) *AttendanceHandler {
	return &AttendanceHandler{service: svc, reports: reports, metrics: metrics}
}

// List godoc
// @Summary Attendance sheet
// @Description One row per active student of a grade with its recorded state for the date and shift
// @Tags Attendance
// @Produce json
// @Param grade query string true "Grade"
// @Param date query string true "Date (YYYY-MM-DD)"
// @Param shift query string false "Shift (morning or afternoon)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /attendance [get]
func (h *AttendanceHandler) List(c *gin.Context) {
	rows, err := h.reports.Rows(c.Request.Context(), c.Query("grade"), c.Query("date"), c.Query("shift"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, rows, map[string]interface{}{"count": len(rows)})
}

// Submit godoc
// @Summary Submit attendance
// @Description Save a batch of attendance observations for one date and shift
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body service.SubmitBatchRequest true "Attendance payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /attendance [post]
func (h *AttendanceHandler) Submit(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.SubmitBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid attendance payload"))
		return
	}

	result, err := h.service.SubmitBatch(c.Request.Context(), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, result)
}

// Scan godoc
// @Summary Record QR scan
// @Description Mark one student present from a decoded QR code
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body service.ScanRequest true "Scan payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /attendance/scan [post]
func (h *AttendanceHandler) Scan(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid scan payload"))
		return
	}

	result, err := h.service.RecordScan(c.Request.Context(), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.metrics.RecordScan(result.AlreadyRecorded)
	response.JSON(c, http.StatusOK, result)
}
