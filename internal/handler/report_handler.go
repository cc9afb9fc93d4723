package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fviete/attendance-api/internal/service"
	"github.com/fviete/attendance-api/pkg/response"
)

// ReportHandler wires HTTP endpoints to the report service.
type ReportHandler struct {
	service *service.ReportService
}

// NewReportHandler creates a new handler.
func NewReportHandler(svc *service.ReportService) *ReportHandler {
	return &ReportHandler{service: svc}
}

// Attendance godoc
// @Summary Attendance report
// @Description Attendance report for a grade, date and shift; unrecorded students are included
// @Tags Reports
// @Produce json
// @Param grade query string true "Grade"
// @Param date query string true "Date (YYYY-MM-DD)"
// @Param shift query string false "Shift (morning or afternoon)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /reports/attendance [get]
func (h *ReportHandler) Attendance(c *gin.Context) {
	rows, err := h.service.Report(c.Request.Context(), c.Query("grade"), c.Query("date"), c.Query("shift"))
	if err != nil {
		response.Error(c, err)
		return
	}

	present := 0
	for _, row := range rows {
		if row.Present {
			present++
		}
	}

	response.JSON(c, http.StatusOK, rows, map[string]interface{}{
		"total":   len(rows),
		"present": present,
		"absent":  len(rows) - present,
	})
}

// Export godoc
// @Summary Export attendance report
// @Description Download the attendance report as CSV or PDF
// @Tags Reports
// @Produce octet-stream
// @Param grade query string true "Grade"
// @Param date query string true "Date (YYYY-MM-DD)"
// @Param shift query string false "Shift (morning or afternoon)"
// @Param format query string false "Export format (csv or pdf)"
// @Success 200 {file} binary
// @Failure 400 {object} response.Envelope
// @Router /reports/attendance/export [get]
func (h *ReportHandler) Export(c *gin.Context) {
	data, contentType, filename, err := h.service.ExportReport(
		c.Request.Context(),
		c.Query("grade"),
		c.Query("date"),
		c.Query("shift"),
		c.Query("format"),
	)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, data)
}
