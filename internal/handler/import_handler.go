package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fviete/attendance-api/internal/service"
	appErrors "github.com/fviete/attendance-api/pkg/errors"
	"github.com/fviete/attendance-api/pkg/response"
)

// ImportHandler accepts roster file uploads.
type ImportHandler struct {
	service     *service.ImportService
	metrics     *service.MetricsService
	maxFileSize int64
}

// NewImportHandler creates a new handler. metrics may be nil.
func NewImportHandler(svc *service.ImportService, metrics *service.MetricsService, maxFileSize int64) *ImportHandler {
	return &ImportHandler{service: svc, metrics: metrics, maxFileSize: maxFileSize}
}

// Import godoc
// @Summary Import student roster
// @Description Upload a CSV roster; valid rows are registered, failing rows are reported
// @Tags Students
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Roster file"
// @Param grade formData string false "Default grade for rows without one"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /students/import [post]
func (h *ImportHandler) Import(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "a roster file is required"))
		return
	}
	if h.maxFileSize > 0 && fileHeader.Size > h.maxFileSize {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "the file exceeds the maximum allowed size"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open uploaded file"))
		return
	}
	defer file.Close()

	result, err := h.service.ImportCSV(c.Request.Context(), file, c.PostForm("grade"))
	if err != nil {
		response.Error(c, err)
		return
	}

	h.metrics.RecordImportedRows(result.Added)
	response.JSON(c, http.StatusOK, result)
}
