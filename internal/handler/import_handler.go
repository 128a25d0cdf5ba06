package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/examdesk/colloquium-api/internal/dto"
	appErrors "github.com/examdesk/colloquium-api/pkg/errors"
	"github.com/examdesk/colloquium-api/pkg/response"
)

type importService interface {
	ImportWorkbook(ctx context.Context, r io.Reader) (*dto.ImportSummary, error)
}

// ImportHandler accepts the registrar's spreadsheet upload.
type ImportHandler struct {
	service importService
}

// NewImportHandler builds a new handler.
func NewImportHandler(service importService) *ImportHandler {
	return &ImportHandler{service: service}
}

// Import godoc
// @Summary Import exams and staff from a workbook
// @Description Accepts an XLSX upload with Staff and Exams sheets
// @Tags Import
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Workbook file"
// @Success 200 {object} response.Envelope
// @Router /import [post]
func (h *ImportHandler) Import(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "workbook file required"))
		return
	}
	f, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "failed to open upload"))
		return
	}
	defer f.Close()

	summary, err := h.service.ImportWorkbook(c.Request.Context(), f)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}
