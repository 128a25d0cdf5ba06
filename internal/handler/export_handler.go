package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/examdesk/colloquium-api/internal/service"
	"github.com/examdesk/colloquium-api/pkg/response"
)

type exportService interface {
	ExportPlan(ctx context.Context, versionID string, format service.ExportFormat) (*service.ExportFile, error)
}

// ExportHandler streams rendered plan exports.
type ExportHandler struct {
	service exportService
}

// NewExportHandler builds a new handler.
func NewExportHandler(service exportService) *ExportHandler {
	return &ExportHandler{service: service}
}

// Export godoc
// @Summary Export a version's plan
// @Description Renders the plan as csv, xlsx, or pdf and streams the file
// @Tags Export
// @Produce octet-stream
// @Param id path string true "Version ID"
// @Param format query string false "Export format (csv, xlsx, pdf)" default(csv)
// @Success 200 {file} binary
// @Router /versions/{id}/export [get]
func (h *ExportHandler) Export(c *gin.Context) {
	format := service.ExportFormat(c.DefaultQuery("format", string(service.ExportFormatCSV)))
	file, err := h.service.ExportPlan(c.Request.Context(), c.Param("id"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Data(http.StatusOK, file.ContentType, file.Data)
}
