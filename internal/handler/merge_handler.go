package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/examdesk/colloquium-api/internal/dto"
	appErrors "github.com/examdesk/colloquium-api/pkg/errors"
	"github.com/examdesk/colloquium-api/pkg/response"
)

type mergeService interface {
	Validate(ctx context.Context, versionID string, req dto.MergeSlotRequest) (*dto.MergeValidationResponse, error)
	Alternatives(ctx context.Context, versionID string, req dto.MergeSlotRequest) (*dto.MergeAlternativesResponse, error)
	Commit(ctx context.Context, versionID string, req dto.MergeSlotRequest) (*dto.MergeCommitResponse, error)
}

// MergeHandler exposes the merge workflow endpoints.
type MergeHandler struct {
	service mergeService
}

// NewMergeHandler builds a new handler.
func NewMergeHandler(service mergeService) *MergeHandler {
	return &MergeHandler{service: service}
}

func (h *MergeHandler) bind(c *gin.Context) (dto.MergeSlotRequest, bool) {
	var req dto.MergeSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid merge payload"))
		return req, false
	}
	return req, true
}

// Validate godoc
// @Summary Validate a merge slot
// @Description Checks whether two single sessions can become one team session at the given slot
// @Tags Merge
// @Accept json
// @Produce json
// @Param id path string true "Version ID"
// @Param payload body dto.MergeSlotRequest true "Merge payload"
// @Success 200 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /versions/{id}/merge/validate [post]
func (h *MergeHandler) Validate(c *gin.Context) {
	req, ok := h.bind(c)
	if !ok {
		return
	}
	result, err := h.service.Validate(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Alternatives godoc
// @Summary List alternative merge slots
// @Tags Merge
// @Accept json
// @Produce json
// @Param id path string true "Version ID"
// @Param payload body dto.MergeSlotRequest true "Merge payload"
// @Success 200 {object} response.Envelope
// @Router /versions/{id}/merge/alternatives [post]
func (h *MergeHandler) Alternatives(c *gin.Context) {
	req, ok := h.bind(c)
	if !ok {
		return
	}
	result, err := h.service.Alternatives(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Commit godoc
// @Summary Commit a merge
// @Description Creates the team session, cancels the sources, and repairs the freed slot
// @Tags Merge
// @Accept json
// @Produce json
// @Param id path string true "Version ID"
// @Param payload body dto.MergeSlotRequest true "Merge payload"
// @Success 201 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /versions/{id}/merge [post]
func (h *MergeHandler) Commit(c *gin.Context) {
	req, ok := h.bind(c)
	if !ok {
		return
	}
	result, err := h.service.Commit(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}
