package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/examdesk/colloquium-api/internal/dto"
	"github.com/examdesk/colloquium-api/internal/models"
	appErrors "github.com/examdesk/colloquium-api/pkg/errors"
	"github.com/examdesk/colloquium-api/pkg/response"
)

type planService interface {
	CreateVersion(ctx context.Context, req dto.CreateVersionRequest) (*models.ScheduleVersion, error)
	ListVersions(ctx context.Context) ([]models.ScheduleVersion, error)
	Generate(ctx context.Context, versionID string) (*dto.PlanResponse, error)
	GetPlan(ctx context.Context, versionID string) (*dto.PlanResponse, error)
	Publish(ctx context.Context, versionID string) (*models.ScheduleVersion, error)
	CancelEvent(ctx context.Context, eventID string, req dto.CancelEventRequest) error
	RescheduleEvent(ctx context.Context, eventID string, req dto.RescheduleEventRequest) (*models.ScheduledEvent, error)
	ChangeProtocolist(ctx context.Context, eventID string, req dto.ChangeProtocolistRequest) (*models.ScheduledEvent, error)
}

// PlanHandler exposes version and planning endpoints.
type PlanHandler struct {
	service planService
}

// NewPlanHandler builds a new handler.
func NewPlanHandler(service planService) *PlanHandler {
	return &PlanHandler{service: service}
}

// CreateVersion godoc
// @Summary Create schedule version
// @Tags Plan
// @Accept json
// @Produce json
// @Param payload body dto.CreateVersionRequest true "Version payload"
// @Success 201 {object} response.Envelope
// @Router /versions [post]
func (h *PlanHandler) CreateVersion(c *gin.Context) {
	var req dto.CreateVersionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid version payload"))
		return
	}
	version, err := h.service.CreateVersion(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, version)
}

// ListVersions godoc
// @Summary List schedule versions
// @Tags Plan
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /versions [get]
func (h *PlanHandler) ListVersions(c *gin.Context) {
	versions, err := h.service.ListVersions(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, versions, nil)
}

// Generate godoc
// @Summary Generate the plan for a version
// @Description Recomputes every event of the version from the current exams, staff, and settings
// @Tags Plan
// @Produce json
// @Param id path string true "Version ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /versions/{id}/generate [post]
func (h *PlanHandler) Generate(c *gin.Context) {
	plan, err := h.service.Generate(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, plan, nil)
}

// GetPlan godoc
// @Summary Get a version with its events
// @Tags Plan
// @Produce json
// @Param id path string true "Version ID"
// @Success 200 {object} response.Envelope
// @Router /versions/{id}/plan [get]
func (h *PlanHandler) GetPlan(c *gin.Context) {
	plan, err := h.service.GetPlan(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, plan, nil)
}

// Publish godoc
// @Summary Publish a version
// @Description Promotes the version and demotes any other published one
// @Tags Plan
// @Produce json
// @Param id path string true "Version ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /versions/{id}/publish [post]
func (h *PlanHandler) Publish(c *gin.Context) {
	version, err := h.service.Publish(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, version, nil)
}

// CancelEvent godoc
// @Summary Cancel a scheduled event
// @Tags Plan
// @Accept json
// @Produce json
// @Param id path string true "Event ID"
// @Param payload body dto.CancelEventRequest true "Cancellation payload"
// @Success 204 {object} response.Envelope
// @Router /events/{id}/cancel [post]
func (h *PlanHandler) CancelEvent(c *gin.Context) {
	var req dto.CancelEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid cancel payload"))
		return
	}
	if err := h.service.CancelEvent(c.Request.Context(), c.Param("id"), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// RescheduleEvent godoc
// @Summary Move an event to a new slot
// @Tags Plan
// @Accept json
// @Produce json
// @Param id path string true "Event ID"
// @Param payload body dto.RescheduleEventRequest true "Reschedule payload"
// @Success 200 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /events/{id}/reschedule [post]
func (h *PlanHandler) RescheduleEvent(c *gin.Context) {
	var req dto.RescheduleEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid reschedule payload"))
		return
	}
	event, err := h.service.RescheduleEvent(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, event, nil)
}

// ChangeProtocolist godoc
// @Summary Reassign protocol duty for an event
// @Tags Plan
// @Accept json
// @Produce json
// @Param id path string true "Event ID"
// @Param payload body dto.ChangeProtocolistRequest true "Protocolist payload"
// @Success 200 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /events/{id}/protocolist [put]
func (h *PlanHandler) ChangeProtocolist(c *gin.Context) {
	var req dto.ChangeProtocolistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid protocolist payload"))
		return
	}
	event, err := h.service.ChangeProtocolist(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, event, nil)
}
