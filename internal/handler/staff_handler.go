package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/examdesk/colloquium-api/internal/dto"
	"github.com/examdesk/colloquium-api/internal/models"
	appErrors "github.com/examdesk/colloquium-api/pkg/errors"
	"github.com/examdesk/colloquium-api/pkg/response"
)

type staffService interface {
	Create(ctx context.Context, req dto.CreateStaffRequest) (*models.StaffMember, error)
	GetByID(ctx context.Context, id string) (*models.StaffMember, error)
	List(ctx context.Context, filter models.StaffFilter) ([]models.StaffMember, *models.Pagination, error)
	Update(ctx context.Context, id string, req dto.UpdateStaffRequest) (*models.StaffMember, error)
	UpdateAvailability(ctx context.Context, id string, req dto.UpdateAvailabilityRequest) (*models.StaffMember, error)
	CheckAvailability(ctx context.Context, id string, req dto.AvailabilityCheckRequest) (*dto.AvailabilityCheckResponse, error)
	Delete(ctx context.Context, id string) error
}

// StaffHandler exposes staff roster endpoints.
type StaffHandler struct {
	service staffService
}

// NewStaffHandler builds a new handler.
func NewStaffHandler(service staffService) *StaffHandler {
	return &StaffHandler{service: service}
}

// Create godoc
// @Summary Register a staff member
// @Tags Staff
// @Accept json
// @Produce json
// @Param payload body dto.CreateStaffRequest true "Staff payload"
// @Success 201 {object} response.Envelope
// @Router /staff [post]
func (h *StaffHandler) Create(c *gin.Context) {
	var req dto.CreateStaffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid staff payload"))
		return
	}
	member, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, member)
}

// List godoc
// @Summary List staff members
// @Tags Staff
// @Produce json
// @Param employment query string false "Employment filter"
// @Param protocol_eligible query bool false "Protocol eligibility filter"
// @Param search query string false "Name search"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /staff [get]
func (h *StaffHandler) List(c *gin.Context) {
	filter := models.StaffFilter{
		Employment: c.Query("employment"),
		Search:     c.Query("search"),
		Page:       queryInt(c, "page"),
		PageSize:   queryInt(c, "page_size"),
	}
	if raw := c.Query("protocol_eligible"); raw != "" {
		if eligible, err := strconv.ParseBool(raw); err == nil {
			filter.ProtocolEligible = &eligible
		}
	}
	members, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, members, pagination)
}

// Get godoc
// @Summary Get staff member by ID
// @Tags Staff
// @Produce json
// @Param id path string true "Staff ID"
// @Success 200 {object} response.Envelope
// @Router /staff/{id} [get]
func (h *StaffHandler) Get(c *gin.Context) {
	member, err := h.service.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, member, nil)
}

// Update godoc
// @Summary Update staff member
// @Tags Staff
// @Accept json
// @Produce json
// @Param id path string true "Staff ID"
// @Param payload body dto.UpdateStaffRequest true "Staff payload"
// @Success 200 {object} response.Envelope
// @Router /staff/{id} [put]
func (h *StaffHandler) Update(c *gin.Context) {
	var req dto.UpdateStaffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid staff payload"))
		return
	}
	member, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, member, nil)
}

// UpdateAvailability godoc
// @Summary Replace availability override
// @Description An empty payload clears all restrictions
// @Tags Staff
// @Accept json
// @Produce json
// @Param id path string true "Staff ID"
// @Param payload body dto.UpdateAvailabilityRequest true "Availability payload"
// @Success 200 {object} response.Envelope
// @Router /staff/{id}/availability [put]
func (h *StaffHandler) UpdateAvailability(c *gin.Context) {
	var req dto.UpdateAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid availability payload"))
		return
	}
	member, err := h.service.UpdateAvailability(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, member, nil)
}

// CheckAvailability godoc
// @Summary What-if availability check
// @Tags Staff
// @Produce json
// @Param id path string true "Staff ID"
// @Param day query string true "Planning day"
// @Param startTime query string true "Start time HH:MM"
// @Param durationMinutes query int true "Duration in minutes"
// @Success 200 {object} response.Envelope
// @Router /staff/{id}/availability/check [get]
func (h *StaffHandler) CheckAvailability(c *gin.Context) {
	var req dto.AvailabilityCheckRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid availability query"))
		return
	}
	result, err := h.service.CheckAvailability(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Delete godoc
// @Summary Delete staff member
// @Tags Staff
// @Produce json
// @Param id path string true "Staff ID"
// @Success 204 {object} response.Envelope
// @Router /staff/{id} [delete]
func (h *StaffHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
