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

type settingsService interface {
	GetScheduleConfig(ctx context.Context) (*models.ScheduleConfig, error)
	UpdateScheduleConfig(ctx context.Context, req dto.UpdateScheduleConfigRequest) (*models.ScheduleConfig, error)
	ListRoomMappings(ctx context.Context) ([]models.RoomMapping, error)
	UpsertRoomMapping(ctx context.Context, req dto.RoomMappingRequest) (*models.RoomMapping, error)
	DeleteRoomMapping(ctx context.Context, competenceArea string) error
}

// SettingsHandler exposes planning parameter endpoints.
type SettingsHandler struct {
	service settingsService
}

// NewSettingsHandler builds a new handler.
func NewSettingsHandler(service settingsService) *SettingsHandler {
	return &SettingsHandler{service: service}
}

// GetScheduleConfig godoc
// @Summary Get planning parameters
// @Tags Settings
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /settings/schedule [get]
func (h *SettingsHandler) GetScheduleConfig(c *gin.Context) {
	cfg, err := h.service.GetScheduleConfig(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cfg, nil)
}

// UpdateScheduleConfig godoc
// @Summary Replace planning parameters
// @Tags Settings
// @Accept json
// @Produce json
// @Param payload body dto.UpdateScheduleConfigRequest true "Config payload"
// @Success 200 {object} response.Envelope
// @Router /settings/schedule [put]
func (h *SettingsHandler) UpdateScheduleConfig(c *gin.Context) {
	var req dto.UpdateScheduleConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid config payload"))
		return
	}
	cfg, err := h.service.UpdateScheduleConfig(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cfg, nil)
}

// ListRoomMappings godoc
// @Summary List room mappings
// @Tags Settings
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /settings/rooms [get]
func (h *SettingsHandler) ListRoomMappings(c *gin.Context) {
	mappings, err := h.service.ListRoomMappings(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, mappings, nil)
}

// UpsertRoomMapping godoc
// @Summary Create or replace a room mapping
// @Tags Settings
// @Accept json
// @Produce json
// @Param payload body dto.RoomMappingRequest true "Mapping payload"
// @Success 200 {object} response.Envelope
// @Router /settings/rooms [put]
func (h *SettingsHandler) UpsertRoomMapping(c *gin.Context) {
	var req dto.RoomMappingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid mapping payload"))
		return
	}
	mapping, err := h.service.UpsertRoomMapping(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, mapping, nil)
}

// DeleteRoomMapping godoc
// @Summary Delete a room mapping
// @Tags Settings
// @Produce json
// @Param area path string true "Competence area"
// @Success 204 {object} response.Envelope
// @Router /settings/rooms/{area} [delete]
func (h *SettingsHandler) DeleteRoomMapping(c *gin.Context) {
	if err := h.service.DeleteRoomMapping(c.Request.Context(), c.Param("area")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
