package service

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/examdesk/colloquium-api/internal/dto"
	appErrors "github.com/examdesk/colloquium-api/pkg/errors"
)

func newTestSettingsService(settings *stubSettingsRepo) *SettingsService {
	return NewSettingsService(settings, validator.New(), nil, SchedulerOptions{})
}

func TestSettingsServiceUpdateScheduleConfig(t *testing.T) {
	settings := &stubSettingsRepo{}
	service := newTestSettingsService(settings)

	cfg, err := service.UpdateScheduleConfig(context.Background(), dto.UpdateScheduleConfigRequest{
		Days:            []string{"2026-06-01", "2026-06-02"},
		Rooms:           []string{"R1"},
		DayStart:        "08:00",
		DayEnd:          "18:00",
		BachelorMinutes: 50,
		MasterMinutes:   60,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, cfg.ID)
	assert.NotNil(t, settings.config)
}

func TestSettingsServiceUpdateRejectsInvertedWindow(t *testing.T) {
	service := newTestSettingsService(&stubSettingsRepo{})

	_, err := service.UpdateScheduleConfig(context.Background(), dto.UpdateScheduleConfigRequest{
		Days:            []string{"2026-06-01"},
		Rooms:           []string{"R1"},
		DayStart:        "18:00",
		DayEnd:          "08:00",
		BachelorMinutes: 50,
		MasterMinutes:   60,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSettingsServiceUpsertMappingRejectsUnknownRoom(t *testing.T) {
	settings := &stubSettingsRepo{config: planScheduleConfig()}
	service := newTestSettingsService(settings)

	_, err := service.UpsertRoomMapping(context.Background(), dto.RoomMappingRequest{
		CompetenceArea: "AI",
		Rooms:          []string{"R9"},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSettingsServiceUpsertAndDeleteMapping(t *testing.T) {
	settings := &stubSettingsRepo{config: planScheduleConfig()}
	service := newTestSettingsService(settings)

	mapping, err := service.UpsertRoomMapping(context.Background(), dto.RoomMappingRequest{
		CompetenceArea: "AI",
		Rooms:          []string{"R1", "R2"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, mapping.ID)

	require.NoError(t, service.DeleteRoomMapping(context.Background(), "AI"))
	err = service.DeleteRoomMapping(context.Background(), "AI")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
