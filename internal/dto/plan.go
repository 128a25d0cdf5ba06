package dto

import "github.com/examdesk/colloquium-api/internal/models"

// CreateVersionRequest opens a new draft schedule version.
type CreateVersionRequest struct {
	Name string `json:"name" validate:"required,min=1,max=120"`
}

// PlanResponse returns a version together with its events and the diagnostics
// of the last planning run.
type PlanResponse struct {
	Version   models.ScheduleVersion  `json:"version"`
	Events    []models.ScheduledEvent `json:"events"`
	Conflicts []models.ConflictReport `json:"conflicts"`
}

// CancelEventRequest cancels one scheduled event.
type CancelEventRequest struct {
	Reason string `json:"reason" validate:"required,min=1,max=500"`
}

// RescheduleEventRequest moves one event to a new slot.
type RescheduleEventRequest struct {
	Day       string `json:"day" validate:"required"`
	Room      string `json:"room" validate:"required"`
	StartTime string `json:"startTime" validate:"required"`
}

// ChangeProtocolistRequest reassigns protocol duty for one event.
type ChangeProtocolistRequest struct {
	ProtocolistID string `json:"protocolistId" validate:"required"`
}
