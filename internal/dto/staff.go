package dto

import "github.com/examdesk/colloquium-api/internal/models"

// CreateStaffRequest registers one staff member.
type CreateStaffRequest struct {
	Name             string   `json:"name" validate:"required,min=1,max=200"`
	CompetenceAreas  []string `json:"competenceAreas"`
	Employment       string   `json:"employment" validate:"required,oneof=INTERNAL EXTERNAL ADJUNCT"`
	ProtocolExcluded bool     `json:"protocolExcluded"`
}

// UpdateStaffRequest mutates the editable staff fields.
type UpdateStaffRequest struct {
	Name             *string  `json:"name" validate:"omitempty,min=1,max=200"`
	CompetenceAreas  []string `json:"competenceAreas"`
	Employment       *string  `json:"employment" validate:"omitempty,oneof=INTERNAL EXTERNAL ADJUNCT"`
	ProtocolExcluded *bool    `json:"protocolExcluded"`
}

// UpdateAvailabilityRequest replaces a staff member's availability override.
// An empty override clears all restrictions.
type UpdateAvailabilityRequest struct {
	Days       []string                       `json:"days"`
	DayWindows map[string][]models.TimeWindow `json:"dayWindows"`
	Blocks     []models.UnavailableBlock      `json:"blocks"`
}

// AvailabilityCheckRequest is the what-if question: can this person be booked
// on the given day, start time, and duration?
type AvailabilityCheckRequest struct {
	Day             string `form:"day" json:"day" validate:"required"`
	StartTime       string `form:"startTime" json:"startTime" validate:"required"`
	DurationMinutes int    `form:"durationMinutes" json:"durationMinutes" validate:"required,min=5,max=480"`
}

// AvailabilityCheckResponse answers the what-if question.
type AvailabilityCheckResponse struct {
	StaffID   string `json:"staffId"`
	Day       string `json:"day"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Available bool   `json:"available"`
}
