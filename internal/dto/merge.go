package dto

import "github.com/examdesk/colloquium-api/internal/models"

// MergeSlotRequest asks whether two single sessions can be combined into one
// team session at the given slot.
type MergeSlotRequest struct {
	SourceEventIDs []string `json:"sourceEventIds" validate:"required,len=2"`
	Day            string   `json:"day" validate:"required"`
	Room           string   `json:"room" validate:"required"`
	StartTime      string   `json:"startTime" validate:"required"`
	// ProtocolistID optionally pins the protocolist for the merged session;
	// empty keeps the first source event's protocolist.
	ProtocolistID string `json:"protocolistId"`
}

// MergeValidationResponse reports the outcome of a merge validation.
type MergeValidationResponse struct {
	Valid     bool                    `json:"valid"`
	Conflicts []models.ConflictReport `json:"conflicts"`
	Warnings  []models.ConflictReport `json:"warnings"`
}

// MergeAlternativesResponse lists alternative valid slots for the merge.
type MergeAlternativesResponse struct {
	Options []MergeSlotOption `json:"options"`
}

// MergeSlotOption is one alternative placement offered to the user.
type MergeSlotOption struct {
	Day       string                  `json:"day"`
	Room      string                  `json:"room"`
	StartTime string                  `json:"startTime"`
	EndTime   string                  `json:"endTime"`
	Warnings  []models.ConflictReport `json:"warnings,omitempty"`
}

// MergeCommitResponse returns the merged event, the synthetic team exam, and
// the event the post-merge repair moved, if any.
type MergeCommitResponse struct {
	Exam       models.Exam             `json:"exam"`
	Event      models.ScheduledEvent   `json:"event"`
	MovedEvent *models.ScheduledEvent  `json:"movedEvent,omitempty"`
	Warnings   []models.ConflictReport `json:"warnings,omitempty"`
}
