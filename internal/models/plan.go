package models

import (
	"time"

	"github.com/lib/pq"
)

// ScheduleConfig holds the immutable-per-run planning parameters.
type ScheduleConfig struct {
	ID       string         `db:"id" json:"id"`
	Days     pq.StringArray `db:"days" json:"days"`
	Rooms    pq.StringArray `db:"rooms" json:"rooms"`
	DayStart string         `db:"day_start" json:"day_start"`
	DayEnd   string         `db:"day_end" json:"day_end"`
	// Base slot durations in minutes per degree.
	BachelorMinutes int `db:"bachelor_minutes" json:"bachelor_minutes"`
	MasterMinutes   int `db:"master_minutes" json:"master_minutes"`

	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Durations maps degrees to their base slot length.
func (c *ScheduleConfig) Durations() map[Degree]int {
	return map[Degree]int{
		DegreeBachelor: c.BachelorMinutes,
		DegreeMaster:   c.MasterMinutes,
	}
}

// RoomMapping binds a competence area to its ordered preferred rooms.
type RoomMapping struct {
	ID             string         `db:"id" json:"id"`
	CompetenceArea string         `db:"competence_area" json:"competence_area"`
	Rooms          pq.StringArray `db:"rooms" json:"rooms"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
}

// ScheduleVersionStatus is the lifecycle phase of a plan snapshot.
type ScheduleVersionStatus string

const (
	VersionStatusDraft     ScheduleVersionStatus = "DRAFT"
	VersionStatusPublished ScheduleVersionStatus = "PUBLISHED"
)

// ScheduleVersion is a named snapshot grouping scheduled events. At most one
// version is published at a time.
type ScheduleVersion struct {
	ID          string                `db:"id" json:"id"`
	Name        string                `db:"name" json:"name"`
	Status      ScheduleVersionStatus `db:"status" json:"status"`
	PublishedAt *time.Time            `db:"published_at" json:"published_at,omitempty"`
	CreatedAt   time.Time             `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time             `db:"updated_at" json:"updated_at"`
}

// EventStatus tracks whether an assignment still holds.
type EventStatus string

const (
	EventStatusScheduled EventStatus = "SCHEDULED"
	EventStatusCancelled EventStatus = "CANCELLED"
)

// ScheduledEvent is one committed (day, room, time) assignment for an exam,
// including the allocated protocolist. Team flag and duration mirror the exam
// for display without a join.
type ScheduledEvent struct {
	ID            string      `db:"id" json:"id"`
	VersionID     string      `db:"version_id" json:"version_id"`
	ExamID        string      `db:"exam_id" json:"exam_id"`
	Day           string      `db:"day" json:"day"`
	Room          string      `db:"room" json:"room"`
	StartTime     string      `db:"start_time" json:"start_time"`
	EndTime       string      `db:"end_time" json:"end_time"`
	ProtocolistID string      `db:"protocolist_id" json:"protocolist_id"`
	Status        EventStatus `db:"status" json:"status"`
	CancelReason  *string     `db:"cancel_reason" json:"cancel_reason,omitempty"`
	CancelledAt   *time.Time  `db:"cancelled_at" json:"cancelled_at,omitempty"`
	Team          bool        `db:"team" json:"team"`
	Duration      int         `db:"duration" json:"duration"`
	CreatedAt     time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time   `db:"updated_at" json:"updated_at"`
}

// Active reports whether the event still occupies its slot.
func (e *ScheduledEvent) Active() bool {
	return e.Status != EventStatusCancelled
}

// ConflictSeverity distinguishes blocking failures from advisories.
type ConflictSeverity string

const (
	SeverityError   ConflictSeverity = "ERROR"
	SeverityWarning ConflictSeverity = "WARNING"
)

// ConflictReport describes a scheduling failure or workload advisory
// produced by a planning run or a merge validation.
type ConflictReport struct {
	Severity ConflictSeverity `json:"severity"`
	Message  string           `json:"message"`
	ExamID   *string          `json:"exam_id,omitempty"`
	StaffID  *string          `json:"staff_id,omitempty"`
}

// ErrorReport builds an error-severity report.
func ErrorReport(message string, examID, staffID *string) ConflictReport {
	return ConflictReport{Severity: SeverityError, Message: message, ExamID: examID, StaffID: staffID}
}

// WarningReport builds a warning-severity report.
func WarningReport(message string, examID, staffID *string) ConflictReport {
	return ConflictReport{Severity: SeverityWarning, Message: message, ExamID: examID, StaffID: staffID}
}
