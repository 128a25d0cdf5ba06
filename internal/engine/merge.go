package engine

import (
	"fmt"

	"github.com/examdesk/colloquium-api/internal/models"
)

// MergeRequest describes one candidate slot for a merged team session.
type MergeRequest struct {
	Day             string
	Room            string
	StartTime       string
	DurationMinutes int
	// ExaminerIDs is the combined pool of the two source exams, at most four.
	ExaminerIDs   []string
	ProtocolistID string
	// ExcludeEventIDs lists the source events being replaced so they do not
	// count as conflicts against their own successor.
	ExcludeEventIDs []string
}

// MergeValidation is the outcome of checking one candidate slot. Conflicts
// are hard failures; warnings (break-rule strain) are informational.
type MergeValidation struct {
	Valid     bool
	Conflicts []models.ConflictReport
	Warnings  []models.ConflictReport
}

// MergeSlotOption is one alternative placement for a merged session.
type MergeSlotOption struct {
	Day       string
	Room      string
	StartTime string
	EndTime   string
	Warnings  []models.ConflictReport
}

// ValidateMergeSlot checks whether the merged session fits the requested
// slot: the window must end within the working day, the room must be free,
// and every examiner (and the protocolist, when given) must be available with
// no overlapping duty. Break-rule strain is reported as warnings only.
func ValidateMergeSlot(req MergeRequest, events []models.ScheduledEvent, examsByID map[string]*models.Exam, roster *Roster, cfg Config) (MergeValidation, error) {
	start, err := ParseClock(req.StartTime)
	if err != nil {
		return MergeValidation{}, err
	}
	end := start.Add(req.DurationMinutes)
	exclude := toSet(req.ExcludeEventIDs)

	var v MergeValidation
	if end > cfg.DayEnd {
		v.Conflicts = append(v.Conflicts, models.ErrorReport(
			fmt.Sprintf("merged session would run until %s, past the end of the working day", end), nil, nil))
	}
	if roomBlocked(req.Room, req.Day, start, end, 0, events, exclude) {
		v.Conflicts = append(v.Conflicts, models.ErrorReport(
			fmt.Sprintf("room %s is occupied in the requested window", req.Room), nil, nil))
	}

	involved := append([]string(nil), req.ExaminerIDs...)
	if req.ProtocolistID != "" {
		involved = append(involved, req.ProtocolistID)
	}
	for _, id := range involved {
		staffID := id
		if !roster.StaffAvailable(staffID, req.Day, start, end, cfg) {
			v.Conflicts = append(v.Conflicts, models.ErrorReport(
				fmt.Sprintf("%s is unavailable in the requested window", staffName(roster, staffID)), nil, &staffID))
			continue
		}
		if hasOverlappingDuty(staffID, req.Day, start, end, events, examsByID, exclude) {
			v.Conflicts = append(v.Conflicts, models.ErrorReport(
				fmt.Sprintf("%s already has an overlapping duty", staffName(roster, staffID)), nil, &staffID))
		}
	}
	for _, id := range involved {
		staffID := id
		if !RespectsBreakRule(staffID, req.Day, start, events, examsByID, exclude, cfg) {
			v.Warnings = append(v.Warnings, models.WarningReport(
				fmt.Sprintf("%s would sit a fifth session without the required break", staffName(roster, staffID)), nil, &staffID))
		}
	}

	v.Valid = len(v.Conflicts) == 0
	return v, nil
}

// FindAlternativeMergeSlots scans every (day, room, time) combination in
// cfg.MergeStepMinutes increments, preferring preferredDay first, and returns
// up to cfg.MaxAlternatives slots where the merge validates.
func FindAlternativeMergeSlots(req MergeRequest, preferredDay string, events []models.ScheduledEvent, examsByID map[string]*models.Exam, roster *Roster, cfg Config) ([]MergeSlotOption, error) {
	days := make([]string, 0, len(cfg.Days))
	if cfg.DayIndex(preferredDay) > 0 {
		days = append(days, preferredDay)
	}
	for _, day := range cfg.Days {
		if day != preferredDay {
			days = append(days, day)
		}
	}

	var options []MergeSlotOption
	for _, day := range days {
		for _, room := range cfg.Rooms {
			for start := cfg.DayStart; start.Add(req.DurationMinutes) <= cfg.DayEnd; start = start.Add(cfg.MergeStepMinutes) {
				candidate := req
				candidate.Day = day
				candidate.Room = room
				candidate.StartTime = start.String()
				v, err := ValidateMergeSlot(candidate, events, examsByID, roster, cfg)
				if err != nil {
					return nil, err
				}
				if !v.Valid {
					continue
				}
				options = append(options, MergeSlotOption{
					Day:       day,
					Room:      room,
					StartTime: start.String(),
					EndTime:   start.Add(req.DurationMinutes).String(),
					Warnings:  v.Warnings,
				})
				if len(options) >= cfg.MaxAlternatives {
					return options, nil
				}
			}
		}
	}
	return options, nil
}

func staffName(roster *Roster, id string) string {
	if member := roster.Get(id); member != nil {
		return member.Name
	}
	return id
}

func toSet(ids []string) map[string]bool {
	if len(ids) == 0 {
		return nil
	}
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
