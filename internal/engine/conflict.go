package engine

import (
	"sort"

	"github.com/examdesk/colloquium-api/internal/models"
)

// eventInvolvesStaff reports whether the staff member takes part in the event,
// as examiner on the underlying exam or as its protocolist.
func eventInvolvesStaff(ev *models.ScheduledEvent, staffID string, examsByID map[string]*models.Exam) bool {
	if ev.ProtocolistID == staffID {
		return true
	}
	if exam := examsByID[ev.ExamID]; exam != nil {
		for _, id := range exam.Examiners() {
			if id == staffID {
				return true
			}
		}
	}
	return false
}

// hasOverlappingDuty reports whether the staff member already holds any duty,
// examiner or protocolist, overlapping [start, end) on the given day.
func hasOverlappingDuty(staffID, day string, start, end Clock, events []models.ScheduledEvent, examsByID map[string]*models.Exam, exclude map[string]bool) bool {
	for i := range events {
		ev := &events[i]
		if ev.Day != day || !ev.Active() || exclude[ev.ID] {
			continue
		}
		if !eventInvolvesStaff(ev, staffID, examsByID) {
			continue
		}
		evStart, err1 := ParseClock(ev.StartTime)
		evEnd, err2 := ParseClock(ev.EndTime)
		if err1 != nil || err2 != nil {
			continue
		}
		if overlaps(start, end, evStart, evEnd) {
			return true
		}
	}
	return false
}

// roomBlocked reports whether the room already hosts an event within
// bufferMinutes of [start, end) on the given day. A zero buffer degrades to a
// plain overlap test.
func roomBlocked(room, day string, start, end Clock, bufferMinutes int, events []models.ScheduledEvent, exclude map[string]bool) bool {
	buffer := Clock(bufferMinutes)
	for i := range events {
		ev := &events[i]
		if ev.Day != day || ev.Room != room || !ev.Active() || exclude[ev.ID] {
			continue
		}
		evStart, err1 := ParseClock(ev.StartTime)
		evEnd, err2 := ParseClock(ev.EndTime)
		if err1 != nil || err2 != nil {
			continue
		}
		if overlaps(start, end+buffer, evStart, evEnd+buffer) {
			return true
		}
	}
	return false
}

// staffDayPresence reports whether the staff member already appears in any
// active event on the given day.
func staffDayPresence(staffID, day string, events []models.ScheduledEvent, examsByID map[string]*models.Exam) bool {
	for i := range events {
		ev := &events[i]
		if ev.Day != day || !ev.Active() {
			continue
		}
		if eventInvolvesStaff(ev, staffID, examsByID) {
			return true
		}
	}
	return false
}

// session is one time-ordered engagement of a staff member within a day.
type session struct {
	start Clock
	end   Clock
}

// staffSessions collects the staff member's active same-day engagements,
// sorted by start time.
func staffSessions(staffID, day string, events []models.ScheduledEvent, examsByID map[string]*models.Exam, exclude map[string]bool) []session {
	var sessions []session
	for i := range events {
		ev := &events[i]
		if ev.Day != day || !ev.Active() || exclude[ev.ID] {
			continue
		}
		if !eventInvolvesStaff(ev, staffID, examsByID) {
			continue
		}
		start, err1 := ParseClock(ev.StartTime)
		end, err2 := ParseClock(ev.EndTime)
		if err1 != nil || err2 != nil {
			continue
		}
		sessions = append(sessions, session{start: start, end: end})
	}
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].start < sessions[j].start })
	return sessions
}
