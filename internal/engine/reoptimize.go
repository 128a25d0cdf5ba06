package engine

import "github.com/examdesk/colloquium-api/internal/models"

// FreedSlot identifies the gap a merge left behind.
type FreedSlot struct {
	Day       string
	Room      string
	StartTime string
}

// ReoptimizeAfterMerge tries to close the gap a merge freed: it takes the
// first active event in the same room and day starting after the freed slot
// and, if moving it to start exactly at the freed start passes the full merge
// validation for its own staff set, returns a copy of that event with the new
// times. Nothing is moved when the first candidate fails; there is no
// cascading. The caller persists the returned event.
func ReoptimizeAfterMerge(freed FreedSlot, events []models.ScheduledEvent, examsByID map[string]*models.Exam, roster *Roster, cfg Config) (*models.ScheduledEvent, error) {
	freedStart, err := ParseClock(freed.StartTime)
	if err != nil {
		return nil, err
	}

	var candidate *models.ScheduledEvent
	var candidateStart Clock
	for i := range events {
		ev := &events[i]
		if ev.Day != freed.Day || ev.Room != freed.Room || !ev.Active() {
			continue
		}
		start, err := ParseClock(ev.StartTime)
		if err != nil || start <= freedStart {
			continue
		}
		if candidate == nil || start < candidateStart {
			candidate, candidateStart = ev, start
		}
	}
	if candidate == nil {
		return nil, nil
	}

	exam := examsByID[candidate.ExamID]
	if exam == nil {
		return nil, nil
	}
	req := MergeRequest{
		Day:             freed.Day,
		Room:            freed.Room,
		StartTime:       freed.StartTime,
		DurationMinutes: candidate.Duration,
		ExaminerIDs:     exam.Examiners(),
		ProtocolistID:   candidate.ProtocolistID,
		ExcludeEventIDs: []string{candidate.ID},
	}
	v, err := ValidateMergeSlot(req, events, examsByID, roster, cfg)
	if err != nil {
		return nil, err
	}
	if !v.Valid {
		return nil, nil
	}

	moved := *candidate
	moved.StartTime = freedStart.String()
	moved.EndTime = freedStart.Add(candidate.Duration).String()
	return &moved, nil
}
