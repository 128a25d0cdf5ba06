package engine

import "github.com/examdesk/colloquium-api/internal/models"

// RespectsBreakRule enforces the consecutive-session rule: after
// cfg.MaxConsecutive chained sessions a person needs cfg.BreakMinutes of rest
// before the next one. Two sessions chain when the gap between them is at
// most cfg.GapToleranceMinutes; a gap of cfg.BreakMinutes or more resets the
// chain, and anything in between starts a fresh chain of one.
//
// Only the staff member's active same-day sessions starting strictly before
// candidateStart are folded. Events listed in exclude are ignored.
func RespectsBreakRule(staffID, day string, candidateStart Clock, events []models.ScheduledEvent, examsByID map[string]*models.Exam, exclude map[string]bool, cfg Config) bool {
	sessions := staffSessions(staffID, day, events, examsByID, exclude)

	consecutive := 0
	var lastEnd Clock
	for _, s := range sessions {
		if s.start >= candidateStart {
			continue
		}
		switch {
		case consecutive == 0:
			consecutive = 1
		case int(s.start-lastEnd) >= cfg.BreakMinutes:
			consecutive = 1
		case int(s.start-lastEnd) <= cfg.GapToleranceMinutes:
			consecutive++
		default:
			consecutive = 1
		}
		lastEnd = s.end
	}

	if consecutive >= cfg.MaxConsecutive && int(candidateStart-lastEnd) < cfg.BreakMinutes {
		return false
	}
	return true
}
