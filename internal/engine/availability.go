package engine

import (
	"strconv"

	"github.com/examdesk/colloquium-api/internal/models"
)

// Available evaluates the default-open-then-override availability model for
// the half-open window [start, end) on the given planning day. A nil override
// means fully available within the default working window. The three override
// layers apply in order: day whitelist, per-day time windows, unavailable
// blocks. Day keys match either the exact date or the 1-based day index.
func Available(override *models.AvailabilityOverride, day string, dayIndex int, start, end Clock) bool {
	if override.IsEmpty() {
		return true
	}

	if len(override.Days) > 0 && !matchesDay(override.Days, day, dayIndex) {
		return false
	}

	if windows := windowsForDay(override.DayWindows, day, dayIndex); len(windows) > 0 {
		if !fitsAnyWindow(windows, start, end) {
			return false
		}
	}

	for _, block := range override.Blocks {
		if block.Date != day {
			continue
		}
		blockStart, err1 := ParseClock(block.Start)
		blockEnd, err2 := ParseClock(block.End)
		if err1 != nil || err2 != nil {
			continue
		}
		if overlaps(start, end, blockStart, blockEnd) {
			return false
		}
	}

	return true
}

// StaffAvailable is the roster-level variant used by the planner.
func (r *Roster) StaffAvailable(staffID, day string, start, end Clock, cfg Config) bool {
	return Available(r.Override(staffID), day, cfg.DayIndex(day), start, end)
}

// UnavailableAllDay reports whether the staff member has no availability at
// all within the configured working window on the given day. Partial
// restrictions (time windows, short blocks) do not count.
func (r *Roster) UnavailableAllDay(staffID, day string, cfg Config) bool {
	override := r.Override(staffID)
	if override.IsEmpty() {
		return false
	}
	if len(override.Days) > 0 && !matchesDay(override.Days, day, cfg.DayIndex(day)) {
		return true
	}
	for _, block := range override.Blocks {
		if block.Date != day {
			continue
		}
		blockStart, err1 := ParseClock(block.Start)
		blockEnd, err2 := ParseClock(block.End)
		if err1 != nil || err2 != nil {
			continue
		}
		if blockStart <= cfg.DayStart && blockEnd >= cfg.DayEnd {
			return true
		}
	}
	return false
}

// IsStaffAvailableForSlot answers the what-if question exposed to the UI:
// can this person be booked on the given day starting at startTime for
// durationMinutes?
func IsStaffAvailableForSlot(staff *models.StaffMember, day string, startTime string, durationMinutes int, cfg Config) (bool, error) {
	override, err := staff.AvailabilityOverride()
	if err != nil {
		return false, err
	}
	start, err := ParseClock(startTime)
	if err != nil {
		return false, err
	}
	end := start.Add(durationMinutes)
	if start < cfg.DayStart || end > cfg.DayEnd {
		return false, nil
	}
	return Available(override, day, cfg.DayIndex(day), start, end), nil
}

func matchesDay(days []string, day string, dayIndex int) bool {
	for _, entry := range days {
		if entry == day {
			return true
		}
		if idx, err := strconv.Atoi(entry); err == nil && dayIndex > 0 && idx == dayIndex {
			return true
		}
	}
	return false
}

func windowsForDay(windows map[string][]models.TimeWindow, day string, dayIndex int) []models.TimeWindow {
	if len(windows) == 0 {
		return nil
	}
	result := append([]models.TimeWindow(nil), windows[day]...)
	if dayIndex > 0 {
		result = append(result, windows[strconv.Itoa(dayIndex)]...)
	}
	return result
}

func fitsAnyWindow(windows []models.TimeWindow, start, end Clock) bool {
	for _, w := range windows {
		winStart, err1 := ParseClock(w.Start)
		winEnd, err2 := ParseClock(w.End)
		if err1 != nil || err2 != nil {
			continue
		}
		if start >= winStart && end <= winEnd {
			return true
		}
	}
	return false
}
