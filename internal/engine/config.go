package engine

import (
	"fmt"

	"github.com/examdesk/colloquium-api/internal/models"
)

// Engine defaults. Each knob can be overridden through Config; they are kept
// here as named constants rather than scattered magic numbers.
const (
	DefaultBreakMinutes        = 45
	DefaultGapToleranceMinutes = 5
	DefaultMaxConsecutive      = 4
	DefaultRoomBufferMinutes   = 5
	DefaultScanStepMinutes     = 5
	DefaultMergeStepMinutes    = 30
	DefaultMaxAlternatives     = 5
)

// Config holds the parsed, immutable-per-run planning parameters.
type Config struct {
	Days      []string
	Rooms     []string
	DayStart  Clock
	DayEnd    Clock
	Durations map[models.Degree]int

	// Break rule: after MaxConsecutive chained sessions a person needs
	// BreakMinutes of rest; gaps up to GapToleranceMinutes still count as
	// consecutive.
	BreakMinutes        int
	GapToleranceMinutes int
	MaxConsecutive      int

	// RoomBufferMinutes is the minimum idle time between two sessions in the
	// same room.
	RoomBufferMinutes int

	ScanStepMinutes  int
	MergeStepMinutes int
	MaxAlternatives  int
}

// Overrides adjusts engine defaults from the host configuration; zero values
// keep the defaults.
type Overrides struct {
	BreakMinutes        int
	GapToleranceMinutes int
	MaxConsecutive      int
	ScanStepMinutes     int
	MergeStepMinutes    int
	MaxAlternatives     int
}

// NewConfig parses the stored schedule configuration into engine form and
// applies defaults for all unset knobs.
func NewConfig(sc models.ScheduleConfig, ov Overrides) (Config, error) {
	if len(sc.Days) == 0 {
		return Config{}, fmt.Errorf("schedule config has no planning days")
	}
	if len(sc.Rooms) == 0 {
		return Config{}, fmt.Errorf("schedule config has no rooms")
	}

	start, err := ParseClock(sc.DayStart)
	if err != nil {
		return Config{}, fmt.Errorf("day start: %w", err)
	}
	end, err := ParseClock(sc.DayEnd)
	if err != nil {
		return Config{}, fmt.Errorf("day end: %w", err)
	}
	if end <= start {
		return Config{}, fmt.Errorf("day end %s not after day start %s", end, start)
	}

	cfg := Config{
		Days:                append([]string(nil), sc.Days...),
		Rooms:               append([]string(nil), sc.Rooms...),
		DayStart:            start,
		DayEnd:              end,
		Durations:           sc.Durations(),
		BreakMinutes:        orDefault(ov.BreakMinutes, DefaultBreakMinutes),
		GapToleranceMinutes: orDefault(ov.GapToleranceMinutes, DefaultGapToleranceMinutes),
		MaxConsecutive:      orDefault(ov.MaxConsecutive, DefaultMaxConsecutive),
		RoomBufferMinutes:   DefaultRoomBufferMinutes,
		ScanStepMinutes:     orDefault(ov.ScanStepMinutes, DefaultScanStepMinutes),
		MergeStepMinutes:    orDefault(ov.MergeStepMinutes, DefaultMergeStepMinutes),
		MaxAlternatives:     orDefault(ov.MaxAlternatives, DefaultMaxAlternatives),
	}
	return cfg, nil
}

// DayIndex returns the 1-based position of the day in the planning range, or
// 0 when the day is not part of it.
func (c Config) DayIndex(day string) int {
	for i, d := range c.Days {
		if d == day {
			return i + 1
		}
	}
	return 0
}

func orDefault(value, fallback int) int {
	if value > 0 {
		return value
	}
	return fallback
}
