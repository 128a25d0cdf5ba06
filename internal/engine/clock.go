package engine

import (
	"fmt"
	"strconv"
	"strings"
)

// Clock is a time of day expressed as minutes since midnight. Using a value
// type instead of HH:MM strings keeps slot arithmetic free of parsing bugs;
// conversion happens only at the boundary.
type Clock int

// ParseClock converts an "HH:MM" string into a Clock.
func ParseClock(raw string) (Clock, error) {
	parts := strings.SplitN(strings.TrimSpace(raw), ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid clock value %q", raw)
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid clock value %q", raw)
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid clock value %q", raw)
	}
	if hours < 0 || hours > 23 || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("clock value %q out of range", raw)
	}
	return Clock(hours*60 + minutes), nil
}

// String renders the clock back into HH:MM notation.
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// Add returns the clock shifted by the given number of minutes.
func (c Clock) Add(minutes int) Clock {
	return c + Clock(minutes)
}

// overlaps reports whether two half-open intervals [aStart,aEnd) and
// [bStart,bEnd) intersect.
func overlaps(aStart, aEnd, bStart, bEnd Clock) bool {
	return aStart < bEnd && bStart < aEnd
}
