package models

import (
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"
)

// EmploymentKind classifies a staff member's contract.
type EmploymentKind string

const (
	EmploymentInternal EmploymentKind = "INTERNAL"
	EmploymentExternal EmploymentKind = "EXTERNAL"
	EmploymentAdjunct  EmploymentKind = "ADJUNCT"
)

// StaffMember is a schedulable person: examiner on exams and, when internal,
// a candidate for protocol duty.
type StaffMember struct {
	ID              string         `db:"id" json:"id"`
	Name            string         `db:"name" json:"name"`
	CompetenceAreas pq.StringArray `db:"competence_areas" json:"competence_areas"`
	Employment      EmploymentKind `db:"employment" json:"employment"`
	// ProtocolExcluded narrows protocol eligibility for internal staff.
	// External and adjunct staff are never eligible regardless of this flag.
	ProtocolExcluded bool           `db:"protocol_excluded" json:"protocol_excluded"`
	Availability     types.JSONText `db:"availability" json:"availability,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// StaffFilter captures filtering criteria for listing staff.
type StaffFilter struct {
	Employment       string
	ProtocolEligible *bool
	Search           string
	Page             int
	PageSize         int
}

// ProtocolEligible reports whether this person may hold protocol duty.
func (s *StaffMember) ProtocolEligible() bool {
	return s.Employment == EmploymentInternal && !s.ProtocolExcluded
}

// PrimaryCompetenceArea returns the first listed competence area.
func (s *StaffMember) PrimaryCompetenceArea() string {
	if len(s.CompetenceAreas) == 0 {
		return ""
	}
	return s.CompetenceAreas[0]
}

// HasCompetenceArea reports whether the member lists the given area.
func (s *StaffMember) HasCompetenceArea(area string) bool {
	if area == "" {
		return false
	}
	for _, a := range s.CompetenceAreas {
		if a == area {
			return true
		}
	}
	return false
}

// AvailabilityOverride decodes the stored override, returning nil when no
// override is present (fully available within the default window).
func (s *StaffMember) AvailabilityOverride() (*AvailabilityOverride, error) {
	if len(s.Availability) == 0 || string(s.Availability) == "null" {
		return nil, nil
	}
	var override AvailabilityOverride
	if err := json.Unmarshal(s.Availability, &override); err != nil {
		return nil, err
	}
	if override.IsEmpty() {
		return nil, nil
	}
	return &override, nil
}

// TimeWindow is a half-open [Start, End) clock range in HH:MM notation.
type TimeWindow struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// UnavailableBlock subtracts a time range on one calendar date.
type UnavailableBlock struct {
	Date   string `json:"date"`
	Start  string `json:"start"`
	End    string `json:"end"`
	Reason string `json:"reason,omitempty"`
}

// AvailabilityOverride restricts a staff member's default-open availability
// through three independent layers, each applied in order: a day whitelist,
// per-day time windows, and explicit unavailable blocks. Day keys match
// either an exact planning date or a 1-based day index.
type AvailabilityOverride struct {
	Days       []string                `json:"days,omitempty"`
	DayWindows map[string][]TimeWindow `json:"day_windows,omitempty"`
	Blocks     []UnavailableBlock      `json:"blocks,omitempty"`
}

// IsEmpty reports whether the override restricts nothing.
func (o *AvailabilityOverride) IsEmpty() bool {
	return o == nil || (len(o.Days) == 0 && len(o.DayWindows) == 0 && len(o.Blocks) == 0)
}
