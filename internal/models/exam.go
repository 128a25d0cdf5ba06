package models

import (
	"time"

	"github.com/lib/pq"
)

// Degree identifies the study programme an exam belongs to.
type Degree string

const (
	DegreeBachelor Degree = "BACHELOR"
	DegreeMaster   Degree = "MASTER"
)

// Exam represents one colloquium to be placed on the plan. Examiners are
// fixed inputs; the engine never reassigns them. Team fields are only set on
// synthetic exams produced by merging two singles.
type Exam struct {
	ID             string `db:"id" json:"id"`
	StudentName    string `db:"student_name" json:"student_name"`
	Degree         Degree `db:"degree" json:"degree"`
	CompetenceArea string `db:"competence_area" json:"competence_area,omitempty"`
	// Integrated marks cross-field work whose room preference follows the
	// primary examiner instead of the competence-area mapping.
	Integrated  bool   `db:"integrated" json:"integrated"`
	ExaminerAID string `db:"examiner_a_id" json:"examiner_a_id"`
	ExaminerBID string `db:"examiner_b_id" json:"examiner_b_id"`

	Team             bool           `db:"team" json:"team"`
	TeamExaminerIDs  pq.StringArray `db:"team_examiner_ids" json:"team_examiner_ids,omitempty"`
	TeamStudentNames pq.StringArray `db:"team_student_names" json:"team_student_names,omitempty"`
	DurationOverride *int           `db:"duration_override" json:"duration_override,omitempty"`
	MergedFromIDs    pq.StringArray `db:"merged_from_ids" json:"merged_from_ids,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ExamFilter captures filtering criteria for listing exams.
type ExamFilter struct {
	Degree         string
	CompetenceArea string
	Search         string
	Page           int
	PageSize       int
}

// EffectiveDuration returns the session length in minutes: the degree's base
// duration, doubled for team exams, unless an explicit override is set.
func (e *Exam) EffectiveDuration(baseByDegree map[Degree]int) int {
	if e.DurationOverride != nil && *e.DurationOverride > 0 {
		return *e.DurationOverride
	}
	base := baseByDegree[e.Degree]
	if e.Team {
		return base * 2
	}
	return base
}

// Examiners returns the examiner set for conflict checking: the team pool
// when present, otherwise the two fixed examiners.
func (e *Exam) Examiners() []string {
	if e.Team && len(e.TeamExaminerIDs) > 0 {
		return e.TeamExaminerIDs
	}
	return []string{e.ExaminerAID, e.ExaminerBID}
}

// FollowsExaminerRooms reports whether room eligibility is derived from the
// primary examiner's competence area rather than the exam's own.
func (e *Exam) FollowsExaminerRooms() bool {
	return e.Degree == DegreeMaster || e.Integrated
}
