package engine

import (
	"sort"

	"github.com/examdesk/colloquium-api/internal/models"
)

// LoadStats carries the running per-staff assignment counters the protocolist
// score reads. The planner treats it as read-only while evaluating a
// candidate slot and commits via Record only after the slot is accepted, so a
// rejected attempt leaves no trace.
type LoadStats struct {
	total       map[string]int
	protocol    map[string]int
	supervision map[string]int
	days        map[string]map[string]bool
}

// NewLoadStats returns empty counters.
func NewLoadStats() *LoadStats {
	return &LoadStats{
		total:       make(map[string]int),
		protocol:    make(map[string]int),
		supervision: make(map[string]int),
		days:        make(map[string]map[string]bool),
	}
}

// LoadStatsFromEvents rebuilds counters from an existing event snapshot,
// counting only active events.
func LoadStatsFromEvents(events []models.ScheduledEvent, examsByID map[string]*models.Exam) *LoadStats {
	s := NewLoadStats()
	for i := range events {
		ev := &events[i]
		if !ev.Active() {
			continue
		}
		exam := examsByID[ev.ExamID]
		if exam == nil {
			continue
		}
		s.Record(exam, ev.ProtocolistID, ev.Day)
	}
	return s
}

// Record commits one accepted assignment into the counters.
func (s *LoadStats) Record(exam *models.Exam, protocolistID, day string) {
	for _, id := range exam.Examiners() {
		s.total[id]++
		s.supervision[id]++
		s.markDay(id, day)
	}
	if protocolistID != "" {
		s.total[protocolistID]++
		s.protocol[protocolistID]++
		s.markDay(protocolistID, day)
	}
}

// ProtocolCount returns the number of protocol duties held so far.
func (s *LoadStats) ProtocolCount(staffID string) int {
	return s.protocol[staffID]
}

func (s *LoadStats) markDay(staffID, day string) {
	if s.days[staffID] == nil {
		s.days[staffID] = make(map[string]bool)
	}
	s.days[staffID][day] = true
}

func (s *LoadStats) averageTotal(roster *Roster) float64 {
	ids := roster.IDs()
	if len(ids) == 0 {
		return 0
	}
	sum := 0
	for _, id := range ids {
		sum += s.total[id]
	}
	return float64(sum) / float64(len(ids))
}

// score ranks a candidate for protocol duty, lower is better. It balances
// total workload against the roster average, protocol-specific load, and day
// spread, with a mild bonus for topical affinity with the exam.
func (s *LoadStats) score(member *models.StaffMember, exam *models.Exam, day string, avg float64) float64 {
	id := member.ID
	score := 3*(float64(s.total[id])-avg) + 1.5*float64(s.protocol[id])
	if s.supervision[id] < 3 {
		score -= 2
	}
	if !s.days[id][day] && s.total[id] > 2 {
		score += 2
	}
	score += 0.3 * float64(len(s.days[id]))
	if member.HasCompetenceArea(exam.CompetenceArea) {
		score -= 1
	}
	return score
}

// SelectProtocolist returns the lowest-scoring eligible candidate, or nil
// when the eligible set is empty. Ties break on staff ID so repeated runs
// pick the same person.
func SelectProtocolist(eligible []*models.StaffMember, stats *LoadStats, roster *Roster, exam *models.Exam, day string) *models.StaffMember {
	if len(eligible) == 0 {
		return nil
	}
	avg := stats.averageTotal(roster)
	ranked := append([]*models.StaffMember(nil), eligible...)
	sort.SliceStable(ranked, func(i, j int) bool {
		si := stats.score(ranked[i], exam, day, avg)
		sj := stats.score(ranked[j], exam, day, avg)
		if si != sj {
			return si < sj
		}
		return ranked[i].ID < ranked[j].ID
	})
	return ranked[0]
}
