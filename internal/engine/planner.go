package engine

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/examdesk/colloquium-api/internal/models"
)

// Result is the outcome of one full planning run: the committed events plus
// the diagnostics for everything that could not be placed or looks unhealthy.
type Result struct {
	Events    []models.ScheduledEvent
	Conflicts []models.ConflictReport
}

// GenerateSchedule computes a full plan for the given version. It attempts
// every exam, never aborts on an unplaceable one, and returns partial results
// together with error and warning reports. The run is deterministic for
// identical inputs apart from generated event ids.
func GenerateSchedule(exams []models.Exam, staff []models.StaffMember, mappings []models.RoomMapping, cfg Config, versionID string) (Result, error) {
	roster, err := NewRoster(staff)
	if err != nil {
		return Result{}, err
	}

	examsByID := make(map[string]*models.Exam, len(exams))
	for i := range exams {
		examsByID[exams[i].ID] = &exams[i]
	}

	p := &planner{
		cfg:       cfg,
		roster:    roster,
		mappings:  mappings,
		examsByID: examsByID,
		stats:     NewLoadStats(),
		versionID: versionID,
	}

	for _, exam := range orderExams(exams) {
		p.place(exam)
	}
	p.summarize()

	return Result{Events: p.events, Conflicts: p.conflicts}, nil
}

// orderExams sorts exams so master colloquia are placed first to front-load
// the days, then by descending combined examiner load so heavily booked
// examiners get first pick of slots, then by competence area for room
// locality. The final ID tie-break keeps runs reproducible.
func orderExams(exams []models.Exam) []*models.Exam {
	load := make(map[string]int)
	for i := range exams {
		for _, id := range exams[i].Examiners() {
			load[id]++
		}
	}
	combined := func(e *models.Exam) int {
		sum := 0
		for _, id := range e.Examiners() {
			sum += load[id]
		}
		return sum
	}

	ordered := make([]*models.Exam, len(exams))
	for i := range exams {
		ordered[i] = &exams[i]
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if (a.Degree == models.DegreeMaster) != (b.Degree == models.DegreeMaster) {
			return a.Degree == models.DegreeMaster
		}
		if ca, cb := combined(a), combined(b); ca != cb {
			return ca > cb
		}
		if a.CompetenceArea != b.CompetenceArea {
			return a.CompetenceArea < b.CompetenceArea
		}
		return a.ID < b.ID
	})
	return ordered
}

type planner struct {
	cfg       Config
	roster    *Roster
	mappings  []models.RoomMapping
	examsByID map[string]*models.Exam
	stats     *LoadStats
	versionID string

	events    []models.ScheduledEvent
	conflicts []models.ConflictReport
}

// place searches (day x room x time) for the first slot satisfying every
// constraint and commits it, or records an error report.
func (p *planner) place(exam *models.Exam) {
	duration := exam.EffectiveDuration(p.cfg.Durations)
	if duration <= 0 {
		p.conflicts = append(p.conflicts, models.ErrorReport(
			fmt.Sprintf("no base duration configured for %s colloquium of %s", exam.Degree, exam.StudentName),
			&exam.ID, nil))
		return
	}

	rooms := RoomsForExam(exam, p.mappings, p.roster, p.cfg)
	if len(rooms) == 0 {
		p.conflicts = append(p.conflicts, models.ErrorReport(
			fmt.Sprintf("no eligible room for colloquium of %s", exam.StudentName),
			&exam.ID, nil))
		return
	}

	examiners := exam.Examiners()
	// blockedBy tallies which staff member caused candidate rejections so an
	// unplaceable exam can name the likeliest blocker.
	blockedBy := make(map[string]int)

	for _, day := range p.orderDays(examiners) {
		if p.skipDay(examiners, day, blockedBy) {
			continue
		}
		for _, room := range rooms {
			for start := p.cfg.DayStart; start.Add(duration) <= p.cfg.DayEnd; start = start.Add(p.cfg.ScanStepMinutes) {
				end := start.Add(duration)
				if roomBlocked(room, day, start, end, p.cfg.RoomBufferMinutes, p.events, nil) {
					continue
				}
				if !p.examinersFree(examiners, day, start, end, blockedBy) {
					continue
				}
				protocolist := p.pickProtocolist(exam, day, start, end)
				if protocolist == nil {
					continue
				}
				if !RespectsBreakRule(protocolist.ID, day, start, p.events, p.examsByID, nil, p.cfg) {
					blockedBy[protocolist.ID]++
					continue
				}
				p.commit(exam, protocolist, day, room, start, end, duration)
				return
			}
		}
	}

	p.conflicts = append(p.conflicts, models.ErrorReport(
		fmt.Sprintf("no slot found for colloquium of %s", exam.StudentName),
		&exam.ID, topBlocker(blockedBy)))
}

// orderDays prefers days where either examiner already appears, so examiners
// travel in on as few distinct days as possible, and otherwise keeps the
// configured day order.
func (p *planner) orderDays(examiners []string) []string {
	days := append([]string(nil), p.cfg.Days...)
	presence := make(map[string]bool, len(days))
	for _, day := range days {
		for _, id := range examiners {
			if staffDayPresence(id, day, p.events, p.examsByID) {
				presence[day] = true
				break
			}
		}
	}
	sort.SliceStable(days, func(i, j int) bool {
		if presence[days[i]] != presence[days[j]] {
			return presence[days[i]]
		}
		return p.cfg.DayIndex(days[i]) < p.cfg.DayIndex(days[j])
	})
	return days
}

// skipDay rejects the whole day when any examiner has no availability at all
// within the working window.
func (p *planner) skipDay(examiners []string, day string, blockedBy map[string]int) bool {
	for _, id := range examiners {
		if p.roster.UnavailableAllDay(id, day, p.cfg) {
			blockedBy[id]++
			return true
		}
	}
	return false
}

func (p *planner) examinersFree(examiners []string, day string, start, end Clock, blockedBy map[string]int) bool {
	for _, id := range examiners {
		if !p.roster.StaffAvailable(id, day, start, end, p.cfg) {
			blockedBy[id]++
			return false
		}
		if hasOverlappingDuty(id, day, start, end, p.events, p.examsByID, nil) {
			blockedBy[id]++
			return false
		}
		if !RespectsBreakRule(id, day, start, p.events, p.examsByID, nil, p.cfg) {
			blockedBy[id]++
			return false
		}
	}
	return true
}

// pickProtocolist filters the roster down to eligible candidates for the slot
// and hands them to the selector. Examiners of the exam are never eligible.
func (p *planner) pickProtocolist(exam *models.Exam, day string, start, end Clock) *models.StaffMember {
	examiners := make(map[string]bool)
	for _, id := range exam.Examiners() {
		examiners[id] = true
	}

	var eligible []*models.StaffMember
	for _, id := range p.roster.IDs() {
		member := p.roster.Get(id)
		if !member.ProtocolEligible() || examiners[id] {
			continue
		}
		if !p.roster.StaffAvailable(id, day, start, end, p.cfg) {
			continue
		}
		if hasOverlappingDuty(id, day, start, end, p.events, p.examsByID, nil) {
			continue
		}
		eligible = append(eligible, member)
	}
	return SelectProtocolist(eligible, p.stats, p.roster, exam, day)
}

func (p *planner) commit(exam *models.Exam, protocolist *models.StaffMember, day, room string, start, end Clock, duration int) {
	p.events = append(p.events, models.ScheduledEvent{
		ID:            uuid.NewString(),
		VersionID:     p.versionID,
		ExamID:        exam.ID,
		Day:           day,
		Room:          room,
		StartTime:     start.String(),
		EndTime:       end.String(),
		ProtocolistID: protocolist.ID,
		Status:        models.EventStatusScheduled,
		Team:          exam.Team,
		Duration:      duration,
	})
	p.stats.Record(exam, protocolist.ID, day)
}

// summarize appends the day-distribution and workload advisories.
func (p *planner) summarize() {
	perDay := make(map[string]int)
	for i := range p.events {
		perDay[p.events[i].Day]++
	}
	for _, day := range p.cfg.Days {
		if perDay[day] == 0 {
			p.conflicts = append(p.conflicts, models.WarningReport(
				fmt.Sprintf("no colloquia scheduled on %s", day), nil, nil))
		}
	}

	minLoad, maxLoad := -1, 0
	for _, id := range p.roster.IDs() {
		if !p.roster.Get(id).ProtocolEligible() {
			continue
		}
		n := p.stats.ProtocolCount(id)
		if minLoad < 0 || n < minLoad {
			minLoad = n
		}
		if n > maxLoad {
			maxLoad = n
		}
	}
	if minLoad >= 0 && maxLoad-minLoad > 3 {
		p.conflicts = append(p.conflicts, models.WarningReport(
			fmt.Sprintf("protocol duty spread is %d between the most and least loaded staff", maxLoad-minLoad),
			nil, nil))
	}
}

func topBlocker(blockedBy map[string]int) *string {
	var best string
	bestCount := 0
	for id, count := range blockedBy {
		if count > bestCount || (count == bestCount && bestCount > 0 && id < best) {
			best, bestCount = id, count
		}
	}
	if bestCount == 0 {
		return nil
	}
	return &best
}
