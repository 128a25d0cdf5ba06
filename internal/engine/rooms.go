package engine

import "github.com/examdesk/colloquium-api/internal/models"

// RoomsForExam derives the ordered room preference list for an exam.
//
// Exams that follow their examiners (master degree and integrated work) get
// the primary examiner's competence-area rooms first, then the second
// examiner's, then every remaining configured room, so they can always be
// placed with lower priority. Exams with their own competence area are bound
// strictly to that area's mapping; only an unmapped area falls back to the
// union of all mapped rooms.
func RoomsForExam(exam *models.Exam, mappings []models.RoomMapping, roster *Roster, cfg Config) []string {
	var rooms []string
	seen := make(map[string]bool)
	add := func(list []string) {
		for _, room := range list {
			if !seen[room] {
				seen[room] = true
				rooms = append(rooms, room)
			}
		}
	}

	if exam.FollowsExaminerRooms() {
		for _, id := range exam.Examiners() {
			member := roster.Get(id)
			if member == nil {
				continue
			}
			add(areaRooms(mappings, member.PrimaryCompetenceArea()))
		}
		add(cfg.Rooms)
		return rooms
	}

	if direct := areaRooms(mappings, exam.CompetenceArea); len(direct) > 0 {
		add(direct)
		return rooms
	}
	for _, m := range mappings {
		add(m.Rooms)
	}
	return rooms
}

func areaRooms(mappings []models.RoomMapping, area string) []string {
	if area == "" {
		return nil
	}
	for i := range mappings {
		if mappings[i].CompetenceArea == area {
			return mappings[i].Rooms
		}
	}
	return nil
}
