package engine

import (
	"fmt"
	"sort"

	"github.com/examdesk/colloquium-api/internal/models"
)

// Roster indexes staff members with their decoded availability overrides.
// Member IDs are kept in sorted order so every iteration over staff is
// deterministic.
type Roster struct {
	members   map[string]*models.StaffMember
	overrides map[string]*models.AvailabilityOverride
	ordered   []string
}

// NewRoster builds a roster from the staff snapshot. A malformed availability
// override is a structural error: scheduling against it would silently ignore
// restrictions.
func NewRoster(staff []models.StaffMember) (*Roster, error) {
	r := &Roster{
		members:   make(map[string]*models.StaffMember, len(staff)),
		overrides: make(map[string]*models.AvailabilityOverride, len(staff)),
	}
	for i := range staff {
		member := &staff[i]
		override, err := member.AvailabilityOverride()
		if err != nil {
			return nil, fmt.Errorf("availability override for staff %s: %w", member.ID, err)
		}
		r.members[member.ID] = member
		r.overrides[member.ID] = override
		r.ordered = append(r.ordered, member.ID)
	}
	sort.Strings(r.ordered)
	return r, nil
}

// Get returns the staff member for the given id, or nil.
func (r *Roster) Get(id string) *models.StaffMember {
	return r.members[id]
}

// IDs returns all member ids in stable order.
func (r *Roster) IDs() []string {
	return r.ordered
}

// Override returns the decoded availability override, nil when absent.
func (r *Roster) Override(id string) *models.AvailabilityOverride {
	return r.overrides[id]
}
