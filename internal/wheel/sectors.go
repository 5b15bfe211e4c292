package wheel

import (
	"math"
	"math/rand"
	"sort"

	"github.com/google/uuid"

	"github.com/aws/aws-ops-wheel-sub000/internal/models"
)

// DrawingOffset rotates sector zero under the 12 o'clock pointer for
// renderers that measure angles from the positive x axis.
const DrawingOffset = math.Pi

// SectorMap lays the participants of one wheel out as N equal angular
// sectors in a stable display-name order. Sector width is uniform regardless
// of weight: the wheel's geometry communicates one slot per participant,
// while SelectionPercentage carries the actual odds. The two must never be
// conflated.
type SectorMap struct {
	participants []models.Participant
	sectorSize   float64
	baseOffset   float64
	rng          *rand.Rand
}

// NewSectorMap creates an empty sector map. The random source seeds the
// base rotation offset applied on every repopulation.
func NewSectorMap(rng *rand.Rand) *SectorMap {
	return &SectorMap{rng: rng}
}

// Populate replaces the participant set wholesale, re-sorting by display
// name and rolling a fresh random base rotation. The offset is visual
// variety only; it never shifts which participant an angle resolves to.
func (m *SectorMap) Populate(participants []models.Participant) {
	ps := make([]models.Participant, len(participants))
	copy(ps, participants)
	sort.SliceStable(ps, func(i, j int) bool { return ps[i].Name < ps[j].Name })

	m.participants = ps
	if len(ps) > 0 {
		m.sectorSize = 2 * math.Pi / float64(len(ps))
	} else {
		m.sectorSize = 0
	}
	m.baseOffset = m.rng.Float64() * 2 * math.Pi
}

// Len returns the sector count. Zero is a valid, non-spinnable state.
func (m *SectorMap) Len() int {
	return len(m.participants)
}

// SectorSize returns 2π/N, or 0 for an empty wheel.
func (m *SectorMap) SectorSize() float64 {
	return m.sectorSize
}

// BaseOffset returns the current random base rotation.
func (m *SectorMap) BaseOffset() float64 {
	return m.baseOffset
}

// Participants returns the ordered participant list backing the sectors.
func (m *SectorMap) Participants() []models.Participant {
	out := make([]models.Participant, len(m.participants))
	copy(out, m.participants)
	return out
}

// ParticipantAt returns the participant occupying sector i.
func (m *SectorMap) ParticipantAt(i int) (models.Participant, bool) {
	if i < 0 || i >= len(m.participants) {
		return models.Participant{}, false
	}
	return m.participants[i], true
}

// ParticipantByID finds a participant by identity.
func (m *SectorMap) ParticipantByID(id uuid.UUID) (models.Participant, bool) {
	idx, ok := m.IndexOf(id)
	if !ok {
		return models.Participant{}, false
	}
	return m.participants[idx], true
}

// IndexOf locates a participant's ordinal position with a linear scan.
// Wheels are bounded by UI practicality, so a lookup map is not worth the
// bookkeeping; callers go through this method so the scan can be swapped out
// without touching anything else.
func (m *SectorMap) IndexOf(id uuid.UUID) (int, bool) {
	for i, p := range m.participants {
		if p.ID == id {
			return i, true
		}
	}
	return 0, false
}

// SelectedIndex converts a rotation angle into the index of the participant
// under the fixed pointer. Sector i spans [(i-0.5)·size, (i+0.5)·size); the
// wheel rotates under the pointer, so indices run against the rotation.
func (m *SectorMap) SelectedIndex(angle float64) int {
	n := len(m.participants)
	if n == 0 || m.sectorSize == 0 {
		return 0
	}
	idx := (n - int(math.Round(angle/m.sectorSize))) % n
	if idx < 0 {
		idx += n
	}
	return idx
}
