package spin

import (
	"errors"
	"math"
	"time"
)

// Phase identifies where the spin animation is in its lifecycle.
type Phase string

const (
	PhaseIdle            Phase = "IDLE"
	PhaseApproaching     Phase = "APPROACHING"
	PhaseRiggedPause     Phase = "RIGGED_PAUSE"
	PhaseRiggedReturning Phase = "RIGGED_RETURNING"
	PhaseSettled         Phase = "SETTLED"
)

const (
	// EaseOutDuration is the approach phase length in frame time.
	EaseOutDuration = 7 * time.Second

	// RiggingPause holds the needle past the true target before the return
	// leg. Purely theatrical.
	RiggingPause = 2 * time.Second

	// ReturnDuration paces the constant-velocity crawl back onto a rigged
	// target.
	ReturnDuration = 1500 * time.Millisecond
)

// ErrSpinInProgress rejects a spin request while the machine is mid-spin or
// an outcome request is still in flight.
var ErrSpinInProgress = errors.New("spin already in progress")

// Machine is the spin animation state machine. It is advanced exactly once
// per ticker frame and never blocks. All timing is accumulated ticker time,
// so a paused ticker pauses the spin.
type Machine struct {
	phase          Phase
	target         Target
	rigExtra       float64
	approachTarget float64
	current        float64
	elapsed        time.Duration
	sectorSize     float64
	lastBoundary   int

	onBoundary func()
}

// NewMachine creates an idle machine. onBoundary fires once per sector
// boundary crossed during approaching and riggedReturning; it may be nil.
func NewMachine(onBoundary func()) *Machine {
	return &Machine{phase: PhaseIdle, onBoundary: onBoundary}
}

// Phase returns the current animation phase.
func (m *Machine) Phase() Phase {
	return m.phase
}

// Angle returns the current rotation angle in radians.
func (m *Machine) Angle() float64 {
	return m.current
}

// Target returns the target of the current or most recent spin.
func (m *Machine) Target() Target {
	return m.target
}

// RigExtra returns the overshoot applied to the current spin, zero when the
// outcome is not rigged.
func (m *Machine) RigExtra() float64 {
	return m.rigExtra
}

// Begin arms the machine for a resolved target and enters approaching.
// Rigged targets overshoot by max(π/2, sectorSize) so the needle visibly
// passes the true answer before returning.
func (m *Machine) Begin(target Target, sectorSize float64) error {
	if m.phase != PhaseIdle && m.phase != PhaseSettled {
		return ErrSpinInProgress
	}

	m.target = target
	m.sectorSize = sectorSize
	m.rigExtra = 0
	if target.Rigged {
		m.rigExtra = math.Max(math.Pi/2, sectorSize)
	}
	m.approachTarget = target.Angle + m.rigExtra
	m.current = 0
	m.elapsed = 0
	m.lastBoundary = m.boundaryIndex(0)
	m.phase = PhaseApproaching
	return nil
}

// Reset abandons any active spin and returns the machine to idle. Required
// after an outcome failure: the machine must never stay spinning forever.
func (m *Machine) Reset() {
	m.phase = PhaseIdle
	m.current = 0
	m.elapsed = 0
	m.rigExtra = 0
}

// Advance moves the animation by one ticker delta and reports the phase and
// rotation angle to draw.
func (m *Machine) Advance(delta time.Duration) (Phase, float64) {
	switch m.phase {
	case PhaseApproaching:
		m.elapsed += delta
		m.current = easeOut(m.elapsed.Seconds(), 0, m.approachTarget, EaseOutDuration.Seconds())
		m.emitBoundary()
		if m.current >= m.approachTarget {
			m.current = m.approachTarget
			m.elapsed = 0
			if m.target.Rigged {
				m.phase = PhaseRiggedPause
			} else {
				m.current = m.target.Angle
				m.phase = PhaseSettled
			}
		}

	case PhaseRiggedPause:
		// No angle change and no boundary events during the hold.
		m.elapsed += delta
		if m.elapsed >= RiggingPause {
			m.elapsed = 0
			m.phase = PhaseRiggedReturning
		}

	case PhaseRiggedReturning:
		m.elapsed += delta
		m.current = linear(m.elapsed.Seconds(), m.approachTarget, -m.rigExtra, ReturnDuration.Seconds())
		m.emitBoundary()
		if m.current <= m.target.Angle {
			m.current = m.target.Angle
			m.phase = PhaseSettled
		}
	}

	return m.phase, m.current
}

func (m *Machine) boundaryIndex(angle float64) int {
	if m.sectorSize <= 0 {
		return 0
	}
	return int(math.Floor(angle/m.sectorSize - 0.5))
}

func (m *Machine) emitBoundary() {
	b := m.boundaryIndex(m.current)
	if b != m.lastBoundary {
		m.lastBoundary = b
		if m.onBoundary != nil {
			m.onBoundary()
		}
	}
}
