package planner

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/floats"
)

// Command is a planar velocity command: linear velocity in the robot frame and yaw rate.
type Command struct {
	Linear  r3.Vector
	Angular float64
}

// magnitude is |vx| + |vy| + |ωz|.
func (c Command) magnitude() float64 {
	return math.Abs(c.Linear.X) + math.Abs(c.Linear.Y) + math.Abs(c.Angular)
}

// StuckMonitor remembers the last commanded speeds and reports when the robot has effectively
// stopped moving for a full window.
type StuckMonitor struct {
	speeds    []float64
	next      int
	full      bool
	threshold float64
}

// NewStuckMonitor returns a monitor over window commands. It reports stuck once the summed
// speed over a full window is at most threshold.
func NewStuckMonitor(window int, threshold float64) *StuckMonitor {
	if window < 1 {
		window = 1
	}
	return &StuckMonitor{speeds: make([]float64, window), threshold: threshold}
}

// Record adds a velocity command and returns false if the robot is stuck.
func (m *StuckMonitor) Record(cmd Command) bool {
	m.speeds[m.next] = cmd.magnitude()
	m.next = (m.next + 1) % len(m.speeds)
	if m.next == 0 {
		m.full = true
	}
	if !m.full {
		return true
	}
	return floats.Sum(m.speeds) > m.threshold
}

// Clear forgets every recorded command.
func (m *StuckMonitor) Clear() {
	for i := range m.speeds {
		m.speeds[i] = 0
	}
	m.next, m.full = 0, false
}
