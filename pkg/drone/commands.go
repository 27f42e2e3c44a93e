package drone

import (
	"fmt"
	"math"
	"strconv"
)

// Direction is a translation command name.
type Direction string

// Directions accepted by Move.
const (
	Up      Direction = "up"
	Down    Direction = "down"
	Left    Direction = "left"
	Right   Direction = "right"
	Forward Direction = "forward"
	Back    Direction = "back"
)

// Valid reports whether d is a known direction.
func (d Direction) Valid() bool {
	switch d {
	case Up, Down, Left, Right, Forward, Back:
		return true
	}
	return false
}

// Centimeters converts a distance in meters (or feet when imperial) to whole
// centimeters, rounding half away from zero.
func Centimeters(distance float64, imperial bool) int {
	if imperial {
		return int(math.Round(distance * 30.48))
	}
	return int(math.Round(distance * 100))
}

// Takeoff starts the motors and climbs to hover height.
func (m *Manager) Takeoff() *Pending {
	return m.SendCommand("takeoff", true)
}

// Land lands the drone.
func (m *Manager) Land() *Pending {
	return m.SendCommand("land", true)
}

// Move translates the drone by distance in the configured unit. A
// non-positive distance uses DefaultDistance.
func (m *Manager) Move(direction Direction, distance float64) *Pending {
	if !direction.Valid() {
		return failed(string(direction), fmt.Errorf("%w: %q", ErrInvalidDirection, direction))
	}
	if distance <= 0 {
		distance = DefaultDistance
	}
	cm := Centimeters(distance, m.cfg.Imperial)
	return m.SendCommand(string(direction)+" "+strconv.Itoa(cm), true)
}

func (m *Manager) Up(distance float64) *Pending      { return m.Move(Up, distance) }
func (m *Manager) Down(distance float64) *Pending    { return m.Move(Down, distance) }
func (m *Manager) Left(distance float64) *Pending    { return m.Move(Left, distance) }
func (m *Manager) Right(distance float64) *Pending   { return m.Move(Right, distance) }
func (m *Manager) Forward(distance float64) *Pending { return m.Move(Forward, distance) }
func (m *Manager) Back(distance float64) *Pending    { return m.Move(Back, distance) }

// Clockwise rotates by degree, DefaultDegree when non-positive.
func (m *Manager) Clockwise(degree int) *Pending {
	return m.rotate("cw", degree)
}

// CounterClockwise rotates by degree, DefaultDegree when non-positive.
func (m *Manager) CounterClockwise(degree int) *Pending {
	return m.rotate("ccw", degree)
}

func (m *Manager) rotate(verb string, degree int) *Pending {
	if degree <= 0 {
		degree = DefaultDegree
	}
	return m.SendCommand(verb+" "+strconv.Itoa(degree), true)
}

func (m *Manager) FlipFront() *Pending { return m.SendCommand("flip f", true) }
func (m *Manager) FlipBack() *Pending  { return m.SendCommand("flip b", true) }
func (m *Manager) FlipLeft() *Pending  { return m.SendCommand("flip l", true) }
func (m *Manager) FlipRight() *Pending { return m.SendCommand("flip r", true) }

// SetSpeed sets the flight speed in cm/s, DefaultSpeed when non-positive.
// Face tracking uses the new speed from its next command.
func (m *Manager) SetSpeed(speed int) *Pending {
	if speed <= 0 {
		speed = DefaultSpeed
	}
	m.speed.Store(int64(speed))
	m.tracker.SetSpeed(speed)
	return m.SendCommand("speed "+strconv.Itoa(speed), true)
}

// Speed returns the last speed set.
func (m *Manager) Speed() int {
	return int(m.speed.Load())
}
