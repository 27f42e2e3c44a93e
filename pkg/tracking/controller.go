package tracking

import (
	"fmt"

	"github.com/teslashibe/go-tello/pkg/tracking/detection"
	"github.com/teslashibe/go-tello/pkg/video"
)

// Offsets describes where a face sits relative to the frame.
type Offsets struct {
	Horizontal float64 // Face center minus frame center, positive to the right
	Vertical   float64 // Frame center minus face center, positive upward
	AreaRatio  float64 // Face area over frame area
}

// Measure computes the offsets of det inside frame.
func Measure(det detection.Detection, frame video.Frame) Offsets {
	faceX, faceY := det.Center()
	centerX, centerY := frame.Center()

	var ratio float64
	if area := frame.Area(); area > 0 {
		ratio = float64(det.Area()) / float64(area)
	}

	return Offsets{
		Horizontal: faceX - centerX,
		Vertical:   centerY - faceY,
		AreaRatio:  ratio,
	}
}

// Velocity is a four-axis "go" command.
type Velocity struct {
	Forward  int // Positive closes in, negative backs off
	Lateral  int // Negative is left, positive is right
	Vertical int // Positive ascends, negative descends
	Speed    int
}

// Command renders the velocity in the drone's text protocol.
func (v Velocity) Command() string {
	return fmt.Sprintf("go %d %d %d %d", v.Forward, v.Lateral, v.Vertical, v.Speed)
}

// Velocity maps offsets to a command. Each axis is decided independently
// and is either -Step, 0 or +Step.
func (c Config) Velocity(o Offsets, speed int) Velocity {
	v := Velocity{Speed: speed}

	switch {
	case o.Horizontal < -c.LateralThreshold:
		v.Lateral = -c.Step
	case o.Horizontal > c.LateralThreshold:
		v.Lateral = c.Step
	}

	switch {
	case o.Vertical < -c.VerticalThreshold:
		v.Vertical = -c.Step
	case o.Vertical > c.VerticalThreshold:
		v.Vertical = c.Step
	}

	switch {
	case o.AreaRatio > c.NearAreaRatio:
		v.Forward = -c.Step
	case o.AreaRatio < c.FarAreaRatio:
		v.Forward = c.Step
	}

	return v
}
