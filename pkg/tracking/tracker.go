// Package tracking steers the drone toward a detected face.
package tracking

import (
	"fmt"
	"sync/atomic"

	"github.com/teslashibe/go-tello/internal/log"
	"github.com/teslashibe/go-tello/pkg/tracking/detection"
	"github.com/teslashibe/go-tello/pkg/video"
)

// Dispatcher sends a command without waiting; it drops the command when the
// link is busy.
type Dispatcher interface {
	Dispatch(command string)
}

// PatrolController is the part of the patrol routine tracking preempts.
type PatrolController interface {
	IsPatrolling() bool
	StopPatrol()
}

// Stats counts tracker activity.
type Stats struct {
	Frames     uint64 // Frames inspected while enabled
	Detections uint64 // Frames with at least one face
	Commands   uint64 // Velocity commands dispatched
}

// Tracker follows the first detected face, one frame at a time.
type Tracker struct {
	config   Config
	detector detection.Detector
	dispatch Dispatcher
	patrol   PatrolController

	enabled atomic.Bool
	speed   atomic.Int64

	frames     atomic.Uint64
	detections atomic.Uint64
	commands   atomic.Uint64
}

// New creates a disabled tracker. patrol may be nil.
func New(config Config, detector detection.Detector, dispatch Dispatcher, patrol PatrolController, speed int) *Tracker {
	t := &Tracker{
		config:   config,
		detector: detector,
		dispatch: dispatch,
		patrol:   patrol,
	}
	t.speed.Store(int64(speed))
	return t
}

// Enable turns face following on.
func (t *Tracker) Enable() {
	if !t.enabled.Swap(true) {
		log.Info("face tracking enabled")
	}
}

// Disable turns face following off.
func (t *Tracker) Disable() {
	if t.enabled.Swap(false) {
		log.Info("face tracking disabled")
	}
}

// Enabled reports whether face following is on.
func (t *Tracker) Enabled() bool {
	return t.enabled.Load()
}

// SetSpeed sets the speed carried by velocity commands.
func (t *Tracker) SetSpeed(speed int) {
	t.speed.Store(int64(speed))
}

// Stats returns a snapshot of the counters.
func (t *Tracker) Stats() Stats {
	return Stats{
		Frames:     t.frames.Load(),
		Detections: t.detections.Load(),
		Commands:   t.commands.Load(),
	}
}

// Process runs one tracking iteration on frame and returns the face acted
// upon, or nil. Disabled trackers do nothing. An active patrol is stopped
// before any command is issued.
func (t *Tracker) Process(frame video.Frame) (*detection.Detection, error) {
	if !t.enabled.Load() {
		return nil, nil
	}
	t.frames.Add(1)

	if t.patrol != nil && t.patrol.IsPatrolling() {
		log.Info("face tracking takes over from patrol")
		t.patrol.StopPatrol()
	}

	dets, err := t.detector.Detect(frame)
	if err != nil {
		return nil, fmt.Errorf("detect: %w", err)
	}
	target := detection.SelectFirst(dets)
	if target == nil {
		return nil, nil
	}
	t.detections.Add(1)

	offsets := Measure(*target, frame)
	v := t.config.Velocity(offsets, int(t.speed.Load()))

	log.Debug("face tracked",
		"x", target.X, "y", target.Y, "w", target.W, "h", target.H,
		"dx", offsets.Horizontal, "dy", offsets.Vertical, "area", offsets.AreaRatio,
		"command", v.Command())

	t.dispatch.Dispatch(v.Command())
	t.commands.Add(1)

	face := *target
	return &face, nil
}
