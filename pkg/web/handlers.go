package web

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/teslashibe/go-tello/internal/log"
	"github.com/teslashibe/go-tello/pkg/drone"
)

// CommandRequest is the body of POST /api/command, as a form or JSON.
type CommandRequest struct {
	Command  string  `json:"command" form:"command"`
	Speed    int     `json:"speed" form:"speed"`
	Distance float64 `json:"distance" form:"distance"` // Meters, or feet in imperial mode
	Degree   int     `json:"degree" form:"degree"`
}

// CommandResponse reports the drone's reply. Reply is empty and OK false
// when the drone stayed silent.
type CommandResponse struct {
	Command string `json:"command"`
	Reply   string `json:"reply,omitempty"`
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
}

// handleStatus returns the drone state.
func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.drone.Status())
}

// handleCommand runs one named command and waits for the drone's reply.
func (s *Server) handleCommand(c *fiber.Ctx) error {
	var req CommandRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(CommandResponse{Error: err.Error()})
	}
	log.Info("api command", "command", req.Command, "ip", c.IP())

	p, err := s.dispatch(req)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(CommandResponse{Command: req.Command, Error: err.Error()})
	}

	resp := CommandResponse{Command: req.Command, OK: true}
	status := fiber.StatusOK
	if p != nil {
		ctx, cancel := context.WithTimeout(c.UserContext(), s.cfg.ReplyTimeout)
		defer cancel()

		reply, ok, err := p.Wait(ctx)
		resp.Reply, resp.OK = reply, ok
		if err != nil {
			resp.Error = err.Error()
			status = statusFor(err)
		}
	}

	if err := s.statusHub.BroadcastJSON(s.drone.Status()); err != nil {
		log.Warn("broadcast status", "err", err)
	}
	return c.Status(status).JSON(resp)
}

// dispatch maps a command name to a drone call. Routines that have no
// reply (patrol, face tracking) return a nil Pending.
func (s *Server) dispatch(req CommandRequest) (*drone.Pending, error) {
	d := s.drone
	switch req.Command {
	case "":
		return nil, ErrMissingCommand
	case "takeOff":
		return d.Takeoff(), nil
	case "land":
		return d.Land(), nil
	case "speed":
		return d.SetSpeed(req.Speed), nil
	case "up":
		return d.Move(drone.Up, req.Distance), nil
	case "down":
		return d.Move(drone.Down, req.Distance), nil
	case "left":
		return d.Move(drone.Left, req.Distance), nil
	case "right":
		return d.Move(drone.Right, req.Distance), nil
	case "forward":
		return d.Move(drone.Forward, req.Distance), nil
	case "back":
		return d.Move(drone.Back, req.Distance), nil
	case "clockwise":
		return d.Clockwise(req.Degree), nil
	case "counterClockwise":
		return d.CounterClockwise(req.Degree), nil
	case "flipFront":
		return d.FlipFront(), nil
	case "flipBack":
		return d.FlipBack(), nil
	case "flipLeft":
		return d.FlipLeft(), nil
	case "flipRight":
		return d.FlipRight(), nil
	case "patrol":
		d.Patrol()
	case "stopPatrol":
		d.StopPatrol()
	case "faceDetectAndTrack":
		d.EnableFaceDetect()
	case "stopFaceDetectAndTrack":
		d.DisableFaceDetect()
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, req.Command)
	}
	return nil, nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, drone.ErrNotAcquired):
		return fiber.StatusConflict
	case errors.Is(err, drone.ErrStopped):
		return fiber.StatusServiceUnavailable
	case errors.Is(err, drone.ErrInvalidDirection):
		return fiber.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusGatewayTimeout
	default:
		return fiber.StatusBadGateway
	}
}
