package drone

import (
	"errors"
	"fmt"
	"time"

	"github.com/teslashibe/go-tello/pkg/tracking"
	"github.com/teslashibe/go-tello/pkg/tracking/detection"
	"github.com/teslashibe/go-tello/pkg/video"
)

// Protocol defaults.
const (
	DefaultDistance  = 0.30 // Meters, or feet in imperial mode
	DefaultSpeed     = 10   // cm/s
	DefaultDegree    = 10
	DefaultHostIP    = "192.168.10.2"
	DefaultDroneIP   = "192.168.10.1"
	DefaultPort      = 8889
	DefaultVideoPort = video.DefaultVideoPort
)

// Config holds the manager configuration.
type Config struct {
	// Endpoints
	HostIP    string // Local address the command and video sockets bind to
	HostPort  int    // Local command port, 0 picks a free port
	DroneIP   string
	DronePort int
	VideoPort int // Local video port, 0 picks a free port

	// Units and motion
	Imperial bool // Distances in feet instead of meters
	Speed    int  // Initial speed sent after the handshake

	// Reply polling
	PollInterval time.Duration
	MaxPolls     int

	// Patrol
	PatrolDwell       time.Duration // Pause after each patrol step
	PatrolStopRetries int           // Polls while waiting for the patrol routine

	// Shutdown
	StopInterval time.Duration // Poll interval while waiting for goroutines
	StopRetries  int           // Polls per goroutine before giving up

	// Video
	Ingest  video.IngestConfig
	Decoder video.DecoderConfig

	// Vision
	Detector    detection.Config
	Tracking    tracking.Config
	Annotate    bool // Draw the tracked face on JPEG frames
	JPEGQuality int
}

// DefaultConfig returns the configuration for a drone on its own access point.
func DefaultConfig() Config {
	return Config{
		HostIP:            DefaultHostIP,
		HostPort:          DefaultPort,
		DroneIP:           DefaultDroneIP,
		DronePort:         DefaultPort,
		VideoPort:         DefaultVideoPort,
		Speed:             DefaultSpeed,
		PollInterval:      300 * time.Millisecond,
		MaxPolls:          4,
		PatrolDwell:       5 * time.Second,
		PatrolStopRetries: 300,
		StopInterval:      300 * time.Millisecond,
		StopRetries:       30,
		Ingest:            video.DefaultIngestConfig(),
		Decoder:           video.DefaultDecoderConfig(),
		Detector:          detection.DefaultConfig(),
		Tracking:          tracking.DefaultConfig(),
		Annotate:          true,
		JPEGQuality:       90,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	var errs []error
	if c.DroneIP == "" {
		errs = append(errs, errors.New("drone IP is required"))
	}
	if c.DronePort <= 0 || c.DronePort > 65535 {
		errs = append(errs, fmt.Errorf("drone port out of range: %d", c.DronePort))
	}
	if c.HostPort < 0 || c.HostPort > 65535 {
		errs = append(errs, fmt.Errorf("host port out of range: %d", c.HostPort))
	}
	if c.VideoPort < 0 || c.VideoPort > 65535 {
		errs = append(errs, fmt.Errorf("video port out of range: %d", c.VideoPort))
	}
	if c.PollInterval <= 0 || c.MaxPolls <= 0 {
		errs = append(errs, errors.New("poll interval and max polls must be positive"))
	}
	if c.StopInterval <= 0 || c.StopRetries <= 0 || c.PatrolStopRetries <= 0 {
		errs = append(errs, errors.New("stop interval and retries must be positive"))
	}
	if c.PatrolDwell < 0 {
		errs = append(errs, errors.New("patrol dwell must be >= 0"))
	}
	if c.Decoder.Width <= 0 || c.Decoder.Height <= 0 {
		errs = append(errs, fmt.Errorf("frame size must be positive: %dx%d", c.Decoder.Width, c.Decoder.Height))
	}
	if err := c.Tracking.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

type options struct {
	detector detection.Detector
	decoder  video.Decoder
	encoder  video.Encoder
}

// Option injects a collaborator into New.
type Option func(*options)

// WithDetector uses d instead of loading Config.Detector.
func WithDetector(d detection.Detector) Option {
	return func(o *options) { o.detector = d }
}

// WithDecoder uses d instead of starting Config.Decoder.
func WithDecoder(d video.Decoder) Option {
	return func(o *options) { o.decoder = d }
}

// WithEncoder replaces the JPEG encoder.
func WithEncoder(e video.Encoder) Option {
	return func(o *options) { o.encoder = e }
}
