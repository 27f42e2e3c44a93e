// Package web serves the drone control API, the websocket camera feed and
// an MJPEG stream.
package web

import (
	"context"
	"errors"
	"iter"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"
	"github.com/hybridgroup/mjpeg"

	"github.com/teslashibe/go-tello/internal/log"
	"github.com/teslashibe/go-tello/pkg/drone"
	"github.com/teslashibe/go-tello/pkg/hub"
)

// Drone is the control surface the API drives. *drone.Manager satisfies it.
type Drone interface {
	Takeoff() *drone.Pending
	Land() *drone.Pending
	Move(direction drone.Direction, distance float64) *drone.Pending
	Clockwise(degree int) *drone.Pending
	CounterClockwise(degree int) *drone.Pending
	FlipFront() *drone.Pending
	FlipBack() *drone.Pending
	FlipLeft() *drone.Pending
	FlipRight() *drone.Pending
	SetSpeed(speed int) *drone.Pending
	Patrol()
	StopPatrol()
	EnableFaceDetect()
	DisableFaceDetect()
	Status() drone.Status
}

// Config holds the web server settings.
type Config struct {
	Addr         string        // API listen address, e.g. ":5000"
	VideoAddr    string        // MJPEG listen address, empty to disable
	StaticDir    string        // Served at "/" when set
	ReplyTimeout time.Duration // Longest wait for a drone reply per request
}

// DefaultConfig returns the settings used by droneapp.
func DefaultConfig() Config {
	return Config{
		Addr:         ":5000",
		VideoAddr:    ":5001",
		ReplyTimeout: 3 * time.Second,
	}
}

// Server is the control and video web server.
type Server struct {
	app   *fiber.App
	cfg   Config
	drone Drone

	cameraHub *hub.Hub
	statusHub *hub.Hub

	stream   *mjpeg.Stream
	videoSrv *http.Server

	ctx    context.Context // Ends the hubs and their viewers
	cancel context.CancelFunc
}

// NewServer builds the routes for d.
func NewServer(cfg Config, d Drone) *Server {
	if cfg.ReplyTimeout <= 0 {
		cfg.ReplyTimeout = DefaultConfig().ReplyTimeout
	}

	s := &Server{
		cfg:       cfg,
		drone:     d,
		cameraHub: hub.New("camera"),
		statusHub: hub.New("status"),
		stream:    mjpeg.NewStream(),
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())

	app := fiber.New(fiber.Config{
		AppName:               "droneapp",
		DisableStartupMessage: true,
	})
	app.Use(cors.New())

	if cfg.StaticDir != "" {
		app.Static("/", cfg.StaticDir)
	}

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Post("/command", s.handleCommand)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/camera", websocket.New(s.serveHub(s.cameraHub)))
	app.Get("/ws/status", websocket.New(s.serveHub(s.statusHub)))

	s.app = app
	return s
}

// VideoHandler returns the MJPEG handler, mounted at /video/streaming.
func (s *Server) VideoHandler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/video/streaming", s.stream)
	return mux
}

// Start runs the hubs and both listeners. It blocks until Shutdown or until
// the API listener fails.
func (s *Server) Start() error {
	go s.cameraHub.Run(s.ctx)
	go s.statusHub.Run(s.ctx)

	if s.cfg.VideoAddr != "" {
		s.videoSrv = &http.Server{Addr: s.cfg.VideoAddr, Handler: s.VideoHandler()}
		go func() {
			log.Info("mjpeg stream", "url", "http://localhost"+s.cfg.VideoAddr+"/video/streaming")
			if err := s.videoSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("mjpeg server", "err", err)
			}
		}()
	}

	log.Info("web server", "addr", s.cfg.Addr)
	return s.app.Listen(s.cfg.Addr)
}

// Publish fans every JPEG frame out to websocket viewers and MJPEG clients.
// It returns when frames ends.
func (s *Server) Publish(frames iter.Seq[[]byte]) {
	for jpeg := range frames {
		s.cameraHub.BroadcastBinary(jpeg)
		s.stream.UpdateJPEG(jpeg)
	}
}

// Shutdown stops both listeners and disconnects viewers.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()

	var errs []error
	if s.videoSrv != nil {
		errs = append(errs, s.videoSrv.Shutdown(ctx))
	}
	errs = append(errs, s.app.ShutdownWithContext(ctx))
	return errors.Join(errs...)
}

func (s *Server) serveHub(h *hub.Hub) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		client := hub.NewClient(s.ctx, h, c)
		if client == nil {
			return
		}
		client.Run(s.ctx)
	}
}
