// droneapp flies a Tello-class drone from a browser: a command API, a live
// camera feed with face tracking, and an autonomous patrol.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/teslashibe/go-tello/internal/config"
	"github.com/teslashibe/go-tello/internal/log"
	"github.com/teslashibe/go-tello/pkg/drone"
	"github.com/teslashibe/go-tello/pkg/web"
)

func main() {
	if err := run(); err != nil {
		log.Error("droneapp failed", "err", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, webCfg, level := parseFlags()
	log.Init(level)

	m, err := drone.New(cfg)
	if err != nil {
		return fmt.Errorf("connect drone: %w", err)
	}
	defer m.Stop()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	srv := web.NewServer(webCfg, m)
	go srv.Publish(m.JPEGFrames(ctx))

	errc := make(chan error, 1)
	go func() { errc <- srv.Start() }()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err = <-errc:
		err = fmt.Errorf("web server: %w", err)
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	if serr := srv.Shutdown(shutdownCtx); serr != nil {
		log.Warn("web shutdown", "err", serr)
	}
	return err
}

// parseFlags reads flags, then fills unset endpoints from the environment.
func parseFlags() (drone.Config, web.Config, string) {
	cfg := drone.DefaultConfig()
	webCfg := web.DefaultConfig()

	droneIP := flag.String("drone-ip", "", "Drone IP address (overrides DRONE_IP env var)")
	hostIP := flag.String("host-ip", "", "Local IP to bind (overrides HOST_IP env var)")
	hostPort := flag.Int("host-port", cfg.HostPort, "Local command port")
	dronePort := flag.Int("drone-port", cfg.DronePort, "Drone command port")
	videoPort := flag.Int("video-port", config.Int("VIDEO_PORT", cfg.VideoPort), "Local video port")
	imperial := flag.Bool("imperial", false, "Distances in feet instead of meters")
	speed := flag.Int("speed", cfg.Speed, "Initial speed in cm/s")
	backend := flag.String("detector", cfg.Detector.Backend, "Face detector: haar or yunet")
	model := flag.String("model", cfg.Detector.ModelPath, "Detector model file")
	ffmpeg := flag.String("ffmpeg", cfg.Decoder.Command, "ffmpeg executable")
	noAnnotate := flag.Bool("no-annotate", false, "Do not outline the tracked face")
	webPort := flag.String("web-port", "", "API port (overrides WEB_PORT env var)")
	videoAddr := flag.String("mjpeg-addr", webCfg.VideoAddr, "MJPEG listen address, empty to disable")
	static := flag.String("static", "", "Directory served at /")
	logLevel := flag.String("log-level", "", "debug, info, warn or error (overrides LOG_LEVEL env var)")
	flag.Parse()

	cfg.DroneIP = *droneIP
	if cfg.DroneIP == "" {
		cfg.DroneIP = config.DroneIP(drone.DefaultDroneIP)
	}
	cfg.HostIP = *hostIP
	if cfg.HostIP == "" {
		cfg.HostIP = config.HostIP(drone.DefaultHostIP)
	}
	cfg.HostPort, cfg.DronePort, cfg.VideoPort = *hostPort, *dronePort, *videoPort
	cfg.Imperial = *imperial || config.Bool("DRONE_IMPERIAL", false)
	cfg.Speed = *speed
	cfg.Detector.Backend, cfg.Detector.ModelPath = *backend, *model
	cfg.Decoder.Command = *ffmpeg
	cfg.Annotate = !*noAnnotate

	port := *webPort
	if port == "" {
		port = config.WebPort()
	}
	webCfg.Addr = ":" + port
	webCfg.VideoAddr = *videoAddr
	webCfg.StaticDir = *static

	level := *logLevel
	if level == "" {
		level = config.LogLevel()
	}
	return cfg, webCfg, level
}
