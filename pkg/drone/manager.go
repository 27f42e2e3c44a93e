// Package drone drives a Tello-class drone over its UDP text protocol.
//
// A Manager owns the command socket, the reply listener, the video pipeline
// and the two autonomous routines (patrol and face tracking). Commands are
// serialized: only one is on the wire at a time and its reply is the next
// datagram the drone sends back.
package drone

import (
	"context"
	"fmt"
	"image"
	"iter"
	"net"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/teslashibe/go-tello/internal/log"
	"github.com/teslashibe/go-tello/pkg/tracking"
	"github.com/teslashibe/go-tello/pkg/tracking/detection"
	"github.com/teslashibe/go-tello/pkg/video"
)

// Manager controls one drone.
type Manager struct {
	cfg   Config
	drone net.Addr

	ctx    context.Context
	cancel context.CancelFunc

	conn    net.PacketConn
	slot    *slot
	channel *channel

	decoder  video.Decoder
	ingest   *video.Ingest
	frames   *video.FrameReader
	encoder  video.Encoder
	detector detection.Detector
	tracker  *tracking.Tracker
	patrol   *patrol

	speed atomic.Int64

	listenerDone chan struct{}
	ingestDone   chan struct{}
	inflight     sync.WaitGroup
	mu           sync.Mutex // Orders inflight.Add against Stop
	stopped      bool
	stopOnce     sync.Once
}

// New connects to the drone. The face detector is loaded first so a missing
// model fails before any socket is bound or process started. New returns
// after the command, streamon and speed handshake has been sent.
func New(cfg Config, opts ...Option) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	det := o.detector
	if det == nil {
		var err error
		if det, err = detection.New(cfg.Detector); err != nil {
			return nil, fmt.Errorf("load detector: %w", err)
		}
	}

	droneAddr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(cfg.DroneIP, strconv.Itoa(cfg.DronePort)))
	if err != nil {
		det.Close()
		return nil, fmt.Errorf("resolve drone: %w", err)
	}

	conn, err := net.ListenPacket("udp", net.JoinHostPort(cfg.HostIP, strconv.Itoa(cfg.HostPort)))
	if err != nil {
		det.Close()
		return nil, fmt.Errorf("bind command socket: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		cfg:          cfg,
		drone:        droneAddr,
		ctx:          ctx,
		cancel:       cancel,
		conn:         conn,
		slot:         &slot{},
		detector:     det,
		encoder:      o.encoder,
		listenerDone: make(chan struct{}),
		ingestDone:   make(chan struct{}),
	}
	m.channel = newChannel(conn, droneAddr, m.slot, cfg.PollInterval, cfg.MaxPolls)
	m.patrol = newPatrol(m.patrolStep, cfg.PatrolDwell, cfg.StopInterval, cfg.PatrolStopRetries)
	m.tracker = tracking.New(cfg.Tracking, det, m, m, cfg.Speed)
	m.speed.Store(int64(cfg.Speed))
	if m.encoder == nil {
		m.encoder = video.NewJPEGEncoder(cfg.JPEGQuality)
	}

	go m.listen(ctx)

	if err := m.startVideo(ctx, o.decoder); err != nil {
		m.cancel()
		conn.Close()
		<-m.listenerDone
		det.Close()
		return nil, err
	}

	log.Info("drone manager started",
		"host", conn.LocalAddr().String(),
		"drone", droneAddr.String(),
		"video", m.ingest.Addr().String(),
		"imperial", cfg.Imperial)

	m.SendCommand("command", true).Wait(ctx)
	m.SendCommand("streamon", true).Wait(ctx)
	m.SetSpeed(cfg.Speed).Wait(ctx)

	return m, nil
}

func (m *Manager) startVideo(ctx context.Context, dec video.Decoder) error {
	if dec == nil {
		ff, err := video.StartDecoder(m.cfg.Decoder)
		if err != nil {
			return fmt.Errorf("start decoder: %w", err)
		}
		dec = ff
	}

	addr := net.JoinHostPort(m.cfg.HostIP, strconv.Itoa(m.cfg.VideoPort))
	ingest, err := video.ListenIngest(addr, dec, m.cfg.Ingest)
	if err != nil {
		dec.Close()
		return err
	}

	m.decoder = dec
	m.ingest = ingest
	m.frames = video.NewFrameReader(dec, m.cfg.Decoder.Width, m.cfg.Decoder.Height)

	go func() {
		defer close(m.ingestDone)
		if err := ingest.Run(ctx); err != nil {
			log.Error("video ingest stopped", "err", err)
		}
	}()
	return nil
}

// SendCommand transmits command on its own goroutine and returns at once.
// Blocking commands queue for the link; non-blocking ones are dropped with
// ErrNotAcquired when another command is in flight.
func (m *Manager) SendCommand(command string, blocking bool) *Pending {
	p := newPending(command)

	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		p.resolve("", false, ErrStopped)
		return p
	}
	m.inflight.Add(1)
	m.mu.Unlock()

	go func() {
		defer m.inflight.Done()
		reply, ok, err := m.channel.Send(m.ctx, command, blocking)
		if err != nil && m.ctx.Err() != nil {
			err = ErrStopped
		}
		log.Debug("command finished", "request_id", p.ID, "command", command, "reply", reply, "ok", ok, "err", err)
		p.resolve(reply, ok, err)
	}()
	return p
}

// Dispatch sends a non-blocking command without waiting for it.
func (m *Manager) Dispatch(command string) {
	m.SendCommand(command, false)
}

// Patrol starts the patrol routine. It does nothing while one is active.
func (m *Manager) Patrol() {
	if m.ctx.Err() != nil {
		return
	}
	m.patrol.Start(m.ctx)
}

// StopPatrol stops the patrol routine and waits for it to exit.
func (m *Manager) StopPatrol() {
	m.patrol.Stop()
}

// IsPatrolling reports whether the patrol routine is active.
func (m *Manager) IsPatrolling() bool {
	return m.patrol.Active()
}

func (m *Manager) patrolStep(ctx context.Context, n int) {
	var p *Pending
	switch n {
	case patrolUp:
		p = m.Up(DefaultDistance)
	case patrolTurn:
		p = m.Clockwise(90)
	case patrolDown:
		p = m.Down(DefaultDistance)
	default:
		return
	}
	p.Wait(ctx)
}

// EnableFaceDetect turns on face tracking. An active patrol is stopped on
// the next processed frame.
func (m *Manager) EnableFaceDetect() {
	m.tracker.Enable()
}

// DisableFaceDetect turns off face tracking.
func (m *Manager) DisableFaceDetect() {
	m.tracker.Disable()
}

// FaceDetectEnabled reports whether face tracking is on.
func (m *Manager) FaceDetectEnabled() bool {
	return m.tracker.Enabled()
}

// Frames yields raw decoded frames. The frame buffer is reused, so a frame
// is only valid until the next iteration. Only one of Frames and JPEGFrames
// may be consumed at a time.
func (m *Manager) Frames(ctx context.Context) iter.Seq[video.Frame] {
	return func(yield func(video.Frame) bool) {
		ctx, cancel := m.merge(ctx)
		defer cancel()
		for frame := range m.frames.Frames(ctx) {
			if !yield(frame) {
				return
			}
		}
	}
}

// JPEGFrames yields JPEG images of the feed and runs face tracking on each
// frame. When Config.Annotate is set the tracked face is outlined.
func (m *Manager) JPEGFrames(ctx context.Context) iter.Seq[[]byte] {
	return func(yield func([]byte) bool) {
		for frame := range m.Frames(ctx) {
			face, err := m.tracker.Process(frame)
			if err != nil {
				log.Warn("face tracking", "err", err)
			}

			var regions []image.Rectangle
			if face != nil && m.cfg.Annotate {
				regions = append(regions, face.Rect())
			}

			jpeg, err := m.encoder.Encode(frame, regions)
			if err != nil {
				log.Warn("encode frame", "err", err)
				continue
			}
			if !yield(jpeg) {
				return
			}
		}
	}
}

// Status is a snapshot of the manager state.
type Status struct {
	Host          string `json:"host"`
	Drone         string `json:"drone"`
	Video         string `json:"video"`
	Imperial      bool   `json:"imperial"`
	Speed         int    `json:"speed"`
	Patrolling    bool   `json:"patrolling"`
	FaceDetect    bool   `json:"face_detect"`
	VideoPackets  uint64 `json:"video_packets"`
	Frames        uint64 `json:"frames"`
	TrackCommands uint64 `json:"track_commands"`
}

// Status returns the current state.
func (m *Manager) Status() Status {
	ingest := m.ingest.Stats()
	track := m.tracker.Stats()
	return Status{
		Host:          m.conn.LocalAddr().String(),
		Drone:         m.drone.String(),
		Video:         m.ingest.Addr().String(),
		Imperial:      m.cfg.Imperial,
		Speed:         m.Speed(),
		Patrolling:    m.IsPatrolling(),
		FaceDetect:    m.FaceDetectEnabled(),
		VideoPackets:  ingest.Packets,
		Frames:        m.frames.Count(),
		TrackCommands: track.Commands,
	}
}

// Stop shuts the manager down. The patrol is stopped, background loops are
// cancelled, sockets are closed and the decoder is killed; each wait is
// bounded by StopRetries polls. Stop is safe to call more than once.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		log.Info("stopping drone manager")
		m.patrol.Stop()

		m.mu.Lock()
		m.stopped = true
		m.mu.Unlock()
		m.cancel()

		m.conn.Close()
		m.ingest.Close()
		if err := m.decoder.Close(); err != nil {
			log.Warn("close decoder", "err", err)
		}

		if !waitDone(m.listenerDone, m.cfg.StopInterval, m.cfg.StopRetries) {
			log.Warn("response listener did not stop in time")
		}
		if !waitDone(m.ingestDone, m.cfg.StopInterval, m.cfg.StopRetries) {
			log.Warn("video ingest did not stop in time")
		}

		inflight := make(chan struct{})
		go func() {
			m.inflight.Wait()
			close(inflight)
		}()
		if !waitDone(inflight, m.cfg.StopInterval, m.cfg.StopRetries) {
			log.Warn("commands still in flight at shutdown")
		}

		if err := m.detector.Close(); err != nil {
			log.Warn("close detector", "err", err)
		}
		log.Info("drone manager stopped")
	})
}

// merge returns a context cancelled with either ctx or the manager.
func (m *Manager) merge(ctx context.Context) (context.Context, context.CancelFunc) {
	merged, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(m.ctx, cancel)
	return merged, func() {
		stop()
		cancel()
	}
}
