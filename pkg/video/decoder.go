package video

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"sync"

	"github.com/teslashibe/go-tello/internal/log"
)

// Decoder is an external process turning the compressed video byte stream
// written to it into raw BGR24 frames read from it.
type Decoder interface {
	io.Writer
	io.Reader
	Close() error
}

// DecoderConfig describes how to launch the decoder process.
type DecoderConfig struct {
	Command string   // Executable, default "ffmpeg"
	Args    []string // Overrides the generated ffmpeg arguments when set
	Width   int      // Output width in pixels
	Height  int      // Output height in pixels

	// StderrLimit bounds how much decoder stderr is kept for diagnostics.
	StderrLimit int
}

// DefaultDecoderConfig returns the ffmpeg settings used for the drone feed.
func DefaultDecoderConfig() DecoderConfig {
	return DecoderConfig{
		Command:     "ffmpeg",
		Width:       DefaultWidth,
		Height:      DefaultHeight,
		StderrLimit: 16 * 1024,
	}
}

// CommandArgs returns the decoder arguments: stdin in, raw bgr24 frames out.
func (c DecoderConfig) CommandArgs() []string {
	if len(c.Args) > 0 {
		return c.Args
	}
	size := strconv.Itoa(c.Width) + "x" + strconv.Itoa(c.Height)
	return []string{
		"-hwaccel", "auto",
		"-hwaccel_device", "opencl",
		"-i", "pipe:0",
		"-pix_fmt", "bgr24",
		"-s", size,
		"-f", "rawvideo",
		"pipe:1",
	}
}

// FFmpegDecoder is a persistent decoder subprocess with piped stdin/stdout.
type FFmpegDecoder struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
	stderr *tailBuffer

	mu     sync.Mutex
	closed bool
}

// StartDecoder launches the decoder process.
func StartDecoder(cfg DecoderConfig) (*FFmpegDecoder, error) {
	if cfg.Command == "" {
		cfg.Command = "ffmpeg"
	}
	path, err := exec.LookPath(cfg.Command)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrDecoderNotFound, cfg.Command)
	}

	cmd := exec.Command(path, cfg.CommandArgs()...)
	stderr := newTailBuffer(cfg.StderrLimit)
	cmd.Stderr = stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("decoder stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return nil, fmt.Errorf("decoder stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		stdin.Close()
		return nil, fmt.Errorf("start decoder: %w", err)
	}

	log.Info("decoder started", "cmd", cfg.Command, "pid", cmd.Process.Pid)

	return &FFmpegDecoder{
		cmd:    cmd,
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
	}, nil
}

// Write forwards compressed video bytes to the decoder's stdin.
func (d *FFmpegDecoder) Write(p []byte) (int, error) {
	d.mu.Lock()
	closed := d.closed
	d.mu.Unlock()
	if closed {
		return 0, ErrDecoderClosed
	}
	return d.stdin.Write(p)
}

// Read reads raw frame bytes from the decoder's stdout.
func (d *FFmpegDecoder) Read(p []byte) (int, error) {
	return d.stdout.Read(p)
}

// Stderr returns the tail of the decoder's diagnostic output.
func (d *FFmpegDecoder) Stderr() string {
	return d.stderr.String()
}

// Close force-kills the decoder. Closing an already exited or closed decoder
// is not an error.
func (d *FFmpegDecoder) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true

	d.stdin.Close()
	if d.cmd.Process != nil {
		if err := d.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			return fmt.Errorf("kill decoder: %w", err)
		}
	}
	// Reap the process; the exit status after a kill is expected to be non-zero.
	_ = d.cmd.Wait()
	log.Info("decoder stopped")
	return nil
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	mu    sync.Mutex
	limit int
	buf   []byte
}

func newTailBuffer(limit int) *tailBuffer {
	if limit <= 0 {
		limit = 16 * 1024
	}
	return &tailBuffer{limit: limit}
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.limit; over > 0 {
		t.buf = append(t.buf[:0], t.buf[over:]...)
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.buf)
}
