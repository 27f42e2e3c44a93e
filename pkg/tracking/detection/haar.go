package detection

import (
	"fmt"
	"image"
	"os"
	"sync"

	"github.com/teslashibe/go-tello/internal/log"
	"github.com/teslashibe/go-tello/pkg/video"
	"gocv.io/x/gocv"
)

// HaarDetector runs an OpenCV cascade classifier on grayscale frames.
type HaarDetector struct {
	classifier gocv.CascadeClassifier
	config     Config
	mu         sync.Mutex // Protects the classifier
	closed     bool
}

// NewHaar loads the cascade at cfg.ModelPath.
func NewHaar(cfg Config) (*HaarDetector, error) {
	if _, err := os.Stat(cfg.ModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrModelNotFound, cfg.ModelPath)
	}
	if cfg.ScaleFactor <= 1 {
		cfg.ScaleFactor = DefaultConfig().ScaleFactor
	}
	if cfg.MinNeighbors <= 0 {
		cfg.MinNeighbors = DefaultConfig().MinNeighbors
	}

	classifier := gocv.NewCascadeClassifier()
	if !classifier.Load(cfg.ModelPath) {
		classifier.Close()
		return nil, fmt.Errorf("%w: %s", ErrModelLoad, cfg.ModelPath)
	}

	log.Info("face detector loaded", "backend", BackendHaar, "model", cfg.ModelPath)
	return &HaarDetector{classifier: classifier, config: cfg}, nil
}

// Detect converts the frame to grayscale and runs the cascade.
func (d *HaarDetector) Detect(frame video.Frame) ([]Detection, error) {
	if len(frame.Data) == 0 {
		return nil, ErrEmptyFrame
	}
	img, err := frame.Mat()
	if err != nil {
		return nil, fmt.Errorf("frame to mat: %w", err)
	}
	defer img.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(img, &gray, gocv.ColorBGRToGray)

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil, ErrClosed
	}
	rects := d.classifier.DetectMultiScaleWithParams(gray, d.config.ScaleFactor, d.config.MinNeighbors, 0, image.Point{}, image.Point{})
	d.mu.Unlock()

	dets := make([]Detection, 0, len(rects))
	for _, r := range rects {
		dets = append(dets, Detection{
			X:          r.Min.X,
			Y:          r.Min.Y,
			W:          r.Dx(),
			H:          r.Dy(),
			Confidence: 1,
		})
	}
	return dets, nil
}

// Close releases the classifier
func (d *HaarDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	return d.classifier.Close()
}
