package detection

import (
	"errors"
	"image"
	"testing"
)

func TestDetection_Center(t *testing.T) {
	tests := []struct {
		name    string
		det     Detection
		expectX float64
		expectY float64
	}{
		{
			name:    "centered in 320x240",
			det:     Detection{X: 140, Y: 100, W: 40, H: 40},
			expectX: 160,
			expectY: 120,
		},
		{
			name:    "top left corner",
			det:     Detection{X: 0, Y: 0, W: 20, H: 20},
			expectX: 10,
			expectY: 10,
		},
		{
			name:    "odd size",
			det:     Detection{X: 10, Y: 10, W: 5, H: 3},
			expectX: 12.5,
			expectY: 11.5,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			x, y := tc.det.Center()
			if x != tc.expectX {
				t.Errorf("Center X: got %.2f, want %.2f", x, tc.expectX)
			}
			if y != tc.expectY {
				t.Errorf("Center Y: got %.2f, want %.2f", y, tc.expectY)
			}
		})
	}
}

func TestDetection_AreaAndRect(t *testing.T) {
	d := Detection{X: 5, Y: 6, W: 10, H: 20}
	if d.Area() != 200 {
		t.Errorf("Area: got %d, want 200", d.Area())
	}
	if got, want := d.Rect(), image.Rect(5, 6, 15, 26); got != want {
		t.Errorf("Rect: got %v, want %v", got, want)
	}
}

func TestSelectFirst(t *testing.T) {
	if SelectFirst(nil) != nil {
		t.Error("SelectFirst(nil): expected nil")
	}

	dets := []Detection{
		{X: 1, W: 10, H: 10},
		{X: 2, W: 100, H: 100}, // larger, still ignored
	}
	first := SelectFirst(dets)
	if first == nil || first.X != 1 {
		t.Errorf("SelectFirst: got %+v, want first detection", first)
	}
}

func TestNew_MissingModel(t *testing.T) {
	for _, backend := range []string{BackendHaar, BackendYuNet} {
		t.Run(backend, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Backend = backend
			cfg.ModelPath = "/nonexistent/path/model"

			_, err := New(cfg)
			if !errors.Is(err, ErrModelNotFound) {
				t.Errorf("got %v, want ErrModelNotFound", err)
			}
		})
	}
}

func TestNew_UnknownBackend(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Backend = "sonar"

	_, err := New(cfg)
	if !errors.Is(err, ErrUnknownBackend) {
		t.Errorf("got %v, want ErrUnknownBackend", err)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Backend != BackendHaar {
		t.Errorf("Backend: got %q, want %q", cfg.Backend, BackendHaar)
	}
	if cfg.ModelPath == "" {
		t.Error("ModelPath should not be empty")
	}
	if cfg.ScaleFactor != 1.3 {
		t.Errorf("ScaleFactor: got %v, want 1.3", cfg.ScaleFactor)
	}
	if cfg.MinNeighbors != 5 {
		t.Errorf("MinNeighbors: got %d, want 5", cfg.MinNeighbors)
	}
}
