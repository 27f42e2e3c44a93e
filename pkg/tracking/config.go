package tracking

import (
	"errors"
	"fmt"
)

// Config holds the face-following thresholds
type Config struct {
	// Dead bands, in pixels, around the frame center
	LateralThreshold  float64 // Horizontal offset before moving left/right
	VerticalThreshold float64 // Vertical offset before climbing/descending

	// Distance keeping, as face area over frame area
	NearAreaRatio float64 // Above this the drone backs off
	FarAreaRatio  float64 // Below this the drone closes in

	// Step is the magnitude of each velocity component (cm)
	Step int
}

// DefaultConfig returns the thresholds tuned for 320x240 frames
func DefaultConfig() Config {
	return Config{
		LateralThreshold:  30,
		VerticalThreshold: 15,
		NearAreaRatio:     0.30,
		FarAreaRatio:      0.02,
		Step:              30,
	}
}

// Validate checks that thresholds are usable.
func (c Config) Validate() error {
	var errs []error
	if c.LateralThreshold < 0 {
		errs = append(errs, fmt.Errorf("lateral threshold must be >= 0, got %v", c.LateralThreshold))
	}
	if c.VerticalThreshold < 0 {
		errs = append(errs, fmt.Errorf("vertical threshold must be >= 0, got %v", c.VerticalThreshold))
	}
	if c.FarAreaRatio < 0 || c.NearAreaRatio > 1 || c.FarAreaRatio >= c.NearAreaRatio {
		errs = append(errs, fmt.Errorf("area ratios must satisfy 0 <= far < near <= 1, got far=%v near=%v", c.FarAreaRatio, c.NearAreaRatio))
	}
	if c.Step <= 0 {
		errs = append(errs, fmt.Errorf("step must be > 0, got %d", c.Step))
	}
	return errors.Join(errs...)
}
