package detector

import (
	"errors"
	"fmt"

	"gocv.io/x/gocv"
)

// Detector finds holistic landmarks in video frames.
type Detector interface {
	// Detect analyzes a video frame and returns the landmarks found in it.
	// Missing body parts come back as empty lists, not errors.
	Detect(frame *gocv.Mat) (*Results, error)

	// Close releases any resources held by the detector.
	Close() error
}

// ErrInvalidConfig is returned for a Config that Validate rejects.
var ErrInvalidConfig = errors.New("invalid detector config")

// Config holds the holistic model options.
type Config struct {
	// ModelComplexity selects the pose model (0, 1 or 2).
	ModelComplexity int

	// RefineFace enables the iris landmarks used for eye tracking.
	RefineFace bool

	MinConfidence   float64
	MinTrackingConf float64
}

func DefaultConfig() Config {
	return Config{
		ModelComplexity: 1,
		RefineFace:      true,
		MinConfidence:   0.5,
		MinTrackingConf: 0.5,
	}
}

// Validate checks the model index and that both thresholds lie in [0, 1].
func (c Config) Validate() error {
	if c.ModelComplexity < 0 || c.ModelComplexity > 2 {
		return fmt.Errorf("%w: model complexity %d", ErrInvalidConfig, c.ModelComplexity)
	}
	for name, v := range map[string]float64{
		"min confidence":          c.MinConfidence,
		"min tracking confidence": c.MinTrackingConf,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%w: %s %g", ErrInvalidConfig, name, v)
		}
	}
	return nil
}
