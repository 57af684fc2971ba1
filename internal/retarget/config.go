package retarget

import (
	"fmt"

	"github.com/ayusman/mimic/internal/config"
	"github.com/ayusman/mimic/internal/filter"
)

// Config holds the engine tunables.
type Config struct {
	PoseFilter filter.Params
	FaceFilter filter.Params
	HandFilter filter.Params

	// VisibilityThreshold gates pose landmarks; samples at or below it
	// leave the landmark frozen.
	VisibilityThreshold float64
	// HeadNeckRatio is the share of the measured face rotation written to
	// both the head and the neck.
	HeadNeckRatio float64
	// TwistBlend weighs a fresh lower-limb rotation against the previous
	// frame's.
	TwistBlend float64
	// IrisJitterThreshold is the smallest eye movement, in degrees, that
	// reaches the output.
	IrisJitterThreshold float64
	// LinkEyes drives both eyes with one gaze, weighted toward the eye
	// facing the camera. Off, each eye follows its own iris.
	LinkEyes bool
}

// DefaultConfig returns the configuration used when no tuning file is
// given.
func DefaultConfig() Config {
	cfg, err := ConfigFromTuning(config.EmptyTuningConfig())
	if err != nil {
		panic(fmt.Sprintf("retarget: default tuning is invalid: %v", err))
	}
	return cfg
}

// ConfigFromTuning converts a tuning file into an engine configuration.
func ConfigFromTuning(t *config.TuningConfig) (Config, error) {
	if err := t.Validate(); err != nil {
		return Config{}, err
	}
	pose, err := t.GetPoseFilter().Params()
	if err != nil {
		return Config{}, fmt.Errorf("pose filter: %w", err)
	}
	face, err := t.GetFaceFilter().Params()
	if err != nil {
		return Config{}, fmt.Errorf("face filter: %w", err)
	}
	hand, err := t.GetHandFilter().Params()
	if err != nil {
		return Config{}, fmt.Errorf("hand filter: %w", err)
	}
	return Config{
		PoseFilter:          pose,
		FaceFilter:          face,
		HandFilter:          hand,
		VisibilityThreshold: t.GetVisibilityThreshold(),
		HeadNeckRatio:       t.GetHeadNeckRatio(),
		TwistBlend:          t.GetTwistBlend(),
		IrisJitterThreshold: t.GetIrisJitterThreshold(),
		LinkEyes:            t.GetLinkEyes(),
	}, nil
}

// Validate checks every filter chain and the coefficient ranges.
func (c Config) Validate() error {
	for name, p := range map[string]filter.Params{
		"pose": c.PoseFilter,
		"face": c.FaceFilter,
		"hand": c.HandFilter,
	} {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("%s filter: %w", name, err)
		}
	}
	if c.HeadNeckRatio < 0 || c.HeadNeckRatio > 1 {
		return fmt.Errorf("head/neck ratio must be between 0 and 1, got %f", c.HeadNeckRatio)
	}
	if c.TwistBlend < 0 || c.TwistBlend > 1 {
		return fmt.Errorf("twist blend must be between 0 and 1, got %f", c.TwistBlend)
	}
	if c.IrisJitterThreshold < 0 {
		return fmt.Errorf("iris jitter threshold must be non-negative, got %f", c.IrisJitterThreshold)
	}
	return nil
}
