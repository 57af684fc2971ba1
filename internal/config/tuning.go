// Package config loads the retargeting tuning file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tailscale/hujson"

	"github.com/ayusman/mimic/internal/filter"
)

// DefaultConfigPath is where cmd/mimic looks when -config is not given.
const DefaultConfigPath = "config/tuning.json"

const maxFileSize = 1 * 1024 * 1024 // 1MB

// TuningConfig holds every tunable of the pipeline. Omitted fields fall
// back to the defaults returned by the Get* methods, so partial files are
// safe.
type TuningConfig struct {
	PoseFilter *FilterTuning `json:"pose_filter,omitempty"`
	FaceFilter *FilterTuning `json:"face_filter,omitempty"`
	HandFilter *FilterTuning `json:"hand_filter,omitempty"`

	VisibilityThreshold *float64 `json:"visibility_threshold,omitempty"`
	HeadNeckRatio       *float64 `json:"head_neck_ratio,omitempty"`
	TwistBlend          *float64 `json:"twist_blend,omitempty"`
	IrisJitterThreshold *float64 `json:"iris_jitter_threshold,omitempty"` // degrees
	LinkEyes            *bool    `json:"link_eyes,omitempty"`
	FPS                 *int     `json:"fps,omitempty"`
}

// FilterTuning configures one landmark filter chain.
type FilterTuning struct {
	Kind             *string  `json:"kind,omitempty"` // "kalman" or "one_euro"
	ProcessNoise     *float64 `json:"process_noise,omitempty"`
	MeasurementNoise *float64 `json:"measurement_noise,omitempty"`
	MinCutoff        *float64 `json:"min_cutoff,omitempty"`
	Beta             *float64 `json:"beta,omitempty"`
	DCutoff          *float64 `json:"d_cutoff,omitempty"`
	GaussianSigma    *float64 `json:"gaussian_sigma,omitempty"`
	GaussianWindow   *int     `json:"gaussian_window,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrInt(v int) *int             { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }

// EmptyTuningConfig returns a TuningConfig with every field unset.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// DefaultTuningConfig returns a TuningConfig with every field set to its
// default.
func DefaultTuningConfig() *TuningConfig {
	empty := EmptyTuningConfig()
	pose, face, hand := empty.GetPoseFilter(), empty.GetFaceFilter(), empty.GetHandFilter()
	return &TuningConfig{
		PoseFilter:          &pose,
		FaceFilter:          &face,
		HandFilter:          &hand,
		VisibilityThreshold: ptrFloat64(empty.GetVisibilityThreshold()),
		HeadNeckRatio:       ptrFloat64(empty.GetHeadNeckRatio()),
		TwistBlend:          ptrFloat64(empty.GetTwistBlend()),
		IrisJitterThreshold: ptrFloat64(empty.GetIrisJitterThreshold()),
		LinkEyes:            ptrBool(empty.GetLinkEyes()),
		FPS:                 ptrInt(empty.GetFPS()),
	}
}

// LoadTuningConfig reads a tuning file. The file must have a .json
// extension and may contain comments and trailing commas.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return ParseTuningConfig(data)
}

// ParseTuningConfig decodes and validates HuJSON data.
func ParseTuningConfig(data []byte) (*TuningConfig, error) {
	std, err := hujson.Standardize(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(std, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks ranges and that every filter chain can be built.
func (c *TuningConfig) Validate() error {
	unit := func(name string, v *float64) error {
		if v != nil && (*v < 0 || *v > 1) {
			return fmt.Errorf("%s must be between 0 and 1, got %f", name, *v)
		}
		return nil
	}
	if err := unit("visibility_threshold", c.VisibilityThreshold); err != nil {
		return err
	}
	if err := unit("head_neck_ratio", c.HeadNeckRatio); err != nil {
		return err
	}
	if err := unit("twist_blend", c.TwistBlend); err != nil {
		return err
	}
	if c.IrisJitterThreshold != nil && *c.IrisJitterThreshold < 0 {
		return fmt.Errorf("iris_jitter_threshold must be non-negative, got %f", *c.IrisJitterThreshold)
	}
	if c.FPS != nil && (*c.FPS < 1 || *c.FPS > 240) {
		return fmt.Errorf("fps must be between 1 and 240, got %d", *c.FPS)
	}

	for name, get := range map[string]func() FilterTuning{
		"pose_filter": c.GetPoseFilter,
		"face_filter": c.GetFaceFilter,
		"hand_filter": c.GetHandFilter,
	} {
		ft := get()
		p, err := ft.Params()
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		if err := p.Validate(); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// GetVisibilityThreshold returns the landmark visibility gate.
func (c *TuningConfig) GetVisibilityThreshold() float64 {
	if c.VisibilityThreshold == nil {
		return 0.65
	}
	return *c.VisibilityThreshold
}

// GetHeadNeckRatio returns the share of the face rotation given to head
// and neck.
func (c *TuningConfig) GetHeadNeckRatio() float64 {
	if c.HeadNeckRatio == nil {
		return 0.6
	}
	return *c.HeadNeckRatio
}

// GetTwistBlend returns the blend of a fresh limb twist against the
// previous rotation.
func (c *TuningConfig) GetTwistBlend() float64 {
	if c.TwistBlend == nil {
		return 0.5
	}
	return *c.TwistBlend
}

func (c *TuningConfig) GetIrisJitterThreshold() float64 {
	if c.IrisJitterThreshold == nil {
		return 1.0
	}
	return *c.IrisJitterThreshold
}

// GetLinkEyes reports whether both eyes share one gaze. Off, each eye
// follows its own iris.
func (c *TuningConfig) GetLinkEyes() bool {
	if c.LinkEyes == nil {
		return true
	}
	return *c.LinkEyes
}

func (c *TuningConfig) GetFPS() int {
	if c.FPS == nil {
		return 30
	}
	return *c.FPS
}

// GetPoseFilter returns the body landmark filter with defaults filled in.
func (c *TuningConfig) GetPoseFilter() FilterTuning {
	return c.PoseFilter.withDefaults(FilterTuning{
		Kind:      ptrString("one_euro"),
		MinCutoff: ptrFloat64(0.1),
		Beta:      ptrFloat64(2.0),
		DCutoff:   ptrFloat64(1.0),
	})
}

// GetFaceFilter returns the face mesh filter with defaults filled in.
func (c *TuningConfig) GetFaceFilter() FilterTuning {
	return c.FaceFilter.withDefaults(FilterTuning{
		Kind:             ptrString("kalman"),
		ProcessNoise:     ptrFloat64(0.1),
		MeasurementNoise: ptrFloat64(1.0),
	})
}

// GetHandFilter returns the hand landmark filter with defaults filled in.
func (c *TuningConfig) GetHandFilter() FilterTuning {
	return c.HandFilter.withDefaults(FilterTuning{
		Kind:      ptrString("one_euro"),
		MinCutoff: ptrFloat64(0.2),
		Beta:      ptrFloat64(1.0),
		DCutoff:   ptrFloat64(1.0),
	})
}

// withDefaults fills every unset field of f from def. f may be nil.
func (f *FilterTuning) withDefaults(def FilterTuning) FilterTuning {
	if f == nil {
		return def
	}
	out := *f
	if out.Kind == nil {
		out.Kind = def.Kind
	}
	if out.ProcessNoise == nil {
		out.ProcessNoise = def.ProcessNoise
	}
	if out.MeasurementNoise == nil {
		out.MeasurementNoise = def.MeasurementNoise
	}
	if out.MinCutoff == nil {
		out.MinCutoff = def.MinCutoff
	}
	if out.Beta == nil {
		out.Beta = def.Beta
	}
	if out.DCutoff == nil {
		out.DCutoff = def.DCutoff
	}
	if out.GaussianSigma == nil {
		out.GaussianSigma = def.GaussianSigma
	}
	if out.GaussianWindow == nil {
		out.GaussianWindow = def.GaussianWindow
	}
	return out
}

// Params converts f into filter parameters. Unset numeric fields take the
// filter package defaults.
func (f FilterTuning) Params() (filter.Params, error) {
	p := filter.DefaultParams()
	if f.Kind != nil {
		k, err := filter.ParseKind(*f.Kind)
		if err != nil {
			return filter.Params{}, err
		}
		p.Kind = k
	}
	set := func(dst *float64, v *float64) {
		if v != nil {
			*dst = *v
		}
	}
	set(&p.Kalman.ProcessNoise, f.ProcessNoise)
	set(&p.Kalman.MeasurementNoise, f.MeasurementNoise)
	set(&p.OneEuro.MinCutoff, f.MinCutoff)
	set(&p.OneEuro.Beta, f.Beta)
	set(&p.OneEuro.DCutoff, f.DCutoff)
	set(&p.GaussianSigma, f.GaussianSigma)
	if f.GaussianWindow != nil {
		p.GaussianWindow = *f.GaussianWindow
	}
	return p, nil
}
