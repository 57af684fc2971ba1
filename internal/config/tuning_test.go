package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/mimic/internal/filter"
)

func TestDefaultTuningConfig(t *testing.T) {
	cfg := DefaultTuningConfig()

	if cfg.VisibilityThreshold == nil || *cfg.VisibilityThreshold != 0.65 {
		t.Errorf("Expected VisibilityThreshold 0.65, got %v", cfg.VisibilityThreshold)
	}
	if cfg.HeadNeckRatio == nil || *cfg.HeadNeckRatio != 0.6 {
		t.Errorf("Expected HeadNeckRatio 0.6, got %v", cfg.HeadNeckRatio)
	}
	if cfg.TwistBlend == nil || *cfg.TwistBlend != 0.5 {
		t.Errorf("Expected TwistBlend 0.5, got %v", cfg.TwistBlend)
	}
	if !cfg.GetLinkEyes() || !EmptyTuningConfig().GetLinkEyes() {
		t.Error("eyes should be linked by default")
	}
	if cfg.GetFPS() != 30 {
		t.Errorf("GetFPS() = %d, want 30", cfg.GetFPS())
	}
	require.NoError(t, cfg.Validate())

	p, err := cfg.GetFaceFilter().Params()
	require.NoError(t, err)
	assert.Equal(t, filter.KindKalman, p.Kind)
}

func TestLoadTuningConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.json")
	data := `{
  // smoother hands for a slow webcam
  "hand_filter": {"kind": "kalman", "measurement_noise": 4},
  "head_neck_ratio": 0.5,
  "fps": 24,
}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	cfg, err := LoadTuningConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 0.5, cfg.GetHeadNeckRatio())
	assert.Equal(t, 24, cfg.GetFPS())
	assert.Equal(t, 0.65, cfg.GetVisibilityThreshold(), "omitted field keeps default")

	p, err := cfg.GetHandFilter().Params()
	require.NoError(t, err)
	assert.Equal(t, filter.KindKalman, p.Kind)
	assert.Equal(t, 4.0, p.Kalman.MeasurementNoise)
	assert.Equal(t, filter.DefaultParams().Kalman.ProcessNoise, p.Kalman.ProcessNoise)
}

func TestShippedTuningConfigMatchesDefaults(t *testing.T) {
	cfg, err := LoadTuningConfig(filepath.Join("..", "..", DefaultConfigPath))
	require.NoError(t, err)

	// The example file documents the defaults; the commented-out Gaussian
	// stage stays unset.
	if diff := cmp.Diff(DefaultTuningConfig(), cfg); diff != "" {
		t.Errorf("shipped config differs from defaults (-want +got):\n%s", diff)
	}
}

func TestLoadTuningConfigErrors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		file    string
		content string
		wantErr string
	}{
		{"wrong extension", "tuning.yaml", "{}", ".json extension"},
		{"bad syntax", "bad.json", "{", "failed to parse config"},
		{"unknown filter", "kind.json", `{"pose_filter": {"kind": "median"}}`, "unknown filter kind"},
		{"small window", "window.json", `{"face_filter": {"gaussian_window": 1}}`, "at least 2"},
		{"ratio range", "ratio.json", `{"head_neck_ratio": 1.5}`, "head_neck_ratio"},
		{"fps range", "fps.json", `{"fps": 0}`, "fps"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.file)
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))
			_, err := LoadTuningConfig(path)
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tt.wantErr), "error %q lacks %q", err, tt.wantErr)
		})
	}

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadTuningConfig(filepath.Join(dir, "nope.json"))
		require.Error(t, err)
	})

	t.Run("too large", func(t *testing.T) {
		path := filepath.Join(dir, "large.json")
		require.NoError(t, os.WriteFile(path, make([]byte, maxFileSize+1), 0644))
		_, err := LoadTuningConfig(path)
		require.ErrorContains(t, err, "too large")
	})
}

func TestFilterUnknownKindIsSentinel(t *testing.T) {
	_, err := FilterTuning{Kind: ptrString("median")}.Params()
	require.ErrorIs(t, err, filter.ErrUnknownKind)
}
