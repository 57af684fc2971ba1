package detector

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"
)

const epsilon = 1e-9

func TestResults_Validate(t *testing.T) {
	t.Run("full T-pose is valid", func(t *testing.T) {
		if err := TPoseResults().Validate(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("empty lists are valid", func(t *testing.T) {
		if err := (&Results{}).Validate(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("short hand list is rejected", func(t *testing.T) {
		r := TPoseResults()
		r.LeftHand = r.LeftHand[:20]
		err := r.Validate()
		if !errors.Is(err, ErrMalformedResults) {
			t.Fatalf("expected ErrMalformedResults, got %v", err)
		}
		if !strings.Contains(err.Error(), "left_hand") {
			t.Errorf("error should name the list, got %q", err)
		}
	})

	t.Run("non-finite coordinates are rejected", func(t *testing.T) {
		for name, mutate := range map[string]func(*Results){
			"nan hand x":     func(r *Results) { r.LeftHand[IndexMCP].X = math.NaN() },
			"inf world y":    func(r *Results) { r.PoseWorld[LeftElbow].Y = math.Inf(1) },
			"-inf face z":    func(r *Results) { r.Face[10].Z = math.Inf(-1) },
			"nan pose image": func(r *Results) { r.Pose[Nose].X = math.NaN() },
		} {
			r := TPoseResults()
			mutate(r)
			if err := r.Validate(); !errors.Is(err, ErrMalformedResults) {
				t.Errorf("%s: expected ErrMalformedResults, got %v", name, err)
			}
		}
	})
}

func TestResults_Clone(t *testing.T) {
	r := TPoseResults()
	c := r.Clone()

	c.Pose[LeftWrist].X = 42
	*c.Pose[LeftWrist].Visibility = 0.1

	if r.Pose[LeftWrist].X == 42 {
		t.Error("clone shares landmark storage")
	}
	if *r.Pose[LeftWrist].Visibility != 0.99 {
		t.Error("clone shares visibility storage")
	}
	if (*Results)(nil).Clone() != nil {
		t.Error("nil clone should be nil")
	}
}

func TestTPoseResults(t *testing.T) {
	r := TPoseResults()

	if !r.HasPose() {
		t.Fatal("expected pose")
	}
	if len(r.Face) != NumFaceLandmarks {
		t.Errorf("expected %d face landmarks, got %d", NumFaceLandmarks, len(r.Face))
	}

	// The left side of the subject is on the image right.
	if r.PoseWorld[LeftShoulder].X <= r.PoseWorld[RightShoulder].X {
		t.Error("left shoulder should be at +x")
	}

	// Hands are mirror images of each other around x = 0.5.
	for i := 0; i < NumHandLandmarks; i++ {
		l, rr := r.LeftHand[i], r.RightHand[i]
		if math.Abs(l.X+rr.X-1) > epsilon || l.Y != rr.Y || l.Z != rr.Z {
			t.Errorf("landmark %d is not mirrored: %+v %+v", i, l, rr)
		}
	}

	// Hand wrists sit on the normalized pose wrists.
	if math.Abs(r.LeftHand[Wrist].X-r.Pose[LeftWrist].X) > epsilon {
		t.Errorf("left hand wrist %f, pose wrist %f", r.LeftHand[Wrist].X, r.Pose[LeftWrist].X)
	}
}

func TestMockDetector(t *testing.T) {
	m := NewMockDetector()

	res, err := m.Detect(nil)
	if err != nil || res == nil || res.HasPose() {
		t.Fatalf("expected empty results, got %+v %v", res, err)
	}

	m.SetResults(TPoseResults())
	res, err = m.Detect(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	res.Pose[0].X = 9
	again, _ := m.Detect(nil)
	if again.Pose[0].X == 9 {
		t.Error("mock should hand out copies")
	}

	want := errors.New("camera gone")
	m.SetError(want)
	if _, err := m.Detect(nil); !errors.Is(err, want) {
		t.Errorf("expected %v, got %v", want, err)
	}
	if m.Calls() != 4 {
		t.Errorf("expected 4 calls, got %d", m.Calls())
	}
}

func TestWireFormat(t *testing.T) {
	t.Run("frame is length prefixed", func(t *testing.T) {
		var buf bytes.Buffer
		if err := writeFrame(&buf, []byte("jpeg")); err != nil {
			t.Fatal(err)
		}
		b := buf.Bytes()
		if n := binary.BigEndian.Uint32(b[:4]); n != 4 {
			t.Errorf("expected length 4, got %d", n)
		}
		if string(b[4:]) != "jpeg" {
			t.Errorf("unexpected payload %q", b[4:])
		}
	})

	t.Run("results line round trips", func(t *testing.T) {
		data, err := json.Marshal(TPoseResults())
		if err != nil {
			t.Fatal(err)
		}
		got, err := readResults(bufio.NewReader(bytes.NewReader(append(data, '\n'))))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Face[10].Y != 0.2 {
			t.Errorf("expected forehead y 0.2, got %f", got.Face[10].Y)
		}
		if got.Face[0].Visibility != nil {
			t.Error("face visibility should stay unset")
		}
		if got.Pose[LeftHip].Visibility == nil {
			t.Error("pose visibility should be set")
		}
	})

	t.Run("malformed response", func(t *testing.T) {
		_, err := readResults(bufio.NewReader(strings.NewReader(`{"left_hand":[{"x":1}]}` + "\n")))
		if !errors.Is(err, ErrMalformedResults) {
			t.Errorf("expected ErrMalformedResults, got %v", err)
		}
	})
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"default", func(*Config) {}, false},
		{"lite model", func(c *Config) { c.ModelComplexity = 0 }, false},
		{"model too high", func(c *Config) { c.ModelComplexity = 3 }, true},
		{"negative model", func(c *Config) { c.ModelComplexity = -1 }, true},
		{"confidence above one", func(c *Config) { c.MinConfidence = 1.5 }, true},
		{"negative tracking", func(c *Config) { c.MinTrackingConf = -0.1 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("error %v does not wrap ErrInvalidConfig", err)
			}
		})
	}
}
