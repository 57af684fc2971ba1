// Package filter smooths time-stamped 3D samples. Filters do not know what
// the vectors mean; the landmark model decides when to feed them.
package filter

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang/geo/r3"
)

var (
	// ErrUnknownKind is returned for a filter kind outside the defined set.
	ErrUnknownKind = errors.New("unknown filter kind")
	// ErrWindowTooSmall is returned when a Gaussian window is shorter than 2.
	ErrWindowTooSmall = errors.New("gaussian window must hold at least 2 samples")
	// ErrInvalidParams is returned for negative or zero tuning values.
	ErrInvalidParams = errors.New("invalid filter parameters")
)

// Kind selects the primary filter of a landmark.
type Kind int

const (
	KindKalman Kind = iota + 1
	KindOneEuro
)

func (k Kind) String() string {
	switch k {
	case KindKalman:
		return "kalman"
	case KindOneEuro:
		return "one_euro"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind maps a configuration string to a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "kalman":
		return KindKalman, nil
	case "one_euro", "oneeuro", "one-euro":
		return KindOneEuro, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// KalmanParams tunes the Kalman filter.
type KalmanParams struct {
	ProcessNoise     float64
	MeasurementNoise float64
}

// OneEuroParams tunes the one-euro filter.
type OneEuroParams struct {
	MinCutoff float64
	Beta      float64
	DCutoff   float64
}

// Params describes a complete filter chain: a primary filter selected by
// Kind, optionally followed by a Gaussian window when GaussianWindow > 0.
type Params struct {
	Kind    Kind
	Kalman  KalmanParams
	OneEuro OneEuroParams

	GaussianSigma  float64
	GaussianWindow int
}

// DefaultParams returns a one-euro chain without Gaussian smoothing.
func DefaultParams() Params {
	return Params{
		Kind:    KindOneEuro,
		Kalman:  KalmanParams{ProcessNoise: 0.1, MeasurementNoise: 3},
		OneEuro: OneEuroParams{MinCutoff: 1, Beta: 0.5, DCutoff: 1},
	}
}

// Vector is a stateful filter over timestamped vector samples.
type Vector interface {
	Next(t float64, v r3.Vector) r3.Vector
}

// New returns the primary filter selected by p.Kind.
func New(p Params) (Vector, error) {
	switch p.Kind {
	case KindKalman:
		return NewKalman(p.Kalman)
	case KindOneEuro:
		return NewOneEuro(p.OneEuro)
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnknownKind, p.Kind)
	}
}

// NewWindow returns the optional Gaussian stage of p, or nil when p has none.
func (p Params) NewWindow() (*Gaussian, error) {
	if p.GaussianWindow == 0 {
		return nil, nil
	}
	return NewGaussian(p.GaussianWindow, p.GaussianSigma)
}

// Validate checks p without building anything.
func (p Params) Validate() error {
	if _, err := New(p); err != nil {
		return err
	}
	_, err := p.NewWindow()
	return err
}
