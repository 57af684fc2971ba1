// Package landmark gates and smooths raw detector landmarks.
package landmark

import (
	"fmt"

	"github.com/ayusman/mimic/internal/filter"
	"github.com/ayusman/mimic/internal/geom"
)

// DefaultVisibilityThreshold is the visibility a landmark must exceed to
// update.
const DefaultVisibilityThreshold = 0.65

// Filtered is a landmark with its own filter chain. Samples whose
// visibility is at or below the threshold are ignored: the position, the
// visibility and the filter state all stay where they were.
type Filtered struct {
	pos       geom.Vec
	vis       float64
	hasVis    bool
	t         float64
	fresh     bool
	threshold float64

	primary filter.Vector
	window  *filter.Gaussian
}

// New builds a Filtered landmark from p.
func New(p filter.Params, threshold float64) (*Filtered, error) {
	f := &Filtered{}
	if err := f.init(p, threshold); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *Filtered) init(p filter.Params, threshold float64) error {
	primary, err := filter.New(p)
	if err != nil {
		return err
	}
	window, err := p.NewWindow()
	if err != nil {
		return err
	}
	*f = Filtered{primary: primary, window: window, threshold: threshold}
	return nil
}

// NewSet allocates n landmarks sharing the same parameters, each with its
// own filter state.
func NewSet(n int, p filter.Params, threshold float64) ([]Filtered, error) {
	set := make([]Filtered, n)
	for i := range set {
		if err := set[i].init(p, threshold); err != nil {
			return nil, fmt.Errorf("landmark %d: %w", i, err)
		}
	}
	return set, nil
}

// UpdatePosition advances the logical clock and, when the sample is
// trusted, runs it through the filter chain. visibility nil means the
// landmark type does not report one. Non-finite positions or visibilities
// are gated like low-visibility samples. It reports whether the sample
// was accepted.
func (f *Filtered) UpdatePosition(pos geom.Vec, visibility *float64) bool {
	f.t++
	if !geom.Finite(pos) || (visibility != nil && !(*visibility > f.threshold)) {
		f.fresh = false
		return false
	}

	out := f.primary.Next(f.t, pos)
	if f.window != nil {
		f.window.Push(out)
		if f.window.Full() {
			out = f.window.Apply()
		}
	}

	f.pos = out
	f.hasVis = visibility != nil
	if f.hasVis {
		f.vis = *visibility
	}
	f.fresh = true
	return true
}

// Pos returns the smoothed position.
func (f *Filtered) Pos() geom.Vec { return f.pos }

// T returns the number of samples offered so far.
func (f *Filtered) T() float64 { return f.t }

// Visibility returns the visibility of the last accepted sample and whether
// one was reported.
func (f *Filtered) Visibility() (float64, bool) { return f.vis, f.hasVis }

// Fresh reports whether the most recent sample was accepted.
func (f *Filtered) Fresh() bool { return f.fresh }

// AllFresh reports whether every listed landmark of set took its latest
// sample.
func AllFresh(set []Filtered, idx ...int) bool {
	for _, i := range idx {
		if !set[i].fresh {
			return false
		}
	}
	return true
}
